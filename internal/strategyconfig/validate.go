package strategyconfig

import (
	"errors"
	"fmt"

	"github.com/wonny/voltarget/internal/signal"
)

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string
	Message string
}

// sectionOf maps engine parameter names to their YAML section
var sectionOf = map[string]string{
	"cost_bps":      "costs",
	"vol_match_cap": "baseline",
}

// Validate checks all required constraints
// 실패 시 error 반환 (프로그램 중단)
// ⭐ SSOT: 파라미터 규칙은 backtest.Params.Validate 에만
func Validate(cfg *Config) error {
	if cfg.Meta.StrategyID == "" {
		return signal.ValidationError{Field: "meta.strategy_id", Message: "required"}
	}

	err := cfg.BacktestParams().Validate()
	if err == nil {
		return nil
	}

	var vErr signal.ValidationError
	if !errors.As(err, &vErr) {
		return err
	}
	section, ok := sectionOf[vErr.Field]
	if !ok {
		section = "signal"
	}
	vErr.Field = section + "." + vErr.Field
	return vErr
}

// Warn returns soft warnings (권장 범위 이탈)
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	if cfg.Signal.LeverageCap > 2 {
		warnings = append(warnings, Warning{
			Code:    "LEVERAGE_CAP_HIGH",
			Message: fmt.Sprintf("leverage_cap %.2f above 2 on a leveraged instrument", cfg.Signal.LeverageCap),
		})
	}
	if cfg.Signal.LeverageCap == 0 {
		warnings = append(warnings, Warning{
			Code:    "ALWAYS_FLAT",
			Message: "leverage_cap 0 keeps the strategy in cash",
		})
	}
	if cfg.Costs.CostBps == 0 {
		warnings = append(warnings, Warning{
			Code:    "ZERO_COST",
			Message: "cost_bps is 0, results ignore transaction costs",
		})
	}
	if cfg.Signal.VixWidth > 0 && cfg.Signal.VixWidth < 1 {
		warnings = append(warnings, Warning{
			Code:    "NARROW_GATE",
			Message: fmt.Sprintf("vix_width %.2f makes the gate nearly a step function", cfg.Signal.VixWidth),
		})
	}
	if cfg.Signal.LookbackVol < 5 {
		warnings = append(warnings, Warning{
			Code:    "SHORT_LOOKBACK",
			Message: fmt.Sprintf("lookback_vol %d gives a very noisy volatility estimate", cfg.Signal.LookbackVol),
		})
	}

	return warnings
}
