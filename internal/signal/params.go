package signal

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidParams marks configuration errors that must abort a run
var ErrInvalidParams = errors.New("invalid signal parameters")

// ValidationError 검증 실패 (실행 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap lets callers match any parameter failure with errors.Is(err, ErrInvalidParams)
func (e ValidationError) Unwrap() error {
	return ErrInvalidParams
}

// Params are the fixed inputs of the signal engine
type Params struct {
	LookbackVol int     // EWMA span in days
	TargetVol   float64 // annualized, e.g. 0.40
	LeverageCap float64 // upper bound of the exposure weight
	TrendWindow int     // SMA window in days
	TrendBand   float64 // fractional offset applied to the SMA, e.g. -0.02
	VixCutoff   float64 // vol index level where de-risking starts
	VixWidth    float64 // vol index distance over which the gate closes
}

// Validate rejects values that would divide by zero or break the weight bounds
func (p Params) Validate() error {
	if p.LookbackVol <= 0 {
		return ValidationError{"lookback_vol", "must be > 0"}
	}
	if p.TrendWindow < 1 {
		return ValidationError{"trend_window", "must be >= 1"}
	}
	if !finite(p.LeverageCap) || p.LeverageCap < 0 {
		return ValidationError{"leverage_cap", "must be a finite value >= 0"}
	}
	if !finite(p.TargetVol) || p.TargetVol < 0 {
		return ValidationError{"target_vol", "must be a finite value >= 0"}
	}
	if !finite(p.TrendBand) || p.TrendBand <= -1 {
		return ValidationError{"trend_band", "must be finite and > -1"}
	}
	if !finite(p.VixCutoff) {
		return ValidationError{"vix_cutoff", "must be finite"}
	}
	if !finite(p.VixWidth) || p.VixWidth <= 0 {
		return ValidationError{"vix_width", "must be finite and > 0"}
	}
	return nil
}

// Alpha is the EWMA smoothing factor 2/(span+1)
func (p Params) Alpha() float64 {
	return 2.0 / (float64(p.LookbackVol) + 1.0)
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
