package strategyconfig

import (
	"github.com/wonny/voltarget/internal/backtest"
	"github.com/wonny/voltarget/internal/signal"
)

// Config는 변동성 타겟 오버레이 전략의 전체 설정
type Config struct {
	Meta     Meta     `yaml:"meta" json:"meta"`
	Signal   Signal   `yaml:"signal" json:"signal"`
	Costs    Costs    `yaml:"costs" json:"costs"`
	Baseline Baseline `yaml:"baseline" json:"baseline"`
	Data     Data     `yaml:"data" json:"data"`
}

// Meta 메타 정보
type Meta struct {
	StrategyID string `yaml:"strategy_id" json:"strategy_id"`
	Version    string `yaml:"version" json:"version"`
	Instrument string `yaml:"instrument" json:"instrument"`
}

// Signal 시그널 파라미터
type Signal struct {
	LookbackVol int     `yaml:"lookback_vol" json:"lookback_vol"`
	TargetVol   float64 `yaml:"target_vol" json:"target_vol"`
	LeverageCap float64 `yaml:"leverage_cap" json:"leverage_cap"`
	TrendWindow int     `yaml:"trend_window" json:"trend_window"`
	TrendBand   float64 `yaml:"trend_band" json:"trend_band"`
	VixCutoff   float64 `yaml:"vix_cutoff" json:"vix_cutoff"`
	VixWidth    float64 `yaml:"vix_width" json:"vix_width"`
}

// Costs 거래 비용
type Costs struct {
	CostBps float64 `yaml:"cost_bps" json:"cost_bps"`
}

// Baseline 비교 벤치마크
type Baseline struct {
	VolMatchCap float64 `yaml:"vol_match_cap" json:"vol_match_cap"`
}

// Data 입력 시계열 위치
// 파일 경로는 DATA_DIR 기준 상대 경로 허용
type Data struct {
	PriceFile    string `yaml:"price_file" json:"price_file"`
	VolIndexFile string `yaml:"vol_index_file" json:"vol_index_file"`
	RateFile     string `yaml:"rate_file" json:"rate_file"`

	// DB 시계열 이름 (data import 시 사용)
	PriceSeries    string `yaml:"price_series" json:"price_series"`
	VolIndexSeries string `yaml:"vol_index_series" json:"vol_index_series"`
	RateSeries     string `yaml:"rate_series" json:"rate_series"`
}

// Default returns the reference parameter set
func Default() *Config {
	return &Config{
		Meta: Meta{
			StrategyID: "ewma_vol_target",
			Version:    "1",
			Instrument: "AAPL",
		},
		Signal: Signal{
			LookbackVol: 20,
			TargetVol:   0.40,
			LeverageCap: 1.3,
			TrendWindow: 20,
			TrendBand:   -0.02,
			VixCutoff:   35,
			VixWidth:    10,
		},
		Costs:    Costs{CostBps: 1},
		Baseline: Baseline{VolMatchCap: backtest.DefaultVolMatchCap},
		Data: Data{
			PriceFile:      "AAPL_daily_adj.csv",
			VolIndexFile:   "VIX_daily_adj.csv",
			RateFile:       "US2Y_daily_adj.csv",
			PriceSeries:    "AAPL",
			VolIndexSeries: "VIX",
			RateSeries:     "US2Y",
		},
	}
}

// SignalParams converts the signal section
func (c *Config) SignalParams() signal.Params {
	return signal.Params{
		LookbackVol: c.Signal.LookbackVol,
		TargetVol:   c.Signal.TargetVol,
		LeverageCap: c.Signal.LeverageCap,
		TrendWindow: c.Signal.TrendWindow,
		TrendBand:   c.Signal.TrendBand,
		VixCutoff:   c.Signal.VixCutoff,
		VixWidth:    c.Signal.VixWidth,
	}
}

// BacktestParams converts the config into engine parameters
func (c *Config) BacktestParams() backtest.Params {
	return backtest.Params{
		Signal:      c.SignalParams(),
		CostBps:     c.Costs.CostBps,
		VolMatchCap: c.Baseline.VolMatchCap,
	}
}
