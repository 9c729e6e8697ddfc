package audit

import (
	"encoding/json"
	"time"
)

// Series labels used as KPI keys
const (
	SeriesStrategy   = "strategy"
	SeriesBuyHold    = "buy_hold"
	SeriesVolMatched = "vol_matched"
)

// DailySnapshot is one simulated day of the overlay.
// Every field is finite for a simulated day.
type DailySnapshot struct {
	Date     time.Time `json:"date"`
	Price    float64   `json:"price"`
	VolIndex float64   `json:"vol_index"`
	Rate     float64   `json:"rate"`
	SMA      float64   `json:"sma"`
	TrendOK  float64   `json:"trend_ok"`
	VolHat   float64   `json:"vol_hat"`
	RawW     float64   `json:"w_raw"`
	Gate     float64   `json:"gate"`
	Weight   float64   `json:"w"`
	WPrev    float64   `json:"w_prev"`
	Return   float64   `json:"ret"`
	RiskFree float64   `json:"rf"`
	Turnover float64   `json:"turnover"`
	Cost     float64   `json:"cost"`
	StratRet float64   `json:"strat_ret"`
	BHRet    float64   `json:"bh_ret"`
	VMRet    float64   `json:"vm_ret"`
	EqStrat  float64   `json:"eq_strat"`
	EqBH     float64   `json:"eq_bh"`
	EqVM     float64   `json:"eq_vm"`
	DDStrat  float64   `json:"dd_strat"`
	DDBH     float64   `json:"dd_bh"`
	DDVM     float64   `json:"dd_vm"`
}

// RunRecord is the persisted summary of one backtest run
// (config_hash, data_fingerprint) 조합이 같으면 결과도 같음
type RunRecord struct {
	ID              int64           `json:"id"`
	StrategyID      string          `json:"strategy_id"`
	ConfigHash      string          `json:"config_hash"`
	DataFingerprint string          `json:"data_fingerprint"`
	Params          json.RawMessage `json:"params"`
	StartDate       time.Time       `json:"start_date"`
	EndDate         time.Time       `json:"end_date"`
	Days            int             `json:"days"`
	WarmupDays      int             `json:"warmup_days"`
	VolMatchWeight  float64         `json:"vol_match_weight"`
	TotalTurnover   float64         `json:"total_turnover"`
	TotalCost       float64         `json:"total_cost"`
	KPIs            map[string]KPI  `json:"kpis"`
	CreatedAt       time.Time       `json:"created_at"`
}

// EquityPoint is one point of the three equity curves
type EquityPoint struct {
	Date       time.Time `json:"date"`
	Strategy   float64   `json:"strategy"`
	BuyHold    float64   `json:"buy_hold"`
	VolMatched float64   `json:"vol_matched"`
}

// EquityCurves extracts the equity curves of a run
func EquityCurves(days []DailySnapshot) []EquityPoint {
	out := make([]EquityPoint, len(days))
	for i, d := range days {
		out[i] = EquityPoint{Date: d.Date, Strategy: d.EqStrat, BuyHold: d.EqBH, VolMatched: d.EqVM}
	}
	return out
}

// BenchmarkComparison compares the strategy with its baselines.
// Undefined values are null.
type BenchmarkComparison struct {
	ExcessVsBH  *float64 `json:"excess_cagr_vs_buy_hold"`
	ExcessVsVM  *float64 `json:"excess_cagr_vs_vol_matched"`
	SharpeDelta *float64 `json:"sharpe_delta_vs_vol_matched"`
	MaxDDDelta  *float64 `json:"max_dd_delta_vs_buy_hold"`
}

// Compare builds the benchmark comparison from the three KPI sets
func Compare(kpis map[string]KPI) BenchmarkComparison {
	s, bh, vm := kpis[SeriesStrategy], kpis[SeriesBuyHold], kpis[SeriesVolMatched]
	return BenchmarkComparison{
		ExcessVsBH:  Nullable(s.CAGR - bh.CAGR),
		ExcessVsVM:  Nullable(s.CAGR - vm.CAGR),
		SharpeDelta: Nullable(s.Sharpe - vm.Sharpe),
		MaxDDDelta:  Nullable(s.MaxDD - bh.MaxDD),
	}
}
