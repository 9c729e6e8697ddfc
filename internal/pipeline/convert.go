package pipeline

import (
	"encoding/json"
	"time"

	"github.com/wonny/voltarget/internal/audit"
	"github.com/wonny/voltarget/internal/backtest"
	"github.com/wonny/voltarget/internal/signal"
	"github.com/wonny/voltarget/internal/strategyconfig"
)

// LatestSignal is the last decision of a run with its components
type LatestSignal struct {
	Date       time.Time `json:"date"`
	StrategyID string    `json:"strategy_id"`
	ConfigHash string    `json:"config_hash"`
	Weight     float64   `json:"w"`
	RawWeight  float64   `json:"w_raw"`
	TrendOK    float64   `json:"trend_ok"`
	Gate       float64   `json:"gate"`
	VolAnn     float64   `json:"vol_hat"`
	SMA        float64   `json:"sma"`
	Price      float64   `json:"price"`
	VolIndex   float64   `json:"vol_index"`
	RateLevel  float64   `json:"rate"`
}

func newLatestSignal(pt signal.Point, cfg *strategyconfig.Config, configHash string) *LatestSignal {
	return &LatestSignal{
		Date:       pt.Date,
		StrategyID: cfg.Meta.StrategyID,
		ConfigHash: configHash,
		Weight:     pt.Weight,
		RawWeight:  pt.RawWeight,
		TrendOK:    pt.TrendOK,
		Gate:       pt.Gate,
		VolAnn:     pt.VolAnn,
		SMA:        pt.SMA,
		Price:      pt.Price,
		VolIndex:   pt.VolIndex,
		RateLevel:  pt.RateLevel,
	}
}

func latestFromSnapshot(d audit.DailySnapshot, cfg *strategyconfig.Config, configHash string) *LatestSignal {
	return &LatestSignal{
		Date:       d.Date,
		StrategyID: cfg.Meta.StrategyID,
		ConfigHash: configHash,
		Weight:     d.Weight,
		RawWeight:  d.RawW,
		TrendOK:    d.TrendOK,
		Gate:       d.Gate,
		VolAnn:     d.VolHat,
		SMA:        d.SMA,
		Price:      d.Price,
		VolIndex:   d.VolIndex,
		RateLevel:  d.Rate,
	}
}

// Snapshots converts simulated rows into their stored form
func Snapshots(res *backtest.Result) []audit.DailySnapshot {
	days := make([]audit.DailySnapshot, len(res.Rows))
	for i, r := range res.Rows {
		days[i] = audit.DailySnapshot{
			Date:     r.Date,
			Price:    r.Price,
			VolIndex: r.VolIndex,
			Rate:     r.RateLevel,
			SMA:      r.SMA,
			TrendOK:  r.TrendOK,
			VolHat:   r.VolAnn,
			RawW:     r.RawWeight,
			Gate:     r.Gate,
			Weight:   r.Weight,
			WPrev:    r.WPrev,
			Return:   r.Return,
			RiskFree: r.RiskFree,
			Turnover: r.Turnover,
			Cost:     r.Cost,
			StratRet: r.StratRet,
			BHRet:    r.BHRet,
			VMRet:    r.VMRet,
			EqStrat:  r.EqStrat,
			EqBH:     r.EqBH,
			EqVM:     r.EqVM,
			DDStrat:  r.DDStrat,
			DDBH:     r.DDBH,
			DDVM:     r.DDVM,
		}
	}
	return days
}

// Record converts a result into its run summary
func Record(res *backtest.Result, cfg *strategyconfig.Config, configHash string) (audit.RunRecord, error) {
	params, err := json.Marshal(struct {
		Signal   strategyconfig.Signal   `json:"signal"`
		Costs    strategyconfig.Costs    `json:"costs"`
		Baseline strategyconfig.Baseline `json:"baseline"`
	}{cfg.Signal, cfg.Costs, cfg.Baseline})
	if err != nil {
		return audit.RunRecord{}, err
	}

	return audit.RunRecord{
		StrategyID:      cfg.Meta.StrategyID,
		ConfigHash:      configHash,
		DataFingerprint: res.Fingerprint,
		Params:          params,
		StartDate:       res.StartDate,
		EndDate:         res.EndDate,
		Days:            res.Days,
		WarmupDays:      res.WarmupDays,
		VolMatchWeight:  res.VolMatchWeight,
		TotalTurnover:   res.TotalTurnover,
		TotalCost:       res.TotalCost,
		KPIs: map[string]audit.KPI{
			audit.SeriesStrategy:   res.Strategy,
			audit.SeriesBuyHold:    res.BuyHold,
			audit.SeriesVolMatched: res.VolMatched,
		},
		CreatedAt: time.Now(),
	}, nil
}
