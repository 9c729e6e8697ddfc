package backtest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/wonny/voltarget/internal/audit"
	"github.com/wonny/voltarget/internal/signal"
	"github.com/wonny/voltarget/internal/timeseries"
	"github.com/wonny/voltarget/pkg/logger"
)

// ErrInsufficientData is returned when no day has a fully defined signal
var ErrInsufficientData = errors.New("no fully defined signal in the aligned data")

// Params holds every fixed input of a run
type Params struct {
	Signal      signal.Params
	CostBps     float64 // transaction cost per unit of turnover, in basis points
	VolMatchCap float64 // upper bound of the vol-matched baseline weight
}

// Validate checks signal and cost parameters
func (p Params) Validate() error {
	if err := p.Signal.Validate(); err != nil {
		return err
	}
	if math.IsNaN(p.CostBps) || math.IsInf(p.CostBps, 0) || p.CostBps < 0 {
		return signal.ValidationError{Field: "cost_bps", Message: "must be a finite value >= 0"}
	}
	if math.IsNaN(p.VolMatchCap) || math.IsInf(p.VolMatchCap, 0) || p.VolMatchCap < 0 {
		return signal.ValidationError{Field: "vol_match_cap", Message: "must be a finite value >= 0"}
	}
	return nil
}

// Row is one simulated day with its signal, returns, equity and drawdown
type Row struct {
	signal.Point

	RiskFree float64
	WPrev    float64
	Turnover float64
	Cost     float64

	StratRet float64
	BHRet    float64
	VMRet    float64

	EqStrat float64
	EqBH    float64
	EqVM    float64

	DDStrat float64
	DDBH    float64
	DDVM    float64
}

// Result is the full output of a run
type Result struct {
	Params      Params
	StartDate   time.Time
	EndDate     time.Time
	Days        int
	WarmupDays  int // analysis days excluded before the first defined signal
	Fingerprint string
	Duration    time.Duration

	Rows []Row

	VolMatchWeight float64
	TotalTurnover  float64
	TotalCost      float64

	Strategy   audit.KPI
	BuyHold    audit.KPI
	VolMatched audit.KPI
}

// Latest returns the last simulated day
func (r *Result) Latest() (Row, bool) {
	if len(r.Rows) == 0 {
		return Row{}, false
	}
	return r.Rows[len(r.Rows)-1], true
}

// Engine runs the signal → simulation → baseline → KPI chain
// ⭐ SSOT: 백테스팅 실행은 여기서만
type Engine struct {
	params Params
	signal *signal.Engine
	logger *logger.Logger
}

// NewEngine validates params; configuration errors surface here, before any run
func NewEngine(params Params, log *logger.Logger) (*Engine, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("backtest params: %w", err)
	}

	sig, err := signal.NewEngine(params.Signal)
	if err != nil {
		return nil, fmt.Errorf("signal engine: %w", err)
	}

	if log == nil {
		log = logger.Nop()
	}

	return &Engine{
		params: params,
		signal: sig,
		logger: log.WithComponent("backtest"),
	}, nil
}

// Signal exposes the underlying signal engine
func (e *Engine) Signal() *signal.Engine {
	return e.signal
}

// Run simulates the overlay over an aligned frame.
// Days before the first fully defined signal are dropped; the first
// simulated day therefore starts from a zero position.
func (e *Engine) Run(ctx context.Context, frame timeseries.Frame) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()

	points := e.signal.Compute(frame)
	warmup := 0
	for warmup < len(points) && !points[warmup].Ready {
		warmup++
	}
	points = points[warmup:]
	if len(points) == 0 {
		return nil, fmt.Errorf("%d aligned rows, trend window %d: %w", frame.Len(), e.params.Signal.TrendWindow, ErrInsufficientData)
	}

	n := len(points)
	weights := make([]float64, n)
	returns := make([]float64, n)
	riskFree := make([]float64, n)
	for i, pt := range points {
		weights[i] = pt.Weight
		returns[i] = pt.Return
		riskFree[i] = DailyRiskFree(pt.RateLevel)
	}

	sim, err := Simulate(weights, returns, riskFree, e.params.CostBps)
	if err != nil {
		return nil, fmt.Errorf("simulate: %w", err)
	}

	base := BuildBaselines(sim.Net, returns, riskFree, e.params.VolMatchCap)

	eqBH := audit.EquityCurve(base.BuyHold)
	eqVM := audit.EquityCurve(base.VolMatched)
	ddStrat := audit.Drawdowns(sim.Equity)
	ddBH := audit.Drawdowns(eqBH)
	ddVM := audit.Drawdowns(eqVM)

	rows := make([]Row, n)
	for i, pt := range points {
		rows[i] = Row{
			Point:    pt,
			RiskFree: riskFree[i],
			WPrev:    sim.WPrev[i],
			Turnover: sim.Turnover[i],
			Cost:     sim.Cost[i],
			StratRet: sim.Net[i],
			BHRet:    base.BuyHold[i],
			VMRet:    base.VolMatched[i],
			EqStrat:  sim.Equity[i],
			EqBH:     eqBH[i],
			EqVM:     eqVM[i],
			DDStrat:  ddStrat[i],
			DDBH:     ddBH[i],
			DDVM:     ddVM[i],
		}
	}

	result := &Result{
		Params:         e.params,
		StartDate:      points[0].Date,
		EndDate:        points[n-1].Date,
		Days:           n,
		WarmupDays:     warmup,
		Fingerprint:    frame.Fingerprint(),
		Rows:           rows,
		VolMatchWeight: base.VolMatchWeight,
		TotalTurnover:  sim.TotalTurnover(),
		TotalCost:      sim.TotalCost(),
	}

	if result.Strategy, err = audit.Evaluate(sim.Net, riskFree); err != nil {
		return nil, fmt.Errorf("strategy kpi: %w", err)
	}
	if result.BuyHold, err = audit.Evaluate(base.BuyHold, riskFree); err != nil {
		return nil, fmt.Errorf("buy-and-hold kpi: %w", err)
	}
	if result.VolMatched, err = audit.Evaluate(base.VolMatched, riskFree); err != nil {
		return nil, fmt.Errorf("vol-matched kpi: %w", err)
	}

	result.Duration = time.Since(start)

	e.logger.WithFields(map[string]interface{}{
		"start_date":       result.StartDate.Format("2006-01-02"),
		"end_date":         result.EndDate.Format("2006-01-02"),
		"days":             result.Days,
		"warmup_days":      result.WarmupDays,
		"vol_match_weight": fmt.Sprintf("%.3f", result.VolMatchWeight),
		"strategy_cagr":    fmt.Sprintf("%.2f%%", result.Strategy.CAGR*100),
		"strategy_max_dd":  fmt.Sprintf("%.2f%%", result.Strategy.MaxDD*100),
	}).Info("Backtest completed")

	return result, nil
}
