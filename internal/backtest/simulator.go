package backtest

import (
	"fmt"
	"math"

	"github.com/wonny/voltarget/internal/timeseries"
)

// Simulation holds the cost-adjusted path of a weight series.
// All slices have the length of the input weights.
type Simulation struct {
	WPrev    []float64 // position held during the day (yesterday's decision)
	Gross    []float64
	Turnover []float64
	Cost     []float64
	Net      []float64
	Equity   []float64
}

// TotalTurnover sums daily turnover
func (s Simulation) TotalTurnover() float64 {
	return sum(s.Turnover)
}

// TotalCost sums daily transaction costs
func (s Simulation) TotalCost() float64 {
	return sum(s.Cost)
}

// Simulate runs the cost-adjusted overlay.
// Day t earns w(t-1)·r(t) + (1−w(t-1))·rf(t), with w before the first day
// taken as 0, and pays cost_bps/10000 on |w(t) − w(t-1)|.
// ⭐ SSOT: 비용 반영 수익률 계산은 여기서만
func Simulate(weights, returns, riskFree []float64, costBps float64) (Simulation, error) {
	n := len(weights)
	if len(returns) != n || len(riskFree) != n {
		return Simulation{}, fmt.Errorf("length mismatch: weights=%d returns=%d risk_free=%d", n, len(returns), len(riskFree))
	}

	sim := Simulation{
		WPrev:    make([]float64, n),
		Gross:    make([]float64, n),
		Turnover: make([]float64, n),
		Cost:     make([]float64, n),
		Net:      make([]float64, n),
		Equity:   make([]float64, n),
	}

	costRate := costBps / 10000.0
	prev, eq := 0.0, 1.0

	for t := 0; t < n; t++ {
		w, r, rf := weights[t], returns[t], riskFree[t]

		gross := prev*r + (1-prev)*rf
		turnover := math.Abs(w - prev)
		cost := costRate * turnover
		net := gross - cost
		eq *= 1 + net

		sim.WPrev[t] = prev
		sim.Gross[t] = gross
		sim.Turnover[t] = turnover
		sim.Cost[t] = cost
		sim.Net[t] = net
		sim.Equity[t] = eq

		prev = w
	}

	return sim, nil
}

// DailyRiskFree converts a short-rate level in percent to a daily rate
func DailyRiskFree(ratePct float64) float64 {
	return ratePct / 100.0 / timeseries.TradingDays
}

func sum(x []float64) float64 {
	var s float64
	for _, v := range x {
		s += v
	}
	return s
}
