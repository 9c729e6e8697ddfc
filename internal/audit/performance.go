package audit

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/wonny/voltarget/internal/timeseries"
)

// KPI is the performance record of one return series.
// Undefined values (zero volatility, no drawdown) are NaN.
type KPI struct {
	CAGR   float64
	AnnVol float64
	Sharpe float64
	MaxDD  float64
	Calmar float64
}

// MarshalJSON encodes NaN fields as null
func (k KPI) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		CAGR   *float64 `json:"cagr"`
		AnnVol *float64 `json:"ann_vol"`
		Sharpe *float64 `json:"sharpe"`
		MaxDD  *float64 `json:"max_dd"`
		Calmar *float64 `json:"calmar"`
	}{
		CAGR:   Nullable(k.CAGR),
		AnnVol: Nullable(k.AnnVol),
		Sharpe: Nullable(k.Sharpe),
		MaxDD:  Nullable(k.MaxDD),
		Calmar: Nullable(k.Calmar),
	})
}

// UnmarshalJSON restores null fields as NaN
func (k *KPI) UnmarshalJSON(data []byte) error {
	var raw struct {
		CAGR   *float64 `json:"cagr"`
		AnnVol *float64 `json:"ann_vol"`
		Sharpe *float64 `json:"sharpe"`
		MaxDD  *float64 `json:"max_dd"`
		Calmar *float64 `json:"calmar"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	k.CAGR = FromNullable(raw.CAGR)
	k.AnnVol = FromNullable(raw.AnnVol)
	k.Sharpe = FromNullable(raw.Sharpe)
	k.MaxDD = FromNullable(raw.MaxDD)
	k.Calmar = FromNullable(raw.Calmar)
	return nil
}

// Evaluate computes all KPIs of a daily return series.
// riskFree may be nil; otherwise it must be aligned with returns and the
// Sharpe numerator uses the excess return.
// ⭐ SSOT: 성과 지표 계산은 여기서만
func Evaluate(returns, riskFree []float64) (KPI, error) {
	if riskFree != nil && len(riskFree) != len(returns) {
		return KPI{}, fmt.Errorf("risk-free series has %d values, returns have %d", len(riskFree), len(returns))
	}

	nan := math.NaN()
	if len(returns) == 0 {
		return KPI{CAGR: nan, AnnVol: nan, Sharpe: nan, MaxDD: nan, Calmar: nan}, nil
	}

	kpi := KPI{
		CAGR:   CAGR(returns),
		Sharpe: nan,
		Calmar: nan,
	}

	std := SampleStd(returns)
	kpi.AnnVol = std * math.Sqrt(timeseries.TradingDays)

	if std > 0 {
		excess := returns
		if riskFree != nil {
			excess = make([]float64, len(returns))
			for i, r := range returns {
				excess[i] = r - riskFree[i]
			}
		}
		kpi.Sharpe = Mean(excess) / std * math.Sqrt(timeseries.TradingDays)
	}

	kpi.MaxDD = MaxDrawdown(Drawdowns(EquityCurve(returns)))
	if kpi.MaxDD < 0 {
		kpi.Calmar = kpi.CAGR / math.Abs(kpi.MaxDD)
	}

	return kpi, nil
}

// CAGR is (Π(1+r))^(252/n) − 1
func CAGR(returns []float64) float64 {
	if len(returns) == 0 {
		return math.NaN()
	}
	growth := 1.0
	for _, r := range returns {
		growth *= 1 + r
	}
	return math.Pow(growth, timeseries.TradingDays/float64(len(returns))) - 1
}

// Mean is the arithmetic mean, NaN when empty
func Mean(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, v := range x {
		sum += v
	}
	return sum / float64(len(x))
}

// SampleStd is the n-1 standard deviation, NaN with fewer than two values
func SampleStd(x []float64) float64 {
	if len(x) < 2 {
		return math.NaN()
	}
	mean := Mean(x)
	var ss float64
	for _, v := range x {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(x)-1))
}

// AnnualizedVol is SampleStd scaled by sqrt(252)
func AnnualizedVol(returns []float64) float64 {
	return SampleStd(returns) * math.Sqrt(timeseries.TradingDays)
}

// EquityCurve compounds returns from a starting value of 1
func EquityCurve(returns []float64) []float64 {
	eq := make([]float64, len(returns))
	v := 1.0
	for i, r := range returns {
		v *= 1 + r
		eq[i] = v
	}
	return eq
}

// Drawdowns is eq/running_max(eq) − 1, the running max starting at eq[0]
func Drawdowns(eq []float64) []float64 {
	dd := make([]float64, len(eq))
	peak := math.Inf(-1)
	for i, v := range eq {
		if v > peak {
			peak = v
		}
		dd[i] = v/peak - 1
	}
	return dd
}

// MaxDrawdown returns the most negative drawdown (0 when never under water)
func MaxDrawdown(dd []float64) float64 {
	if len(dd) == 0 {
		return math.NaN()
	}
	worst := 0.0
	for _, v := range dd {
		if v < worst {
			worst = v
		}
	}
	return worst
}

// Nullable maps NaN and ±Inf to nil for JSON output
func Nullable(x float64) *float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return nil
	}
	return &x
}

// FromNullable maps nil back to NaN
func FromNullable(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}
