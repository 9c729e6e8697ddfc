package audit

import (
	"encoding/json"
	"math"
	"sort"
)

// DefaultTailConfidence is the confidence level of the reported tail risk
const DefaultTailConfidence = 0.95

// TailRisk is historical one-day VaR and expected shortfall.
// Losses are positive fractions (0.03 = 3% daily loss).
type TailRisk struct {
	Confidence float64 `json:"confidence"`
	VaR        float64 `json:"var"`
	CVaR       float64 `json:"cvar"`
}

// HistoricalTailRisk computes VaR as the (1-confidence) quantile of daily
// returns and CVaR as the mean of returns at or below it. Gains count as 0.
func HistoricalTailRisk(returns []float64, confidence float64) TailRisk {
	out := TailRisk{Confidence: confidence}
	if len(returns) == 0 {
		out.VaR, out.CVaR = math.NaN(), math.NaN()
		return out
	}

	// 오름차순: 손실이 앞에
	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	// 반올림으로 0.05*20 같은 경계의 부동소수 오차 제거
	tail := math.Round((1-confidence)*float64(len(sorted))*1e9) / 1e9
	idx := int(math.Floor(tail))
	idx = max(0, min(idx, len(sorted)-1))

	var sum float64
	for _, r := range sorted[:idx+1] {
		sum += r
	}

	out.VaR = math.Max(0, -sorted[idx])
	out.CVaR = math.Max(0, -sum/float64(idx+1))
	return out
}

// MarshalJSON encodes undefined values as null
func (t TailRisk) MarshalJSON() ([]byte, error) {
	type tail struct {
		Confidence float64  `json:"confidence"`
		VaR        *float64 `json:"var"`
		CVaR       *float64 `json:"cvar"`
	}
	return json.Marshal(tail{Confidence: t.Confidence, VaR: Nullable(t.VaR), CVaR: Nullable(t.CVaR)})
}

// TailRisks computes tail risk of every comparison series of a run
func TailRisks(days []DailySnapshot, confidence float64) map[string]TailRisk {
	strat := make([]float64, len(days))
	bh := make([]float64, len(days))
	vm := make([]float64, len(days))
	for i, d := range days {
		strat[i], bh[i], vm[i] = d.StratRet, d.BHRet, d.VMRet
	}

	return map[string]TailRisk{
		SeriesStrategy:   HistoricalTailRisk(strat, confidence),
		SeriesBuyHold:    HistoricalTailRisk(bh, confidence),
		SeriesVolMatched: HistoricalTailRisk(vm, confidence),
	}
}
