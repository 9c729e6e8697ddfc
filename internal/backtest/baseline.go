package backtest

import (
	"math"

	"github.com/wonny/voltarget/internal/audit"
	"github.com/wonny/voltarget/internal/signal"
)

// DefaultVolMatchCap bounds the vol-matched buy-and-hold weight
const DefaultVolMatchCap = 3.0

// Baselines are the comparison return series of a run
type Baselines struct {
	BuyHold        []float64
	VolMatched     []float64
	VolMatchWeight float64
}

// BuildBaselines returns buy-and-hold (r unchanged) and a buy-and-hold blend
// with the risk-free rate whose weight matches the strategy's realized
// volatility: w = clip(vol(strategy)/vol(buy-and-hold), 0, cap), 1 when the
// buy-and-hold volatility is zero or undefined.
func BuildBaselines(strategy, returns, riskFree []float64, volMatchCap float64) Baselines {
	bh := make([]float64, len(returns))
	copy(bh, returns)

	w := VolMatchWeight(strategy, returns, volMatchCap)

	vm := make([]float64, len(returns))
	for i, r := range returns {
		vm[i] = w*r + (1-w)*riskFree[i]
	}

	return Baselines{BuyHold: bh, VolMatched: vm, VolMatchWeight: w}
}

// VolMatchWeight is the scale factor of the vol-matched baseline
func VolMatchWeight(strategy, buyHold []float64, volMatchCap float64) float64 {
	bhVol := audit.AnnualizedVol(buyHold)
	if !(bhVol > 0) {
		return signal.Clip(1, 0, volMatchCap)
	}

	ratio := audit.AnnualizedVol(strategy) / bhVol
	if math.IsNaN(ratio) {
		return signal.Clip(1, 0, volMatchCap)
	}
	return signal.Clip(ratio, 0, volMatchCap)
}
