package signal

import (
	"math"
	"time"

	"github.com/wonny/voltarget/internal/timeseries"
)

// Point is the signal state of one analysis day.
// SMA and TrendOK are NaN while the trend window is incomplete; Ready is
// false for those days and they are excluded from simulation.
type Point struct {
	Date      time.Time
	Price     float64
	VolIndex  float64
	RateLevel float64
	Return    float64
	SMA       float64
	TrendOK   float64
	EWMAVar   float64
	VolAnn    float64
	RawWeight float64
	Gate      float64
	Weight    float64
	Ready     bool
}

// Engine computes the daily target exposure
// ⭐ SSOT: 비중 계산은 여기서만
type Engine struct {
	params Params
}

// NewEngine validates params; a non-positive vix_width or lookback is rejected here
func NewEngine(params Params) (*Engine, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Engine{params: params}, nil
}

// Compute returns one Point per analysis day. The first aligned row has no
// return and is not an analysis day, so len(result) == frame.Len()-1.
// Every field of day t is computed from rows at or before t.
func (e *Engine) Compute(frame timeseries.Frame) []Point {
	if frame.Len() < 2 {
		return nil
	}

	p := e.params
	alpha := p.Alpha()
	rows := frame.Rows
	points := make([]Point, 0, len(rows)-1)

	var ewmaVar float64
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		ret := row.Price/rows[i-1].Price - 1

		r2 := ret * ret
		if i == 1 {
			ewmaVar = r2
		} else {
			ewmaVar = alpha*r2 + (1-alpha)*ewmaVar
		}
		volAnn := math.Sqrt(timeseries.TradingDays * ewmaVar)

		pt := Point{
			Date:      row.Date,
			Price:     row.Price,
			VolIndex:  row.VolIndex,
			RateLevel: row.Rate,
			Return:    ret,
			SMA:       math.NaN(),
			TrendOK:   math.NaN(),
			EWMAVar:   ewmaVar,
			VolAnn:    volAnn,
			RawWeight: RawWeight(p.TargetVol, volAnn, p.LeverageCap),
			Gate:      Gate(row.VolIndex, p.VixCutoff, p.VixWidth),
		}

		// analysis index of this day is len(points)
		if n := len(points) + 1; n >= p.TrendWindow {
			pt.SMA = trailingMean(rows[i+1-p.TrendWindow : i+1])
			pt.TrendOK = TrendOK(row.Price, pt.SMA, p.TrendBand)
			pt.Weight = Clip(pt.RawWeight*pt.TrendOK*pt.Gate, 0, p.LeverageCap)
			pt.Ready = true
		}

		points = append(points, pt)
	}

	return points
}

// Latest returns the last ready point
func (e *Engine) Latest(frame timeseries.Frame) (Point, bool) {
	points := e.Compute(frame)
	for i := len(points) - 1; i >= 0; i-- {
		if points[i].Ready {
			return points[i], true
		}
	}
	return Point{}, false
}

// RawWeight is clip(target/vol, 0, cap); an undefined ratio (zero vol) maps to 0
func RawWeight(targetVol, volAnn, leverageCap float64) float64 {
	if volAnn == 0 || math.IsNaN(volAnn) {
		return 0
	}
	ratio := targetVol / volAnn
	if math.IsNaN(ratio) {
		return 0
	}
	return Clip(ratio, 0, leverageCap)
}

// Gate linearly de-risks from 1 at cutoff to 0 at cutoff+width
func Gate(volIndex, cutoff, width float64) float64 {
	return Clip(1-(volIndex-cutoff)/width, 0, 1)
}

// TrendOK is 1 when price is above the banded SMA, 0 otherwise
func TrendOK(price, sma, band float64) float64 {
	if price > (1+band)*sma {
		return 1
	}
	return 0
}

// Clip bounds x to [lo, hi]
func Clip(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func trailingMean(rows []timeseries.Row) float64 {
	var sum float64
	for _, r := range rows {
		sum += r.Price
	}
	return sum / float64(len(rows))
}
