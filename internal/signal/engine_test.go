package signal

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/voltarget/internal/timeseries"
)

func defaultParams() Params {
	return Params{
		LookbackVol: 20,
		TargetVol:   0.40,
		LeverageCap: 1.3,
		TrendWindow: 20,
		TrendBand:   -0.02,
		VixCutoff:   35,
		VixWidth:    10,
	}
}

// makeFrame builds a deterministic zig-zag uptrend with a vix path
func makeFrame(n int, vix func(i int) float64) timeseries.Frame {
	rows := make([]timeseries.Row, n)
	price := 100.0
	start := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		switch i % 4 {
		case 0:
			price *= 1.021
		case 1:
			price *= 0.991
		case 2:
			price *= 1.013
		case 3:
			price *= 0.996
		}
		rows[i] = timeseries.Row{
			Date:     start.AddDate(0, 0, i),
			Price:    price,
			VolIndex: vix(i),
			Rate:     4.0,
		}
	}
	return timeseries.Frame{Rows: rows}
}

func constVix(v float64) func(int) float64 {
	return func(int) float64 { return v }
}

func TestNewEngine_RejectsInvalidParams(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *Params)
		field  string
	}{
		{"zero vix width", func(p *Params) { p.VixWidth = 0 }, "vix_width"},
		{"negative vix width", func(p *Params) { p.VixWidth = -10 }, "vix_width"},
		{"zero lookback", func(p *Params) { p.LookbackVol = 0 }, "lookback_vol"},
		{"negative lookback", func(p *Params) { p.LookbackVol = -5 }, "lookback_vol"},
		{"negative leverage cap", func(p *Params) { p.LeverageCap = -0.1 }, "leverage_cap"},
		{"zero trend window", func(p *Params) { p.TrendWindow = 0 }, "trend_window"},
		{"nan target vol", func(p *Params) { p.TargetVol = math.NaN() }, "target_vol"},
		{"band below -100%", func(p *Params) { p.TrendBand = -1 }, "trend_band"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := defaultParams()
			tt.mutate(&p)

			e, err := NewEngine(p)
			require.Error(t, err)
			assert.Nil(t, e)
			assert.True(t, errors.Is(err, ErrInvalidParams))

			var ve ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestNewEngine_AcceptsZeroLeverageCap(t *testing.T) {
	p := defaultParams()
	p.LeverageCap = 0

	e, err := NewEngine(p)
	require.NoError(t, err)

	for _, pt := range e.Compute(makeFrame(60, constVix(15))) {
		assert.Equal(t, 0.0, pt.Weight)
	}
}

func TestCompute_WarmupAndLength(t *testing.T) {
	e, err := NewEngine(defaultParams())
	require.NoError(t, err)

	frame := makeFrame(50, constVix(15))
	points := e.Compute(frame)

	require.Len(t, points, 49)
	for i, pt := range points {
		assert.Equal(t, frame.Rows[i+1].Date, pt.Date)
		if i < 19 {
			assert.False(t, pt.Ready, "index %d", i)
			assert.True(t, math.IsNaN(pt.SMA))
			assert.Equal(t, 0.0, pt.Weight)
		} else {
			assert.True(t, pt.Ready, "index %d", i)
			assert.False(t, math.IsNaN(pt.SMA))
		}
	}

	assert.Nil(t, e.Compute(makeFrame(1, constVix(15))))
}

func TestCompute_EWMARecurrence(t *testing.T) {
	p := defaultParams()
	e, err := NewEngine(p)
	require.NoError(t, err)

	frame := makeFrame(30, constVix(15))
	points := e.Compute(frame)

	alpha := 2.0 / 21.0
	want := points[0].Return * points[0].Return
	assert.Equal(t, want, points[0].EWMAVar, "seeded with the first squared return")

	for i := 1; i < len(points); i++ {
		r := frame.Rows[i+1].Price/frame.Rows[i].Price - 1
		want = alpha*r*r + (1-alpha)*want
		assert.InDelta(t, want, points[i].EWMAVar, 1e-15)
		assert.InDelta(t, math.Sqrt(252*want), points[i].VolAnn, 1e-12)
	}
}

func TestCompute_SMAAndTrend(t *testing.T) {
	p := defaultParams()
	p.TrendWindow = 3
	e, err := NewEngine(p)
	require.NoError(t, err)

	rows := []timeseries.Row{
		{Price: 10}, {Price: 11}, {Price: 12}, {Price: 13}, {Price: 9},
	}
	for i := range rows {
		rows[i].Date = time.Date(2024, 1, i+1, 0, 0, 0, 0, time.UTC)
		rows[i].VolIndex = 10
	}
	points := e.Compute(timeseries.Frame{Rows: rows})

	require.Len(t, points, 4)
	assert.False(t, points[1].Ready)
	// window over analysis days 11, 12, 13
	assert.InDelta(t, 12.0, points[2].SMA, 1e-12)
	assert.Equal(t, 1.0, points[2].TrendOK)
	// 9 < 0.98 * mean(12, 13, 9)
	assert.InDelta(t, 34.0/3.0, points[3].SMA, 1e-12)
	assert.Equal(t, 0.0, points[3].TrendOK)
	assert.Equal(t, 0.0, points[3].Weight)
}

func TestWeightBounds(t *testing.T) {
	for _, leverageCap := range []float64{0.5, 1.0, 1.3, 3.0} {
		p := defaultParams()
		p.LeverageCap = leverageCap
		p.TargetVol = 5 // large target pushes against the cap
		e, err := NewEngine(p)
		require.NoError(t, err)

		vix := func(i int) float64 { return 20 + float64(i%30) }
		for _, pt := range e.Compute(makeFrame(200, vix)) {
			assert.GreaterOrEqual(t, pt.Weight, 0.0)
			assert.LessOrEqual(t, pt.Weight, leverageCap)
			if pt.Ready && (pt.TrendOK == 0 || pt.Gate == 0) {
				assert.Equal(t, 0.0, pt.Weight)
			}
		}
	}
}

func TestGate(t *testing.T) {
	assert.Equal(t, 1.0, Gate(10, 35, 10))
	assert.Equal(t, 1.0, Gate(35, 35, 10))
	assert.InDelta(t, 0.5, Gate(40, 35, 10), 1e-12)
	assert.Equal(t, 0.0, Gate(45, 35, 10))
	assert.Equal(t, 0.0, Gate(80, 35, 10))
	// gate fully open at cutoff - width
	assert.Equal(t, 1.0, Gate(25, 35, 10))
}

func TestGate_Monotone(t *testing.T) {
	prev := Gate(0, 35, 10)
	for v := 0.0; v <= 80; v += 0.25 {
		g := Gate(v, 35, 10)
		assert.LessOrEqual(t, g, prev, "v=%v", v)
		assert.GreaterOrEqual(t, g, 0.0)
		assert.LessOrEqual(t, g, 1.0)
		prev = g
	}
}

func TestCompute_GateNonIncreasingForAcceptedWidths(t *testing.T) {
	for _, width := range []float64{-10, -0.5, 0.5, 10} {
		p := defaultParams()
		p.VixWidth = width

		e, err := NewEngine(p)
		if width <= 0 {
			require.Error(t, err, "width=%v", width)
			continue
		}
		require.NoError(t, err, "width=%v", width)

		low := e.Compute(makeFrame(30, constVix(30)))
		high := e.Compute(makeFrame(30, constVix(80)))
		for i := range low {
			assert.LessOrEqual(t, high[i].Gate, low[i].Gate, "width=%v", width)
		}
	}
}

func TestCompute_GateFullyOpen(t *testing.T) {
	p := defaultParams()
	e, err := NewEngine(p)
	require.NoError(t, err)

	for _, pt := range e.Compute(makeFrame(60, constVix(p.VixCutoff-p.VixWidth))) {
		assert.Equal(t, 1.0, pt.Gate)
	}
}

func TestCompute_ConstantPriceGivesZeroWeight(t *testing.T) {
	e, err := NewEngine(defaultParams())
	require.NoError(t, err)

	frame := makeFrame(40, constVix(15))
	for i := range frame.Rows {
		frame.Rows[i].Price = 50
	}

	for _, pt := range e.Compute(frame) {
		assert.Equal(t, 0.0, pt.VolAnn)
		assert.Equal(t, 0.0, pt.RawWeight)
		assert.Equal(t, 0.0, pt.Weight)
		assert.False(t, math.IsNaN(pt.Weight))
	}
}

func TestCompute_NoLookahead(t *testing.T) {
	e, err := NewEngine(defaultParams())
	require.NoError(t, err)

	vix := func(i int) float64 { return 25 + 3*math.Sin(float64(i)) }
	full := e.Compute(makeFrame(120, vix))

	for _, cut := range []int{22, 45, 80} {
		prefix := e.Compute(makeFrame(cut, vix))
		require.Len(t, prefix, cut-1)
		for i := range prefix {
			assert.Equal(t, full[i].Weight, prefix[i].Weight, "cut=%d i=%d", cut, i)
			assert.Equal(t, full[i].EWMAVar, prefix[i].EWMAVar)
		}
	}
}

func TestTargetVolScaling(t *testing.T) {
	p := defaultParams()
	p.TargetVol = 0.01
	p.LeverageCap = 100
	e1, err := NewEngine(p)
	require.NoError(t, err)

	p.TargetVol = 0.02
	e2, err := NewEngine(p)
	require.NoError(t, err)

	frame := makeFrame(60, constVix(15))
	a, b := e1.Compute(frame), e2.Compute(frame)
	for i := range a {
		assert.InDelta(t, 2*a[i].RawWeight, b[i].RawWeight, 1e-12)
	}
}

func TestRawWeight(t *testing.T) {
	assert.Equal(t, 0.0, RawWeight(0.4, 0, 1.3))
	assert.Equal(t, 0.0, RawWeight(0.4, math.NaN(), 1.3))
	assert.InDelta(t, 0.8, RawWeight(0.4, 0.5, 1.3), 1e-12)
	assert.Equal(t, 1.3, RawWeight(0.4, 0.1, 1.3))
	assert.Equal(t, 0.0, RawWeight(0, 0.2, 1.3))
}

func TestLatest(t *testing.T) {
	e, err := NewEngine(defaultParams())
	require.NoError(t, err)

	frame := makeFrame(40, constVix(15))
	pt, ok := e.Latest(frame)
	require.True(t, ok)
	assert.Equal(t, frame.Rows[39].Date, pt.Date)

	_, ok = e.Latest(makeFrame(10, constVix(15)))
	assert.False(t, ok, "no ready point inside the warm-up")
}
