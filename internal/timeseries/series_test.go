package timeseries

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func mustSeries(t *testing.T, name string, pts ...Point) Series {
	t.Helper()
	s, err := New(name, pts)
	require.NoError(t, err)
	return s
}

func TestNew_RejectsUnordered(t *testing.T) {
	_, err := New("price", []Point{{day(2), 1}, {day(2), 2}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnordered))

	_, err = New("price", []Point{{day(3), 1}, {day(2), 2}})
	assert.True(t, errors.Is(err, ErrUnordered))
}

func TestNew_CopiesInput(t *testing.T) {
	pts := []Point{{day(1), 1}, {day(2), 2}}
	s := mustSeries(t, "price", pts...)
	pts[0].Value = 99

	assert.Equal(t, 1.0, s.Points()[0].Value)

	out := s.Points()
	out[1].Value = 42
	assert.Equal(t, 2.0, s.Points()[1].Value)
}

func TestFromUnsorted(t *testing.T) {
	s := FromUnsorted("vix", []Point{
		{day(3), 30},
		{day(1), 10},
		{day(2), math.NaN()},
		{day(1), 11},
		{day(4), math.Inf(1)},
	})

	require.Equal(t, 2, s.Len())
	assert.Equal(t, day(1), s.Points()[0].Date)
	assert.Equal(t, 11.0, s.Points()[0].Value, "duplicate date keeps last observation")
	assert.Equal(t, day(3), s.Points()[1].Date)
	assert.Equal(t, []float64{11, 30}, values(s))
}

func TestBetween(t *testing.T) {
	s := mustSeries(t, "p", Point{day(1), 1}, Point{day(2), 2}, Point{day(3), 3}, Point{day(4), 4})

	assert.Equal(t, []float64{2, 3}, values(s.Between(day(2), day(3))))
	assert.Equal(t, []float64{3, 4}, values(s.Between(day(3), time.Time{})))
	assert.Equal(t, 4, s.Between(time.Time{}, time.Time{}).Len())
	assert.Equal(t, day(1), s.First())
	assert.Equal(t, day(4), s.Last())
	assert.True(t, Series{}.First().IsZero())
}

func TestAlign_ForwardFillThenDrop(t *testing.T) {
	price := mustSeries(t, "price",
		Point{day(1), 100},
		Point{day(2), 101},
		Point{day(3), 102},
		Point{day(5), 103},
	)
	// vol index starts on day 2: day 1 must be dropped, not back-filled
	vix := mustSeries(t, "vix", Point{day(2), 20}, Point{day(4), 25})
	rate := mustSeries(t, "rate", Point{day(1), 4.5}, Point{day(3), 4.6})

	f := Align(price, vix, rate)

	require.Equal(t, 3, f.Len())
	assert.Equal(t, Row{Date: day(2), Price: 101, VolIndex: 20, Rate: 4.5}, f.Rows[0])
	assert.Equal(t, Row{Date: day(3), Price: 102, VolIndex: 20, Rate: 4.6}, f.Rows[1])
	// day 4 exists only in vix; its value is carried to the day 5 price
	assert.Equal(t, Row{Date: day(5), Price: 103, VolIndex: 25, Rate: 4.6}, f.Rows[2])
}

func TestAlign_IgnoresNonPriceDates(t *testing.T) {
	price := mustSeries(t, "price", Point{day(2), 100})
	vix := mustSeries(t, "vix", Point{day(1), 20}, Point{day(3), 99})
	rate := mustSeries(t, "rate", Point{day(1), 1})

	f := Align(price, vix, rate)

	require.Equal(t, 1, f.Len())
	assert.Equal(t, 20.0, f.Rows[0].VolIndex, "future vix must not leak into the row")
}

func TestFingerprint(t *testing.T) {
	a := Frame{Rows: []Row{{Date: day(1), Price: 1, VolIndex: 2, Rate: 3}}}
	b := Frame{Rows: []Row{{Date: day(1), Price: 1, VolIndex: 2, Rate: 3}}}
	c := Frame{Rows: []Row{{Date: day(1), Price: 1.0001, VolIndex: 2, Rate: 3}}}

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
	assert.Len(t, a.Fingerprint(), 16)
}

func values(s Series) []float64 {
	pts := s.Points()
	out := make([]float64, len(pts))
	for i, p := range pts {
		out[i] = p.Value
	}
	return out
}
