package timeseries

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

// TradingDays is the annualization convention for daily series
const TradingDays = 252.0

// ErrUnordered is returned when series dates are not strictly increasing
var ErrUnordered = errors.New("series dates must be strictly increasing")

// Point is a single dated observation
type Point struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Series is an immutable, strictly date-ordered sequence of observations
type Series struct {
	name   string
	points []Point
}

// New builds a Series from points that are already strictly increasing in date.
// The input slice is copied.
func New(name string, points []Point) (Series, error) {
	for i := 1; i < len(points); i++ {
		if !points[i].Date.After(points[i-1].Date) {
			return Series{}, fmt.Errorf("%s at %s: %w", name, points[i].Date.Format("2006-01-02"), ErrUnordered)
		}
	}

	cp := make([]Point, len(points))
	copy(cp, points)
	return Series{name: name, points: cp}, nil
}

// FromUnsorted sorts points by date and keeps the last observation of
// duplicated dates. Non-finite values are dropped.
func FromUnsorted(name string, points []Point) Series {
	cp := make([]Point, 0, len(points))
	for _, p := range points {
		if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) {
			continue
		}
		cp = append(cp, p)
	}

	sort.SliceStable(cp, func(i, j int) bool {
		return cp[i].Date.Before(cp[j].Date)
	})

	out := cp[:0]
	for _, p := range cp {
		if n := len(out); n > 0 && out[n-1].Date.Equal(p.Date) {
			out[n-1] = p
			continue
		}
		out = append(out, p)
	}

	return Series{name: name, points: out}
}

// Name returns the series label
func (s Series) Name() string { return s.name }

// Len returns the number of observations
func (s Series) Len() int { return len(s.points) }

// Points returns a copy of the observations
func (s Series) Points() []Point {
	cp := make([]Point, len(s.points))
	copy(cp, s.points)
	return cp
}

// First and Last date, zero time when empty
func (s Series) First() time.Time {
	if len(s.points) == 0 {
		return time.Time{}
	}
	return s.points[0].Date
}

func (s Series) Last() time.Time {
	if len(s.points) == 0 {
		return time.Time{}
	}
	return s.points[len(s.points)-1].Date
}

// Between returns the observations with from <= date <= to.
// A zero bound is open.
func (s Series) Between(from, to time.Time) Series {
	out := make([]Point, 0, len(s.points))
	for _, p := range s.points {
		if !from.IsZero() && p.Date.Before(from) {
			continue
		}
		if !to.IsZero() && p.Date.After(to) {
			continue
		}
		out = append(out, p)
	}
	return Series{name: s.name, points: out}
}
