package timeseries

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"time"
)

// Row is one aligned trading day
type Row struct {
	Date     time.Time `json:"date"`
	Price    float64   `json:"price"`
	VolIndex float64   `json:"vol_index"`
	Rate     float64   `json:"rate"` // short-rate level in percent
}

// Frame is the aligned input of the engine, ordered by date
type Frame struct {
	Rows []Row
}

// Len returns the number of rows
func (f Frame) Len() int { return len(f.Rows) }

// Align puts vol index and rate onto the price calendar.
// Vol index and rate are forward-filled from their last observation at or
// before each price date. Rows that still lack a value are dropped.
// Nothing is ever filled backwards.
func Align(price, volIndex, rate Series) Frame {
	rows := make([]Row, 0, price.Len())

	vi, ri := 0, 0
	lastVol, lastRate := math.NaN(), math.NaN()

	for _, p := range price.points {
		for vi < volIndex.Len() && !volIndex.points[vi].Date.After(p.Date) {
			lastVol = volIndex.points[vi].Value
			vi++
		}
		for ri < rate.Len() && !rate.points[ri].Date.After(p.Date) {
			lastRate = rate.points[ri].Value
			ri++
		}

		if math.IsNaN(p.Value) || math.IsNaN(lastVol) || math.IsNaN(lastRate) {
			continue
		}

		rows = append(rows, Row{
			Date:     p.Date,
			Price:    p.Value,
			VolIndex: lastVol,
			Rate:     lastRate,
		})
	}

	return Frame{Rows: rows}
}

// Fingerprint hashes the frame contents. Equal frames give equal fingerprints.
func (f Frame) Fingerprint() string {
	h := sha256.New()
	var buf [8]byte
	for _, r := range f.Rows {
		binary.LittleEndian.PutUint64(buf[:], uint64(r.Date.Unix()))
		h.Write(buf[:])
		for _, v := range []float64{r.Price, r.VolIndex, r.Rate} {
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
			h.Write(buf[:])
		}
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}
