package marketdata

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/voltarget/internal/timeseries"
)

// ErrNoValueColumn is returned when none of the candidate columns is present
var ErrNoValueColumn = errors.New("no value column found")

// Kind identifies one of the three input series
type Kind string

const (
	KindPrice    Kind = "price"
	KindVolIndex Kind = "vol_index"
	KindRate     Kind = "rate"
)

// Candidates returns the value columns tried, in order, for a kind
func (k Kind) Candidates() []string {
	switch k {
	case KindPrice:
		return []string{"LAST", "PX_LAST", "Close", "close", "Adj Close", "adj_close"}
	case KindVolIndex:
		return []string{"PX_LAST", "LAST", "Close", "close"}
	case KindRate:
		return []string{"PX_LAST", "LAST", "Close", "close", "yield", "Yield"}
	default:
		return nil
	}
}

// 일 우선(day-first) 포맷부터 시도
var dateLayouts = []string{
	"02/01/2006",
	"02.01.2006",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/06",
	"02-01-2006",
}

// LoadCSV reads a semicolon-delimited export for the given kind
func LoadCSV(path string, kind Kind) (timeseries.Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return timeseries.Series{}, err
	}
	defer f.Close()

	s, err := ParseCSV(f, string(kind), kind.Candidates())
	if err != nil {
		return timeseries.Series{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// ParseCSV parses a semicolon-delimited table.
// The first column holds the date, the value comes from the first candidate
// column present in the header. Rows with an unparsable date or value are
// dropped; the result is sorted and keeps the last row of a repeated date.
func ParseCSV(r io.Reader, name string, candidates []string) (timeseries.Series, error) {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return timeseries.Series{}, fmt.Errorf("empty file: %w", ErrNoValueColumn)
	}
	if err != nil {
		return timeseries.Series{}, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	col := valueColumn(header, candidates)
	if col < 1 {
		return timeseries.Series{}, fmt.Errorf("%w: available columns %v", ErrNoValueColumn, header)
	}

	var points []timeseries.Point
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return timeseries.Series{}, fmt.Errorf("read record: %w", err)
		}
		if len(record) <= col {
			continue
		}

		date, ok := parseDate(record[0])
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(record[col]), 64)
		if err != nil {
			continue
		}
		points = append(points, timeseries.Point{Date: date, Value: v})
	}

	return timeseries.FromUnsorted(name, points), nil
}

// valueColumn returns the index of the first candidate present, or -1.
// Column 0 is the date and is never a value column.
func valueColumn(header, candidates []string) int {
	for _, c := range candidates {
		for i := 1; i < len(header); i++ {
			if header[i] == c {
				return i
			}
		}
	}
	return -1
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
