package marketdata

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/wonny/voltarget/internal/timeseries"
)

// Inputs are the three raw series of a run
type Inputs struct {
	Price    timeseries.Series
	VolIndex timeseries.Series
	Rate     timeseries.Series
}

// Align builds the aligned frame from the raw series
func (in Inputs) Align() timeseries.Frame {
	return timeseries.Align(in.Price, in.VolIndex, in.Rate)
}

// Names maps each input to a file name or a stored series name
type Names struct {
	Price    string
	VolIndex string
	Rate     string
}

// Source loads the three inputs of a run
type Source interface {
	Load(ctx context.Context) (Inputs, error)
	Describe() string
}

// CSVSource reads the three exports from a directory.
// From/To bound the price series like DBSource does; zero bounds are open.
type CSVSource struct {
	Dir   string
	Files Names
	From  time.Time
	To    time.Time
}

// NewCSVSource creates a CSV source; relative file names resolve against dir
func NewCSVSource(dir string, files Names, from, to time.Time) *CSVSource {
	return &CSVSource{Dir: dir, Files: files, From: from, To: to}
}

// Load implements Source
func (s *CSVSource) Load(ctx context.Context) (Inputs, error) {
	var in Inputs
	var err error

	if in.Price, err = LoadCSV(s.path(s.Files.Price), KindPrice); err != nil {
		return Inputs{}, fmt.Errorf("load price: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return Inputs{}, err
	}
	if in.VolIndex, err = LoadCSV(s.path(s.Files.VolIndex), KindVolIndex); err != nil {
		return Inputs{}, fmt.Errorf("load vol index: %w", err)
	}
	if in.Rate, err = LoadCSV(s.path(s.Files.Rate), KindRate); err != nil {
		return Inputs{}, fmt.Errorf("load rate: %w", err)
	}

	// 가격만 구간 제한, 변동성 지수/금리는 forward-fill 위해 시작일 이전 유지
	in.Price = in.Price.Between(s.From, s.To)
	in.VolIndex = in.VolIndex.Between(time.Time{}, s.To)
	in.Rate = in.Rate.Between(time.Time{}, s.To)

	return in, nil
}

// Describe implements Source
func (s *CSVSource) Describe() string {
	return fmt.Sprintf("csv:%s", s.Dir)
}

func (s *CSVSource) path(name string) string {
	if filepath.IsAbs(name) || s.Dir == "" {
		return name
	}
	return filepath.Join(s.Dir, name)
}

// SeriesLoader reads a stored series by name
type SeriesLoader interface {
	LoadSeries(ctx context.Context, name string, from, to time.Time) (timeseries.Series, error)
}

// DBSource reads the three inputs from stored series
type DBSource struct {
	loader SeriesLoader
	names  Names
	from   time.Time
	to     time.Time
}

// NewDBSource creates a database source; zero bounds are open
func NewDBSource(loader SeriesLoader, names Names, from, to time.Time) *DBSource {
	return &DBSource{loader: loader, names: names, from: from, to: to}
}

// Load implements Source
func (s *DBSource) Load(ctx context.Context) (Inputs, error) {
	var in Inputs
	var err error

	if in.Price, err = s.loader.LoadSeries(ctx, s.names.Price, s.from, s.to); err != nil {
		return Inputs{}, fmt.Errorf("load %s: %w", s.names.Price, err)
	}
	// 변동성 지수/금리는 시작일 이전 값도 forward-fill에 필요
	if in.VolIndex, err = s.loader.LoadSeries(ctx, s.names.VolIndex, time.Time{}, s.to); err != nil {
		return Inputs{}, fmt.Errorf("load %s: %w", s.names.VolIndex, err)
	}
	if in.Rate, err = s.loader.LoadSeries(ctx, s.names.Rate, time.Time{}, s.to); err != nil {
		return Inputs{}, fmt.Errorf("load %s: %w", s.names.Rate, err)
	}

	return in, nil
}

// Describe implements Source
func (s *DBSource) Describe() string {
	return fmt.Sprintf("db:%s,%s,%s", s.names.Price, s.names.VolIndex, s.names.Rate)
}
