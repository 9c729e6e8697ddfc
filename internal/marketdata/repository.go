package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/voltarget/internal/timeseries"
)

// SeriesInfo summarizes one stored series
type SeriesInfo struct {
	Name  string    `json:"name"`
	First time.Time `json:"first"`
	Last  time.Time `json:"last"`
	Count int       `json:"count"`
}

// Repository stores daily observations in PostgreSQL
// ⭐ SSOT: 시계열 데이터 저장소는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new market data repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// LoadSeries retrieves a series within [from, to]; zero bounds are open
func (r *Repository) LoadSeries(ctx context.Context, name string, from, to time.Time) (timeseries.Series, error) {
	query := `
		SELECT obs_date, value
		FROM data.market_series
		WHERE series_name = $1
		  AND ($2::date IS NULL OR obs_date >= $2)
		  AND ($3::date IS NULL OR obs_date <= $3)
		ORDER BY obs_date ASC
	`

	rows, err := r.pool.Query(ctx, query, name, nullableDate(from), nullableDate(to))
	if err != nil {
		return timeseries.Series{}, fmt.Errorf("query series: %w", err)
	}
	defer rows.Close()

	var points []timeseries.Point
	for rows.Next() {
		var p timeseries.Point
		if err := rows.Scan(&p.Date, &p.Value); err != nil {
			return timeseries.Series{}, fmt.Errorf("scan series: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return timeseries.Series{}, err
	}

	return timeseries.New(name, points)
}

// SaveSeries upserts every observation of a series
func (r *Repository) SaveSeries(ctx context.Context, s timeseries.Series) (int, error) {
	if s.Len() == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO data.market_series (series_name, obs_date, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (series_name, obs_date) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = NOW()`

	for _, p := range s.Points() {
		batch.Queue(query, s.Name(), p.Date, p.Value)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < s.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return i, fmt.Errorf("upsert %s: %w", s.Name(), err)
		}
	}

	return s.Len(), nil
}

// ListSeries returns coverage of every stored series
func (r *Repository) ListSeries(ctx context.Context) ([]SeriesInfo, error) {
	query := `
		SELECT series_name, MIN(obs_date), MAX(obs_date), COUNT(*)
		FROM data.market_series
		GROUP BY series_name
		ORDER BY series_name
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query series list: %w", err)
	}
	defer rows.Close()

	var infos []SeriesInfo
	for rows.Next() {
		var info SeriesInfo
		if err := rows.Scan(&info.Name, &info.First, &info.Last, &info.Count); err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// Import stores the three inputs under the given names
func (r *Repository) Import(ctx context.Context, in Inputs, names Names) (int, error) {
	total := 0
	for _, item := range []struct {
		name   string
		series timeseries.Series
	}{
		{names.Price, in.Price},
		{names.VolIndex, in.VolIndex},
		{names.Rate, in.Rate},
	} {
		renamed, err := timeseries.New(item.name, item.series.Points())
		if err != nil {
			return total, err
		}
		n, err := r.SaveSeries(ctx, renamed)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func nullableDate(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
