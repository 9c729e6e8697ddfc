package marketdata

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/voltarget/internal/timeseries"
	"github.com/wonny/voltarget/pkg/config"
	"github.com/wonny/voltarget/pkg/database"
)

func TestRepository_Integration(t *testing.T) {
	// Skip if DATABASE_URL is not set
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.New(ctx, config.DatabaseConfig{URL: url, MaxConns: 4, MinConns: 1, MaxConnLifetime: time.Hour, MaxConnIdleTime: time.Minute})
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.EnsureSchema(ctx))

	repo := NewRepository(db.Pool)
	name := "TEST_" + time.Now().Format("150405.000000")
	defer db.Pool.Exec(context.Background(), `DELETE FROM data.market_series WHERE series_name = $1`, name)

	s, err := timeseries.New(name, []timeseries.Point{
		{Date: date(2023, 1, 2), Value: 1.5},
		{Date: date(2023, 1, 3), Value: 1.6},
		{Date: date(2023, 1, 4), Value: 1.7},
	})
	require.NoError(t, err)

	n, err := repo.SaveSeries(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// upsert: 같은 날짜 재저장
	_, err = repo.SaveSeries(ctx, s)
	require.NoError(t, err)

	got, err := repo.LoadSeries(ctx, name, date(2023, 1, 3), time.Time{})
	require.NoError(t, err)
	assert.Equal(t, []float64{1.6, 1.7}, values(got))

	infos, err := repo.ListSeries(ctx)
	require.NoError(t, err)
	var found bool
	for _, info := range infos {
		if info.Name == name {
			found = true
			assert.Equal(t, 3, info.Count)
		}
	}
	assert.True(t, found)
}
