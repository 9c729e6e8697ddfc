package database

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/voltarget/pkg/config"
)

func testConfig(url string) config.DatabaseConfig {
	return config.DatabaseConfig{
		URL:             url,
		MaxConns:        5,
		MinConns:        1,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
	}
}

func TestNew_Disabled(t *testing.T) {
	_, err := New(context.Background(), testConfig(""))
	assert.True(t, errors.Is(err, ErrDisabled))
}

func TestNew_InvalidURL(t *testing.T) {
	_, err := New(context.Background(), testConfig("invalid://url"))
	assert.Error(t, err)
}

func TestClose_Nil(t *testing.T) {
	var db *DB
	assert.NotPanics(t, db.Close)
}

func TestIntegration(t *testing.T) {
	// Skip if DATABASE_URL is not set
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := New(ctx, testConfig(url))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.EnsureSchema(ctx))
	// 두 번 실행해도 실패하지 않아야 함
	require.NoError(t, db.EnsureSchema(ctx))

	status := db.HealthCheck(ctx)
	assert.True(t, status.Healthy)
	assert.Greater(t, status.MaxConns, int32(0))

	db.Close()
	db.Close()
}
