package database

import (
	"context"
	"fmt"
)

// schema는 idempotent DDL (CREATE ... IF NOT EXISTS)
var schema = []string{
	`CREATE SCHEMA IF NOT EXISTS data`,
	`CREATE SCHEMA IF NOT EXISTS audit`,
	`CREATE TABLE IF NOT EXISTS data.market_series (
		series_name TEXT             NOT NULL,
		obs_date    DATE             NOT NULL,
		value       DOUBLE PRECISION NOT NULL,
		updated_at  TIMESTAMPTZ      NOT NULL DEFAULT NOW(),
		PRIMARY KEY (series_name, obs_date)
	)`,
	`CREATE TABLE IF NOT EXISTS audit.backtest_runs (
		id               BIGSERIAL PRIMARY KEY,
		strategy_id      TEXT             NOT NULL,
		config_hash      TEXT             NOT NULL,
		data_fingerprint TEXT             NOT NULL,
		params           JSONB            NOT NULL,
		start_date       DATE             NOT NULL,
		end_date         DATE             NOT NULL,
		days             INTEGER          NOT NULL,
		warmup_days      INTEGER          NOT NULL,
		vol_match_weight DOUBLE PRECISION NOT NULL,
		total_turnover   DOUBLE PRECISION NOT NULL,
		total_cost       DOUBLE PRECISION NOT NULL,
		kpis             JSONB            NOT NULL,
		created_at       TIMESTAMPTZ      NOT NULL DEFAULT NOW(),
		UNIQUE (config_hash, data_fingerprint)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_backtest_runs_strategy ON audit.backtest_runs (strategy_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS audit.backtest_daily (
		run_id    BIGINT NOT NULL REFERENCES audit.backtest_runs(id) ON DELETE CASCADE,
		obs_date  DATE   NOT NULL,
		price     DOUBLE PRECISION NOT NULL,
		vol_index DOUBLE PRECISION NOT NULL,
		rate      DOUBLE PRECISION NOT NULL,
		sma       DOUBLE PRECISION NOT NULL,
		trend_ok  DOUBLE PRECISION NOT NULL,
		vol_hat   DOUBLE PRECISION NOT NULL,
		w_raw     DOUBLE PRECISION NOT NULL,
		gate      DOUBLE PRECISION NOT NULL,
		weight    DOUBLE PRECISION NOT NULL,
		w_prev    DOUBLE PRECISION NOT NULL,
		ret       DOUBLE PRECISION NOT NULL,
		rf        DOUBLE PRECISION NOT NULL,
		turnover  DOUBLE PRECISION NOT NULL,
		cost      DOUBLE PRECISION NOT NULL,
		strat_ret DOUBLE PRECISION NOT NULL,
		bh_ret    DOUBLE PRECISION NOT NULL,
		vm_ret    DOUBLE PRECISION NOT NULL,
		eq_strat  DOUBLE PRECISION NOT NULL,
		eq_bh     DOUBLE PRECISION NOT NULL,
		eq_vm     DOUBLE PRECISION NOT NULL,
		dd_strat  DOUBLE PRECISION NOT NULL,
		dd_bh     DOUBLE PRECISION NOT NULL,
		dd_vm     DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (run_id, obs_date)
	)`,
}

// EnsureSchema creates the tables used by the repositories
func (db *DB) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
