package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrRunNotFound is returned when no stored run matches
var ErrRunNotFound = errors.New("run not found")

// Repository handles backtest run persistence
// ⭐ SSOT: Audit 데이터 저장/조회는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new audit repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaveRun upserts a run and replaces its daily rows in one transaction.
// A run is keyed by (config_hash, data_fingerprint).
func (r *Repository) SaveRun(ctx context.Context, run *RunRecord, days []DailySnapshot) (int64, error) {
	kpisJSON, err := json.Marshal(run.KPIs)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal kpis: %w", err)
	}
	params := run.Params
	if len(params) == 0 {
		params = json.RawMessage("{}")
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO audit.backtest_runs (
			strategy_id, config_hash, data_fingerprint, params,
			start_date, end_date, days, warmup_days,
			vol_match_weight, total_turnover, total_cost, kpis
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (config_hash, data_fingerprint) DO UPDATE SET
			strategy_id = EXCLUDED.strategy_id,
			params = EXCLUDED.params,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			days = EXCLUDED.days,
			warmup_days = EXCLUDED.warmup_days,
			vol_match_weight = EXCLUDED.vol_match_weight,
			total_turnover = EXCLUDED.total_turnover,
			total_cost = EXCLUDED.total_cost,
			kpis = EXCLUDED.kpis,
			created_at = NOW()
		RETURNING id, created_at
	`

	err = tx.QueryRow(ctx, query,
		run.StrategyID, run.ConfigHash, run.DataFingerprint, []byte(params),
		run.StartDate, run.EndDate, run.Days, run.WarmupDays,
		run.VolMatchWeight, run.TotalTurnover, run.TotalCost, kpisJSON,
	).Scan(&run.ID, &run.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to save run: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM audit.backtest_daily WHERE run_id = $1`, run.ID); err != nil {
		return 0, fmt.Errorf("failed to clear daily rows: %w", err)
	}

	// 일별 데이터는 CopyFrom으로 일괄 적재
	rows := make([][]any, len(days))
	for i, d := range days {
		rows[i] = []any{
			run.ID, d.Date, d.Price, d.VolIndex, d.Rate, d.SMA, d.TrendOK, d.VolHat, d.RawW, d.Gate,
			d.Weight, d.WPrev, d.Return, d.RiskFree, d.Turnover, d.Cost,
			d.StratRet, d.BHRet, d.VMRet, d.EqStrat, d.EqBH, d.EqVM, d.DDStrat, d.DDBH, d.DDVM,
		}
	}
	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"audit", "backtest_daily"},
		dailyColumns,
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to copy daily rows: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return run.ID, nil
}

var dailyColumns = []string{
	"run_id", "obs_date", "price", "vol_index", "rate", "sma", "trend_ok", "vol_hat", "w_raw", "gate",
	"weight", "w_prev", "ret", "rf", "turnover", "cost",
	"strat_ret", "bh_ret", "vm_ret", "eq_strat", "eq_bh", "eq_vm", "dd_strat", "dd_bh", "dd_vm",
}

const runColumns = `
	id, strategy_id, config_hash, data_fingerprint, params,
	start_date, end_date, days, warmup_days,
	vol_match_weight, total_turnover, total_cost, kpis, created_at`

// LatestRun returns the most recently saved run of a strategy
func (r *Repository) LatestRun(ctx context.Context, strategyID string) (*RunRecord, error) {
	query := `SELECT ` + runColumns + `
		FROM audit.backtest_runs
		WHERE strategy_id = $1
		ORDER BY created_at DESC
		LIMIT 1`

	return r.scanRun(r.pool.QueryRow(ctx, query, strategyID))
}

// GetRun returns a run by id
func (r *Repository) GetRun(ctx context.Context, id int64) (*RunRecord, error) {
	query := `SELECT ` + runColumns + `
		FROM audit.backtest_runs
		WHERE id = $1`

	return r.scanRun(r.pool.QueryRow(ctx, query, id))
}

// FindRun returns the run stored for a config/data pair
func (r *Repository) FindRun(ctx context.Context, configHash, fingerprint string) (*RunRecord, error) {
	query := `SELECT ` + runColumns + `
		FROM audit.backtest_runs
		WHERE config_hash = $1 AND data_fingerprint = $2`

	return r.scanRun(r.pool.QueryRow(ctx, query, configHash, fingerprint))
}

// ListRuns returns the latest runs, newest first
func (r *Repository) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	query := `SELECT ` + runColumns + `
		FROM audit.backtest_runs
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := make([]RunRecord, 0)
	for rows.Next() {
		run, err := r.scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// GetDaily returns the daily rows of a run
func (r *Repository) GetDaily(ctx context.Context, runID int64) ([]DailySnapshot, error) {
	query := `
		SELECT obs_date, price, vol_index, rate, sma, trend_ok, vol_hat, w_raw, gate,
		       weight, w_prev, ret, rf, turnover, cost,
		       strat_ret, bh_ret, vm_ret, eq_strat, eq_bh, eq_vm, dd_strat, dd_bh, dd_vm
		FROM audit.backtest_daily
		WHERE run_id = $1
		ORDER BY obs_date ASC
	`

	rows, err := r.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily rows: %w", err)
	}
	defer rows.Close()

	days := make([]DailySnapshot, 0)
	for rows.Next() {
		var d DailySnapshot
		err := rows.Scan(
			&d.Date, &d.Price, &d.VolIndex, &d.Rate, &d.SMA, &d.TrendOK, &d.VolHat, &d.RawW, &d.Gate,
			&d.Weight, &d.WPrev, &d.Return, &d.RiskFree, &d.Turnover, &d.Cost,
			&d.StratRet, &d.BHRet, &d.VMRet, &d.EqStrat, &d.EqBH, &d.EqVM, &d.DDStrat, &d.DDBH, &d.DDVM,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan daily row: %w", err)
		}
		days = append(days, d)
	}
	return days, rows.Err()
}

func (r *Repository) scanRun(row pgx.Row) (*RunRecord, error) {
	var run RunRecord
	var params, kpis []byte

	err := row.Scan(
		&run.ID, &run.StrategyID, &run.ConfigHash, &run.DataFingerprint, &params,
		&run.StartDate, &run.EndDate, &run.Days, &run.WarmupDays,
		&run.VolMatchWeight, &run.TotalTurnover, &run.TotalCost, &kpis, &run.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	run.Params = json.RawMessage(params)
	if err := json.Unmarshal(kpis, &run.KPIs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal kpis: %w", err)
	}
	return &run, nil
}
