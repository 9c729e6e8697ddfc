package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/voltarget/internal/audit"
	"github.com/wonny/voltarget/internal/backtest"
	"github.com/wonny/voltarget/internal/marketdata"
	"github.com/wonny/voltarget/internal/strategyconfig"
	"github.com/wonny/voltarget/pkg/logger"
	"github.com/wonny/voltarget/pkg/redis"
)

// ResultCache stores run outputs keyed by config hash and data fingerprint
type ResultCache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// RunStore persists run summaries and their daily rows
type RunStore interface {
	SaveRun(ctx context.Context, run *audit.RunRecord, days []audit.DailySnapshot) (int64, error)
	LatestRun(ctx context.Context, strategyID string) (*audit.RunRecord, error)
	FindRun(ctx context.Context, configHash, fingerprint string) (*audit.RunRecord, error)
	GetDaily(ctx context.Context, runID int64) ([]audit.DailySnapshot, error)
}

// ErrNoStore is returned by store lookups when persistence is disabled
var ErrNoStore = errors.New("run persistence is not configured")

// Output is the JSON-safe outcome of a run
type Output struct {
	Run    audit.RunRecord       `json:"run"`
	Days   []audit.DailySnapshot `json:"days"`
	Latest *LatestSignal         `json:"latest"`
	Cached bool                  `json:"cached"`
}

// Report builds the report artifact of the output
func (o *Output) Report() *audit.Report {
	return audit.NewReport(o.Run, o.Days)
}

// RunOptions control side effects of a run
type RunOptions struct {
	UseCache bool
	Persist  bool
}

// Options configures a Runner; Cache and Store are optional
type Options struct {
	Config   *strategyconfig.Config
	Source   marketdata.Source
	Cache    ResultCache
	Store    RunStore
	CacheTTL time.Duration
	Logger   *logger.Logger
}

// Runner loads data, runs the backtest and distributes the result
// ⭐ SSOT: 데이터 로드 → 백테스트 → 캐시/저장 흐름은 여기서만
type Runner struct {
	cfg        *strategyconfig.Config
	configHash string
	engine     *backtest.Engine
	source     marketdata.Source
	cache      ResultCache
	store      RunStore
	ttl        time.Duration
	logger     *logger.Logger
}

// NewRunner validates the strategy config and builds the engine
func NewRunner(opts Options) (*Runner, error) {
	if opts.Config == nil {
		return nil, errors.New("strategy config is required")
	}
	if opts.Source == nil {
		return nil, errors.New("market data source is required")
	}

	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	engine, err := backtest.NewEngine(opts.Config.BacktestParams(), log)
	if err != nil {
		return nil, err
	}

	hash, err := strategyconfig.Hash(opts.Config)
	if err != nil {
		return nil, fmt.Errorf("hash config: %w", err)
	}

	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = redis.TTLDaily
	}

	return &Runner{
		cfg:        opts.Config,
		configHash: hash,
		engine:     engine,
		source:     opts.Source,
		cache:      opts.Cache,
		store:      opts.Store,
		ttl:        ttl,
		logger:     log.WithComponent("runner").WithStrategy(opts.Config.Meta.StrategyID, hash),
	}, nil
}

// ConfigHash returns the hash used as cache and run key
func (r *Runner) ConfigHash() string {
	return r.configHash
}

// Run executes the full pipeline
func (r *Runner) Run(ctx context.Context, opts RunOptions) (*Output, error) {
	in, err := r.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load market data (%s): %w", r.source.Describe(), err)
	}

	frame := in.Align()
	fingerprint := frame.Fingerprint()
	key := redis.ResultKey(r.configHash, fingerprint)

	if opts.UseCache && r.cache != nil {
		var cached Output
		found, err := r.cache.Get(ctx, key, &cached)
		if err != nil {
			r.logger.WithError(err).Warn("Result cache read failed")
		}
		if found {
			cached.Cached = true
			r.logger.WithField("key", key).Debug("Result cache hit")
			return &cached, nil
		}
	}

	// 캐시 미스 → 같은 (config, data) 조합의 저장된 실행 재사용
	if opts.UseCache && r.store != nil {
		stored, err := r.storedRun(ctx, fingerprint)
		if err != nil && !errors.Is(err, audit.ErrRunNotFound) {
			r.logger.WithError(err).Warn("Stored run lookup failed")
		}
		if stored != nil {
			r.logger.WithField("run_id", stored.Run.ID).Debug("Stored run reused")
			r.fillCache(ctx, key, stored)
			stored.Cached = true
			return stored, nil
		}
	}

	res, err := r.engine.Run(ctx, frame)
	if err != nil {
		return nil, err
	}

	record, err := Record(res, r.cfg, r.configHash)
	if err != nil {
		return nil, fmt.Errorf("build run record: %w", err)
	}

	out := &Output{Run: record, Days: Snapshots(res)}
	if last, ok := res.Latest(); ok {
		out.Latest = newLatestSignal(last.Point, r.cfg, r.configHash)
	}

	if opts.Persist && r.store != nil {
		id, err := r.store.SaveRun(ctx, &out.Run, out.Days)
		if err != nil {
			return nil, fmt.Errorf("persist run: %w", err)
		}
		r.logger.WithField("run_id", id).Info("Run persisted")
	}

	r.fillCache(ctx, key, out)

	return out, nil
}

func (r *Runner) storedRun(ctx context.Context, fingerprint string) (*Output, error) {
	run, err := r.store.FindRun(ctx, r.configHash, fingerprint)
	if err != nil {
		return nil, err
	}
	days, err := r.store.GetDaily(ctx, run.ID)
	if err != nil {
		return nil, fmt.Errorf("load daily rows of run %d: %w", run.ID, err)
	}
	if len(days) != run.Days {
		return nil, fmt.Errorf("run %d has %d daily rows, expected %d", run.ID, len(days), run.Days)
	}

	out := &Output{Run: *run, Days: days}
	if len(days) > 0 {
		out.Latest = latestFromSnapshot(days[len(days)-1], r.cfg, r.configHash)
	}
	return out, nil
}

func (r *Runner) fillCache(ctx context.Context, key string, out *Output) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Set(ctx, key, out, r.ttl); err != nil {
		r.logger.WithError(err).Warn("Result cache write failed")
	}
}

// LatestSignal computes today's weight without simulating costs or baselines
func (r *Runner) LatestSignal(ctx context.Context) (*LatestSignal, error) {
	in, err := r.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load market data (%s): %w", r.source.Describe(), err)
	}

	frame := in.Align()
	key := redis.SignalKey(r.configHash, frame.Fingerprint())

	if r.cache != nil {
		var cached LatestSignal
		if found, err := r.cache.Get(ctx, key, &cached); err == nil && found {
			return &cached, nil
		}
	}

	pt, ok := r.engine.Signal().Latest(frame)
	if !ok {
		return nil, backtest.ErrInsufficientData
	}
	sig := newLatestSignal(pt, r.cfg, r.configHash)

	if r.cache != nil {
		if err := r.cache.Set(ctx, key, sig, r.ttl); err != nil {
			r.logger.WithError(err).Warn("Signal cache write failed")
		}
	}

	return sig, nil
}

// LatestRun returns the most recent stored run of this strategy
func (r *Runner) LatestRun(ctx context.Context) (*audit.RunRecord, error) {
	if r.store == nil {
		return nil, ErrNoStore
	}
	return r.store.LatestRun(ctx, r.cfg.Meta.StrategyID)
}
