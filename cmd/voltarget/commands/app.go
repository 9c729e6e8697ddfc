package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/voltarget/internal/audit"
	"github.com/wonny/voltarget/internal/cache"
	"github.com/wonny/voltarget/internal/marketdata"
	"github.com/wonny/voltarget/internal/pipeline"
	"github.com/wonny/voltarget/internal/strategyconfig"
	"github.com/wonny/voltarget/pkg/config"
	"github.com/wonny/voltarget/pkg/database"
	"github.com/wonny/voltarget/pkg/logger"
	"github.com/wonny/voltarget/pkg/redis"
)

const (
	sourceCSV = "csv"
	sourceDB  = "db"

	keyPrefix = "voltarget"
)

// zeroTime leaves a DB source date bound open
var zeroTime time.Time

// app bundles the process dependencies of a command.
// db is nil when DATABASE_URL is unset; redis is a disabled client when REDIS_ENABLED=false.
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	strategy *strategyconfig.Config
	db       *database.DB
	redis    *redis.Client
	memCache *cache.MemoryCache // result cache of long-running processes without Redis
}

// loadApp reads process and strategy configuration without opening connections
func loadApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if env != "" {
		cfg.Env = env
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	path := configFile
	if path == "" {
		path = cfg.StrategyConfig
	}
	strategy, err := strategyconfig.LoadOrDefault(path)
	if err != nil {
		return nil, fmt.Errorf("load strategy config: %w", err)
	}

	log := logger.New(cfg)
	for _, w := range strategyconfig.Warn(strategy) {
		log.WithField("code", w.Code).Warn(w.Message)
	}

	return &app{
		cfg:      cfg,
		log:      log,
		strategy: strategy,
		redis:    redis.Disabled(),
	}, nil
}

// connect opens the optional database and Redis connections
func (a *app) connect(ctx context.Context, requireDB bool) error {
	db, err := database.New(ctx, a.cfg.Database)
	switch {
	case errors.Is(err, database.ErrDisabled):
		if requireDB {
			return err
		}
		a.log.Debug("Database disabled, runs are not persisted")
	case err != nil:
		return fmt.Errorf("connect to database: %w", err)
	default:
		if err := db.EnsureSchema(ctx); err != nil {
			db.Close()
			return err
		}
		a.db = db
		a.log.Info("Connected to database")
	}

	client, err := redis.New(ctx, a.cfg.Redis)
	if err != nil {
		// 캐시는 선택 사항
		a.log.WithError(err).Warn("Redis unavailable, result cache disabled")
		client = redis.Disabled()
	}
	a.redis = client

	return nil
}

// Close releases open connections
func (a *app) Close() {
	a.db.Close()
	_ = a.redis.Close()
}

// source builds the market data source of the strategy
func (a *app) source(kind string, from, to time.Time) (marketdata.Source, error) {
	data := a.strategy.Data
	switch kind {
	case sourceCSV:
		return marketdata.NewCSVSource(a.cfg.DataDir, marketdata.Names{
			Price:    data.PriceFile,
			VolIndex: data.VolIndexFile,
			Rate:     data.RateFile,
		}, from, to), nil
	case sourceDB:
		if a.db == nil {
			return nil, database.ErrDisabled
		}
		return marketdata.NewDBSource(marketdata.NewRepository(a.db.Pool), a.seriesNames(), from, to), nil
	default:
		return nil, fmt.Errorf("unknown source %q (expected %s|%s)", kind, sourceCSV, sourceDB)
	}
}

func (a *app) seriesNames() marketdata.Names {
	data := a.strategy.Data
	return marketdata.Names{
		Price:    data.PriceSeries,
		VolIndex: data.VolIndexSeries,
		Rate:     data.RateSeries,
	}
}

// runner wires the pipeline with whatever cache and store are available
func (a *app) runner(src marketdata.Source) (*pipeline.Runner, error) {
	opts := pipeline.Options{
		Config:   a.strategy,
		Source:   src,
		CacheTTL: a.cfg.ResultCacheTTL,
		Logger:   a.log,
	}
	switch {
	case a.redis.Enabled():
		opts.Cache = redis.NewCache(a.redis, keyPrefix)
	case a.memCache != nil:
		opts.Cache = a.memCache
	}
	if a.db != nil {
		opts.Store = audit.NewRepository(a.db.Pool)
	}
	return pipeline.NewRunner(opts)
}

func parseDateFlag(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s %q (expected YYYY-MM-DD)", name, value)
	}
	return t, nil
}
