package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/voltarget/internal/api"
	"github.com/wonny/voltarget/internal/api/handlers"
	"github.com/wonny/voltarget/internal/cache"
	"github.com/wonny/voltarget/internal/scheduler"
	"github.com/wonny/voltarget/internal/scheduler/jobs"
	"github.com/wonny/voltarget/pkg/redis"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

Endpoints:
  GET  /health               - Health check (database, redis)
  GET  /api/signal/latest    - 최신 비중
  GET  /api/backtest         - 백테스트 결과 (캐시 사용, ?days=true)
  POST /api/backtest/run     - 백테스트 실행 + 저장
  GET  /api/runs/latest      - 최근 저장된 실행

Example:
  go run ./cmd/voltarget api
  go run ./cmd/voltarget api --port 8080 --source db`,
	RunE: runAPIServer,
}

var (
	apiPort   string
	apiSource string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본: PORT)")
	apiCmd.Flags().StringVar(&apiSource, "source", sourceCSV, "데이터 소스 (csv|db)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== voltarget API Server ===")

	a, err := loadApp()
	if err != nil {
		return err
	}
	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	ctx := context.Background()
	if err := a.connect(ctx, apiSource == sourceDB); err != nil {
		return err
	}
	defer a.Close()

	src, err := a.source(apiSource, zeroTime, zeroTime)
	if err != nil {
		return err
	}

	if !a.redis.Enabled() {
		a.memCache = cache.NewMemoryCache(a.log)
		sched := scheduler.New(a.log)
		if err := sched.AddJob(jobs.NewCacheCleanupJob(a.memCache, a.log)); err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
	}

	runner, err := a.runner(src)
	if err != nil {
		return err
	}

	checks := map[string]api.HealthCheck{}
	if a.db != nil {
		checks["database"] = a.db.Ping
	}
	if a.redis.Enabled() {
		checks["redis"] = a.redis.Ping
	}

	limiter := redis.NewRateLimiter(a.redis, keyPrefix)
	router := api.NewRouter(api.RouterOptions{
		Backtest:  handlers.NewBacktestHandler(runner, limiter, a.log),
		Signal:    handlers.NewSignalHandler(runner, a.log),
		Checks:    checks,
		RateLimit: a.cfg.RateLimit,
		RateBurst: a.cfg.RateBurst,
		Logger:    a.log,
	})

	server := api.New(a.cfg, a.log, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	fmt.Printf("\n✅ Server running on http://localhost%s\n", server.Addr())
	if a.memCache != nil {
		fmt.Println("   result cache: in-memory (REDIS_ENABLED=false)")
	}
	fmt.Printf("   strategy %s, config %s, source %s\n", a.strategy.Meta.StrategyID, runner.ConfigHash()[:12], src.Describe())
	fmt.Println("\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	a.log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	a.log.Info("Server stopped")
	return nil
}
