package commands

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/voltarget/internal/audit"
	"github.com/wonny/voltarget/internal/marketdata"
	"github.com/wonny/voltarget/internal/strategyconfig"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "연결 상태 점검",
	Long: `설정, 데이터베이스, Redis 연결 상태와 최근 실행을 점검합니다.

Example:
  go run ./cmd/voltarget status`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	a, err := loadApp()
	if err != nil {
		PrintError(err.Error())
		return err
	}

	hash, err := strategyconfig.Hash(a.strategy)
	if err != nil {
		return err
	}

	PrintHeader("voltarget status")
	PrintKeyValue("Env", a.cfg.Env, 10)
	PrintKeyValue("Strategy", a.strategy.Meta.StrategyID, 10)
	PrintKeyValue("Config", hash, 10)
	PrintKeyValue("Data dir", a.cfg.DataDir, 10)
	PrintKeyValue("Database", maskPassword(a.cfg.Database.URL), 10)
	PrintSeparator()

	if err := a.connect(ctx, false); err != nil {
		PrintError(err.Error())
		return err
	}
	defer a.Close()

	if a.db == nil {
		PrintInfo("Database disabled (DATABASE_URL empty)")
	} else {
		status := a.db.HealthCheck(ctx)
		if !status.Healthy {
			PrintError("Database unhealthy: " + status.Error)
		} else {
			PrintSuccess(fmt.Sprintf("Database healthy (%v, conns %d/%d idle %d)",
				status.ResponseTime.Round(time.Microsecond), status.TotalConns, status.MaxConns, status.IdleConns))
			printStoredState(ctx, a)
		}
	}

	if !a.redis.Enabled() {
		PrintInfo("Redis disabled (REDIS_ENABLED=false)")
	} else if err := a.redis.Ping(ctx); err != nil {
		PrintError("Redis ping failed: " + err.Error())
	} else {
		PrintSuccess("Redis reachable")
	}

	return nil
}

func printStoredState(ctx context.Context, a *app) {
	infos, err := marketdata.NewRepository(a.db.Pool).ListSeries(ctx)
	if err != nil {
		PrintWarning("Series lookup failed: " + err.Error())
	} else {
		PrintKeyValue("Series", fmt.Sprintf("%d stored", len(infos)), 10)
	}

	run, err := audit.NewRepository(a.db.Pool).LatestRun(ctx, a.strategy.Meta.StrategyID)
	switch {
	case errors.Is(err, audit.ErrRunNotFound):
		PrintKeyValue("Last run", "none", 10)
	case err != nil:
		PrintWarning("Run lookup failed: " + err.Error())
	default:
		PrintKeyValue("Last run", fmt.Sprintf("#%d %s (%s)", run.ID, run.EndDate.Format("2006-01-02"), run.CreatedAt.Format(time.RFC3339)), 10)
	}
}

// maskPassword hides the password of a connection URL
func maskPassword(raw string) string {
	if raw == "" {
		return "-"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "***"
	}
	return u.Redacted()
}
