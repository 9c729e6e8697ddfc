package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/voltarget/internal/audit"
	"github.com/wonny/voltarget/internal/pipeline"
)

// backtestCmd represents the backtest command
var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "백테스팅",
	Long: `과거 데이터로 변동성 타겟 오버레이를 시뮬레이션합니다.

백테스팅은 다음을 계산합니다:
- 비용 반영 전략 수익률
- Buy&Hold, Vol-matched 벤치마크
- CAGR, AnnVol, Sharpe, MaxDD, Calmar

Example:
  go run ./cmd/voltarget backtest run
  go run ./cmd/voltarget backtest run --source db --persist
  go run ./cmd/voltarget backtest run --config strategy.yaml --out results`,
}

var (
	backtestRunCmd = &cobra.Command{
		Use:   "run",
		Short: "백테스트 실행",
		Long: `전략 설정과 시장 데이터로 백테스트를 실행합니다.

Flags:
  --source     데이터 소스 (csv|db, 기본: csv)
  --from       DB 소스 시작 날짜 (YYYY-MM-DD)
  --to         DB 소스 종료 날짜 (YYYY-MM-DD)
  --out        결과 CSV/JSON 디렉토리 (기본: RESULTS_DIR)
  --no-out     결과 파일 쓰지 않음
  --persist    실행 결과를 DB에 저장
  --no-cache   Redis 결과 캐시 무시`,
		RunE: runBacktest,
	}

	// Flags
	backtestSource  string
	backtestFrom    string
	backtestTo      string
	backtestOut     string
	backtestNoOut   bool
	backtestPersist bool
	backtestNoCache bool
)

func init() {
	rootCmd.AddCommand(backtestCmd)
	backtestCmd.AddCommand(backtestRunCmd)

	backtestRunCmd.Flags().StringVar(&backtestSource, "source", sourceCSV, "데이터 소스 (csv|db)")
	backtestRunCmd.Flags().StringVar(&backtestFrom, "from", "", "시작 날짜 (YYYY-MM-DD, db 소스)")
	backtestRunCmd.Flags().StringVar(&backtestTo, "to", "", "종료 날짜 (YYYY-MM-DD, db 소스)")
	backtestRunCmd.Flags().StringVar(&backtestOut, "out", "", "결과 디렉토리 (기본: RESULTS_DIR)")
	backtestRunCmd.Flags().BoolVar(&backtestNoOut, "no-out", false, "결과 파일 쓰지 않음")
	backtestRunCmd.Flags().BoolVar(&backtestPersist, "persist", false, "DB에 실행 결과 저장")
	backtestRunCmd.Flags().BoolVar(&backtestNoCache, "no-cache", false, "결과 캐시 무시")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := loadApp()
	if err != nil {
		return err
	}

	from, err := parseDateFlag("from", backtestFrom)
	if err != nil {
		return err
	}
	to, err := parseDateFlag("to", backtestTo)
	if err != nil {
		return err
	}

	if err := a.connect(ctx, backtestPersist || backtestSource == sourceDB); err != nil {
		return err
	}
	defer a.Close()

	src, err := a.source(backtestSource, from, to)
	if err != nil {
		return err
	}
	runner, err := a.runner(src)
	if err != nil {
		return err
	}

	PrintHeader("Volatility Target Backtest")
	PrintKeyValue("Strategy", fmt.Sprintf("%s v%s (%s)", a.strategy.Meta.StrategyID, a.strategy.Meta.Version, a.strategy.Meta.Instrument), 10)
	PrintKeyValue("Config", runner.ConfigHash(), 10)
	PrintKeyValue("Source", src.Describe(), 10)
	PrintSeparator()

	start := time.Now()
	out, err := runner.Run(ctx, pipeline.RunOptions{
		UseCache: !backtestNoCache,
		Persist:  backtestPersist,
	})
	if err != nil {
		PrintError(err.Error())
		return err
	}

	report := out.Report()
	fmt.Println(report.ToSummary())
	printLatest(out.Latest)

	if out.Cached {
		PrintInfo("결과 캐시 사용 (--no-cache 로 재계산)")
	}
	if backtestPersist && out.Run.ID > 0 {
		PrintSuccess(fmt.Sprintf("Run #%d saved", out.Run.ID))
	}

	if !backtestNoOut {
		dir := backtestOut
		if dir == "" {
			dir = a.cfg.ResultsDir
		}
		prefix := fmt.Sprintf("%s_%s", a.strategy.Meta.StrategyID, out.Run.EndDate.Format("20060102"))
		paths, err := audit.WriteFiles(dir, prefix, report, out.Days)
		if err != nil {
			return fmt.Errorf("write results: %w", err)
		}
		fmt.Println("Saved:")
		PrintList(paths)
	}

	fmt.Println()
	PrintSuccess(fmt.Sprintf("Backtest completed in %.2fs", time.Since(start).Seconds()))
	return nil
}

// printLatest prints the weight and its components for the last date
func printLatest(latest *pipeline.LatestSignal) {
	if latest == nil {
		PrintWarning("No signal available")
		return
	}

	trend := "❌"
	if latest.TrendOK > 0 {
		trend = "✅"
	}

	fmt.Printf("\n📍 Latest signal (%s)\n", latest.Date.Format("2006-01-02"))
	PrintKeyValue("Weight", formatNum(latest.Weight), 10)
	PrintKeyValue("Raw", formatNum(latest.RawWeight), 10)
	PrintKeyValue("Vol (ann)", formatPct(latest.VolAnn), 10)
	PrintKeyValue("Trend", fmt.Sprintf("%s price %.2f vs SMA %.2f", trend, latest.Price, latest.SMA), 10)
	PrintKeyValue("VIX gate", fmt.Sprintf("%s (VIX %.2f)", formatNum(latest.Gate), latest.VolIndex), 10)
	PrintKeyValue("Rate", fmt.Sprintf("%.2f%%", latest.RateLevel), 10)
	fmt.Println()
}
