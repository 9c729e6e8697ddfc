package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/wonny/voltarget/internal/audit"
)

// runsCmd represents the runs command
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "저장된 백테스트 실행 조회",
	Long: `audit.backtest_runs 에 저장된 실행을 조회하고 내보냅니다.

Example:
  go run ./cmd/voltarget runs list --limit 10
  go run ./cmd/voltarget runs export 42 --out results`,
}

var (
	runsListCmd = &cobra.Command{
		Use:   "list",
		Short: "최근 실행 목록",
		RunE:  runRunsList,
	}

	runsExportCmd = &cobra.Command{
		Use:   "export [run_id]",
		Short: "실행 결과 CSV/JSON 내보내기",
		Args:  cobra.ExactArgs(1),
		RunE:  runRunsExport,
	}

	runsLimit int
	runsOut   string
)

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsExportCmd)

	runsListCmd.Flags().IntVar(&runsLimit, "limit", 20, "최대 개수")
	runsExportCmd.Flags().StringVar(&runsOut, "out", "", "결과 디렉토리 (기본: RESULTS_DIR)")
}

func openRunRepository(ctx context.Context) (*app, *audit.Repository, error) {
	a, err := loadApp()
	if err != nil {
		return nil, nil, err
	}
	if err := a.connect(ctx, true); err != nil {
		return nil, nil, err
	}
	return a, audit.NewRepository(a.db.Pool), nil
}

func runRunsList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, repo, err := openRunRepository(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	runs, err := repo.ListRuns(ctx, runsLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		PrintInfo("No runs stored (run: voltarget backtest run --persist)")
		return nil
	}

	widths := []int{6, 18, 10, 23, 9, 8, 9}
	PrintTableHeader([]string{"ID", "Strategy", "Config", "Period", "CAGR", "Sharpe", "MaxDD"}, widths)
	for _, run := range runs {
		kpi := run.KPIs[audit.SeriesStrategy]
		hash := run.ConfigHash
		if len(hash) > 8 {
			hash = hash[:8]
		}
		PrintTableRow([]string{
			strconv.FormatInt(run.ID, 10),
			run.StrategyID,
			hash,
			run.StartDate.Format("2006-01-02") + "~" + run.EndDate.Format("2006-01-02"),
			formatPct(kpi.CAGR),
			formatNum(kpi.Sharpe),
			formatPct(kpi.MaxDD),
		}, widths)
	}
	return nil
}

func runRunsExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid run id %q", args[0])
	}

	a, repo, err := openRunRepository(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	run, err := repo.GetRun(ctx, id)
	if err != nil {
		return err
	}
	days, err := repo.GetDaily(ctx, id)
	if err != nil {
		return err
	}

	dir := runsOut
	if dir == "" {
		dir = a.cfg.ResultsDir
	}
	report := audit.NewReport(*run, days)
	paths, err := audit.WriteFiles(dir, fmt.Sprintf("run_%d", id), report, days)
	if err != nil {
		return err
	}

	fmt.Println(report.ToSummary())
	PrintSuccess(fmt.Sprintf("Run #%d exported", id))
	PrintList(paths)
	return nil
}
