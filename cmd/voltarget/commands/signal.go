package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/voltarget/internal/pipeline"
	"github.com/wonny/voltarget/pkg/httputil"
)

// signalCmd represents the signal command
var signalCmd = &cobra.Command{
	Use:   "signal",
	Short: "오늘의 비중 조회",
}

var (
	signalTodayCmd = &cobra.Command{
		Use:   "today",
		Short: "최신 비중과 구성 요소 출력",
		Long: `최근 거래일의 목표 비중 w와 구성 요소(변동성, 추세, VIX 게이트)를 출력합니다.

--remote 를 지정하면 실행 중인 API 서버에서 조회합니다.

Example:
  go run ./cmd/voltarget signal today
  go run ./cmd/voltarget signal today --source db
  go run ./cmd/voltarget signal today --remote http://localhost:8089`,
		RunE: runSignalToday,
	}

	signalSource string
	signalRemote string
)

func init() {
	rootCmd.AddCommand(signalCmd)
	signalCmd.AddCommand(signalTodayCmd)

	signalTodayCmd.Flags().StringVar(&signalSource, "source", sourceCSV, "데이터 소스 (csv|db)")
	signalTodayCmd.Flags().StringVar(&signalRemote, "remote", "", "API 서버 주소 (예: http://localhost:8089)")
}

func runSignalToday(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := loadApp()
	if err != nil {
		return err
	}

	var latest *pipeline.LatestSignal
	if signalRemote != "" {
		latest, err = fetchRemoteSignal(ctx, a, signalRemote)
	} else {
		latest, err = computeSignal(ctx, a)
	}
	if err != nil {
		PrintError(err.Error())
		return err
	}

	PrintHeader(fmt.Sprintf("Signal %s (%s)", latest.StrategyID, latest.Date.Format("2006-01-02")))
	PrintKeyValue("Config", latest.ConfigHash, 10)
	printLatest(latest)
	return nil
}

func computeSignal(ctx context.Context, a *app) (*pipeline.LatestSignal, error) {
	if err := a.connect(ctx, signalSource == sourceDB); err != nil {
		return nil, err
	}
	defer a.Close()

	src, err := a.source(signalSource, zeroTime, zeroTime)
	if err != nil {
		return nil, err
	}
	runner, err := a.runner(src)
	if err != nil {
		return nil, err
	}
	return runner.LatestSignal(ctx)
}

func fetchRemoteSignal(ctx context.Context, a *app, base string) (*pipeline.LatestSignal, error) {
	// 대화형 명령: 재시도 1회만
	client := httputil.New(a.log, 10*time.Second).WithRetry(1, 500*time.Millisecond)

	var latest pipeline.LatestSignal
	url := strings.TrimRight(base, "/") + "/api/signal/latest"
	if err := client.GetJSON(ctx, url, &latest); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	return &latest, nil
}
