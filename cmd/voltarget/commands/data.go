package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/wonny/voltarget/internal/marketdata"
)

// dataCmd represents the data command
var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "시장 데이터 관리",
	Long: `CSV 시장 데이터를 PostgreSQL로 가져오거나 저장된 시계열을 조회합니다.

Subcommands:
  import  - DATA_DIR 의 CSV 3종을 data.market_series 로 적재
  list    - 저장된 시계열 범위 조회

Example:
  go run ./cmd/voltarget data import
  go run ./cmd/voltarget data list`,
}

var (
	dataImportCmd = &cobra.Command{
		Use:   "import",
		Short: "CSV → DB 적재",
		RunE:  runDataImport,
	}

	dataListCmd = &cobra.Command{
		Use:   "list",
		Short: "저장된 시계열 조회",
		RunE:  runDataList,
	}
)

func init() {
	rootCmd.AddCommand(dataCmd)
	dataCmd.AddCommand(dataImportCmd)
	dataCmd.AddCommand(dataListCmd)
}

func runDataImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := loadApp()
	if err != nil {
		return err
	}
	if err := a.connect(ctx, true); err != nil {
		return err
	}
	defer a.Close()

	src, err := a.source(sourceCSV, zeroTime, zeroTime)
	if err != nil {
		return err
	}

	PrintHeader("Market Data Import")
	PrintKeyValue("Source", src.Describe(), 8)

	in, err := src.Load(ctx)
	if err != nil {
		PrintError(err.Error())
		return err
	}

	names := a.seriesNames()
	n, err := marketdata.NewRepository(a.db.Pool).Import(ctx, in, names)
	if err != nil {
		PrintError(err.Error())
		return err
	}

	PrintKeyValue(names.Price, strconv.Itoa(in.Price.Len()), 8)
	PrintKeyValue(names.VolIndex, strconv.Itoa(in.VolIndex.Len()), 8)
	PrintKeyValue(names.Rate, strconv.Itoa(in.Rate.Len()), 8)
	PrintSeparator()
	PrintSuccess(fmt.Sprintf("%d observations stored", n))
	return nil
}

func runDataList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := loadApp()
	if err != nil {
		return err
	}
	if err := a.connect(ctx, true); err != nil {
		return err
	}
	defer a.Close()

	infos, err := marketdata.NewRepository(a.db.Pool).ListSeries(ctx)
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		PrintInfo("No series stored (run: voltarget data import)")
		return nil
	}

	widths := []int{12, 12, 12, 8}
	PrintTableHeader([]string{"Series", "First", "Last", "Count"}, widths)
	for _, info := range infos {
		PrintTableRow([]string{
			info.Name,
			info.First.Format("2006-01-02"),
			info.Last.Format("2006-01-02"),
			strconv.Itoa(info.Count),
		}, widths)
	}
	return nil
}
