package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	env        string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "voltarget",
	Short: "EWMA 변동성 타겟팅 오버레이",
	Long: `voltarget Unified CLI

단일 자산 + 현금 오버레이: EWMA 변동성 타겟, 추세 필터, VIX 게이트.
비용 반영 백테스트와 Buy&Hold / Vol-matched 벤치마크 비교.

Usage:
  go run ./cmd/voltarget [command]

Examples:
  go run ./cmd/voltarget backtest run
  go run ./cmd/voltarget signal today
  go run ./cmd/voltarget config validate --config strategy.yaml
  go run ./cmd/voltarget api`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "strategy config YAML (default: STRATEGY_CONFIG or built-in defaults)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "environment override (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
