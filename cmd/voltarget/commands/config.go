package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/voltarget/internal/strategyconfig"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "전략 설정 관리",
	Long: `전략 설정 YAML을 검증하거나 생성합니다.

Subcommands:
  validate  - 설정 검증 (오류 + 경고)
  hash      - 설정 해시 출력 (캐시/실행 키)
  init      - 기본 설정 파일 생성
  show      - 적용될 설정 출력

Example:
  go run ./cmd/voltarget config init strategy.yaml
  go run ./cmd/voltarget config validate --config strategy.yaml`,
}

var (
	configValidateCmd = &cobra.Command{
		Use:   "validate",
		Short: "설정 검증",
		RunE:  runConfigValidate,
	}

	configHashCmd = &cobra.Command{
		Use:   "hash",
		Short: "설정 해시 출력",
		RunE:  runConfigHash,
	}

	configInitCmd = &cobra.Command{
		Use:   "init [path]",
		Short: "기본 설정 파일 생성",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runConfigInit,
	}

	configShowCmd = &cobra.Command{
		Use:   "show",
		Short: "적용될 설정 출력",
		RunE:  runConfigShow,
	}
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configHashCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := strategyconfig.LoadOrDefault(configFile)
	if err != nil {
		PrintError(err.Error())
		return err
	}

	warnings := strategyconfig.Warn(cfg)
	for _, w := range warnings {
		PrintWarning(fmt.Sprintf("[%s] %s", w.Code, w.Message))
	}

	source := configFile
	if source == "" {
		source = "built-in defaults"
	}
	PrintSuccess(fmt.Sprintf("%s is valid (%d warnings)", source, len(warnings)))
	return nil
}

func runConfigHash(cmd *cobra.Command, args []string) error {
	cfg, err := strategyconfig.LoadOrDefault(configFile)
	if err != nil {
		return err
	}
	hash, err := strategyconfig.Hash(cfg)
	if err != nil {
		return err
	}
	fmt.Println(hash)
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := "strategy.yaml"
	if len(args) == 1 {
		path = args[0]
	}
	if err := strategyconfig.WriteDefault(path); err != nil {
		PrintError(err.Error())
		return err
	}
	PrintSuccess(fmt.Sprintf("Default strategy config written to %s", path))
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := strategyconfig.LoadOrDefault(configFile)
	if err != nil {
		return err
	}
	data, err := strategyconfig.Marshal(cfg)
	if err != nil {
		return err
	}
	fmt.Print(string(data))
	return nil
}
