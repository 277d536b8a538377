package commands

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sas",
	Short: "SAS - 종목 분석 작업 오케스트레이터",
	Long: `SAS Unified CLI

분석기별 결과를 JSON 스냅샷 > 캐시 > 계산 순서로 확보하고
종목 x 분석기 리포트(xlsx, csv, pdf)를 생성합니다.

Usage:
  go run ./cmd/sas [command]

Examples:
  go run ./cmd/sas analyze run --analyzers MACD,FLOW
  go run ./cmd/sas analyzers list
  go run ./cmd/sas api
  go run ./cmd/sas scheduler start`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configFile != "" {
			if err := godotenv.Overload(configFile); err != nil {
				return fmt.Errorf("load env file %s: %w", configFile, err)
			}
		}
		if verbose {
			os.Setenv("LOG_LEVEL", "debug")
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "env file (default is .env)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
