package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/sas/internal/analyzer"
	"github.com/wonny/sas/internal/catalog"
	"github.com/wonny/sas/pkg/config"
)

// analyzersCmd represents the analyzers command
var analyzersCmd = &cobra.Command{
	Use:   "analyzers",
	Short: "분석기 카탈로그",
}

var analyzersListCmd = &cobra.Command{
	Use:   "list",
	Short: "사용 가능한 분석기 목록",
	Long: `카탈로그에 등록되고 구현된 분석기를 출력합니다.
테스트용 분석기는 --all 일 때만 표시됩니다.`,
	RunE: listAnalyzers,
}

var listAll bool

func init() {
	rootCmd.AddCommand(analyzersCmd)
	analyzersCmd.AddCommand(analyzersListCmd)

	analyzersListCmd.Flags().BoolVar(&listAll, "all", false, "테스트/미구현 분석기 포함")
}

func listAnalyzers(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	cat, err := catalog.Load(cfg.Analysis.CatalogPath)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	registry := analyzer.DefaultRegistry()
	implemented := func(id string) bool {
		_, err := registry.Get(id)
		return err == nil
	}

	var entries []catalog.Entry
	if listAll {
		entries = cat.Entries()
	} else {
		entries = cat.List(implemented)
	}

	widths := []int{10, 16, 6, 40}
	PrintTableHeader([]string{"ID", "Name", "Ready", "Detail"}, widths)
	for _, e := range entries {
		ready := "yes"
		if !implemented(e.ID) {
			ready = "no"
		}
		PrintTableRow([]string{e.ID, e.Name, ready, e.Detail}, widths)
	}

	return nil
}
