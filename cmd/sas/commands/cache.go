package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/sas/internal/cache"
	"github.com/wonny/sas/internal/contracts"
)

// cacheCmd represents the cache command
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "결과 캐시 조회",
}

var cacheGetCmd = &cobra.Command{
	Use:   "get [analyzer]",
	Short: "캐시된 분석 결과 조회",
	Long: `분석기 + 기간 키로 캐시된 결과를 출력합니다.

Example:
  go run ./cmd/sas cache get MACD
  go run ./cmd/sas cache get FLOW --since 2020-01-01 --until 2024-12-31 --limit 0`,
	Args: cobra.ExactArgs(1),
	RunE: getCached,
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "캐시된 분석기 목록",
	Long: `결과 캐시에 한 기간 이상 저장된 분석기를 출력합니다 (badger, memory 백엔드).

Example:
  go run ./cmd/sas cache list`,
	Args: cobra.NoArgs,
	RunE: listCached,
}

var (
	cacheSince string
	cacheUntil string
	cacheLimit int
)

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheGetCmd)
	cacheCmd.AddCommand(cacheListCmd)

	cacheGetCmd.Flags().StringVar(&cacheSince, "since", "", "시작일 YYYY-MM-DD (기본: 5년 전)")
	cacheGetCmd.Flags().StringVar(&cacheUntil, "until", "", "종료일 YYYY-MM-DD (기본: 오늘)")
	cacheGetCmd.Flags().IntVar(&cacheLimit, "limit", 20, "출력할 최대 행 수 (0 = 전체)")
}

func getCached(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	analyzerID := strings.ToUpper(args[0])
	tr, err := contracts.ParseTimeRange(cacheSince, cacheUntil, time.Now(), a.cfg.Analysis.LookbackYears)
	if err != nil {
		return err
	}

	results, err := a.cache.Load(ctx, contracts.ResultCategory, analyzerID, tr)
	if err != nil {
		return fmt.Errorf("load cache: %w", err)
	}

	PrintKeyValue("Backend", a.cache.Name(), 8)
	PrintKeyValue("Analyzer", analyzerID, 8)
	PrintKeyValue("Period", tr.String(), 8)
	PrintKeyValue("Results", strconv.Itoa(len(results)), 8)

	if len(results) == 0 {
		PrintInfo("No cached result for this analyzer and period")
		return nil
	}

	fmt.Println()
	widths := []int{10, 6, 6, 50}
	PrintTableHeader([]string{"Code", "Score", "Weight", "Reason"}, widths)
	for i, r := range results {
		if cacheLimit > 0 && i >= cacheLimit {
			PrintInfo(fmt.Sprintf("%d more rows", len(results)-cacheLimit))
			break
		}
		PrintTableRow([]string{r.Securities, strconv.Itoa(r.Score), strconv.Itoa(r.Weight), r.Reason}, widths)
	}

	return nil
}

func listCached(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	PrintKeyValue("Backend", a.cache.Name(), 8)
	return printCachedAnalyzers(a.cache)
}

// printCachedAnalyzers prints one row per cached analyzer id
func printCachedAnalyzers(c contracts.ResultCache) error {
	ids, err := cache.ListAnalyzers(c, contracts.ResultCategory)
	if errors.Is(err, cache.ErrListUnsupported) {
		PrintInfo("This cache backend cannot list analyzers; use `cache get <analyzer>`")
		return nil
	}
	if err != nil {
		return fmt.Errorf("list cache: %w", err)
	}

	PrintKeyValue("Analyzers", strconv.Itoa(len(ids)), 8)
	if len(ids) == 0 {
		PrintInfo("Cache is empty")
		return nil
	}

	fmt.Println()
	for _, id := range ids {
		fmt.Printf("  %s\n", id)
	}
	return nil
}
