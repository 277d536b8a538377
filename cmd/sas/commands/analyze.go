package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/wonny/sas/internal/contracts"
	"github.com/wonny/sas/internal/progress"
	"github.com/wonny/sas/internal/task"
	"github.com/wonny/sas/pkg/config"
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "분석 실행",
}

var analyzeRunCmd = &cobra.Command{
	Use:   "run",
	Short: "분석을 실행하고 리포트를 생성",
	Long: `선택한 분석기의 결과를 확보하고 리포트를 생성합니다.

결과 소스 우선순위:
  --from-json  디버그 스냅샷 (<project>/TestData/<ANALYZER>.json)
  캐시         --force-calc 이면 건너뜀
  계산         --no-cache-result 가 아니면 캐시에 저장

Example:
  go run ./cmd/sas analyze run
  go run ./cmd/sas analyze run --analyzers MACD,FLOW --since 2020-01-01 --output report.csv
  go run ./cmd/sas analyze run --options 3075`,
	RunE: runAnalyze,
}

// analyzeFlags are the run settings of one CLI submission
type analyzeFlags struct {
	analyzers     []string
	securities    []string
	since         string
	until         string
	output        string
	outputChanged bool
	forceCalc     bool
	noCacheResult bool
	fromJSON      bool
	dumpJSON      bool
	mask          int // -1 = use toggles
	tui           bool
	logFile       string
}

var runFlags analyzeFlags

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.AddCommand(analyzeRunCmd)

	f := analyzeRunCmd.Flags()
	f.StringSliceVar(&runFlags.analyzers, "analyzers", nil, "분석기 ID 목록 (기본: 카탈로그 전체)")
	f.StringSliceVar(&runFlags.securities, "securities", nil, "종목 코드 목록 (기본: 전체 종목)")
	f.StringVar(&runFlags.since, "since", "", "시작일 YYYY-MM-DD (기본: 5년 전)")
	f.StringVar(&runFlags.until, "until", "", "종료일 YYYY-MM-DD (기본: 오늘)")
	f.StringVarP(&runFlags.output, "output", "o", "", "리포트 경로 .xlsx/.csv/.pdf (기본: SAS_REPORT_PATH)")
	f.BoolVar(&runFlags.forceCalc, "force-calc", false, "캐시를 무시하고 다시 계산")
	f.BoolVar(&runFlags.noCacheResult, "no-cache-result", false, "계산 결과를 캐시에 저장하지 않음")
	f.BoolVar(&runFlags.fromJSON, "from-json", false, "디버그 스냅샷에서 결과를 읽음")
	f.BoolVar(&runFlags.dumpJSON, "dump-json", false, "결과를 디버그 스냅샷으로 저장")
	f.IntVar(&runFlags.mask, "options", -1, "레거시 옵션 비트마스크 (1|2|16|1024|2048), 토글 플래그보다 우선")
	f.BoolVar(&runFlags.tui, "tui", false, "터미널 진행률 화면 사용 (로그는 --log-file 로 기록)")
	f.StringVar(&runFlags.logFile, "log-file", "sas-analyze.log", "--tui 사용 시 로그 파일 경로")
}

// request builds the RunRequest; analyzers default to defaults when none are given
func (f analyzeFlags) request(analysis config.AnalysisConfig, defaults []string, now time.Time) (contracts.RunRequest, error) {
	tr, err := contracts.ParseTimeRange(f.since, f.until, now, analysis.LookbackYears)
	if err != nil {
		return contracts.RunRequest{}, err
	}

	var opts contracts.Options
	if f.mask >= 0 {
		opts = contracts.OptionsFromMask(f.mask)
	} else {
		opts = contracts.ToggleOptions(f.forceCalc, !f.noCacheResult)
		opts.FromJSON = f.fromJSON
		opts.DumpJSON = f.dumpJSON
	}

	// 명시적으로 빈 경로를 주면 검증에서 거부된다
	output := f.output
	if !f.outputChanged {
		output = analysis.ReportPath
	}

	analyzers := contracts.NormalizeIDs(f.analyzers)
	if len(analyzers) == 0 {
		analyzers = defaults
	}

	return contracts.RunRequest{
		Securities: contracts.NormalizeIDs(f.securities),
		Analyzers:  analyzers,
		TimeRange:  tr,
		Options:    opts,
		OutputPath: output,
		Trigger:    contracts.TriggerManual,
	}, nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	runFlags.outputChanged = cmd.Flags().Changed("output")

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// 진행률 화면과 로그가 섞이지 않도록 TUI 모드에서는 로그를 파일로 보낸다
	useTUI := runFlags.tui && term.IsTerminal(int(os.Stdout.Fd()))
	var logOut io.Writer
	if useTUI {
		f, err := os.OpenFile(runFlags.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}

	a, err := newAppWithLog(ctx, logOut)
	if err != nil {
		return err
	}
	defer a.Close()

	req, err := runFlags.request(a.cfg.Analysis, a.defaultAnalyzers(), time.Now())
	if err != nil {
		PrintError(err.Error())
		return err
	}

	done := task.NewChanObserver()
	runID, err := a.runner.Submit(ctx, req, done)
	if err != nil {
		PrintError(err.Error())
		return err
	}

	PrintDoubleSeparator()
	fmt.Println("  Analysis Run")
	PrintSeparator()
	PrintKeyValue("Run ID", runID, 9)
	PrintKeyValue("Analyzers", strings.Join(req.Analyzers, ", "), 9)
	PrintKeyValue("Period", req.TimeRange.String(), 9)
	PrintKeyValue("Options", req.Options.String(), 9)
	PrintSeparator()

	var completion contracts.Completion
	if useTUI {
		completion, err = runProgressView(done, a.runner.Tracker(), req.Analyzers, a.cfg.Analysis.PollInterval)
		if err != nil {
			// 실행은 취소되지 않는다: a.Close 가 워커 종료까지 기다린다
			PrintError(err.Error())
			return err
		}
	} else {
		completion = waitWithProgress(done, a.runner.Tracker(), req.Analyzers, a.cfg.Analysis.PollInterval)
	}

	fmt.Println()
	if completion.Err != nil {
		PrintError(fmt.Sprintf("Analysis failed: %v", completion.Err))
		return completion.Err
	}

	PrintSuccess(fmt.Sprintf("Analysis finished in %s (%d results)", completion.Elapsed.Round(time.Millisecond), completion.Results))
	PrintKeyValue("Report", completion.OutputPath, 9)
	return nil
}

// waitWithProgress polls the tracker until the completion arrives. Interrupts
// are reported but do not abort the run.
func waitWithProgress(done task.ChanObserver, tracker *progress.Tracker, analyzers []string, interval time.Duration) contracts.Completion {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	for {
		select {
		case completion := <-done:
			fmt.Println(progressLine(tracker, analyzers))
			return completion
		case <-ticker.C:
			fmt.Println(progressLine(tracker, analyzers))
		case <-quit:
			PrintWarning("Analysis is running and cannot be cancelled; waiting for it to finish")
		}
	}
}

// progressLine renders "MACD 12.34% | FLOW -" for the polled tracker
func progressLine(tracker *progress.Tracker, analyzers []string) string {
	parts := make([]string, 0, len(analyzers))
	for _, id := range analyzers {
		pct := tracker.Percent(id)
		if pct == "" {
			pct = "-"
		}
		parts = append(parts, fmt.Sprintf("%s %s", id, pct))
	}
	return strings.Join(parts, " | ")
}
