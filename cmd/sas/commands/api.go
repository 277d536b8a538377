package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/sas/internal/api"
	"github.com/wonny/sas/internal/notify"
	"github.com/wonny/sas/internal/task"
	"github.com/wonny/sas/pkg/redis"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

이 명령어는:
- HTTP API 서버 시작
- 분석 실행 제출과 진행률 조회
- 완료 이벤트 WebSocket 푸시와 웹훅 전송

Endpoints:
  GET  /health               - Health check
  GET  /api/analyzers        - 분석기 목록
  POST /api/runs             - 분석 실행 제출
  GET  /api/runs/last        - 마지막 실행 결과
  GET  /api/progress         - 분석기별 진행률
  GET  /ws/runs              - 진행률/완료 이벤트 (WebSocket)
  GET  /metrics              - Prometheus metrics

Example:
  go run ./cmd/sas api
  go run ./cmd/sas api --port 8080 --with-scheduler`,
	RunE: runAPIServer,
}

var (
	apiPort       string
	withScheduler bool
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본: PORT)")
	apiCmd.Flags().BoolVar(&withScheduler, "with-scheduler", false, "ANALYSIS_SCHEDULE 에 따라 스케줄 실행도 함께 시작")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== SAS API Server ===")

	a, err := newApp(context.Background())
	if err != nil {
		return err
	}
	defer a.Close()

	if apiPort != "" {
		a.cfg.Port = apiPort
	}
	log := a.log

	// Completion fan-out: websocket clients and webhook
	hub := api.NewHub(log)
	defer hub.Close()

	limiter := redis.NewRateLimiter(a.redis, "sas")
	webhook := notify.NewWebhook(a.cfg.Notify.WebhookURL, a.cfg.Notify.Timeout, limiter, log)
	observer := task.MultiObserver{hub, webhook}

	var metricsHandler http.Handler
	if a.cfg.MetricsEnabled {
		metricsHandler = a.metrics.Handler()
	}

	handler := api.NewHandler(a.runner, a.catalog, a.available, observer, a.cfg.Analysis, log)
	router := api.NewRouter(handler, hub, metricsHandler, log)
	server := api.New(a.cfg, log, router, a.runner)

	streamCtx, stopStream := context.WithCancel(context.Background())
	defer stopStream()
	go hub.StreamProgress(streamCtx, a.runner.Tracker(), a.runner.Busy, a.cfg.Analysis.PollInterval)

	if withScheduler {
		sched, err := newScheduler(a, observer)
		if err != nil {
			return fmt.Errorf("init scheduler: %w", err)
		}
		sched.Start()
		defer sched.Stop()
	}

	// Start server with graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	log.Info("API server started successfully")
	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal or server failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-quit:
	}

	log.Info("Shutting down server...")

	// 분석이 진행 중이면 끝날 때까지 기다린다 (최대 30분)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
