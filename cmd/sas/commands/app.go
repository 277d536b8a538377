package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/wonny/sas/internal/analyzer"
	"github.com/wonny/sas/internal/cache"
	"github.com/wonny/sas/internal/catalog"
	"github.com/wonny/sas/internal/data"
	"github.com/wonny/sas/internal/metrics"
	"github.com/wonny/sas/internal/report"
	"github.com/wonny/sas/internal/resolver"
	"github.com/wonny/sas/internal/snapshot"
	"github.com/wonny/sas/internal/task"
	"github.com/wonny/sas/pkg/config"
	"github.com/wonny/sas/pkg/database"
	"github.com/wonny/sas/pkg/logger"
	"github.com/wonny/sas/pkg/redis"
)

// app holds every wired component a command needs
type app struct {
	cfg       *config.Config
	log       *logger.Logger
	db        *database.DB
	redis     *redis.Client
	cache     cache.Backend
	engine    *analyzer.Engine
	catalog   *catalog.Catalog
	snapshots *snapshot.Store
	metrics   *metrics.Recorder
	runner    *task.Runner
}

// newApp loads config and wires the analysis stack
// config → logger → database → redis → cache → engine → resolver → orchestrator → runner
func newApp(ctx context.Context) (*app, error) {
	return newAppWithLog(ctx, nil)
}

// newAppWithLog is newApp with logs written to logOut (stdout when nil)
func newAppWithLog(ctx context.Context, logOut io.Writer) (*app, error) {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	// 2. Initialize logger
	log := logger.New(cfg)
	if logOut != nil {
		log = logger.NewWithWriter(cfg, logOut)
	}

	a := &app{cfg: cfg, log: log}

	// 3. Connect to database (market data, security universe)
	a.db, err = database.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	// 4. Connect to redis (disabled client when REDIS_ENABLED=false)
	a.redis, err = redis.New(cfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	// 5. Open result cache
	a.cache, err = cache.New(ctx, cfg, cache.Deps{DB: a.db, Redis: a.redis})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open result cache: %w", err)
	}

	// 6. Load analyzer catalog
	a.catalog, err = catalog.Load(cfg.Analysis.CatalogPath)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	// 7. Analysis engine, snapshots, metrics
	// ⭐ SSOT: 프로젝트/디버그 경로는 task.Paths 가 소유
	paths := task.Paths{
		Project: cfg.Analysis.ProjectPath,
		Debug:   cfg.Analysis.DebugPath(),
	}
	securities := data.NewStockRepository(a.db.Pool)
	a.engine = analyzer.NewEngine(analyzer.DefaultRegistry(), data.NewMarketData(a.db.Pool), log)
	a.snapshots = snapshot.NewStore(paths.Debug)
	a.metrics = metrics.New()

	// 8. Resolver → orchestrator → runner
	res := resolver.New(a.cache, a.engine, a.snapshots, log).WithMetrics(a.metrics)
	reporter := report.NewGenerator(securities, a.catalog, log)
	orch := task.NewOrchestrator(securities, res, reporter, log).WithMetrics(a.metrics)
	a.runner = task.NewRunner(orch, paths, log).WithMetrics(a.metrics)

	log.WithFields(map[string]interface{}{
		"cache":   a.cache.Name(),
		"project": a.runner.Paths().Project,
		"debug":   a.runner.Paths().Debug,
	}).Info("Analysis stack initialized")

	return a, nil
}

// available reports whether the engine implements analyzer id
func (a *app) available(id string) bool {
	_, err := a.engine.Registry().Get(id)
	return err == nil
}

// defaultAnalyzers lists every visible, implemented catalog analyzer
func (a *app) defaultAnalyzers() []string {
	entries := a.catalog.List(a.available)
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	return ids
}

// Close drains the runner and releases connections in reverse order
func (a *app) Close() {
	if a.runner != nil {
		a.runner.Close()
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.log.WithError(err).Warn("Failed to close result cache")
		}
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}
