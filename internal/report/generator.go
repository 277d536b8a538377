package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/wonny/sas/internal/catalog"
	"github.com/wonny/sas/internal/contracts"
	"github.com/wonny/sas/pkg/logger"
)

// Generator turns an aggregated result set into a report file
// ⭐ SSOT: 리포트 생성 진입점
type Generator struct {
	securities contracts.SecuritySource
	catalog    *catalog.Catalog
	logger     *logger.Logger
}

// NewGenerator creates a report generator. securities may be nil, in which
// case the name column is left blank.
func NewGenerator(securities contracts.SecuritySource, cat *catalog.Catalog, log *logger.Logger) *Generator {
	if cat == nil {
		cat = catalog.Default()
	}
	return &Generator{
		securities: securities,
		catalog:    cat,
		logger:     log.WithComponent("report"),
	}
}

// Generate writes results to path. Any error is fatal for the run.
func (g *Generator) Generate(ctx context.Context, results []contracts.AnalysisResult, path string) error {
	start := time.Now()

	writer, err := WriterFor(path)
	if err != nil {
		return err
	}

	// ------------ Parse to Table ------------
	table := ToTable(results)

	// ------------- Collect Info -------------
	names := Names{Analyzers: g.catalog.NameDict(), Securities: map[string]string{}}
	if g.securities != nil {
		list, err := g.securities.SecurityList(ctx)
		if err != nil {
			return fmt.Errorf("collect security names: %w", err)
		}
		for _, s := range list {
			names.Securities[s.Code] = s.Name
		}
	}

	// ----------- Generate report ------------
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
	}
	if err := writer.Write(path, table, names); err != nil {
		return err
	}

	g.logger.WithElapsed(time.Since(start)).WithFields(map[string]interface{}{
		"path":      path,
		"rows":      len(table.Rows),
		"analyzers": len(table.Analyzers),
	}).Info("Generate report finished")
	return nil
}
