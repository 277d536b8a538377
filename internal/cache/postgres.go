package cache

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/sas/internal/contracts"
	"github.com/wonny/sas/pkg/config"
)

// Postgres stores one row per AnalysisResult in analysis.result_cache
// ⭐ SSOT: PostgreSQL 결과 캐시 저장/조회는 여기서만
type Postgres struct {
	pool *pgxpool.Pool
}

var postgresMigrations = []string{
	`CREATE SCHEMA IF NOT EXISTS analysis`,
	`CREATE TABLE IF NOT EXISTS analysis.result_cache (
		category   TEXT        NOT NULL,
		analyzer   TEXT        NOT NULL,
		range_key  TEXT        NOT NULL,
		seq        INTEGER     NOT NULL,
		since      TIMESTAMPTZ NOT NULL,
		until      TIMESTAMPTZ NOT NULL,
		securities TEXT        NOT NULL,
		score      SMALLINT    NOT NULL,
		reason     TEXT        NOT NULL DEFAULT '',
		weight     INTEGER     NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (category, analyzer, range_key, seq)
	)`,
}

// NewPostgres creates the cache and makes sure its table exists
func NewPostgres(ctx context.Context, pool *pgxpool.Pool) (*Postgres, error) {
	for _, stmt := range postgresMigrations {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return nil, fmt.Errorf("failed to migrate result cache: %w", err)
		}
	}
	return &Postgres{pool: pool}, nil
}

// Name implements Backend
func (p *Postgres) Name() string { return config.CacheBackendPostgres }

// Close implements Backend. The pool is owned by the caller.
func (p *Postgres) Close() error { return nil }

// Load implements contracts.ResultCache
func (p *Postgres) Load(ctx context.Context, category, analyzer string, tr contracts.TimeRange) ([]contracts.AnalysisResult, error) {
	query := `
		SELECT securities, score, reason, weight
		FROM analysis.result_cache
		WHERE category = $1 AND analyzer = $2 AND range_key = $3
		ORDER BY seq
	`

	rows, err := p.pool.Query(ctx, query, category, analyzer, tr.Key())
	if err != nil {
		return nil, fmt.Errorf("failed to query result cache: %w", err)
	}
	defer rows.Close()

	var results []contracts.AnalysisResult
	for rows.Next() {
		r := contracts.AnalysisResult{Analyzer: analyzer}
		if err := rows.Scan(&r.Securities, &r.Score, &r.Reason, &r.Weight); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return results, nil
}

// Store implements contracts.ResultCache. Replaces the previous rows of the key.
func (p *Postgres) Store(ctx context.Context, category, analyzer string, tr contracts.TimeRange, results []contracts.AnalysisResult) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		DELETE FROM analysis.result_cache
		WHERE category = $1 AND analyzer = $2 AND range_key = $3
	`, category, analyzer, tr.Key())
	if err != nil {
		return fmt.Errorf("failed to clear result cache: %w", err)
	}

	rows := make([][]interface{}, 0, len(results))
	for i, r := range results {
		rows = append(rows, []interface{}{
			category, analyzer, tr.Key(), i, tr.Since, tr.Until,
			r.Securities, r.Score, r.Reason, r.Weight,
		})
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"analysis", "result_cache"},
		[]string{"category", "analyzer", "range_key", "seq", "since", "until", "securities", "score", "reason", "weight"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("failed to copy results: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
