package cache

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/wonny/sas/internal/contracts"
	"github.com/wonny/sas/pkg/config"
)

// SQLite is a single-file result cache for local runs
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (and migrates) the cache at dsn. ":memory:" is supported.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// 인메모리 DB는 커넥션마다 별도 DB가 되므로 하나로 고정
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return s, nil
}

func (s *SQLite) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS result_cache (
			category   TEXT    NOT NULL,
			analyzer   TEXT    NOT NULL,
			range_key  TEXT    NOT NULL,
			seq        INTEGER NOT NULL,
			securities TEXT    NOT NULL,
			score      INTEGER NOT NULL,
			reason     TEXT    NOT NULL DEFAULT '',
			weight     INTEGER NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (category, analyzer, range_key, seq)
		)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return err
		}
	}
	return nil
}

// Name implements Backend
func (s *SQLite) Name() string { return config.CacheBackendSQLite }

// Close implements Backend
func (s *SQLite) Close() error { return s.db.Close() }

// Load implements contracts.ResultCache
func (s *SQLite) Load(ctx context.Context, category, analyzer string, tr contracts.TimeRange) ([]contracts.AnalysisResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT securities, score, reason, weight
		FROM result_cache
		WHERE category = ? AND analyzer = ? AND range_key = ?
		ORDER BY seq
	`, category, analyzer, tr.Key())
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

	return results, rows.Err()
}

// Store implements contracts.ResultCache
func (s *SQLite) Store(ctx context.Context, category, analyzer string, tr contracts.TimeRange, results []contracts.AnalysisResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM result_cache WHERE category = ? AND analyzer = ? AND range_key = ?`,
		category, analyzer, tr.Key(),
	); err != nil {
		return fmt.Errorf("failed to clear result cache: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO result_cache (category, analyzer, range_key, seq, securities, score, reason, weight)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range results {
		if _, err := stmt.ExecContext(ctx, category, analyzer, tr.Key(), i, r.Securities, r.Score, r.Reason, r.Weight); err != nil {
			return fmt.Errorf("failed to insert result: %w", err)
		}
	}

	return tx.Commit()
}
