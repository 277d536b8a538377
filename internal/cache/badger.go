package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/timshannon/badgerhold/v4"

	"github.com/wonny/sas/internal/contracts"
	"github.com/wonny/sas/pkg/config"
)

// badgerEntry is the stored record of one result set
type badgerEntry struct {
	Key       string
	Category  string `badgerhold:"index"`
	Analyzer  string `badgerhold:"index"`
	RangeKey  string
	Results   []contracts.AnalysisResult
	UpdatedAt time.Time
}

// Badger is an embedded key-value result cache
type Badger struct {
	store *badgerhold.Store
}

// NewBadger opens the store in dir, creating it if needed
func NewBadger(dir string) (*Badger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create badger directory: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = dir
	options.ValueDir = dir
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	return &Badger{store: store}, nil
}

// Name implements Backend
func (b *Badger) Name() string { return config.CacheBackendBadger }

// Close implements Backend
func (b *Badger) Close() error { return b.store.Close() }

// Load implements contracts.ResultCache
func (b *Badger) Load(_ context.Context, category, analyzer string, tr contracts.TimeRange) ([]contracts.AnalysisResult, error) {
	var entry badgerEntry
	err := b.store.Get(entryKey(category, analyzer, tr), &entry)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get result set: %w", err)
	}
	return entry.Results, nil
}

// Store implements contracts.ResultCache
func (b *Badger) Store(_ context.Context, category, analyzer string, tr contracts.TimeRange, results []contracts.AnalysisResult) error {
	key := entryKey(category, analyzer, tr)
	entry := badgerEntry{
		Key:       key,
		Category:  category,
		Analyzer:  analyzer,
		RangeKey:  tr.Key(),
		Results:   results,
		UpdatedAt: time.Now(),
	}

	if err := b.store.Upsert(key, &entry); err != nil {
		return fmt.Errorf("failed to upsert result set: %w", err)
	}
	return nil
}

// Analyzers lists analyzer ids with at least one cached range in category
func (b *Badger) Analyzers(category string) ([]string, error) {
	var entries []badgerEntry
	if err := b.store.Find(&entries, badgerhold.Where("Category").Eq(category).Index("Category")); err != nil {
		return nil, fmt.Errorf("failed to list result sets: %w", err)
	}

	seen := make(map[string]bool)
	var out []string
	for _, e := range entries {
		if !seen[e.Analyzer] {
			seen[e.Analyzer] = true
			out = append(out, e.Analyzer)
		}
	}
	return out, nil
}
