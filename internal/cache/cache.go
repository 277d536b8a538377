package cache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/wonny/sas/internal/contracts"
	"github.com/wonny/sas/pkg/config"
	"github.com/wonny/sas/pkg/database"
	"github.com/wonny/sas/pkg/redis"
)

// Backend is a ResultCache owning a resource that must be released
// ⭐ SSOT: 결과 캐시 백엔드 공통 인터페이스
type Backend interface {
	contracts.ResultCache
	Name() string
	Close() error
}

// Lister is implemented by backends that can enumerate cached analyzers
type Lister interface {
	Analyzers(category string) ([]string, error)
}

// ErrListUnsupported is returned by ListAnalyzers for backends without an index
var ErrListUnsupported = errors.New("backend cannot list cached analyzers")

// ListAnalyzers returns the sorted analyzer ids cached under category
func ListAnalyzers(c contracts.ResultCache, category string) ([]string, error) {
	l, ok := c.(Lister)
	if !ok {
		return nil, ErrListUnsupported
	}
	ids, err := l.Analyzers(category)
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)
	return ids, nil
}

// Deps carries already-opened connections a backend may reuse
type Deps struct {
	DB    *database.DB
	Redis *redis.Client
}

// New opens the backend selected by cfg.Cache.Backend
func New(ctx context.Context, cfg *config.Config, deps Deps) (Backend, error) {
	switch cfg.Cache.Backend {
	case config.CacheBackendPostgres:
		if deps.DB == nil {
			return nil, fmt.Errorf("postgres cache requires a database connection")
		}
		return NewPostgres(ctx, deps.DB.Pool)
	case config.CacheBackendRedis:
		if deps.Redis == nil || !deps.Redis.Enabled() {
			return nil, fmt.Errorf("redis cache requires an enabled redis client")
		}
		return NewRedis(deps.Redis, cfg.Cache.TTL), nil
	case config.CacheBackendSQLite:
		return NewSQLite(cfg.Cache.SQLitePath)
	case config.CacheBackendBadger:
		return NewBadger(cfg.Cache.BadgerPath)
	case config.CacheBackendMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown cache backend: %s", cfg.Cache.Backend)
	}
}

// entryKey is the flat key shared by key-value backends
func entryKey(category, analyzer string, tr contracts.TimeRange) string {
	return redis.ResultKey(category, analyzer, tr.Key())
}

// Memory is a process-local cache, used for tests and one-shot CLI runs
type Memory struct {
	mu      sync.RWMutex
	entries map[string][]contracts.AnalysisResult

	// category → analyzer ids
	index map[string]map[string]struct{}
}

// NewMemory creates an empty memory cache
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string][]contracts.AnalysisResult),
		index:   make(map[string]map[string]struct{}),
	}
}

// Name implements Backend
func (m *Memory) Name() string { return config.CacheBackendMemory }

// Close implements Backend
func (m *Memory) Close() error { return nil }

// Load implements contracts.ResultCache
func (m *Memory) Load(_ context.Context, category, analyzer string, tr contracts.TimeRange) ([]contracts.AnalysisResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored := m.entries[entryKey(category, analyzer, tr)]
	if len(stored) == 0 {
		return nil, nil
	}
	out := make([]contracts.AnalysisResult, len(stored))
	copy(out, stored)
	return out, nil
}

// Store implements contracts.ResultCache
func (m *Memory) Store(_ context.Context, category, analyzer string, tr contracts.TimeRange, results []contracts.AnalysisResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := make([]contracts.AnalysisResult, len(results))
	copy(stored, results)
	m.entries[entryKey(category, analyzer, tr)] = stored

	if m.index[category] == nil {
		m.index[category] = make(map[string]struct{})
	}
	m.index[category][analyzer] = struct{}{}
	return nil
}

// Analyzers implements Lister
func (m *Memory) Analyzers(category string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, 0, len(m.index[category]))
	for id := range m.index[category] {
		out = append(out, id)
	}
	return out, nil
}

// Len returns the number of cached result sets
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
