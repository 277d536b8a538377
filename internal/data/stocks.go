package data

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/sas/internal/contracts"
)

// StockRepository implements contracts.SecuritySource over data.stocks
// ⭐ SSOT: 종목 목록 조회는 여기서만
type StockRepository struct {
	pool *pgxpool.Pool
}

// NewStockRepository creates a new stock repository
func NewStockRepository(pool *pgxpool.Pool) *StockRepository {
	return &StockRepository{pool: pool}
}

// SecurityIdentities returns codes of all active stocks, ordered by code
func (r *StockRepository) SecurityIdentities(ctx context.Context) ([]string, error) {
	query := `
		SELECT code
		FROM data.stocks
		WHERE status = 'active'
		ORDER BY code
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query stock codes: %w", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("scan stock code: %w", err)
		}
		codes = append(codes, code)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return codes, nil
}

// SecurityList returns code, name and market of all active stocks
func (r *StockRepository) SecurityList(ctx context.Context) ([]contracts.Security, error) {
	query := `
		SELECT code, name, market
		FROM data.stocks
		WHERE status = 'active'
		ORDER BY code
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query active stocks: %w", err)
	}
	defer rows.Close()

	var stocks []contracts.Security
	for rows.Next() {
		var s contracts.Security
		if err := rows.Scan(&s.Code, &s.Name, &s.Market); err != nil {
			return nil, fmt.Errorf("scan stock: %w", err)
		}
		stocks = append(stocks, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return stocks, nil
}

// StaticSource is a fixed in-memory security universe
type StaticSource []contracts.Security

// SecurityIdentities implements contracts.SecuritySource
func (s StaticSource) SecurityIdentities(context.Context) ([]string, error) {
	codes := make([]string, len(s))
	for i, sec := range s {
		codes[i] = sec.Code
	}
	return codes, nil
}

// SecurityList implements contracts.SecuritySource
func (s StaticSource) SecurityList(context.Context) ([]contracts.Security, error) {
	out := make([]contracts.Security, len(s))
	copy(out, s)
	return out, nil
}

// NameDict maps security code to display name
func NameDict(list []contracts.Security) map[string]string {
	names := make(map[string]string, len(list))
	for _, s := range list {
		names[s.Code] = s.Name
	}
	return names
}
