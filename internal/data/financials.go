package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/sas/internal/contracts"
)

// FinancialRepository implements contracts.FinancialRepository
// ⭐ SSOT: 재무 데이터 조회는 여기서만
type FinancialRepository struct {
	pool *pgxpool.Pool
}

// NewFinancialRepository creates a new financial repository
func NewFinancialRepository(pool *pgxpool.Pool) *FinancialRepository {
	return &FinancialRepository{pool: pool}
}

// GetLatestByCode retrieves the most recent financial data reported on or before asOf.
// Returns nil without error when the code has no fundamentals.
func (r *FinancialRepository) GetLatestByCode(ctx context.Context, code string, asOf time.Time) (*contracts.Financial, error) {
	query := `
		SELECT stock_code, report_date,
		       COALESCE(roe, 0), COALESCE(debt_ratio, 0),
		       COALESCE(per, 0), COALESCE(pbr, 0), COALESCE(psr, 0)
		FROM data.fundamentals
		WHERE stock_code = $1 AND report_date <= $2
		ORDER BY report_date DESC
		LIMIT 1
	`

	var f contracts.Financial
	err := r.pool.QueryRow(ctx, query, code, asOf).Scan(
		&f.Code, &f.AsOf, &f.ROE, &f.DebtRatio, &f.PER, &f.PBR, &f.PSR,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query fundamentals: %w", err)
	}
	return &f, nil
}
