package data

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/sas/internal/contracts"
)

// InvestorFlowRepository implements contracts.InvestorFlowRepository
// ⭐ SSOT: 수급 데이터 조회는 여기서만
type InvestorFlowRepository struct {
	pool *pgxpool.Pool
}

// NewInvestorFlowRepository creates a new investor flow repository
func NewInvestorFlowRepository(pool *pgxpool.Pool) *InvestorFlowRepository {
	return &InvestorFlowRepository{pool: pool}
}

// GetByCodeAndDateRange retrieves investor flows for a code within date range
func (r *InvestorFlowRepository) GetByCodeAndDateRange(ctx context.Context, code string, from, to time.Time) ([]*contracts.InvestorFlow, error) {
	query := `
		SELECT stock_code, trade_date, foreign_net_value, inst_net_value, indiv_net_value
		FROM data.investor_flow
		WHERE stock_code = $1 AND trade_date BETWEEN $2 AND $3
		ORDER BY trade_date ASC
	`

	rows, err := r.pool.Query(ctx, query, code, from, to)
	if err != nil {
		return nil, fmt.Errorf("query investor flow: %w", err)
	}
	defer rows.Close()

	var flows []*contracts.InvestorFlow
	for rows.Next() {
		var f contracts.InvestorFlow
		if err := rows.Scan(&f.Code, &f.Date, &f.ForeignNet, &f.InstitutionNet, &f.IndividualNet); err != nil {
			return nil, fmt.Errorf("scan investor flow: %w", err)
		}
		flows = append(flows, &f)
	}
	return flows, rows.Err()
}
