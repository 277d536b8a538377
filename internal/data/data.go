// Package data provides read-only PostgreSQL repositories for the market
// data analyzers consume.
package data

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/sas/internal/contracts"
)

// NewMarketData wires all market data repositories onto one pool
func NewMarketData(pool *pgxpool.Pool) contracts.MarketData {
	return contracts.MarketData{
		Prices:     NewPriceRepository(pool),
		Flows:      NewInvestorFlowRepository(pool),
		Financials: NewFinancialRepository(pool),
	}
}
