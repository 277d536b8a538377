package contracts

import (
	"context"
	"time"
)

// ⭐ SSOT: 시장 데이터 Repository 인터페이스 정의는 여기서만
// 분석기는 읽기 전용으로만 사용한다

// PriceRepository reads daily stock prices
type PriceRepository interface {
	GetByCodeAndDateRange(ctx context.Context, code string, from, to time.Time) ([]*Price, error)
}

// Price represents a stock price record
type Price struct {
	Code   string
	Date   time.Time
	Open   int64
	High   int64
	Low    int64
	Close  int64
	Volume int64
}

// InvestorFlowRepository reads investor flow (수급) data
type InvestorFlowRepository interface {
	GetByCodeAndDateRange(ctx context.Context, code string, from, to time.Time) ([]*InvestorFlow, error)
}

// InvestorFlow represents investor buying/selling data
type InvestorFlow struct {
	Code           string
	Date           time.Time
	ForeignNet     int64 // 외국인 순매수
	InstitutionNet int64 // 기관 순매수
	IndividualNet  int64 // 개인 순매수
}

// FinancialRepository reads fundamentals as of a date
type FinancialRepository interface {
	GetLatestByCode(ctx context.Context, code string, asOf time.Time) (*Financial, error)
}

// Financial represents financial metrics
type Financial struct {
	Code      string
	AsOf      time.Time
	ROE       float64 // Return on Equity (%)
	DebtRatio float64 // 부채비율 (%)
	PER       float64
	PBR       float64
	PSR       float64
}

// MarketData bundles the repositories an analyzer may read
type MarketData struct {
	Prices     PriceRepository
	Flows      InvestorFlowRepository
	Financials FinancialRepository
}
