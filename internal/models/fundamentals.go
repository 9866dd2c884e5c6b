package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// FundamentalSnapshot is one ticker's fundamental data as retrieved from the
// data sidecar. Absolute money figures are decimals; pre-computed ratios are
// optional floats. Nil means the source did not report the figure; the
// normalizer turns that into a missing signal, never into a zero.
type FundamentalSnapshot struct {
	Ticker             string           `json:"ticker"`
	AsOf               time.Time        `json:"as_of"`
	Price              *float64         `json:"price,omitempty"`
	MarketCap          *decimal.Decimal `json:"market_cap,omitempty"`
	Revenue            *decimal.Decimal `json:"revenue,omitempty"`
	NetIncome          *decimal.Decimal `json:"net_income,omitempty"`
	FreeCashFlow       *decimal.Decimal `json:"free_cash_flow,omitempty"`
	TotalDebt          *decimal.Decimal `json:"total_debt,omitempty"`
	TotalAssets        *decimal.Decimal `json:"total_assets,omitempty"`
	TotalEquity        *decimal.Decimal `json:"total_equity,omitempty"`
	CashAndEquivalents *decimal.Decimal `json:"cash_and_equivalents,omitempty"`
	CurrentAssets      *decimal.Decimal `json:"current_assets,omitempty"`
	CurrentLiabilities *decimal.Decimal `json:"current_liabilities,omitempty"`
	Inventory          *decimal.Decimal `json:"inventory,omitempty"`
	InterestExpense    *decimal.Decimal `json:"interest_expense,omitempty"`
	RevenueGrowthPct   *float64         `json:"revenue_growth_pct,omitempty"`
	NetMarginPct       *float64         `json:"net_margin_pct,omitempty"`
	PERatio            *float64         `json:"pe_ratio,omitempty"`
	Beta               *float64         `json:"beta,omitempty"`
	EarningsHistory    []EarningsRecord `json:"earnings_history,omitempty"`
}

// EarningsRecord is one fiscal year's reported earnings.
type EarningsRecord struct {
	Year      int              `json:"year"`
	NetIncome decimal.Decimal  `json:"net_income"`
	Revenue   *decimal.Decimal `json:"revenue,omitempty"`
}

// DebtToEquityRatio derives D/E from the balance-sheet figures. False when
// either side is unreported or equity is non-positive.
func (f *FundamentalSnapshot) DebtToEquityRatio() (float64, bool) {
	if f == nil || f.TotalDebt == nil || f.TotalEquity == nil {
		return 0, false
	}
	if f.TotalEquity.LessThanOrEqual(decimal.Zero) {
		return 0, false
	}
	v, _ := f.TotalDebt.Div(*f.TotalEquity).Float64()
	return v, true
}

// DebtToAssetsRatio derives debt/assets. False when unreported or assets are
// non-positive.
func (f *FundamentalSnapshot) DebtToAssetsRatio() (float64, bool) {
	if f == nil || f.TotalDebt == nil || f.TotalAssets == nil {
		return 0, false
	}
	if f.TotalAssets.LessThanOrEqual(decimal.Zero) {
		return 0, false
	}
	v, _ := f.TotalDebt.Div(*f.TotalAssets).Float64()
	return v, true
}

// CurrentRatio derives current assets over current liabilities.
func (f *FundamentalSnapshot) CurrentRatio() (float64, bool) {
	if f == nil || f.CurrentAssets == nil || f.CurrentLiabilities == nil {
		return 0, false
	}
	if f.CurrentLiabilities.LessThanOrEqual(decimal.Zero) {
		return 0, false
	}
	v, _ := f.CurrentAssets.Div(*f.CurrentLiabilities).Float64()
	return v, true
}

// QuickRatio derives (current assets − inventory) / current liabilities.
// Inventory is treated as zero when unreported.
func (f *FundamentalSnapshot) QuickRatio() (float64, bool) {
	if f == nil || f.CurrentAssets == nil || f.CurrentLiabilities == nil {
		return 0, false
	}
	if f.CurrentLiabilities.LessThanOrEqual(decimal.Zero) {
		return 0, false
	}
	quick := *f.CurrentAssets
	if f.Inventory != nil {
		quick = quick.Sub(*f.Inventory)
	}
	v, _ := quick.Div(*f.CurrentLiabilities).Float64()
	return v, true
}

// CashRatio derives cash and equivalents over current liabilities.
func (f *FundamentalSnapshot) CashRatio() (float64, bool) {
	if f == nil || f.CashAndEquivalents == nil || f.CurrentLiabilities == nil {
		return 0, false
	}
	if f.CurrentLiabilities.LessThanOrEqual(decimal.Zero) {
		return 0, false
	}
	v, _ := f.CashAndEquivalents.Div(*f.CurrentLiabilities).Float64()
	return v, true
}

// InterestBurden derives interest expense as a fraction of revenue, a proxy
// for interest coverage when EBIT is not reported.
func (f *FundamentalSnapshot) InterestBurden() (float64, bool) {
	if f == nil || f.InterestExpense == nil || f.Revenue == nil {
		return 0, false
	}
	if f.Revenue.LessThanOrEqual(decimal.Zero) {
		return 0, false
	}
	v, _ := f.InterestExpense.Div(*f.Revenue).Float64()
	return v, true
}

// FCFYield derives free cash flow over market cap.
func (f *FundamentalSnapshot) FCFYield() (float64, bool) {
	if f == nil || f.FreeCashFlow == nil || f.MarketCap == nil {
		return 0, false
	}
	if f.MarketCap.LessThanOrEqual(decimal.Zero) {
		return 0, false
	}
	v, _ := f.FreeCashFlow.Div(*f.MarketCap).Float64()
	return v, true
}

// FCFToNetIncome derives free cash flow as a fraction of net income. False
// when either is unreported or net income is non-positive.
func (f *FundamentalSnapshot) FCFToNetIncome() (float64, bool) {
	if f == nil || f.FreeCashFlow == nil || f.NetIncome == nil {
		return 0, false
	}
	if f.NetIncome.LessThanOrEqual(decimal.Zero) {
		return 0, false
	}
	v, _ := f.FreeCashFlow.Div(*f.NetIncome).Float64()
	return v, true
}

// PeerCompany is one comparable company's headline ratios.
type PeerCompany struct {
	Ticker       string   `json:"ticker"`
	PERatio      *float64 `json:"pe_ratio,omitempty"`
	NetMarginPct *float64 `json:"net_margin_pct,omitempty"`
	DebtToEquity *float64 `json:"debt_to_equity,omitempty"`
}

// PriceBar is one OHLCV bar of price history, used only for deriving
// technical context signals.
type PriceBar struct {
	Timestamp time.Time       `json:"timestamp"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    decimal.Decimal `json:"volume"`
}

// KeyMetrics is the headline snapshot included in the synthesized view.
type KeyMetrics struct {
	Price            *float64         `json:"price,omitempty"`
	MarketCap        *decimal.Decimal `json:"market_cap,omitempty"`
	PERatio          *float64         `json:"pe_ratio,omitempty"`
	RevenueGrowthPct *float64         `json:"revenue_growth_pct,omitempty"`
	NetMarginPct     *float64         `json:"net_margin_pct,omitempty"`
	DebtToEquity     *float64         `json:"debt_to_equity,omitempty"`
	CurrentRatio     *float64         `json:"current_ratio,omitempty"`
	Beta             *float64         `json:"beta,omitempty"`
}
