package models

import "time"

// OpportunityKind distinguishes price spreads from funding differentials.
type OpportunityKind string

const (
	OpportunityPrice   OpportunityKind = "price"
	OpportunityFunding OpportunityKind = "funding"
)

// Opportunity is one arbitrage signal from a scan tick. Price opportunities
// fill the Buy*/Sell* fields; funding opportunities fill the Long*/Short*
// fields and AnnualizedDiffPct.
type Opportunity struct {
	Kind   OpportunityKind `json:"kind"`
	Symbol string          `json:"symbol"`

	BuyProvider  string  `json:"buy_provider,omitempty"`
	SellProvider string  `json:"sell_provider,omitempty"`
	BuyPrice     float64 `json:"buy_price,omitempty"`
	SellPrice    float64 `json:"sell_price,omitempty"`
	Profit       float64 `json:"profit,omitempty"`

	LongProvider  string `json:"long_provider,omitempty"`
	ShortProvider string `json:"short_provider,omitempty"`
	// rates carry no omitempty: zero is a legitimate funding rate
	LongRate          float64 `json:"long_rate"`
	ShortRate         float64 `json:"short_rate"`
	AnnualizedDiffPct float64 `json:"annualized_diff_pct,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}
