package models

import "time"

// DataType selects which feeds a provider subscription carries.
type DataType string

const (
	DataTypeOrderbook DataType = "orderbook"
	DataTypeFunding   DataType = "funding"
)

// HasType reports whether dt is present in types.
func HasType(types []DataType, dt DataType) bool {
	for _, t := range types {
		if t == dt {
			return true
		}
	}
	return false
}

// Level is a single price level of an order book side.
type Level struct {
	Price      float64 `json:"price"`
	Size       float64 `json:"size"`
	OrderCount int     `json:"order_count,omitempty"`
}

// OrderbookSnapshot is the canonical order-book view published by providers.
// Bids/Asks are optional: top-of-book feeds deliver only BestBid/BestAsk.
// FundingRate is merged from the provider's funding cache when the book
// stream itself does not carry funding.
type OrderbookSnapshot struct {
	Symbol      string    `json:"symbol"`
	BestBid     float64   `json:"best_bid"`
	BestAsk     float64   `json:"best_ask"`
	Bids        []Level   `json:"bids,omitempty"`
	Asks        []Level   `json:"asks,omitempty"`
	FundingRate float64   `json:"funding_rate,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// FundingSnapshot is the canonical funding-rate view. FundingRate is per
// funding interval (hourly); APY is the rate annualized as a percentage.
type FundingSnapshot struct {
	Symbol             string    `json:"symbol"`
	FundingRate        float64   `json:"funding_rate"`
	APY                float64   `json:"apy"`
	NextFundingMinutes int       `json:"next_funding_minutes"`
	NextFundingSeconds int       `json:"next_funding_seconds"`
	Timestamp          time.Time `json:"timestamp"`
}

// StoredMarketData is the latest-value cell for one (provider, symbol) pair.
// The orderbook and funding slots are written independently.
type StoredMarketData struct {
	Orderbook   *OrderbookSnapshot `json:"orderbook,omitempty"`
	Funding     *FundingSnapshot   `json:"funding,omitempty"`
	LastUpdated time.Time          `json:"last_updated"`
}

// OrderbookEvent is an order-book update on the bus. Provider identity is
// carried on the event itself rather than inferred from symbol spelling.
type OrderbookEvent struct {
	Provider string            `json:"provider"`
	Book     OrderbookSnapshot `json:"book"`
}

// FundingEvent is a funding update on the bus.
type FundingEvent struct {
	Provider string          `json:"provider"`
	Funding  FundingSnapshot `json:"funding"`
}
