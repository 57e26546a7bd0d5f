package repository

import (
	"context"

	"PerpScan/internal/domain/models"
)

// DataProvider owns live exchange connections and timers, translates wire
// messages into canonical snapshots, and publishes them on the data bus.
type DataProvider interface {
	Connect(ctx context.Context) error
	Disconnect() error
	Subscribe(ctx context.Context, symbol string, dataTypes []models.DataType) error
	Unsubscribe(symbol string)
	IsConnected() bool
	Name() string
}

// Notifier consumes the opportunity list produced by each scan tick.
// Formatting and delivery are external concerns.
type Notifier interface {
	Notify(ctx context.Context, opps []models.Opportunity)
}

// Metrics records operational counters and gauges.
type Metrics interface {
	RecordUpdate(provider, kind string)
	RecordError(kind string)
	RecordOpportunity(kind, symbol string)
	RecordBook(provider, symbol string, bid, ask float64)
	RecordScanDuration(seconds float64)
	SetConnected(provider string, connected bool)
}

// Error kinds used with Metrics.RecordError, one per failure class.
const (
	ErrKindConnect = "connect"
	ErrKindParse   = "parse"
	ErrKindSymbol  = "symbol"
	ErrKindConfig  = "config"
	ErrKindRest    = "rest"
)
