package engine

import (
    "math"
    "testing"

    "PerpScan/internal/bus"
    "PerpScan/internal/domain/models"
    "PerpScan/internal/store"
    "PerpScan/internal/symbols"
    "PerpScan/pkg/logger"
)

type nopMetrics struct{}

func (nopMetrics) RecordUpdate(string, string)                 {}
func (nopMetrics) RecordError(string)                          {}
func (nopMetrics) RecordOpportunity(string, string)            {}
func (nopMetrics) RecordBook(string, string, float64, float64) {}
func (nopMetrics) RecordScanDuration(float64)                  {}
func (nopMetrics) SetConnected(string, bool)                   {}

func testFees() map[string]Fees {
    return map[string]Fees{
        "hyperliquid": {MakerPct: 0.01, TakerPct: 0.02},
        "extended":    {MakerPct: 0.02, TakerPct: 0.05},
    }
}

func newTestEngine(t *testing.T, fees map[string]Fees) (*bus.DataBus, *Engine) {
    t.Helper()
    b := bus.New()
    s := store.New(b, symbols.Default(), logger.Nop(), nopMetrics{})
    e := New(s, fees, Config{}, nil, nopMetrics{}, logger.Nop())
    return b, e
}

func publishBook(b *bus.DataBus, provider, symbol string, bid, ask float64) {
    b.PublishOrderbook(models.OrderbookEvent{
        Provider: provider,
        Book:     models.OrderbookSnapshot{Symbol: symbol, BestBid: bid, BestAsk: ask},
    })
}

func publishFunding(b *bus.DataBus, provider, symbol string, rate float64) {
    b.PublishFunding(models.FundingEvent{
        Provider: provider,
        Funding:  models.FundingSnapshot{Symbol: symbol, FundingRate: rate},
    })
}

func TestPriceArbitrageAboveThreshold(t *testing.T) {
    b, e := newTestEngine(t, testFees())
    // buy hyperliquid at ask 100.00 (taker 0.02%), sell extended at bid 100.50 (taker 0.05%)
    publishBook(b, "hyperliquid", "BTC", 99.90, 100.00)
    publishBook(b, "extended", "BTC-USD", 100.50, 100.60)

    opps := e.Scan()
    var price []models.Opportunity
    for _, o := range opps {
        if o.Kind == models.OpportunityPrice {
            price = append(price, o)
        }
    }
    if len(price) != 1 {
        t.Fatalf("want 1 price opportunity, got %d: %+v", len(price), price)
    }
    opp := price[0]
    if opp.BuyProvider != "hyperliquid" || opp.SellProvider != "extended" {
        t.Fatalf("wrong direction: %+v", opp)
    }
    want := 100.50 - 100.50*0.05/100 - 100.00 - 100.00*0.02/100
    if math.Abs(opp.Profit-want) > 1e-9 {
        t.Fatalf("profit = %v, want %v", opp.Profit, want)
    }
    if math.Abs(opp.Profit-0.4298) > 0.0001 {
        t.Fatalf("profit = %v, want about 0.4298", opp.Profit)
    }
}

func TestPriceArbitrageBelowThreshold(t *testing.T) {
    fees := map[string]Fees{
        "hyperliquid": {TakerPct: 0.02},
        "extended":    {TakerPct: 0.02},
    }
    b, e := newTestEngine(t, fees)
    publishBook(b, "hyperliquid", "BTC", 99.90, 100.00)
    publishBook(b, "extended", "BTC-USD", 100.0005, 100.10)

    for _, o := range e.Scan() {
        if o.Kind == models.OpportunityPrice {
            t.Fatalf("sub-threshold spread emitted %+v", o)
        }
    }
}

func TestPriceArbitrageBothDirections(t *testing.T) {
    b, e := newTestEngine(t, testFees())
    // books crossed both ways
    publishBook(b, "hyperliquid", "ETH", 101.00, 100.00)
    publishBook(b, "extended", "ETH-USD", 100.50, 99.00)

    var n int
    for _, o := range e.Scan() {
        if o.Kind == models.OpportunityPrice {
            n++
        }
    }
    if n != 2 {
        t.Fatalf("want both directions, got %d", n)
    }
}

func TestPriceArbitrageSkippedWithoutFees(t *testing.T) {
    fees := map[string]Fees{"hyperliquid": {TakerPct: 0.02}} // extended missing
    b, e := newTestEngine(t, fees)
    publishBook(b, "hyperliquid", "BTC", 99.90, 100.00)
    publishBook(b, "extended", "BTC-USD", 100.50, 100.60)

    for _, o := range e.Scan() {
        if o.Kind == models.OpportunityPrice {
            t.Fatalf("price opportunity without fee config: %+v", o)
        }
    }
}

func TestFundingArbitrageAboveThreshold(t *testing.T) {
    b, e := newTestEngine(t, testFees())
    publishFunding(b, "hyperliquid", "BTC", 0.0001)
    publishFunding(b, "extended", "BTC-USD", 0.00005)

    opps := e.Scan()
    if len(opps) != 1 {
        t.Fatalf("want 1 opportunity, got %d: %+v", len(opps), opps)
    }
    opp := opps[0]
    if opp.Kind != models.OpportunityFunding {
        t.Fatalf("kind = %s", opp.Kind)
    }
    if opp.LongProvider != "hyperliquid" || opp.ShortProvider != "extended" {
        t.Fatalf("legs wrong: %+v", opp)
    }
    if math.Abs(opp.AnnualizedDiffPct-43.8) > 1e-9 {
        t.Fatalf("annualized = %v, want 43.8", opp.AnnualizedDiffPct)
    }
    if opp.LongRate != 0.0001 || opp.ShortRate != 0.00005 {
        t.Fatalf("rates wrong: %+v", opp)
    }
}

func TestFundingArbitrageBelowThreshold(t *testing.T) {
    b, e := newTestEngine(t, testFees())
    publishFunding(b, "hyperliquid", "BTC", 0.0001)
    publishFunding(b, "extended", "BTC-USD", 0.000095)

    if opps := e.Scan(); len(opps) != 0 {
        t.Fatalf("sub-threshold differential emitted %+v", opps)
    }
}

func TestFundingLongIsHigherRate(t *testing.T) {
    b, e := newTestEngine(t, testFees())
    // extended pays the higher rate this time
    publishFunding(b, "hyperliquid", "SUI", -0.0002)
    publishFunding(b, "extended", "SUI-USD", 0.0001)

    opps := e.Scan()
    if len(opps) != 1 {
        t.Fatalf("got %+v", opps)
    }
    if opps[0].LongProvider != "extended" || opps[0].ShortProvider != "hyperliquid" {
        t.Fatalf("legs wrong: %+v", opps[0])
    }
}

func TestScanKeepsNoStateAcrossTicks(t *testing.T) {
    b, e := newTestEngine(t, testFees())
    publishFunding(b, "hyperliquid", "BTC", 0.0001)
    publishFunding(b, "extended", "BTC-USD", 0.00005)

    first := e.Scan()
    second := e.Scan()
    if len(first) != 1 || len(second) != 1 {
        t.Fatalf("repeated opportunities must re-emit each tick: %d then %d", len(first), len(second))
    }
}

func TestScanSkipsLoneProvider(t *testing.T) {
    b, e := newTestEngine(t, testFees())
    publishBook(b, "hyperliquid", "BTC", 99, 100)

    if opps := e.Scan(); len(opps) != 0 {
        t.Fatalf("single provider produced %+v", opps)
    }
}
