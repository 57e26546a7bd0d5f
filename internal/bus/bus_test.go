package bus

import (
    "testing"

    "PerpScan/internal/domain/models"
)

func TestPublishDeliversToAllSubscribers(t *testing.T) {
    b := New()
    var got []string
    b.SubscribeOrderbook(func(ev models.OrderbookEvent) { got = append(got, "a:"+ev.Book.Symbol) })
    b.SubscribeOrderbook(func(ev models.OrderbookEvent) { got = append(got, "b:"+ev.Book.Symbol) })

    b.PublishOrderbook(models.OrderbookEvent{Provider: "hyperliquid", Book: models.OrderbookSnapshot{Symbol: "BTC"}})

    if len(got) != 2 || got[0] != "a:BTC" || got[1] != "b:BTC" {
        t.Fatalf("got %v", got)
    }
}

func TestNoReplayForLateSubscriber(t *testing.T) {
    b := New()
    b.PublishFunding(models.FundingEvent{Provider: "extended", Funding: models.FundingSnapshot{Symbol: "ETH-USD"}})

    var n int
    b.SubscribeFunding(func(models.FundingEvent) { n++ })
    if n != 0 {
        t.Fatalf("late subscriber saw %d replayed events", n)
    }

    b.PublishFunding(models.FundingEvent{Provider: "extended", Funding: models.FundingSnapshot{Symbol: "ETH-USD"}})
    if n != 1 {
        t.Fatalf("got %d deliveries, want 1", n)
    }
}

func TestEventKindsAreIndependent(t *testing.T) {
    b := New()
    var books, fundings int
    b.SubscribeOrderbook(func(models.OrderbookEvent) { books++ })
    b.SubscribeFunding(func(models.FundingEvent) { fundings++ })

    b.PublishOrderbook(models.OrderbookEvent{})
    b.PublishOrderbook(models.OrderbookEvent{})
    b.PublishFunding(models.FundingEvent{})

    if books != 2 || fundings != 1 {
        t.Fatalf("books=%d fundings=%d", books, fundings)
    }
}
