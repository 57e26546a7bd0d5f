package bus

import (
	"sync"

	"PerpScan/internal/domain/models"
)

// OrderbookHandler receives order-book updates.
type OrderbookHandler func(models.OrderbookEvent)

// FundingHandler receives funding updates.
type FundingHandler func(models.FundingEvent)

// DataBus is the in-process publish/subscribe channel between providers and
// the rest of the system. Delivery is synchronous to the subscribers
// registered at publish time; there is no buffering or replay.
type DataBus struct {
	mu           sync.RWMutex
	orderbookSub []OrderbookHandler
	fundingSub   []FundingHandler
}

func New() *DataBus {
	return &DataBus{}
}

// SubscribeOrderbook registers a handler for order-book updates.
func (b *DataBus) SubscribeOrderbook(h OrderbookHandler) {
	b.mu.Lock()
	b.orderbookSub = append(b.orderbookSub, h)
	b.mu.Unlock()
}

// SubscribeFunding registers a handler for funding updates.
func (b *DataBus) SubscribeFunding(h FundingHandler) {
	b.mu.Lock()
	b.fundingSub = append(b.fundingSub, h)
	b.mu.Unlock()
}

// PublishOrderbook delivers ev to every registered order-book subscriber on
// the caller's goroutine.
func (b *DataBus) PublishOrderbook(ev models.OrderbookEvent) {
	b.mu.RLock()
	subs := b.orderbookSub
	b.mu.RUnlock()
	for _, h := range subs {
		h(ev)
	}
}

// PublishFunding delivers ev to every registered funding subscriber on the
// caller's goroutine.
func (b *DataBus) PublishFunding(ev models.FundingEvent) {
	b.mu.RLock()
	subs := b.fundingSub
	b.mu.RUnlock()
	for _, h := range subs {
		h(ev)
	}
}

// OrderbookSubscribers returns the number of registered order-book handlers.
func (b *DataBus) OrderbookSubscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.orderbookSub)
}

// FundingSubscribers returns the number of registered funding handlers.
func (b *DataBus) FundingSubscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.fundingSub)
}
