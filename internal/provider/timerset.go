package provider

import (
	"sync"
	"time"
)

type timerKey struct {
	symbol  string
	purpose string
}

// Timer purposes shared by the provider implementations.
const (
	PurposeReconnect = "reconnect"
	PurposeRefresh   = "refresh"
	PurposeFunding   = "funding"
)

// TimerSet tracks every scheduled action of a provider keyed by
// (symbol, purpose) so each one can be positively cancelled on unsubscribe or
// disconnect. Scheduling on an occupied key replaces the previous timer.
// A timer whose key was cancelled between firing and running is a no-op.
type TimerSet struct {
	mu     sync.Mutex
	timers map[timerKey]*time.Timer
}

func NewTimerSet() *TimerSet {
	return &TimerSet{timers: make(map[timerKey]*time.Timer)}
}

// Schedule runs fn once after d unless the key is cancelled or rescheduled
// first. fn runs on its own goroutine.
func (ts *TimerSet) Schedule(symbol, purpose string, d time.Duration, fn func()) {
	key := timerKey{symbol: symbol, purpose: purpose}
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if old, ok := ts.timers[key]; ok {
		old.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(d, func() {
		ts.mu.Lock()
		cur, ok := ts.timers[key]
		if !ok || cur != t {
			// cancelled or replaced after firing
			ts.mu.Unlock()
			return
		}
		delete(ts.timers, key)
		ts.mu.Unlock()
		fn()
	})
	ts.timers[key] = t
}

// Cancel stops the timer for one key, if any.
func (ts *TimerSet) Cancel(symbol, purpose string) {
	key := timerKey{symbol: symbol, purpose: purpose}
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if t, ok := ts.timers[key]; ok {
		t.Stop()
		delete(ts.timers, key)
	}
}

// CancelSymbol stops every timer scoped to one symbol.
func (ts *TimerSet) CancelSymbol(symbol string) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	for key, t := range ts.timers {
		if key.symbol == symbol {
			t.Stop()
			delete(ts.timers, key)
		}
	}
}

// CancelAll stops every timer.
func (ts *TimerSet) CancelAll() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	for key, t := range ts.timers {
		t.Stop()
		delete(ts.timers, key)
	}
}

// Active reports whether a timer is pending for the key.
func (ts *TimerSet) Active(symbol, purpose string) bool {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	_, ok := ts.timers[timerKey{symbol: symbol, purpose: purpose}]
	return ok
}

// Len returns the number of pending timers.
func (ts *TimerSet) Len() int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return len(ts.timers)
}
