package provider

import (
    "sync/atomic"
    "testing"
    "time"
)

func TestScheduleFires(t *testing.T) {
    ts := NewTimerSet()
    done := make(chan struct{})
    ts.Schedule("BTC", PurposeFunding, 10*time.Millisecond, func() { close(done) })

    select {
    case <-done:
    case <-time.After(time.Second):
        t.Fatal("timer never fired")
    }
    if ts.Active("BTC", PurposeFunding) {
        t.Fatal("fired timer still active")
    }
}

func TestCancelPreventsFire(t *testing.T) {
    ts := NewTimerSet()
    var fired atomic.Int32
    ts.Schedule("BTC", PurposeFunding, 20*time.Millisecond, func() { fired.Add(1) })
    ts.Cancel("BTC", PurposeFunding)

    time.Sleep(60 * time.Millisecond)
    if fired.Load() != 0 {
        t.Fatal("cancelled timer fired")
    }
    if ts.Len() != 0 {
        t.Fatalf("len = %d", ts.Len())
    }
}

func TestScheduleReplacesExisting(t *testing.T) {
    ts := NewTimerSet()
    var first, second atomic.Int32
    ts.Schedule("BTC", PurposeReconnect, 20*time.Millisecond, func() { first.Add(1) })
    ts.Schedule("BTC", PurposeReconnect, 20*time.Millisecond, func() { second.Add(1) })

    time.Sleep(80 * time.Millisecond)
    if first.Load() != 0 {
        t.Fatal("replaced timer fired")
    }
    if second.Load() != 1 {
        t.Fatalf("replacement fired %d times", second.Load())
    }
}

func TestCancelSymbolScopesToSymbol(t *testing.T) {
    ts := NewTimerSet()
    var btc, eth atomic.Int32
    ts.Schedule("BTC", PurposeFunding, 20*time.Millisecond, func() { btc.Add(1) })
    ts.Schedule("BTC", PurposeReconnect, 20*time.Millisecond, func() { btc.Add(1) })
    ts.Schedule("ETH", PurposeFunding, 20*time.Millisecond, func() { eth.Add(1) })

    ts.CancelSymbol("BTC")
    time.Sleep(80 * time.Millisecond)

    if btc.Load() != 0 {
        t.Fatal("BTC timers fired after CancelSymbol")
    }
    if eth.Load() != 1 {
        t.Fatalf("ETH timer fired %d times", eth.Load())
    }
}

func TestCancelAll(t *testing.T) {
    ts := NewTimerSet()
    var fired atomic.Int32
    for _, sym := range []string{"BTC", "ETH", "SUI"} {
        ts.Schedule(sym, PurposeFunding, 20*time.Millisecond, func() { fired.Add(1) })
    }
    ts.CancelAll()

    time.Sleep(60 * time.Millisecond)
    if fired.Load() != 0 || ts.Len() != 0 {
        t.Fatalf("fired=%d len=%d", fired.Load(), ts.Len())
    }
}

func TestRepeatingViaReschedule(t *testing.T) {
    ts := NewTimerSet()
    var fired atomic.Int32
    var tick func()
    tick = func() {
        if fired.Add(1) < 3 {
            ts.Schedule("BTC", PurposeFunding, 5*time.Millisecond, tick)
        }
    }
    ts.Schedule("BTC", PurposeFunding, 5*time.Millisecond, tick)

    deadline := time.After(time.Second)
    for fired.Load() < 3 {
        select {
        case <-deadline:
            t.Fatalf("only %d ticks", fired.Load())
        default:
            time.Sleep(time.Millisecond)
        }
    }
}
