package provider

import (
    "context"
    "errors"
    "testing"

    "PerpScan/internal/domain/models"
    "PerpScan/pkg/logger"
)

type nopMetrics struct{}

func (nopMetrics) RecordUpdate(string, string)                 {}
func (nopMetrics) RecordError(string)                          {}
func (nopMetrics) RecordOpportunity(string, string)            {}
func (nopMetrics) RecordBook(string, string, float64, float64) {}
func (nopMetrics) RecordScanDuration(float64)                  {}
func (nopMetrics) SetConnected(string, bool)                   {}

type fakeProvider struct {
    name         string
    connectErr   error
    subscribeErr error

    connected    bool
    disconnected bool
    subscribed   []string
}

func (f *fakeProvider) Connect(context.Context) error {
    if f.connectErr != nil {
        return f.connectErr
    }
    f.connected = true
    return nil
}

func (f *fakeProvider) Disconnect() error {
    f.disconnected = true
    f.connected = false
    return nil
}

func (f *fakeProvider) Subscribe(_ context.Context, symbol string, _ []models.DataType) error {
    if f.subscribeErr != nil {
        return f.subscribeErr
    }
    f.subscribed = append(f.subscribed, symbol)
    return nil
}

func (f *fakeProvider) Unsubscribe(string) {}
func (f *fakeProvider) IsConnected() bool  { return f.connected }
func (f *fakeProvider) Name() string       { return f.name }

func TestManagerStartAllSubscribesEnabled(t *testing.T) {
    m := NewManager(logger.Nop(), nopMetrics{})
    a := &fakeProvider{name: "a"}
    b := &fakeProvider{name: "b"}
    m.Register(a)
    m.Register(b)

    m.StartAll(context.Background(), map[string]StartSpec{
        "a": {Enabled: true, Symbols: []string{"BTC", "ETH"}, DataTypes: []models.DataType{models.DataTypeOrderbook}},
        "b": {Enabled: false},
    })

    if !a.connected || len(a.subscribed) != 2 {
        t.Fatalf("enabled provider not started: connected=%v subscribed=%v", a.connected, a.subscribed)
    }
    if b.connected {
        t.Fatalf("disabled provider was connected")
    }
}

func TestManagerStartAllSkipsUnregistered(t *testing.T) {
    m := NewManager(logger.Nop(), nopMetrics{})
    a := &fakeProvider{name: "a"}
    m.Register(a)

    m.StartAll(context.Background(), map[string]StartSpec{
        "a":     {Enabled: true, Symbols: []string{"BTC"}},
        "ghost": {Enabled: true, Symbols: []string{"BTC"}},
    })

    if !a.connected {
        t.Fatalf("registered provider not started")
    }
}

func TestManagerConnectFailureDoesNotAbortOthers(t *testing.T) {
    m := NewManager(logger.Nop(), nopMetrics{})
    bad := &fakeProvider{name: "bad", connectErr: errors.New("dial refused")}
    good := &fakeProvider{name: "good"}
    m.Register(bad)
    m.Register(good)

    m.StartAll(context.Background(), map[string]StartSpec{
        "bad":  {Enabled: true, Symbols: []string{"BTC"}},
        "good": {Enabled: true, Symbols: []string{"BTC"}},
    })

    if bad.connected {
        t.Fatalf("failed provider marked connected")
    }
    if !good.connected || len(good.subscribed) != 1 {
        t.Fatalf("healthy provider was not started after earlier failure")
    }
}

func TestManagerSubscribeFailureContinues(t *testing.T) {
    m := NewManager(logger.Nop(), nopMetrics{})
    p := &fakeProvider{name: "a", subscribeErr: errors.New("unknown symbol")}
    m.Register(p)

    m.StartAll(context.Background(), map[string]StartSpec{
        "a": {Enabled: true, Symbols: []string{"BTC", "ETH"}},
    })

    if !p.connected {
        t.Fatalf("provider should stay connected despite subscribe errors")
    }
}

func TestManagerStopAllDisconnectsEveryone(t *testing.T) {
    m := NewManager(logger.Nop(), nopMetrics{})
    a := &fakeProvider{name: "a"}
    b := &fakeProvider{name: "b"}
    m.Register(a)
    m.Register(b)

    m.StopAll()
    if !a.disconnected || !b.disconnected {
        t.Fatalf("StopAll skipped a provider: a=%v b=%v", a.disconnected, b.disconnected)
    }
}

func TestManagerNamesKeepRegistrationOrder(t *testing.T) {
    m := NewManager(logger.Nop(), nopMetrics{})
    m.Register(&fakeProvider{name: "z"})
    m.Register(&fakeProvider{name: "a"})
    m.Register(&fakeProvider{name: "z"}) // replacement keeps position

    names := m.Names()
    if len(names) != 2 || names[0] != "z" || names[1] != "a" {
        t.Fatalf("names = %v", names)
    }
}
