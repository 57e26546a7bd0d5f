package hyperliquid

import (
    "context"
    "encoding/json"
    "math"
    "net/http"
    "net/http/httptest"
    "strings"
    "sync/atomic"
    "testing"
    "time"

    "github.com/gorilla/websocket"

    "PerpScan/internal/bus"
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

var upgrader = websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

// wsServer upgrades every request and hands the socket to serve.
func wsServer(t *testing.T, serve func(*websocket.Conn)) *httptest.Server {
    t.Helper()
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        ws, err := upgrader.Upgrade(w, r, nil)
        if err != nil {
            t.Errorf("upgrade: %v", err)
            return
        }
        serve(ws)
    }))
    t.Cleanup(srv.Close)
    return srv
}

func wsURL(srv *httptest.Server) string {
    return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestSubscribeSendsBookSubscription(t *testing.T) {
    got := make(chan subscribeRequest, 1)
    srv := wsServer(t, func(ws *websocket.Conn) {
        var req subscribeRequest
        if err := ws.ReadJSON(&req); err == nil {
            got <- req
        }
        for {
            if _, _, err := ws.ReadMessage(); err != nil {
                return
            }
        }
    })

    p := New(Config{WebsocketURL: wsURL(srv)}, bus.New(), logger.Nop(), nopMetrics{})
    if err := p.Connect(context.Background()); err != nil {
        t.Fatalf("Connect: %v", err)
    }
    defer p.Disconnect()

    if err := p.Subscribe(context.Background(), "BTC", []models.DataType{models.DataTypeOrderbook}); err != nil {
        t.Fatalf("Subscribe: %v", err)
    }

    select {
    case req := <-got:
        if req.Method != "subscribe" || req.Subscription.Type != "bbo" || req.Subscription.Coin != "BTC" {
            t.Fatalf("subscription = %+v", req)
        }
    case <-time.After(2 * time.Second):
        t.Fatalf("no subscription received")
    }
}

func TestBboMessagePublished(t *testing.T) {
    srv := wsServer(t, func(ws *websocket.Conn) {
        // wait for the subscription, then emit one bbo frame
        if _, _, err := ws.ReadMessage(); err != nil {
            return
        }
        msg := `{"channel":"bbo","data":{"coin":"BTC","time":1700000000000,"bbo":[{"px":"100.5","sz":"2","n":3},{"px":"100.6","sz":"1","n":1}]}}`
        _ = ws.WriteMessage(websocket.TextMessage, []byte(msg))
        for {
            if _, _, err := ws.ReadMessage(); err != nil {
                return
            }
        }
    })

    b := bus.New()
    books := make(chan models.OrderbookEvent, 1)
    b.SubscribeOrderbook(func(ev models.OrderbookEvent) { books <- ev })

    p := New(Config{WebsocketURL: wsURL(srv)}, b, logger.Nop(), nopMetrics{})
    if err := p.Connect(context.Background()); err != nil {
        t.Fatalf("Connect: %v", err)
    }
    defer p.Disconnect()
    if err := p.Subscribe(context.Background(), "BTC", []models.DataType{models.DataTypeOrderbook}); err != nil {
        t.Fatalf("Subscribe: %v", err)
    }

    select {
    case ev := <-books:
        if ev.Provider != Name {
            t.Fatalf("provider = %s", ev.Provider)
        }
        if ev.Book.Symbol != "BTC" || ev.Book.BestBid != 100.5 || ev.Book.BestAsk != 100.6 {
            t.Fatalf("book = %+v", ev.Book)
        }
        if ev.Book.Timestamp.UnixMilli() != 1700000000000 {
            t.Fatalf("timestamp = %v", ev.Book.Timestamp)
        }
    case <-time.After(2 * time.Second):
        t.Fatalf("no book event published")
    }
}

func TestUnsubscribedSymbolDropped(t *testing.T) {
    srv := wsServer(t, func(ws *websocket.Conn) {
        if _, _, err := ws.ReadMessage(); err != nil {
            return
        }
        // ETH was never subscribed
        msg := `{"channel":"bbo","data":{"coin":"ETH","time":1,"bbo":[{"px":"1","sz":"1"},{"px":"2","sz":"1"}]}}`
        _ = ws.WriteMessage(websocket.TextMessage, []byte(msg))
        for {
            if _, _, err := ws.ReadMessage(); err != nil {
                return
            }
        }
    })

    b := bus.New()
    books := make(chan models.OrderbookEvent, 1)
    b.SubscribeOrderbook(func(ev models.OrderbookEvent) { books <- ev })

    p := New(Config{WebsocketURL: wsURL(srv)}, b, logger.Nop(), nopMetrics{})
    if err := p.Connect(context.Background()); err != nil {
        t.Fatalf("Connect: %v", err)
    }
    defer p.Disconnect()
    if err := p.Subscribe(context.Background(), "BTC", []models.DataType{models.DataTypeOrderbook}); err != nil {
        t.Fatalf("Subscribe: %v", err)
    }

    select {
    case ev := <-books:
        t.Fatalf("unsubscribed symbol published: %+v", ev)
    case <-time.After(300 * time.Millisecond):
    }
}

func fundingAPI(t *testing.T, rate string) *httptest.Server {
    t.Helper()
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        var req infoRequest
        if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Type != "metaAndAssetCtxs" {
            http.Error(w, "bad request", http.StatusBadRequest)
            return
        }
        body := `[{"universe":[{"name":"ETH"},{"name":"BTC"}]},[{"funding":"0.0002"},{"funding":"` + rate + `"}]]`
        w.Header().Set("Content-Type", "application/json")
        _, _ = w.Write([]byte(body))
    }))
    t.Cleanup(srv.Close)
    return srv
}

func TestFundingFetchPublishes(t *testing.T) {
    api := fundingAPI(t, "0.0001")

    b := bus.New()
    events := make(chan models.FundingEvent, 1)
    b.SubscribeFunding(func(ev models.FundingEvent) { events <- ev })

    p := New(Config{APIURL: api.URL}, b, logger.Nop(), nopMetrics{})
    defer p.Disconnect()
    // funding-only subscription needs no socket
    if err := p.Subscribe(context.Background(), "BTC", []models.DataType{models.DataTypeFunding}); err != nil {
        t.Fatalf("Subscribe: %v", err)
    }

    select {
    case ev := <-events:
        if ev.Provider != Name || ev.Funding.Symbol != "BTC" {
            t.Fatalf("event = %+v", ev)
        }
        if ev.Funding.FundingRate != 0.0001 {
            t.Fatalf("rate = %v", ev.Funding.FundingRate)
        }
        if math.Abs(ev.Funding.APY-87.6) > 1e-9 {
            t.Fatalf("apy = %v, want about 87.6", ev.Funding.APY)
        }
    case <-time.After(2 * time.Second):
        t.Fatalf("no funding event published")
    }
}

func TestFundingMergedIntoBook(t *testing.T) {
    api := fundingAPI(t, "0.0003")
    srv := wsServer(t, func(ws *websocket.Conn) {
        if _, _, err := ws.ReadMessage(); err != nil {
            return
        }
        msg := `{"channel":"bbo","data":{"coin":"BTC","time":1,"bbo":[{"px":"10","sz":"1"},{"px":"11","sz":"1"}]}}`
        _ = ws.WriteMessage(websocket.TextMessage, []byte(msg))
        for {
            if _, _, err := ws.ReadMessage(); err != nil {
                return
            }
        }
    })

    b := bus.New()
    books := make(chan models.OrderbookEvent, 1)
    b.SubscribeOrderbook(func(ev models.OrderbookEvent) { books <- ev })

    p := New(Config{WebsocketURL: wsURL(srv), APIURL: api.URL}, b, logger.Nop(), nopMetrics{})
    if err := p.Connect(context.Background()); err != nil {
        t.Fatalf("Connect: %v", err)
    }
    defer p.Disconnect()
    if err := p.Subscribe(context.Background(), "BTC",
        []models.DataType{models.DataTypeOrderbook, models.DataTypeFunding}); err != nil {
        t.Fatalf("Subscribe: %v", err)
    }

    select {
    case ev := <-books:
        if ev.Book.FundingRate != 0.0003 {
            t.Fatalf("cached funding not merged, rate = %v", ev.Book.FundingRate)
        }
    case <-time.After(2 * time.Second):
        t.Fatalf("no book event published")
    }
}

func TestUnexpectedCloseReconnectsAndResubscribes(t *testing.T) {
    subs := make(chan subscribeRequest, 4)
    var conns atomic.Int32
    srv := wsServer(t, func(ws *websocket.Conn) {
        var req subscribeRequest
        if err := ws.ReadJSON(&req); err != nil {
            return
        }
        subs <- req
        if conns.Add(1) == 1 {
            ws.Close() // simulate server-side drop
            return
        }
        for {
            if _, _, err := ws.ReadMessage(); err != nil {
                return
            }
        }
    })

    p := New(Config{WebsocketURL: wsURL(srv), ReconnectDelay: 50 * time.Millisecond},
        bus.New(), logger.Nop(), nopMetrics{})
    if err := p.Connect(context.Background()); err != nil {
        t.Fatalf("Connect: %v", err)
    }
    defer p.Disconnect()
    if err := p.Subscribe(context.Background(), "BTC", []models.DataType{models.DataTypeOrderbook}); err != nil {
        t.Fatalf("Subscribe: %v", err)
    }

    <-subs // initial subscription
    select {
    case req := <-subs:
        if req.Subscription.Coin != "BTC" {
            t.Fatalf("resubscription = %+v", req)
        }
    case <-time.After(2 * time.Second):
        t.Fatalf("no resubscription after unexpected close")
    }
}

func TestDisconnectSchedulesNothing(t *testing.T) {
    dials := make(chan struct{}, 4)
    srv := wsServer(t, func(ws *websocket.Conn) {
        dials <- struct{}{}
        for {
            if _, _, err := ws.ReadMessage(); err != nil {
                return
            }
        }
    })

    p := New(Config{WebsocketURL: wsURL(srv), ReconnectDelay: 50 * time.Millisecond},
        bus.New(), logger.Nop(), nopMetrics{})
    if err := p.Connect(context.Background()); err != nil {
        t.Fatalf("Connect: %v", err)
    }
    <-dials
    if err := p.Disconnect(); err != nil {
        t.Fatalf("Disconnect: %v", err)
    }

    select {
    case <-dials:
        t.Fatalf("reconnected after planned disconnect")
    case <-time.After(300 * time.Millisecond):
    }
}
