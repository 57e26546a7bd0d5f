package hyperliquid

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"PerpScan/internal/bus"
	"PerpScan/internal/domain/models"
	"PerpScan/internal/domain/repository"
	"PerpScan/internal/provider"
	xhttp "PerpScan/pkg/http"
	"PerpScan/pkg/logger"
	"PerpScan/pkg/timeutil"
)

const Name = "hyperliquid"

// Config holds the Hyperliquid endpoints and timings.
type Config struct {
	WebsocketURL   string
	APIURL         string
	BookChannel    string // "bbo" for top-of-book, "l2Book" for full depth
	ReconnectDelay time.Duration
}

// Provider streams Hyperliquid order books over one WebSocket and polls the
// info endpoint for funding rates on an hourly-aligned schedule.
type Provider struct {
	cfg     Config
	bus     *bus.DataBus
	log     *logger.Logger
	metrics repository.Metrics
	rest    *xhttp.Client
	timers  *provider.TimerSet

	mu           sync.Mutex
	conn         *websocket.Conn
	state        provider.ConnState
	planned      bool
	subs         map[string][]models.DataType
	fundingCache map[string]models.FundingSnapshot

	writeMu sync.Mutex
}

func New(cfg Config, b *bus.DataBus, log *logger.Logger, metrics repository.Metrics) *Provider {
	if cfg.BookChannel == "" {
		cfg.BookChannel = "bbo"
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 5 * time.Second
	}
	return &Provider{
		cfg:          cfg,
		bus:          b,
		log:          log,
		metrics:      metrics,
		rest:         xhttp.NewClient(xhttp.WithTimeout(15 * time.Second)),
		timers:       provider.NewTimerSet(),
		subs:         make(map[string][]models.DataType),
		fundingCache: make(map[string]models.FundingSnapshot),
	}
}

func (p *Provider) Name() string { return Name }

func (p *Provider) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state == provider.StateConnected
}

// Connect dials the WebSocket. A failed dial schedules a delayed retry and
// returns the error; it never panics the process.
func (p *Provider) Connect(ctx context.Context) error {
	p.mu.Lock()
	if p.state != provider.StateDisconnected {
		p.mu.Unlock()
		return nil
	}
	p.state = provider.StateConnecting
	p.mu.Unlock()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, p.cfg.WebsocketURL, nil)
	if err != nil {
		p.mu.Lock()
		p.state = provider.StateDisconnected
		p.mu.Unlock()
		p.metrics.RecordError(repository.ErrKindConnect)
		p.scheduleReconnect()
		return fmt.Errorf("hyperliquid connect: %w", err)
	}

	p.mu.Lock()
	p.conn = conn
	p.state = provider.StateConnected
	p.planned = false
	p.mu.Unlock()

	p.metrics.SetConnected(Name, true)
	p.log.Info("connected", logger.String("provider", Name))
	go p.readLoop(conn)
	return nil
}

// Disconnect cancels every timer and closes the socket without scheduling a
// reconnect.
func (p *Provider) Disconnect() error {
	p.timers.CancelAll()

	p.mu.Lock()
	conn := p.conn
	p.planned = true
	p.conn = nil
	p.state = provider.StateDisconnected
	p.mu.Unlock()

	p.metrics.SetConnected(Name, false)
	if conn != nil {
		return conn.Close()
	}
	return nil
}

// Subscribe registers a symbol. Funding subscriptions fetch immediately and
// then poll on wall-clock hour boundaries; orderbook subscriptions send the
// channel subscription over the socket.
func (p *Provider) Subscribe(ctx context.Context, symbol string, dataTypes []models.DataType) error {
	p.mu.Lock()
	p.subs[symbol] = append([]models.DataType(nil), dataTypes...)
	p.mu.Unlock()

	if models.HasType(dataTypes, models.DataTypeFunding) {
		p.fetchFunding(ctx, symbol)
		p.scheduleFunding(symbol)
	}
	if models.HasType(dataTypes, models.DataTypeOrderbook) {
		if err := p.subscribeBook(symbol); err != nil {
			return err
		}
	}
	return nil
}

// Unsubscribe cancels the symbol's timers and cached funding; no further
// events are published for it.
func (p *Provider) Unsubscribe(symbol string) {
	p.mu.Lock()
	delete(p.subs, symbol)
	delete(p.fundingCache, symbol)
	p.mu.Unlock()
	p.timers.CancelSymbol(symbol)
}

func (p *Provider) subscribeBook(symbol string) error {
	p.mu.Lock()
	conn := p.conn
	connected := p.state == provider.StateConnected
	p.mu.Unlock()
	if !connected || conn == nil {
		return fmt.Errorf("hyperliquid not connected")
	}

	req := subscribeRequest{
		Method:       "subscribe",
		Subscription: subscription{Type: p.cfg.BookChannel, Coin: symbol},
	}
	p.writeMu.Lock()
	err := conn.WriteJSON(req)
	p.writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", symbol, err)
	}
	p.log.Debug("book subscription sent",
		logger.String("provider", Name),
		logger.String("symbol", symbol),
		logger.String("channel", p.cfg.BookChannel))
	return nil
}

func (p *Provider) readLoop(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			p.handleClose(conn, err)
			return
		}
		p.handleMessage(raw)
	}
}

// handleClose runs once per socket teardown. A planned close (Disconnect)
// schedules nothing; an unexpected one schedules a single delayed reconnect.
func (p *Provider) handleClose(conn *websocket.Conn, err error) {
	p.mu.Lock()
	if p.conn != conn {
		// stale read loop from an already-replaced connection
		p.mu.Unlock()
		return
	}
	planned := p.planned
	p.planned = false
	p.conn = nil
	p.state = provider.StateDisconnected
	p.mu.Unlock()

	p.metrics.SetConnected(Name, false)
	if planned {
		return
	}
	p.log.Warn("connection closed unexpectedly", logger.String("provider", Name), logger.Error(err))
	p.scheduleReconnect()
}

func (p *Provider) scheduleReconnect() {
	p.timers.Schedule("", provider.PurposeReconnect, p.cfg.ReconnectDelay, func() {
		p.log.Info("reconnecting", logger.String("provider", Name))
		if err := p.Connect(context.Background()); err != nil {
			return
		}
		p.resubscribe()
	})
}

func (p *Provider) resubscribe() {
	p.mu.Lock()
	symbols := make([]string, 0, len(p.subs))
	for symbol, types := range p.subs {
		if models.HasType(types, models.DataTypeOrderbook) {
			symbols = append(symbols, symbol)
		}
	}
	p.mu.Unlock()
	for _, symbol := range symbols {
		if err := p.subscribeBook(symbol); err != nil {
			p.log.Error("resubscribe failed", logger.String("symbol", symbol), logger.Error(err))
		}
	}
}

func (p *Provider) handleMessage(raw []byte) {
	var msg wsMessage
	if err := json.Unmarshal(raw, &msg); err != nil || msg.Data == nil {
		p.log.Debug("unrecognized message dropped", logger.String("provider", Name))
		p.metrics.RecordError(repository.ErrKindParse)
		return
	}

	var top bboData
	if err := json.Unmarshal(msg.Data, &top); err == nil && len(top.Bbo) >= 2 {
		p.publishBook(top.Coin, top.Time, top.Bbo[0], top.Bbo[1], nil, nil)
		return
	}

	var book bookData
	if err := json.Unmarshal(msg.Data, &book); err == nil && len(book.Levels) == 2 &&
		len(book.Levels[0]) > 0 && len(book.Levels[1]) > 0 {
		bids := toLevels(book.Levels[0])
		asks := toLevels(book.Levels[1])
		p.publishBook(book.Coin, book.Time, book.Levels[0][0], book.Levels[1][0], bids, asks)
		return
	}

	// subscription acks and other control frames land here
	p.log.Debug("unhandled message", logger.String("provider", Name), logger.String("channel", msg.Channel))
}

func (p *Provider) publishBook(coin string, ms int64, bid, ask wsLevel, bids, asks []models.Level) {
	p.mu.Lock()
	types, subscribed := p.subs[coin]
	funding, hasFunding := p.fundingCache[coin]
	p.mu.Unlock()
	if !subscribed || !models.HasType(types, models.DataTypeOrderbook) {
		return
	}

	bestBid, err1 := strconv.ParseFloat(bid.Px, 64)
	bestAsk, err2 := strconv.ParseFloat(ask.Px, 64)
	if err1 != nil || err2 != nil {
		p.log.Warn("bad price level dropped", logger.String("provider", Name), logger.String("symbol", coin))
		p.metrics.RecordError(repository.ErrKindParse)
		return
	}

	ts := time.Now()
	if ms > 0 {
		ts = time.UnixMilli(ms)
	}
	snap := models.OrderbookSnapshot{
		Symbol:    coin,
		BestBid:   bestBid,
		BestAsk:   bestAsk,
		Bids:      bids,
		Asks:      asks,
		Timestamp: ts,
	}
	// book stream carries no funding; merge the cached rate
	if hasFunding {
		snap.FundingRate = funding.FundingRate
	}
	p.bus.PublishOrderbook(models.OrderbookEvent{Provider: Name, Book: snap})
}

func toLevels(ws []wsLevel) []models.Level {
	out := make([]models.Level, 0, len(ws))
	for _, l := range ws {
		px, err1 := strconv.ParseFloat(l.Px, 64)
		sz, err2 := strconv.ParseFloat(l.Sz, 64)
		if err1 != nil || err2 != nil {
			continue
		}
		out = append(out, models.Level{Price: px, Size: sz, OrderCount: l.N})
	}
	return out
}

// scheduleFunding aligns the poll to the next top-of-hour, then hourly.
func (p *Provider) scheduleFunding(symbol string) {
	var tick func()
	tick = func() {
		if !p.subscribed(symbol) {
			return
		}
		p.fetchFunding(context.Background(), symbol)
		p.timers.Schedule(symbol, provider.PurposeFunding, time.Hour, tick)
	}
	delay := timeutil.UntilNextHour(time.Now())
	p.timers.Schedule(symbol, provider.PurposeFunding, delay, tick)
	p.log.Info("funding polling scheduled",
		logger.String("provider", Name),
		logger.String("symbol", symbol),
		logger.Duration("first_in", delay))
}

func (p *Provider) subscribed(symbol string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.subs[symbol]
	return ok
}

// fetchFunding pulls metaAndAssetCtxs and publishes the symbol's funding
// snapshot. On failure the previously cached value stays untouched and the
// schedule proceeds normally.
func (p *Provider) fetchFunding(ctx context.Context, symbol string) {
	var raw []json.RawMessage
	err := p.rest.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    p.cfg.APIURL + "/info",
		Body:   infoRequest{Type: "metaAndAssetCtxs"},
	}, &raw)
	if err != nil {
		p.log.Error("funding fetch failed", logger.String("provider", Name), logger.Error(err))
		p.metrics.RecordError(repository.ErrKindRest)
		return
	}
	if len(raw) < 2 {
		p.log.Error("funding response malformed", logger.String("provider", Name))
		p.metrics.RecordError(repository.ErrKindRest)
		return
	}

	var meta universeMeta
	var ctxs []assetCtx
	if err := json.Unmarshal(raw[0], &meta); err != nil {
		p.metrics.RecordError(repository.ErrKindRest)
		return
	}
	if err := json.Unmarshal(raw[1], &ctxs); err != nil {
		p.metrics.RecordError(repository.ErrKindRest)
		return
	}

	idx := -1
	for i, asset := range meta.Universe {
		if asset.Name == symbol {
			idx = i
			break
		}
	}
	if idx < 0 || idx >= len(ctxs) {
		p.log.Warn("symbol not in universe", logger.String("provider", Name), logger.String("symbol", symbol))
		p.metrics.RecordError(repository.ErrKindRest)
		return
	}

	rate, err := strconv.ParseFloat(ctxs[idx].Funding, 64)
	if err != nil {
		p.log.Error("funding rate unparseable",
			logger.String("provider", Name),
			logger.String("value", ctxs[idx].Funding))
		p.metrics.RecordError(repository.ErrKindRest)
		return
	}

	now := time.Now()
	mins, secs := timeutil.FundingCountdown(now)
	snap := models.FundingSnapshot{
		Symbol:             symbol,
		FundingRate:        rate,
		APY:                rate * 24 * 365 * 100,
		NextFundingMinutes: mins,
		NextFundingSeconds: secs,
		Timestamp:          now,
	}

	p.mu.Lock()
	if _, ok := p.subs[symbol]; !ok {
		p.mu.Unlock()
		return
	}
	p.fundingCache[symbol] = snap
	p.mu.Unlock()

	p.bus.PublishFunding(models.FundingEvent{Provider: Name, Funding: snap})
}
