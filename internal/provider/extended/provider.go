package extended

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
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

const Name = "extended"

// Config holds the Extended endpoints and timings. RefreshInterval is the
// preemptive reconnection period; it must stay below the server's ~15 s idle
// kill so the client, not the server, tears the socket down.
type Config struct {
	WebsocketBaseURL string
	APIURL           string
	Depth            int
	UserAgent        string
	ReconnectDelay   time.Duration
	RefreshInterval  time.Duration
}

// marketConn is one per-market socket. planned marks a self-initiated close
// so the close handler does not double-schedule a reconnect.
type marketConn struct {
	ws      *websocket.Conn
	planned bool
}

// Provider streams Extended order books over one WebSocket per market and
// polls the markets endpoint for funding rates on an hourly-aligned schedule.
type Provider struct {
	cfg     Config
	bus     *bus.DataBus
	log     *logger.Logger
	metrics repository.Metrics
	rest    *xhttp.Client
	timers  *provider.TimerSet

	mu           sync.Mutex
	ready        bool
	conns        map[string]*marketConn
	subs         map[string][]models.DataType
	fundingCache map[string]models.FundingSnapshot
}

func New(cfg Config, b *bus.DataBus, log *logger.Logger, metrics repository.Metrics) *Provider {
	if cfg.Depth <= 0 {
		cfg.Depth = 1
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 5 * time.Second
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = 14 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "PerpScan/1.0"
	}
	return &Provider{
		cfg:          cfg,
		bus:          b,
		log:          log,
		metrics:      metrics,
		rest:         xhttp.NewClient(xhttp.WithTimeout(15 * time.Second)),
		timers:       provider.NewTimerSet(),
		conns:        make(map[string]*marketConn),
		subs:         make(map[string][]models.DataType),
		fundingCache: make(map[string]models.FundingSnapshot),
	}
}

func (p *Provider) Name() string { return Name }

// Connect marks the provider ready. Sockets are market-scoped and open at
// subscribe time.
func (p *Provider) Connect(ctx context.Context) error {
	p.mu.Lock()
	p.ready = true
	p.mu.Unlock()
	p.log.Info("ready, sockets open per market", logger.String("provider", Name))
	return nil
}

func (p *Provider) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ready
}

// Disconnect cancels every timer and closes every market socket.
func (p *Provider) Disconnect() error {
	p.timers.CancelAll()

	p.mu.Lock()
	p.ready = false
	conns := p.conns
	p.conns = make(map[string]*marketConn)
	for _, mc := range conns {
		mc.planned = true
	}
	p.mu.Unlock()

	for symbol, mc := range conns {
		if err := mc.ws.Close(); err != nil {
			p.log.Warn("socket close", logger.String("symbol", symbol), logger.Error(err))
		}
	}
	p.metrics.SetConnected(Name, false)
	return nil
}

func (p *Provider) Subscribe(ctx context.Context, symbol string, dataTypes []models.DataType) error {
	p.mu.Lock()
	if !p.ready {
		p.mu.Unlock()
		return fmt.Errorf("extended provider not connected")
	}
	p.subs[symbol] = append([]models.DataType(nil), dataTypes...)
	p.mu.Unlock()

	if models.HasType(dataTypes, models.DataTypeFunding) {
		p.fetchFunding(ctx, symbol)
		p.scheduleFunding(symbol)
	}
	if models.HasType(dataTypes, models.DataTypeOrderbook) {
		if err := p.openMarket(ctx, symbol); err != nil {
			p.metrics.RecordError(repository.ErrKindConnect)
			p.timers.Schedule(symbol, provider.PurposeReconnect, p.cfg.ReconnectDelay, func() {
				p.redial(symbol)
			})
			return fmt.Errorf("extended subscribe %s: %w", symbol, err)
		}
	}
	return nil
}

func (p *Provider) Unsubscribe(symbol string) {
	p.timers.CancelSymbol(symbol)

	p.mu.Lock()
	delete(p.subs, symbol)
	delete(p.fundingCache, symbol)
	mc := p.conns[symbol]
	delete(p.conns, symbol)
	if mc != nil {
		mc.planned = true
	}
	p.mu.Unlock()

	if mc != nil {
		_ = mc.ws.Close()
	}
}

// openMarket dials the market stream, installs the ping handler, starts the
// read loop, and arms the preemptive refresh timer.
func (p *Provider) openMarket(ctx context.Context, symbol string) error {
	url := fmt.Sprintf("%s/orderbooks/%s?depth=%d", p.cfg.WebsocketBaseURL, symbol, p.cfg.Depth)
	header := http.Header{"User-Agent": []string{p.cfg.UserAgent}}
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return fmt.Errorf("dial %s: %w", url, err)
	}

	// protocol-level pings must be answered with a pong carrying the same payload
	ws.SetPingHandler(func(appData string) error {
		return ws.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(5*time.Second))
	})

	mc := &marketConn{ws: ws}
	p.mu.Lock()
	if old := p.conns[symbol]; old != nil {
		old.planned = true
		_ = old.ws.Close()
	}
	p.conns[symbol] = mc
	p.mu.Unlock()

	p.metrics.SetConnected(Name, true)
	p.log.Info("market stream open", logger.String("provider", Name), logger.String("symbol", symbol))

	go p.readLoop(symbol, mc)
	p.scheduleRefresh(symbol)
	return nil
}

// scheduleRefresh arms the preemptive reconnection cycle: close the socket
// before the server's idle timeout does and open a fresh one. The planned
// flag keeps the close handler from scheduling a second reconnect.
func (p *Provider) scheduleRefresh(symbol string) {
	p.timers.Schedule(symbol, provider.PurposeRefresh, p.cfg.RefreshInterval, func() {
		p.mu.Lock()
		mc := p.conns[symbol]
		if mc != nil {
			mc.planned = true
		}
		p.mu.Unlock()
		if mc == nil {
			return
		}
		p.log.Debug("preemptive reconnect", logger.String("provider", Name), logger.String("symbol", symbol))
		_ = mc.ws.Close()
		p.redial(symbol)
	})
}

// redial opens a fresh market socket; on failure it retries after the
// standard reconnect delay.
func (p *Provider) redial(symbol string) {
	p.mu.Lock()
	_, subscribed := p.subs[symbol]
	ready := p.ready
	p.mu.Unlock()
	if !subscribed || !ready {
		return
	}
	if err := p.openMarket(context.Background(), symbol); err != nil {
		p.log.Error("redial failed", logger.String("provider", Name), logger.String("symbol", symbol), logger.Error(err))
		p.metrics.RecordError(repository.ErrKindConnect)
		p.timers.Schedule(symbol, provider.PurposeReconnect, p.cfg.ReconnectDelay, func() {
			p.redial(symbol)
		})
	}
}

func (p *Provider) readLoop(symbol string, mc *marketConn) {
	for {
		_, raw, err := mc.ws.ReadMessage()
		if err != nil {
			p.handleClose(symbol, mc, err)
			return
		}
		p.handleMessage(symbol, mc, raw)
	}
}

func (p *Provider) handleClose(symbol string, mc *marketConn, err error) {
	p.mu.Lock()
	current := p.conns[symbol] == mc
	if current {
		delete(p.conns, symbol)
	}
	planned := mc.planned
	p.mu.Unlock()

	if planned {
		// refresh cycle or unsubscribe already owns the reconnect decision
		return
	}
	if !current {
		return
	}
	p.log.Warn("market stream closed unexpectedly",
		logger.String("provider", Name),
		logger.String("symbol", symbol),
		logger.Error(err))
	p.metrics.SetConnected(Name, false)
	p.timers.Cancel(symbol, provider.PurposeRefresh)
	p.timers.Schedule(symbol, provider.PurposeReconnect, p.cfg.ReconnectDelay, func() {
		p.redial(symbol)
	})
}

func (p *Provider) handleMessage(symbol string, mc *marketConn, raw []byte) {
	text := string(raw)

	// application-level ping convention: "[ping <id> ping]" -> "[pong <id> pong]"
	if strings.HasPrefix(text, "[ping ") && strings.HasSuffix(text, " ping]") {
		pong := strings.TrimSuffix(strings.TrimPrefix(text, "[ping "), " ping]")
		_ = mc.ws.WriteMessage(websocket.TextMessage, []byte("[pong "+pong+" pong]"))
		return
	}

	var msg wsMessage
	if err := json.Unmarshal(raw, &msg); err != nil || len(msg.Data.B) == 0 || len(msg.Data.A) == 0 {
		p.log.Debug("unrecognized message dropped", logger.String("provider", Name), logger.String("symbol", symbol))
		p.metrics.RecordError(repository.ErrKindParse)
		return
	}

	market := msg.Data.M
	if market == "" {
		market = symbol
	}
	p.mu.Lock()
	types, subscribed := p.subs[market]
	funding, hasFunding := p.fundingCache[market]
	p.mu.Unlock()
	if !subscribed || !models.HasType(types, models.DataTypeOrderbook) {
		return
	}

	bestBid, err1 := strconv.ParseFloat(msg.Data.B[0].P, 64)
	bestAsk, err2 := strconv.ParseFloat(msg.Data.A[0].P, 64)
	if err1 != nil || err2 != nil {
		p.log.Warn("bad price level dropped", logger.String("provider", Name), logger.String("symbol", market))
		p.metrics.RecordError(repository.ErrKindParse)
		return
	}

	ts := time.Now()
	if msg.Ts > 0 {
		ts = time.UnixMilli(msg.Ts)
	}
	snap := models.OrderbookSnapshot{
		Symbol:    market,
		BestBid:   bestBid,
		BestAsk:   bestAsk,
		Bids:      toLevels(msg.Data.B),
		Asks:      toLevels(msg.Data.A),
		Timestamp: ts,
	}
	if hasFunding {
		snap.FundingRate = funding.FundingRate
	}
	p.bus.PublishOrderbook(models.OrderbookEvent{Provider: Name, Book: snap})
}

func toLevels(entries []wsEntry) []models.Level {
	out := make([]models.Level, 0, len(entries))
	for _, e := range entries {
		px, err1 := strconv.ParseFloat(e.P, 64)
		qty, err2 := strconv.ParseFloat(e.Q, 64)
		if err1 != nil || err2 != nil {
			continue
		}
		out = append(out, models.Level{Price: px, Size: qty})
	}
	return out
}

func (p *Provider) scheduleFunding(symbol string) {
	var tick func()
	tick = func() {
		p.mu.Lock()
		_, ok := p.subs[symbol]
		p.mu.Unlock()
		if !ok {
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

// fetchFunding pulls the markets listing and publishes the symbol's funding
// snapshot. Failures leave the cached value untouched; the schedule is not
// disturbed.
func (p *Provider) fetchFunding(ctx context.Context, symbol string) {
	var resp marketsResponse
	err := p.rest.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         p.cfg.APIURL + "/api/v1/info/markets",
		Headers:     map[string]string{"User-Agent": p.cfg.UserAgent},
		QueryParams: map[string][]string{"market": {symbol}},
	}, &resp)
	if err != nil {
		p.log.Error("funding fetch failed", logger.String("provider", Name), logger.Error(err))
		p.metrics.RecordError(repository.ErrKindRest)
		return
	}
	if resp.Status != "OK" || len(resp.Data) == 0 {
		p.log.Error("markets response not OK", logger.String("provider", Name), logger.String("status", resp.Status))
		p.metrics.RecordError(repository.ErrKindRest)
		return
	}

	var rateStr string
	found := false
	for _, market := range resp.Data {
		if market.Name == symbol {
			rateStr = market.MarketStats.FundingRate
			found = true
			break
		}
	}
	if !found {
		p.log.Warn("symbol not in markets listing", logger.String("provider", Name), logger.String("symbol", symbol))
		p.metrics.RecordError(repository.ErrKindRest)
		return
	}

	rate, err := strconv.ParseFloat(rateStr, 64)
	if err != nil {
		p.log.Error("funding rate unparseable", logger.String("provider", Name), logger.String("value", rateStr))
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
