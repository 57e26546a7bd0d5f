package engine

import (
	"context"
	"sync"
	"time"

	"PerpScan/internal/domain/models"
	"PerpScan/internal/domain/repository"
	"PerpScan/internal/store"
	"PerpScan/pkg/logger"
)

// Fees is one provider's fee schedule in percent. Only the taker leg enters
// the price-arbitrage estimate; the maker fee is carried for completeness.
type Fees struct {
	MakerPct float64
	TakerPct float64
}

// Config holds scan cadence and emission thresholds.
type Config struct {
	ScanInterval  time.Duration
	MinProfit     float64 // absolute currency units per unit traded
	MinFundingAPY float64 // annualized percent differential
}

// Engine periodically scans the market-data store across every symbol and
// provider pair and emits fee-adjusted arbitrage opportunities. It only reads
// the store and keeps no opportunity state between ticks.
type Engine struct {
	store    *store.Store
	fees     map[string]Fees
	cfg      Config
	notifier repository.Notifier
	metrics  repository.Metrics
	log      *logger.Logger

	mu     sync.RWMutex
	latest []models.Opportunity

	stopOnce sync.Once
	stopCh   chan struct{}
}

func New(s *store.Store, fees map[string]Fees, cfg Config, notifier repository.Notifier,
	metrics repository.Metrics, log *logger.Logger) *Engine {
	if cfg.ScanInterval <= 0 {
		cfg.ScanInterval = 5 * time.Second
	}
	if cfg.MinProfit <= 0 {
		cfg.MinProfit = 0.0001
	}
	if cfg.MinFundingAPY <= 0 {
		cfg.MinFundingAPY = 5
	}
	return &Engine{
		store:    s,
		fees:     fees,
		cfg:      cfg,
		notifier: notifier,
		metrics:  metrics,
		log:      log,
		stopCh:   make(chan struct{}),
	}
}

// Start runs the scan loop until ctx is cancelled or Stop is called.
func (e *Engine) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(e.cfg.ScanInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-e.stopCh:
				return
			case <-ticker.C:
				e.tick(ctx)
			}
		}
	}()
	e.log.Info("arbitrage engine started", logger.Duration("interval", e.cfg.ScanInterval))
}

// Stop halts the scan loop. Safe to call more than once.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stopCh) })
}

func (e *Engine) tick(ctx context.Context) {
	start := time.Now()
	opps := e.Scan()
	e.metrics.RecordScanDuration(time.Since(start).Seconds())

	e.mu.Lock()
	e.latest = opps
	e.mu.Unlock()

	for _, opp := range opps {
		e.metrics.RecordOpportunity(string(opp.Kind), opp.Symbol)
	}
	if len(opps) > 0 && e.notifier != nil {
		e.notifier.Notify(ctx, opps)
	}

	e.log.Debug("scan complete",
		logger.Int("symbols", len(e.store.Symbols())),
		logger.Int("providers", len(e.store.Providers())),
		logger.Int("opportunities", len(opps)))
}

// Latest returns the opportunity list of the most recent tick.
func (e *Engine) Latest() []models.Opportunity {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]models.Opportunity(nil), e.latest...)
}

// Scan evaluates every symbol and every unordered provider pair, in the
// store's discovery order, and returns the opportunities above threshold.
func (e *Engine) Scan() []models.Opportunity {
	now := time.Now()
	var opps []models.Opportunity

	providerOrder := e.store.Providers()
	for _, symbol := range e.store.Symbols() {
		all := e.store.AllData(symbol)

		var present []string
		for _, p := range providerOrder {
			if _, ok := all[p]; ok {
				present = append(present, p)
			}
		}

		for i := 0; i < len(present); i++ {
			for j := i + 1; j < len(present); j++ {
				providerA, providerB := present[i], present[j]
				dataA, dataB := all[providerA], all[providerB]

				if dataA.Orderbook != nil && dataB.Orderbook != nil {
					feesA, okA := e.fees[providerA]
					feesB, okB := e.fees[providerB]
					if okA && okB {
						opps = append(opps, priceOpportunities(symbol, now,
							providerA, *dataA.Orderbook, feesA,
							providerB, *dataB.Orderbook, feesB,
							e.cfg.MinProfit)...)
					}
				}

				if dataA.Funding != nil && dataB.Funding != nil {
					if opp, ok := fundingOpportunity(symbol, now,
						providerA, *dataA.Funding,
						providerB, *dataB.Funding,
						e.cfg.MinFundingAPY); ok {
						opps = append(opps, opp)
					}
				}
			}
		}
	}
	return opps
}
