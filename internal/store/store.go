package store

import (
	"sync"
	"time"

	"PerpScan/internal/bus"
	"PerpScan/internal/domain/models"
	"PerpScan/internal/domain/repository"
	"PerpScan/internal/symbols"
	"PerpScan/pkg/logger"
)

// Store is the latest-value market-data cache keyed by provider and canonical
// symbol. It subscribes to the data bus at construction and is the only
// writer of its own state; readers go through the accessor methods. A single
// mutex preserves the single-writer discipline.
type Store struct {
	mu sync.RWMutex
	// provider -> canonical symbol -> latest data
	data map[string]map[string]*models.StoredMarketData
	// discovery order, so scans iterate deterministically
	providerOrder []string
	symbolOrder   []string

	mapper  *symbols.Mapper
	log     *logger.Logger
	metrics repository.Metrics
}

// New builds a Store wired to the bus. Updates whose symbol cannot be
// normalized are logged and dropped before any mutation.
func New(b *bus.DataBus, mapper *symbols.Mapper, log *logger.Logger, metrics repository.Metrics) *Store {
	s := &Store{
		data:    make(map[string]map[string]*models.StoredMarketData),
		mapper:  mapper,
		log:     log,
		metrics: metrics,
	}
	b.SubscribeOrderbook(s.applyOrderbook)
	b.SubscribeFunding(s.applyFunding)
	return s
}

func (s *Store) applyOrderbook(ev models.OrderbookEvent) {
	canonical, ok := s.mapper.Normalize(ev.Book.Symbol, ev.Provider)
	if !ok {
		s.log.Warn("unmappable orderbook symbol dropped",
			logger.String("provider", ev.Provider),
			logger.String("symbol", ev.Book.Symbol))
		s.metrics.RecordError(repository.ErrKindSymbol)
		return
	}

	s.mu.Lock()
	cell := s.cell(ev.Provider, canonical)
	book := ev.Book
	cell.Orderbook = &book
	cell.LastUpdated = time.Now()
	s.mu.Unlock()

	s.metrics.RecordUpdate(ev.Provider, string(models.DataTypeOrderbook))
	s.metrics.RecordBook(ev.Provider, canonical, ev.Book.BestBid, ev.Book.BestAsk)
}

func (s *Store) applyFunding(ev models.FundingEvent) {
	canonical, ok := s.mapper.Normalize(ev.Funding.Symbol, ev.Provider)
	if !ok {
		s.log.Warn("unmappable funding symbol dropped",
			logger.String("provider", ev.Provider),
			logger.String("symbol", ev.Funding.Symbol))
		s.metrics.RecordError(repository.ErrKindSymbol)
		return
	}

	s.mu.Lock()
	cell := s.cell(ev.Provider, canonical)
	funding := ev.Funding
	cell.Funding = &funding
	cell.LastUpdated = time.Now()
	s.mu.Unlock()

	s.metrics.RecordUpdate(ev.Provider, string(models.DataTypeFunding))
}

// cell returns the entry for (provider, canonical), creating it on first
// write. Caller holds s.mu.
func (s *Store) cell(provider, canonical string) *models.StoredMarketData {
	bySymbol, ok := s.data[provider]
	if !ok {
		bySymbol = make(map[string]*models.StoredMarketData)
		s.data[provider] = bySymbol
		s.providerOrder = append(s.providerOrder, provider)
	}
	cell, ok := bySymbol[canonical]
	if !ok {
		cell = &models.StoredMarketData{}
		bySymbol[canonical] = cell
		if !contains(s.symbolOrder, canonical) {
			s.symbolOrder = append(s.symbolOrder, canonical)
		}
	}
	return cell
}

// GetOrderbookData returns the latest order books for a canonical symbol.
// An empty provider selects all providers, in discovery order.
func (s *Store) GetOrderbookData(canonical, provider string) []models.OrderbookSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.OrderbookSnapshot
	for _, p := range s.providerOrder {
		if provider != "" && p != provider {
			continue
		}
		if cell, ok := s.data[p][canonical]; ok && cell.Orderbook != nil {
			out = append(out, *cell.Orderbook)
		}
	}
	return out
}

// GetFundingData returns the latest funding snapshots for a canonical symbol.
// An empty provider selects all providers, in discovery order.
func (s *Store) GetFundingData(canonical, provider string) []models.FundingSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.FundingSnapshot
	for _, p := range s.providerOrder {
		if provider != "" && p != provider {
			continue
		}
		if cell, ok := s.data[p][canonical]; ok && cell.Funding != nil {
			out = append(out, *cell.Funding)
		}
	}
	return out
}

// AllData returns a copy of every provider's entry for a canonical symbol.
// Providers with no writes for the symbol are absent.
func (s *Store) AllData(canonical string) map[string]models.StoredMarketData {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]models.StoredMarketData)
	for _, p := range s.providerOrder {
		if cell, ok := s.data[p][canonical]; ok {
			out[p] = *cell
		}
	}
	return out
}

// Providers returns provider names in discovery order.
func (s *Store) Providers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.providerOrder...)
}

// Symbols returns canonical symbols in discovery order.
func (s *Store) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.symbolOrder...)
}

// Clear drops every entry.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string]map[string]*models.StoredMarketData)
	s.providerOrder = nil
	s.symbolOrder = nil
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
