package provider

import (
	"context"

	"PerpScan/internal/domain/models"
	"PerpScan/internal/domain/repository"
	"PerpScan/pkg/logger"
)

// StartSpec is one provider's startup configuration: whether it runs, which
// native symbols to subscribe, and which feeds each subscription carries.
type StartSpec struct {
	Enabled   bool
	Symbols   []string
	DataTypes []models.DataType
}

// Manager holds the registered providers and starts or stops them according
// to configuration. A provider that fails to start never aborts the others.
type Manager struct {
	log       *logger.Logger
	metrics   repository.Metrics
	providers map[string]repository.DataProvider
	order     []string
}

func NewManager(log *logger.Logger, metrics repository.Metrics) *Manager {
	return &Manager{
		log:       log,
		metrics:   metrics,
		providers: make(map[string]repository.DataProvider),
	}
}

// Register adds a provider under its own name. Registering the same name
// twice replaces the earlier provider.
func (m *Manager) Register(p repository.DataProvider) {
	name := p.Name()
	if _, ok := m.providers[name]; !ok {
		m.order = append(m.order, name)
	}
	m.providers[name] = p
}

// Get returns a registered provider by name.
func (m *Manager) Get(name string) (repository.DataProvider, bool) {
	p, ok := m.providers[name]
	return p, ok
}

// Names returns registered provider names in registration order.
func (m *Manager) Names() []string {
	return append([]string(nil), m.order...)
}

// StartAll connects and subscribes every enabled provider. Providers named in
// specs but never registered, and connect or subscribe failures, are logged
// and skipped.
func (m *Manager) StartAll(ctx context.Context, specs map[string]StartSpec) {
	for name := range specs {
		if _, ok := m.providers[name]; !ok {
			m.log.Warn("configured provider not registered, skipping", logger.String("provider", name))
			m.metrics.RecordError(repository.ErrKindConfig)
		}
	}

	for _, name := range m.order {
		spec, ok := specs[name]
		if !ok {
			m.log.Warn("provider has no configuration entry, skipping", logger.String("provider", name))
			m.metrics.RecordError(repository.ErrKindConfig)
			continue
		}
		if !spec.Enabled {
			m.log.Info("provider disabled", logger.String("provider", name))
			continue
		}

		p := m.providers[name]
		if err := p.Connect(ctx); err != nil {
			m.log.Error("provider connect failed, skipping", logger.String("provider", name), logger.Error(err))
			m.metrics.RecordError(repository.ErrKindConnect)
			continue
		}
		for _, symbol := range spec.Symbols {
			if err := p.Subscribe(ctx, symbol, spec.DataTypes); err != nil {
				m.log.Error("subscribe failed",
					logger.String("provider", name),
					logger.String("symbol", symbol),
					logger.Error(err))
				m.metrics.RecordError(repository.ErrKindConnect)
			}
		}
		m.log.Info("provider started",
			logger.String("provider", name),
			logger.Strings("symbols", spec.Symbols))
	}
}

// StopAll disconnects every registered provider, continuing through failures.
func (m *Manager) StopAll() {
	for _, name := range m.order {
		if err := m.providers[name].Disconnect(); err != nil {
			m.log.Error("provider disconnect failed", logger.String("provider", name), logger.Error(err))
		}
	}
}
