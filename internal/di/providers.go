package di

import (
	"fmt"

	"PerpScan/internal/bus"
	"PerpScan/internal/domain/models"
	"PerpScan/internal/domain/repository"
	"PerpScan/internal/engine"
	"PerpScan/internal/handler/api"
	"PerpScan/internal/notify"
	"PerpScan/internal/provider"
	"PerpScan/internal/provider/extended"
	"PerpScan/internal/provider/hyperliquid"
	"PerpScan/internal/store"
	"PerpScan/internal/symbols"
	"PerpScan/pkg/config"
	xhttp "PerpScan/pkg/http"
	applogger "PerpScan/pkg/logger"
	"PerpScan/pkg/metrics"
	"PerpScan/pkg/server"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: "stdout",
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideBus creates the in-process market-data bus.
func ProvideBus() *bus.DataBus {
	return bus.New()
}

// ProvideMapper returns the symbol mapper with the built-in symbol set.
func ProvideMapper() *symbols.Mapper {
	return symbols.Default()
}

// ProvideStore creates the market-data store and attaches it to the bus.
func ProvideStore(b *bus.DataBus, mapper *symbols.Mapper, l *applogger.Logger, m repository.Metrics) *store.Store {
	return store.New(b, mapper, l, m)
}

// ProvideManager creates the provider manager and registers every provider
// that appears in config, enabled or not.
func ProvideManager(cfg *config.Config, b *bus.DataBus, l *applogger.Logger, m repository.Metrics) *provider.Manager {
	mgr := provider.NewManager(l, m)

	hl := cfg.Providers.Hyperliquid
	mgr.Register(hyperliquid.New(hyperliquid.Config{
		WebsocketURL:   hl.WebsocketURL,
		APIURL:         hl.APIURL,
		BookChannel:    hl.BookChannel,
		ReconnectDelay: hl.ReconnectDelay,
	}, b, l, m))

	ext := cfg.Providers.Extended
	mgr.Register(extended.New(extended.Config{
		WebsocketBaseURL: ext.WebsocketURL,
		APIURL:           ext.APIURL,
		Depth:            ext.Depth,
		UserAgent:        ext.UserAgent,
		ReconnectDelay:   ext.ReconnectDelay,
		RefreshInterval:  ext.RefreshInterval,
	}, b, l, m))

	return mgr
}

// ProvideNotifier creates the default log-based opportunity sink.
func ProvideNotifier(l *applogger.Logger) repository.Notifier {
	return notify.NewLogNotifier(l)
}

// ProvideEngine creates the arbitrage engine with per-provider fees from config.
func ProvideEngine(cfg *config.Config, s *store.Store, n repository.Notifier,
	m repository.Metrics, l *applogger.Logger) *engine.Engine {
	fees := map[string]engine.Fees{
		hyperliquid.Name: {
			MakerPct: cfg.Providers.Hyperliquid.Fees.MakerPct,
			TakerPct: cfg.Providers.Hyperliquid.Fees.TakerPct,
		},
		extended.Name: {
			MakerPct: cfg.Providers.Extended.Fees.MakerPct,
			TakerPct: cfg.Providers.Extended.Fees.TakerPct,
		},
	}
	return engine.New(s, fees, engine.Config{
		ScanInterval:  cfg.Engine.ScanInterval,
		MinProfit:     cfg.Engine.MinProfit,
		MinFundingAPY: cfg.Engine.MinFundingAPY,
	}, n, m, l)
}

// ProvideHTTPHandler creates the status API handler.
func ProvideHTTPHandler(l *applogger.Logger, mgr *provider.Manager, s *store.Store,
	eng *engine.Engine, mapper *symbols.Mapper) xhttp.Handler {
	return api.NewStatusHandler(l, mgr, s, eng, mapper)
}

// ProvideStartSpecs derives the per-provider startup specs from config.
func ProvideStartSpecs(cfg *config.Config) map[string]provider.StartSpec {
	specs := make(map[string]provider.StartSpec, 2)
	for name, pc := range map[string]config.ProviderConfig{
		hyperliquid.Name: cfg.Providers.Hyperliquid,
		extended.Name:    cfg.Providers.Extended,
	} {
		types := make([]models.DataType, 0, len(pc.DataTypes))
		for _, dt := range pc.DataTypes {
			types = append(types, models.DataType(dt))
		}
		specs[name] = provider.StartSpec{
			Enabled:   pc.Enabled,
			Symbols:   pc.Symbols,
			DataTypes: types,
		}
	}
	return specs
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	mgr *provider.Manager,
	specs map[string]provider.StartSpec,
	eng *engine.Engine,
	handler xhttp.Handler,
) *server.App {
	return server.New(cfg, l, mgr, specs, eng, handler)
}
