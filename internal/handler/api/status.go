package api

import (
	models "PerpScan/internal/domain/models"
	"PerpScan/internal/engine"
	"PerpScan/internal/provider"
	"PerpScan/internal/store"
	"PerpScan/internal/symbols"
	xhttp "PerpScan/pkg/http"
	xlogger "PerpScan/pkg/logger"

	"github.com/labstack/echo/v4"
)

// StatusHandler exposes provider health, the latest stored market data and
// the most recent scan's opportunities over HTTP.
type StatusHandler struct {
	logger  *xlogger.Logger
	manager *provider.Manager
	store   *store.Store
	engine  *engine.Engine
	mapper  *symbols.Mapper
}

func NewStatusHandler(logger *xlogger.Logger, manager *provider.Manager,
	st *store.Store, eng *engine.Engine, mapper *symbols.Mapper) *StatusHandler {
	return &StatusHandler{logger: logger, manager: manager, store: st, engine: eng, mapper: mapper}
}

func (h *StatusHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	g := e.Group("/api")
	g.GET("/providers", h.Providers)
	g.GET("/data/:symbol", h.Data)
	g.GET("/opportunities", h.Opportunities)
}

func (h *StatusHandler) Health(c echo.Context) error {
	names := h.manager.Names()
	connected := 0
	for _, name := range names {
		if p, ok := h.manager.Get(name); ok && p.IsConnected() {
			connected++
		}
	}
	status := "ok"
	if connected == 0 && len(names) > 0 {
		status = "degraded"
	}
	return xhttp.SuccessResponse(c, models.HealthStatus{
		Status:    status,
		Providers: len(names),
		Connected: connected,
	})
}

func (h *StatusHandler) Providers(c echo.Context) error {
	names := h.manager.Names()
	out := make([]models.ProviderStatus, 0, len(names))
	for _, name := range names {
		p, ok := h.manager.Get(name)
		out = append(out, models.ProviderStatus{
			Name:      name,
			Connected: ok && p.IsConnected(),
		})
	}
	return xhttp.ListResponse(c, out, int64(len(out)))
}

func (h *StatusHandler) Data(c echo.Context) error {
	req := &models.MarketDataRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	canonical, ok := h.mapper.Normalize(req.Symbol, req.Provider)
	if !ok {
		canonical = req.Symbol
	}

	all := h.store.AllData(canonical)
	if len(all) == 0 {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("no data for symbol '%s'", req.Symbol))
	}
	if req.Provider != "" {
		data, ok := all[req.Provider]
		if !ok {
			return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("no data for symbol '%s' from provider '%s'", req.Symbol, req.Provider))
		}
		return xhttp.SuccessResponse(c, map[string]models.StoredMarketData{req.Provider: data})
	}
	return xhttp.SuccessResponse(c, all)
}

func (h *StatusHandler) Opportunities(c echo.Context) error {
	req := &models.OpportunitiesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	opps := h.engine.Latest()
	if req.Kind != "" {
		filtered := opps[:0:0]
		for _, opp := range opps {
			if string(opp.Kind) == req.Kind {
				filtered = append(filtered, opp)
			}
		}
		opps = filtered
	}
	return xhttp.ListResponse(c, opps, int64(len(opps)))
}
