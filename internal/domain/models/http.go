package models

// MarketDataRequest is the bound request for GET /api/data/:symbol.
type MarketDataRequest struct {
	Symbol   string `param:"symbol" validate:"required"`
	Provider string `query:"provider"`
}

// OpportunitiesRequest is the bound request for GET /api/opportunities.
type OpportunitiesRequest struct {
	Kind string `query:"kind" validate:"omitempty,oneof=price funding"`
}

// ProviderStatus is one provider's entry in GET /api/providers.
type ProviderStatus struct {
	Name      string `json:"name"`
	Connected bool   `json:"connected"`
}

// HealthStatus is the GET /healthz payload.
type HealthStatus struct {
	Status    string `json:"status"`
	Providers int    `json:"providers"`
	Connected int    `json:"connected"`
}
