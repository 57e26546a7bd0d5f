package symbols

import "sort"

// Mapper translates provider-native symbol spellings to canonical symbols and
// back. It is built once at startup and never mutated; WithMapping returns an
// extended copy for callers that need additional symbols.
type Mapper struct {
	// canonical symbol -> known spellings across all providers
	variants map[string][]string
	// provider name -> canonical symbol -> native spelling
	providerSymbols map[string]map[string]string
	// canonical symbols in registration order
	supported []string
}

// New builds a Mapper from a variant table and per-provider native spellings.
// Both maps are copied; the Mapper does not retain the arguments.
func New(variants map[string][]string, providerSymbols map[string]map[string]string) *Mapper {
	m := &Mapper{
		variants:        make(map[string][]string, len(variants)),
		providerSymbols: make(map[string]map[string]string, len(providerSymbols)),
	}
	for canonical, vs := range variants {
		m.variants[canonical] = append([]string(nil), vs...)
		m.supported = append(m.supported, canonical)
	}
	sort.Strings(m.supported)
	for provider, mapping := range providerSymbols {
		pm := make(map[string]string, len(mapping))
		for canonical, native := range mapping {
			pm[canonical] = native
		}
		m.providerSymbols[provider] = pm
	}
	return m
}

// Default returns the mapper for the symbols the scanner ships with.
func Default() *Mapper {
	return New(
		map[string][]string{
			"BTC": {"BTC", "BTC-USD", "BTCUSD"},
			"ETH": {"ETH", "ETH-USD", "ETHUSD"},
			"BNB": {"BNB", "BNB-USD", "BNBUSD"},
			"SUI": {"SUI", "SUI-USD", "SUIUSD"},
		},
		map[string]map[string]string{
			"hyperliquid": {
				"BTC": "BTC",
				"ETH": "ETH",
				"BNB": "BNB",
				"SUI": "SUI",
			},
			"extended": {
				"BTC": "BTC-USD",
				"ETH": "ETH-USD",
				"BNB": "BNB-USD",
				"SUI": "SUI-USD",
			},
		},
	)
}

// Normalize maps a provider-native spelling to its canonical symbol. The
// variant table is consulted first, then the provider's own mapping. Returns
// ok=false for anything unrecognized; it never panics.
func (m *Mapper) Normalize(providerSymbol, providerName string) (string, bool) {
	for _, canonical := range m.supported {
		for _, v := range m.variants[canonical] {
			if v == providerSymbol {
				return canonical, true
			}
		}
	}
	if pm, ok := m.providerSymbols[providerName]; ok {
		for canonical, native := range pm {
			if native == providerSymbol {
				return canonical, true
			}
		}
	}
	return "", false
}

// ProviderSymbol returns the native spelling a provider expects for a
// canonical symbol, for outbound subscription requests.
func (m *Mapper) ProviderSymbol(canonical, providerName string) (string, bool) {
	pm, ok := m.providerSymbols[providerName]
	if !ok {
		return "", false
	}
	native, ok := pm[canonical]
	return native, ok
}

// Variants returns the known spellings for a canonical symbol.
func (m *Mapper) Variants(canonical string) []string {
	return append([]string(nil), m.variants[canonical]...)
}

// Supported returns all canonical symbols in stable order.
func (m *Mapper) Supported() []string {
	return append([]string(nil), m.supported...)
}

// WithMapping returns a copy of the mapper extended with one canonical symbol,
// its spelling variants, and optional per-provider native spellings. The
// receiver is left unchanged.
func (m *Mapper) WithMapping(canonical string, variants []string, providerSymbols map[string]string) *Mapper {
	vs := make(map[string][]string, len(m.variants)+1)
	for c, v := range m.variants {
		vs[c] = v
	}
	vs[canonical] = variants

	ps := make(map[string]map[string]string, len(m.providerSymbols))
	for provider, mapping := range m.providerSymbols {
		pm := make(map[string]string, len(mapping)+1)
		for c, native := range mapping {
			pm[c] = native
		}
		if native, ok := providerSymbols[provider]; ok {
			pm[canonical] = native
		}
		ps[provider] = pm
	}
	return New(vs, ps)
}
