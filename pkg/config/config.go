package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// FeeSchedule is a provider's fee pair in percent. In YAML it is written as a
// two-element flow list, maker first: `fees: [0.01, 0.035]`.
type FeeSchedule struct {
	MakerPct float64
	TakerPct float64
}

func (f *FeeSchedule) UnmarshalYAML(node *yaml.Node) error {
	var pair []float64
	if err := node.Decode(&pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("fees must be [maker, taker], got %d elements", len(pair))
	}
	f.MakerPct = pair[0]
	f.TakerPct = pair[1]
	return nil
}

// ProviderConfig is the per-exchange section. Fields that only one provider
// reads (book_channel, depth, refresh_interval) are ignored by the other.
type ProviderConfig struct {
	Enabled         bool          `yaml:"enabled"`
	WebsocketURL    string        `yaml:"websocket_url"`
	APIURL          string        `yaml:"api_url"`
	Symbols         []string      `yaml:"symbols"`
	DataTypes       []string      `yaml:"data_types" default:"[\"orderbook\",\"funding\"]"`
	Fees            FeeSchedule   `yaml:"fees"`
	BookChannel     string        `yaml:"book_channel" default:"bbo" validate:"oneof=bbo l2Book"`
	Depth           int           `yaml:"depth" default:"1" validate:"min=1"`
	UserAgent       string        `yaml:"user_agent" default:"PerpScan/1.0"`
	ReconnectDelay  time.Duration `yaml:"reconnect_delay" default:"5s"`
	RefreshInterval time.Duration `yaml:"refresh_interval" default:"14s"`
}

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Logging     struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=trace debug info warn error"`
		Format string `yaml:"format" default:"json" validate:"oneof=json console"`
	} `yaml:"logging"`
	Server struct {
		Port            int           `yaml:"port" default:"8080" validate:"min=1,max=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Engine struct {
		ScanInterval  time.Duration `yaml:"scan_interval" default:"5s"`
		MinProfit     float64       `yaml:"min_profit" default:"0.0001"`
		MinFundingAPY float64       `yaml:"min_funding_apy" default:"5"`
	} `yaml:"engine"`
	Providers struct {
		Hyperliquid ProviderConfig `yaml:"hyperliquid"`
		Extended    ProviderConfig `yaml:"extended"`
	} `yaml:"providers"`
}

// Load reads a YAML configuration file, fills defaults and validates it.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("default config: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if _, err := fmt.Sscanf(v, "%d", &c.Server.Port); err != nil {
			return nil, fmt.Errorf("parse SERVER_PORT: %w", err)
		}
	}
	if v := os.Getenv("HYPERLIQUID_SYMBOLS"); v != "" {
		c.Providers.Hyperliquid.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("EXTENDED_SYMBOLS"); v != "" {
		c.Providers.Extended.Symbols = strings.Split(v, ",")
	}
	return c, nil
}

// Validate checks the configuration for structural and semantic errors.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	for name, p := range map[string]ProviderConfig{
		"hyperliquid": c.Providers.Hyperliquid,
		"extended":    c.Providers.Extended,
	} {
		if !p.Enabled {
			continue
		}
		if p.WebsocketURL == "" {
			return fmt.Errorf("providers.%s.websocket_url is required when enabled", name)
		}
		if len(p.Symbols) == 0 {
			return fmt.Errorf("providers.%s.symbols cannot be empty when enabled", name)
		}
		for _, dt := range p.DataTypes {
			if dt != "orderbook" && dt != "funding" {
				return fmt.Errorf("providers.%s.data_types: unknown type '%s'", name, dt)
			}
		}
	}
	return nil
}
