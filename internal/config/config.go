// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Exchange providers.
const (
	ProviderCoinbase = "coinbase"
	ProviderPaper    = "paper"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Exchange  ExchangeConfig  `mapstructure:"exchange"`
	Arbitrage ArbitrageConfig `mapstructure:"arbitrage"`
	Paper     PaperConfig     `mapstructure:"paper"`
	Journal   JournalConfig   `mapstructure:"journal"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Health    HealthConfig    `mapstructure:"health"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// ExchangeConfig selects and configures the exchange provider.
type ExchangeConfig struct {
	Provider          string        `mapstructure:"provider"`
	RestURL           string        `mapstructure:"rest_url"` // https://api-public.sandbox.exchange.coinbase.com for the sandbox
	WebSocketURL      string        `mapstructure:"ws_url"`
	APIKey            string        `mapstructure:"api_key"`
	APISecret         string        `mapstructure:"api_secret"`
	Passphrase        string        `mapstructure:"passphrase"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	MaxRetries        uint          `mapstructure:"max_retries"`
	RetryDelay        time.Duration `mapstructure:"retry_delay"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	StaleTimeout      time.Duration `mapstructure:"stale_timeout"`
	UseWebSocket      bool          `mapstructure:"use_websocket"`
}

// HasCredentials reports whether all three API credentials are set.
func (c *ExchangeConfig) HasCredentials() bool {
	return c.APIKey != "" && c.APISecret != "" && c.Passphrase != ""
}

// ArbitrageConfig holds the decision engine and trading loop settings.
type ArbitrageConfig struct {
	ReferenceCurrency string        `mapstructure:"reference_currency"`
	Threshold         string        `mapstructure:"threshold"`
	Products          []string      `mapstructure:"products"`
	PollInterval      time.Duration `mapstructure:"poll_interval"`
	CancelAfter       time.Duration `mapstructure:"cancel_after"`
	TUIMode           bool          `mapstructure:"-"` // Set at runtime, not from config file
}

// ThresholdDecimal returns the threshold as a decimal.
func (c *ArbitrageConfig) ThresholdDecimal() decimal.Decimal {
	d, err := decimal.NewFromString(c.Threshold)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// PaperQuote is a fixed bid/ask for the paper exchange.
type PaperQuote struct {
	Bid string `mapstructure:"bid"`
	Ask string `mapstructure:"ask"`
}

// PaperConfig configures the in-memory exchange.
type PaperConfig struct {
	Balances        map[string]string     `mapstructure:"balances"`
	Tickers         map[string]PaperQuote `mapstructure:"tickers"`
	FillImmediately bool                  `mapstructure:"fill_immediately"`
	// LivePrices takes quotes from Coinbase when credentials are present.
	LivePrices bool `mapstructure:"live_prices"`
}

// JournalConfig configures the decision journal.
type JournalConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	TraceExporter  string `mapstructure:"trace_exporter"` // zipkin, otlp-grpc, otlp-http, stdout, none
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	OTLPHeaders    string `mapstructure:"otlp_headers"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
	// MetricsEndpoint additionally pushes metrics to an OTLP gRPC collector.
	MetricsEndpoint string `mapstructure:"metrics_endpoint"`
	MetricsInsecure bool   `mapstructure:"metrics_insecure"`
}

// HealthConfig configures the health server.
type HealthConfig struct {
	Port int `mapstructure:"port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables
	v.SetEnvPrefix("ARB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "ARB_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "ARB_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "ARB_LOG_LEVEL", "LOG_LEVEL")

	// Exchange credentials use the names the Coinbase tooling documents.
	v.BindEnv("exchange.provider", "ARB_EXCHANGE_PROVIDER")
	v.BindEnv("exchange.rest_url", "ARB_EXCHANGE_REST_URL", "COINBASE_API_URL")
	v.BindEnv("exchange.ws_url", "ARB_EXCHANGE_WS_URL", "COINBASE_WS_URL")
	v.BindEnv("exchange.api_key", "ARB_EXCHANGE_API_KEY", "COINBASE_API_KEY")
	v.BindEnv("exchange.api_secret", "ARB_EXCHANGE_API_SECRET", "COINBASE_API_SECRET")
	v.BindEnv("exchange.passphrase", "ARB_EXCHANGE_PASSPHRASE", "COINBASE_API_PASSPHRASE")

	// Arbitrage
	v.BindEnv("arbitrage.products", "ARB_PRODUCTS")
	v.BindEnv("arbitrage.threshold", "ARB_THRESHOLD")
	v.BindEnv("arbitrage.reference_currency", "ARB_REFERENCE_CURRENCY")

	// Telemetry
	v.BindEnv("telemetry.enabled", "ARB_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "ARB_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "ARB_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
	v.BindEnv("telemetry.otlp_headers", "ARB_OTEL_HEADERS", "OTEL_EXPORTER_OTLP_HEADERS")
	v.BindEnv("telemetry.metrics_endpoint", "ARB_OTEL_METRICS_ENDPOINT", "OTEL_EXPORTER_OTLP_METRICS_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "graph-arbitrage")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// Exchange defaults
	v.SetDefault("exchange.provider", ProviderCoinbase)
	v.SetDefault("exchange.rest_url", "https://api.exchange.coinbase.com")
	v.SetDefault("exchange.ws_url", "wss://ws-feed.exchange.coinbase.com")
	v.SetDefault("exchange.requests_per_second", 3)
	v.SetDefault("exchange.max_retries", 5)
	v.SetDefault("exchange.retry_delay", "500ms")
	v.SetDefault("exchange.request_timeout", "10s")
	v.SetDefault("exchange.stale_timeout", "5s")
	v.SetDefault("exchange.use_websocket", true)

	// Arbitrage defaults
	v.SetDefault("arbitrage.reference_currency", "USD")
	v.SetDefault("arbitrage.threshold", "1.002")
	v.SetDefault("arbitrage.products", []string{"BTC-USD", "ETH-USD", "ETH-BTC"})
	v.SetDefault("arbitrage.poll_interval", "1s")
	v.SetDefault("arbitrage.cancel_after", "0s")

	// Paper defaults
	v.SetDefault("paper.balances", map[string]string{"USD": "1000"})
	v.SetDefault("paper.fill_immediately", true)

	// Journal defaults
	v.SetDefault("journal.enabled", false)
	v.SetDefault("journal.path", "journal.db")

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "graph-arbitrage")
	v.SetDefault("telemetry.trace_exporter", "zipkin")
	v.SetDefault("telemetry.otlp_endpoint", "http://localhost:9411/api/v2/spans")
	v.SetDefault("telemetry.prometheus_port", 9090)

	v.SetDefault("health.port", 8081)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.Exchange.Provider {
	case ProviderCoinbase:
		if !c.Exchange.HasCredentials() {
			return fmt.Errorf("exchange.api_key, exchange.api_secret and exchange.passphrase are required for the coinbase provider")
		}
	case ProviderPaper:
	default:
		return fmt.Errorf("unknown exchange.provider: %q", c.Exchange.Provider)
	}

	if c.Arbitrage.ReferenceCurrency == "" {
		return fmt.Errorf("arbitrage.reference_currency is required")
	}
	if !c.Arbitrage.ThresholdDecimal().IsPositive() {
		return fmt.Errorf("invalid arbitrage.threshold: %q", c.Arbitrage.Threshold)
	}
	if len(c.Arbitrage.Products) == 0 {
		return fmt.Errorf("arbitrage.products cannot be empty")
	}
	for _, p := range c.Arbitrage.Products {
		base, quote, ok := strings.Cut(p, "-")
		if !ok || base == "" || quote == "" || strings.Contains(quote, "-") {
			return fmt.Errorf("invalid product in arbitrage.products: %q", p)
		}
	}
	if c.Arbitrage.PollInterval <= 0 {
		return fmt.Errorf("arbitrage.poll_interval must be positive")
	}
	if c.Arbitrage.CancelAfter < 0 {
		return fmt.Errorf("arbitrage.cancel_after cannot be negative")
	}
	if c.Journal.Enabled && c.Journal.Path == "" {
		return fmt.Errorf("journal.path is required when the journal is enabled")
	}
	return nil
}
