package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadPaperDefaults(t *testing.T) {
	path := writeConfig(t, `
exchange:
  provider: paper
paper:
  balances:
    USD: 250
  tickers:
    BTC-USD: {bid: "100", ask: "101"}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Arbitrage.ReferenceCurrency != "USD" {
		t.Errorf("reference = %q, want USD", cfg.Arbitrage.ReferenceCurrency)
	}
	if got := cfg.Arbitrage.ThresholdDecimal().String(); got != "1.002" {
		t.Errorf("threshold = %s, want 1.002", got)
	}
	if len(cfg.Arbitrage.Products) != 3 {
		t.Errorf("products = %v, want 3 defaults", cfg.Arbitrage.Products)
	}
	if cfg.Arbitrage.PollInterval != time.Second {
		t.Errorf("poll interval = %v, want 1s", cfg.Arbitrage.PollInterval)
	}
	if cfg.Exchange.RequestsPerSecond != 3 || cfg.Exchange.MaxRetries != 5 {
		t.Errorf("rate/retries = %v/%d, want 3/5", cfg.Exchange.RequestsPerSecond, cfg.Exchange.MaxRetries)
	}
	if cfg.Exchange.RetryDelay != 500*time.Millisecond {
		t.Errorf("retry delay = %v, want 500ms", cfg.Exchange.RetryDelay)
	}
	if cfg.Paper.Balances["usd"] != "250" && cfg.Paper.Balances["USD"] != "250" {
		t.Errorf("paper balances = %v", cfg.Paper.Balances)
	}
	if q := cfg.Paper.Tickers["btc-usd"]; q.Ask != "101" {
		if q = cfg.Paper.Tickers["BTC-USD"]; q.Ask != "101" {
			t.Errorf("paper tickers = %v", cfg.Paper.Tickers)
		}
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Exchange: ExchangeConfig{
				Provider:   ProviderCoinbase,
				APIKey:     "k",
				APISecret:  "s",
				Passphrase: "p",
			},
			Arbitrage: ArbitrageConfig{
				ReferenceCurrency: "USD",
				Threshold:         "1.002",
				Products:          []string{"BTC-USD"},
				PollInterval:      time.Second,
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"paper needs no credentials", func(c *Config) {
			c.Exchange = ExchangeConfig{Provider: ProviderPaper}
		}, false},
		{"missing credentials", func(c *Config) { c.Exchange.Passphrase = "" }, true},
		{"unknown provider", func(c *Config) { c.Exchange.Provider = "kraken" }, true},
		{"zero threshold", func(c *Config) { c.Arbitrage.Threshold = "0" }, true},
		{"garbled threshold", func(c *Config) { c.Arbitrage.Threshold = "abc" }, true},
		{"no products", func(c *Config) { c.Arbitrage.Products = nil }, true},
		{"malformed product", func(c *Config) { c.Arbitrage.Products = []string{"BTCUSD"} }, true},
		{"zero interval", func(c *Config) { c.Arbitrage.PollInterval = 0 }, true},
		{"negative cancel after", func(c *Config) { c.Arbitrage.CancelAfter = -time.Second }, true},
		{"journal without path", func(c *Config) { c.Journal.Enabled = true }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
