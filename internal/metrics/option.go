package metrics

// Exporter selects where meter readers push or expose data.
type Exporter string

const (
	ExporterPrometheus Exporter = "prometheus"
	ExporterOTLP       Exporter = "otlp-grpc"
)

// Config is assembled from Options by NewMetricProvider.
type Config struct {
	ServiceName string
	Exporters   []ExporterCfg
}

// ExporterCfg describes one reader. Endpoint, Headers and Insecure only
// apply to OTLP.
type ExporterCfg struct {
	Exporter Exporter
	Endpoint string
	Headers  map[string]string
	Insecure bool
}

// Option mutates a Config.
type Option func(*Config)

// WithServiceName sets the service.name resource attribute.
func WithServiceName(name string) Option {
	return func(c *Config) { c.ServiceName = name }
}

// WithPrometheus exposes instruments on the scrape endpoint.
func WithPrometheus() Option {
	return func(c *Config) {
		c.Exporters = append(c.Exporters, ExporterCfg{Exporter: ExporterPrometheus})
	}
}

// WithOTLP pushes instruments to a collector over gRPC.
func WithOTLP(endpoint string, headers map[string]string, insecure bool) Option {
	return func(c *Config) {
		c.Exporters = append(c.Exporters, ExporterCfg{
			Exporter: ExporterOTLP,
			Endpoint: endpoint,
			Headers:  headers,
			Insecure: insecure,
		})
	}
}

type serverConfig struct {
	port string
}

// ServerOption configures the scrape server.
type ServerOption func(*serverConfig)

// WithPort sets the scrape server's listen port.
func WithPort(port string) ServerOption {
	return func(c *serverConfig) { c.port = port }
}
