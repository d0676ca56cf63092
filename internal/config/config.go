// Package config loads the application configuration from a yaml file with
// environment variable overrides.
package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the full application configuration.
type Config struct {
	// Environment is the running environment (development or production).
	Environment string `env:"ENVIRONMENT" env-default:"development" yaml:"environment"`

	// HTTP configures the API server.
	HTTP struct {
		// Addr is the address and port the HTTP server listens on.
		Addr string `env:"HTTP_ADDR" env-default:":8080" yaml:"addr"`
		// ReadTimeout is the maximum duration for reading an entire request.
		ReadTimeout time.Duration `env:"HTTP_READ_TIMEOUT" env-default:"1m" yaml:"readTimeout"`
		// ReadHeaderTimeout is the time allowed to read request headers.
		ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" env-default:"10s" yaml:"readHeaderTimeout"`
		// WriteTimeout is the maximum duration before timing out response
		// writes. It must exceed the research time cap or streams get cut off.
		WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" env-default:"65m" yaml:"writeTimeout"`
		// IdleTimeout is the keep-alive idle limit.
		IdleTimeout time.Duration `env:"HTTP_IDLE_TIMEOUT" env-default:"2m" yaml:"idleTimeout"`
		// RequestTimeout caps non-streaming request handling. Streaming routes
		// are mounted outside this timeout.
		RequestTimeout time.Duration `env:"HTTP_REQUEST_TIMEOUT" env-default:"10s" yaml:"requestTimeout"`
		// MaxHeaderBytes caps request header parsing.
		MaxHeaderBytes int `env:"HTTP_MAX_HEADER_BYTES" env-default:"0" yaml:"maxHeaderBytes"`
		// MetricsPath is where Prometheus metrics are exposed.
		MetricsPath string `env:"HTTP_METRICS_PATH" env-default:"/metrics" yaml:"metricsPath"`
	} `yaml:"http"`

	// Database configures the PostgreSQL connection.
	Database struct {
		// Username for database authentication.
		Username string `env:"DATABASE_USERNAME" env-default:"myuser" yaml:"username"`
		// Password for database authentication.
		Password string `env:"DATABASE_PASSWORD" env-default:"mypassword" yaml:"password"`
		// Host is the database server hostname or IP address.
		Host string `env:"DATABASE_HOST" env-default:"localhost" yaml:"host"`
		// Port is the database server port.
		Port int `env:"DATABASE_PORT" env-default:"5432" yaml:"port"`
		// SslMode is the SSL mode for the connection.
		SslMode string `env:"DATABASE_SSL_MODE" env-default:"disable" yaml:"sslMode"`
		// DatabaseName is the database to connect to.
		DatabaseName string `env:"DATABASE_NAME" env-default:"research" yaml:"name"`
		// MaxOpenConnections caps open connections.
		MaxOpenConnections int `env:"DATABASE_MAX_OPEN_CONNECTIONS" env-default:"10" yaml:"maxOpenConnections"`
		// MaxIdleConnections caps idle connections.
		MaxIdleConnections int `env:"DATABASE_MAX_IDLE_CONNECTIONS" env-default:"8" yaml:"maxIdleConnections"`
		// ConnMaxLifetime bounds connection reuse.
		ConnMaxLifetime time.Duration `env:"DATABASE_CONNECTION_MAX_LIFETIME" env-default:"3m" yaml:"connMaxLifetime"`
		// ConnMaxIdleTime bounds connection idling.
		ConnMaxIdleTime time.Duration `env:"DATABASE_CONNECTION_MAX_IDLE_TIME" env-default:"3m" yaml:"connMaxIdleTime"`
	} `yaml:"database"`

	// Research bounds and defaults for research requests.
	Research struct {
		// MaxAttempts is how often a queued research is retried before it is
		// marked failed.
		MaxAttempts int `env:"RESEARCH_MAX_ATTEMPTS" env-default:"3" yaml:"maxAttempts"`
		// ResultCacheTTL is how long a completed result satisfies duplicate
		// queued requests for the same query and mode.
		ResultCacheTTL time.Duration `env:"RESEARCH_RESULT_CACHE_TTL" env-default:"24h" yaml:"resultCacheTTL"`
		// SectionConcurrency bounds parallel section research in deep mode.
		SectionConcurrency int `env:"RESEARCH_SECTION_CONCURRENCY" env-default:"3" yaml:"sectionConcurrency"`
	} `yaml:"research"`

	// LLM configures the OpenAI-compatible model endpoint.
	LLM struct {
		// BaseURL is the API endpoint; empty means api.openai.com.
		BaseURL string `env:"LLM_BASE_URL" yaml:"baseUrl"`
		// APIKey authenticates model calls.
		APIKey string `env:"LLM_API_KEY" yaml:"apiKey"`
		// ReasoningModel plans the research loop.
		ReasoningModel string `env:"LLM_REASONING_MODEL" env-default:"o3-mini" yaml:"reasoningModel"`
		// MainModel writes final reports.
		MainModel string `env:"LLM_MAIN_MODEL" env-default:"gpt-4o" yaml:"mainModel"`
		// FastModel synthesizes findings.
		FastModel string `env:"LLM_FAST_MODEL" env-default:"gpt-4o-mini" yaml:"fastModel"`
	} `yaml:"llm"`

	// Search configures the web search provider.
	Search struct {
		// Provider is one of duckduckgo, brave or tavily.
		Provider string `env:"SEARCH_PROVIDER" env-default:"duckduckgo" yaml:"provider"`
		// BraveAPIKey is required for the brave provider.
		BraveAPIKey string `env:"SEARCH_BRAVE_API_KEY" yaml:"braveApiKey"`
		// TavilyAPIKey is required for the tavily provider.
		TavilyAPIKey string `env:"SEARCH_TAVILY_API_KEY" yaml:"tavilyApiKey"`
		// TavilyDepth is tavily's search depth (basic or advanced).
		TavilyDepth string `env:"SEARCH_TAVILY_DEPTH" env-default:"basic" yaml:"tavilyDepth"`
	} `yaml:"search"`

	// JWT configures bearer token verification.
	JWT struct {
		// PublicKeyPath points to the RS256 PEM public key used to verify tokens.
		PublicKeyPath string `env:"JWT_PUBLIC_KEY_PATH" env-default:"jwt.pub" yaml:"publicKeyPath"`
		// PrivateKeyPath points to the RS256 PEM private key. Only the jwt
		// subcommand needs it.
		PrivateKeyPath string `env:"JWT_PRIVATE_KEY_PATH" env-default:"jwt.key" yaml:"privateKeyPath"`
	} `yaml:"jwt"`

	// Worker configures the background job runner.
	Worker struct {
		// Count is the number of concurrent river workers.
		Count int `env:"WORKER_COUNT" env-default:"5" yaml:"count"`
	} `yaml:"worker"`

	// GracefulShutdownTimeout is how long shutdown waits for in-flight
	// requests and jobs.
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_TIMEOUT" env-default:"10s" yaml:"gracefulShutdownTimeout"` //nolint: lll
}

// Load reads the yaml config at configPath and applies environment overrides.
func Load(configPath string) (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("could not read config: %w", err)
	}

	return &cfg, nil
}
