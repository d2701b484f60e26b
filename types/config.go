package types

import (
	"time"
)

type ConfigManager interface {
	Load() error
	GetConfig() *ServiceConfig
	GetValue(path string, defaultValue interface{}) interface{}
	GetAs(path string, target interface{}) error
}

type ServiceConfig struct {
	Name        string             `yaml:"name" json:"name" validate:"required"`
	Version     string             `yaml:"version" json:"version" validate:"required"`
	Server      *ServerConfig      `yaml:"server" json:"server" validate:"required"`
	Logger      *LoggerConfig      `yaml:"logger" json:"logger" validate:"required"`
	Cache       *CacheConfig       `yaml:"cache" json:"cache" validate:"required"`
	Catalog     *CatalogConfig     `yaml:"catalog" json:"catalog" validate:"required"`
	Aggregator  *AggregatorConfig  `yaml:"aggregator" json:"aggregator"`
	Cron        *CronConfig        `yaml:"cron" json:"cron"`
	Middlewares *MiddlewaresConfig `yaml:"middlewares" json:"middlewares"`
	Metrics     *MetricsConfig     `yaml:"metrics" json:"metrics"`
	Client      *ClientConfig      `yaml:"client" json:"client" validate:"required"`
	Health      *HealthConfig      `yaml:"health" json:"health"`
	Providers   *ProvidersConfig   `yaml:"providers" json:"providers" validate:"required"`
}

type ServerConfig struct {
	HTTP *HTTPConfig `yaml:"http" json:"http" validate:"required"`
}

type HTTPConfig struct {
	Host            string `yaml:"host" json:"host"`
	Port            int    `yaml:"port" json:"port" validate:"min=1,max=65535"`
	ReadTimeout     int    `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout    int    `yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout     int    `yaml:"idle_timeout" json:"idle_timeout"`
	ShutdownTimeout int    `yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

type LoggerConfig struct {
	Type   string      `yaml:"type" json:"type"`
	Level  string      `yaml:"level" json:"level" validate:"required"`
	Config interface{} `yaml:"config" json:"config"`
}

// CacheConfig holds one TTL per provider family. Families missing from
// TTLs fall back to DefaultTTL.
type CacheConfig struct {
	DefaultTTL      time.Duration            `yaml:"default_ttl" json:"default_ttl" validate:"min=0"`
	CleanupInterval time.Duration            `yaml:"cleanup_interval" json:"cleanup_interval" validate:"min=0"`
	TTLs            map[string]time.Duration `yaml:"ttls" json:"ttls"`
}

type CatalogConfig struct {
	TTL             time.Duration `yaml:"ttl" json:"ttl" validate:"min=0"`
	Workers         int           `yaml:"workers" json:"workers" validate:"min=1"`
	RefreshSchedule string        `yaml:"refresh_schedule" json:"refresh_schedule"`
	WarmOnStart     bool          `yaml:"warm_on_start" json:"warm_on_start"`
}

// AggregatorConfig bounds each fan-out slot. SlotTimeout applies on top of
// the provider's own request timeout.
type AggregatorConfig struct {
	SlotTimeout   time.Duration `yaml:"slot_timeout" json:"slot_timeout" validate:"min=0"`
	PostsUsername string        `yaml:"posts_username" json:"posts_username"`
	PostsLimit    int           `yaml:"posts_limit" json:"posts_limit" validate:"min=0"`
}

type CronConfig struct {
	Enabled  bool   `yaml:"enabled" json:"enabled"`
	Timezone string `yaml:"timezone" json:"timezone" validate:"required_if=Enabled true"`
}

type MiddlewaresConfig struct {
	Enabled     bool                  `yaml:"enabled" json:"enabled"`
	Metadata    *MiddlewareItemConfig `yaml:"metadata" json:"metadata"`
	Logging     *MiddlewareItemConfig `yaml:"logging" json:"logging"`
	Recovery    *MiddlewareItemConfig `yaml:"recovery" json:"recovery"`
	Compression *MiddlewareItemConfig `yaml:"compression" json:"compression"`
	CORS        *MiddlewareItemConfig `yaml:"cors" json:"cors"`
	RateLimit   *MiddlewareItemConfig `yaml:"rate_limit" json:"rate_limit"`
}

type MiddlewareItemConfig struct {
	Enabled bool                   `yaml:"enabled" json:"enabled"`
	Weight  int                    `yaml:"weight" json:"weight" validate:"min=0"`
	Params  map[string]interface{} `yaml:"params" json:"params"`
}

type VersionInfo struct {
	Version   string `json:"version"`
	BuildInfo string `json:"build_info"`
}

type MetricsConfig struct {
	Enabled    bool                   `yaml:"enabled" json:"enabled"`
	Type       string                 `yaml:"type" json:"type" validate:"required_if=Enabled true"`
	Prefix     string                 `yaml:"prefix" json:"prefix"`
	Labels     map[string]string      `yaml:"labels" json:"labels"`
	HTTP       MetricsHTTPConfig      `yaml:"http" json:"http"`
	Collectors MetricsCollectorConfig `yaml:"collectors" json:"collectors"`
}

type MetricsHTTPConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
}

type MetricsCollectorConfig struct {
	Runtime bool `yaml:"runtime" json:"runtime"`
	Process bool `yaml:"process" json:"process"`
}

type HealthConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// ClientConfig configures the single pooled upstream client shared by
// every provider.
type ClientConfig struct {
	DefaultTimeout      time.Duration         `yaml:"default_timeout" json:"default_timeout" validate:"min=0"`
	MaxConnsPerHost     int                   `yaml:"max_conns_per_host" json:"max_conns_per_host" validate:"min=0"`
	MaxIdleConnDuration time.Duration         `yaml:"max_idle_conn_duration" json:"max_idle_conn_duration"`
	DefaultRetries      int                   `yaml:"default_retries" json:"default_retries" validate:"min=0"`
	UserAgent           string                `yaml:"user_agent" json:"user_agent"`
	CircuitBreaker      *CircuitBreakerConfig `yaml:"circuit_breaker" json:"circuit_breaker"`
}

type CircuitBreakerConfig struct {
	Enabled          bool          `yaml:"enabled" json:"enabled"`
	FailureThreshold int           `yaml:"failure_threshold" json:"failure_threshold"`
	RecoveryTimeout  time.Duration `yaml:"recovery_timeout" json:"recovery_timeout"`
	HalfOpenRequests int           `yaml:"half_open_requests" json:"half_open_requests"`
}

type ProvidersConfig struct {
	Country   *ProviderConfig `yaml:"country" json:"country" validate:"required"`
	SafetyA   *ProviderConfig `yaml:"safety_a" json:"safety_a" validate:"required"`
	SafetyB   *ProviderConfig `yaml:"safety_b" json:"safety_b" validate:"required"`
	Exchange  *ProviderConfig `yaml:"exchange" json:"exchange" validate:"required"`
	Climate   *ProviderConfig `yaml:"climate" json:"climate" validate:"required"`
	Economic  *ProviderConfig `yaml:"economic" json:"economic" validate:"required"`
	Wiki      *ProviderConfig `yaml:"wiki" json:"wiki" validate:"required"`
	POI       *ProviderConfig `yaml:"poi" json:"poi" validate:"required"`
	Heritage  *ProviderConfig `yaml:"heritage" json:"heritage" validate:"required"`
	News      *ProviderConfig `yaml:"news" json:"news" validate:"required"`
	NewsRSS   *ProviderConfig `yaml:"news_rss" json:"news_rss" validate:"required"`
	Social    *ProviderConfig `yaml:"social" json:"social" validate:"required"`
	Narrative *ProviderConfig `yaml:"narrative" json:"narrative" validate:"required"`
}

// ProviderConfig is shared by every upstream. Config carries the
// provider-specific block and is decoded by the provider itself.
type ProviderConfig struct {
	BaseURL         string        `yaml:"base_url" json:"base_url" validate:"required"`
	Timeout         time.Duration `yaml:"timeout" json:"timeout" validate:"min=0"`
	Retries         int           `yaml:"retries" json:"retries" validate:"min=0"`
	APIKey          string        `yaml:"api_key" json:"api_key"`
	RateLimit       float64       `yaml:"rate_limit" json:"rate_limit" validate:"min=0"`
	RateBurst       int           `yaml:"rate_burst" json:"rate_burst" validate:"min=0"`
	// FollowRedirects lets the client chase 3xx Location headers.
	FollowRedirects bool          `yaml:"follow_redirects" json:"follow_redirects"`
	Config          interface{}   `yaml:"config" json:"config"`
}
