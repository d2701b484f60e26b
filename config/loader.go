package config

import (
	"context"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/saiset-co/sai-travel/types"
)

type Loader struct {
	validator *validator.Validate
}

func NewLoader() *Loader {
	return &Loader{
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (l *Loader) LoadFromFile(ctx context.Context, configPath string) (*types.ServiceConfig, error) {
	if configPath == "" {
		return nil, types.ErrConfigNotFound
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, types.WrapError(types.ErrConfigNotFound, "file not found: "+configPath)
	}

	data, err := l.ReadFileWithTimeout(ctx, configPath)
	if err != nil {
		return nil, types.WrapError(err, "failed to read config file")
	}

	return l.LoadFromBytes(data)
}

// LoadFromBytes expands ${VAR} references against the environment, so
// credentials can stay out of the file.
func (l *Loader) LoadFromBytes(data []byte) (*types.ServiceConfig, error) {
	config := l.Defaults()

	expanded := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expanded), config); err != nil {
		return nil, types.WrapError(types.ErrConfigParseFailed, err.Error())
	}

	if err := l.Validate(config); err != nil {
		return nil, err
	}

	return config, nil
}

func (l *Loader) Validate(config *types.ServiceConfig) error {
	if config == nil {
		return types.ErrConfigIsNil
	}

	if err := l.validator.Struct(config); err != nil {
		return types.WrapError(types.ErrConfigValidateFailed, err.Error())
	}

	return nil
}

func (l *Loader) ReadFileWithTimeout(ctx context.Context, filepath string) ([]byte, error) {
	type result struct {
		data []byte
		err  error
	}

	resultChan := make(chan result, 1)

	go func() {
		data, err := os.ReadFile(filepath)
		resultChan <- result{data: data, err: err}
	}()

	select {
	case res := <-resultChan:
		return res.data, res.err
	case <-ctx.Done():
		return nil, types.WrapError(ctx.Err(), "file read timeout")
	}
}

func (l *Loader) Defaults() *types.ServiceConfig {
	return &types.ServiceConfig{
		Name:    "sai-travel",
		Version: "0.1.0",
		Server: &types.ServerConfig{
			HTTP: &types.HTTPConfig{
				Host:            "0.0.0.0",
				Port:            8080,
				ReadTimeout:     30,
				WriteTimeout:    60,
				IdleTimeout:     120,
				ShutdownTimeout: 10,
			},
		},
		Logger: &types.LoggerConfig{
			Level: "info",
		},
		Cache: &types.CacheConfig{
			DefaultTTL:      time.Hour,
			CleanupInterval: 10 * time.Minute,
			TTLs: map[string]time.Duration{
				"country":   24 * time.Hour,
				"safety_a":  6 * time.Hour,
				"safety_b":  6 * time.Hour,
				"exchange":  time.Hour,
				"climate":   30 * 24 * time.Hour,
				"economic":  7 * 24 * time.Hour,
				"wiki":      7 * 24 * time.Hour,
				"poi":       24 * time.Hour,
				"heritage":  24 * time.Hour,
				"news":      30 * time.Minute,
				"social":    30 * time.Minute,
				"narrative": 7 * 24 * time.Hour,
			},
		},
		Catalog: &types.CatalogConfig{
			TTL:             6 * time.Hour,
			Workers:         8,
			RefreshSchedule: "0 0 */6 * * *",
			WarmOnStart:     true,
		},
		Aggregator: &types.AggregatorConfig{
			SlotTimeout:   20 * time.Second,
			PostsUsername: "anta_kaoi",
			PostsLimit:    10,
		},
		Cron: &types.CronConfig{
			Enabled:  true,
			Timezone: "UTC",
		},
		Metrics: &types.MetricsConfig{
			Enabled: true,
			Type:    "prometheus",
			Prefix:  "sai_travel",
			HTTP: types.MetricsHTTPConfig{
				Enabled: true,
				Path:    "/metrics",
			},
			Collectors: types.MetricsCollectorConfig{
				Runtime: true,
				Process: true,
			},
		},
		Health: &types.HealthConfig{
			Enabled: true,
		},
		Client: &types.ClientConfig{
			DefaultTimeout:      10 * time.Second,
			MaxConnsPerHost:     100,
			MaxIdleConnDuration: 90 * time.Second,
			DefaultRetries:      1,
			UserAgent:           "sai-travel/0.1 (travel information aggregator)",
			CircuitBreaker: &types.CircuitBreakerConfig{
				Enabled:          true,
				FailureThreshold: 5,
				RecoveryTimeout:  30 * time.Second,
				HalfOpenRequests: 2,
			},
		},
		Providers: defaultProviders(),
		Middlewares: &types.MiddlewaresConfig{
			Enabled: true,
			Recovery: &types.MiddlewareItemConfig{
				Enabled: true,
				Params: map[string]interface{}{
					"stack_trace": true,
				},
				Weight: 10,
			},
			Logging: &types.MiddlewareItemConfig{
				Enabled: true,
				Params: map[string]interface{}{
					"log_level":   "info",
					"log_headers": false,
				},
				Weight: 20,
			},
			Metadata: &types.MiddlewareItemConfig{
				Enabled: true,
				Params: map[string]interface{}{
					"generate_request_id": true,
				},
				Weight: 30,
			},
			RateLimit: &types.MiddlewareItemConfig{
				Enabled: false,
				Params: map[string]interface{}{
					"requests_per_second": 20,
					"burst":               40,
				},
				Weight: 40,
			},
			CORS: &types.MiddlewareItemConfig{
				Enabled: true,
				Params: map[string]interface{}{
					"allowed_origins": []string{"http://localhost:3000"},
					"allowed_methods": []string{"GET", "OPTIONS"},
					"allowed_headers": []string{"Content-Type", "X-Request-ID"},
					"max_age":         86400,
				},
				Weight: 50,
			},
			Compression: &types.MiddlewareItemConfig{
				Enabled: false,
				Params: map[string]interface{}{
					"algorithm": "br",
					"level":     6,
					"threshold": 1024,
				},
				Weight: 60,
			},
		},
	}
}

func defaultProviders() *types.ProvidersConfig {
	return &types.ProvidersConfig{
		Country: &types.ProviderConfig{
			BaseURL: "https://restcountries.com/v3.1",
			Timeout: 15 * time.Second,
		},
		SafetyA: &types.ProviderConfig{
			BaseURL:         "https://www.ezairyu.mofa.go.jp/opendata/country",
			Timeout:         10 * time.Second,
			RateLimit:       5,
			RateBurst:       5,
			FollowRedirects: true,
		},
		SafetyB: &types.ProviderConfig{
			BaseURL: "https://travel.state.gov/content/dam/travelData/TravelAdvisoryLatestCountry-en.json",
			Timeout: 15 * time.Second,
		},
		Exchange: &types.ProviderConfig{
			BaseURL: "https://api.frankfurter.app",
			Timeout: 10 * time.Second,
		},
		Climate: &types.ProviderConfig{
			BaseURL: "https://archive-api.open-meteo.com/v1/archive",
			Timeout: 15 * time.Second,
		},
		Economic: &types.ProviderConfig{
			BaseURL: "https://api.worldbank.org/v2",
			Timeout: 10 * time.Second,
		},
		Wiki: &types.ProviderConfig{
			BaseURL: "https://{lang}.wikipedia.org/w/api.php",
			Timeout: 10 * time.Second,
		},
		POI: &types.ProviderConfig{
			BaseURL: "https://api.opentripmap.com/0.1",
			Timeout: 10 * time.Second,
		},
		Heritage: &types.ProviderConfig{
			BaseURL: "https://en.wikipedia.org/w/api.php",
			Timeout: 10 * time.Second,
		},
		News: &types.ProviderConfig{
			BaseURL: "https://gnews.io/api/v4/search",
			Timeout: 10 * time.Second,
		},
		NewsRSS: &types.ProviderConfig{
			BaseURL:         "https://news.google.com/rss/search",
			Timeout:         10 * time.Second,
			FollowRedirects: true,
		},
		Social: &types.ProviderConfig{
			BaseURL: "https://api.twitter.com/2",
			Timeout: 10 * time.Second,
		},
		Narrative: &types.ProviderConfig{
			BaseURL: "https://api.anthropic.com/v1/messages",
			Timeout: 30 * time.Second,
		},
	}
}
