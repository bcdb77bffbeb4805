package config

import (
	"fmt"
	"slices"

	"github.com/jonwraymond/breakercache/cache"
	"github.com/jonwraymond/breakercache/observe"
	"github.com/kelseyhightower/envconfig"
)

// Env holds process settings read from the environment.
type Env struct {
	ConfigPath string `envconfig:"BREAKER_CONFIG" default:"breaker.yaml"`

	RedisAddrs    []string `envconfig:"REDIS_ADDRS"`
	RedisPassword string   `envconfig:"REDIS_PASSWORD"`
	RedisDB       int      `envconfig:"REDIS_DB"`

	MongoURI        string `envconfig:"MONGO_URI"`
	MongoDatabase   string `envconfig:"MONGO_DATABASE" default:"logs"`
	MongoCollection string `envconfig:"MONGO_COLLECTION" default:"circuitbreaker"`

	LogDir    string `envconfig:"LOG_DIR"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	AdminAddr      string `envconfig:"ADMIN_ADDR" default:":8080"`
	AdminJWTSecret string `envconfig:"ADMIN_JWT_SECRET"`
	AdminJWTIssuer string `envconfig:"ADMIN_JWT_ISSUER"`
	// AdminInsecure allows serving the admin API without ADMIN_JWT_SECRET.
	AdminInsecure bool `envconfig:"ADMIN_INSECURE"`

	OTelTraces  string `envconfig:"OTEL_TRACES" default:"none"`
	OTelMetrics string `envconfig:"OTEL_METRICS" default:"prometheus"`

	// MaintenanceMode forces the kill-switch on regardless of the file.
	MaintenanceMode bool `envconfig:"MAINTENANCE_MODE"`
}

// LoadEnv reads Env from the process environment.
func LoadEnv() (Env, error) {
	var e Env
	if err := envconfig.Process("", &e); err != nil {
		return Env{}, fmt.Errorf("config: environment: %w", err)
	}
	if err := e.Validate(); err != nil {
		return Env{}, err
	}
	return e, nil
}

// Validate checks enumerated settings.
func (e Env) Validate() error {
	checks := []struct {
		name  string
		value string
		valid []string
	}{
		{"LOG_FORMAT", e.LogFormat, observe.ValidLogFormats},
		{"LOG_LEVEL", e.LogLevel, observe.ValidLogLevels},
		{"OTEL_TRACES", e.OTelTraces, observe.ValidTracingExporters},
		{"OTEL_METRICS", e.OTelMetrics, observe.ValidMetricsExporters},
	}
	for _, c := range checks {
		if !slices.Contains(c.valid, c.value) {
			return fmt.Errorf("%w: %s %q", ErrInvalid, c.name, c.value)
		}
	}
	if e.RedisDB < 0 {
		return fmt.Errorf("%w: REDIS_DB must be >= 0", ErrInvalid)
	}
	return nil
}

// RedisConfig returns the Redis settings, or false when no address is set.
func (e Env) RedisConfig() (cache.RedisConfig, bool) {
	return cache.RedisConfig{Addrs: e.RedisAddrs, Password: e.RedisPassword, DB: e.RedisDB}, len(e.RedisAddrs) > 0
}
