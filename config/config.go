// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"

	"github.com/example/collab-template-demo/domain/validation"
)

// Config holds every tunable of the room server.
type Config struct {
	Port               string        `env:"PORT,default=3000" validate:"required,numeric"`
	CORSAllowedOrigins string        `env:"CORS_ALLOWED_ORIGINS,default=*" validate:"required"`
	LogLevel           string        `env:"LOG_LEVEL,default=info" validate:"oneof=debug info warn error"`
	NATSPort           int           `env:"NATS_PORT,default=4222" validate:"gt=0,lte=65535"`
	JetStreamDir       string        `env:"JETSTREAM_DIR,default=/tmp/collab-template-demo" validate:"required"`
	ShutdownTimeout    time.Duration `env:"SHUTDOWN_TIMEOUT,default=30s" validate:"gt=0"`

	OllamaHost          string        `env:"OLLAMA_HOST,default=http://localhost:11434" validate:"required,url"`
	OllamaModelPrimary  string        `env:"OLLAMA_MODEL_PRIMARY,default=gemma3:latest" validate:"required"`
	OllamaModelFallback string        `env:"OLLAMA_MODEL_FALLBACK,default=phi4-mini:latest" validate:"required"`
	OllamaTimeout       time.Duration `env:"OLLAMA_TIMEOUT,default=45s" validate:"gte=1s,lte=120s"`
	OllamaNumPredict    int           `env:"OLLAMA_NUM_PREDICT,default=800" validate:"gt=0"`
	DefaultTemperature  float64       `env:"DEFAULT_TEMPERATURE,default=0.3" validate:"gte=0,lte=2"`

	TemplatesDir string `env:"TEMPLATES_DIR,default=./templates" validate:"required"`
	DBPath       string `env:"DB_PATH,default=./data/rooms.db" validate:"required"`

	HistoryLimit      int           `env:"HISTORY_LIMIT,default=50" validate:"gt=0,lte=500"`
	EvictionGrace     time.Duration `env:"EVICTION_GRACE,default=60s" validate:"gt=0"`
	EvictionSweep     time.Duration `env:"EVICTION_SWEEP,default=10s" validate:"gt=0"`
	RetentionDays     int           `env:"RETENTION_DAYS,default=30" validate:"gt=0"`
	RetentionInterval time.Duration `env:"RETENTION_INTERVAL,default=24h" validate:"gt=0"`

	RateLimitRequests   int           `env:"RATE_LIMIT_REQUESTS,default=100" validate:"gt=0"`
	RateLimitWindow     time.Duration `env:"RATE_LIMIT_WINDOW,default=60s" validate:"gt=0"`
	WSRateLimitMessages int           `env:"WS_RATE_LIMIT_MESSAGES,default=30" validate:"gt=0"`
	WSRateLimitWindow   time.Duration `env:"WS_RATE_LIMIT_WINDOW,default=10s" validate:"gt=0"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB,default=0" validate:"gte=0"`
}

var validate = validator.New()

// Load reads the environment into a Config and validates it.
func Load() (Config, error) {
	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	for key, model := range map[string]string{
		"OLLAMA_MODEL_PRIMARY":  c.OllamaModelPrimary,
		"OLLAMA_MODEL_FALLBACK": c.OllamaModelFallback,
	} {
		if err := validation.ValidateModelName(model); err != nil {
			return fmt.Errorf("invalid configuration: %s: %w", key, err)
		}
	}
	if c.EvictionSweep > c.EvictionGrace {
		return fmt.Errorf("invalid configuration: EVICTION_SWEEP (%s) exceeds EVICTION_GRACE (%s)", c.EvictionSweep, c.EvictionGrace)
	}
	return nil
}

// Addr returns the HTTP listen address.
func (c Config) Addr() string {
	return ":" + c.Port
}

// UseRedis reports whether the distributed rate limiter is configured.
func (c Config) UseRedis() bool {
	return c.RedisAddr != ""
}
