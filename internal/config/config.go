package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	HTTPAddr     string `env:"FORGE_HTTP_ADDR" env-default:":8080"`
	APIKeyHash   string `env:"FORGE_API_KEY_HASH"`
	CORSOrigins  string `env:"FORGE_CORS_ORIGINS" env-default:"*"`
	DatabaseURL  string `env:"DATABASE_URL"`
	RedisAddr    string `env:"REDIS_ADDR"`
	NATSURL      string `env:"NATS_URL"`
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	CompletionURL    string        `env:"FORGE_COMPLETION_URL"`
	CompletionKey    string        `env:"FORGE_COMPLETION_KEY"`
	CompletionModel  string        `env:"FORGE_COMPLETION_MODEL" env-default:"gpt-4o-mini"`
	GeneratorTimeout time.Duration `env:"FORGE_GENERATOR_TIMEOUT" env-default:"2m"`
	RetryDelay       time.Duration `env:"FORGE_RETRY_DELAY" env-default:"500ms"`

	S3Region   string `env:"S3_REGION" env-default:"us-east-1"`
	S3Bucket   string `env:"S3_BUCKET"`
	S3Endpoint string `env:"S3_ENDPOINT"`
}

func Load() (*Config, error) {
	var cfg Config

	// ReadEnv focuses strictly on environment variables; there is no config
	// file in this deployment model.
	err := cleanenv.ReadEnv(&cfg)
	if err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	return &cfg, nil
}
