package config

import (
	"errors"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	HTTPAddr    string `env:"HTTP_ADDR" env-default:":8000"`
	DatabaseURL string `env:"DATABASE_URL"`
	RedisAddr   string `env:"REDIS_ADDR" env-default:"localhost:6379"`
	LogLevel    string `env:"LOG_LEVEL" env-default:"info"`
	Development bool   `env:"LOG_DEVELOPMENT" env-default:"false"`

	MinioEndpoint  string `env:"MINIO_ENDPOINT"`
	MinioBucket    string `env:"MINIO_BUCKET" env-default:"attachments"`
	MinioAccessKey string `env:"MINIO_ACCESS_KEY"`
	MinioSecretKey string `env:"MINIO_SECRET_KEY"`
	MinioRegion    string `env:"MINIO_REGION" env-default:"us-east-1"`
	// MinioPublicURL, when set, is used as the download URL prefix instead of presigning.
	MinioPublicURL string `env:"MINIO_PUBLIC_URL"`

	OpenAIAPIKey  string  `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string  `env:"OPENAI_BASE_URL"`
	LLMProvider   string  `env:"LLM_PROVIDER" env-default:"openai"`
	LLMRateLimit  float64 `env:"LLM_RATE_LIMIT" env-default:"0"`

	EvalConcurrency   int           `env:"EVAL_CONCURRENCY" env-default:"8"`
	WorkerConcurrency int           `env:"WORKER_CONCURRENCY" env-default:"5"`
	ProgressTTL       time.Duration `env:"PROGRESS_TTL" env-default:"24h"`

	KafkaBrokers          []string `env:"KAFKA_BROKERS" env-separator:","`
	KafkaEvaluationsTopic string   `env:"KAFKA_EVALUATIONS_TOPIC" env-default:"evaluations"`
}

// New reads CONFIG_PATH (default ./config/.env) and falls back to the
// process environment when that file does not exist.
func New() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "./config/.env"
	}

	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, err
		}
	}
	if cfg.EvalConcurrency < 1 {
		cfg.EvalConcurrency = 1
	}
	return &cfg, nil
}
