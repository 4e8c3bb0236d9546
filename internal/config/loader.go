package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "brane.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "BRANE_PORT")
	setString(&cfg.Server.CORSOrigin, "BRANE_CORS_ORIGIN")
	setDuration(&cfg.Server.ChatTimeout, "BRANE_CHAT_TIMEOUT")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "BRANE_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "BRANE_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "BRANE_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "BRANE_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "BRANE_PG_HEALTH_CHECK")
	setString(&cfg.OpenAI.APIKey, "OPENAI_API_KEY")
	setString(&cfg.OpenAI.ChatModel, "BRANE_CHAT_MODEL")
	setString(&cfg.OpenAI.EmbeddingModel, "BRANE_EMBEDDING_MODEL")
	setInt(&cfg.OpenAI.EmbeddingDimensions, "BRANE_EMBEDDING_DIMENSIONS")
	setString(&cfg.Exa.APIKey, "EXA_API_KEY")
	setString(&cfg.Exa.BaseURL, "BRANE_EXA_URL")
	setInt(&cfg.Agent.MaxSteps, "BRANE_AGENT_MAX_STEPS")
	setInt(&cfg.Search.DefaultLimit, "BRANE_SEARCH_DEFAULT_LIMIT")
	setInt(&cfg.Search.MaxLimit, "BRANE_SEARCH_MAX_LIMIT")
	setString(&cfg.Auth.JWTSecret, "BRANE_JWT_SECRET")
	setInt(&cfg.Auth.BcryptCost, "BRANE_BCRYPT_COST")
	setDuration(&cfg.Auth.AccessTokenExpiry, "BRANE_TOKEN_EXPIRY")
	setString(&cfg.Logging.Level, "BRANE_LOG_LEVEL")
	setString(&cfg.Logging.Service, "BRANE_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "BRANE_LOG_ASYNC")
	setFloat64(&cfg.Rate.RequestsPerSecond, "BRANE_RATE_RPS")
	setInt(&cfg.Rate.Burst, "BRANE_RATE_BURST")
}

// validate checks that required fields are set. Missing credentials are a
// startup failure, never a per-request one.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.OpenAI.APIKey == "" {
		return errors.New("openai.api_key is required (set OPENAI_API_KEY)")
	}
	if cfg.OpenAI.EmbeddingDimensions < 1 {
		return errors.New("openai.embedding_dimensions must be >= 1")
	}
	if cfg.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required (set BRANE_JWT_SECRET)")
	}
	if cfg.Agent.MaxSteps < 1 {
		return errors.New("agent.max_steps must be >= 1")
	}
	if cfg.Search.DefaultLimit < 1 || cfg.Search.MaxLimit < cfg.Search.DefaultLimit {
		return errors.New("search limits must satisfy 1 <= default_limit <= max_limit")
	}
	if cfg.Rate.Burst < 1 {
		return errors.New("rate.burst must be >= 1")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
