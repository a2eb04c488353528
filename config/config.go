package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/baysaa41/mmo-ranking/app/observability"
)

// Config struct to hold the configuration settings
type Config struct {
	Postgres      PostgresConfig      `yaml:"postgres"`
	NATS          NATSConfig          `yaml:"nats"`
	Observability ObservabilityConfig `yaml:"observability"`
	Ranking       RankingConfig       `yaml:"ranking"`
	Quota         QuotaConfig         `yaml:"quota"`
}

// PostgresConfig holds Postgres configuration.
type PostgresConfig struct {
	DSN string `yaml:"dsn" validate:"required"`
}

// NATSConfig holds NATS configuration. An empty URL disables event publishing.
type NATSConfig struct {
	URL     string `yaml:"url" validate:"omitempty,url"`
	Subject string `yaml:"subject"`
}

// ObservabilityConfig holds configuration for observability components
type ObservabilityConfig struct {
	MetricsAddress string `yaml:"metrics_address"`
	Environment    string `yaml:"environment"`
	LogLevel       string `yaml:"log_level" validate:"omitempty,oneof=debug info warn warning error"`
	JSONLogs       bool   `yaml:"json_logs"`
}

// RankingConfig tunes ranking passes.
type RankingConfig struct {
	Parallelism       int   `yaml:"parallelism" validate:"min=1,max=64"`
	SnapshotRetention int   `yaml:"snapshot_retention" validate:"min=1"`
	LockNamespace     int32 `yaml:"lock_namespace" validate:"min=0,max=32767"`
}

// QuotaConfig holds the admission quota defaults.
type QuotaConfig struct {
	AimagMaxRegionID     int64  `yaml:"aimag_max_region_id" validate:"min=0"`
	AimagListQuota       int    `yaml:"aimag_list_quota" validate:"min=0"`
	DuuregListQuota      int    `yaml:"duureg_list_quota" validate:"min=0"`
	MaxFourthPerProvince int    `yaml:"max_fourth_per_province" validate:"min=0"`
	TiePolicy            string `yaml:"tie_policy" validate:"oneof=include exclude"`
}

const (
	DefaultNATSSubject       = "olympiad.ranking.completed"
	defaultParallelism       = 4
	defaultSnapshotRetention = 3
	defaultLockNamespace     = 4242
)

// Defaults returns a configuration with every optional field populated.
func Defaults() Config {
	return Config{
		NATS: NATSConfig{Subject: DefaultNATSSubject},
		Observability: ObservabilityConfig{
			LogLevel: "info",
		},
		Ranking: RankingConfig{
			Parallelism:       defaultParallelism,
			SnapshotRetention: defaultSnapshotRetention,
			LockNamespace:     defaultLockNamespace,
		},
		Quota: QuotaConfig{
			AimagMaxRegionID:     21,
			AimagListQuota:       20,
			DuuregListQuota:      50,
			MaxFourthPerProvince: 2,
			TiePolicy:            "include",
		},
	}
}

// LoadConfig loads the configuration from a YAML file. A missing file falls
// back to environment variables; either way environment overrides win.
func LoadConfig(filename string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := Defaults()

	data, err := os.ReadFile(filename)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
		if os.Getenv("DATABASE_URL") == "" {
			return nil, fmt.Errorf("config file %q not found and DATABASE_URL environment variable not set", filename)
		}
	default:
		return nil, fmt.Errorf("failed to read config %q: %w", filename, err)
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks struct constraints.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("NATS_SUBJECT"); v != "" {
		cfg.NATS.Subject = v
	}
	if v := os.Getenv("METRICS_ADDRESS"); v != "" {
		cfg.Observability.MetricsAddress = v
	}
	if v := os.Getenv("ENV"); v != "" {
		cfg.Observability.Environment = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}
	if v := os.Getenv("JSON_LOGS"); v != "" {
		cfg.Observability.JSONLogs = v == "true"
	}
	if v := os.Getenv("RANKING_PARALLELISM"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid RANKING_PARALLELISM value: %w", err)
		}
		cfg.Ranking.Parallelism = n
	}
	if v := os.Getenv("RANKING_SNAPSHOT_RETENTION"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid RANKING_SNAPSHOT_RETENTION value: %w", err)
		}
		cfg.Ranking.SnapshotRetention = n
	}
	if v := os.Getenv("QUOTA_TIE_POLICY"); v != "" {
		cfg.Quota.TiePolicy = v
	}
	return nil
}

// ToObsConfig maps the observability section onto the logger settings.
func ToObsConfig(appCfg *Config) observability.Config {
	return observability.Config{
		Environment: appCfg.Observability.Environment,
		LogLevel:    appCfg.Observability.LogLevel,
		JSONLogs:    appCfg.Observability.JSONLogs,
	}
}
