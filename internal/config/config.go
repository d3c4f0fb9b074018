package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"

	"github.com/ZBugge/nfl-playoff-predictor/internal/bracket"
	"github.com/ZBugge/nfl-playoff-predictor/internal/scoring"
)

// Environments
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config is the process configuration, read from the environment
type Config struct {
	Environment string
	Port        string
	GRPCPort    string
	MetricsPort string

	DBDriver    string // memory, sqlite or postgres
	SQLiteFile  string
	DatabaseURL string
	SeedDemo    bool

	NATSURL     string
	NATSSubject string

	ClickHouseAddr     string
	ClickHouseDB       string
	ClickHouseUser     string
	ClickHousePassword string

	AuthentikBaseURL      string
	AuthentikClientID     string
	AuthentikClientSecret string
	AuthentikRedirectURL  string
	AdminGroups           []string

	ScoresEnabled  bool
	ScoresURL      string
	ScoresInterval time.Duration
	ScoresSeason   int

	GatePolicy bracket.GatePolicy
	Weights    scoring.Weights
}

// Load reads an optional .env file and then the environment.
// Variables already set in the environment win over the file.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	cfg := &Config{
		Environment: envOrDefault("ENVIRONMENT", EnvDevelopment),
		Port:        envOrDefault("PORT", "3000"),
		GRPCPort:    envOrDefault("GRPC_PORT", "50051"),
		MetricsPort: envOrDefault("METRICS_PORT", "9090"),

		DBDriver:    envOrDefault("DB_DRIVER", "memory"),
		SQLiteFile:  envOrDefault("SQLITE_FILE", "dev.sqlite"),
		DatabaseURL: envOrDefault("DATABASE_URL", ""),
		SeedDemo:    boolEnvOrDefault("SEED_DEMO", true),

		NATSURL:     envOrDefault("NATS_URL", "nats://localhost:4222"),
		NATSSubject: envOrDefault("NATS_SUBJECT", "playoffs.events"),

		ClickHouseAddr:     envOrDefault("CLICKHOUSE_ADDR", "localhost:9000"),
		ClickHouseDB:       envOrDefault("CLICKHOUSE_DB", "default"),
		ClickHouseUser:     envOrDefault("CLICKHOUSE_USER", "default"),
		ClickHousePassword: envOrDefault("CLICKHOUSE_PASSWORD", ""),

		AuthentikBaseURL:      envOrDefault("AUTHENTIK_BASE_URL", ""),
		AuthentikClientID:     envOrDefault("AUTHENTIK_CLIENT_ID", ""),
		AuthentikClientSecret: envOrDefault("AUTHENTIK_CLIENT_SECRET", ""),
		AuthentikRedirectURL:  envOrDefault("AUTHENTIK_REDIRECT_URL", "http://localhost:3000/auth/callback"),
		AdminGroups:           listEnv("ADMIN_GROUPS", []string{"admins", "authentik Admins"}),

		ScoresEnabled:  boolEnvOrDefault("SCORES_ENABLED", false),
		ScoresURL:      envOrDefault("SCORES_URL", "https://site.api.espn.com/apis/site/v2/sports/football/nfl/scoreboard"),
		ScoresInterval: durationEnvOrDefault("SCORES_INTERVAL", 2*time.Minute),
		ScoresSeason:   intEnvOrDefault("SCORES_SEASON", defaultSeason(time.Now())),
	}

	var err error
	if cfg.GatePolicy, err = bracket.ParseGatePolicy(envOrDefault("GATE_POLICY", "")); err != nil {
		return nil, err
	}
	if cfg.Weights, err = scoring.ParseWeights(envOrDefault("WEIGHTS", "")); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsDevelopment reports whether in-process stand-ins replace external services
func (c *Config) IsDevelopment() bool {
	return c.Environment == "" || c.Environment == EnvDevelopment
}

// Validate checks combinations the individual parsers cannot
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "memory", "sqlite":
	case "postgres":
		if c.DatabaseURL == "" && !c.IsDevelopment() {
			return errors.New("DATABASE_URL environment variable is required for postgres driver")
		}
	default:
		return fmt.Errorf("unknown DB_DRIVER: %s (valid: memory, sqlite, postgres)", c.DBDriver)
	}

	if !c.IsDevelopment() {
		if c.AuthentikBaseURL == "" || c.AuthentikClientID == "" || c.AuthentikClientSecret == "" {
			return errors.New("AUTHENTIK_BASE_URL, AUTHENTIK_CLIENT_ID, and AUTHENTIK_CLIENT_SECRET environment variables are required for production")
		}
	}

	if c.ScoresEnabled && c.ScoresURL == "" {
		return errors.New("SCORES_URL is required when SCORES_ENABLED is set")
	}
	return nil
}

// defaultSeason is the season whose playoffs run in the given month.
// January and February belong to the previous year's season.
func defaultSeason(now time.Time) int {
	if now.Month() <= time.February {
		return now.Year() - 1
	}
	return now.Year()
}
