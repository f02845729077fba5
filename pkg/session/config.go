package session

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds PostgreSQL connection settings. Values come from an
// optional YAML file with environment variable overrides; the standard
// PG* variables work out of the box. DATABASE_URL, when set, wins over
// the individual fields.
type Config struct {
	URL      string `yaml:"url" env:"DATABASE_URL" env-default:""`
	Host     string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User     string `yaml:"user" env:"PGUSER" env-default:"postgres"`
	Password string `yaml:"-" env:"PGPASSWORD"`
	Database string `yaml:"database" env:"PGDATABASE" env-default:"postgres"`
	SSLMode  string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"prefer"`
	MaxConns int32  `yaml:"max_conns" env:"PGMAX_CONNS" env-default:"10"`
	MinConns int32  `yaml:"min_conns" env:"PGMIN_CONNS" env-default:"2"`

	// Echo logs every statement with its arguments and elapsed time.
	Echo bool `yaml:"echo" env:"KEEL_ECHO" env-default:"false"`
}

// Load reads configuration from the YAML file at path, with environment
// variables overriding file values. A missing or empty path is fine;
// the environment and defaults alone then apply.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := cleanenv.ReadConfig(path, cfg); err != nil {
				return nil, fmt.Errorf("failed to read %s: %w", path, err)
			}
			return cfg, nil
		}
	}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns the local development defaults.
func DefaultConfig() *Config {
	return &Config{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Database: "postgres",
		SSLMode:  "prefer",
		MaxConns: 10,
		MinConns: 2,
	}
}

// ConnString returns the pgx connection string for the configuration.
func (c *Config) ConnString() string {
	if c.URL != "" {
		return c.URL
	}
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}
	port := c.Port
	if port == 0 {
		port = 5432
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, port, c.User, c.Password, c.Database, sslMode,
	)
}
