// ABOUTME: Configuration for the admin server and CLI.
// ABOUTME: Layers defaults, an optional YAML file, .env files, and EKORU_* environment overrides.

package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Backend names.
const (
	BackendSQLite  = "sqlite"
	BackendGraphQL = "graphql"
)

// Config is the top-level configuration.
type Config struct {
	Port     string        `yaml:"port"`
	DBPath   string        `yaml:"db_path"` // empty means the CLI's default location
	Backend  string        `yaml:"backend"`
	PageSize int           `yaml:"page_size"`
	GraphQL  GraphQLConfig `yaml:"graphql"`
	Export   ExportConfig  `yaml:"export"`
}

// GraphQLConfig points the admin at a remote GraphQL backend.
type GraphQLConfig struct {
	Endpoint          string        `yaml:"endpoint"`
	Token             string        `yaml:"token"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
}

// ExportConfig tunes spreadsheet output.
type ExportConfig struct {
	TrueLabel     string `yaml:"true_label"`
	FalseLabel    string `yaml:"false_label"`
	MaxCellLength int    `yaml:"max_cell_length"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Port:     "9100",
		Backend:  BackendSQLite,
		PageSize: 10,
		GraphQL: GraphQLConfig{
			Timeout:           30 * time.Second,
			RequestsPerSecond: 10,
		},
		Export: ExportConfig{
			TrueLabel:     "Yes",
			FalseLabel:    "No",
			MaxCellLength: 32767,
		},
	}
}

// Load builds the configuration. path may be empty; a named file that does
// not exist is an error. Environment variables win over the file.
func Load(path string) (*Config, error) {
	loadDotEnv()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// loadDotEnv loads the first .env found in the working directory or its
// parents, then the one in the home directory. Existing variables are kept.
func loadDotEnv() {
	for _, p := range []string{".env", "../.env", "../../.env"} {
		if err := godotenv.Load(p); err == nil {
			break
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		godotenv.Load(filepath.Join(home, ".env"))
	}
}

func (c *Config) applyEnv() error {
	if v := env("EKORU_PORT"); v != "" {
		c.Port = v
	}
	if v := env("EKORU_DB_PATH"); v != "" {
		c.DBPath = v
	}
	if v := env("EKORU_BACKEND"); v != "" {
		c.Backend = strings.ToLower(v)
	}
	if v := env("EKORU_GRAPHQL_ENDPOINT"); v != "" {
		c.GraphQL.Endpoint = v
	}
	if v := env("EKORU_GRAPHQL_TOKEN"); v != "" {
		c.GraphQL.Token = v
	}
	if v := env("EKORU_PAGE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("EKORU_PAGE_SIZE: %w", err)
		}
		c.PageSize = n
	}
	return nil
}

func env(name string) string {
	return strings.TrimSpace(os.Getenv(name))
}

// Validate checks the configuration and fills zero tuning values with defaults.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendSQLite:
	case BackendGraphQL:
		if c.GraphQL.Endpoint == "" {
			return fmt.Errorf("graphql.endpoint is required for the graphql backend")
		}
	default:
		return fmt.Errorf("unknown backend %q (want %s or %s)", c.Backend, BackendSQLite, BackendGraphQL)
	}

	if c.PageSize <= 0 {
		return fmt.Errorf("page_size must be positive, got %d", c.PageSize)
	}
	if c.Port == "" {
		return fmt.Errorf("port is required")
	}

	d := Default()
	if c.GraphQL.Timeout <= 0 {
		c.GraphQL.Timeout = d.GraphQL.Timeout
	}
	if c.GraphQL.RequestsPerSecond <= 0 {
		c.GraphQL.RequestsPerSecond = d.GraphQL.RequestsPerSecond
	}
	if c.Export.MaxCellLength <= 0 {
		c.Export.MaxCellLength = d.Export.MaxCellLength
	}
	if c.Export.TrueLabel == "" {
		c.Export.TrueLabel = d.Export.TrueLabel
	}
	if c.Export.FalseLabel == "" {
		c.Export.FalseLabel = d.Export.FalseLabel
	}
	return nil
}

// LogSummary prints the effective settings, leaving out secrets.
func (c *Config) LogSummary() {
	log.Printf("Config: backend=%s port=%s page_size=%d", c.Backend, c.Port, c.PageSize)
	if c.Backend == BackendGraphQL {
		log.Printf("Config: graphql endpoint=%s rate=%.1f/s token_set=%t",
			c.GraphQL.Endpoint, c.GraphQL.RequestsPerSecond, c.GraphQL.Token != "")
	}
}
