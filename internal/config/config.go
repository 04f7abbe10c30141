// Package config loads the dashboard configuration from YAML, .env files and LEADS_* variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-leads-dashboard/components/leads"
)

// Storage drivers.
const (
	StorageFile     = "file"
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// Config is the full runtime configuration.
type Config struct {
	API         APIConfig          `yaml:"api"`
	Server      ServerConfig       `yaml:"server"`
	Storage     StorageConfig      `yaml:"storage"`
	Leads       LeadsConfig        `yaml:"leads"`
	Logging     LoggingConfig      `yaml:"logging"`
	Credentials []leads.Credential `yaml:"credentials"`
}

// APIConfig points at the quotations backend. FixtureFile serves a local document instead.
type APIConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	// Timeout bounds each backend request. Zero leaves requests bounded only by their context.
	Timeout     time.Duration `yaml:"timeout"`
	FixtureFile string        `yaml:"fixture_file"`

	// SkipSchemaValidation decodes responses without checking them against the JSON schemas.
	SkipSchemaValidation bool `yaml:"skip_schema_validation"`
}

type ServerConfig struct {
	Listen        string        `yaml:"listen"`
	MetricsListen string        `yaml:"metrics_listen"`
	Title         string        `yaml:"title"`
	TokenSecret   string        `yaml:"token_secret"`
	TokenTTL      time.Duration `yaml:"token_ttl"`
}

type StorageConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
	DSN    string `yaml:"dsn"`
	Table  string `yaml:"table"`
}

type LeadsConfig struct {
	Locale   string `yaml:"locale"`
	PageSize int    `yaml:"page_size"`
	// FallbackTTL caches non-empty per-lead lookups. A negative value disables the cache.
	FallbackTTL  time.Duration `yaml:"fallback_ttl"`
	FallbackSize int           `yaml:"fallback_size"`

	ChartTheme      string        `yaml:"chart_theme"`
	ChartTTL        time.Duration `yaml:"chart_ttl"`
	ChartAssetsHost string        `yaml:"chart_assets_host"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

func substituteEnvVars(data []byte) []byte {
	return envVarPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		name := envVarPattern.FindSubmatch(match)[1]
		if val, ok := os.LookupEnv(string(name)); ok {
			return []byte(val)
		}
		return match
	})
}

// LoadEnvFiles loads .env style files into the process environment. Missing files are skipped
// and existing variables win.
func LoadEnvFiles(paths ...string) error {
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("config: load env file %s: %w", path, err)
		}
	}
	return nil
}

// Load reads path (optional), substitutes ${VAR} references, applies LEADS_* overrides and
// defaults, then validates.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := decode(substituteEnvVars(data), cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"LEADS_API_BASE_URL":   &cfg.API.BaseURL,
		"LEADS_API_KEY":        &cfg.API.APIKey,
		"LEADS_FIXTURE_FILE":   &cfg.API.FixtureFile,
		"LEADS_LISTEN":         &cfg.Server.Listen,
		"LEADS_METRICS_LISTEN": &cfg.Server.MetricsListen,
		"LEADS_TOKEN_SECRET":   &cfg.Server.TokenSecret,
		"LEADS_STORAGE_DRIVER": &cfg.Storage.Driver,
		"LEADS_STORAGE_PATH":   &cfg.Storage.Path,
		"LEADS_POSTGRES_DSN":   &cfg.Storage.DSN,
		"LEADS_LOCALE":         &cfg.Leads.Locale,
		"LEADS_LOG_LEVEL":      &cfg.Logging.Level,
		"LEADS_LOG_FORMAT":     &cfg.Logging.Format,
	}
	for key, target := range strs {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*target = strings.TrimSpace(v)
		}
	}
	if v, ok := lookup("LEADS_PAGE_SIZE"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: LEADS_PAGE_SIZE: %w", err)
		}
		cfg.Leads.PageSize = n
	}
	if v, ok := lookup("LEADS_FALLBACK_TTL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: LEADS_FALLBACK_TTL: %w", err)
		}
		cfg.Leads.FallbackTTL = d
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "http://localhost:5000"
	}
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = ":9876"
	}
	if cfg.Server.MetricsListen == "" {
		cfg.Server.MetricsListen = ":9877"
	}
	if cfg.Server.Title == "" {
		cfg.Server.Title = "Leads Admin"
	}
	if cfg.Server.TokenTTL == 0 {
		cfg.Server.TokenTTL = 12 * time.Hour
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = StorageFile
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = "./data/session.json"
	}
	if cfg.Leads.Locale == "" {
		cfg.Leads.Locale = leads.DefaultLocale
	}
	if cfg.Leads.PageSize == 0 {
		cfg.Leads.PageSize = leads.DefaultPageSize
	}
	if cfg.Leads.FallbackTTL == 0 {
		cfg.Leads.FallbackTTL = 10 * time.Second
	}
	if cfg.Leads.FallbackSize == 0 {
		cfg.Leads.FallbackSize = 128
	}
	if cfg.Leads.ChartTTL == 0 {
		cfg.Leads.ChartTTL = 5 * time.Minute
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
	if len(cfg.Credentials) == 0 {
		cfg.Credentials = leads.DefaultCredentials()
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case StorageFile:
		if c.Storage.Path == "" {
			return errors.New("storage.path is required for the file driver")
		}
	case StorageMemory:
	case StoragePostgres:
		if c.Storage.DSN == "" {
			return errors.New("storage.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported storage.driver %q (file, memory or postgres)", c.Storage.Driver)
	}
	if c.API.FixtureFile == "" && !strings.HasPrefix(c.API.BaseURL, "http://") && !strings.HasPrefix(c.API.BaseURL, "https://") {
		return fmt.Errorf("api.base_url %q must be an http(s) url", c.API.BaseURL)
	}
	if c.Leads.PageSize < 0 || c.Leads.PageSize > leads.MaxPageSize {
		return fmt.Errorf("leads.page_size must be between 1 and %d", leads.MaxPageSize)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("unsupported logging.format %q (console or json)", c.Logging.Format)
	}
	for i, cred := range c.Credentials {
		if cred.Email == "" {
			return fmt.Errorf("credentials[%d]: email is required", i)
		}
		if cred.Password == "" && cred.PasswordHash == "" {
			return fmt.Errorf("credentials[%d]: password or password_hash is required", i)
		}
	}
	return nil
}

// Redacted returns a copy safe to log.
func (c Config) Redacted() Config {
	out := c
	if out.API.APIKey != "" {
		out.API.APIKey = "***REDACTED***"
	}
	if out.Server.TokenSecret != "" {
		out.Server.TokenSecret = "***REDACTED***"
	}
	if out.Storage.DSN != "" {
		out.Storage.DSN = "***REDACTED***"
	}
	out.Credentials = make([]leads.Credential, len(c.Credentials))
	for i, cred := range c.Credentials {
		cred.Password = ""
		cred.PasswordHash = ""
		out.Credentials[i] = cred
	}
	return out
}
