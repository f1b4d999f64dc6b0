package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables consulted by Load.
const (
	EnvAPIURL    = "WIKIBASE_API_URL"
	EnvUserAgent = "WIKIBASE_USER_AGENT"
	EnvCSRFToken = "WIKIBASE_CSRF_TOKEN"
)

// MaxBatchSize is the most ids wbgetentities accepts per request.
const MaxBatchSize = 50

// Config holds the client configuration.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Request RequestConfig `yaml:"request"`
	Log     LogConfig     `yaml:"log"`
}

// APIConfig describes the remote repository.
type APIConfig struct {
	Endpoint  string   `yaml:"endpoint"`
	UserAgent string   `yaml:"user_agent"`
	Languages []string `yaml:"languages"`
	Bot       bool     `yaml:"bot"`
	BatchSize int      `yaml:"batch_size"`
	// CSRFToken is a pre-obtained edit token. Leave empty to fetch one.
	CSRFToken string `yaml:"csrf_token"`
}

// RequestConfig holds HTTP request settings.
type RequestConfig struct {
	Retries int           `yaml:"retries"`
	Timeout Duration      `yaml:"timeout"`
	Gap     Duration      `yaml:"gap"`
	Backoff BackoffConfig `yaml:"backoff"`
}

// BackoffConfig holds exponential backoff settings.
type BackoffConfig struct {
	BaseDelay Duration `yaml:"base_delay"`
	MaxDelay  Duration `yaml:"max_delay"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Client   LogSettings `yaml:"client"`
	Requests LogSettings `yaml:"requests"`
}

// LogSettings holds settings for a specific logger.
type LogSettings struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			Endpoint:  "https://www.wikidata.org/w/api.php",
			Languages: []string{"en"},
			BatchSize: MaxBatchSize,
		},
		Request: RequestConfig{
			Retries: 3,
			Timeout: Duration(60 * time.Second),
			Gap:     Duration(100 * time.Millisecond),
			Backoff: BackoffConfig{
				BaseDelay: Duration(500 * time.Millisecond),
				MaxDelay:  Duration(30 * time.Second),
			},
		},
		Log: LogConfig{
			Client: LogSettings{
				Path:  "./logs/wikibase.log",
				Level: "INFO",
			},
			Requests: LogSettings{
				Path:  "./logs/requests.log",
				Level: "INFO",
			},
		},
	}
}

// Load loads the configuration from path. A missing file is created with
// defaults. A .env file next to it is loaded into the environment before
// the environment overrides are applied; overrides are never written back.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if err := Save(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to save config file: %w", err)
	}

	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvAPIURL); v != "" {
		cfg.API.Endpoint = v
	}
	if v := os.Getenv(EnvUserAgent); v != "" {
		cfg.API.UserAgent = v
	}
	if cfg.API.CSRFToken == "" {
		if v := os.Getenv(EnvCSRFToken); v != "" {
			cfg.API.CSRFToken = v
		}
	}
}

var languagePattern = regexp.MustCompile(`^[a-z]{2,3}(-[a-z0-9]+)*$`)

// Validate checks the settings that would otherwise fail on the first request.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid api endpoint %q: must be an absolute http(s) URL", c.API.Endpoint)
	}
	if c.API.BatchSize < 1 || c.API.BatchSize > MaxBatchSize {
		return fmt.Errorf("invalid batch_size %d: must be between 1 and %d", c.API.BatchSize, MaxBatchSize)
	}
	for _, lang := range c.API.Languages {
		if !languagePattern.MatchString(lang) {
			return fmt.Errorf("invalid language code %q", lang)
		}
	}
	if c.Request.Retries < 1 {
		return fmt.Errorf("invalid retries %d: must be at least 1", c.Request.Retries)
	}
	return nil
}

// Save writes the configuration to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# Wikibase client configuration
# ----------------------------
# Durations accept ns, us, ms, s, m, h, d (day), w (week).
# Environment overrides: ` + EnvAPIURL + `, ` + EnvUserAgent + `, ` + EnvCSRFToken + `

`)
	data = append(header, data...)

	reToken := regexp.MustCompile(`(?m)^(\s+)csrf_token:`)
	data = reToken.ReplaceAll(data, []byte("${1}# Prefer "+EnvCSRFToken+" over storing tokens here\n${1}csrf_token:"))

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
