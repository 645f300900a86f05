// Package config holds the download settings shared by both commands.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	// EnvPrefix is the prefix of every environment variable, e.g. GDFETCH_APIKEY.
	EnvPrefix = "GDFETCH"
	appName   = "gdfetch"
)

var (
	ErrInvalidChunkSize   = errors.New("chunk size must be greater than 0")
	ErrInvalidMaxRetries  = errors.New("max retries must not be negative")
	ErrInvalidRetryWait   = errors.New("retry wait must not be negative")
	ErrInvalidHTTPRetries = errors.New("http retries must not be negative")
	ErrInvalidParallel    = errors.New("parallel must be at least 1")
	ErrNoCredentials      = errors.New("either a credentials file or an API key must be set")
)

// Config holds all application configuration
type Config struct {
	// Credentials is the OAuth client secret JSON downloaded from the
	// Google Cloud console.
	Credentials string `yaml:"credentials" envconfig:"CREDENTIALS"`
	// APIKey is used instead of OAuth for publicly shared files.
	APIKey string `yaml:"apiKey" envconfig:"APIKEY"`

	ChunkSize   Size          `yaml:"chunkSize" envconfig:"CHUNK_SIZE"`
	MaxRetries  int           `yaml:"maxRetries" envconfig:"MAX_RETRIES"`
	RetryWait   time.Duration `yaml:"retryWait" envconfig:"RETRY_WAIT"`
	HTTPRetries int           `yaml:"httpRetries" envconfig:"HTTP_RETRIES"`

	Parallel         int  `yaml:"parallel" envconfig:"PARALLEL"`
	RenameDuplicates bool `yaml:"renameDuplicates" envconfig:"RENAME_DUPLICATES"`
	SkipExisting     bool `yaml:"skipExisting" envconfig:"SKIP_EXISTING"`

	// RedirectPort is the loopback port of the OAuth consent redirect; 0
	// picks a free port.
	RedirectPort int `yaml:"redirectPort" envconfig:"REDIRECT_PORT"`

	LogLevel  string `yaml:"logLevel" envconfig:"LOG_LEVEL"`
	LogFormat string `yaml:"logFormat" envconfig:"LOG_FORMAT"`
}

// Default returns a configuration with the documented defaults.
func Default() *Config {
	return &Config{
		Credentials: "credentials.json",
		ChunkSize:   50 * MiB,
		MaxRetries:  10,
		RetryWait:   2 * time.Second,
		HTTPRetries: 2,
		Parallel:    1,
		LogLevel:    "info",
		LogFormat:   "console",
	}
}

// DefaultPath returns $HOME/.config/gdfetch.yaml, or "" without a home.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", appName+".yaml")
}

// Load builds the configuration from defaults, the YAML file at path and
// the environment, in that order. An empty path falls back to
// GDFETCH_CONFIG and then DefaultPath; only an explicitly named file has to
// exist.
func Load(path string) (*Config, error) {
	c := Default()

	explicit := true
	if path == "" {
		path = os.Getenv(EnvPrefix + "_CONFIG")
	}
	if path == "" {
		explicit = false
		path = DefaultPath()
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := decode(data, c); err != nil {
				return nil, fmt.Errorf("unmarshaling config file %s: %w", path, err)
			}
		case os.IsNotExist(err) && !explicit:
		default:
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, c); err != nil {
		return nil, fmt.Errorf("parsing environment variables: %w", err)
	}
	return c, nil
}

func decode(data []byte, c *Config) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(c)
}

// Validate ensures the configuration is valid
func (c *Config) Validate() error {
	if c.ChunkSize <= 0 {
		return ErrInvalidChunkSize
	}
	if c.MaxRetries < 0 {
		return ErrInvalidMaxRetries
	}
	if c.RetryWait < 0 {
		return ErrInvalidRetryWait
	}
	if c.HTTPRetries < 0 {
		return ErrInvalidHTTPRetries
	}
	if c.Parallel < 1 {
		return ErrInvalidParallel
	}
	if c.Credentials == "" && c.APIKey == "" {
		return ErrNoCredentials
	}
	return nil
}
