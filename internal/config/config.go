// Package config resolves the runtime configuration from defaults, an
// optional YAML/JSON file, a .env file and environment variables, in that
// order of precedence (last wins).
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/synthex/pkg/domain"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Environment variables recognised by Load.
const (
	EnvAPIKey            = "SYNTHEX_API_KEY"
	EnvLegacyAPIKey      = "IBM_RXN_API_KEY"
	EnvBaseURL           = "SYNTHEX_BASE_URL"
	EnvPort              = "SYNTHEX_PORT"
	EnvStore             = "SYNTHEX_STORE"
	EnvRedisAddr         = "SYNTHEX_REDIS_ADDR"
	EnvRedisPassword     = "SYNTHEX_REDIS_PASSWORD"
	EnvLogLevel          = "SYNTHEX_LOG_LEVEL"
	EnvMaxProcedureBytes = "SYNTHEX_MAX_PROCEDURE_BYTES"
)

// Store drivers.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// AuthSchemeNone sends the credential as the raw Authorization value.
const AuthSchemeNone = "none"

// ServiceConfig describes the external extraction endpoint.
type ServiceConfig struct {
	BaseURL        string            `mapstructure:"base_url" yaml:"base_url"`
	Path           string            `mapstructure:"path" yaml:"path"`
	AuthScheme     string            `mapstructure:"auth_scheme" yaml:"auth_scheme"`
	APIKey         domain.Credential `mapstructure:"api_key" yaml:"api_key,omitempty"`
	CredentialFile string            `mapstructure:"credential_file" yaml:"credential_file,omitempty"`
	Timeout        time.Duration     `mapstructure:"timeout" yaml:"timeout"`
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Port            int           `mapstructure:"port" yaml:"port"`
	Metrics         bool          `mapstructure:"metrics" yaml:"metrics"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	SecureCookies   bool          `mapstructure:"secure_cookies" yaml:"secure_cookies"`
}

// RedisConfig is only read when StoreConfig.Driver is "redis".
type RedisConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Password string `mapstructure:"password" yaml:"password,omitempty"`
	DB       int    `mapstructure:"db" yaml:"db"`
	Prefix   string `mapstructure:"prefix" yaml:"prefix"`
	Lock     bool   `mapstructure:"lock" yaml:"lock"`
}

// StoreConfig selects the session store.
type StoreConfig struct {
	Driver     string        `mapstructure:"driver" yaml:"driver"`
	SessionTTL time.Duration `mapstructure:"session_ttl" yaml:"session_ttl"`
	Redis      RedisConfig   `mapstructure:"redis" yaml:"redis"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Config is the fully resolved runtime configuration.
type Config struct {
	Service           ServiceConfig `mapstructure:"service" yaml:"service"`
	Server            ServerConfig  `mapstructure:"server" yaml:"server"`
	Store             StoreConfig   `mapstructure:"store" yaml:"store"`
	Log               LogConfig     `mapstructure:"log" yaml:"log"`
	MaxProcedureBytes int           `mapstructure:"max_procedure_bytes" yaml:"max_procedure_bytes"`
}

// Default returns the configuration used when nothing else is provided.
func Default() *Config {
	return &Config{
		Service: ServiceConfig{
			BaseURL:    "https://rxn.res.ibm.com",
			Path:       "/rxn/api/api/v1/actions/convert-paragraph-to-actions",
			AuthScheme: AuthSchemeNone,
		},
		Server: ServerConfig{
			Port:            8080,
			Metrics:         true,
			ShutdownTimeout: 5 * time.Second,
		},
		Store: StoreConfig{
			Driver:     StoreMemory,
			SessionTTL: 24 * time.Hour,
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "synthex:session:",
				Lock:   true,
			},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadDotEnv loads .env style files into the process environment.
// Missing files are ignored and existing variables are never overridden.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// Load resolves the configuration. path may be empty.
func Load(path string) (*Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := readFile(path)
		if err != nil {
			return nil, err
		}
		if err := decode(raw, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg, lookup); err != nil {
		return nil, err
	}

	if cfg.Service.APIKey.IsZero() && cfg.Service.CredentialFile != "" {
		data, err := os.ReadFile(cfg.Service.CredentialFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read credential file: %w", err)
		}
		cfg.Service.APIKey = domain.Credential(strings.TrimSpace(string(data)))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// readFile parses a YAML or JSON document (by extension) into a generic map.
func readFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	raw := map[string]any{}
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		return raw, nil
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return raw, nil
}

func decode(raw map[string]any, cfg *Config) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		),
	})
	if err != nil {
		return err
	}
	return decoder.Decode(raw)
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvAPIKey); ok && v != "" {
		cfg.Service.APIKey = domain.Credential(v)
	} else if v, ok := lookup(EnvLegacyAPIKey); ok && v != "" {
		cfg.Service.APIKey = domain.Credential(v)
	}
	if v, ok := lookup(EnvBaseURL); ok && v != "" {
		cfg.Service.BaseURL = v
	}
	if v, ok := lookup(EnvStore); ok && v != "" {
		cfg.Store.Driver = v
	}
	if v, ok := lookup(EnvRedisAddr); ok && v != "" {
		cfg.Store.Redis.Addr = v
	}
	if v, ok := lookup(EnvRedisPassword); ok {
		cfg.Store.Redis.Password = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		cfg.Log.Level = v
	}
	if v, ok := lookup(EnvPort); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		cfg.Server.Port = port
	}
	if v, ok := lookup(EnvMaxProcedureBytes); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvMaxProcedureBytes, err)
		}
		cfg.MaxProcedureBytes = n
	}
	return nil
}

// Validate rejects configurations that cannot work.
func (c *Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.Service.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("service.base_url must be an absolute http(s) URL, got %q", c.Service.BaseURL))
	}
	if c.Service.Timeout < 0 {
		errs = append(errs, errors.New("service.timeout must not be negative"))
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	switch c.Store.Driver {
	case StoreMemory, StoreRedis:
	default:
		errs = append(errs, fmt.Errorf("store.driver must be %q or %q, got %q", StoreMemory, StoreRedis, c.Store.Driver))
	}
	if c.MaxProcedureBytes < 0 {
		errs = append(errs, errors.New("max_procedure_bytes must not be negative"))
	}

	return errors.Join(errs...)
}

// AuthHeaderScheme returns the scheme to prefix the credential with, or "" for raw keys.
func (s ServiceConfig) AuthHeaderScheme() string {
	if strings.EqualFold(s.AuthScheme, AuthSchemeNone) {
		return ""
	}
	return s.AuthScheme
}

// Redacted returns a copy that is safe to print.
func (c Config) Redacted() Config {
	c.Service.APIKey = domain.Credential(c.Service.APIKey.String())
	if c.Store.Redis.Password != "" {
		c.Store.Redis.Password = "[redacted]"
	}
	return c
}
