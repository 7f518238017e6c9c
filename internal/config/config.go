// Package config loads application configuration from defaults, an optional
// YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every namespaced environment variable. A double
// underscore separates nested keys: STATUS24_DATABASE__URL sets database.url.
const EnvPrefix = "STATUS24_"

// Store drivers.
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config is the application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Log      LogConfig      `koanf:"log"`
	CORS     CORSConfig     `koanf:"cors"`
	Database DatabaseConfig `koanf:"database"`
	Clerk    ClerkConfig    `koanf:"clerk"`
	Auth     AuthConfig     `koanf:"auth"`
}

// ServerConfig configures the API and metrics listeners.
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              string        `koanf:"port"`
	MetricsPort       string        `koanf:"metrics_port"`
	ReadTimeout       time.Duration `koanf:"read_timeout"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	WriteTimeout      time.Duration `koanf:"write_timeout"`
	IdleTimeout       time.Duration `koanf:"idle_timeout"`
	RequestTimeout    time.Duration `koanf:"request_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// CORSConfig lists origins allowed to call the API from a browser.
type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// DatabaseConfig selects and configures the document store.
type DatabaseConfig struct {
	Driver          string        `koanf:"driver"`
	URL             string        `koanf:"url"`
	MongoDatabase   string        `koanf:"mongo_database"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnectTimeout  time.Duration `koanf:"connect_timeout"`
	ConnectAttempts int           `koanf:"connect_attempts"`
}

// ClerkConfig configures the identity provider client.
type ClerkConfig struct {
	APIURL    string        `koanf:"api_url"`
	APIKey    string        `koanf:"api_key"`
	Timeout   time.Duration `koanf:"timeout"`
	RateLimit float64       `koanf:"rate_limit"`
	Burst     int           `koanf:"burst"`
}

// AuthConfig configures token verification and authorization policies.
type AuthConfig struct {
	JWKSURL             string        `koanf:"jwks_url"`
	Issuer              string        `koanf:"issuer"`
	Leeway              time.Duration `koanf:"leeway"`
	JWKSRefreshInterval time.Duration `koanf:"jwks_refresh_interval"`
	InsecureSkipVerify  bool          `koanf:"insecure_skip_verify"`
	AdminOrgName        string        `koanf:"admin_org_name"`
	MembershipMatch     string        `koanf:"membership_match"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              "8080",
			MetricsPort:       "9090",
			ReadTimeout:       15 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
			RequestTimeout:    60 * time.Second,
			ShutdownTimeout:   30 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Database: DatabaseConfig{
			Driver:          DriverMongo,
			URL:             "mongodb://localhost:27017",
			MongoDatabase:   "status24",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			ConnectTimeout:  30 * time.Second,
			ConnectAttempts: 5,
		},
		Clerk: ClerkConfig{
			APIURL:  "https://api.clerk.com/v1",
			Timeout: 10 * time.Second,
		},
		Auth: AuthConfig{
			JWKSRefreshInterval: 5 * time.Minute,
			Leeway:              5 * time.Second,
			AdminOrgName:        "status24",
			MembershipMatch:     "any",
		},
	}
}

// Load reads configuration. Later sources override earlier ones: defaults,
// the YAML file at path (skipped when path is empty), legacy CLERK_API_KEY
// and CLERK_API_URL, then STATUS24_* variables.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue("CLERK_", ".", legacyEnv), nil); err != nil {
		return nil, fmt.Errorf("load legacy environment: %w", err)
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", namespacedEnv), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if len(cfg.CORS.AllowedOrigins) == 0 {
		cfg.CORS.AllowedOrigins = []string{"*"}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func legacyEnv(key, value string) (string, interface{}) {
	switch key {
	case "CLERK_API_KEY":
		return "clerk.api_key", value
	case "CLERK_API_URL":
		return "clerk.api_url", value
	}
	return "", nil
}

func namespacedEnv(key, value string) (string, interface{}) {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	key = strings.ReplaceAll(key, "__", ".")

	if key == "cors.allowed_origins" {
		var origins []string
		for _, o := range strings.Split(value, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		return key, origins
	}
	return key, value
}

// Validate rejects inconsistent settings.
func (c *Config) Validate() error {
	var errs []error

	switch c.Database.Driver {
	case DriverMongo, DriverPostgres:
		if c.Database.URL == "" {
			errs = append(errs, fmt.Errorf("database.url is required for driver %q", c.Database.Driver))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("database.driver must be one of mongo, postgres, memory, got %q", c.Database.Driver))
	}
	if c.Database.Driver == DriverMongo && c.Database.MongoDatabase == "" {
		errs = append(errs, errors.New("database.mongo_database is required for driver mongo"))
	}

	if c.Clerk.APIURL == "" {
		errs = append(errs, errors.New("clerk.api_url is required"))
	}

	if !c.Auth.InsecureSkipVerify && c.Auth.JWKSURL == "" {
		errs = append(errs, errors.New("auth.jwks_url is required unless auth.insecure_skip_verify is set"))
	}

	switch c.Auth.MembershipMatch {
	case "any", "first":
	default:
		errs = append(errs, fmt.Errorf("auth.membership_match must be any or first, got %q", c.Auth.MembershipMatch))
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}

	return errors.Join(errs...)
}
