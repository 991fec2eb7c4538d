// Package config loads and validates server configuration from the environment
// and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

// Config holds server configuration.
type Config struct {
	// Session and token policy. All required.
	MaxSessions        int    `mapstructure:"MAX_SESSIONS"`
	SaltRounds         int    `mapstructure:"SALT_ROUNDS"`
	AccessTTLSeconds   int    `mapstructure:"ACCESS_TOKEN_EXPIRES_IN_S"`
	RefreshTTLSeconds  int    `mapstructure:"REFRESH_TOKEN_EXPIRES_IN_S"`
	AccessTokenSecret  string `mapstructure:"ACCESS_TOKEN_SECRET"`
	RefreshTokenSecret string `mapstructure:"REFRESH_TOKEN_SECRET"`

	// HTTPAddr is the REST listen address.
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// GRPCAddr is the gRPC listen address; empty disables the gRPC server.
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// TLSCert and TLSKey enable TLS on gRPC when both are set.
	TLSCert string `mapstructure:"TLS_CERT"`
	TLSKey  string `mapstructure:"TLS_KEY"`

	StoreDriver string `mapstructure:"STORE_DRIVER"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`
	MongoURI    string `mapstructure:"MONGO_URI"`
	MongoDBName string `mapstructure:"MONGO_DB_NAME"`

	// FrontendOrigin is the only origin allowed by CORS.
	FrontendOrigin  string        `mapstructure:"FRONTEND_ORIGIN"`
	LogLevel        string        `mapstructure:"LOG_LEVEL"`
	Env             string        `mapstructure:"APP_ENV"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
}

var requiredKeys = []string{
	"MAX_SESSIONS",
	"SALT_ROUNDS",
	"ACCESS_TOKEN_EXPIRES_IN_S",
	"REFRESH_TOKEN_EXPIRES_IN_S",
	"ACCESS_TOKEN_SECRET",
	"REFRESH_TOKEN_SECRET",
	"TLS_CERT",
	"TLS_KEY",
	"DATABASE_URL",
	"MONGO_URI",
}

// Load reads envFile (if present), then builds and validates Config from the environment.
// A missing file is ignored. Env vars override file values.
func Load(envFile string) (*Config, error) {
	v := viper.New()

	if envFile != "" {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		_ = v.ReadInConfig()
	}
	v.AutomaticEnv()

	for _, k := range requiredKeys {
		_ = v.BindEnv(k)
	}
	v.SetDefault("HTTP_ADDR", ":4000")
	v.SetDefault("GRPC_ADDR", ":8443")
	v.SetDefault("STORE_DRIVER", DriverPostgres)
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("MONGO_DB_NAME", "authcore")
	v.SetDefault("FRONTEND_ORIGIN", "http://localhost:5173")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every invalid or missing setting at once.
func (c *Config) Validate() error {
	var errList []error
	add := func(format string, args ...any) {
		errList = append(errList, fmt.Errorf("config: "+format, args...))
	}

	if c.MaxSessions <= 0 {
		add("MAX_SESSIONS must be a positive integer")
	}
	if c.SaltRounds < 4 || c.SaltRounds > 31 {
		add("SALT_ROUNDS must be between 4 and 31")
	}
	if c.AccessTTLSeconds <= 0 {
		add("ACCESS_TOKEN_EXPIRES_IN_S must be a positive integer")
	}
	if c.RefreshTTLSeconds <= 0 {
		add("REFRESH_TOKEN_EXPIRES_IN_S must be a positive integer")
	}
	if c.AccessTokenSecret == "" {
		add("ACCESS_TOKEN_SECRET must be set")
	}
	if c.RefreshTokenSecret == "" {
		add("REFRESH_TOKEN_SECRET must be set")
	}
	if c.HTTPAddr == "" {
		add("HTTP_ADDR must be set")
	}
	if (c.TLSCert == "") != (c.TLSKey == "") {
		add("TLS_CERT and TLS_KEY must be set together")
	}

	switch c.StoreDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			add("DATABASE_URL must be set for STORE_DRIVER=postgres")
		}
	case DriverMongo:
		if c.MongoURI == "" {
			add("MONGO_URI must be set for STORE_DRIVER=mongo")
		}
		if c.MongoDBName == "" {
			add("MONGO_DB_NAME must be set for STORE_DRIVER=mongo")
		}
	case DriverMemory:
		if c.Env == "production" {
			add("STORE_DRIVER=memory is not allowed when APP_ENV=production")
		}
	default:
		add("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	return errors.Join(errList...)
}

// AccessTTL returns the access token lifetime.
func (c *Config) AccessTTL() time.Duration {
	return time.Duration(c.AccessTTLSeconds) * time.Second
}

// RefreshTTL returns the refresh session lifetime.
func (c *Config) RefreshTTL() time.Duration {
	return time.Duration(c.RefreshTTLSeconds) * time.Second
}

// TLSEnabled reports whether gRPC should serve TLS.
func (c *Config) TLSEnabled() bool { return c.TLSCert != "" && c.TLSKey != "" }

// Development reports whether APP_ENV selects development behaviour.
func (c *Config) Development() bool { return c.Env == "development" }
