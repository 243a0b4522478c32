package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix            = "MOVIEMU"
	defaultHTTPAddress   = "0.0.0.0:8080"
	defaultDatabasePath  = "moviemu.db"
	defaultLogLevel      = "info"
	defaultTokenTTLMins  = 30
	defaultCatalogURL    = "https://api.themoviedb.org/3"
	defaultCatalogRegion = "BR"
	defaultCacheTTLMins  = 10
	defaultGoogleJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress    string
	SigningSecret  string
	TokenTTL       time.Duration
	GoogleClientID string
	GoogleJWKSURL  string
	DatabasePath   string
	LogLevel       string
	CatalogBaseURL string
	CatalogAPIKey  string
	CatalogRegion  string
	RedisAddress   string
	CacheTTL       time.Duration
	NATSURL        string
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("token.ttl_minutes", defaultTokenTTLMins)
	configViper.SetDefault("google.jwks_url", defaultGoogleJWKSURL)
	configViper.SetDefault("catalog.base_url", defaultCatalogURL)
	configViper.SetDefault("catalog.region", defaultCatalogRegion)
	configViper.SetDefault("cache.ttl_minutes", defaultCacheTTLMins)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:    configViper.GetString("http.address"),
		SigningSecret:  configViper.GetString("auth.signing_secret"),
		TokenTTL:       time.Duration(configViper.GetInt("token.ttl_minutes")) * time.Minute,
		GoogleClientID: configViper.GetString("google.client_id"),
		GoogleJWKSURL:  configViper.GetString("google.jwks_url"),
		DatabasePath:   configViper.GetString("database.path"),
		LogLevel:       configViper.GetString("log.level"),
		CatalogBaseURL: configViper.GetString("catalog.base_url"),
		CatalogAPIKey:  configViper.GetString("catalog.api_key"),
		CatalogRegion:  configViper.GetString("catalog.region"),
		RedisAddress:   configViper.GetString("redis.address"),
		CacheTTL:       time.Duration(configViper.GetInt("cache.ttl_minutes")) * time.Minute,
		NATSURL:        configViper.GetString("nats.url"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.SigningSecret) == "" {
		return fmt.Errorf("auth.signing_secret is required")
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database.path is required")
	}
	if strings.TrimSpace(c.CatalogAPIKey) == "" {
		return fmt.Errorf("catalog.api_key is required")
	}
	if strings.TrimSpace(c.CatalogBaseURL) == "" {
		return fmt.Errorf("catalog.base_url is required")
	}
	return nil
}
