// Package config provides configuration loading from YAML files.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Spotify   SpotifyConfig   `yaml:"spotify"`
	Recommend RecommendConfig `yaml:"recommend"`
	Session   SessionConfig   `yaml:"session"`
	Cache     CacheConfig     `yaml:"cache"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// ServerConfig represents HTTP server configuration.
type ServerConfig struct {
	Addr string `yaml:"addr" default:":8080"`
}

// DatabaseConfig represents PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host     string `yaml:"host" default:"localhost"`
	Port     int    `yaml:"port" default:"5432"`
	User     string `yaml:"user" default:"echofind"`
	Password string `yaml:"password"`
	Name     string `yaml:"name" default:"echofind"`
	SSLMode  string `yaml:"ssl_mode" default:"disable"`
}

// DSN returns the lib/pq connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// SpotifyConfig represents Spotify API configuration.
// RefreshToken is optional: without it the client falls back to the
// client-credentials grant.
type SpotifyConfig struct {
	ClientID     string  `yaml:"client_id" validate:"required"`
	ClientSecret string  `yaml:"client_secret" validate:"required"`
	RefreshToken string  `yaml:"refresh_token"`
	Market       string  `yaml:"market" validate:"omitempty,len=2" default:"US"`
	RatePerSec   float64 `yaml:"rate_per_sec" default:"8" validate:"gt=0"`
}

// RecommendConfig represents recommendation assembler configuration.
type RecommendConfig struct {
	Limit             int     `yaml:"limit" default:"50" validate:"gte=1,lte=100"`
	MaxTrackSeeds     int     `yaml:"max_track_seeds" default:"2" validate:"gte=0,lte=5"`
	MaxArtistSeeds    int     `yaml:"max_artist_seeds" default:"2" validate:"gte=0,lte=5"`
	FallbackGenres    int     `yaml:"fallback_genres" default:"5" validate:"gte=1,lte=5"`
	SimilarityCutoff  float64 `yaml:"similarity_cutoff" default:"0.95" validate:"gte=0,lte=1"`
	FeatureTrackLimit int     `yaml:"feature_track_limit" default:"100" validate:"gte=1,lte=100"`
}

// SessionConfig represents swipe session configuration.
type SessionConfig struct {
	ReplenishThreshold int `yaml:"replenish_threshold" default:"3" validate:"gte=0"`
	PreviewSeconds     int `yaml:"preview_seconds" default:"30" validate:"gte=1"`
	TokenTTLHours      int `yaml:"token_ttl_hours" default:"720" validate:"gte=1"`
}

// CacheConfig represents the recommendation cache configuration.
// Backend is "memory" or "redis"; Settings carries backend-specific keys
// (redis: addr, password, db).
type CacheConfig struct {
	Backend    string         `yaml:"backend" default:"memory" validate:"oneof=memory redis"`
	TTLMinutes int            `yaml:"ttl_minutes" default:"10" validate:"gte=1"`
	Settings   map[string]any `yaml:"settings,omitempty"`
}

// TTL returns the cache validity window.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLMinutes) * time.Minute
}

// RateLimitConfig represents the inbound HTTP rate limit, backed by Redis.
type RateLimitConfig struct {
	Enabled       bool   `yaml:"enabled"`
	MaxReqs       int    `yaml:"max_reqs" default:"120" validate:"gte=1"`
	WindowSec     int    `yaml:"window_sec" default:"60" validate:"gte=1"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
}

// Window returns the rate limit window.
func (r RateLimitConfig) Window() time.Duration {
	return time.Duration(r.WindowSec) * time.Second
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for sensitive fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	cfg.overrideFromEnv()

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Spotify.ClientSecret = v
	}
	if v := os.Getenv("SPOTIFY_REFRESH_TOKEN"); v != "" {
		c.Spotify.RefreshToken = v
	}
	if v := os.Getenv("DATABASE_PASSWORD"); v != "" {
		c.Database.Password = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	if c.Cache.Backend == "redis" {
		if _, ok := c.Cache.Settings["addr"]; !ok {
			return errors.New("cache backend redis requires settings.addr")
		}
	}
	if c.RateLimit.Enabled && c.RateLimit.RedisAddr == "" {
		return errors.New("rate_limit requires redis_addr when enabled")
	}
	return nil
}

