package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the council service
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Gateway   GatewayConfig   `mapstructure:"gateway"`
	Council   CouncilConfig   `mapstructure:"council"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Search    SearchConfig    `mapstructure:"search"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Listen   string `mapstructure:"listen"`
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
}

// GatewayConfig describes the OpenAI-compatible gateway that serves every
// model call (a LiteLLM proxy or anything speaking the same protocol).
type GatewayConfig struct {
	BaseURL              string        `mapstructure:"base_url"`
	APIKey               string        `mapstructure:"api_key"`
	Timeout              time.Duration `mapstructure:"timeout"`
	ConnectTimeout       time.Duration `mapstructure:"connect_timeout"`
	MaxTokens            int           `mapstructure:"max_tokens"`
	Temperature          float64       `mapstructure:"temperature"`
	SynthesisTemperature float64       `mapstructure:"synthesis_temperature"`
}

func (g GatewayConfig) Validate() error {
	if strings.TrimSpace(g.BaseURL) == "" {
		return fmt.Errorf("gateway.base_url required")
	}
	if g.Timeout <= 0 {
		return fmt.Errorf("gateway.timeout must be > 0")
	}
	return nil
}

// CouncilConfig tunes the debate engine. The synthesis section markers and
// bullet prefixes are configuration, not constants: the chairman is only
// asked, never guaranteed, to follow the requested format.
type CouncilConfig struct {
	EventBuffer     int      `mapstructure:"event_buffer"`
	ConsensusMarker string   `mapstructure:"consensus_marker"`
	DebatesMarker   string   `mapstructure:"debates_marker"`
	SynthesisMarker string   `mapstructure:"synthesis_marker"`
	BulletPrefixes  []string `mapstructure:"bullet_prefixes"`
}

// StorageConfig contains database configurations
type StorageConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// PostgresConfig contains PostgreSQL settings
type PostgresConfig struct {
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (p PostgresConfig) Validate() error {
	if strings.TrimSpace(p.URL) != "" {
		return nil
	}
	if strings.TrimSpace(p.Host) == "" {
		return fmt.Errorf("storage.postgres.host required when url is not provided")
	}
	if strings.TrimSpace(p.DBName) == "" {
		return fmt.Errorf("storage.postgres.dbname required when url is not provided")
	}
	return nil
}

// DSN builds a Postgres connection string from either the explicit URL or
// the individual fields.
func (p PostgresConfig) DSN() string {
	if p.URL != "" {
		return p.URL
	}
	port := p.Port
	if port == "" {
		port = "5432"
	}
	ssl := p.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", p.User, p.Password, p.Host, port, p.DBName, ssl)
}

// RedisConfig contains Redis settings for the model catalog cache. Optional:
// with no host configured the catalog runs uncached.
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// Addr returns host:port, or "" when redis is not configured.
func (r RedisConfig) Addr() string {
	if strings.TrimSpace(r.Host) == "" {
		return ""
	}
	port := r.Port
	if port == "" {
		port = "6379"
	}
	return fmt.Sprintf("%s:%s", r.Host, port)
}

// SearchConfig controls the full-text index over finished debates.
type SearchConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	IndexPath string `mapstructure:"index_path"`
}

// TelemetryConfig contains telemetry and monitoring settings
type TelemetryConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoadConfig loads config from file
func LoadConfig(path string) *Config {
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("json")   // REQUIRED if the config file does not have the extension in the name
	viper.SetDefault("general.listen", ":8000")
	viper.SetDefault("general.log_level", "info")
	viper.SetDefault("gateway.base_url", "http://localhost:4000")
	viper.SetDefault("gateway.timeout", 120*time.Second)
	viper.SetDefault("gateway.connect_timeout", 10*time.Second)
	viper.SetDefault("gateway.temperature", 0.7)
	viper.SetDefault("gateway.synthesis_temperature", 0.3)
	viper.SetDefault("council.event_buffer", 64)
	viper.SetDefault("council.consensus_marker", "CONSENSUS")
	viper.SetDefault("council.debates_marker", "DEBATES")
	viper.SetDefault("council.synthesis_marker", "SYNTHESIS")
	viper.SetDefault("council.bullet_prefixes", []string{"•", "-", "*"})
	viper.SetDefault("storage.redis.cache_ttl", 60*time.Second)
	viper.SetDefault("search.enabled", true)
	viper.SetDefault("search.index_path", "./council.bleve")
	viper.SetDefault("telemetry.enabled", true)

	if path == "" {
		viper.AddConfigPath("./app/config") // path to look for the config file in
		viper.AddConfigPath("./config")     // path to look for the config file in
		viper.AddConfigPath(".")            // optionally look for config in the working directory
		exe, _ := os.Executable()
		exeDir := filepath.Dir(exe)
		viper.AddConfigPath(exeDir)                                // bin/
		viper.AddConfigPath(filepath.Join(exeDir, ".."))           // repo root
		viper.AddConfigPath(filepath.Join(exeDir, "..", "config")) // repo root/config
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("COUNCIL")
	replacer := strings.NewReplacer(".", "_")
	viper.SetEnvKeyReplacer(replacer)

	viper.AutomaticEnv() // read in environment variables that match (COUNCIL_*)

	if err := viper.ReadInConfig(); err != nil {
		// a config file is optional: defaults plus COUNCIL_* env cover the common case
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			panic(fmt.Errorf("fatal error config file: %w", err))
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}

	if err := config.Gateway.Validate(); err != nil {
		panic(err)
	}
	return &config
}
