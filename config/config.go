package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the learning pipeline service.
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Server    ServerConfig    `mapstructure:"server"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Search    SearchConfig    `mapstructure:"search"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Vector    VectorConfig    `mapstructure:"vector"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// GeneralConfig contains general application settings.
type GeneralConfig struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// LLMConfig selects and configures the completion provider.
type LLMConfig struct {
	// Provider is "local" (deterministic heuristic) or "openai".
	Provider string       `mapstructure:"provider"`
	OpenAI   OpenAIConfig `mapstructure:"openai"`
}

func (l LLMConfig) Validate() error {
	switch l.Provider {
	case "", "local":
		return nil
	case "openai":
		if strings.TrimSpace(l.OpenAI.APIKey) == "" {
			return fmt.Errorf("llm.openai.api_key required when llm.provider is openai")
		}
		return nil
	default:
		return fmt.Errorf("llm.provider must be local or openai, got %q", l.Provider)
	}
}

// OpenAIConfig configures the hosted model adapter.
type OpenAIConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// SearchConfig configures the web/encyclopedia/scholarly lookups.
type SearchConfig struct {
	Timeout    time.Duration `mapstructure:"timeout"`
	UserAgent  string        `mapstructure:"user_agent"`
	WebResults int           `mapstructure:"web_results"`
}

// StorageConfig groups persistence backends.
type StorageConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// PostgresConfig contains Postgres connection settings.
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

// DSN builds a connection string from the configured fields.
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

// RedisConfig contains Redis connection settings used for scheduler locks.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns host:port, or empty when redis is not configured.
func (r RedisConfig) Addr() string {
	if strings.TrimSpace(r.Host) == "" || strings.TrimSpace(r.Port) == "" {
		return ""
	}
	return r.Host + ":" + r.Port
}

// VectorConfig configures the embedded vector index.
type VectorConfig struct {
	Path       string `mapstructure:"path"`
	Collection string `mapstructure:"collection"`
	Dimensions int    `mapstructure:"dimensions"`
}

// SchedulerConfig controls the daily pipeline trigger.
type SchedulerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Cron         string        `mapstructure:"cron"`
	TickInterval time.Duration `mapstructure:"tick_interval"`
}

// LoadConfig loads config from file (or the default search paths) with
// environment overrides (STUDYPILOT_*).
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetDefault("general.log_level", "info")
	v.SetDefault("server.address", ":8080")
	v.SetDefault("llm.provider", "local")
	v.SetDefault("llm.openai.model", "gpt-4o-mini")
	v.SetDefault("llm.openai.temperature", 0.2)
	v.SetDefault("llm.openai.max_tokens", 512)
	v.SetDefault("llm.openai.timeout", 60*time.Second)
	v.SetDefault("search.timeout", 10*time.Second)
	v.SetDefault("search.user_agent", "studypilot/1.0")
	v.SetDefault("search.web_results", 3)
	v.SetDefault("vector.path", "./var/vector")
	v.SetDefault("vector.collection", "studypilot-resources")
	v.SetDefault("vector.dimensions", 64)
	v.SetDefault("scheduler.cron", "@daily")
	v.SetDefault("scheduler.tick_interval", time.Hour)

	if path == "" {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("STUDYPILOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// Defaults plus env are enough to run with the local provider.
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.LLM.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
