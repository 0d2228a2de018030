package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	LLM        LLMConfig        `yaml:"llm" mapstructure:"llm"`
	Extraction ExtractionConfig `yaml:"extraction" mapstructure:"extraction"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Batch      BatchConfig      `yaml:"batch" mapstructure:"batch"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// LLMConfig selects and configures the LM backend.
type LLMConfig struct {
	Backend   string          `yaml:"backend" mapstructure:"backend"` // "anthropic" or "local"
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Local     LocalConfig     `yaml:"local" mapstructure:"local"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// LocalConfig holds settings for an OpenAI-compatible local server
// (LM Studio, vLLM).
type LocalConfig struct {
	BaseURL           string  `yaml:"base_url" mapstructure:"base_url"`
	Model             string  `yaml:"model" mapstructure:"model"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	TimeoutSecs       int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// ExtractionConfig configures extraction behavior.
type ExtractionConfig struct {
	DomainsRoot     string  `yaml:"domains_root" mapstructure:"domains_root"`
	DefaultDomain   string  `yaml:"default_domain" mapstructure:"default_domain"`
	Mode            string  `yaml:"mode" mapstructure:"mode"`
	MaxDisconnected int     `yaml:"max_disconnected" mapstructure:"max_disconnected"`
	MaxIterations   int     `yaml:"max_iterations" mapstructure:"max_iterations"`
	Temperature     float64 `yaml:"temperature" mapstructure:"temperature"`
	MaxTokens       int     `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// StoreConfig configures the run store.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	MaxConcurrentRecords int `yaml:"max_concurrent_records" mapstructure:"max_concurrent_records"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("KG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("llm.backend", "anthropic")
	v.SetDefault("llm.anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("llm.local.base_url", "http://localhost:1234/v1")
	v.SetDefault("llm.local.model", "local-model")
	v.SetDefault("llm.local.requests_per_second", 2.0)
	v.SetDefault("llm.local.timeout_secs", 120)
	v.SetDefault("extraction.domains_root", "domains")
	v.SetDefault("extraction.default_domain", "default")
	v.SetDefault("extraction.mode", "open")
	v.SetDefault("extraction.max_disconnected", 3)
	v.SetDefault("extraction.max_iterations", 2)
	v.SetDefault("extraction.temperature", 0.0)
	v.SetDefault("extraction.max_tokens", 4096)
	v.SetDefault("store.path", "kg.db")
	v.SetDefault("batch.max_concurrent_records", 4)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
