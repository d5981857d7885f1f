// Package config loads novasynth's configuration from config.yaml plus
// environment overrides, following the teacher's viper+godotenv pattern.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App            App            `mapstructure:"app"`
	LLM            LLM            `mapstructure:"llm"`
	Pipeline       Pipeline       `mapstructure:"pipeline"`
	Scraper        Scraper        `mapstructure:"scraper"`
	Redis          Redis          `mapstructure:"redis"`
	CircuitBreaker CircuitBreaker `mapstructure:"circuit_breaker"`
	Server         Server         `mapstructure:"server"`
	Logging        Logging        `mapstructure:"logging"`
	CLI            CLI            `mapstructure:"cli"`
}

// App holds general application configuration.
type App struct {
	Debug      bool   `mapstructure:"debug"`
	DataDir    string `mapstructure:"data_dir"`
	ConfigFile string `mapstructure:"config_file"`
}

// LLM holds configuration for the chat-completion, embedding,
// web-research and social-sentiment backends.
type LLM struct {
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	PriceUSD  PriceConfig     `mapstructure:"price_usd"`
}

// AnthropicConfig holds the primary chat-completion backend's settings.
type AnthropicConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxTokens   int32         `mapstructure:"max_tokens"`
	Temperature float32       `mapstructure:"temperature"`
}

// GeminiConfig holds the embedding and fallback-completion backend.
type GeminiConfig struct {
	APIKey         string        `mapstructure:"api_key"`
	Model          string        `mapstructure:"model"`
	EmbeddingModel string        `mapstructure:"embedding_model"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

// PriceConfig holds per-million-token USD pricing used by 4.M's cost
// accounting.
type PriceConfig struct {
	Input  float64 `mapstructure:"input"`
	Output float64 `mapstructure:"output"`
}

// Pipeline holds orchestrator-level timeouts, concurrency and
// thresholds (spec §5).
type Pipeline struct {
	PerSourceTimeout     time.Duration `mapstructure:"per_source_timeout"`
	PerArticleTimeout    time.Duration `mapstructure:"per_article_timeout"`
	PerLLMCallTimeout    time.Duration `mapstructure:"per_llm_call_timeout"`
	PerEnrichmentTimeout time.Duration `mapstructure:"per_enrichment_timeout"`
	WorkerPoolSize       int           `mapstructure:"worker_pool_size"`
	EmbeddingBatchSize   int           `mapstructure:"embedding_batch_size"`
	DedupThreshold       float64       `mapstructure:"dedup_threshold"`
	LockTTL              time.Duration `mapstructure:"lock_ttl"`
	SnapshotPath         string        `mapstructure:"snapshot_path"`
}

// Scraper holds the fan-out fetcher's settings (4.E).
type Scraper struct {
	UserAgent               string `mapstructure:"user_agent"`
	MaxConcurrentSources    int    `mapstructure:"max_concurrent_sources"`
	EmptyRunBlacklistLimit  int    `mapstructure:"empty_run_blacklist_limit"`
}

// Redis holds the fast key-value store's connection settings, backing
// the lock (4.C) and health store (4.B).
type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// CircuitBreaker holds per-backend breaker settings (internal/circuit).
type CircuitBreaker struct {
	FailureThreshold uint          `mapstructure:"failure_threshold"`
	OpenTimeout      time.Duration `mapstructure:"open_timeout"`
	Interval         time.Duration `mapstructure:"interval"`
}

// Server holds the admin trigger HTTP router's settings (§6).
type Server struct {
	Host          string        `mapstructure:"host"`
	Port          int           `mapstructure:"port"`
	OperatorToken string        `mapstructure:"operator_token"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
}

// Logging holds structured-logging configuration.
type Logging struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CLI holds CLI-specific configuration.
type CLI struct {
	Interactive   bool   `mapstructure:"interactive"`
	DefaultFormat string `mapstructure:"default_format"`
}

var globalConfig *Config

// Load loads the configuration from config.yaml plus environment
// overrides, falling back to defaults for anything unset.
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Printf("Warning: error loading .env file: %v\n", err)
		}
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName("novasynth")
		viper.SetConfigType("yaml")
	}

	setDefaults()
	bindEnvironmentVariables()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	globalConfig = config
	return config, nil
}

// Get returns the global configuration, loading it if necessary.
func Get() *Config {
	if globalConfig == nil {
		config, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("failed to load configuration: %v", err))
		}
		return config
	}
	return globalConfig
}

// Reset clears the cached global configuration. Used by tests.
func Reset() {
	globalConfig = nil
	viper.Reset()
}

func setDefaults() {
	viper.SetDefault("app.debug", false)
	viper.SetDefault("app.data_dir", ".novasynth-cache")

	viper.SetDefault("llm.anthropic.model", "claude-opus-4-5")
	viper.SetDefault("llm.anthropic.timeout", "120s")
	viper.SetDefault("llm.anthropic.max_tokens", 8192)
	viper.SetDefault("llm.anthropic.temperature", 0.5)
	viper.SetDefault("llm.gemini.model", "gemini-flash-lite-latest")
	viper.SetDefault("llm.gemini.embedding_model", "text-embedding-004")
	viper.SetDefault("llm.gemini.timeout", "30s")
	viper.SetDefault("llm.price_usd.input", 3.0)
	viper.SetDefault("llm.price_usd.output", 15.0)

	viper.SetDefault("pipeline.per_source_timeout", "45s")
	viper.SetDefault("pipeline.per_article_timeout", "15s")
	viper.SetDefault("pipeline.per_llm_call_timeout", "120s")
	viper.SetDefault("pipeline.per_enrichment_timeout", "30s")
	viper.SetDefault("pipeline.worker_pool_size", 4)
	viper.SetDefault("pipeline.embedding_batch_size", 32)
	viper.SetDefault("pipeline.dedup_threshold", 0.92)
	viper.SetDefault("pipeline.lock_ttl", "10m")
	viper.SetDefault("pipeline.snapshot_path", ".novasynth-cache/health_snapshot.json")

	viper.SetDefault("scraper.user_agent", "novasynth/1.0 (+https://novasynth.example)")
	viper.SetDefault("scraper.max_concurrent_sources", 8)
	viper.SetDefault("scraper.empty_run_blacklist_limit", 3)

	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("circuit_breaker.failure_threshold", 5)
	viper.SetDefault("circuit_breaker.open_timeout", "30s")
	viper.SetDefault("circuit_breaker.interval", "60s")

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8090)
	viper.SetDefault("server.read_timeout", "15s")
	viper.SetDefault("server.write_timeout", "15s")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")

	viper.SetDefault("cli.interactive", true)
	viper.SetDefault("cli.default_format", "table")
}

func bindEnvironmentVariables() {
	bindEnvKeys("llm.anthropic.api_key", []string{"ANTHROPIC_API_KEY", "NOVASYNTH_ANTHROPIC_API_KEY"})
	bindEnvKeys("llm.gemini.api_key", []string{"GEMINI_API_KEY", "NOVASYNTH_GEMINI_API_KEY"})
	bindEnvKeys("redis.password", []string{"REDIS_PASSWORD"})
	bindEnvKeys("server.operator_token", []string{"NOVASYNTH_OPERATOR_TOKEN"})
}

func bindEnvKeys(viperKey string, envKeys []string) {
	for _, envKey := range envKeys {
		_ = viper.BindEnv(viperKey, envKey)
	}
}

func validateConfig(config *Config) error {
	if config.Pipeline.WorkerPoolSize < 1 {
		return fmt.Errorf("pipeline.worker_pool_size must be >= 1")
	}
	if config.Pipeline.DedupThreshold <= 0 || config.Pipeline.DedupThreshold > 1 {
		return fmt.Errorf("pipeline.dedup_threshold must be in (0, 1]")
	}
	if config.Scraper.MaxConcurrentSources < 1 {
		return fmt.Errorf("scraper.max_concurrent_sources must be >= 1")
	}
	return nil
}
