package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

type Config struct {
	APIKey         string `mapstructure:"api_key"`
	BaseURL        string `mapstructure:"base_url"`
	EmbeddingModel string `mapstructure:"embedding_model"`
	EmbeddingDim   int    `mapstructure:"embedding_dim"`
	ChatModel      string `mapstructure:"chat_model"`
	WhisperModel   string `mapstructure:"whisper_model"`

	GeminiAPIKey string `mapstructure:"gemini_api_key"`
	GeminiModel  string `mapstructure:"gemini_model"`

	Store            string `mapstructure:"store"` // memory, pgvector, milvus
	PostgresURL      string `mapstructure:"postgres_url"`
	MilvusAddr       string `mapstructure:"milvus_addr"`
	MilvusCollection string `mapstructure:"milvus_collection"`

	DataRoot      string `mapstructure:"data_root"`
	Workers       int    `mapstructure:"workers"`
	RetentionDays int    `mapstructure:"retention_days"`

	Port           string `mapstructure:"port"`
	AllowedOrigins string `mapstructure:"allowed_origins"`
}

var (
	globalConfig *Config
	loadOnce     sync.Once
	loadErr      error
)

// Load reads config.json from the working directory and layers environment
// variables on top. The file is optional; env-only setups work too.
func Load() (*Config, error) {
	loadOnce.Do(func() {
		globalConfig, loadErr = load()
	})
	return globalConfig, loadErr
}

func load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(".")

	v.SetDefault("base_url", "")
	v.SetDefault("embedding_model", "text-embedding-3-small")
	v.SetDefault("embedding_dim", 1536)
	v.SetDefault("chat_model", "gpt-4o-mini")
	v.SetDefault("whisper_model", "whisper-1")
	v.SetDefault("gemini_model", "gemini-1.5-flash-latest")
	v.SetDefault("store", "memory")
	v.SetDefault("milvus_addr", "localhost:19530")
	v.SetDefault("milvus_collection", "video_segments")
	v.SetDefault("data_root", "./data")
	v.SetDefault("workers", 4)
	v.SetDefault("retention_days", 7)
	v.SetDefault("port", "8080")
	v.SetDefault("allowed_origins", "http://localhost:5173")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range []string{
		"api_key", "base_url", "embedding_model", "embedding_dim",
		"chat_model", "whisper_model", "gemini_api_key", "gemini_model",
		"store", "postgres_url", "milvus_addr", "milvus_collection",
		"data_root", "workers", "retention_days", "port", "allowed_origins",
	} {
		v.BindEnv(key, strings.ToUpper(key))
	}

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, fmt.Errorf("read config.json: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// HasValidAPI reports whether the OpenAI-compatible backend is configured.
// Paths that need it (real embeddings, Whisper, chat completions) fall back
// to local implementations when it is not.
func (c *Config) HasValidAPI() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

func (c *Config) HasGemini() bool {
	return strings.TrimSpace(c.GeminiAPIKey) != ""
}

func (c *Config) HasPostgres() bool {
	return strings.TrimSpace(c.PostgresURL) != ""
}
