// Package config loads fragdex configuration from a YAML file with
// FRAGDEX_-prefixed environment overrides.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// envPrefix namespaces environment overrides, e.g.
// FRAGDEX_STORE_COLLECTION=docs overrides store.collection.
const envPrefix = "FRAGDEX_"

// StoreConfig configures the vector store connection.
type StoreConfig struct {
	Host       string `koanf:"host"`
	Port       int    `koanf:"port"`
	APIKeyEnv  string `koanf:"api_key_env"`
	UseTLS     bool   `koanf:"use_tls"`
	Collection string `koanf:"collection"`
	VectorSize uint64 `koanf:"vector_size"`
}

// EmbedderConfig configures the embedding and completion API client.
type EmbedderConfig struct {
	BaseURL         string `koanf:"base_url"`
	APIKeyEnv       string `koanf:"api_key_env"`
	Model           string `koanf:"model"`
	CompletionModel string `koanf:"completion_model"`
	TimeoutSeconds  int    `koanf:"timeout_seconds"`
	BatchSize       int    `koanf:"batch_size"`
}

// Timeout returns the configured request timeout.
func (c EmbedderConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// IndexerConfig tunes the index coordinator.
type IndexerConfig struct {
	Workers   int  `koanf:"workers"`
	Summarize bool `koanf:"summarize"`
}

// ParserConfig tunes workbook parsing.
type ParserConfig struct {
	MinImageArea int `koanf:"min_image_area"`
}

// Config is the root configuration.
type Config struct {
	Store    StoreConfig    `koanf:"store"`
	Embedder EmbedderConfig `koanf:"embedder"`
	Indexer  IndexerConfig  `koanf:"indexer"`
	Parser   ParserConfig   `koanf:"parser"`
}

// Load reads the YAML file at path (skipped when path is empty or the file
// does not exist), applies environment overrides, and fills defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("reading config file %q: %w", path, err)
			}
		} else if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("parsing config file %q: %w", path, err)
		}
	}

	// FRAGDEX_STORE_COLLECTION -> store.collection. Only the first
	// underscore splits section from key so keys may contain underscores.
	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
		return strings.Replace(s, "_", ".", 1)
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading environment overrides: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Store.Host == "" {
		c.Store.Host = "localhost"
	}
	if c.Store.Port == 0 {
		c.Store.Port = 6334
	}
	if c.Store.Collection == "" {
		c.Store.Collection = "fragdex"
	}
	if c.Store.VectorSize == 0 {
		c.Store.VectorSize = 1536
	}
	if c.Embedder.BaseURL == "" {
		c.Embedder.BaseURL = "https://api.openai.com/v1"
	}
	if c.Embedder.APIKeyEnv == "" {
		c.Embedder.APIKeyEnv = "OPENAI_API_KEY"
	}
	if c.Embedder.Model == "" {
		c.Embedder.Model = "text-embedding-3-small"
	}
	if c.Embedder.TimeoutSeconds == 0 {
		c.Embedder.TimeoutSeconds = 30
	}
	if c.Embedder.BatchSize == 0 {
		c.Embedder.BatchSize = 64
	}
}
