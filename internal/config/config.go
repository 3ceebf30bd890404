package config

import (
	"fmt"

	"github.com/spf13/viper"
	"github.com/voltlab/askds/internal/domain"
)

// Config holds all configuration for AskDS
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Ingest   IngestConfig   `mapstructure:"ingest"`
	Database DatabaseConfig `mapstructure:"database"`
	Google   GoogleConfig   `mapstructure:"google"`
	Supabase SupabaseConfig `mapstructure:"supabase"`
	RAG      RAGConfig      `mapstructure:"rag"`
	Memory   MemoryConfig   `mapstructure:"memory"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// IngestConfig holds ingestion endpoint configuration
type IngestConfig struct {
	// ProcessSecret guards the ingest webhook endpoint
	ProcessSecret string `mapstructure:"process_secret"`
	// Workers bounds concurrent per-chunk embedding calls
	Workers int `mapstructure:"workers"`
}

// DatabaseConfig holds session database configuration
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// GoogleConfig holds Google generative language API configuration
type GoogleConfig struct {
	APIKey          string `mapstructure:"api_key"`
	BaseURL         string `mapstructure:"base_url"`
	EmbeddingModel  string `mapstructure:"embedding_model"`
	GenerativeModel string `mapstructure:"generative_model"`
}

// SupabaseConfig holds vector store configuration
type SupabaseConfig struct {
	URL        string `mapstructure:"url"`
	ServiceKey string `mapstructure:"service_key"`
	Table      string `mapstructure:"table"`
}

// RAGConfig holds chunking and retrieval configuration
type RAGConfig struct {
	ChunkSize    int `mapstructure:"chunk_size"`
	ChunkOverlap int `mapstructure:"chunk_overlap"`
	// MatchThreshold is a normalized cosine similarity in [0,1];
	// matches scoring below it are dropped.
	MatchThreshold float64 `mapstructure:"match_threshold"`
	MatchCount     int     `mapstructure:"match_count"`
}

// MemoryConfig holds conversation memory configuration
type MemoryConfig struct {
	// SummaryTurns is how many recent turns feed the summarizer
	SummaryTurns int `mapstructure:"summary_turns"`
	// HistoryTurns is how many recent turns feed the answer prompt
	HistoryTurns int `mapstructure:"history_turns"`
	// SummaryMaxWords caps the rolling summary length
	SummaryMaxWords int `mapstructure:"summary_max_words"`
}

// Load loads configuration from file and environment
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read config file if specified
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables
	v.SetEnvPrefix("ASKDS")
	v.AutomaticEnv()

	// Read config
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found, use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)

	v.SetDefault("ingest.process_secret", "")
	v.SetDefault("ingest.workers", 8)

	v.SetDefault("database.path", "./data/askds.db")

	v.SetDefault("google.api_key", "")
	v.SetDefault("google.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("google.embedding_model", "gemini-embedding-001")
	v.SetDefault("google.generative_model", "gemini-pro-latest")

	v.SetDefault("supabase.url", "")
	v.SetDefault("supabase.service_key", "")
	v.SetDefault("supabase.table", "documents")

	v.SetDefault("rag.chunk_size", 500)
	v.SetDefault("rag.chunk_overlap", 50)
	v.SetDefault("rag.match_threshold", 0.5)
	v.SetDefault("rag.match_count", 5)

	v.SetDefault("memory.summary_turns", 2)
	v.SetDefault("memory.history_turns", 4)
	v.SetDefault("memory.summary_max_words", 50)
}

// Validate fails fast on missing required credentials, before any
// network call is made.
func (c *Config) Validate() error {
	if c.Google.APIKey == "" {
		return &domain.ConfigurationError{Key: "google.api_key"}
	}
	if c.Supabase.URL == "" {
		return &domain.ConfigurationError{Key: "supabase.url"}
	}
	if c.Supabase.ServiceKey == "" {
		return &domain.ConfigurationError{Key: "supabase.service_key"}
	}
	if c.RAG.ChunkSize > 0 && c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		return &domain.ConfigurationError{Key: "rag.chunk_overlap"}
	}
	return nil
}

// Address returns the server address
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
