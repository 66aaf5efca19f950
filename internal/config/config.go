// Package config provides application configuration with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (GEMINI_API_KEY, PINECONE_API_KEY, DATABASE_URL, AGENT_*)
//  2. Config file (~/.comfy-agent/config.yaml or ./config.yaml)
//  3. Default values (match the original deployment: index yt-comfy-ui-tutorial,
//     1536-dim cosine vectors, serverless aws/us-east-1, top-k 5, port 8000)
//
// Sensitive fields (API keys, postgres password) are masked in MarshalJSON
// and String so a printed Config never leaks secrets.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidVectorProvider indicates the vector store provider is not supported.
	ErrInvalidVectorProvider = errors.New("invalid vector provider")

	// ErrInvalidDimension indicates the embedding dimension is out of range.
	ErrInvalidDimension = errors.New("invalid embedding dimension")

	// ErrInvalidMetric indicates the similarity metric is not supported.
	ErrInvalidMetric = errors.New("invalid similarity metric")

	// ErrInvalidTopK indicates the top-k value is out of range.
	ErrInvalidTopK = errors.New("invalid top_k")

	// ErrInvalidListenAddr indicates the listen address is malformed.
	ErrInvalidListenAddr = errors.New("invalid listen address")

	// ErrInvalidTimeout indicates the remote-call timeout is out of range.
	ErrInvalidTimeout = errors.New("invalid remote timeout")

	// ErrInvalidPostgres indicates the PostgreSQL settings are incomplete.
	ErrInvalidPostgres = errors.New("invalid PostgreSQL configuration")
)

// Vector store provider identifiers used in Config.VectorProvider.
const (
	ProviderPinecone = "pinecone"
	ProviderPostgres = "postgres"
)

// Embedding task type identifiers accepted by the Gemini embedding API.
const (
	TaskTypeDocument = "retrieval_document"
	TaskTypeQuery    = "retrieval_query"
)

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON().
type Config struct {
	// Provider credentials
	GeminiAPIKey   string `mapstructure:"gemini_api_key" json:"gemini_api_key"`     // SENSITIVE: masked in MarshalJSON
	PineconeAPIKey string `mapstructure:"pinecone_api_key" json:"pinecone_api_key"` // SENSITIVE: masked in MarshalJSON

	// Vector index configuration
	VectorProvider string `mapstructure:"vector_provider" json:"vector_provider"` // "pinecone" (default) or "postgres"
	IndexName      string `mapstructure:"index_name" json:"index_name"`
	Dimension      int32  `mapstructure:"dimension" json:"dimension"`
	Metric         string `mapstructure:"metric" json:"metric"`
	Cloud          string `mapstructure:"cloud" json:"cloud"`
	Region         string `mapstructure:"region" json:"region"`
	TopK           int    `mapstructure:"top_k" json:"top_k"`

	// Model configuration
	EmbeddingModel   string `mapstructure:"embedding_model" json:"embedding_model"`
	DocumentTaskType string `mapstructure:"document_task_type" json:"document_task_type"`
	QueryTaskType    string `mapstructure:"query_task_type" json:"query_task_type"`
	GenerationModel  string `mapstructure:"generation_model" json:"generation_model"`

	// Server configuration
	ListenAddr           string `mapstructure:"listen_addr" json:"listen_addr"`
	RateBurst            int    `mapstructure:"rate_burst" json:"rate_burst"`
	RemoteTimeoutSeconds int    `mapstructure:"remote_timeout_seconds" json:"remote_timeout_seconds"`

	// PostgreSQL storage (only used when vector_provider is "postgres")
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".comfy-agent")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine, defaults apply
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL overrides individual postgres_* settings
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	viper.SetDefault("vector_provider", ProviderPinecone)
	viper.SetDefault("index_name", "yt-comfy-ui-tutorial")
	viper.SetDefault("dimension", 1536)
	viper.SetDefault("metric", "cosine")
	viper.SetDefault("cloud", "aws")
	viper.SetDefault("region", "us-east-1")
	viper.SetDefault("top_k", 5)

	viper.SetDefault("embedding_model", "models/gemini-embedding-exp-03-07")
	viper.SetDefault("document_task_type", TaskTypeDocument)
	// The original computed query embeddings with the document task type.
	// Kept as the default; set to "retrieval_query" to correct the asymmetry.
	viper.SetDefault("query_task_type", TaskTypeDocument)
	viper.SetDefault("generation_model", "gemini-2.0-flash-lite")

	viper.SetDefault("listen_addr", "0.0.0.0:8000")
	viper.SetDefault("rate_burst", 60)
	viper.SetDefault("remote_timeout_seconds", 30)

	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "agent")
	viper.SetDefault("postgres_password", "agent_dev_password")
	viper.SetDefault("postgres_db_name", "agent")
	viper.SetDefault("postgres_ssl_mode", "disable")
}

// bindEnvVariables binds environment variables explicitly.
func bindEnvVariables() {
	// Hardcoded keys cannot fail to bind; a panic here is a bug, not a
	// runtime error.
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("gemini_api_key", "GEMINI_API_KEY")
	mustBind("pinecone_api_key", "PINECONE_API_KEY")

	mustBind("vector_provider", "AGENT_VECTOR_PROVIDER")
	mustBind("index_name", "AGENT_INDEX_NAME")
	mustBind("listen_addr", "AGENT_LISTEN_ADDR")
	mustBind("rate_burst", "AGENT_RATE_BURST")
	mustBind("embedding_model", "AGENT_EMBEDDING_MODEL")
	mustBind("generation_model", "AGENT_GENERATION_MODEL")
	mustBind("query_task_type", "AGENT_QUERY_TASK_TYPE")
}

// maskedValue is the placeholder for masked sensitive data.
const maskedValue = "████████"

// maskSecret masks a secret for safe logging. Short secrets are fully
// masked; longer ones keep the first and last two characters for debugging.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with sensitive field masking.
// When adding new sensitive fields, update this method.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.GeminiAPIKey = maskSecret(a.GeminiAPIKey)
	a.PineconeAPIKey = maskSecret(a.PineconeAPIKey)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
