package config

import (
	"fmt"
	"net"
)

// Validate checks the configuration for fatal problems. It is called by
// Load so a process never starts with a config it cannot serve with.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	if c.GeminiAPIKey == "" {
		return fmt.Errorf("%w: GEMINI_API_KEY is not set", ErrMissingAPIKey)
	}

	switch c.VectorProvider {
	case ProviderPinecone:
		if c.PineconeAPIKey == "" {
			return fmt.Errorf("%w: PINECONE_API_KEY is not set (required for provider %q)",
				ErrMissingAPIKey, ProviderPinecone)
		}
	case ProviderPostgres:
		if c.PostgresHost == "" || c.PostgresDBName == "" || c.PostgresUser == "" {
			return fmt.Errorf("%w: host, user and db name are required", ErrInvalidPostgres)
		}
		if c.PostgresPort < 1 || c.PostgresPort > 65535 {
			return fmt.Errorf("%w: port %d out of range", ErrInvalidPostgres, c.PostgresPort)
		}
	default:
		return fmt.Errorf("%w: %q (expected %q or %q)",
			ErrInvalidVectorProvider, c.VectorProvider, ProviderPinecone, ProviderPostgres)
	}

	if c.IndexName == "" {
		return fmt.Errorf("%w: index name is empty", ErrInvalidVectorProvider)
	}

	if c.Dimension < 1 || c.Dimension > 4096 {
		return fmt.Errorf("%w: %d (expected 1-4096)", ErrInvalidDimension, c.Dimension)
	}

	switch c.Metric {
	case "cosine", "dotproduct", "euclidean":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidMetric, c.Metric)
	}

	if c.TopK < 1 || c.TopK > 100 {
		return fmt.Errorf("%w: %d (expected 1-100)", ErrInvalidTopK, c.TopK)
	}

	if _, _, err := net.SplitHostPort(c.ListenAddr); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidListenAddr, c.ListenAddr, err)
	}

	if c.RemoteTimeoutSeconds < 1 || c.RemoteTimeoutSeconds > 300 {
		return fmt.Errorf("%w: %ds (expected 1-300)", ErrInvalidTimeout, c.RemoteTimeoutSeconds)
	}

	return nil
}
