package vectorstore

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/swhsiang/comfyui-tutorial-agent/internal/pinecone"
)

// PineconeGateway implements Gateway against a managed Pinecone serverless
// index. Safe for concurrent use.
type PineconeGateway struct {
	client *pinecone.Client
	cfg    Config
	logger *slog.Logger

	mu   sync.Mutex
	host string // data-plane host, resolved by EnsureIndex
}

// NewPineconeGateway creates a Pinecone-backed gateway.
func NewPineconeGateway(client *pinecone.Client, cfg Config, logger *slog.Logger) (*PineconeGateway, error) {
	if client == nil {
		return nil, fmt.Errorf("pinecone client is required")
	}
	if cfg.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PineconeGateway{client: client, cfg: cfg, logger: logger}, nil
}

// EnsureIndex lists existing indexes and creates the configured one only if
// absent. Creation is a billable remote side effect, so the existence check
// always runs first. An existing index with a different dimension or metric
// fails with ErrSchemaMismatch; the index is never altered.
func (g *PineconeGateway) EnsureIndex(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.host != "" {
		return nil
	}

	indexes, err := g.client.ListIndexes(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIndex, err)
	}

	for _, idx := range indexes {
		if idx.Name != g.cfg.IndexName {
			continue
		}
		if idx.Dimension != g.cfg.Dimension || idx.Metric != g.cfg.Metric {
			return fmt.Errorf("%w: index %q has dimension=%d metric=%q, configured dimension=%d metric=%q",
				ErrSchemaMismatch, idx.Name, idx.Dimension, idx.Metric, g.cfg.Dimension, g.cfg.Metric)
		}
		g.host = idx.Host
		return nil
	}

	created, err := g.client.CreateIndex(ctx, g.cfg.IndexName, g.cfg.Dimension, g.cfg.Metric, g.cfg.Cloud, g.cfg.Region)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIndex, err)
	}

	g.logger.Info("created vector index",
		"index", created.Name,
		"dimension", created.Dimension,
		"metric", created.Metric,
		"cloud", g.cfg.Cloud,
		"region", g.cfg.Region,
	)
	g.host = created.Host
	return nil
}

// Upsert writes one record with a fresh uuid.
func (g *PineconeGateway) Upsert(ctx context.Context, vector []float32, chunk Chunk) (string, error) {
	host, err := g.resolveHost(ctx)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	if _, err := g.client.Upsert(ctx, host, []pinecone.UpsertVector{{
		ID:       id,
		Values:   vector,
		Metadata: chunk.toMetadata(),
	}}); err != nil {
		return "", fmt.Errorf("%w: %v", ErrIndex, err)
	}

	g.logger.Debug("upserted chunk", "id", id, "url", chunk.URL)
	return id, nil
}

// Query runs an ANN search with metadata included. Matches come back from
// the service in descending score order and are passed through as-is.
func (g *PineconeGateway) Query(ctx context.Context, vector []float32, topK int) ([]Match, error) {
	host, err := g.resolveHost(ctx)
	if err != nil {
		return nil, err
	}

	raw, err := g.client.Query(ctx, host, vector, topK, true)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndex, err)
	}

	matches := make([]Match, 0, len(raw))
	for _, m := range raw {
		matches = append(matches, Match{
			Chunk: chunkFromMetadata(m.Metadata),
			Score: m.Score,
		})
	}
	return matches, nil
}

// resolveHost returns the cached data-plane host, running EnsureIndex if
// this gateway has not resolved it yet.
func (g *PineconeGateway) resolveHost(ctx context.Context) (string, error) {
	g.mu.Lock()
	host := g.host
	g.mu.Unlock()
	if host != "" {
		return host, nil
	}

	if err := g.EnsureIndex(ctx); err != nil {
		return "", err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.host == "" {
		return "", fmt.Errorf("%w: index %q has no data-plane host", ErrIndex, g.cfg.IndexName)
	}
	return g.host, nil
}
