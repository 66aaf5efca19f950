// Package retrieval implements the answer pipeline: embed the query, fetch
// the nearest chunks, assemble a context block and ask the generator.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/swhsiang/comfyui-tutorial-agent/internal/embedding"
	"github.com/swhsiang/comfyui-tutorial-agent/internal/vectorstore"
)

// DefaultTopK is the number of matches retrieved per query.
const DefaultTopK = 5

// Embedder produces a query embedding. Satisfied by *embedding.Client.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) (embedding.Vector, error)
}

// Generator produces the final answer. Satisfied by *generate.Generator.
type Generator interface {
	Generate(ctx context.Context, context_, question string) (string, error)
}

// Orchestrator runs the retrieval-and-answer pipeline. All collaborators
// are stateless shared clients; the orchestrator itself only caches whether
// the index has been ensured, so it is safe for concurrent use.
type Orchestrator struct {
	embedder  Embedder
	index     vectorstore.Gateway
	generator Generator
	topK      int
	timeout   time.Duration
	logger    *slog.Logger

	mu      sync.Mutex
	ensured bool
}

// Config holds orchestrator settings.
type Config struct {
	// TopK bounds the number of retrieved matches. Default: DefaultTopK.
	TopK int

	// Timeout applies to each remote call (embed, query, generate)
	// individually. Default: 30s.
	Timeout time.Duration
}

// New creates an Orchestrator.
func New(embedder Embedder, index vectorstore.Gateway, generator Generator, cfg Config, logger *slog.Logger) (*Orchestrator, error) {
	if embedder == nil || index == nil || generator == nil {
		return nil, fmt.Errorf("embedder, index and generator are required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	topK := cfg.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Orchestrator{
		embedder:  embedder,
		index:     index,
		generator: generator,
		topK:      topK,
		timeout:   timeout,
		logger:    logger,
	}, nil
}

// Answer resolves a raw user query to an answer string.
//
// Zero matches do not fail the pipeline: generation runs with an empty
// context block and its output is returned unmodified. Failures of any
// stage propagate to the caller without retry; answers are never cached.
func (o *Orchestrator) Answer(ctx context.Context, query string) (string, error) {
	if err := o.ensureIndex(ctx); err != nil {
		return "", err
	}

	embedCtx, cancel := context.WithTimeout(ctx, o.timeout)
	vector, err := o.embedder.EmbedQuery(embedCtx, query)
	cancel()
	if err != nil {
		return "", fmt.Errorf("embedding query: %w", err)
	}

	queryCtx, cancel := context.WithTimeout(ctx, o.timeout)
	matches, err := o.index.Query(queryCtx, vector, o.topK)
	cancel()
	if err != nil {
		return "", fmt.Errorf("querying index: %w", err)
	}

	contextBlock := assembleContext(matches)
	if len(matches) == 0 {
		o.logger.Warn("no matches found, answering with empty context", "query", query)
	}

	genCtx, cancel := context.WithTimeout(ctx, o.timeout)
	answer, err := o.generator.Generate(genCtx, contextBlock, query)
	cancel()
	if err != nil {
		return "", fmt.Errorf("generating answer: %w", err)
	}

	o.logger.Debug("answered query",
		"query_len", len(query),
		"matches", len(matches),
		"context_len", len(contextBlock),
		"answer_len", len(answer),
	)
	return answer, nil
}

// ensureIndex runs Gateway.EnsureIndex once per orchestrator lifetime.
// Only success is cached; a failed attempt is retried on the next request.
func (o *Orchestrator) ensureIndex(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.ensured {
		return nil
	}

	ensureCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	if err := o.index.EnsureIndex(ensureCtx); err != nil {
		return fmt.Errorf("ensuring index: %w", err)
	}

	o.ensured = true
	return nil
}

// assembleContext concatenates match texts in returned order, separated by
// a blank line. Zero matches yield an empty string.
func assembleContext(matches []vectorstore.Match) string {
	texts := make([]string, len(matches))
	for i, m := range matches {
		texts[i] = m.Chunk.Text
	}
	return strings.Join(texts, "\n\n")
}
