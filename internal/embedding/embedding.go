// Package embedding wraps the Gemini embedding API.
//
// The client is stateless and safe for concurrent use; one instance is
// shared across all sessions for the process lifetime.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"google.golang.org/genai"
)

// ErrService indicates a failure of the remote embedding service.
// Callers check it with errors.Is; there is no local retry.
var ErrService = errors.New("embedding service")

// documentTitle is attached to document embeddings. The embedding API only
// accepts a title together with the retrieval_document task type.
const documentTitle = "YouTube Transcript Chunk"

// Vector is a fixed-length dense embedding.
type Vector []float32

// Config holds embedding model settings.
type Config struct {
	// Model is the embedding model identifier.
	Model string

	// Dimension is the requested output dimensionality (1536 in this deployment).
	Dimension int32

	// DocumentTaskType is the task hint for document embeddings.
	DocumentTaskType string

	// QueryTaskType is the task hint for query embeddings. The original
	// deployment used the document task type for queries too; this is kept
	// configurable rather than silently corrected.
	QueryTaskType string
}

// Client converts text into fixed-length dense vectors via the Gemini API.
type Client struct {
	genai  *genai.Client
	cfg    Config
	logger *slog.Logger
}

// NewClient creates an embedding client. The genai client is shared with
// the generator and holds no per-request state.
func NewClient(client *genai.Client, cfg Config, logger *slog.Logger) (*Client, error) {
	if client == nil {
		return nil, fmt.Errorf("genai client is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{genai: client, cfg: cfg, logger: logger}, nil
}

// EmbedDocuments embeds a batch of document texts, returning one vector per
// input in the same order.
func (c *Client) EmbedDocuments(ctx context.Context, texts []string) ([]Vector, error) {
	return c.embed(ctx, texts, c.cfg.DocumentTaskType, documentTitle)
}

// EmbedQuery embeds a single query string as a one-element batch.
func (c *Client) EmbedQuery(ctx context.Context, text string) (Vector, error) {
	vectors, err := c.embed(ctx, []string{text}, c.cfg.QueryTaskType, "")
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (c *Client) embed(ctx context.Context, texts []string, taskType, title string) ([]Vector, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: no input texts", ErrService)
	}

	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}

	dim := c.cfg.Dimension
	embedCfg := &genai.EmbedContentConfig{
		TaskType:             taskType,
		OutputDimensionality: &dim,
	}
	if title != "" {
		embedCfg.Title = title
	}

	resp, err := c.genai.Models.EmbedContent(ctx, c.cfg.Model, contents, embedCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: embed content: %v", ErrService, err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d inputs", ErrService, len(resp.Embeddings), len(texts))
	}

	vectors := make([]Vector, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		if e == nil || len(e.Values) == 0 {
			return nil, fmt.Errorf("%w: empty embedding at position %d", ErrService, i)
		}
		vectors[i] = Vector(e.Values)
	}

	c.logger.Debug("embedded texts", "count", len(texts), "task_type", taskType, "dimension", len(vectors[0]))
	return vectors, nil
}
