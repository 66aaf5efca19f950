// Package generate wraps the Gemini text generation API.
package generate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"google.golang.org/genai"
)

// ErrService indicates a failure of the remote generation service.
var ErrService = errors.New("generation service")

// promptTemplate presents the retrieved context verbatim, then the
// question. Context is not sanitized before insertion; retrieved chunks are
// trusted content from the project's own index.
const promptTemplate = `Answer the question based on the context provided.
    Context: %s
    Question: %s`

// Generator produces answers with a hosted generation model. It is
// stateless and safe for concurrent use.
type Generator struct {
	genai  *genai.Client
	model  string
	logger *slog.Logger
}

// NewGenerator creates a Generator using the shared genai client.
func NewGenerator(client *genai.Client, model string, logger *slog.Logger) (*Generator, error) {
	if client == nil {
		return nil, fmt.Errorf("genai client is required")
	}
	if model == "" {
		return nil, fmt.Errorf("generation model is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{genai: client, model: model, logger: logger}, nil
}

// Generate asks the model to answer question from context. No streaming,
// no retry; failures propagate to the caller.
func (g *Generator) Generate(ctx context.Context, context_, question string) (string, error) {
	prompt := fmt.Sprintf(promptTemplate, context_, question)

	resp, err := g.genai.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("%w: generate content: %v", ErrService, err)
	}

	text := resp.Text()
	g.logger.Debug("generated answer", "model", g.model, "prompt_len", len(prompt), "answer_len", len(text))
	return text, nil
}
