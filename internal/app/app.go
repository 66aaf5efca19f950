// Package app wires the application together. All service clients are
// constructed explicitly here and injected into the components that need
// them; there are no package-level client globals.
package app

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"google.golang.org/genai"

	"github.com/swhsiang/comfyui-tutorial-agent/internal/config"
	"github.com/swhsiang/comfyui-tutorial-agent/internal/embedding"
	"github.com/swhsiang/comfyui-tutorial-agent/internal/generate"
	"github.com/swhsiang/comfyui-tutorial-agent/internal/retrieval"
	"github.com/swhsiang/comfyui-tutorial-agent/internal/vectorstore"
)

// App holds the process-lifetime components. All of them are stateless
// between requests and shared across sessions.
type App struct {
	Config       *config.Config
	Genai        *genai.Client
	Embedder     *embedding.Client
	Generator    *generate.Generator
	Index        vectorstore.Gateway
	Orchestrator *retrieval.Orchestrator

	// DBPool is non-nil only for the postgres vector provider.
	DBPool *pgxpool.Pool

	logger *slog.Logger
}

// Close releases resources acquired during Setup.
func (a *App) Close() error {
	if a.DBPool != nil {
		a.DBPool.Close()
		a.DBPool = nil
	}
	return nil
}
