package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvector "github.com/pgvector/pgvector-go/pgx"
	"google.golang.org/genai"

	"github.com/swhsiang/comfyui-tutorial-agent/db"
	"github.com/swhsiang/comfyui-tutorial-agent/internal/config"
	"github.com/swhsiang/comfyui-tutorial-agent/internal/embedding"
	"github.com/swhsiang/comfyui-tutorial-agent/internal/generate"
	"github.com/swhsiang/comfyui-tutorial-agent/internal/pinecone"
	"github.com/swhsiang/comfyui-tutorial-agent/internal/retrieval"
	"github.com/swhsiang/comfyui-tutorial-agent/internal/vectorstore"
)

// Setup creates and initializes the application. Call Close() to release
// resources.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, retErr error) {
	if cfg == nil {
		return nil, config.ErrConfigNil
	}
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{Config: cfg, logger: logger}

	// On error, clean up everything already initialized
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	genaiClient, err := provideGenaiClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Genai = genaiClient

	a.Embedder, err = embedding.NewClient(genaiClient, embedding.Config{
		Model:            cfg.EmbeddingModel,
		Dimension:        cfg.Dimension,
		DocumentTaskType: cfg.DocumentTaskType,
		QueryTaskType:    cfg.QueryTaskType,
	}, logger.With("component", "embedding"))
	if err != nil {
		return nil, fmt.Errorf("creating embedding client: %w", err)
	}

	a.Generator, err = generate.NewGenerator(genaiClient, cfg.GenerationModel, logger.With("component", "generate"))
	if err != nil {
		return nil, fmt.Errorf("creating generator: %w", err)
	}

	a.Index, err = provideIndexGateway(ctx, a, cfg)
	if err != nil {
		return nil, err
	}

	a.Orchestrator, err = retrieval.New(a.Embedder, a.Index, a.Generator, retrieval.Config{
		TopK:    cfg.TopK,
		Timeout: cfg.RemoteTimeout(),
	}, logger.With("component", "retrieval"))
	if err != nil {
		return nil, fmt.Errorf("creating orchestrator: %w", err)
	}

	return a, nil
}

// provideGenaiClient creates the shared Gemini API client used by both the
// embedder and the generator.
func provideGenaiClient(ctx context.Context, cfg *config.Config) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return client, nil
}

// provideIndexGateway creates the configured vector index backend.
func provideIndexGateway(ctx context.Context, a *App, cfg *config.Config) (vectorstore.Gateway, error) {
	storeCfg := vectorstore.Config{
		IndexName: cfg.IndexName,
		Dimension: cfg.Dimension,
		Metric:    cfg.Metric,
		Cloud:     cfg.Cloud,
		Region:    cfg.Region,
	}

	switch cfg.VectorProvider {
	case config.ProviderPostgres:
		pool, err := provideDBPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		a.DBPool = pool
		return vectorstore.NewPostgresGateway(pool, storeCfg, a.logger.With("component", "vectorstore"))

	default: // config.ProviderPinecone, enforced by config.Validate
		client, err := pinecone.New(cfg.PineconeAPIKey)
		if err != nil {
			return nil, fmt.Errorf("creating pinecone client: %w", err)
		}
		return vectorstore.NewPineconeGateway(client, storeCfg, a.logger.With("component", "vectorstore"))
	}
}

// provideDBPool runs migrations and creates the PostgreSQL connection pool.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvector.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}
