package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// PostgresGateway implements Gateway on PostgreSQL + pgvector. The chunks
// table is created by the embedded migrations at startup; EnsureIndex only
// verifies that its schema matches the configuration.
//
// Safe for concurrent use by multiple goroutines.
type PostgresGateway struct {
	pool   *pgxpool.Pool
	cfg    Config
	logger *slog.Logger
}

// NewPostgresGateway creates a pgvector-backed gateway.
func NewPostgresGateway(pool *pgxpool.Pool, cfg Config, logger *slog.Logger) (*PostgresGateway, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresGateway{pool: pool, cfg: cfg, logger: logger}, nil
}

// EnsureIndex verifies the chunks table exists and its vector column has
// the configured dimension. The pgvector backend only supports cosine
// similarity (ordering uses the <=> operator); any other configured metric
// is a schema mismatch.
func (g *PostgresGateway) EnsureIndex(ctx context.Context) error {
	if g.cfg.Metric != "cosine" {
		return fmt.Errorf("%w: pgvector backend supports metric \"cosine\", configured %q",
			ErrSchemaMismatch, g.cfg.Metric)
	}

	// pgvector stores the declared dimension in atttypmod.
	var dim int32
	err := g.pool.QueryRow(ctx,
		`SELECT atttypmod FROM pg_attribute
		 WHERE attrelid = 'chunks'::regclass AND attname = 'embedding'`,
	).Scan(&dim)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: chunks table has no embedding column (missing migration?)", ErrIndex)
	}
	if err != nil {
		return fmt.Errorf("%w: inspecting chunks schema: %v", ErrIndex, err)
	}

	if dim != g.cfg.Dimension {
		return fmt.Errorf("%w: chunks.embedding has dimension %d, configured %d",
			ErrSchemaMismatch, dim, g.cfg.Dimension)
	}
	return nil
}

// Upsert inserts one record with a fresh uuid. Identical content inserted
// twice produces two records.
func (g *PostgresGateway) Upsert(ctx context.Context, vector []float32, chunk Chunk) (string, error) {
	meta := chunk.toMetadata()
	id := uuid.NewString()

	_, err := g.pool.Exec(ctx,
		`INSERT INTO chunks (id, embedding, text, url, name, date)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		id, pgvector.NewVector(vector), meta["text"], meta["url"], meta["name"], meta["date"],
	)
	if err != nil {
		return "", fmt.Errorf("%w: inserting chunk: %v", ErrIndex, err)
	}

	g.logger.Debug("upserted chunk", "id", id, "url", chunk.URL)
	return id, nil
}

// Query returns the topK nearest chunks by cosine similarity, descending.
func (g *PostgresGateway) Query(ctx context.Context, vector []float32, topK int) ([]Match, error) {
	vec := pgvector.NewVector(vector)

	rows, err := g.pool.Query(ctx,
		`SELECT text, url, name, date, 1 - (embedding <=> $1) AS score
		 FROM chunks
		 ORDER BY embedding <=> $1
		 LIMIT $2`,
		vec, topK,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: querying chunks: %v", ErrIndex, err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.Chunk.Text, &m.Chunk.URL, &m.Chunk.Name, &m.Chunk.Date, &m.Score); err != nil {
			return nil, fmt.Errorf("%w: scanning match: %v", ErrIndex, err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating matches: %v", ErrIndex, err)
	}

	return matches, nil
}
