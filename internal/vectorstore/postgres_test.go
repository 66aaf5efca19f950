package vectorstore

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/swhsiang/comfyui-tutorial-agent/internal/testutil"
)

const testDimension = 1536

// unitVector returns a 1536-dimensional unit vector pointing along axis.
func unitVector(axis int) []float32 {
	v := make([]float32, testDimension)
	v[axis] = 1
	return v
}

func setupPostgresGateway(t *testing.T, cfg Config) *PostgresGateway {
	t.Helper()

	db, cleanup := testutil.SetupTestDB(t)
	t.Cleanup(cleanup)

	g, err := NewPostgresGateway(db.Pool, cfg, testutil.DiscardLogger())
	if err != nil {
		t.Fatalf("NewPostgresGateway() error = %v", err)
	}
	return g
}

func TestPostgresEnsureIndex(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	g := setupPostgresGateway(t, Config{
		IndexName: "yt-comfy-ui-tutorial",
		Dimension: testDimension,
		Metric:    "cosine",
	})

	if err := g.EnsureIndex(context.Background()); err != nil {
		t.Fatalf("EnsureIndex() error = %v", err)
	}
}

func TestPostgresEnsureIndexMismatch(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	db, cleanup := testutil.SetupTestDB(t)
	t.Cleanup(cleanup)

	tests := []struct {
		name string
		cfg  Config
	}{
		{"wrong dimension", Config{IndexName: "x", Dimension: 768, Metric: "cosine"}},
		{"unsupported metric", Config{IndexName: "x", Dimension: testDimension, Metric: "dotproduct"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := NewPostgresGateway(db.Pool, tt.cfg, testutil.DiscardLogger())
			if err != nil {
				t.Fatalf("NewPostgresGateway() error = %v", err)
			}
			if err := g.EnsureIndex(context.Background()); !errors.Is(err, ErrSchemaMismatch) {
				t.Errorf("EnsureIndex() error = %v, want ErrSchemaMismatch", err)
			}
		})
	}
}

func TestPostgresUpsertAndQuery(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	g := setupPostgresGateway(t, Config{
		IndexName: "yt-comfy-ui-tutorial",
		Dimension: testDimension,
		Metric:    "cosine",
	})
	ctx := context.Background()

	chunks := []struct {
		axis  int
		chunk Chunk
	}{
		{0, NewChunk("chunk about GPUs", "https://youtu.be/a")},
		{1, Chunk{Text: "chunk about workflows", URL: "https://youtu.be/b", Name: "Ep 2", Date: "2025-03-01"}},
		{2, NewChunk("chunk about nodes", "https://youtu.be/c")},
	}

	ids := make(map[string]bool)
	for _, c := range chunks {
		id, err := g.Upsert(ctx, unitVector(c.axis), c.chunk)
		if err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
		if err := uuid.Validate(id); err != nil {
			t.Errorf("id %q is not a UUID: %v", id, err)
		}
		if ids[id] {
			t.Errorf("duplicate id %q", id)
		}
		ids[id] = true
	}

	// Query along axis 1: the workflow chunk must rank first with score 1.
	matches, err := g.Query(ctx, unitVector(1), 2)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("got %d matches, want 2 (topK)", len(matches))
	}

	best := matches[0]
	if best.Chunk.Text != "chunk about workflows" {
		t.Errorf("best match text = %q, want the nearest chunk", best.Chunk.Text)
	}
	if best.Chunk.Name != "Ep 2" || best.Chunk.Date != "2025-03-01" {
		t.Errorf("best match metadata = %+v", best.Chunk)
	}
	if best.Score < 0.999 {
		t.Errorf("best match score = %v, want ~1 for identical vector", best.Score)
	}
	if matches[1].Score > best.Score {
		t.Error("matches not in descending score order")
	}

	// Orthogonal chunks carry "Unknown" defaults from NewChunk.
	if matches[1].Chunk.Name != "Unknown" || matches[1].Chunk.Date != "Unknown" {
		t.Errorf("second match metadata = %+v, want Unknown defaults", matches[1].Chunk)
	}
}

func TestPostgresQueryEmptyTable(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	g := setupPostgresGateway(t, Config{
		IndexName: "yt-comfy-ui-tutorial",
		Dimension: testDimension,
		Metric:    "cosine",
	})

	matches, err := g.Query(context.Background(), unitVector(0), 5)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("got %d matches from empty table, want 0", len(matches))
	}
}
