// Package vectorstore defines the vector index contract and its two
// backends: the managed Pinecone index and a local PostgreSQL/pgvector
// store. Both expose the same observable behavior.
package vectorstore

import (
	"context"
	"errors"
)

var (
	// ErrIndex indicates a failure of the vector index backend.
	ErrIndex = errors.New("vector index")

	// ErrSchemaMismatch indicates an existing index whose dimension or
	// metric disagrees with the configured one. The gateway never alters an
	// existing index to resolve the conflict.
	ErrSchemaMismatch = errors.New("vector index schema mismatch")
)

// metadataUnknown is the default for absent chunk metadata fields.
const metadataUnknown = "Unknown"

// Chunk is a unit of retrievable text with its source metadata. Chunks are
// immutable once stored.
type Chunk struct {
	Text string
	URL  string
	Name string
	Date string
}

// NewChunk creates a Chunk with "Unknown" defaults for name and date.
func NewChunk(text, url string) Chunk {
	return Chunk{Text: text, URL: url, Name: metadataUnknown, Date: metadataUnknown}
}

// toMetadata flattens a chunk into the stored metadata mapping.
func (c Chunk) toMetadata() map[string]string {
	name := c.Name
	if name == "" {
		name = metadataUnknown
	}
	date := c.Date
	if date == "" {
		date = metadataUnknown
	}
	return map[string]string{
		"text": c.Text,
		"url":  c.URL,
		"name": name,
		"date": date,
	}
}

// chunkFromMetadata rebuilds a chunk from stored metadata.
func chunkFromMetadata(m map[string]string) Chunk {
	c := Chunk{
		Text: m["text"],
		URL:  m["url"],
		Name: m["name"],
		Date: m["date"],
	}
	if c.Name == "" {
		c.Name = metadataUnknown
	}
	if c.Date == "" {
		c.Date = metadataUnknown
	}
	return c
}

// Match is a query result: a chunk plus its similarity score under the
// index's configured metric (higher = more similar).
type Match struct {
	Chunk Chunk
	Score float64
}

// Gateway is the vector index contract.
//
// EnsureIndex is idempotent: it creates the index only when absent and
// fails with ErrSchemaMismatch when an existing index disagrees on
// dimension or metric. Upsert generates a fresh unique identifier per call;
// repeated upserts of identical content create duplicate records. Query
// returns at most topK matches in descending score order.
type Gateway interface {
	EnsureIndex(ctx context.Context) error
	Upsert(ctx context.Context, vector []float32, chunk Chunk) (string, error)
	Query(ctx context.Context, vector []float32, topK int) ([]Match, error)
}

// Config holds the index schema shared by both backends.
type Config struct {
	IndexName string
	Dimension int32
	Metric    string
	Cloud     string // serverless placement, pinecone only
	Region    string // serverless placement, pinecone only
}
