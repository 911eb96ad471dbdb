package store

import (
	"context"

	"graphling/pkg/graph"
)

// EntityHit is one row of an entity search result. Exactly one of Triplet
// and Chunk is set: Triplet is a rendered "(head, relation, tail)" fact
// involving the matched entity, Chunk is the text of a chunk the entity is
// mentioned in. Score is the match score of the entity that produced the
// row, so rows from the same entity share a score.
type EntityHit struct {
	Triplet string
	Chunk   string
	Score   float64
}

// GraphStore persists and queries the property graph. Implementations are
// safe for concurrent use.
type GraphStore interface {
	// ApplyScript replays a document's mutation script. Replaying the
	// same script twice leaves the graph unchanged.
	ApplyScript(ctx context.Context, script *graph.Script) error

	// EnsureSchema creates the fulltext and vector indexes if missing.
	EnsureSchema(ctx context.Context) error

	// PopulateChunkEmbeddings embeds every chunk that has no embedding
	// yet. PopulateEntityEmbeddings does the same for entities.
	PopulateChunkEmbeddings(ctx context.Context) error
	PopulateEntityEmbeddings(ctx context.Context) error

	// SearchEntityFullText and SearchEntityVector find up to limit
	// entities for a search term and expand each into its relationship
	// triplets and mention chunks.
	SearchEntityFullText(ctx context.Context, term string, limit int) ([]EntityHit, error)
	SearchEntityVector(ctx context.Context, term string, limit int) ([]EntityHit, error)

	// SearchChunkVector returns the texts of the limit chunks most
	// similar to the query.
	SearchChunkVector(ctx context.Context, query string, limit int) ([]string, error)

	// RemoveDocument deletes a document's subgraph including entities
	// no longer mentioned anywhere. RemoveAll clears the whole graph.
	RemoveDocument(ctx context.Context, source string) error
	RemoveAll(ctx context.Context) error

	// Counts reports graph size for operator feedback.
	Counts(ctx context.Context) (nodes int64, rels int64, err error)

	Close(ctx context.Context) error
}
