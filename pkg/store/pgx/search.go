package pgx

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"graphling/pkg/graph"
	"graphling/pkg/store"
)

// PopulateChunkEmbeddings embeds every chunk row without an embedding,
// one request per row so a failure mid-way loses nothing already stored.
func (s *Store) PopulateChunkEmbeddings(ctx context.Context) error {
	return s.populateEmbeddings(ctx, graph.LabelChunk, `text`)
}

// PopulateEntityEmbeddings embeds entities from name and surface form.
func (s *Store) PopulateEntityEmbeddings(ctx context.Context) error {
	return s.populateEmbeddings(ctx, graph.LabelEntity, `name || ' ' || text`)
}

func (s *Store) populateEmbeddings(ctx context.Context, label, input string) error {
	rows, err := s.conn.Query(ctx, fmt.Sprintf(
		`SELECT id, %s FROM graph_nodes WHERE label = $1 AND embedding IS NULL`, input), label)
	if err != nil {
		return fmt.Errorf("select pending embeddings: %w", err)
	}

	type pending struct{ id, input string }
	var todo []pending
	for rows.Next() {
		var p pending
		if err := rows.Scan(&p.id, &p.input); err != nil {
			rows.Close()
			return err
		}
		todo = append(todo, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, p := range todo {
		embedding, err := s.client.GenerateEmbedding(ctx, []byte(p.input))
		if err != nil {
			return fmt.Errorf("embed node %s: %w", p.id, err)
		}
		_, err = s.conn.Exec(ctx, `UPDATE graph_nodes SET embedding = $1 WHERE id = $2`,
			pgvector.NewVector(embedding), p.id)
		if err != nil {
			return fmt.Errorf("store embedding for %s: %w", p.id, err)
		}
	}
	return nil
}

func (s *Store) SearchEntityFullText(ctx context.Context, term string, limit int) ([]store.EntityHit, error) {
	rows, err := s.conn.Query(ctx, `SELECT id, ts_rank(textsearch, plainto_tsquery('english', $1))
FROM graph_nodes
WHERE label = $2 AND textsearch @@ plainto_tsquery('english', $1)
ORDER BY 2 DESC
LIMIT $3`, term, graph.LabelEntity, limit)
	if err != nil {
		return nil, fmt.Errorf("entity fulltext search: %w", err)
	}
	matches, err := scanMatches(rows)
	if err != nil {
		return nil, err
	}
	return s.expandEntities(ctx, matches)
}

func (s *Store) SearchEntityVector(ctx context.Context, term string, limit int) ([]store.EntityHit, error) {
	embedding, err := s.client.GenerateEmbedding(ctx, []byte(term))
	if err != nil {
		return nil, fmt.Errorf("embed search term: %w", err)
	}

	rows, err := s.conn.Query(ctx, `SELECT id, 1 - (embedding <=> $1)
FROM graph_nodes
WHERE label = $2 AND embedding IS NOT NULL
ORDER BY embedding <=> $1
LIMIT $3`, pgvector.NewVector(embedding), graph.LabelEntity, limit)
	if err != nil {
		return nil, fmt.Errorf("entity vector search: %w", err)
	}
	matches, err := scanMatches(rows)
	if err != nil {
		return nil, err
	}
	return s.expandEntities(ctx, matches)
}

func (s *Store) SearchChunkVector(ctx context.Context, query string, limit int) ([]string, error) {
	embedding, err := s.client.GenerateEmbedding(ctx, []byte(query))
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	rows, err := s.conn.Query(ctx, `SELECT text
FROM graph_nodes
WHERE label = $2 AND embedding IS NOT NULL
ORDER BY embedding <=> $1
LIMIT $3`, pgvector.NewVector(embedding), graph.LabelChunk, limit)
	if err != nil {
		return nil, fmt.Errorf("chunk vector search: %w", err)
	}
	defer rows.Close()

	var texts []string
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, err
		}
		texts = append(texts, text)
	}
	return texts, rows.Err()
}

type entityMatch struct {
	id    string
	score float64
}

func scanMatches(rows interface {
	Next() bool
	Scan(dest ...any) error
	Close()
	Err() error
}) ([]entityMatch, error) {
	defer rows.Close()
	var matches []entityMatch
	for rows.Next() {
		var m entityMatch
		if err := rows.Scan(&m.id, &m.score); err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// expandEntities turns matched entities into hit rows: one per
// relationship triplet and one per mention chunk.
func (s *Store) expandEntities(ctx context.Context, matches []entityMatch) ([]store.EntityHit, error) {
	var hits []store.EntityHit
	for _, match := range matches {
		triplets, err := s.entityTriplets(ctx, match.id)
		if err != nil {
			return nil, err
		}
		for _, triplet := range triplets {
			hits = append(hits, store.EntityHit{Triplet: triplet, Score: match.score})
		}

		chunks, err := s.entityChunks(ctx, match.id)
		if err != nil {
			return nil, err
		}
		for _, chunk := range chunks {
			hits = append(hits, store.EntityHit{Chunk: chunk, Score: match.score})
		}
	}
	return hits, nil
}

func (s *Store) entityTriplets(ctx context.Context, id string) ([]string, error) {
	rows, err := s.conn.Query(ctx, `SELECT h.text, e.type, t.text
FROM graph_edges e
JOIN graph_nodes h ON h.id = e.source
JOIN graph_nodes t ON t.id = e.target
WHERE (e.source = $1 OR e.target = $1)
  AND h.label = $2 AND t.label = $2
  AND e.type NOT IN ($3, $4, $5)
ORDER BY e.type, h.text, t.text`,
		id, graph.LabelEntity, graph.EdgeMentions, graph.EdgeMentionedIn, graph.EdgeContains)
	if err != nil {
		return nil, fmt.Errorf("entity triplets: %w", err)
	}
	defer rows.Close()

	var triplets []string
	for rows.Next() {
		var head, relation, tail string
		if err := rows.Scan(&head, &relation, &tail); err != nil {
			return nil, err
		}
		triplets = append(triplets, fmt.Sprintf("(%s, %s, %s)", head, relation, tail))
	}
	return triplets, rows.Err()
}

// Chunk sequence is stored as a JSON string, so ordering casts it back
// to an integer.
const entityChunksSQL = `SELECT c.text
FROM graph_edges e
JOIN graph_nodes c ON c.id = e.target
WHERE e.source = $1 AND e.type = $2
ORDER BY (c.props->>'sequence')::int`

func (s *Store) entityChunks(ctx context.Context, id string) ([]string, error) {
	rows, err := s.conn.Query(ctx, entityChunksSQL, id, graph.EdgeMentionedIn)
	if err != nil {
		return nil, fmt.Errorf("entity chunks: %w", err)
	}
	defer rows.Close()

	var chunks []string
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, err
		}
		chunks = append(chunks, text)
	}
	return chunks, rows.Err()
}
