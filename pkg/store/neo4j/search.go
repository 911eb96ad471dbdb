package neo4j

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"graphling/pkg/graph"
	"graphling/pkg/store"
)

// entityExpansion collects each matched entity's relationship triplets
// and mention chunks. It is appended to both entity search queries, which
// bind `node` and `score`.
var entityExpansion = fmt.Sprintf(`
OPTIONAL MATCH (node)-[r]-(other:%s)
WHERE NOT type(r) IN ['%s', '%s', '%s']
WITH node, score, collect(DISTINCT CASE WHEN startNode(r) = node
	THEN '(' + node.text + ', ' + type(r) + ', ' + other.text + ')'
	ELSE '(' + other.text + ', ' + type(r) + ', ' + node.text + ')'
END) AS triplets
OPTIONAL MATCH (node)-[:%s]->(c:%s)
RETURN score, triplets, collect(DISTINCT c.text) AS chunks`,
	graph.LabelEntity,
	graph.EdgeMentions, graph.EdgeMentionedIn, graph.EdgeContains,
	graph.EdgeMentionedIn, graph.LabelChunk)

// PopulateChunkEmbeddings embeds chunks in the database via
// genai.vector.encode, touching only nodes without an embedding.
func (s *Store) PopulateChunkEmbeddings(ctx context.Context) error {
	return s.populateEmbeddings(ctx, graph.LabelChunk, "n.text")
}

// PopulateEntityEmbeddings embeds entities from their name and surface
// form.
func (s *Store) PopulateEntityEmbeddings(ctx context.Context) error {
	return s.populateEmbeddings(ctx, graph.LabelEntity, "n.name + ' ' + n.text")
}

func (s *Store) populateEmbeddings(ctx context.Context, label, input string) error {
	query := fmt.Sprintf(`MATCH (n:%s)
WHERE n.embedding IS NULL
WITH n, genai.vector.encode(%s, $provider, $config) AS embedding
CALL db.create.setNodeVectorProperty(n, 'embedding', embedding)
RETURN count(n)`, label, input)

	err := s.write(ctx, query, map[string]any{
		"provider": s.encode.Provider,
		"config":   s.encode.config(),
	})
	if err != nil {
		return fmt.Errorf("populate %s embeddings: %w", label, err)
	}
	return nil
}

func (s *Store) SearchEntityFullText(ctx context.Context, term string, limit int) ([]store.EntityHit, error) {
	query := `CALL db.index.fulltext.queryNodes('entity_names', $term) YIELD node, score
WITH node, score ORDER BY score DESC LIMIT $limit` + entityExpansion

	records, err := s.read(ctx, query, map[string]any{"term": term, "limit": limit})
	if err != nil {
		return nil, fmt.Errorf("entity fulltext search: %w", err)
	}
	return decodeEntityHits(records), nil
}

func (s *Store) SearchEntityVector(ctx context.Context, term string, limit int) ([]store.EntityHit, error) {
	query := `WITH genai.vector.encode($term, $provider, $config) AS qe
CALL db.index.vector.queryNodes('entity_embeddings', $limit, qe) YIELD node, score
WITH node, score` + entityExpansion

	records, err := s.read(ctx, query, map[string]any{
		"term":     term,
		"limit":    limit,
		"provider": s.encode.Provider,
		"config":   s.encode.config(),
	})
	if err != nil {
		return nil, fmt.Errorf("entity vector search: %w", err)
	}
	return decodeEntityHits(records), nil
}

func (s *Store) SearchChunkVector(ctx context.Context, query string, limit int) ([]string, error) {
	cypher := `WITH genai.vector.encode($query, $provider, $config) AS qe
CALL db.index.vector.queryNodes('chunk_embeddings', $limit, qe) YIELD node, score
RETURN node.text AS text ORDER BY score DESC`

	records, err := s.read(ctx, cypher, map[string]any{
		"query":    query,
		"limit":    limit,
		"provider": s.encode.Provider,
		"config":   s.encode.config(),
	})
	if err != nil {
		return nil, fmt.Errorf("chunk vector search: %w", err)
	}

	texts := make([]string, 0, len(records))
	for _, record := range records {
		if text, ok := record.Get("text"); ok {
			if t, ok := text.(string); ok {
				texts = append(texts, t)
			}
		}
	}
	return texts, nil
}

func decodeEntityHits(records []*neo4j.Record) []store.EntityHit {
	var hits []store.EntityHit
	for _, record := range records {
		score := 0.0
		if v, ok := record.Get("score"); ok {
			if f, ok := v.(float64); ok {
				score = f
			}
		}
		for _, triplet := range stringList(record, "triplets") {
			hits = append(hits, store.EntityHit{Triplet: triplet, Score: score})
		}
		for _, chunk := range stringList(record, "chunks") {
			hits = append(hits, store.EntityHit{Chunk: chunk, Score: score})
		}
	}
	return hits
}

func stringList(record *neo4j.Record, key string) []string {
	v, ok := record.Get(key)
	if !ok {
		return nil
	}
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
