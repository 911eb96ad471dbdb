package neo4j

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"graphling/pkg/graph"
	"graphling/pkg/logger"
)

// Store is the neo4j-backed graph store. Embeddings are computed inside
// the database via genai.vector.encode, so the ingest process never sees
// the vectors.
type Store struct {
	driver    neo4j.DriverWithContext
	database  string
	encode    EncodeParams
	dimension int
}

// EncodeParams configures the embedding provider used by
// genai.vector.encode. Provider is "OpenAI" or "AzureOpenAI"; Resource
// and Deployment are only used for Azure.
type EncodeParams struct {
	Provider   string
	Token      string
	Model      string
	Resource   string
	Deployment string
}

func (p EncodeParams) config() map[string]any {
	cfg := map[string]any{"token": p.Token}
	if p.Model != "" {
		cfg["model"] = p.Model
	}
	if p.Provider == "AzureOpenAI" {
		cfg["resource"] = p.Resource
		cfg["deployment"] = p.Deployment
	}
	return cfg
}

type Params struct {
	URI       string
	Username  string
	Password  string
	Database  string
	Encode    EncodeParams
	Dimension int
}

// New connects to the database and verifies connectivity.
func New(ctx context.Context, params Params) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(params.URI, neo4j.BasicAuth(params.Username, params.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("create driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("verify connectivity to %s: %w", params.URI, err)
	}

	logger.Debug(fmt.Sprintf("connected to neo4j at %s", params.URI))
	return &Store{
		driver:    driver,
		database:  params.Database,
		encode:    params.Encode,
		dimension: params.Dimension,
	}, nil
}

func (s *Store) session(ctx context.Context) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database})
}

func (s *Store) write(ctx context.Context, query string, params map[string]any) error {
	session := s.session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})
	return err
}

func (s *Store) read(ctx context.Context, query string, params map[string]any) ([]*neo4j.Record, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	records, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return result.Collect(ctx)
	})
	if err != nil {
		return nil, err
	}
	return records.([]*neo4j.Record), nil
}

// ApplyScript runs the document's mutation script as one write
// transaction.
func (s *Store) ApplyScript(ctx context.Context, script *graph.Script) error {
	if len(script.Statements) == 0 {
		return nil
	}
	if err := s.write(ctx, script.Cypher(), nil); err != nil {
		return fmt.Errorf("apply script for %s: %w", script.Source, err)
	}
	return nil
}

// EnsureSchema creates the fulltext and vector indexes. Index dimensions
// cannot be parameterized, so the dimension is rendered into the query.
func (s *Store) EnsureSchema(ctx context.Context) error {
	statements := []string{
		fmt.Sprintf(`CREATE FULLTEXT INDEX entity_names IF NOT EXISTS
FOR (e:%s) ON EACH [e.name, e.text]`, graph.LabelEntity),
		fmt.Sprintf(`CREATE VECTOR INDEX chunk_embeddings IF NOT EXISTS
FOR (c:%s) ON (c.embedding)
OPTIONS {indexConfig: {`+"`vector.dimensions`"+`: %d, `+"`vector.similarity_function`"+`: 'cosine'}}`,
			graph.LabelChunk, s.dimension),
		fmt.Sprintf(`CREATE VECTOR INDEX entity_embeddings IF NOT EXISTS
FOR (e:%s) ON (e.embedding)
OPTIONS {indexConfig: {`+"`vector.dimensions`"+`: %d, `+"`vector.similarity_function`"+`: 'cosine'}}`,
			graph.LabelEntity, s.dimension),
	}
	for _, stmt := range statements {
		if err := s.write(ctx, stmt, nil); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// RemoveDocument deletes the document, its chunks, and any entity left
// without mentions afterwards.
func (s *Store) RemoveDocument(ctx context.Context, source string) error {
	id := graph.ContentID(source)
	query := fmt.Sprintf(`MATCH (d:%s {id: $id})
OPTIONAL MATCH (d)-[:%s]->(c:%s)
DETACH DELETE d, c`, graph.LabelDocument, graph.EdgeContains, graph.LabelChunk)
	if err := s.write(ctx, query, map[string]any{"id": id}); err != nil {
		return fmt.Errorf("remove document %s: %w", source, err)
	}

	orphans := fmt.Sprintf(`MATCH (e:%s)
WHERE NOT (e)-[:%s]->()
DETACH DELETE e`, graph.LabelEntity, graph.EdgeMentionedIn)
	if err := s.write(ctx, orphans, nil); err != nil {
		return fmt.Errorf("remove orphaned entities: %w", err)
	}
	return nil
}

// RemoveAll clears every node the pipeline creates. Indexes are kept.
func (s *Store) RemoveAll(ctx context.Context) error {
	query := fmt.Sprintf(`MATCH (n)
WHERE n:%s OR n:%s OR n:%s
DETACH DELETE n`, graph.LabelDocument, graph.LabelChunk, graph.LabelEntity)
	return s.write(ctx, query, nil)
}

func (s *Store) Counts(ctx context.Context) (int64, int64, error) {
	records, err := s.read(ctx, `MATCH (n) RETURN count(n) AS nodes`, nil)
	if err != nil || len(records) == 0 {
		return 0, 0, err
	}
	nodes, _ := records[0].Get("nodes")

	records, err = s.read(ctx, `MATCH ()-[r]->() RETURN count(r) AS rels`, nil)
	if err != nil || len(records) == 0 {
		return 0, 0, err
	}
	rels, _ := records[0].Get("rels")

	return nodes.(int64), rels.(int64), nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}
