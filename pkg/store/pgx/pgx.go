package pgx

import (
	"context"
	"encoding/json"
	"fmt"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvector "github.com/pgvector/pgvector-go/pgx"

	"graphling/pkg/ai"
	"graphling/pkg/graph"
	"graphling/pkg/logger"
)

// Conn is the subset of pgx connection behavior the store needs, so a
// pool, a single connection, or a transaction can back it.
type Conn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgxv5.Row
	Begin(ctx context.Context) (pgxv5.Tx, error)
}

// Store is the PostgreSQL-backed graph store. Nodes and edges live in
// two tables; pgvector serves similarity search and a generated tsvector
// column serves fulltext search. Embeddings are computed client-side
// with the AI client, unlike the neo4j store where the database embeds.
type Store struct {
	conn      Conn
	client    ai.Client
	dimension int
	close     func()
}

// New opens a connection pool for the DSN. The vector type is registered
// on every new connection.
func New(ctx context.Context, dsn string, client ai.Client, dimension int) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgxv5.Conn) error {
		return pgxvector.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	logger.Debug("connected to postgres")
	return &Store{conn: pool, client: client, dimension: dimension, close: pool.Close}, nil
}

// NewWithConn wraps an existing connection, e.g. for tests.
func NewWithConn(conn Conn, client ai.Client, dimension int) *Store {
	return &Store{conn: conn, client: client, dimension: dimension}
}

// EnsureSchema creates the tables and indexes if missing. The embedding
// dimension is fixed at table creation.
func (s *Store) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS graph_nodes (
	id TEXT PRIMARY KEY,
	label TEXT NOT NULL,
	name TEXT NOT NULL DEFAULT '',
	text TEXT NOT NULL DEFAULT '',
	props JSONB NOT NULL DEFAULT '{}'::jsonb,
	embedding vector(%d),
	textsearch tsvector GENERATED ALWAYS AS (to_tsvector('english', name || ' ' || text)) STORED
)`, s.dimension),
		`CREATE TABLE IF NOT EXISTS graph_edges (
	source TEXT NOT NULL REFERENCES graph_nodes(id) ON DELETE CASCADE,
	target TEXT NOT NULL REFERENCES graph_nodes(id) ON DELETE CASCADE,
	type TEXT NOT NULL,
	PRIMARY KEY (source, type, target)
)`,
		`CREATE INDEX IF NOT EXISTS graph_nodes_label_idx ON graph_nodes (label)`,
		`CREATE INDEX IF NOT EXISTS graph_nodes_textsearch_idx ON graph_nodes USING GIN (textsearch)`,
		`CREATE INDEX IF NOT EXISTS graph_edges_target_idx ON graph_edges (target)`,
		`CREATE TABLE IF NOT EXISTS graph_locks (
	lock_key TEXT PRIMARY KEY,
	locked_by TEXT NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL
)`,
	}
	for _, stmt := range statements {
		if _, err := s.conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// ApplyScript replays a mutation script inside one transaction. Node
// statements upsert rows; edge statements resolve their aliases against
// nodes merged earlier in the same script.
func (s *Store) ApplyScript(ctx context.Context, script *graph.Script) error {
	if len(script.Statements) == 0 {
		return nil
	}
	return s.withLease(ctx, "ingest:"+graph.ContentID(script.Source), func(ctx context.Context) error {
		return s.applyScript(ctx, script)
	})
}

func (s *Store) applyScript(ctx context.Context, script *graph.Script) error {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	aliasID := map[string]string{}
	for _, stmt := range script.Statements {
		switch stmt.Kind {
		case graph.MergeNode:
			props, err := json.Marshal(stmt.Props)
			if err != nil {
				return fmt.Errorf("encode props: %w", err)
			}
			_, err = tx.Exec(ctx, `INSERT INTO graph_nodes (id, label, name, text, props)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE SET label = $2, name = $3, text = $4, props = $5`,
				stmt.ID, stmt.Label, stmt.Props["name"], nodeText(stmt), props)
			if err != nil {
				return fmt.Errorf("merge node %s: %w", stmt.ID, err)
			}
			aliasID[stmt.Alias] = stmt.ID

		case graph.MergeEdge:
			source, ok := aliasID[stmt.From]
			if !ok {
				return fmt.Errorf("edge references unknown alias %q", stmt.From)
			}
			target, ok := aliasID[stmt.To]
			if !ok {
				return fmt.Errorf("edge references unknown alias %q", stmt.To)
			}
			_, err := tx.Exec(ctx, `INSERT INTO graph_edges (source, target, type)
VALUES ($1, $2, $3)
ON CONFLICT DO NOTHING`, source, target, stmt.Type)
			if err != nil {
				return fmt.Errorf("merge edge %s-[%s]->%s: %w", stmt.From, stmt.Type, stmt.To, err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("apply script for %s: %w", script.Source, err)
	}
	return nil
}

// nodeText picks the text column value for a node: chunk and entity
// nodes carry their text, documents their source path.
func nodeText(stmt graph.Statement) string {
	if text, ok := stmt.Props["text"]; ok {
		return text
	}
	return stmt.Props["source"]
}

// RemoveDocument deletes the document row, its chunks, and entities left
// without mentions. Edges go away through the foreign key cascade.
func (s *Store) RemoveDocument(ctx context.Context, source string) error {
	id := graph.ContentID(source)

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `DELETE FROM graph_nodes WHERE id IN (
	SELECT target FROM graph_edges WHERE source = $1 AND type = $2
)`, id, graph.EdgeContains)
	if err != nil {
		return fmt.Errorf("remove chunks of %s: %w", source, err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM graph_nodes WHERE id = $1`, id); err != nil {
		return fmt.Errorf("remove document %s: %w", source, err)
	}

	_, err = tx.Exec(ctx, `DELETE FROM graph_nodes n WHERE n.label = $1 AND NOT EXISTS (
	SELECT 1 FROM graph_edges e WHERE e.source = n.id AND e.type = $2
)`, graph.LabelEntity, graph.EdgeMentionedIn)
	if err != nil {
		return fmt.Errorf("remove orphaned entities: %w", err)
	}

	return tx.Commit(ctx)
}

func (s *Store) RemoveAll(ctx context.Context) error {
	if _, err := s.conn.Exec(ctx, `DELETE FROM graph_edges`); err != nil {
		return err
	}
	_, err := s.conn.Exec(ctx, `DELETE FROM graph_nodes`)
	return err
}

func (s *Store) Counts(ctx context.Context) (int64, int64, error) {
	var nodes, rels int64
	if err := s.conn.QueryRow(ctx, `SELECT count(*) FROM graph_nodes`).Scan(&nodes); err != nil {
		return 0, 0, err
	}
	if err := s.conn.QueryRow(ctx, `SELECT count(*) FROM graph_edges`).Scan(&rels); err != nil {
		return 0, 0, err
	}
	return nodes, rels, nil
}

func (s *Store) Close(ctx context.Context) error {
	if s.close != nil {
		s.close()
	}
	return nil
}
