package pgx

import (
	"context"
	"strings"
	"testing"

	"graphling/pkg/graph"
)

func TestNodeText(t *testing.T) {
	chunk := graph.Statement{Props: map[string]string{"text": "chunk text", "name": "DocumentChunk0"}}
	if got := nodeText(chunk); got != "chunk text" {
		t.Fatalf("got %q", got)
	}

	doc := graph.Statement{Props: map[string]string{"source": "a.txt"}}
	if got := nodeText(doc); got != "a.txt" {
		t.Fatalf("got %q", got)
	}
}

func TestEntityChunksOrderNumeric(t *testing.T) {
	// A text sort would put sequence "10" before "2".
	if !strings.Contains(entityChunksSQL, `(c.props->>'sequence')::int`) {
		t.Fatalf("chunk expansion must order by numeric sequence:\n%s", entityChunksSQL)
	}
}

func TestApplyScriptEmpty(t *testing.T) {
	s := NewWithConn(nil, nil, 0)
	if err := s.ApplyScript(context.Background(), &graph.Script{Source: "a.txt"}); err != nil {
		t.Fatalf("empty script must be a no-op: %v", err)
	}
}
