package neo4j

import (
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

func record(keys []string, values []any) *neo4j.Record {
	return &neo4j.Record{Keys: keys, Values: values}
}

func TestDecodeEntityHits(t *testing.T) {
	records := []*neo4j.Record{
		record(
			[]string{"score", "triplets", "chunks"},
			[]any{2.5, []any{"(John Smith, LIVES_IN, Oldenburg)"}, []any{"John Smith lives in Oldenburg."}},
		),
		record(
			[]string{"score", "triplets", "chunks"},
			[]any{1.0, []any{}, []any{"Unrelated chunk."}},
		),
	}

	hits := decodeEntityHits(records)
	if len(hits) != 3 {
		t.Fatalf("expected 3 hits, got %v", hits)
	}
	if hits[0].Triplet != "(John Smith, LIVES_IN, Oldenburg)" || hits[0].Score != 2.5 {
		t.Fatalf("unexpected triplet hit: %+v", hits[0])
	}
	if hits[1].Chunk != "John Smith lives in Oldenburg." || hits[1].Triplet != "" {
		t.Fatalf("unexpected chunk hit: %+v", hits[1])
	}
	if hits[2].Chunk != "Unrelated chunk." || hits[2].Score != 1.0 {
		t.Fatalf("unexpected hit: %+v", hits[2])
	}
}

func TestDecodeEntityHitsSkipsEmpty(t *testing.T) {
	records := []*neo4j.Record{
		record(
			[]string{"score", "triplets", "chunks"},
			[]any{0.5, []any{""}, nil},
		),
	}
	if hits := decodeEntityHits(records); len(hits) != 0 {
		t.Fatalf("expected no hits, got %v", hits)
	}
}

func TestEncodeConfig(t *testing.T) {
	openai := EncodeParams{Provider: "OpenAI", Token: "tok", Model: "text-embedding-3-small"}
	cfg := openai.config()
	if cfg["token"] != "tok" || cfg["model"] != "text-embedding-3-small" {
		t.Fatalf("unexpected config: %v", cfg)
	}
	if _, ok := cfg["resource"]; ok {
		t.Fatal("resource must only be set for Azure")
	}

	azure := EncodeParams{Provider: "AzureOpenAI", Token: "tok", Resource: "res", Deployment: "dep"}
	cfg = azure.config()
	if cfg["resource"] != "res" || cfg["deployment"] != "dep" {
		t.Fatalf("unexpected azure config: %v", cfg)
	}
}
