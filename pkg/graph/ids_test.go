package graph

import "testing"

func TestContentID(t *testing.T) {
	id := ContentID("hello")
	if id != "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d" {
		t.Fatalf("unexpected digest: %s", id)
	}
	if ContentID("hello") != id {
		t.Fatal("digest is not deterministic")
	}
	if ContentID("hello") == ContentID("hello ") {
		t.Fatal("distinct inputs collide")
	}
}

func TestCanonicalName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple", "John Smith", "johnsmith"},
		{"hyphenated", "john-smith", "johnsmith"},
		{"underscored", "john_smith", "johnsmith"},
		{"mixed case", "GraphRAG", "graphrag"},
		{"digit leading token", "3D Printer", "_3dprinter"},
		{"digit leading result", "42", "_42"},
		{"punctuation stripped", "Node.js", "nodejs"},
		{"only punctuation", "!!!", ""},
		{"empty", "", ""},
		{"unicode stripped", "café", "caf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CanonicalName(tt.in)
			if got != tt.want {
				t.Fatalf("CanonicalName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCanonicalNameIdempotent(t *testing.T) {
	inputs := []string{"John Smith", "3D Printer", "Node.js", "a_b-c d", "_42"}
	for _, in := range inputs {
		once := CanonicalName(in)
		twice := CanonicalName(once)
		if once != twice {
			t.Fatalf("CanonicalName not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}
