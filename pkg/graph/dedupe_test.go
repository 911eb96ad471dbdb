package graph

import "testing"

func TestDeduplicate(t *testing.T) {
	doc := NewDocument("testdata/example.txt")
	chunkA := NewChunk(doc, 0, "John Smith wrote a book.")
	chunkB := NewChunk(doc, 1, "The book by john-smith was reviewed.")

	triplets := ChunkTriplets{
		chunkA: {
			{Head: "John Smith", HeadType: "PERSON", Relation: "WRITTEN_IN", Tail: "a book", TailType: "BOOK"},
		},
		chunkB: {
			{Head: "john-smith", HeadType: "AUTHOR", Relation: "GIVEN", Tail: "a book", TailType: "BOOK"},
		},
	}

	entities := Deduplicate(triplets)
	if len(entities) != 2 {
		t.Fatalf("expected 2 entities, got %d: %v", len(entities), entities)
	}

	smith, ok := entities["johnsmith"]
	if !ok {
		t.Fatal("missing entity johnsmith")
	}
	if smith.Text != "John Smith" {
		t.Fatalf("first surface form should win, got %q", smith.Text)
	}
	if smith.Type != "PERSON" {
		t.Fatalf("first type should win, got %q", smith.Type)
	}
	if smith.ID != ContentID("johnsmith") {
		t.Fatalf("entity ID must derive from canonical name, got %s", smith.ID)
	}
	if len(smith.MentionedIn) != 2 {
		t.Fatalf("expected mentions in both chunks, got %d", len(smith.MentionedIn))
	}

	book := entities["abook"]
	if len(book.MentionedIn) != 2 {
		t.Fatalf("expected book mentioned in both chunks, got %d", len(book.MentionedIn))
	}
}

func TestDeduplicateSkipsUnusable(t *testing.T) {
	doc := NewDocument("testdata/example.txt")
	chunk := NewChunk(doc, 0, "text")

	triplets := ChunkTriplets{
		chunk: {
			{Head: "!!!", HeadType: "PERSON", Relation: "USED_FOR", Tail: "Hammer", TailType: "PRODUCT"},
		},
	}

	entities := Deduplicate(triplets)
	if len(entities) != 1 {
		t.Fatalf("expected only the usable entity, got %v", entities)
	}
	if _, ok := entities["hammer"]; !ok {
		t.Fatal("missing entity hammer")
	}
}

func TestDeduplicateEmpty(t *testing.T) {
	if got := Deduplicate(ChunkTriplets{}); len(got) != 0 {
		t.Fatalf("expected no entities, got %v", got)
	}
}
