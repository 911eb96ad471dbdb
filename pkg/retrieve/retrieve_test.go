package retrieve

import (
	"context"
	"errors"
	"strings"
	"testing"

	"graphling/pkg/ai"
	"graphling/pkg/config"
	"graphling/pkg/graph"
	"graphling/pkg/store"
)

type fakeStore struct {
	hits          map[string][]store.EntityHit
	chunks        []string
	entityErr     error
	entityCalls   []string
	chunkQueries  []string
	vectorQueries []string
}

func (f *fakeStore) ApplyScript(ctx context.Context, s *graph.Script) error { return nil }
func (f *fakeStore) EnsureSchema(ctx context.Context) error                 { return nil }
func (f *fakeStore) PopulateChunkEmbeddings(ctx context.Context) error      { return nil }
func (f *fakeStore) PopulateEntityEmbeddings(ctx context.Context) error     { return nil }

func (f *fakeStore) SearchEntityFullText(ctx context.Context, term string, limit int) ([]store.EntityHit, error) {
	f.entityCalls = append(f.entityCalls, term)
	if f.entityErr != nil {
		return nil, f.entityErr
	}
	return f.hits[term], nil
}

func (f *fakeStore) SearchEntityVector(ctx context.Context, term string, limit int) ([]store.EntityHit, error) {
	f.vectorQueries = append(f.vectorQueries, term)
	if f.entityErr != nil {
		return nil, f.entityErr
	}
	return f.hits[term], nil
}

func (f *fakeStore) SearchChunkVector(ctx context.Context, query string, limit int) ([]string, error) {
	f.chunkQueries = append(f.chunkQueries, query)
	if limit < len(f.chunks) {
		return f.chunks[:limit], nil
	}
	return f.chunks, nil
}

func (f *fakeStore) RemoveDocument(ctx context.Context, source string) error { return nil }
func (f *fakeStore) RemoveAll(ctx context.Context) error                     { return nil }
func (f *fakeStore) Counts(ctx context.Context) (int64, int64, error)        { return 0, 0, nil }
func (f *fakeStore) Close(ctx context.Context) error                         { return nil }

// fakeChat answers keyword and rewrite prompts from canned responses.
type fakeChat struct {
	keywords string
	rewrite  string
	streamed string
}

func (f *fakeChat) GenerateCompletion(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	if strings.Contains(prompt, "search keywords") {
		return f.keywords, nil
	}
	if strings.Contains(prompt, "Generate a search query") {
		return f.rewrite, nil
	}
	return "", errors.New("unexpected prompt")
}

func (f *fakeChat) GenerateCompletionStream(ctx context.Context, prompt string, opts ...ai.GenerateOption) (<-chan string, error) {
	ch := make(chan string, 1)
	ch <- f.streamed
	close(ch)
	return ch, nil
}

func (f *fakeChat) GenerateCompletionWithFormat(ctx context.Context, name, description, prompt string, out any, opts ...ai.GenerateOption) error {
	return errors.New("not used")
}

func (f *fakeChat) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	return []float32{0.1}, nil
}

func (f *fakeChat) GetMetrics() ai.ModelMetrics { return ai.ModelMetrics{} }
func (f *fakeChat) ResetMetrics()               {}

func retrievalOptions() config.Options {
	return config.Options{
		IncludeEntityTextSearch:  true,
		UseKeywords:              true,
		MaxKeywords:              5,
		EntitySearch:             config.SearchFullText,
		IncludeTriplets:          true,
		MaxTriplets:              10,
		IncludeRelatedChunks:     true,
		MaxRelatedChunks:         2,
		IncludeChunkVectorSearch: true,
		MaxChunks:                3,
		RewriteOnEmpty:           true,
	}
}

func TestSplitKeywords(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want []string
	}{
		{"simple", "alpha~beta~gamma", 10, []string{"alpha", "beta", "gamma"}},
		{"whitespace", " alpha ~ beta ", 10, []string{"alpha", "beta"}},
		{"duplicates", "a~a~b", 10, []string{"a", "b"}},
		{"capped", "a~b~c", 2, []string{"a", "b"}},
		{"empty", "~~", 10, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitKeywords(tt.in, tt.max)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Fatalf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestAccumulate(t *testing.T) {
	hits := []store.EntityHit{
		{Triplet: "(b, USES, c)", Score: 1.0},
		{Triplet: "(a, USES, c)", Score: 1.0},
		{Triplet: "(z, USES, c)", Score: 3.0},
		{Triplet: "(b, USES, c)", Score: 0.5},
		{Chunk: "chunk two", Score: 1.0},
		{Chunk: "chunk one", Score: 2.0},
		{Chunk: "chunk three", Score: 0.1},
	}

	triplets, chunks := accumulate(hits, limits{triplets: 2, chunks: 2})

	if len(triplets) != 2 || triplets[0] != "(z, USES, c)" || triplets[1] != "(a, USES, c)" {
		t.Fatalf("unexpected triplets: %v", triplets)
	}
	if len(chunks) != 2 || chunks[0] != "chunk one" || chunks[1] != "chunk two" {
		t.Fatalf("unexpected chunks: %v", chunks)
	}
}

func TestAccumulateDisabled(t *testing.T) {
	hits := []store.EntityHit{{Triplet: "(a, USES, b)", Score: 1}, {Chunk: "c", Score: 1}}
	triplets, chunks := accumulate(hits, limits{})
	if triplets != nil || chunks != nil {
		t.Fatalf("disabled limits must yield nothing, got %v %v", triplets, chunks)
	}
}

func TestExcludeSeen(t *testing.T) {
	got := excludeSeen([]string{"a", "b", "c"}, []string{"b"})
	if len(got) != 2 || got[0] != "a" || got[1] != "c" {
		t.Fatalf("got %v", got)
	}
}

func TestRetrieve(t *testing.T) {
	graphStore := &fakeStore{
		hits: map[string][]store.EntityHit{
			"Oldenburg": {
				{Triplet: "(John Smith, LIVES_IN, Oldenburg)", Score: 2},
				{Chunk: "John Smith lives in Oldenburg.", Score: 2},
			},
		},
		chunks: []string{"John Smith lives in Oldenburg.", "Oldenburg is a city."},
	}
	client := &fakeChat{keywords: "Oldenburg~nothing"}

	result, err := New(client, graphStore, retrievalOptions()).Retrieve(context.Background(), "Where does John Smith live?")
	if err != nil {
		t.Fatal(err)
	}

	if len(result.Keywords) != 2 {
		t.Fatalf("unexpected keywords: %v", result.Keywords)
	}
	if len(result.Triplets) != 1 || result.Triplets[0] != "(John Smith, LIVES_IN, Oldenburg)" {
		t.Fatalf("unexpected triplets: %v", result.Triplets)
	}
	if len(result.RelatedChunks) != 1 {
		t.Fatalf("unexpected related chunks: %v", result.RelatedChunks)
	}

	// The baseline block must not repeat a related chunk.
	if len(result.BaselineChunks) != 1 || result.BaselineChunks[0] != "Oldenburg is a city." {
		t.Fatalf("unexpected baseline chunks: %v", result.BaselineChunks)
	}

	for _, header := range []string{tripletHeader, relatedChunkHeader, baselineChunkHeader} {
		if !strings.Contains(result.Context, header) {
			t.Fatalf("context missing %q:\n%s", header, result.Context)
		}
	}
	if result.Rewritten {
		t.Fatal("query must not be rewritten when search succeeds")
	}
}

func TestRetrieveRewriteOnEmpty(t *testing.T) {
	graphStore := &fakeStore{
		hits: map[string][]store.EntityHit{
			"better query": {{Triplet: "(a, USES, b)", Score: 1}},
		},
	}
	client := &fakeChat{keywords: "", rewrite: "better query"}

	opts := retrievalOptions()
	opts.UseKeywords = false

	result, err := New(client, graphStore, opts).Retrieve(context.Background(), "vague question")
	if err != nil {
		t.Fatal(err)
	}

	if !result.Rewritten {
		t.Fatal("expected a rewritten query")
	}
	if result.Query != "better query" {
		t.Fatalf("unexpected effective query: %q", result.Query)
	}
	if len(result.Triplets) != 1 {
		t.Fatalf("expected triplets from the rewritten search, got %v", result.Triplets)
	}

	// One original attempt plus one rewrite, never more.
	if len(graphStore.entityCalls) != 2 {
		t.Fatalf("expected 2 entity searches, got %v", graphStore.entityCalls)
	}

	// The baseline search must use the rewritten query.
	if len(graphStore.chunkQueries) != 1 || graphStore.chunkQueries[0] != "better query" {
		t.Fatalf("unexpected chunk queries: %v", graphStore.chunkQueries)
	}
}

func TestRetrieveRewriteOnChunkOnlyHits(t *testing.T) {
	graphStore := &fakeStore{
		hits: map[string][]store.EntityHit{
			"vague question": {{Chunk: "a chunk without relations", Score: 1}},
			"better query":   {{Triplet: "(a, USES, b)", Score: 1}},
		},
	}
	client := &fakeChat{rewrite: "better query"}

	opts := retrievalOptions()
	opts.UseKeywords = false

	result, err := New(client, graphStore, opts).Retrieve(context.Background(), "vague question")
	if err != nil {
		t.Fatal(err)
	}

	// Chunk hits alone do not satisfy the search, only triplets do.
	if !result.Rewritten {
		t.Fatal("expected a rewrite when the search finds no triplets")
	}
	if len(result.Triplets) != 1 {
		t.Fatalf("expected triplets from the rewritten search, got %v", result.Triplets)
	}
	if len(graphStore.entityCalls) != 2 {
		t.Fatalf("expected 2 entity searches, got %v", graphStore.entityCalls)
	}
}

func TestRetrieveEntitySearchError(t *testing.T) {
	graphStore := &fakeStore{entityErr: errors.New("store down")}
	client := &fakeChat{}

	opts := retrievalOptions()
	opts.UseKeywords = false
	opts.IncludeChunkVectorSearch = false

	_, err := New(client, graphStore, opts).Retrieve(context.Background(), "question")
	if err == nil || !strings.Contains(err.Error(), "store down") {
		t.Fatalf("expected the store failure to propagate, got %v", err)
	}
	if len(graphStore.entityCalls) != 1 {
		t.Fatalf("search must stop on the first failure, got %v", graphStore.entityCalls)
	}
}

func TestRetrieveRewriteStaysEmpty(t *testing.T) {
	graphStore := &fakeStore{}
	client := &fakeChat{rewrite: "still nothing"}

	opts := retrievalOptions()
	opts.UseKeywords = false
	opts.IncludeChunkVectorSearch = false

	result, err := New(client, graphStore, opts).Retrieve(context.Background(), "vague question")
	if err != nil {
		t.Fatal(err)
	}
	if !result.Empty() {
		t.Fatalf("expected empty result, got %+v", result)
	}
	if len(graphStore.entityCalls) != 2 {
		t.Fatalf("rewrite must happen exactly once, got %v", graphStore.entityCalls)
	}
}

func TestRetrieveVectorMode(t *testing.T) {
	graphStore := &fakeStore{
		hits: map[string][]store.EntityHit{
			"term": {{Triplet: "(a, USES, b)", Score: 1}},
		},
	}
	client := &fakeChat{keywords: "term"}

	opts := retrievalOptions()
	opts.EntitySearch = config.SearchVector
	opts.IncludeChunkVectorSearch = false

	result, err := New(client, graphStore, opts).Retrieve(context.Background(), "question")
	if err != nil {
		t.Fatal(err)
	}
	if len(graphStore.vectorQueries) != 1 || len(graphStore.entityCalls) != 0 {
		t.Fatal("vector mode must use the vector search")
	}
	if len(result.Triplets) != 1 {
		t.Fatalf("unexpected triplets: %v", result.Triplets)
	}
}

func TestAnswerStreams(t *testing.T) {
	graphStore := &fakeStore{chunks: []string{"context chunk"}}
	client := &fakeChat{keywords: "term", streamed: "the answer"}

	stream, result, err := New(client, graphStore, retrievalOptions()).Answer(context.Background(), "question")
	if err != nil {
		t.Fatal(err)
	}
	if result == nil {
		t.Fatal("missing result")
	}

	var answer strings.Builder
	for part := range stream {
		answer.WriteString(part)
	}
	if answer.String() != "the answer" {
		t.Fatalf("unexpected answer: %q", answer.String())
	}
}

func TestRetrieveBaselineOnly(t *testing.T) {
	graphStore := &fakeStore{chunks: []string{"some chunk"}}
	client := &fakeChat{}

	opts := retrievalOptions()
	opts.IncludeEntityTextSearch = false

	result, err := New(client, graphStore, opts).Retrieve(context.Background(), "question")
	if err != nil {
		t.Fatal(err)
	}
	if len(graphStore.entityCalls) != 0 {
		t.Fatal("entity search must be skipped when disabled")
	}
	if result.Rewritten {
		t.Fatal("rewrite must not run without entity search")
	}
	if strings.Contains(result.Context, tripletHeader) || strings.Contains(result.Context, relatedChunkHeader) {
		t.Fatalf("only the baseline block may appear:\n%s", result.Context)
	}
	if !strings.Contains(result.Context, baselineChunkHeader) {
		t.Fatalf("missing baseline block:\n%s", result.Context)
	}
}

func TestRenderContextOmitsEmptyBlocks(t *testing.T) {
	got := renderContext(&Result{Triplets: []string{"(a, USES, b)"}})
	if strings.Contains(got, relatedChunkHeader) || strings.Contains(got, baselineChunkHeader) {
		t.Fatalf("empty blocks must be omitted:\n%s", got)
	}
	if !strings.HasPrefix(got, tripletHeader) {
		t.Fatalf("missing triplet header:\n%s", got)
	}
}
