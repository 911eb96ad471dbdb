package retrieve

import (
	"context"
	"fmt"
	"strings"

	"graphling/pkg/ai"
	"graphling/pkg/config"
	"graphling/pkg/logger"
	"graphling/pkg/store"
)

// Retriever answers questions against the property graph by combining
// entity search over extracted triplets with baseline chunk similarity.
type Retriever struct {
	client ai.Client
	store  store.GraphStore
	opts   config.Options
}

// Result is the retrieval outcome for one question: the assembled
// context and the pieces it was built from.
type Result struct {
	Context        string
	Triplets       []string
	RelatedChunks  []string
	BaselineChunks []string
	Keywords       []string
	Query          string
	Rewritten      bool
}

// Empty reports whether retrieval found nothing at all.
func (r *Result) Empty() bool {
	return len(r.Triplets) == 0 && len(r.RelatedChunks) == 0 && len(r.BaselineChunks) == 0
}

func New(client ai.Client, graphStore store.GraphStore, opts config.Options) *Retriever {
	return &Retriever{client: client, store: graphStore, opts: opts}
}

// Retrieve runs the hybrid search for a question. If the entity search
// yields no triplets the question is rewritten into a search query once
// and the search repeated; the baseline chunk search always runs against
// the effective query.
func (r *Retriever) Retrieve(ctx context.Context, question string) (*Result, error) {
	result := &Result{Query: question}

	if err := r.searchEntities(ctx, question, result); err != nil {
		return nil, err
	}

	if r.opts.IncludeEntityTextSearch && r.opts.RewriteOnEmpty && len(result.Triplets) == 0 {
		rewritten, err := r.rewriteQuery(ctx, question)
		if err != nil {
			return nil, err
		}
		if rewritten != "" && rewritten != question {
			logger.Debug(fmt.Sprintf("entity search empty, retrying with query %q", rewritten))
			result.Query = rewritten
			result.Rewritten = true
			if err := r.searchEntities(ctx, rewritten, result); err != nil {
				return nil, err
			}
		}
	}

	if r.opts.IncludeChunkVectorSearch && r.opts.MaxChunks > 0 {
		chunks, err := r.store.SearchChunkVector(ctx, result.Query, r.opts.MaxChunks)
		if err != nil {
			return nil, fmt.Errorf("chunk vector search: %w", err)
		}
		result.BaselineChunks = excludeSeen(chunks, result.RelatedChunks)
	}

	result.Context = renderContext(result)
	return result, nil
}

// Answer retrieves context for the question and streams the grounded
// answer. The result is returned alongside the stream so callers can
// show what the answer is based on.
func (r *Retriever) Answer(ctx context.Context, question string) (<-chan string, *Result, error) {
	result, err := r.Retrieve(ctx, question)
	if err != nil {
		return nil, nil, err
	}

	prompt := fmt.Sprintf(ai.AnswerWithContextPrompt, result.Context, question)
	stream, err := r.client.GenerateCompletionStream(ctx, prompt)
	if err != nil {
		return nil, nil, fmt.Errorf("generate answer: %w", err)
	}
	return stream, result, nil
}

// searchEntities extracts search terms from the question and merges the
// entity hits of every term into the bounded result sets.
func (r *Retriever) searchEntities(ctx context.Context, question string, result *Result) error {
	if !r.opts.IncludeEntityTextSearch {
		return nil
	}

	terms, err := r.searchTerms(ctx, question)
	if err != nil {
		return err
	}
	result.Keywords = terms

	var hits []store.EntityHit
	for _, term := range terms {
		termHits, err := r.searchTerm(ctx, term)
		if err != nil {
			return fmt.Errorf("entity search for %q: %w", term, err)
		}
		hits = append(hits, termHits...)
	}

	triplets, chunks := accumulate(hits, r.accumLimits())
	result.Triplets = triplets
	result.RelatedChunks = chunks
	return nil
}

func (r *Retriever) accumLimits() limits {
	l := limits{}
	if r.opts.IncludeTriplets {
		l.triplets = r.opts.MaxTriplets
	}
	if r.opts.IncludeRelatedChunks {
		l.chunks = r.opts.MaxRelatedChunks
	}
	return l
}

func (r *Retriever) searchTerm(ctx context.Context, term string) ([]store.EntityHit, error) {
	limit := r.opts.MaxTriplets
	if limit <= 0 {
		limit = config.DefaultMaxTriplets
	}
	switch r.opts.EntitySearch {
	case config.SearchVector:
		return r.store.SearchEntityVector(ctx, term, limit)
	default:
		return r.store.SearchEntityFullText(ctx, term, limit)
	}
}

// searchTerms returns the entity search terms for a question: extracted
// keywords when enabled, otherwise the question itself.
func (r *Retriever) searchTerms(ctx context.Context, question string) ([]string, error) {
	if !r.opts.UseKeywords || r.opts.MaxKeywords <= 0 {
		return []string{question}, nil
	}

	prompt := fmt.Sprintf(ai.ExtractKeywordsPrompt, r.opts.MaxKeywords, question)
	response, err := r.client.GenerateCompletion(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("extract keywords: %w", err)
	}

	keywords := SplitKeywords(response, r.opts.MaxKeywords)
	if len(keywords) == 0 {
		return []string{question}, nil
	}
	return keywords, nil
}

func (r *Retriever) rewriteQuery(ctx context.Context, question string) (string, error) {
	prompt := fmt.Sprintf(ai.RewriteQueryPrompt, question)
	response, err := r.client.GenerateCompletion(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("rewrite query: %w", err)
	}
	return strings.TrimSpace(response), nil
}

// SplitKeywords parses a delimiter-separated keyword response, dropping
// blanks and duplicates and enforcing the cap.
func SplitKeywords(response string, max int) []string {
	seen := map[string]bool{}
	var keywords []string
	for _, part := range strings.Split(response, ai.KeywordDelimiter) {
		part = strings.TrimSpace(part)
		if part == "" || seen[part] {
			continue
		}
		seen[part] = true
		keywords = append(keywords, part)
		if max > 0 && len(keywords) == max {
			break
		}
	}
	return keywords
}
