package graph

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"graphling/internal/util"
	"graphling/pkg/ai"
	"graphling/pkg/config"
	"graphling/pkg/logger"
)

// Extractor turns a source document into chunks and per-chunk triplets
// using the configured language model.
type Extractor struct {
	client  ai.Client
	counter TokenCounter
	opts    config.Options
}

func NewExtractor(client ai.Client, opts config.Options) (*Extractor, error) {
	e := &Extractor{client: client, opts: opts}
	if opts.UseTokenSplitter {
		counter, err := NewTiktokenCounter(opts.TokenEncoder)
		if err != nil {
			return nil, fmt.Errorf("token encoder %q: %w", opts.TokenEncoder, err)
		}
		e.counter = counter
	}
	return e, nil
}

// ExtractDocument reads the document at source, splits it and extracts
// triplets chunk by chunk. A missing or empty source yields an empty
// result rather than an error. Chunks whose extraction keeps failing
// after retries are skipped with a warning; their text is still recorded
// so they can be stored and searched.
func (e *Extractor) ExtractDocument(ctx context.Context, source string) (Document, ChunkTriplets, error) {
	doc := NewDocument(source)

	raw, err := os.ReadFile(source)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warn(fmt.Sprintf("document %s does not exist, skipping", source))
			return doc, ChunkTriplets{}, nil
		}
		return doc, nil, fmt.Errorf("read %s: %w", source, err)
	}

	var parts []string
	if e.opts.UseTokenSplitter {
		parts = SplitTokenAware(string(raw), e.opts.ChunkSize, e.opts.Overlap, e.counter)
	} else {
		parts = SplitParagraphs(string(raw))
	}

	result := ChunkTriplets{}
	for i, text := range parts {
		chunk := NewChunk(doc, i, text)
		rows, err := e.extractChunk(ctx, text)
		if err != nil {
			if ctx.Err() != nil {
				return doc, nil, ctx.Err()
			}
			logger.Warn(fmt.Sprintf("extraction failed for chunk %d of %s: %v", i, source, err))
			result[chunk] = nil
			continue
		}
		result[chunk] = rows
	}

	return doc, result, nil
}

func (e *Extractor) extractChunk(ctx context.Context, text string) ([]TripletRow, error) {
	system := fmt.Sprintf(ai.ExtractTripletsPrompt,
		e.opts.ExtractionPreamble,
		e.opts.MaxTripletsPerChunk,
		strings.Join(e.opts.EntityTypes, ", "),
		strings.Join(e.opts.RelationTypes, ", "),
	)

	rows, err := util.RetryWithContext(ctx, e.opts.MaxRetries, func(ctx context.Context) ([]TripletRow, error) {
		var out []TripletRow
		err := e.client.GenerateCompletionWithFormat(ctx,
			"triplets",
			"Knowledge graph triplets extracted from the text.",
			text,
			&out,
			ai.WithSystemPrompts(system),
		)
		return out, err
	})
	if err != nil {
		return nil, err
	}

	rows = filterTriplets(rows, e.opts.MaxTripletsPerChunk)
	return rows, nil
}

// filterTriplets drops rows with a blank head or tail and enforces the
// per-chunk cap, keeping rows in a deterministic order.
func filterTriplets(rows []TripletRow, max int) []TripletRow {
	kept := rows[:0]
	for _, row := range rows {
		if row.Head == "" || row.Tail == "" {
			continue
		}
		kept = append(kept, row)
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].String() < kept[j].String() })
	if max > 0 && len(kept) > max {
		kept = kept[:max]
	}
	return kept
}
