package graph

import (
	"context"
	"fmt"

	"graphling/pkg/ai"
	"graphling/pkg/config"
	"graphling/pkg/logger"
)

// Pipeline runs the full extraction path for one document: split,
// extract, deduplicate, and assemble the mutation script.
type Pipeline struct {
	extractor *Extractor
	opts      config.Options
}

func NewPipeline(client ai.Client, opts config.Options) (*Pipeline, error) {
	extractor, err := NewExtractor(client, opts)
	if err != nil {
		return nil, err
	}
	return &Pipeline{extractor: extractor, opts: opts}, nil
}

// ExtractScript produces the graph mutation script for the document at
// source. The script is deterministic for identical model output, so it
// can be cached and replayed against any store.
func (p *Pipeline) ExtractScript(ctx context.Context, source string) (*Script, error) {
	doc, triplets, err := p.extractor.ExtractDocument(ctx, source)
	if err != nil {
		return nil, err
	}

	entities := Deduplicate(triplets)
	script := BuildScript(doc, triplets, entities, p.opts.EmitEmptyChunks)

	logger.Debug(fmt.Sprintf("document %s: %d chunks, %d entities, %d statements",
		source, len(triplets), len(entities), len(script.Statements)))

	return script, nil
}
