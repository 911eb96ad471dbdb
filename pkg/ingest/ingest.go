package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/sync/errgroup"

	"graphling/pkg/ai"
	"graphling/pkg/config"
	"graphling/pkg/graph"
	"graphling/pkg/logger"
	"graphling/pkg/store"
)

// Service drives document ingestion: extraction, script caching, graph
// writes, and embedding population.
type Service struct {
	client   ai.Client
	pipeline *graph.Pipeline
	store    store.GraphStore
	opts     config.Options
}

func New(client ai.Client, graphStore store.GraphStore, opts config.Options) (*Service, error) {
	pipeline, err := graph.NewPipeline(client, opts)
	if err != nil {
		return nil, err
	}
	return &Service{
		client:   client,
		pipeline: pipeline,
		store:    graphStore,
		opts:     opts,
	}, nil
}

// IngestFiles ingests all sources, several in parallel. A failing file
// does not stop the others; the errors are collected and returned
// together. Embedding population runs once at the end over everything
// the run added.
func (s *Service) IngestFiles(ctx context.Context, sources []string) error {
	if len(sources) == 0 {
		return nil
	}

	runID, err := gonanoid.New()
	if err != nil {
		return err
	}
	logger.Info(fmt.Sprintf("run %s: ingesting %d files", runID, len(sources)))

	if err := s.store.EnsureSchema(ctx); err != nil {
		return err
	}

	var mu sync.Mutex
	var failures []error

	eg := errgroup.Group{}
	eg.SetLimit(max(s.opts.ParallelFiles, 1))
	for _, source := range sources {
		eg.Go(func() error {
			if err := s.IngestFile(ctx, source); err != nil {
				logger.Error(fmt.Sprintf("run %s: %s failed: %v", runID, source, err))
				mu.Lock()
				failures = append(failures, fmt.Errorf("%s: %w", source, err))
				mu.Unlock()
			}
			return nil
		})
	}
	eg.Wait()

	if err := s.store.PopulateChunkEmbeddings(ctx); err != nil {
		return fmt.Errorf("populate chunk embeddings: %w", err)
	}
	if err := s.store.PopulateEntityEmbeddings(ctx); err != nil {
		return fmt.Errorf("populate entity embeddings: %w", err)
	}

	metrics := s.client.GetMetrics()
	nodes, rels, err := s.store.Counts(ctx)
	if err != nil {
		return err
	}
	logger.Info(fmt.Sprintf("run %s: graph has %d nodes and %d relationships (%d prompt / %d completion tokens used)",
		runID, nodes, rels, metrics.InputTokens, metrics.OutputTokens))

	return errors.Join(failures...)
}

// IngestFile ingests one source. A valid cached script is replayed
// instead of re-extracting; otherwise the extraction result is cached
// before the graph write, so a failing store does not cost the model
// calls.
func (s *Service) IngestFile(ctx context.Context, source string) error {
	script, cached := loadCachedScript(source)
	if cached {
		logger.Debug(fmt.Sprintf("using cached extraction for %s", source))
	} else {
		var err error
		script, err = s.pipeline.ExtractScript(ctx, source)
		if err != nil {
			return err
		}
		if err := saveCachedScript(source, script); err != nil {
			logger.Warn(fmt.Sprintf("could not cache extraction for %s: %v", source, err))
		}
	}

	return s.store.ApplyScript(ctx, script)
}

// RemoveDocument deletes a document's subgraph. The cached extraction
// stays on disk so the document can be re-added without model calls.
func (s *Service) RemoveDocument(ctx context.Context, source string) error {
	return s.store.RemoveDocument(ctx, source)
}

// RemoveAll clears the whole graph.
func (s *Service) RemoveAll(ctx context.Context) error {
	return s.store.RemoveAll(ctx)
}

// Counts reports graph size.
func (s *Service) Counts(ctx context.Context) (int64, int64, error) {
	return s.store.Counts(ctx)
}
