package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"

	"graphling/internal/setup"
	"graphling/internal/util"
	"graphling/pkg/config"
	"graphling/pkg/ingest"
	"graphling/pkg/logger"
	"graphling/pkg/logger/console"
)

var cli struct {
	Paths     []string `arg:"" optional:"" help:"Files or glob patterns to ingest."`
	Remove    bool     `short:"r" help:"Remove the documents from the graph instead of ingesting them."`
	RemoveAll bool     `name:"remove-all" help:"Clear the entire graph."`
	Verbose   bool     `short:"v" help:"Enable debug logging."`
}

func main() {
	util.LoadEnv()

	kctx := kong.Parse(&cli,
		kong.Name("ingest"),
		kong.Description("Extract knowledge graphs from documents and store them for retrieval."),
		kong.UsageOnError(),
	)

	logger.Init(console.New(console.Params{
		Debug: cli.Verbose || util.GetEnvBool("DEBUG", false),
	}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts, err := config.FromEnv()
	if err != nil {
		logger.Fatal("Invalid configuration", "err", err)
	}

	aiClient, err := setup.AIClient(opts)
	if err != nil {
		logger.Fatal("Could not create AI client", "err", err)
	}

	graphStore, err := setup.GraphStore(ctx, aiClient, opts)
	if err != nil {
		logger.Fatal("Could not connect to graph store", "err", err)
	}
	defer graphStore.Close(ctx)

	service, err := ingest.New(aiClient, graphStore, *opts)
	if err != nil {
		logger.Fatal("Could not create ingest service", "err", err)
	}

	switch {
	case cli.RemoveAll:
		removeAll(ctx, service)
	case cli.Remove:
		removeDocuments(ctx, service, expand(kctx, cli.Paths))
	default:
		ingestDocuments(ctx, service, expand(kctx, cli.Paths))
	}
}

// expand resolves glob patterns to files; literal paths pass through so
// a missing file is reported during ingestion, not silently dropped.
func expand(kctx *kong.Context, patterns []string) []string {
	if len(patterns) == 0 {
		kctx.PrintUsage(false)
		os.Exit(1)
	}

	var paths []string
	seen := map[string]bool{}
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil || len(matches) == 0 {
			matches = []string{pattern}
		}
		for _, m := range matches {
			if strings.HasSuffix(m, ".graphscript.json") || seen[m] {
				continue
			}
			seen[m] = true
			paths = append(paths, m)
		}
	}
	return paths
}

func ingestDocuments(ctx context.Context, service *ingest.Service, paths []string) {
	if err := service.IngestFiles(ctx, paths); err != nil {
		logger.Fatal("Ingestion finished with errors", "err", err)
	}
	logger.Info("Ingestion complete")
}

func removeDocuments(ctx context.Context, service *ingest.Service, paths []string) {
	for _, path := range paths {
		if err := service.RemoveDocument(ctx, path); err != nil {
			logger.Fatal("Could not remove document", "path", path, "err", err)
		}
		logger.Info("Removed document", "path", path)
	}
}

func removeAll(ctx context.Context, service *ingest.Service) {
	nodes, rels, err := service.Counts(ctx)
	if err != nil {
		logger.Fatal("Could not inspect graph", "err", err)
	}

	fmt.Printf("This deletes all %d nodes and %d relationships. Continue? [y/N] ", nodes, rels)
	reader := bufio.NewReader(os.Stdin)
	answer, _ := reader.ReadString('\n')
	if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
		logger.Info("Aborted")
		return
	}

	if err := service.RemoveAll(ctx); err != nil {
		logger.Fatal("Could not clear graph", "err", err)
	}
	logger.Info("Graph cleared")
}
