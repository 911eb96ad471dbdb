package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"

	"graphling/internal/setup"
	"graphling/internal/util"
	"graphling/pkg/config"
	"graphling/pkg/logger"
	"graphling/pkg/logger/console"
	"graphling/pkg/retrieve"
)

var cli struct {
	Verbose bool `short:"v" help:"Enable debug logging and show retrieval details."`
}

func main() {
	util.LoadEnv()

	kong.Parse(&cli,
		kong.Name("chat"),
		kong.Description("Ask questions against the ingested knowledge graph."),
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

	retriever := retrieve.New(aiClient, graphStore, *opts)

	fmt.Println("Ask a question, or type 'exit' to quit.")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		if question == "exit" || question == "quit" {
			break
		}

		answer(ctx, retriever, question)
	}
}

func answer(ctx context.Context, retriever *retrieve.Retriever, question string) {
	stream, result, err := retriever.Answer(ctx, question)
	if err != nil {
		logger.Error("Retrieval failed", "err", err)
		return
	}

	if cli.Verbose {
		logger.Debug("Retrieval result",
			"keywords", strings.Join(result.Keywords, ", "),
			"triplets", len(result.Triplets),
			"related_chunks", len(result.RelatedChunks),
			"baseline_chunks", len(result.BaselineChunks),
			"rewritten", result.Rewritten,
		)
	}
	if result.Empty() {
		logger.Warn("No context found for the question")
	}

	for part := range stream {
		fmt.Print(part)
	}
	fmt.Println()
}
