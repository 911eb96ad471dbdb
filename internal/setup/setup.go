// Package setup wires the AI client and graph store from the
// environment. Both commands share this layer so they always agree on
// the configuration surface.
package setup

import (
	"context"
	"fmt"

	"graphling/internal/util"
	"graphling/pkg/ai"
	"graphling/pkg/ai/ollama"
	"graphling/pkg/ai/openai"
	"graphling/pkg/config"
	"graphling/pkg/store"
	storeneo4j "graphling/pkg/store/neo4j"
	storepgx "graphling/pkg/store/pgx"
)

// AIClient builds the model client selected by AI_ADAPTER ("openai" by
// default, or "ollama").
func AIClient(opts *config.Options) (ai.Client, error) {
	switch adapter := util.GetEnvString("AI_ADAPTER", "openai"); adapter {
	case "ollama":
		return ollama.New(ollama.Params{
			ChatModel:          util.GetEnv("AI_CHAT_MODEL"),
			ExtractionModel:    util.GetEnvString("AI_EXTRACT_MODEL", util.GetEnv("AI_CHAT_MODEL")),
			EmbeddingModel:     util.GetEnv("AI_EMBED_MODEL"),
			BaseURL:            util.GetEnv("AI_CHAT_URL"),
			ApiKey:             util.GetEnv("AI_CHAT_KEY"),
			EmbeddingDimension: opts.EmbeddingDimension,
		})
	case "openai":
		return openai.New(openai.Params{
			ChatModel:          util.GetEnv("AI_CHAT_MODEL"),
			ExtractionModel:    util.GetEnvString("AI_EXTRACT_MODEL", util.GetEnv("AI_CHAT_MODEL")),
			EmbeddingModel:     util.GetEnv("AI_EMBED_MODEL"),
			ChatURL:            util.GetEnv("AI_CHAT_URL"),
			ChatKey:            util.GetEnv("AI_CHAT_KEY"),
			EmbeddingURL:       util.GetEnv("AI_EMBED_URL"),
			EmbeddingKey:       util.GetEnvString("AI_EMBED_KEY", util.GetEnv("AI_CHAT_KEY")),
			EmbeddingDimension: opts.EmbeddingDimension,
		}), nil
	default:
		return nil, fmt.Errorf("unknown AI_ADAPTER %q", adapter)
	}
}

// GraphStore builds the store selected by GRAPH_STORE: "neo4j" (the
// default) or "postgres".
func GraphStore(ctx context.Context, client ai.Client, opts *config.Options) (store.GraphStore, error) {
	switch backend := util.GetEnvString("GRAPH_STORE", "neo4j"); backend {
	case "neo4j":
		return storeneo4j.New(ctx, storeneo4j.Params{
			URI:      util.GetEnvString("NEO4J_URI", "neo4j://localhost:7687"),
			Username: util.GetEnvString("NEO4J_USERNAME", "neo4j"),
			Password: util.GetEnv("NEO4J_PASSWORD"),
			Database: util.GetEnv("NEO4J_DATABASE"),
			Encode: storeneo4j.EncodeParams{
				Provider:   util.GetEnvString("NEO4J_EMBED_PROVIDER", "OpenAI"),
				Token:      util.GetEnvString("NEO4J_EMBED_TOKEN", util.GetEnv("AI_EMBED_KEY")),
				Model:      util.GetEnv("AI_EMBED_MODEL"),
				Resource:   util.GetEnv("NEO4J_EMBED_RESOURCE"),
				Deployment: util.GetEnv("NEO4J_EMBED_DEPLOYMENT"),
			},
			Dimension: opts.EmbeddingDimension,
		})
	case "postgres":
		return storepgx.New(ctx, util.GetEnv("DATABASE_URL"), client, opts.EmbeddingDimension)
	default:
		return nil, fmt.Errorf("unknown GRAPH_STORE %q", backend)
	}
}
