package config

import (
	"fmt"
	"strings"

	"graphling/internal/util"
)

// Defaults for the property-graph pipeline.
const (
	DefaultChunkSize          = 500
	DefaultOverlap            = 100
	DefaultMaxTripletsPer     = 10
	DefaultMaxKeywords        = 10
	DefaultMaxTriplets        = 30
	DefaultMaxRelatedChunks   = 3
	DefaultMaxChunks          = 5
	DefaultEntityTypes        = "BLOG_POST,BOOK,MOVIE,PRESENTATION,EVENT,ORGANIZATION,PERSON,PLACE,PRODUCT,REVIEW,ACTION"
	DefaultRelationTypes      = "INTRODUCED,USED_FOR,WRITTEN_IN,PART_OF,LOCATED_IN,GIVEN,LIVES_IN,TRAVELED_TO"
	DefaultTokenEncoder       = "o200k_base"
	DefaultEmbeddingDimension = 1536
)

// EntitySearchMode selects how entity text is searched during retrieval.
type EntitySearchMode int

const (
	// SearchFullText queries the full-text index over entity text.
	SearchFullText EntitySearchMode = iota
	// SearchVector queries the entity embedding index.
	SearchVector
)

// ParseEntitySearchMode parses "FULL_TEXT" or "VECTOR" (case-insensitive).
func ParseEntitySearchMode(s string) (EntitySearchMode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "FULL_TEXT":
		return SearchFullText, nil
	case "VECTOR":
		return SearchVector, nil
	default:
		return SearchFullText, fmt.Errorf("unknown entity search mode %q", s)
	}
}

func (m EntitySearchMode) String() string {
	if m == SearchVector {
		return "VECTOR"
	}
	return "FULL_TEXT"
}

// Options is the full configuration of the pipeline, constructed once at
// startup and passed by reference into component constructors. Components
// never re-read the environment mid-pipeline.
type Options struct {
	// Chunking
	UseTokenSplitter bool
	ChunkSize        int
	Overlap          int
	TokenEncoder     string

	// Extraction
	EntityTypes         []string
	RelationTypes       []string
	ExtractionPreamble  string
	MaxTripletsPerChunk int
	MaxRetries          int
	ParallelFiles       int

	// Chunk nodes with zero extracted triplets are normally left out of
	// the graph; EmitEmptyChunks keeps them as context-only nodes.
	EmitEmptyChunks bool

	// Retrieval
	IncludeEntityTextSearch  bool
	UseKeywords              bool
	MaxKeywords              int
	EntitySearch             EntitySearchMode
	IncludeTriplets          bool
	MaxTriplets              int
	IncludeRelatedChunks     bool
	MaxRelatedChunks         int
	IncludeChunkVectorSearch bool
	MaxChunks                int
	RewriteOnEmpty           bool

	// Embedding index
	EmbeddingDimension int
}

// FromEnv builds Options from the environment, applying defaults for
// anything unset. Returns an error only for values that parse but are
// semantically invalid.
func FromEnv() (*Options, error) {
	mode, err := ParseEntitySearchMode(util.GetEnvString("ENTITY_SEARCH_MODE", "FULL_TEXT"))
	if err != nil {
		return nil, err
	}

	o := &Options{
		UseTokenSplitter: util.GetEnvBool("USE_TOKEN_SPLITTER", true),
		ChunkSize:        util.GetEnvInt("CHUNK_SIZE", DefaultChunkSize),
		Overlap:          util.GetEnvInt("CHUNK_OVERLAP", DefaultOverlap),
		TokenEncoder:     util.GetEnvString("TOKEN_ENCODER", DefaultTokenEncoder),

		EntityTypes:         splitList(util.GetEnvString("ENTITY_TYPES", DefaultEntityTypes)),
		RelationTypes:       splitList(util.GetEnvString("RELATION_TYPES", DefaultRelationTypes)),
		ExtractionPreamble:  util.GetEnv("EXTRACTION_PREAMBLE"),
		MaxTripletsPerChunk: util.GetEnvInt("MAX_TRIPLETS_PER_CHUNK", DefaultMaxTripletsPer),
		MaxRetries:          util.GetEnvInt("MAX_RETRIES", 3),
		ParallelFiles:       util.GetEnvInt("PARALLEL_FILES", 2),
		EmitEmptyChunks:     util.GetEnvBool("EMIT_EMPTY_CHUNKS", false),

		IncludeEntityTextSearch:  util.GetEnvBool("INCLUDE_ENTITY_TEXT_SEARCH", true),
		UseKeywords:              util.GetEnvBool("USE_KEYWORDS", true),
		MaxKeywords:              util.GetEnvInt("MAX_KEYWORDS", DefaultMaxKeywords),
		EntitySearch:             mode,
		IncludeTriplets:          util.GetEnvBool("INCLUDE_TRIPLETS", true),
		MaxTriplets:              util.GetEnvInt("MAX_TRIPLETS", DefaultMaxTriplets),
		IncludeRelatedChunks:     util.GetEnvBool("INCLUDE_RELATED_CHUNKS", true),
		MaxRelatedChunks:         util.GetEnvInt("MAX_RELATED_CHUNKS", DefaultMaxRelatedChunks),
		IncludeChunkVectorSearch: util.GetEnvBool("INCLUDE_CHUNK_VECTOR_SEARCH", true),
		MaxChunks:                util.GetEnvInt("MAX_CHUNKS", DefaultMaxChunks),
		RewriteOnEmpty:           util.GetEnvBool("REWRITE_ON_EMPTY", true),

		EmbeddingDimension: util.GetEnvInt("AI_EMBED_DIM", DefaultEmbeddingDimension),
	}

	if o.ChunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", o.ChunkSize)
	}
	if o.Overlap < 0 || o.Overlap >= o.ChunkSize {
		return nil, fmt.Errorf("overlap must be in [0, chunk size), got %d", o.Overlap)
	}

	return o, nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
