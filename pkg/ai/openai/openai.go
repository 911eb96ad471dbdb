package openai

import (
	"sync"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/sync/semaphore"

	"graphling/pkg/ai"
)

// Client implements ai.Client against OpenAI-compatible endpoints. Chat and
// embedding requests may target different endpoints and credentials.
//
// A Client should be created using New.
type Client struct {
	chatModel       string
	extractionModel string
	embeddingModel  string
	dimension       int

	reqLock *semaphore.Weighted

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	ChatClient      *openai.Client
	EmbeddingClient *openai.Client
}

// Params configures a Client.
//
// ChatModel is used for plain and streaming completions, ExtractionModel
// for schema-constrained output, EmbeddingModel for embeddings. The URL
// fields may be left empty to use the default OpenAI endpoint.
type Params struct {
	ChatModel       string
	ExtractionModel string
	EmbeddingModel  string

	ChatURL      string
	ChatKey      string
	EmbeddingURL string
	EmbeddingKey string

	// EmbeddingDimension is the vector size embeddings are truncated or
	// padded to. Zero means 1536.
	EmbeddingDimension int

	MaxConcurrentRequests int64
}

// New creates an OpenAI-backed ai.Client.
//
// Example:
//
//	client := openai.New(openai.Params{
//		ChatModel:       "gpt-4o-mini",
//		ExtractionModel: "gpt-4o-mini",
//		EmbeddingModel:  "text-embedding-3-small",
//		ChatKey:         os.Getenv("OPENAI_API_KEY"),
//		EmbeddingKey:    os.Getenv("OPENAI_API_KEY"),
//	})
func New(params Params) *Client {
	maxConcurrent := params.MaxConcurrentRequests
	if maxConcurrent <= 0 {
		maxConcurrent = 8
	}
	dimension := params.EmbeddingDimension
	if dimension <= 0 {
		dimension = defaultDimensions
	}

	return &Client{
		chatModel:       params.ChatModel,
		extractionModel: params.ExtractionModel,
		embeddingModel:  params.EmbeddingModel,
		dimension:       dimension,

		reqLock: semaphore.NewWeighted(maxConcurrent),

		ChatClient:      newAPIClient(params.ChatURL, params.ChatKey),
		EmbeddingClient: newAPIClient(params.EmbeddingURL, params.EmbeddingKey),
	}
}

func newAPIClient(baseURL string, apiKey string) *openai.Client {
	if apiKey == "" {
		return nil
	}
	options := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if baseURL != "" {
		options = append(options, option.WithBaseURL(baseURL))
	}

	client := openai.NewClient(options...)
	return &client
}

func (c *Client) modifyMetrics(delta ai.ModelMetrics) {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()

	c.metrics.InputTokens += delta.InputTokens
	c.metrics.OutputTokens += delta.OutputTokens
	c.metrics.TotalTokens += delta.TotalTokens
	c.metrics.DurationMs += delta.DurationMs
}

// GetMetrics returns the accumulated usage metrics.
func (c *Client) GetMetrics() ai.ModelMetrics {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	return c.metrics
}

// ResetMetrics zeroes the accumulated usage metrics.
func (c *Client) ResetMetrics() {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	c.metrics = ai.ModelMetrics{}
}
