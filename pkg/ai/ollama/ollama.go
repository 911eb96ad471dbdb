package ollama

import (
	"net/http"
	"net/url"
	"sync"

	"github.com/ollama/ollama/api"
	"golang.org/x/sync/semaphore"

	"graphling/pkg/ai"
)

// Client implements ai.Client against a locally-hosted Ollama server.
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

	API *api.Client
}

// Params configures a Client. BaseURL defaults to the local Ollama
// endpoint when empty; ApiKey is sent as a bearer token when set.
type Params struct {
	ChatModel       string
	ExtractionModel string
	EmbeddingModel  string

	BaseURL string
	ApiKey  string

	// EmbeddingDimension is the vector size embeddings are truncated or
	// padded to. Zero means 1536.
	EmbeddingDimension int

	MaxConcurrentRequests int64
}

type headerTransport struct {
	headers map[string]string
	rt      http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// clone so original request isn't modified
	r := req.Clone(req.Context())
	for k, v := range t.headers {
		if r.Header.Get(k) == "" {
			r.Header.Set(k, v)
		}
	}
	return t.rt.RoundTrip(r)
}

// New creates an Ollama-backed ai.Client connecting to the server at
// BaseURL (or the default local endpoint if empty).
func New(params Params) (*Client, error) {
	var (
		u   *url.URL
		err error
	)
	if params.BaseURL != "" {
		u, err = url.Parse(params.BaseURL)
		if err != nil {
			return nil, err
		}
	} else {
		u, err = url.Parse("http://127.0.0.1:11434")
		if err != nil {
			return nil, err
		}
	}

	httpClient := &http.Client{
		Transport: &headerTransport{
			headers: map[string]string{
				"Authorization": "Bearer " + params.ApiKey,
			},
			rt: http.DefaultTransport,
		},
	}

	maxConcurrent := params.MaxConcurrentRequests
	if maxConcurrent <= 0 {
		maxConcurrent = 4
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

		API: api.NewClient(u, httpClient),
	}, nil
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
