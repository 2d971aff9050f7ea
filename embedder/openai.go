package embedder

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/shelfann/shelfann/distance"
)

// DefaultModel is the default embedding model.
const DefaultModel = "voyage-4-large"

// Options configures the OpenAI-compatible client.
type Options struct {
	// Model is the embedding model name.
	Model string

	// BaseURL overrides the API endpoint. Voyage and other providers
	// expose OpenAI-compatible embedding endpoints.
	BaseURL string

	// BatchSize is the maximum number of texts per API call.
	BatchSize int

	// MaxRetries bounds retry attempts per batch. Backoff doubles per
	// attempt, capped at one minute.
	MaxRetries int

	// RequestsPerSecond throttles API calls; zero disables throttling.
	RequestsPerSecond float64
}

// DefaultOptions are conservative defaults for hosted embedding APIs.
var DefaultOptions = Options{
	Model:      DefaultModel,
	BatchSize:  64,
	MaxRetries: 7,
}

// OpenAIEmbedder calls an OpenAI-compatible embeddings endpoint.
type OpenAIEmbedder struct {
	client  *openai.Client
	opts    Options
	limiter *rate.Limiter
}

// NewOpenAI creates an embedder for an OpenAI-compatible API.
func NewOpenAI(apiKey string, optFns ...func(*Options)) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		return nil, errors.New("embedder: API key not provided")
	}

	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultOptions.BatchSize
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = DefaultOptions.MaxRetries
	}

	cfg := openai.DefaultConfig(apiKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	return &OpenAIEmbedder{
		client:  openai.NewClientWithConfig(cfg),
		opts:    opts,
		limiter: limiter,
	}, nil
}

// ModelInfo returns the provider-qualified model name.
func (e *OpenAIEmbedder) ModelInfo() string {
	return "openai-compatible/" + e.opts.Model
}

// Embed generates L2-normalized embeddings for texts, batching requests
// and retrying transient failures with exponential backoff.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.opts.BatchSize {
		end := start + e.opts.BatchSize
		if end > len(texts) {
			end = len(texts)
		}

		vectors, err := e.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embedder: batch %d-%d: %w", start, end, err)
		}
		out = append(out, vectors...)
	}

	return out, nil
}

func (e *OpenAIEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error
	for attempt := 0; attempt < e.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepBackoff(ctx, attempt); err != nil {
				return nil, err
			}
		}
		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Model: openai.EmbeddingModel(e.opts.Model),
			Input: texts,
		})
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}

		vectors, err := extractVectors(resp, len(texts))
		if err != nil {
			lastErr = err
			continue
		}
		return vectors, nil
	}

	return nil, fmt.Errorf("giving up after %d attempts: %w", e.opts.MaxRetries, lastErr)
}

// extractVectors validates the response shape: one vector per input, in
// input order, every vector non-empty and normalized.
func extractVectors(resp openai.EmbeddingResponse, want int) ([][]float32, error) {
	if len(resp.Data) != want {
		return nil, fmt.Errorf("invalid embedding response shape: %d vectors for %d inputs", len(resp.Data), want)
	}

	data := make([]openai.Embedding, len(resp.Data))
	copy(data, resp.Data)
	sort.SliceStable(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	out := make([][]float32, len(data))
	for i, item := range data {
		if len(item.Embedding) == 0 {
			return nil, fmt.Errorf("empty embedding at index %d", i)
		}
		vec := make([]float32, len(item.Embedding))
		for j, x := range item.Embedding {
			vec[j] = float32(x)
		}
		// Degenerate vectors pass through unnormalized; downstream
		// normalization drops them properly.
		distance.NormalizeL2InPlace(vec)
		out[i] = vec
	}

	return out, nil
}

// sleepBackoff waits 2^attempt seconds, capped at one minute.
func sleepBackoff(ctx context.Context, attempt int) error {
	d := time.Duration(1<<uint(attempt)) * time.Second
	if d > time.Minute {
		d = time.Minute
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
