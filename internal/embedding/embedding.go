// Package embedding wraps an OpenAI-compatible embeddings endpoint used by
// the semantic candidate source (C4) to turn free-text queries and POI
// descriptions into vectors comparable in the pgvector index.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Kind distinguishes the two sides of an asymmetric embedding model: the
// short user query and the longer POI passage it is matched against.
type Kind int

const (
	KindQuery Kind = iota
	KindPassage
)

var (
	// ErrEmptyInput is returned when Embed is called with an empty string.
	ErrEmptyInput = errors.New("embedding: empty input")
	// ErrUpstream wraps a non-transient failure from the embeddings backend.
	ErrUpstream = errors.New("embedding: upstream failure")
)

// Client embeds text via an OpenAI-compatible embeddings API.
type Client struct {
	api        *openai.Client
	model      string
	dimensions int
	asymmetric bool
	maxRetries int
}

// New builds a Client. baseURL/apiKey point at any OpenAI-compatible
// embeddings deployment (including self-hosted ones); model names the
// embedding model; asymmetric turns on query:/passage: prefixing.
func New(baseURL, apiKey, model string, dimensions int, asymmetric bool) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Client{
		api:        openai.NewClientWithConfig(cfg),
		model:      model,
		dimensions: dimensions,
		asymmetric: asymmetric,
		maxRetries: 3,
	}
}

// Embed returns a unit-norm embedding vector for text, prefixed with
// "query: " or "passage: " when the client is configured for an asymmetric
// model (spec.md §4.15). Retries transient upstream errors with exponential
// backoff, up to three attempts total, per spec.md §7.
func (c *Client) Embed(ctx context.Context, text string, kind Kind) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyInput
	}

	input := text
	if c.asymmetric {
		if kind == KindQuery {
			input = "query: " + text
		} else {
			input = "passage: " + text
		}
	}

	var lastErr error
	backoff := 200 * time.Millisecond
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
			Input: []string{input},
			Model: openai.EmbeddingModel(c.model),
		})
		if err != nil {
			lastErr = err
			if isTransient(err) {
				continue
			}
			return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
		}
		if len(resp.Data) == 0 {
			return nil, fmt.Errorf("%w: empty response", ErrUpstream)
		}

		return normalize(resp.Data[0].Embedding), nil
	}
	return nil, fmt.Errorf("%w: exhausted retries: %v", ErrUpstream, lastErr)
}

func isTransient(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

// normalize scales v to unit L2 norm, matching the cosine-distance index
// convention used by the vector store (pgvector's `<=>` operator).
func normalize(v []float32) []float32 {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if sumSq == 0 {
		return v
	}
	norm := math.Sqrt(sumSq)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}
