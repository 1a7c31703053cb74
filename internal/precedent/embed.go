package precedent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"time"
	"unicode"

	"github.com/go-resty/resty/v2"
)

const DefaultDimension = 384

// HashEmbedder is an offline embedder based on feature hashing of word tokens.
// It needs no network access and is deterministic.
type HashEmbedder struct {
	Dim int
}

func NewHashEmbedder(dim int) *HashEmbedder {
	if dim <= 0 {
		dim = DefaultDimension
	}
	return &HashEmbedder{Dim: dim}
}

func (h *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	v := make([]float32, h.Dim)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for _, w := range words {
		f := fnv.New32a()
		_, _ = f.Write([]byte(w))
		sum := f.Sum32()
		idx := int(sum % uint32(h.Dim))
		// the top bit picks the sign so collisions tend to cancel
		if sum&(1<<31) != 0 {
			v[idx] -= 1
		} else {
			v[idx] += 1
		}
	}
	return normalize(v), nil
}

const DefaultHuggingFaceEndpoint = "https://router.huggingface.co/hf-inference/models/sentence-transformers/all-MiniLM-L6-v2/pipeline/feature-extraction"

// HuggingFaceEmbedder calls a feature-extraction inference endpoint
type HuggingFaceEmbedder struct {
	client   *resty.Client
	endpoint string
}

func NewHuggingFaceEmbedder(endpoint, apiKey string, timeout time.Duration) *HuggingFaceEmbedder {
	if endpoint == "" {
		endpoint = DefaultHuggingFaceEndpoint
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second)
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}
	client.AddRetryCondition(func(r *resty.Response, err error) bool {
		if err != nil {
			return true
		}
		return r != nil && (r.StatusCode() >= 500 || r.StatusCode() == 429)
	})
	return &HuggingFaceEmbedder{client: client, endpoint: endpoint}
}

// Embed returns the sentence embedding. Token-level responses are mean pooled.
func (e *HuggingFaceEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.R().
		SetContext(ctx).
		SetBody(map[string]any{"inputs": text}).
		Post(e.endpoint)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("embedding service returned %d: %s", resp.StatusCode(), resp.String())
	}
	return decodeEmbedding(resp.Body())
}

func decodeEmbedding(body []byte) ([]float32, error) {
	var flat []float32
	if err := json.Unmarshal(body, &flat); err == nil {
		if len(flat) == 0 {
			return nil, errors.New("empty embedding")
		}
		return flat, nil
	}

	var tokens [][]float32
	if err := json.Unmarshal(body, &tokens); err != nil {
		return nil, fmt.Errorf("unexpected embedding payload: %w", err)
	}
	return meanPool(tokens)
}

func meanPool(tokens [][]float32) ([]float32, error) {
	if len(tokens) == 0 || len(tokens[0]) == 0 {
		return nil, errors.New("empty embedding")
	}
	dim := len(tokens[0])
	out := make([]float32, dim)
	for _, tok := range tokens {
		if len(tok) != dim {
			return nil, ErrDimensionMismatch
		}
		for i, x := range tok {
			out[i] += x
		}
	}
	for i := range out {
		out[i] /= float32(len(tokens))
	}
	return out, nil
}
