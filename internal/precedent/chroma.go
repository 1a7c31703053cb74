package precedent

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

const DefaultCollection = "historical_clauses"

// ChromaStore talks to a Chroma server over its v1 REST API.
// The collection is looked up (or created with cosine space) on first use.
type ChromaStore struct {
	client     *resty.Client
	collection string

	mu           sync.Mutex
	collectionID string
}

func NewChromaStore(baseURL, collection, apiKey string, timeout time.Duration) *ChromaStore {
	if collection == "" {
		collection = DefaultCollection
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/") + "/api/v1").
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}
	return &ChromaStore{client: client, collection: collection}
}

type chromaUpsert struct {
	IDs        []string         `json:"ids"`
	Documents  []string         `json:"documents"`
	Metadatas  []map[string]any `json:"metadatas"`
	Embeddings [][]float32      `json:"embeddings"`
}

type chromaQueryResponse struct {
	IDs       [][]string         `json:"ids"`
	Distances [][]float64        `json:"distances"`
	Metadatas [][]map[string]any `json:"metadatas"`
	Documents [][]string         `json:"documents"`
}

// Heartbeat checks the server is reachable
func (c *ChromaStore) Heartbeat(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/heartbeat", nil, nil)
}

func (c *ChromaStore) Add(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	id, err := c.ensureCollection(ctx)
	if err != nil {
		return err
	}
	var payload chromaUpsert
	for _, r := range records {
		payload.IDs = append(payload.IDs, r.ID)
		payload.Documents = append(payload.Documents, r.Text)
		payload.Metadatas = append(payload.Metadatas, nonNilMeta(r.Metadata))
		payload.Embeddings = append(payload.Embeddings, r.Embedding)
	}
	return c.do(ctx, http.MethodPost, "/collections/"+url.PathEscape(id)+"/upsert", payload, nil)
}

// Query returns the nearest records. Chroma reports cosine distance, so the score is 1 - distance.
func (c *ChromaStore) Query(ctx context.Context, vector []float32, n int) ([]Match, error) {
	id, err := c.ensureCollection(ctx)
	if err != nil {
		return nil, err
	}
	body := map[string]any{
		"query_embeddings": [][]float32{vector},
		"n_results":        n,
		"include":          []string{"documents", "metadatas", "distances"},
	}
	var resp chromaQueryResponse
	if err := c.do(ctx, http.MethodPost, "/collections/"+url.PathEscape(id)+"/query", body, &resp); err != nil {
		return nil, err
	}
	if len(resp.IDs) == 0 {
		return nil, nil
	}

	matches := make([]Match, 0, len(resp.IDs[0]))
	for i, hid := range resp.IDs[0] {
		m := Match{ID: hid}
		if len(resp.Documents) > 0 && i < len(resp.Documents[0]) {
			m.Text = resp.Documents[0][i]
		}
		if len(resp.Metadatas) > 0 && i < len(resp.Metadatas[0]) {
			m.Metadata = resp.Metadatas[0][i]
		}
		if len(resp.Distances) > 0 && i < len(resp.Distances[0]) {
			m.Score = 1 - resp.Distances[0][i]
		}
		matches = append(matches, m)
	}
	return topN(matches, n), nil
}

func (c *ChromaStore) Count(ctx context.Context) (int, error) {
	id, err := c.ensureCollection(ctx)
	if err != nil {
		return 0, err
	}
	var n int
	if err := c.do(ctx, http.MethodGet, "/collections/"+url.PathEscape(id)+"/count", nil, &n); err != nil {
		return 0, err
	}
	return n, nil
}

func (c *ChromaStore) Close() error {
	return nil
}

func (c *ChromaStore) ensureCollection(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.collectionID != "" {
		return c.collectionID, nil
	}

	var col struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	payload := map[string]any{
		"name":          c.collection,
		"metadata":      map[string]any{"hnsw:space": "cosine"},
		"get_or_create": true,
	}
	if err := c.do(ctx, http.MethodPost, "/collections", payload, &col); err != nil {
		return "", fmt.Errorf("failed to open collection %s: %w", c.collection, err)
	}
	if col.ID == "" {
		return "", fmt.Errorf("collection %s has no id", c.collection)
	}
	c.collectionID = col.ID
	return col.ID, nil
}

func (c *ChromaStore) do(ctx context.Context, method, path string, body, out any) error {
	req := c.client.R().SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}
	if out != nil {
		req.SetResult(out)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("chroma %s %s: %w", method, path, err)
	}
	if resp.IsError() {
		return fmt.Errorf("chroma %s %s returned %d: %s", method, path, resp.StatusCode(), resp.String())
	}
	return nil
}
