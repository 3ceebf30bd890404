package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/voltlab/askds/internal/domain"
)

// Client talks to a Supabase project over its REST API. Similarity
// search goes through the match_documents RPC; ingestion inserts rows
// into the documents table. It implements domain.Retriever and
// domain.DocumentStore.
type Client struct {
	baseURL    string
	serviceKey string
	table      string
	client     *http.Client
}

// Config configures the Supabase client.
type Config struct {
	URL        string
	ServiceKey string
	Table      string
	Timeout    time.Duration
}

// NewClient creates a new Supabase client
func NewClient(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, &domain.ConfigurationError{Key: "supabase.url"}
	}
	if cfg.ServiceKey == "" {
		return nil, &domain.ConfigurationError{Key: "supabase.service_key"}
	}
	if cfg.Table == "" {
		cfg.Table = "documents"
	}
	t := cfg.Timeout
	if t == 0 {
		t = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.URL, "/"),
		serviceKey: cfg.ServiceKey,
		table:      cfg.Table,
		client:     &http.Client{Timeout: t},
	}, nil
}

type matchRow struct {
	Content  string         `json:"content"`
	Score    float64        `json:"similarity"`
	Metadata map[string]any `json:"metadata"`
}

func (r matchRow) sourceID() string {
	if r.Metadata == nil {
		return ""
	}
	if name, ok := r.Metadata["fileName"].(string); ok {
		return name
	}
	return ""
}

// Search runs the match_documents RPC and returns rows ordered by
// descending score, capped at q.Limit. The threshold is passed through
// to the RPC and re-checked on the returned scores; retrieval failures
// are not retried here.
func (c *Client) Search(ctx context.Context, q domain.SearchQuery) ([]domain.RetrievedDocument, error) {
	body := map[string]any{
		"query_embedding": q.Vector,
		"match_threshold": q.Threshold,
		"match_count":     q.Limit,
	}
	if len(q.Sources) > 0 {
		body["file_paths"] = q.Sources
	}

	payload, err := c.post(ctx, c.baseURL+"/rest/v1/rpc/match_documents", body, q.Bearer)
	if err != nil {
		return nil, &domain.RetrievalError{Err: err}
	}

	var rows []matchRow
	if err := json.Unmarshal(payload, &rows); err != nil {
		return nil, &domain.RetrievalError{Err: err}
	}

	docs := make([]domain.RetrievedDocument, 0, len(rows))
	for _, row := range rows {
		if row.Score < q.Threshold {
			continue
		}
		docs = append(docs, domain.RetrievedDocument{
			Content:  row.Content,
			SourceID: row.sourceID(),
			Score:    row.Score,
		})
	}
	sort.SliceStable(docs, func(i, j int) bool { return docs[i].Score > docs[j].Score })
	if q.Limit > 0 && len(docs) > q.Limit {
		docs = docs[:q.Limit]
	}
	return docs, nil
}

// Insert stores embedded chunk rows in the documents table.
func (c *Client) Insert(ctx context.Context, rows []domain.DocumentRow) error {
	if len(rows) == 0 {
		return nil
	}
	if _, err := c.post(ctx, c.baseURL+"/rest/v1/"+c.table, rows, ""); err != nil {
		return &domain.RetrievalError{Err: err}
	}
	return nil
}

// post sends an authenticated PostgREST request. A caller bearer
// token scopes row access; without one the service key is used.
func (c *Client) post(ctx context.Context, url string, body any, bearer string) ([]byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.serviceKey)
	if bearer == "" {
		bearer = c.serviceKey
	}
	req.Header.Set("Authorization", "Bearer "+bearer)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}
	return payload, nil
}
