package gemini

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/voltlab/askds/internal/domain"
)

// Client calls the Google generative language API for embeddings and
// text generation. It implements domain.Embedder and domain.Generator.
type Client struct {
	baseURL         string
	apiKey          string
	embeddingModel  string
	generativeModel string
	client          *http.Client
}

// Config configures the Gemini client.
type Config struct {
	BaseURL         string
	APIKey          string
	EmbeddingModel  string
	GenerativeModel string
	Timeout         time.Duration
}

// NewClient creates a new Gemini client
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, &domain.ConfigurationError{Key: "google.api_key"}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = "gemini-embedding-001"
	}
	if cfg.GenerativeModel == "" {
		cfg.GenerativeModel = "gemini-pro-latest"
	}
	t := cfg.Timeout
	if t == 0 {
		t = 120 * time.Second
	}
	return &Client{
		baseURL:         strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:          cfg.APIKey,
		embeddingModel:  cfg.EmbeddingModel,
		generativeModel: cfg.GenerativeModel,
		client:          &http.Client{Timeout: t},
	}, nil
}

// content mirrors the API's {parts:[{text}]} shape
type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type candidateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

func (r *candidateResponse) text() string {
	var b strings.Builder
	for _, cand := range r.Candidates {
		for _, p := range cand.Content.Parts {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

// Embed returns the embedding vector for the given text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	body := map[string]any{
		"model":   "models/" + c.embeddingModel,
		"content": content{Parts: []part{{Text: text}}},
	}
	url := fmt.Sprintf("%s/models/%s:embedContent?key=%s", c.baseURL, c.embeddingModel, c.apiKey)

	payload, err := c.post(ctx, url, body)
	if err != nil {
		return nil, &domain.EmbeddingError{Err: err}
	}

	var out struct {
		Embedding struct {
			Values []float32 `json:"values"`
		} `json:"embedding"`
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, &domain.EmbeddingError{Err: err}
	}
	if len(out.Embedding.Values) == 0 {
		return nil, &domain.EmbeddingError{Err: errors.New("no embedding returned")}
	}
	return out.Embedding.Values, nil
}

// Generate issues a non-streaming generation call and returns the
// full response text.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	body := map[string]any{
		"contents": []content{{Parts: []part{{Text: prompt}}}},
	}
	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.generativeModel, c.apiKey)

	payload, err := c.post(ctx, url, body)
	if err != nil {
		return "", &domain.GenerationError{Err: err}
	}

	var out candidateResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return "", &domain.GenerationError{Err: err}
	}
	text := out.text()
	if text == "" {
		return "", &domain.GenerationError{Err: errors.New("no candidates returned")}
	}
	return text, nil
}

// GenerateStream issues a streaming generation call. Decoded text
// increments are delivered on the returned channel in arrival order;
// a mid-stream failure is delivered as the final chunk's Err. The
// returned error covers failures before the stream opens.
func (c *Client) GenerateStream(ctx context.Context, prompt string) (<-chan domain.GenerationChunk, error) {
	body := map[string]any{
		"contents": []content{{Parts: []part{{Text: prompt}}}},
	}
	url := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse&key=%s", c.baseURL, c.generativeModel, c.apiKey)

	data, err := json.Marshal(body)
	if err != nil {
		return nil, &domain.GenerationError{Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, &domain.GenerationError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &domain.GenerationError{Err: err}
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		errText, _ := io.ReadAll(resp.Body)
		return nil, &domain.GenerationError{
			Err: fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(errText))),
		}
	}

	ch := make(chan domain.GenerationChunk)
	go func() {
		defer close(ch)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			frame := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if frame == "" || frame == "[DONE]" {
				continue
			}
			var out candidateResponse
			if err := json.Unmarshal([]byte(frame), &out); err != nil {
				// Skip undecodable frames rather than abort the stream
				continue
			}
			if text := out.text(); text != "" {
				select {
				case ch <- domain.GenerationChunk{Text: text}:
				case <-ctx.Done():
					return
				}
			}
		}
		if err := scanner.Err(); err != nil {
			select {
			case ch <- domain.GenerationChunk{Err: &domain.GenerationError{Err: err}}:
			case <-ctx.Done():
			}
		}
	}()
	return ch, nil
}

func (c *Client) post(ctx context.Context, url string, body any) ([]byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

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
