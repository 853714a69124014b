package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Result is one retrieved document from the search provider.
type Result struct {
	Title      string `json:"title"`
	URL        string `json:"url"`
	Content    string `json:"content"`
	RawContent string `json:"raw_content,omitempty"`
}

// ResultSet groups the hits for one query, in provider order.
type ResultSet struct {
	Query   string
	Results []Result
}

// Provider executes a single web search. Tavily is the production
// implementation; tests substitute scripted ones.
type Provider interface {
	Search(ctx context.Context, query string, maxResults int, topic string, includeRaw bool) ([]Result, error)
}

// Tavily calls the Tavily search API.
type Tavily struct {
	APIKey  string
	BaseURL string
	Client  *http.Client
}

// Ensure Tavily implements Provider
var _ Provider = &Tavily{}

func NewTavily(apiKey string) *Tavily {
	return &Tavily{
		APIKey:  apiKey,
		BaseURL: "https://api.tavily.com", // Default
		Client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// --- Request/Response structs (Internal to this package) ---

type tavilyRequest struct {
	APIKey            string `json:"api_key"`
	Query             string `json:"query"`
	MaxResults        int    `json:"max_results,omitempty"`
	Topic             string `json:"topic,omitempty"`
	IncludeRawContent bool   `json:"include_raw_content,omitempty"`
}

type tavilyResponse struct {
	Results []Result `json:"results"`
}

// Search posts a query to Tavily. Rate-limit responses are retried with a
// doubling backoff capped at 30s; every other non-200 status is an error.
func (t *Tavily) Search(ctx context.Context, query string, maxResults int, topic string, includeRaw bool) ([]Result, error) {
	if strings.TrimSpace(t.APIKey) == "" {
		return nil, errors.New("tavily: api_key is missing")
	}

	payload, err := json.Marshal(tavilyRequest{
		APIKey:            t.APIKey,
		Query:             query,
		MaxResults:        maxResults,
		Topic:             topic,
		IncludeRawContent: includeRaw,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var resp *http.Response
	delay := 1 * time.Second
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.BaseURL+"/search", bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err = t.Client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("tavily request failed: %w", err)
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			break
		}
		resp.Body.Close()

		// Back off and retry on 429, doubling the delay each time up to 30s.
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > 30*time.Second {
			delay = 30 * time.Second
		}
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tavily error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	var tavilyResp tavilyResponse
	if err := json.Unmarshal(bodyBytes, &tavilyResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	return tavilyResp.Results, nil
}
