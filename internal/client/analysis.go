// Client for the external resistance-analysis backend.
//
// Settings (config.AnalysisAPIConfig):
//   - ANALYSIS_API_URL: backend base URL (default http://localhost:8000)
//   - ANALYSIS_API_TIMEOUT: per-request timeout (default 120s, BLAST is slow)
//
// Endpoints used:
//   - POST /api/analyze            multipart file + threshold
//   - POST /api/blast              multipart file + evalue + max_hits
//   - GET  /api/reference-genes
//   - GET  /api/history
//   - GET  /api/results/{id}
//
// The caller's bearer token is forwarded unchanged.

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jonathanw33/mrsa-kds/internal/config"
	"golang.org/x/oauth2"
)

const defaultAnalysisURL = "http://localhost:8000"

// AnalysisClient - HTTP client for the analysis backend
type AnalysisClient struct {
	baseURL    string
	httpClient *http.Client
}

// APIError - non-2xx answer from the analysis backend
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("analysis api returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("analysis api returned status %d: %s", e.StatusCode, e.Detail)
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

func NewAnalysisClient(cfg config.AnalysisAPIConfig) *AnalysisClient {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultAnalysisURL
	}

	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil || timeout <= 0 {
		timeout = 120 * time.Second
	}

	return &AnalysisClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Analyze uploads a FASTA file for resistance analysis and returns the raw
// result object.
func (c *AnalysisClient) Analyze(ctx context.Context, token, filename string, content []byte, threshold float64) (json.RawMessage, error) {
	fields := map[string]string{
		"threshold": strconv.FormatFloat(threshold, 'f', -1, 64),
	}
	return c.postFile(ctx, token, "/api/analyze", filename, content, fields)
}

// RunBlast uploads a FASTA file for a plain BLAST search.
func (c *AnalysisClient) RunBlast(ctx context.Context, token, filename string, content []byte, evalue float64, maxHits int) (json.RawMessage, error) {
	fields := map[string]string{
		"evalue":   strconv.FormatFloat(evalue, 'g', -1, 64),
		"max_hits": strconv.Itoa(maxHits),
	}
	return c.postFile(ctx, token, "/api/blast", filename, content, fields)
}

func (c *AnalysisClient) ReferenceGenes(ctx context.Context, token string) (json.RawMessage, error) {
	return c.get(ctx, token, "/api/reference-genes")
}

// History returns the server-side analysis history as raw records.
func (c *AnalysisClient) History(ctx context.Context, token string) ([]json.RawMessage, error) {
	body, err := c.get(ctx, token, "/api/history")
	if err != nil {
		return nil, err
	}
	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("failed to parse history: %w", err)
	}
	return items, nil
}

func (c *AnalysisClient) Result(ctx context.Context, token, id string) (json.RawMessage, error) {
	return c.get(ctx, token, "/api/results/"+url.PathEscape(id))
}

func (c *AnalysisClient) postFile(ctx context.Context, token, path, filename string, content []byte, fields map[string]string) (json.RawMessage, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create multipart file: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return nil, fmt.Errorf("failed to write multipart file: %w", err)
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("failed to write field %s: %w", k, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return c.do(ctx, token, req)
}

func (c *AnalysisClient) get(ctx context.Context, token, path string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(ctx, token, req)
}

func (c *AnalysisClient) do(ctx context.Context, token string, req *http.Request) (json.RawMessage, error) {
	req.Header.Set("Accept", "application/json")

	resp, err := c.clientFor(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to analysis api: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Detail: errorDetail(body)}
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("failed to parse response: invalid JSON")
	}
	return json.RawMessage(body), nil
}

// clientFor wraps the base client so every request carries the bearer token.
func (c *AnalysisClient) clientFor(ctx context.Context, token string) *http.Client {
	if token == "" {
		return c.httpClient
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	cl := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}))
	cl.Timeout = c.httpClient.Timeout
	return cl
}

// errorDetail extracts FastAPI's "detail" field, falling back to the body.
func errorDetail(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && len(payload.Detail) > 0 {
		var s string
		if err := json.Unmarshal(payload.Detail, &s); err == nil {
			return s
		}
		return string(payload.Detail)
	}
	text := strings.TrimSpace(string(body))
	if len(text) > 512 {
		text = text[:512]
	}
	return text
}
