package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jonathanw33/mrsa-kds/internal/client"
	"github.com/jonathanw33/mrsa-kds/internal/config"
	"github.com/jonathanw33/mrsa-kds/internal/metrics"
	"github.com/jonathanw33/mrsa-kds/internal/model"
	"github.com/jonathanw33/mrsa-kds/internal/resultstore"
	"github.com/jonathanw33/mrsa-kds/internal/service"
	"github.com/jonathanw33/mrsa-kds/internal/storage"
)

type fakeVerifier struct {
	disabled bool
}

func (f fakeVerifier) Disabled() bool { return f.disabled }

func (f fakeVerifier) ParseAccessToken(ctx context.Context, token string) (*model.AuthUser, error) {
	if f.disabled {
		return &model.AuthUser{Subject: "anonymous"}, nil
	}
	if token != "good" {
		return nil, service.ErrUnauthorized
	}
	return &model.AuthUser{Subject: "user-1"}, nil
}

type fakeBackend struct {
	lastToken string
	err       error
}

func (f *fakeBackend) Analyze(ctx context.Context, token, filename string, content []byte, threshold float64) (json.RawMessage, error) {
	f.lastToken = token
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(`{"id":"a1","sample_id":"S1","resistance_status":"resistant","confidence_score":88}`), nil
}

func (f *fakeBackend) RunBlast(ctx context.Context, token, filename string, content []byte, evalue float64, maxHits int) (json.RawMessage, error) {
	return json.RawMessage(`{"hits":[{"gene":"mecA"}]}`), f.err
}

func (f *fakeBackend) ReferenceGenes(ctx context.Context, token string) (json.RawMessage, error) {
	return json.RawMessage(`["mecA","mecC"]`), f.err
}

type fakeGenerator struct{}

func (fakeGenerator) Generate(ctx context.Context, prompt string) (string, string, error) {
	return "explained", "test-model", nil
}

type harness struct {
	router  *gin.Engine
	store   *resultstore.Store
	backend *fakeBackend
}

func newHarness(t *testing.T, verifier TokenVerifier, gen service.TextGenerator) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	m := metrics.New()
	store := resultstore.New(storage.NewMemory(), resultstore.WithMetrics(m))
	backend := &fakeBackend{}
	history := service.NewHistoryService(nil, store, nil)
	router := NewRouter(RouterDeps{
		Server:   config.ServerConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		Auth:     verifier,
		Analysis: NewAnalysisHandler(service.NewAnalysisService(backend, store, 0.75, nil, m)),
		History:  NewHistoryHandler(history, service.NewExplainService(history, gen)),
		Metrics:  m,
	})
	return &harness{router: router, store: store, backend: backend}
}

func (h *harness) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func uploadRequest(t *testing.T, path, filename, content string, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if filename != "" {
		part, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		_, _ = part.Write([]byte(content))
	}
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer good")
	return req
}

func authed(method, path string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Authorization", "Bearer good")
	return req
}

func TestHealthEndpoints(t *testing.T) {
	h := newHarness(t, fakeVerifier{}, nil)
	for _, path := range []string{"/ping", "/", "/metrics"} {
		w := h.do(httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, w.Code)
		}
		if w.Header().Get(requestIDHeader) == "" {
			t.Fatalf("%s: missing request id", path)
		}
	}
}

func TestAuthRequired(t *testing.T) {
	h := newHarness(t, fakeVerifier{}, nil)
	cases := map[string]string{"missing": "", "not bearer": "Basic abc", "bad token": "Bearer nope"}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/history", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			if w := h.do(req); w.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", w.Code)
			}
		})
	}
}

func TestAuthDisabledAllowsAnonymous(t *testing.T) {
	h := newHarness(t, fakeVerifier{disabled: true}, nil)
	w := h.do(httptest.NewRequest(http.MethodGet, "/api/v1/history", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestAnalyzeUploadSavesAndForwardsToken(t *testing.T) {
	h := newHarness(t, fakeVerifier{}, nil)
	w := h.do(uploadRequest(t, "/api/v1/analyses", "s.fasta", ">s\nACGT\n", map[string]string{"threshold": "0.9"}))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp model.AnalysisResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Saved || resp.Data.ID != "a1" || resp.Data.Status != model.StatusResistant {
		t.Fatalf("unexpected response %+v", resp)
	}
	if h.backend.lastToken != "good" {
		t.Fatalf("token not forwarded: %q", h.backend.lastToken)
	}
	if got := h.store.List(context.Background()); len(got) != 1 {
		t.Fatalf("expected one saved record, got %d", len(got))
	}
}

func TestAnalyzeUploadErrors(t *testing.T) {
	h := newHarness(t, fakeVerifier{}, nil)
	cases := []struct {
		name     string
		filename string
		content  string
		fields   map[string]string
		want     int
	}{
		{name: "no file", want: http.StatusBadRequest},
		{name: "bad extension", filename: "s.txt", content: ">s\nACGT\n", want: http.StatusBadRequest},
		{name: "not nucleotides", filename: "s.fa", content: ">s\nHELLO\n", want: http.StatusBadRequest},
		{name: "bad threshold", filename: "s.fa", content: ">s\nACGT\n", fields: map[string]string{"threshold": "high"}, want: http.StatusBadRequest},
		{name: "threshold out of range", filename: "s.fa", content: ">s\nACGT\n", fields: map[string]string{"threshold": "2"}, want: http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := h.do(uploadRequest(t, "/api/v1/analyses", tc.filename, tc.content, tc.fields))
			if w.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, w.Code, w.Body.String())
			}
		})
	}
}

func TestAnalyzeUpstreamErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{name: "upstream validation", err: &client.APIError{StatusCode: http.StatusBadRequest, Detail: "bad file"}, want: http.StatusBadRequest},
		{name: "upstream failure", err: &client.APIError{StatusCode: http.StatusInternalServerError}, want: http.StatusBadGateway},
		{name: "unreachable", err: errors.New("dial tcp: refused"), want: http.StatusBadGateway},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, fakeVerifier{}, nil)
			h.backend.err = tc.err
			w := h.do(uploadRequest(t, "/api/v1/analyses", "s.fna", ">s\nACGT\n", nil))
			if w.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, w.Code)
			}
		})
	}
}

func TestBlastAndReferenceGenes(t *testing.T) {
	h := newHarness(t, fakeVerifier{}, nil)
	w := h.do(uploadRequest(t, "/api/v1/blast", "s.fa", ">s\nACGT\n", map[string]string{"evalue": "0.001", "max_hits": "5"}))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "mecA") {
		t.Fatalf("blast: %d %s", w.Code, w.Body.String())
	}
	w = h.do(uploadRequest(t, "/api/v1/blast", "s.fa", ">s\nACGT\n", map[string]string{"max_hits": "many"}))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad max_hits, got %d", w.Code)
	}
	w = h.do(authed(http.MethodGet, "/api/v1/reference-genes"))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "mecC") {
		t.Fatalf("reference genes: %d %s", w.Code, w.Body.String())
	}
}

func TestHistoryRoutes(t *testing.T) {
	h := newHarness(t, fakeVerifier{}, fakeGenerator{})
	ctx := context.Background()
	for _, id := range []string{"x", "y"} {
		if _, err := h.store.Save(ctx, resultstore.Raw{"id": id}); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	w := h.do(authed(http.MethodGet, "/api/v1/history"))
	var list model.HistoryListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil || len(list.Data) != 2 || list.Data[0].ID != "y" {
		t.Fatalf("list: %d %s", w.Code, w.Body.String())
	}
	if list.Source != model.HistorySourceLocal {
		t.Fatalf("source = %q", list.Source)
	}

	if w := h.do(authed(http.MethodGet, "/api/v1/history/1")); w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"id":"x"`) {
		t.Fatalf("get by position: %d %s", w.Code, w.Body.String())
	}
	if w := h.do(authed(http.MethodGet, "/api/v1/history/zzz")); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if w := h.do(authed(http.MethodPost, "/api/v1/history/x/explain")); w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "explained") {
		t.Fatalf("explain: %d %s", w.Code, w.Body.String())
	}
	if w := h.do(authed(http.MethodDelete, "/api/v1/history/x")); w.Code != http.StatusOK {
		t.Fatalf("delete: %d", w.Code)
	}
	if w := h.do(authed(http.MethodDelete, "/api/v1/history/x")); w.Code != http.StatusNotFound {
		t.Fatalf("second delete: expected 404, got %d", w.Code)
	}
}

func TestExplainUnavailable(t *testing.T) {
	h := newHarness(t, fakeVerifier{}, nil)
	if _, err := h.store.Save(context.Background(), resultstore.Raw{"id": "x"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if w := h.do(authed(http.MethodPost, "/api/v1/history/x/explain")); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	h := newHarness(t, fakeVerifier{}, nil)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/history", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := h.do(req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
		t.Fatalf("missing allow-origin header")
	}

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "http://evil.example")
	if w := h.do(req); w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("unexpected allow-origin for unknown origin")
	}
}

func TestRequestIDIsKept(t *testing.T) {
	h := newHarness(t, fakeVerifier{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	if got := h.do(req).Header().Get(requestIDHeader); got != "abc-123" {
		t.Fatalf("request id = %q", got)
	}
}
