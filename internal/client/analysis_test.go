package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonathanw33/mrsa-kds/internal/config"
)

func TestAnalyzeSendsMultipartWithBearer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/analyze" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok-123" {
			t.Errorf("Authorization = %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm: %v", err)
		}
		if got := r.FormValue("threshold"); got != "0.8" {
			t.Errorf("threshold = %q", got)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile: %v", err)
		} else {
			data, _ := io.ReadAll(file)
			if header.Filename != "sample.fasta" || string(data) != ">s\nACGT\n" {
				t.Errorf("unexpected upload %s %q", header.Filename, data)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sample_id":"sample","resistance_status":"resistant","confidence_score":98.5}`))
	}))
	defer srv.Close()

	c := NewAnalysisClient(config.AnalysisAPIConfig{BaseURL: srv.URL + "/", Timeout: "5s"})
	body, err := c.Analyze(context.Background(), "tok-123", "sample.fasta", []byte(">s\nACGT\n"), 0.8)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil || out["resistance_status"] != "resistant" {
		t.Fatalf("unexpected body %s (%v)", body, err)
	}
}

func TestRunBlastFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseMultipartForm(1 << 20)
		if r.FormValue("evalue") != "1e-10" || r.FormValue("max_hits") != "10" {
			t.Errorf("unexpected fields evalue=%q max_hits=%q", r.FormValue("evalue"), r.FormValue("max_hits"))
		}
		if r.Header.Get("Authorization") != "" {
			t.Errorf("no token means no Authorization header")
		}
		_, _ = w.Write([]byte(`{"hits":[]}`))
	}))
	defer srv.Close()

	c := NewAnalysisClient(config.AnalysisAPIConfig{BaseURL: srv.URL})
	if _, err := c.RunBlast(context.Background(), "", "x.fa", []byte(">x\nA\n"), 1e-10, 10); err != nil {
		t.Fatalf("RunBlast: %v", err)
	}
}

func TestAPIErrorDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail":"File must be in FASTA format (.fasta, .fa, or .fna)"}`))
	}))
	defer srv.Close()

	c := NewAnalysisClient(config.AnalysisAPIConfig{BaseURL: srv.URL})
	_, err := c.Analyze(context.Background(), "", "x.txt", []byte("x"), 0.75)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest || apiErr.Detail != "File must be in FASTA format (.fasta, .fa, or .fna)" {
		t.Fatalf("unexpected error %+v", apiErr)
	}
	if !IsStatus(err, http.StatusBadRequest) || IsStatus(err, http.StatusNotFound) {
		t.Fatalf("IsStatus mismatch")
	}
}

func TestHistoryAndResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/history":
			_, _ = w.Write([]byte(`[{"id":"1"},{"id":"2"}]`))
		case "/api/results/a b":
			_, _ = w.Write([]byte(`{"id":"a b"}`))
		case "/api/reference-genes":
			_, _ = w.Write([]byte(`["mecA","mecC"]`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"detail":"Not Found"}`))
		}
	}))
	defer srv.Close()

	c := NewAnalysisClient(config.AnalysisAPIConfig{BaseURL: srv.URL})
	ctx := context.Background()

	items, err := c.History(ctx, "t")
	if err != nil || len(items) != 2 {
		t.Fatalf("History = %d items, %v", len(items), err)
	}
	if _, err := c.Result(ctx, "t", "a b"); err != nil {
		t.Fatalf("Result: %v", err)
	}
	if _, err := c.ReferenceGenes(ctx, "t"); err != nil {
		t.Fatalf("ReferenceGenes: %v", err)
	}
	if _, err := c.Result(ctx, "t", "missing"); !IsStatus(err, http.StatusNotFound) {
		t.Fatalf("expected 404 APIError, got %v", err)
	}
}

func TestNewAnalysisClientDefaults(t *testing.T) {
	c := NewAnalysisClient(config.AnalysisAPIConfig{Timeout: "bogus"})
	if c.baseURL != defaultAnalysisURL {
		t.Fatalf("baseURL = %q", c.baseURL)
	}
	if c.httpClient.Timeout != 120*time.Second {
		t.Fatalf("timeout = %v", c.httpClient.Timeout)
	}
}

func TestErrorDetailFallsBackToBody(t *testing.T) {
	if got := errorDetail([]byte("upstream exploded")); got != "upstream exploded" {
		t.Fatalf("errorDetail = %q", got)
	}
	if got := errorDetail([]byte(`{"detail":[{"loc":["body","file"]}]}`)); got != `[{"loc":["body","file"]}]` {
		t.Fatalf("errorDetail = %q", got)
	}
}
