package parse

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestService(t *testing.T, pollsUntilDone int, finalStatus string) *httptest.Server {
	t.Helper()
	polls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/parsing/upload", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"id": "job-1"})
	})
	mux.HandleFunc("GET /api/parsing/job/job-1", func(w http.ResponseWriter, r *http.Request) {
		polls++
		status := "PENDING"
		if polls >= pollsUntilDone {
			status = finalStatus
		}
		json.NewEncoder(w).Encode(map[string]string{"status": status})
	})
	mux.HandleFunc("GET /api/parsing/job/job-1/result/markdown", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"markdown": "# Ruling\n\nThe court found for the plaintiff."})
	})
	return httptest.NewServer(mux)
}

func writeTempFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ruling.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4 fake"), 0o644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func TestParseFileRoundTrip(t *testing.T) {
	srv := newTestService(t, 2, "SUCCESS")
	defer srv.Close()

	c := NewClient(ClientParams{
		BaseURL:      srv.URL,
		APIKey:       "test-key",
		PollInterval: 10 * time.Millisecond,
	})
	text, err := c.ParseFile(context.Background(), writeTempFile(t))
	if err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}
	if text == "" || text[0] != '#' {
		t.Fatalf("expected markdown text, got %q", text)
	}
}

func TestParseFileJobFailure(t *testing.T) {
	srv := newTestService(t, 1, "ERROR")
	defer srv.Close()

	c := NewClient(ClientParams{
		BaseURL:      srv.URL,
		APIKey:       "test-key",
		PollInterval: 10 * time.Millisecond,
	})
	if _, err := c.ParseFile(context.Background(), writeTempFile(t)); err == nil {
		t.Fatal("expected an error for a failed parse job")
	}
}

func TestParseFilePollTimeout(t *testing.T) {
	srv := newTestService(t, 1000, "SUCCESS")
	defer srv.Close()

	c := NewClient(ClientParams{
		BaseURL:      srv.URL,
		APIKey:       "test-key",
		PollInterval: 5 * time.Millisecond,
		PollTimeout:  30 * time.Millisecond,
	})
	if _, err := c.ParseFile(context.Background(), writeTempFile(t)); err == nil {
		t.Fatal("expected a timeout error")
	}
}

func TestParseFileMissingFile(t *testing.T) {
	c := NewClient(ClientParams{BaseURL: "http://localhost:0", APIKey: "test-key"})
	if _, err := c.ParseFile(context.Background(), "/nonexistent/file.pdf"); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
