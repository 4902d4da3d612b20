package exec

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRun(t *testing.T) {
	var got executeBody
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/execute" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %s", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(Response{
			Language: "python",
			Version:  "3.10.0",
			Run:      RunResult{Stdout: "1\n", Output: "1\n", Code: 0},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, slog.Default())
	resp, err := c.Run(context.Background(), Request{
		Language: "python",
		Version:  "3.10.0",
		Source:   "print(1)",
		Stdin:    "in",
	})
	if err != nil {
		t.Fatal(err)
	}

	if got.Language != "python" || got.Version != "3.10.0" || got.Stdin != "in" {
		t.Fatalf("request body = %+v", got)
	}
	if len(got.Files) != 1 || got.Files[0].Content != "print(1)" {
		t.Fatalf("files = %+v", got.Files)
	}
	if resp.Run.Output != "1\n" {
		t.Fatalf("output = %q", resp.Run.Output)
	}
}

func TestRunServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "unsupported language", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, slog.Default())
	if _, err := c.Run(context.Background(), Request{Language: "cobol"}); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestRunUnreachable(t *testing.T) {
	c := New("http://127.0.0.1:1", 100*time.Millisecond, slog.Default())
	if _, err := c.Run(context.Background(), Request{Language: "python"}); err == nil {
		t.Fatal("expected connection error")
	}
}
