package preview

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestFetchConvertsHTML(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body><h1>Annual Report</h1><p>Revenue grew.</p></body></html>`))
	}))
	defer server.Close()

	f := NewFetcher()
	result, err := f.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(result, "Annual Report") {
		t.Errorf("expected 'Annual Report' in result, got %q", result)
	}
	if !strings.Contains(result, "Revenue grew") {
		t.Errorf("expected 'Revenue grew' in result, got %q", result)
	}
}

func TestFetchRejectsS3URI(t *testing.T) {
	f := NewFetcher()
	_, err := f.Fetch(context.Background(), "s3://kb-bucket/report.pdf")
	if !errors.Is(err, ErrNotPreviewable) {
		t.Errorf("expected ErrNotPreviewable for s3 uri, got %v", err)
	}
}

func TestFetchEmptyURI(t *testing.T) {
	f := NewFetcher()
	if _, err := f.Fetch(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty uri")
	}
}

func TestFetchHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	f := NewFetcher()
	if _, err := f.Fetch(context.Background(), server.URL); err == nil {
		t.Fatal("expected error for 404 response")
	}
}

func TestFetchTruncation(t *testing.T) {
	long := strings.Repeat("x", 60000)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><body><p>" + long + "</p></body></html>"))
	}))
	defer server.Close()

	f := NewFetcher()
	result, err := f.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatal(err)
	}
	if len(result) > 51000 {
		t.Errorf("expected truncation, got length %d", len(result))
	}
}
