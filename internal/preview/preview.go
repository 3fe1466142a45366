// Package preview fetches a cited reference's URI and renders it as
// markdown so a user can inspect a source without leaving the chat.
package preview

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

const maxPreviewChars = 50000

// ErrNotPreviewable is returned for URIs with schemes that cannot be
// fetched over plain HTTP, such as s3:// knowledge-base locations.
var ErrNotPreviewable = fmt.Errorf("reference location is not previewable")

// Fetcher retrieves reference URIs and converts HTML bodies to markdown.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a Fetcher with a 30 second request timeout.
func NewFetcher() *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Fetch retrieves the URI and returns its content as markdown, truncated
// to a displayable length. Only http and https URIs are fetched; other
// schemes return ErrNotPreviewable with the scheme named.
func (f *Fetcher) Fetch(ctx context.Context, uri string) (string, error) {
	if uri == "" {
		return "", fmt.Errorf("uri is required")
	}

	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("parse uri: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: scheme %q", ErrNotPreviewable, u.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "Bedrockchat/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch uri: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP error: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	md, err := htmltomarkdown.ConvertString(string(body))
	if err != nil {
		return "", fmt.Errorf("convert to markdown: %w", err)
	}

	if len(md) > maxPreviewChars {
		md = md[:maxPreviewChars] + "\n\n[Content truncated]"
	}

	return md, nil
}
