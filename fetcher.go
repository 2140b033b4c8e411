package main

import (
	"context"
	"fmt"
	"net/http"
)

// HTTPError represents an HTTP error with status code
type HTTPError struct {
	StatusCode int
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d for %s", e.StatusCode, e.URL)
}

// ContentResult represents the result of fetching content
type ContentResult struct {
	Text   string // Markdown or plain text content
	FileID string // Uploaded document, for content the model reads directly
}

// ContentFetcher handles fetching and extracting article bodies from URLs
type ContentFetcher struct {
	handlers []ContentHandler
	client   *http.Client
}

// NewContentFetcher creates a new content fetcher with default handlers.
// Transcripts are cached under cacheDir. PDFs are uploaded with apiKey and
// skipped when it is empty.
func NewContentFetcher(client *http.Client, cacheDir, apiKey string) *ContentFetcher {
	if client == nil {
		client = &http.Client{}
	}
	f := &ContentFetcher{client: client}

	// Register handlers (most specific first)
	f.AddHandler(NewYouTubeHandlerFromEnv(cacheDir))
	if apiKey != "" {
		f.AddHandler(&PDFHandler{apiKey: apiKey})
	}
	f.AddHandler(&PlainTextHandler{})
	f.AddHandler(NewHTMLHandler()) // fallback

	return f
}

// AddHandler adds a content handler to the chain
func (f *ContentFetcher) AddHandler(handler ContentHandler) {
	f.handlers = append(f.handlers, handler)
}

// FetchContent fetches and processes content using handler chain
func (f *ContentFetcher) FetchContent(ctx context.Context, url string) (*ContentResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request for %s: %w", url, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPError{StatusCode: resp.StatusCode, URL: url}
	}

	// Find handler based on URL + response headers
	for _, handler := range f.handlers {
		if handler.CanHandle(url, resp) {
			return handler.Handle(url, resp)
		}
	}

	return nil, fmt.Errorf("no handler found for %s", url)
}
