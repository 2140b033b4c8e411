package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// Mock handler for testing
type mockHandler struct {
	canHandleResult bool
	handleResult    *ContentResult
	handleError     error
}

func (m *mockHandler) CanHandle(url string, resp *http.Response) bool {
	return m.canHandleResult
}

func (m *mockHandler) Handle(url string, resp *http.Response) (*ContentResult, error) {
	return m.handleResult, m.handleError
}

func TestNewContentFetcher(t *testing.T) {
	tests := []struct {
		name                 string
		apiKey               string
		expectedHandlerCount int
	}{
		{"with api key", "test-key", 4}, // YouTube, PDF, plain text, HTML
		{"without api key", "", 3},      // PDF upload needs a key
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := NewContentFetcher(nil, t.TempDir(), tt.apiKey)

			if fetcher == nil {
				t.Fatal("NewContentFetcher() returned nil")
			}

			if fetcher.client == nil {
				t.Error("NewContentFetcher() did not initialize HTTP client")
			}

			if len(fetcher.handlers) != tt.expectedHandlerCount {
				t.Errorf("NewContentFetcher() registered %d handlers, want %d",
					len(fetcher.handlers), tt.expectedHandlerCount)
			}

			if _, ok := fetcher.handlers[len(fetcher.handlers)-1].(*HTMLHandler); !ok {
				t.Error("NewContentFetcher() should register HTMLHandler last as fallback")
			}
		})
	}
}

func TestAddHandler(t *testing.T) {
	fetcher := &ContentFetcher{}
	initialCount := len(fetcher.handlers)

	mockH := &mockHandler{canHandleResult: true}
	fetcher.AddHandler(mockH)

	if len(fetcher.handlers) != initialCount+1 {
		t.Errorf("AddHandler() handlers count = %d, want %d",
			len(fetcher.handlers), initialCount+1)
	}

	lastHandler := fetcher.handlers[len(fetcher.handlers)-1]
	if lastHandler != mockH {
		t.Error("AddHandler() did not add handler to the end of the chain")
	}
}

func TestFetchContentHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	fetcher := &ContentFetcher{
		client: server.Client(),
	}

	result, err := fetcher.FetchContent(context.Background(), server.URL)

	if result != nil {
		t.Error("FetchContent() should return nil result on HTTP error")
	}

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("FetchContent() should return HTTPError, got %T", err)
	}
	if httpErr.StatusCode != http.StatusNotFound {
		t.Errorf("HTTPError.StatusCode = %d, want %d",
			httpErr.StatusCode, http.StatusNotFound)
	}
	if httpErr.URL != server.URL {
		t.Errorf("HTTPError.URL = %q, want %q", httpErr.URL, server.URL)
	}
}

func TestFetchContentHandlerChain(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("<h1>Test HTML</h1>"))
	}))
	defer server.Close()

	handler1 := &mockHandler{
		canHandleResult: false,
	}

	handler2 := &mockHandler{
		canHandleResult: true,
		handleResult:    &ContentResult{Text: "handler2 result"},
	}

	handler3 := &mockHandler{
		canHandleResult: true,
		handleResult:    &ContentResult{Text: "handler3 result"},
	}

	fetcher := &ContentFetcher{
		client:   server.Client(),
		handlers: []ContentHandler{handler1, handler2, handler3},
	}

	result, err := fetcher.FetchContent(context.Background(), server.URL)

	if err != nil {
		t.Fatalf("FetchContent() error = %v", err)
	}

	if result == nil {
		t.Fatal("FetchContent() returned nil result")
	}

	if result.Text != "handler2 result" {
		t.Errorf("FetchContent() result.Text = %q, want %q",
			result.Text, "handler2 result")
	}
}

func TestFetchContentNoMatchingHandler(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("some content"))
	}))
	defer server.Close()

	fetcher := &ContentFetcher{
		client:   server.Client(),
		handlers: []ContentHandler{&mockHandler{}, &mockHandler{}},
	}

	result, err := fetcher.FetchContent(context.Background(), server.URL)

	if result != nil {
		t.Error("FetchContent() should return nil when no handler matches")
	}

	if err == nil {
		t.Fatal("FetchContent() should return error when no handler matches")
	}

	expectedMsg := "no handler found for " + server.URL
	if err.Error() != expectedMsg {
		t.Errorf("FetchContent() error = %q, want %q", err.Error(), expectedMsg)
	}
}

func TestFetchContentCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("unreachable"))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetcher := NewContentFetcher(server.Client(), t.TempDir(), "")
	_, err := fetcher.FetchContent(ctx, server.URL)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("FetchContent() error = %v, want context.Canceled", err)
	}
	if err != nil && !strings.Contains(err.Error(), "fetching") {
		t.Errorf("FetchContent() error = %q, want wrapped fetch error", err)
	}
}
