package main

import (
	"io"
	"net/http"
	"strings"
	"testing"
)

func fakeResponse(contentType, body string) *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{contentType}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestPlainTextHandler(t *testing.T) {
	h := &PlainTextHandler{}

	tests := []struct {
		name        string
		contentType string
		expected    bool
	}{
		{"plain text", "text/plain", true},
		{"plain text with charset", "text/plain; charset=utf-8", true},
		{"html", "text/html", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := h.CanHandle("https://example.com", fakeResponse(tt.contentType, "")); got != tt.expected {
				t.Errorf("CanHandle() = %v, want %v", got, tt.expected)
			}
		})
	}

	result, err := h.Handle("https://example.com/notes.txt", fakeResponse("text/plain", "  hello world \n"))
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if result.Text != "hello world" {
		t.Errorf("Handle() = %q, want %q", result.Text, "hello world")
	}
}

func TestPDFHandler_CanHandle(t *testing.T) {
	h := &PDFHandler{apiKey: "test-key"}

	tests := []struct {
		name        string
		url         string
		contentType string
		expected    bool
	}{
		{"pdf extension", "https://example.com/paper.PDF", "application/octet-stream", true},
		{"pdf content type", "https://example.com/download?id=1", "application/pdf", true},
		{"html page", "https://example.com/paper", "text/html", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := h.CanHandle(tt.url, fakeResponse(tt.contentType, "")); got != tt.expected {
				t.Errorf("CanHandle() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestHTMLHandlerExtractsArticle(t *testing.T) {
	page := `<!DOCTYPE html>
<html>
<head><title>Restoring an Amiga 500</title></head>
<body>
  <nav><a href="/">Home</a> | <a href="/about">About</a></nav>
  <article>
    <h1>Restoring an Amiga 500</h1>
    <p>The Amiga 500 was released in 1987 and quickly became the most popular
    home computer of its generation. Restoring one today means replacing leaking
    capacitors, cleaning the keyboard membrane and checking the floppy drive.</p>
    <p>Start with the power supply. Original bricks age badly and a failing unit
    can damage the motherboard, so measure the rails before connecting anything.</p>
    <p>Next, recap the board. Surface mount electrolytics leak and corrode traces,
    which is the most common cause of dead machines found in attics.</p>
  </article>
  <footer>Copyright retro blog</footer>
</body>
</html>`

	h := NewHTMLHandler()
	if !h.CanHandle("https://example.com", fakeResponse("text/html", "")) {
		t.Fatal("HTMLHandler should handle any response")
	}

	result, err := h.Handle("https://example.com/amiga", fakeResponse("text/html", page))
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if !strings.Contains(result.Text, "replacing leaking") {
		t.Errorf("Handle() missing article text, got %q", result.Text)
	}
	if strings.Contains(result.Text, "<p>") {
		t.Errorf("Handle() should convert HTML to markdown, got %q", result.Text)
	}
}

func TestHTMLHandlerFallsBackToWholePage(t *testing.T) {
	h := NewHTMLHandler()

	result, err := h.Handle("https://example.com/short", fakeResponse("text/html", "<p>Just a <strong>line</strong></p>"))
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if !strings.Contains(result.Text, "Just a **line**") {
		t.Errorf("Handle() = %q, want markdown of whole page", result.Text)
	}
}
