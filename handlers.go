package main

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/aktagon/llmkit/anthropic"
	readability "github.com/go-shiori/go-readability"
)

const maxBodyBytes = 5 << 20

// ContentHandler processes URLs based on response inspection
type ContentHandler interface {
	CanHandle(url string, resp *http.Response) bool
	Handle(url string, resp *http.Response) (*ContentResult, error)
}

// PlainTextHandler passes text/plain bodies through unchanged
type PlainTextHandler struct{}

func (h *PlainTextHandler) CanHandle(url string, resp *http.Response) bool {
	return strings.HasPrefix(resp.Header.Get("Content-Type"), "text/plain")
}

func (h *PlainTextHandler) Handle(url string, resp *http.Response) (*ContentResult, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	return &ContentResult{Text: strings.TrimSpace(string(body))}, nil
}

// PDFHandler uploads PDF documents so the summarizer model can read them
type PDFHandler struct {
	apiKey string
}

func (h *PDFHandler) CanHandle(url string, resp *http.Response) bool {
	if strings.HasSuffix(strings.ToLower(url), ".pdf") {
		return true
	}
	return strings.Contains(resp.Header.Get("Content-Type"), "application/pdf")
}

func (h *PDFHandler) Handle(url string, resp *http.Response) (*ContentResult, error) {
	tempFile, err := os.CreateTemp("", "pdf-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("creating temporary file: %w", err)
	}
	defer os.Remove(tempFile.Name())
	defer tempFile.Close()

	if _, err := io.Copy(tempFile, io.LimitReader(resp.Body, maxBodyBytes)); err != nil {
		return nil, fmt.Errorf("downloading PDF content: %w", err)
	}
	tempFile.Close()

	file, err := anthropic.UploadFile(tempFile.Name(), h.apiKey)
	if err != nil {
		return nil, fmt.Errorf("uploading PDF file: %w", err)
	}
	return &ContentResult{FileID: file.ID}, nil
}

// HTMLHandler extracts the main article body and converts it to markdown
// (fallback)
type HTMLHandler struct {
	converter *md.Converter
}

// NewHTMLHandler creates an HTMLHandler with a commonmark converter
func NewHTMLHandler() *HTMLHandler {
	return &HTMLHandler{converter: md.NewConverter("", true, nil)}
}

func (h *HTMLHandler) CanHandle(url string, resp *http.Response) bool {
	return true // Always handles as fallback
}

func (h *HTMLHandler) Handle(pageURL string, resp *http.Response) (*ContentResult, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	html := string(body)
	parsed, _ := url.Parse(pageURL)
	article, err := readability.FromReader(bytes.NewReader(body), parsed)
	if err != nil {
		slog.Debug("readability failed, converting whole page", "url", pageURL, "error", err)
	} else if strings.TrimSpace(article.Content) != "" {
		html = article.Content
	}

	markdown, err := h.converter.ConvertString(html)
	if err != nil {
		return nil, fmt.Errorf("converting HTML to markdown: %w", err)
	}

	return &ContentResult{Text: strings.TrimSpace(markdown)}, nil
}
