package main

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ErrNoContent is returned when no article text could be extracted
var ErrNoContent = errors.New("no content extracted")

// ErrEmptySummary is returned when the model answers with blank text
var ErrEmptySummary = errors.New("empty summary")

// tokenPattern approximates model tokens as words and single punctuation marks
var tokenPattern = regexp.MustCompile(`\w+|[^\w\s]`)

// CountTokens returns the approximate token count of text
func CountTokens(text string) int {
	return len(tokenPattern.FindAllStringIndex(text, -1))
}

// TruncateTokens cuts text after its first maxTokens tokens
func TruncateTokens(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	locs := tokenPattern.FindAllStringIndex(text, maxTokens+1)
	if len(locs) <= maxTokens {
		return text
	}
	return text[:locs[maxTokens-1][1]]
}

// Summarizer produces a summary of an article's body
type Summarizer interface {
	Summarize(ctx context.Context, article Article) (string, error)
}

type contentSource interface {
	FetchContent(ctx context.Context, url string) (*ContentResult, error)
}

type summaryAgent interface {
	Summarize(ctx context.Context, content string, fileIDs ...string) (string, error)
}

// ArticleSummarizer fetches an article, trims it to the token budget and
// asks the summary agent for a summary
type ArticleSummarizer struct {
	content   contentSource
	agent     summaryAgent
	maxTokens int
	timeout   time.Duration
}

// NewArticleSummarizer creates a summarizer. A non-positive timeout leaves
// each summary unbounded.
func NewArticleSummarizer(content contentSource, agent summaryAgent, maxTokens int, timeout time.Duration) *ArticleSummarizer {
	return &ArticleSummarizer{
		content:   content,
		agent:     agent,
		maxTokens: maxTokens,
		timeout:   timeout,
	}
}

func (s *ArticleSummarizer) Summarize(ctx context.Context, article Article) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	result, err := s.content.FetchContent(ctx, article.URL)
	if err != nil {
		return "", fmt.Errorf("extracting content: %w", err)
	}
	text := strings.TrimSpace(result.Text)
	var files []string
	if result.FileID != "" {
		files = append(files, result.FileID)
	}
	if text == "" && len(files) == 0 {
		return "", fmt.Errorf("%w from %s", ErrNoContent, article.URL)
	}

	summary, err := s.agent.Summarize(ctx, TruncateTokens(text, s.maxTokens), files...)
	if err != nil {
		return "", fmt.Errorf("summarizing: %w", err)
	}
	if summary == "" {
		return "", fmt.Errorf("%w for %s", ErrEmptySummary, article.URL)
	}
	return summary, nil
}
