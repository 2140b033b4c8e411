package main

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeOracle answers prompts with respond and records every prompt
type fakeOracle struct {
	mu      sync.Mutex
	respond func(ctx context.Context, prompt string) (string, error)
	prompts []string
}

func (o *fakeOracle) Ask(ctx context.Context, prompt string) (string, error) {
	o.mu.Lock()
	o.prompts = append(o.prompts, prompt)
	o.mu.Unlock()
	return o.respond(ctx, prompt)
}

func (o *fakeOracle) calls() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.prompts)
}

// fakeSource serves fixed pages; pages listed in errs fail
type fakeSource struct {
	mu    sync.Mutex
	pages map[int][]Candidate
	errs  map[int]error
	asked []int
}

func (s *fakeSource) FetchPage(ctx context.Context, page int) ([]Candidate, error) {
	s.mu.Lock()
	s.asked = append(s.asked, page)
	s.mu.Unlock()
	if err := s.errs[page]; err != nil {
		return nil, err
	}
	return s.pages[page], nil
}

// fakeSummarizer returns summaries by URL. Missing URLs return err, which
// may be nil to model a summarizer answering with nothing.
type fakeSummarizer struct {
	summaries map[string]string
	err       error
}

func (s *fakeSummarizer) Summarize(ctx context.Context, article Article) (string, error) {
	if summary, ok := s.summaries[article.URL]; ok {
		return summary, nil
	}
	return "", s.err
}

// countingThrottle counts Wait calls without pausing
type countingThrottle struct {
	mu    sync.Mutex
	waits int
}

func (t *countingThrottle) Wait(ctx context.Context) error {
	t.mu.Lock()
	t.waits++
	t.mu.Unlock()
	return ctx.Err()
}

// testSettings returns the embedded defaults pointed at a temp directory
// with two small tag groups
func testSettings(t *testing.T) *Settings {
	t.Helper()
	settings, err := parseSettings(nil)
	require.NoError(t, err)

	settings.DataDirectory = t.TempDir()
	settings.Source.Pages = 2
	settings.Classifier.Threshold = 0.6
	settings.Classifier.TagGroups = []TagGroup{
		{Name: "retro", Topics: []string{"retro computing", "amiga"}},
		{Name: "games", Topics: []string{"video games"}},
	}
	return settings
}
