package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	runDirPrefix = "run_"
	runIDLayout  = "20060102-150405"
	resultsFeed  = "results.rss"
	failedFeed   = "failed.rss"
	scrapePrefix = "scrape_"
	pageSnapshot = "articles_%d.json"
)

// ErrNoRuns is returned when no run directory exists yet
var ErrNoRuns = errors.New("no run directories found")

// RunLocator finds and creates run directories under a base path
type RunLocator struct {
	base string
	now  func() time.Time
}

// NewRunLocator creates a locator rooted at base
func NewRunLocator(base string) *RunLocator {
	return &RunLocator{base: base, now: time.Now}
}

// NewRunID formats t as a fixed-width id that sorts chronologically
func NewRunID(t time.Time) string {
	return t.Format(runIDLayout)
}

// Create makes a new run directory named after the current time
func (l *RunLocator) Create() (string, error) {
	dir := filepath.Join(l.base, runDirPrefix+NewRunID(l.now()))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating run directory: %w", err)
	}
	return dir, nil
}

// List returns run directories, newest first
func (l *RunLocator) List() ([]string, error) {
	entries, err := os.ReadDir(l.base)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing runs in %s: %w", l.base, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), runDirPrefix) {
			names = append(names, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	dirs := make([]string, len(names))
	for i, name := range names {
		dirs[i] = filepath.Join(l.base, name)
	}
	return dirs, nil
}

// Newest returns the most recent run directory or ErrNoRuns
func (l *RunLocator) Newest() (string, error) {
	dirs, err := l.List()
	if err != nil {
		return "", err
	}
	if len(dirs) == 0 {
		return "", fmt.Errorf("%w in %s", ErrNoRuns, l.base)
	}
	return dirs[0], nil
}

// Resolve returns a new run when newRun is set or none exists, otherwise the
// newest run
func (l *RunLocator) Resolve(newRun bool) (dir string, created bool, err error) {
	if !newRun {
		dir, err = l.Newest()
		if err == nil {
			return dir, false, nil
		}
		if !errors.Is(err, ErrNoRuns) {
			return "", false, err
		}
	}
	dir, err = l.Create()
	if err != nil {
		return "", false, err
	}
	return dir, true, nil
}
