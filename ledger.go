package main

import (
	"fmt"
	"log/slog"
	"sort"
)

// LedgerName identifies one of the three run-scoped collections
type LedgerName string

const (
	LedgerResults LedgerName = "results"
	LedgerKnown   LedgerName = "known"
	LedgerFailed  LedgerName = "failed"
)

// DuplicateKeyError is returned when an article is accepted after being
// rejected (or the reverse). It means dedup was bypassed upstream.
type DuplicateKeyError struct {
	URL      string
	Target   LedgerName
	Existing LedgerName
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate key %s: cannot add to %s, already in %s", e.URL, e.Target, e.Existing)
}

// Ledger is an insertion-ordered collection of articles keyed by URL
type Ledger struct {
	name    LedgerName
	entries []Article
	index   map[string]int
}

func newLedger(name LedgerName, items []Article) *Ledger {
	l := &Ledger{
		name:  name,
		index: make(map[string]int, len(items)),
	}
	for _, item := range items {
		l.add(item)
	}
	return l
}

// Has reports whether url is present
func (l *Ledger) Has(url string) bool {
	_, ok := l.index[url]
	return ok
}

// Len returns the number of entries
func (l *Ledger) Len() int {
	return len(l.entries)
}

// Items returns a copy of the entries in insertion order
func (l *Ledger) Items() []Article {
	out := make([]Article, len(l.entries))
	copy(out, l.entries)
	return out
}

// add inserts a when its URL is absent and reports whether it was inserted
func (l *Ledger) add(a Article) bool {
	if a.URL == "" || l.Has(a.URL) {
		return false
	}
	l.index[a.URL] = len(l.entries)
	l.entries = append(l.entries, a)
	return true
}

// LedgerSnapshot is the persisted form of a LedgerStore
type LedgerSnapshot struct {
	Results []Article
	Known   []Article
	Failed  []Article
}

// LedgerStore owns the results, known and failed ledgers of one run
type LedgerStore struct {
	backend LedgerBackend
	results *Ledger
	known   *Ledger
	failed  *Ledger
}

// NewLedgerStore creates an empty store persisted through backend
func NewLedgerStore(backend LedgerBackend) *LedgerStore {
	return &LedgerStore{
		backend: backend,
		results: newLedger(LedgerResults, nil),
		known:   newLedger(LedgerKnown, nil),
		failed:  newLedger(LedgerFailed, nil),
	}
}

// LoadLedgerStore reconstructs a store from the backend's persisted state.
// Missing ledgers load as empty.
func LoadLedgerStore(backend LedgerBackend) (*LedgerStore, error) {
	snapshot, err := backend.Load()
	if err != nil {
		return nil, fmt.Errorf("loading ledgers: %w", err)
	}

	s := &LedgerStore{
		backend: backend,
		results: newLedger(LedgerResults, snapshot.Results),
		known:   newLedger(LedgerKnown, nil),
		failed:  newLedger(LedgerFailed, nil),
	}
	for _, a := range snapshot.Failed {
		if s.results.Has(a.URL) {
			slog.Warn("url in both results and failed, keeping result", "url", a.URL)
			continue
		}
		s.failed.add(a)
	}

	// Known-but-unresolved entries come from an interrupted persist; drop
	// them so the next ingest classifies them again.
	for _, a := range snapshot.Known {
		if !s.results.Has(a.URL) && !s.failed.Has(a.URL) {
			slog.Debug("dropping unresolved known entry", "url", a.URL)
			continue
		}
		s.known.add(seenEntry(a.URL, a.Title))
	}
	for _, l := range []*Ledger{s.results, s.failed} {
		for _, a := range l.entries {
			if s.known.add(seenEntry(a.URL, a.Title)) {
				slog.Debug("backfilled known entry", "url", a.URL)
			}
		}
	}

	return s, nil
}

func seenEntry(url, title string) Article {
	return Article{Title: title, URL: url}
}

// IsKnown reports whether url has already been evaluated
func (s *LedgerStore) IsKnown(url string) bool {
	return s.known.Has(url)
}

// RecordSeen marks url as evaluated. Repeated calls are no-ops.
func (s *LedgerStore) RecordSeen(url, title string) {
	s.known.add(seenEntry(url, title))
}

// Accept stores a scored article in results
func (s *LedgerStore) Accept(a Article) error {
	if s.failed.Has(a.URL) {
		return &DuplicateKeyError{URL: a.URL, Target: LedgerResults, Existing: LedgerFailed}
	}
	s.results.add(a)
	return nil
}

// Reject stores an article in failed, dropping any score it carries
func (s *LedgerStore) Reject(a Article) error {
	if s.results.Has(a.URL) {
		return &DuplicateKeyError{URL: a.URL, Target: LedgerFailed, Existing: LedgerResults}
	}
	a.Score = nil
	a.Group = ""
	s.failed.add(a)
	return nil
}

// MergeSorted returns results ordered by score, highest first. Ties keep
// insertion order.
func (s *LedgerStore) MergeSorted() []Article {
	items := s.results.Items()
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].ScoreValue() > items[j].ScoreValue()
	})
	return items
}

// SetSummary attaches a summary to a result and reports whether url was found
func (s *LedgerStore) SetSummary(url, summary string) bool {
	i, ok := s.results.index[url]
	if !ok {
		return false
	}
	s.results.entries[i].Summary = summary
	return true
}

// Unsummarized returns results lacking a summary, in score order
func (s *LedgerStore) Unsummarized() []Article {
	var out []Article
	for _, a := range s.MergeSorted() {
		if a.Summary == "" {
			out = append(out, a)
		}
	}
	return out
}

// Results returns the results ledger in insertion order
func (s *LedgerStore) Results() []Article { return s.results.Items() }

// Known returns the known ledger in insertion order
func (s *LedgerStore) Known() []Article { return s.known.Items() }

// Failed returns the failed ledger in insertion order
func (s *LedgerStore) Failed() []Article { return s.failed.Items() }

// Counts returns the size of each ledger
func (s *LedgerStore) Counts() map[LedgerName]int {
	return map[LedgerName]int{
		LedgerResults: s.results.Len(),
		LedgerKnown:   s.known.Len(),
		LedgerFailed:  s.failed.Len(),
	}
}

// Persist writes all three ledgers through the backend
func (s *LedgerStore) Persist() error {
	snapshot := LedgerSnapshot{
		Results: s.results.Items(),
		Known:   s.known.Items(),
		Failed:  s.failed.Items(),
	}
	if err := s.backend.Save(snapshot); err != nil {
		return fmt.Errorf("persisting ledgers: %w", err)
	}
	return nil
}
