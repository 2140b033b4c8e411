package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ArticleProcessor drives ingest and summarize over run directories
type ArticleProcessor struct {
	settings   *Settings
	locator    *RunLocator
	source     SourceFetcher
	classifier *Classifier
	summarizer Summarizer
	throttle   Throttle
	now        func() time.Time
}

// NewArticleProcessor wires the pipeline collaborators. throttle paces
// summarizer calls.
func NewArticleProcessor(settings *Settings, source SourceFetcher, classifier *Classifier, summarizer Summarizer, throttle Throttle) *ArticleProcessor {
	if throttle == nil {
		throttle = noThrottle{}
	}
	return &ArticleProcessor{
		settings:   settings,
		locator:    NewRunLocator(settings.DataDirectory),
		source:     source,
		classifier: classifier,
		summarizer: summarizer,
		throttle:   throttle,
		now:        time.Now,
	}
}

// openStore loads the ledgers of runDir. The caller closes the backend.
func (ap *ArticleProcessor) openStore(runDir string) (*LedgerStore, LedgerBackend, error) {
	backend, err := OpenBackend(ap.settings.Store.Backend, runDir)
	if err != nil {
		return nil, nil, fmt.Errorf("opening ledger backend: %w", err)
	}
	store, err := LoadLedgerStore(backend)
	if err != nil {
		backend.Close()
		return nil, nil, err
	}
	return store, backend, nil
}

// Ingest fetches every configured page, classifies unseen candidates and
// persists the ledgers before regenerating the feeds. Ledgers are persisted
// even when the run is interrupted or aborted.
func (ap *ArticleProcessor) Ingest(ctx context.Context, newRun bool) (*IngestReport, error) {
	runDir, created, err := ap.locator.Resolve(newRun)
	if err != nil {
		return nil, fmt.Errorf("resolving run directory: %w", err)
	}
	slog.Info("ingesting", "run", runDir, "new", created)

	store, backend, err := ap.openStore(runDir)
	if err != nil {
		return nil, err
	}
	defer backend.Close()

	report := &IngestReport{RunDir: runDir}
	scrapeDir := filepath.Join(runDir, scrapePrefix+NewRunID(ap.now()))

	var runErr error
	for page := 1; page <= ap.settings.Source.Pages; page++ {
		if ctx.Err() != nil {
			break
		}

		slog.Info("→ Fetching page", "page", page)
		candidates, err := ap.source.FetchPage(ctx, page)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			slog.Warn("skipping page", "page", page, "error", err)
			report.FailedPages++
			continue
		}
		report.Pages++
		ap.snapshotPage(scrapeDir, page, candidates)

		if err := ap.processPage(ctx, store, candidates, report); err != nil {
			runErr = err
			break
		}
	}
	if runErr == nil {
		runErr = ctx.Err()
	}

	if err := store.Persist(); err != nil {
		return report, errors.Join(err, runErr)
	}
	if err := ap.renderFeeds(runDir, store); err != nil {
		slog.Error("regenerating feeds", "run", runDir, "error", err)
	}

	slog.Info("✓ Ingest complete",
		"run", runDir,
		"pages", report.Pages,
		"failed_pages", report.FailedPages,
		"accepted", report.Accepted,
		"rejected", report.Rejected,
		"unparsable", report.Unparsable,
		"skipped", report.Skipped)
	return report, runErr
}

// processPage classifies the page's candidates in order. It stops early on
// cancellation, leaving the in-flight item unresolved.
func (ap *ArticleProcessor) processPage(ctx context.Context, store *LedgerStore, candidates []Candidate, report *IngestReport) error {
	groups := ap.settings.Classifier.TagGroups
	threshold := ap.settings.Classifier.Threshold

	for _, c := range candidates {
		if ctx.Err() != nil {
			return nil
		}
		report.Candidates++
		if c.URL == "" {
			continue
		}
		if store.IsKnown(c.URL) {
			report.Skipped++
			continue
		}
		store.RecordSeen(c.URL, c.Title)

		article := Article{Title: c.Title, URL: c.URL}
		verdict := ap.classifier.Classify(ctx, article, groups, threshold)
		if ctx.Err() != nil {
			return nil
		}

		switch verdict.Kind {
		case VerdictAccepted:
			article.Score = floatPtr(verdict.Score)
			article.Group = verdict.Group
			if err := store.Accept(article); err != nil {
				return err
			}
			report.Accepted++
			slog.Info("✓ Accepted", "title", article.Title, "score", verdict.Score, "group", verdict.Group)
		case VerdictUnparsable:
			if err := store.Reject(article); err != nil {
				return err
			}
			report.Unparsable++
		default:
			if err := store.Reject(article); err != nil {
				return err
			}
			report.Rejected++
			slog.Debug("rejected", "title", article.Title)
		}
	}
	return nil
}

// snapshotPage keeps the raw candidates of a page next to the ledgers
func (ap *ArticleProcessor) snapshotPage(scrapeDir string, page int, candidates []Candidate) {
	if err := os.MkdirAll(scrapeDir, 0755); err != nil {
		slog.Warn("creating scrape directory", "error", err)
		return
	}
	if candidates == nil {
		candidates = []Candidate{}
	}
	data, err := json.MarshalIndent(candidates, "", "  ")
	if err != nil {
		slog.Warn("encoding page snapshot", "page", page, "error", err)
		return
	}
	path := filepath.Join(scrapeDir, fmt.Sprintf(pageSnapshot, page))
	if err := writeFileAtomic(path, data); err != nil {
		slog.Warn("writing page snapshot", "page", page, "error", err)
	}
}

// renderFeeds regenerates results.rss and failed.rss from the ledgers
func (ap *ArticleProcessor) renderFeeds(runDir string, store *LedgerStore) error {
	results := Render(store.MergeSorted(), LabelResults, ap.settings.Feed)
	if err := WriteFeedFile(filepath.Join(runDir, resultsFeed), results); err != nil {
		return err
	}
	failed := Render(store.Failed(), LabelUnscored, ap.settings.Feed)
	return WriteFeedFile(filepath.Join(runDir, failedFeed), failed)
}

// Summarize summarizes every result of the newest run that lacks a summary,
// persists the ledgers and updates descriptions in results.rss
func (ap *ArticleProcessor) Summarize(ctx context.Context) (*SummarizeReport, error) {
	runDir, err := ap.locator.Newest()
	if err != nil {
		return nil, err
	}

	store, backend, err := ap.openStore(runDir)
	if err != nil {
		return nil, err
	}
	defer backend.Close()

	report := &SummarizeReport{RunDir: runDir}
	pending := store.Unsummarized()
	slog.Info("summarizing", "run", runDir, "pending", len(pending))

	for i, article := range pending {
		if err := ap.throttle.Wait(ctx); err != nil {
			break
		}

		slog.Info("→ Summarizing", "n", i+1, "of", len(pending), "url", article.URL)
		report.Attempted++
		summary, err := ap.summarizer.Summarize(ctx, article)
		if err == nil && strings.TrimSpace(summary) == "" {
			err = ErrEmptySummary
		}
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			slog.Warn("unable to summarize", "url", article.URL, "error", err)
			report.Failed++
			continue
		}
		store.SetSummary(article.URL, summary)
		report.Summarized++
	}

	if err := store.Persist(); err != nil {
		return report, err
	}
	if _, err := updateFeedFile(filepath.Join(runDir, resultsFeed), store.Results()); err != nil {
		slog.Error("updating feed descriptions", "run", runDir, "error", err)
	}

	slog.Info("✓ Summarize complete", "run", runDir, "summarized", report.Summarized, "failed", report.Failed)
	return report, ctx.Err()
}

// RunInfo describes one run directory
type RunInfo struct {
	Dir    string
	Counts map[LedgerName]int
}

// ListRuns returns every run directory, newest first, with ledger sizes
func (ap *ArticleProcessor) ListRuns() ([]RunInfo, error) {
	dirs, err := ap.locator.List()
	if err != nil {
		return nil, err
	}

	runs := make([]RunInfo, 0, len(dirs))
	for _, dir := range dirs {
		store, backend, err := ap.openStore(dir)
		if err != nil {
			return nil, fmt.Errorf("reading run %s: %w", dir, err)
		}
		runs = append(runs, RunInfo{Dir: dir, Counts: store.Counts()})
		backend.Close()
	}
	return runs, nil
}
