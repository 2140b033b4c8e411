package main

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/mmcdole/gofeed"
)

const (
	LabelResults  = "results"
	LabelUnscored = "unscored"

	feedContentType = "application/rss+xml; charset=utf-8"
)

// ErrFeedMissing is returned when a persisted feed document does not exist
var ErrFeedMissing = errors.New("feed document missing")

// FeedEntry is one item of a feed document
type FeedEntry struct {
	Title       string
	Link        string
	Description string
	Category    string
}

// FeedDocument is a rendered RSS 2.0 channel
type FeedDocument struct {
	Title       string
	Link        string
	Description string
	Entries     []FeedEntry
}

// Render builds a feed document from ledger items. Each entry carries label
// as its category and a description only when the item has a summary.
func Render(items []Article, label string, channel FeedSettings) *FeedDocument {
	doc := &FeedDocument{
		Title:       channel.Title,
		Link:        channel.Link,
		Description: channel.Description,
		Entries:     make([]FeedEntry, 0, len(items)),
	}
	for _, item := range items {
		doc.Entries = append(doc.Entries, FeedEntry{
			Title:       item.Title,
			Link:        item.URL,
			Description: item.Summary,
			Category:    label,
		})
	}
	return doc
}

// Merge returns a document with primary's channel metadata and primary's
// entries followed by secondary's
func Merge(primary, secondary *FeedDocument) *FeedDocument {
	merged := &FeedDocument{
		Title:       primary.Title,
		Link:        primary.Link,
		Description: primary.Description,
		Entries:     make([]FeedEntry, 0, len(primary.Entries)+len(secondary.Entries)),
	}
	merged.Entries = append(merged.Entries, primary.Entries...)
	merged.Entries = append(merged.Entries, secondary.Entries...)
	return merged
}

// UpdateDescriptions returns a copy of doc where every entry whose link
// matches a summarized article carries that summary
func UpdateDescriptions(doc *FeedDocument, articles []Article) *FeedDocument {
	summaries := make(map[string]string, len(articles))
	for _, a := range articles {
		if a.Summary != "" {
			summaries[a.URL] = a.Summary
		}
	}

	updated := *doc
	updated.Entries = make([]FeedEntry, len(doc.Entries))
	copy(updated.Entries, doc.Entries)
	for i, entry := range updated.Entries {
		if summary, ok := summaries[entry.Link]; ok {
			updated.Entries[i].Description = summary
		}
	}
	return &updated
}

type rssDocument struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description,omitempty"`
	Category    string `xml:"category,omitempty"`
}

// EncodeFeed writes doc as an RSS 2.0 document
func EncodeFeed(w io.Writer, doc *FeedDocument) error {
	out := rssDocument{
		Version: "2.0",
		Channel: rssChannel{
			Title:       doc.Title,
			Link:        doc.Link,
			Description: doc.Description,
			Items:       make([]rssItem, 0, len(doc.Entries)),
		},
	}
	for _, e := range doc.Entries {
		out.Channel.Items = append(out.Channel.Items, rssItem(e))
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("writing feed header: %w", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encoding feed: %w", err)
	}
	return enc.Close()
}

// ParseFeed reads an RSS document back into a FeedDocument
func ParseFeed(r io.Reader) (*FeedDocument, error) {
	feed, err := gofeed.NewParser().Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing feed: %w", err)
	}

	doc := &FeedDocument{
		Title:       feed.Title,
		Link:        feed.Link,
		Description: feed.Description,
		Entries:     make([]FeedEntry, 0, len(feed.Items)),
	}
	for _, item := range feed.Items {
		entry := FeedEntry{
			Title:       item.Title,
			Link:        item.Link,
			Description: item.Description,
		}
		if len(item.Categories) > 0 {
			entry.Category = item.Categories[0]
		}
		doc.Entries = append(doc.Entries, entry)
	}
	return doc, nil
}

// LoadFeedFile parses the feed at path. It returns ErrFeedMissing when the
// file does not exist.
func LoadFeedFile(path string) (*FeedDocument, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrFeedMissing, path)
	}
	if err != nil {
		return nil, fmt.Errorf("opening feed %s: %w", path, err)
	}
	defer f.Close()

	doc, err := ParseFeed(f)
	if err != nil {
		return nil, fmt.Errorf("loading feed %s: %w", path, err)
	}
	return doc, nil
}

// WriteFeedFile encodes doc and atomically replaces path
func WriteFeedFile(path string, doc *FeedDocument) error {
	var buf bytes.Buffer
	if err := EncodeFeed(&buf, doc); err != nil {
		return err
	}
	if err := writeFileAtomic(path, buf.Bytes()); err != nil {
		return fmt.Errorf("writing feed %s: %w", path, err)
	}
	return nil
}

// mergeFeedFiles loads and merges the primary and secondary feeds. A missing
// document is skipped with a warning; both missing yields ErrFeedMissing.
func mergeFeedFiles(primaryPath, secondaryPath string) (*FeedDocument, error) {
	primary, perr := LoadFeedFile(primaryPath)
	if perr != nil && !errors.Is(perr, ErrFeedMissing) {
		return nil, perr
	}
	secondary, serr := LoadFeedFile(secondaryPath)
	if serr != nil && !errors.Is(serr, ErrFeedMissing) {
		return nil, serr
	}

	switch {
	case primary == nil && secondary == nil:
		return nil, perr
	case primary == nil:
		slog.Warn("skipping feed in merge", "error", perr)
		return secondary, nil
	case secondary == nil:
		slog.Warn("skipping feed in merge", "error", serr)
		return primary, nil
	}
	return Merge(primary, secondary), nil
}

// updateFeedFile applies UpdateDescriptions to the persisted feed at path.
// It reports false, with a warning, when the feed does not exist.
func updateFeedFile(path string, articles []Article) (bool, error) {
	doc, err := LoadFeedFile(path)
	if errors.Is(err, ErrFeedMissing) {
		slog.Warn("skipping description update", "error", err)
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := WriteFeedFile(path, UpdateDescriptions(doc, articles)); err != nil {
		return false, err
	}
	return true, nil
}
