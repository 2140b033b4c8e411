package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Candidate is one entry of a listing page
type Candidate struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// SourceFetcher returns the candidates listed on a page. Pages start at 1.
type SourceFetcher interface {
	FetchPage(ctx context.Context, page int) ([]Candidate, error)
}

// HackerNewsFetcher scrapes the Hacker News front page listing
type HackerNewsFetcher struct {
	base   *url.URL
	client *http.Client
}

// NewHackerNewsFetcher creates a fetcher for the listing at baseURL
func NewHackerNewsFetcher(baseURL string, client *http.Client) (*HackerNewsFetcher, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing source URL %s: %w", baseURL, err)
	}
	if client == nil {
		client = &http.Client{}
	}
	return &HackerNewsFetcher{base: base, client: client}, nil
}

func (f *HackerNewsFetcher) pageURL(page int) string {
	u := *f.base
	q := u.Query()
	q.Set("p", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String()
}

// FetchPage downloads and parses one listing page
func (f *HackerNewsFetcher) FetchPage(ctx context.Context, page int) ([]Candidate, error) {
	pageURL := f.pageURL(page)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request for %s: %w", pageURL, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPError{StatusCode: resp.StatusCode, URL: pageURL}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", pageURL, err)
	}
	return f.parseListing(doc), nil
}

// parseListing extracts title links from story rows. Relative links such as
// "item?id=1" are resolved against the source URL.
func (f *HackerNewsFetcher) parseListing(doc *goquery.Document) []Candidate {
	var candidates []Candidate
	doc.Find("tr.athing").Each(func(_ int, row *goquery.Selection) {
		link := row.Find("span.titleline > a").First()
		href, ok := link.Attr("href")
		title := strings.TrimSpace(link.Text())
		if !ok || title == "" {
			return
		}

		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		candidates = append(candidates, Candidate{
			Title: title,
			URL:   f.base.ResolveReference(ref).String(),
		})
	})
	return candidates
}
