package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	youtubeCallDelay = 2 * time.Second
	youtubeRetries   = 5
)

// YouTubeHandler summarizes videos from their transcript instead of the
// watch page. It is only active when a transcript API is configured.
type YouTubeHandler struct {
	apiKey   string
	apiURL   string
	cacheDir string
	client   *http.Client
	throttle Throttle
	backoff  func(attempt int) time.Duration
}

// NewYouTubeHandlerFromEnv reads YOUTUBE_TRANSCRIPT_API_KEY and
// YOUTUBE_TRANSCRIPT_API_URL
func NewYouTubeHandlerFromEnv(cacheDir string) *YouTubeHandler {
	return &YouTubeHandler{
		apiKey:   os.Getenv("YOUTUBE_TRANSCRIPT_API_KEY"),
		apiURL:   os.Getenv("YOUTUBE_TRANSCRIPT_API_URL"),
		cacheDir: cacheDir,
		client:   &http.Client{Timeout: 30 * time.Second},
		throttle: NewIntervalThrottle(youtubeCallDelay),
		backoff:  rateLimitBackoff,
	}
}

func (h *YouTubeHandler) configured() bool {
	return h.apiKey != "" && h.apiURL != ""
}

func (h *YouTubeHandler) CanHandle(videoURL string, resp *http.Response) bool {
	if !h.configured() {
		return false
	}
	_, err := extractVideoID(videoURL)
	return err == nil
}

func (h *YouTubeHandler) Handle(videoURL string, resp *http.Response) (*ContentResult, error) {
	ctx := context.Background()
	if resp != nil && resp.Request != nil {
		ctx = resp.Request.Context()
	}

	transcript, err := h.getTranscript(ctx, videoURL)
	if err != nil {
		return nil, fmt.Errorf("fetching YouTube transcript: %w", err)
	}
	return &ContentResult{Text: transcript}, nil
}

// getTranscript returns the cached transcript or fetches and caches it
func (h *YouTubeHandler) getTranscript(ctx context.Context, videoURL string) (string, error) {
	videoID, err := extractVideoID(videoURL)
	if err != nil {
		return "", fmt.Errorf("extracting video ID: %w", err)
	}

	cachePath := filepath.Join(h.cacheDir, "youtube", videoID)
	if content, err := os.ReadFile(cachePath); err == nil {
		return string(content), nil
	}

	transcript, err := h.fetchTranscriptWithRetries(ctx, videoID, youtubeRetries)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(cachePath), 0755); err != nil {
		slog.Warn("creating transcript cache directory", "error", err)
	} else if err := os.WriteFile(cachePath, []byte(transcript), 0644); err != nil {
		slog.Warn("caching transcript", "video", videoID, "error", err)
	}

	return transcript, nil
}

func extractVideoID(videoURL string) (string, error) {
	parsedURL, err := url.Parse(videoURL)
	if err != nil {
		return "", err
	}

	// Validate YouTube domain
	if !strings.Contains(parsedURL.Host, "youtube.com") && !strings.Contains(parsedURL.Host, "youtu.be") {
		return "", errors.New("not a YouTube URL")
	}

	// Handle youtu.be URLs
	if strings.Contains(parsedURL.Host, "youtu.be") {
		id := strings.TrimPrefix(parsedURL.Path, "/")
		if id == "" {
			return "", errors.New("no video ID found in URL")
		}
		return id, nil
	}

	// Handle youtube.com URLs
	videoID := parsedURL.Query().Get("v")
	if videoID == "" {
		return "", errors.New("no video ID found in URL")
	}
	return videoID, nil
}

// rateLimitBackoff is 2^attempt seconds plus a growing half-second jitter
func rateLimitBackoff(attempt int) time.Duration {
	backoff := time.Duration(1<<uint(attempt)) * time.Second
	jitter := time.Duration(float64(time.Second) * 0.5 * (1.0 + float64(attempt)))
	return backoff + jitter
}

func (h *YouTubeHandler) fetchTranscriptWithRetries(ctx context.Context, videoID string, retries int) (string, error) {
	var lastErr error
	for i := 0; i < retries; i++ {
		transcript, err := h.fetchTranscript(ctx, videoID)
		if err == nil {
			return transcript, nil
		}
		lastErr = err

		var httpErr *HTTPError
		isRateLimit := errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusTooManyRequests
		if !isRateLimit {
			return "", err
		}

		if i < retries-1 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(h.backoff(i)):
			}
		}
	}
	return "", fmt.Errorf("exceeded max retries after %d attempts: %w", retries, lastErr)
}

func (h *YouTubeHandler) fetchTranscript(ctx context.Context, videoID string) (string, error) {
	if err := h.throttle.Wait(ctx); err != nil {
		return "", err
	}

	videoURL := fmt.Sprintf("https://www.youtube.com/watch?v=%s", videoID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.apiURL, nil)
	if err != nil {
		return "", err
	}

	q := req.URL.Query()
	q.Add("url", videoURL)
	q.Add("api_key", h.apiKey)
	q.Add("text", "true")
	req.URL.RawQuery = q.Encode()

	resp, err := h.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	slog.Debug("YouTube transcript API response", "status", resp.StatusCode, "video", videoID)

	if resp.StatusCode != http.StatusOK {
		return "", &HTTPError{StatusCode: resp.StatusCode, URL: videoURL}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}
