package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// RelevanceOracle answers a relevance prompt with free text that should
// contain a score
type RelevanceOracle interface {
	Ask(ctx context.Context, prompt string) (string, error)
}

// Classifier scores articles against ordered tag groups
type Classifier struct {
	oracle   RelevanceOracle
	throttle Throttle
	timeout  time.Duration
}

// NewClassifier creates a classifier. A nil throttle never waits and a
// non-positive timeout leaves oracle calls unbounded.
func NewClassifier(oracle RelevanceOracle, throttle Throttle, timeout time.Duration) *Classifier {
	if throttle == nil {
		throttle = noThrottle{}
	}
	return &Classifier{
		oracle:   oracle,
		throttle: throttle,
		timeout:  timeout,
	}
}

// RelevancePrompt builds the oracle query for one group and title
func RelevancePrompt(group TagGroup, title string) string {
	return fmt.Sprintf(
		"Given the following topics: %s. Please rate the relevance of the article %q to these topics on a scale from 0 to 1.",
		strings.Join(group.Topics, ", "), title)
}

// Classify walks groups in order and accepts on the first score at or above
// threshold. Later groups are not queried once one qualifies. If no group
// qualifies the verdict is Unparsable when every answer lacked a score and
// Rejected otherwise. No groups means Rejected.
func (c *Classifier) Classify(ctx context.Context, article Article, groups []TagGroup, threshold float64) Verdict {
	parsedAny := false
	for _, group := range groups {
		score, ok := c.score(ctx, group, article)
		if !ok {
			continue
		}
		parsedAny = true

		slog.Debug("scored", "url", article.URL, "group", group.Name, "score", score)
		if score >= threshold {
			return Verdict{Kind: VerdictAccepted, Score: score, Group: group.Name}
		}
	}

	if len(groups) > 0 && !parsedAny {
		return Verdict{Kind: VerdictUnparsable}
	}
	return Verdict{Kind: VerdictRejected}
}

// score asks the oracle about one group. Oracle errors and timeouts count as
// an unparsable answer.
func (c *Classifier) score(ctx context.Context, group TagGroup, article Article) (float64, bool) {
	if err := c.throttle.Wait(ctx); err != nil {
		slog.Warn("throttle wait failed", "url", article.URL, "group", group.Name, "error", err)
		return 0, false
	}

	callCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	answer, err := c.oracle.Ask(callCtx, RelevancePrompt(group, article.Title))
	if err != nil {
		slog.Warn("oracle call failed", "url", article.URL, "group", group.Name, "error", err)
		return 0, false
	}

	score, ok := ParseScore(answer)
	if !ok {
		slog.Warn("no score in oracle answer", "title", article.Title, "group", group.Name, "answer", strings.TrimSpace(answer))
	}
	return score, ok
}
