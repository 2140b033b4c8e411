package main

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// answerByTopic replies with the answer of the first topic found in the prompt
func answerByTopic(answers map[string]string) func(context.Context, string) (string, error) {
	return func(_ context.Context, prompt string) (string, error) {
		for topic, answer := range answers {
			if strings.Contains(prompt, topic) {
				return answer, nil
			}
		}
		return "0", nil
	}
}

var classifierGroups = []TagGroup{
	{Name: "A", Topics: []string{"alpha"}},
	{Name: "B", Topics: []string{"beta"}},
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		answers   map[string]string
		groups    []TagGroup
		threshold float64
		want      Verdict
		wantCalls int
	}{
		{
			name:      "first qualifying group wins over a higher later score",
			answers:   map[string]string{"alpha": "0.61", "beta": "0.95"},
			groups:    classifierGroups,
			threshold: 0.6,
			want:      Verdict{Kind: VerdictAccepted, Score: 0.61, Group: "A"},
			wantCalls: 1,
		},
		{
			name:      "later group qualifies",
			answers:   map[string]string{"alpha": "0.2", "beta": "Relevance: 0.9"},
			groups:    classifierGroups,
			threshold: 0.6,
			want:      Verdict{Kind: VerdictAccepted, Score: 0.9, Group: "B"},
			wantCalls: 2,
		},
		{
			name:      "score equal to threshold is accepted",
			answers:   map[string]string{"alpha": "0.6"},
			groups:    classifierGroups[:1],
			threshold: 0.6,
			want:      Verdict{Kind: VerdictAccepted, Score: 0.6, Group: "A"},
			wantCalls: 1,
		},
		{
			name:      "all below threshold",
			answers:   map[string]string{"alpha": "0.1", "beta": "0.5"},
			groups:    classifierGroups,
			threshold: 0.6,
			want:      Verdict{Kind: VerdictRejected},
			wantCalls: 2,
		},
		{
			name:      "no answer parses",
			answers:   map[string]string{"alpha": "no idea", "beta": "cannot say"},
			groups:    classifierGroups,
			threshold: 0.6,
			want:      Verdict{Kind: VerdictUnparsable},
			wantCalls: 2,
		},
		{
			name:      "one parsed answer below threshold is a rejection",
			answers:   map[string]string{"alpha": "no idea", "beta": "0.3"},
			groups:    classifierGroups,
			threshold: 0.6,
			want:      Verdict{Kind: VerdictRejected},
			wantCalls: 2,
		},
		{
			name:      "no groups",
			groups:    nil,
			threshold: 0.6,
			want:      Verdict{Kind: VerdictRejected},
			wantCalls: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oracle := &fakeOracle{respond: answerByTopic(tt.answers)}
			classifier := NewClassifier(oracle, nil, 0)

			got := classifier.Classify(context.Background(), Article{Title: "Story", URL: "https://example.com"}, tt.groups, tt.threshold)

			assert.Equal(t, tt.want.Kind, got.Kind)
			assert.Equal(t, tt.want.Group, got.Group)
			assert.InDelta(t, tt.want.Score, got.Score, 1e-9)
			assert.Equal(t, tt.wantCalls, oracle.calls())
		})
	}
}

func TestClassifyOracleFailuresAreUnparsable(t *testing.T) {
	tests := []struct {
		name    string
		respond func(context.Context, string) (string, error)
	}{
		{
			name: "oracle error",
			respond: func(context.Context, string) (string, error) {
				return "", errors.New("service unavailable")
			},
		},
		{
			name: "oracle timeout",
			respond: func(ctx context.Context, _ string) (string, error) {
				<-ctx.Done()
				return "", ctx.Err()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oracle := &fakeOracle{respond: tt.respond}
			classifier := NewClassifier(oracle, nil, 20*time.Millisecond)

			got := classifier.Classify(context.Background(), Article{Title: "Story"}, classifierGroups, 0.6)

			assert.Equal(t, VerdictUnparsable, got.Kind)
			assert.Equal(t, 2, oracle.calls())
		})
	}
}

func TestClassifyWaitsOnThrottlePerCall(t *testing.T) {
	throttle := &countingThrottle{}
	oracle := &fakeOracle{respond: answerByTopic(map[string]string{"alpha": "0.1", "beta": "0.2"})}

	NewClassifier(oracle, throttle, 0).Classify(context.Background(), Article{Title: "Story"}, classifierGroups, 0.6)

	assert.Equal(t, 2, throttle.waits)
}

func TestRelevancePrompt(t *testing.T) {
	prompt := RelevancePrompt(TagGroup{Name: "retro", Topics: []string{"amiga", "c64"}}, `The "best" Amiga`)

	require.Contains(t, prompt, "amiga, c64")
	assert.Contains(t, prompt, `"The \"best\" Amiga"`)
	assert.Contains(t, prompt, "scale from 0 to 1")
}
