package main

// Article is a single listing entry. URL is the identity key.
type Article struct {
	Title   string   `json:"title"`
	URL     string   `json:"url"`
	Score   *float64 `json:"score,omitempty"`
	Summary string   `json:"summary,omitempty"`
	Group   string   `json:"group,omitempty"`
}

// HasScore reports whether the article was accepted by the classifier
func (a Article) HasScore() bool {
	return a.Score != nil
}

// ScoreValue returns the score or 0 when unscored
func (a Article) ScoreValue() float64 {
	if a.Score == nil {
		return 0
	}
	return *a.Score
}

// TagGroup is a named set of topics used as one relevance query
type TagGroup struct {
	Name   string   `yaml:"name"`
	Topics []string `yaml:"topics"`
}

// VerdictKind is the outcome class of a classification
type VerdictKind string

const (
	VerdictAccepted   VerdictKind = "accepted"
	VerdictRejected   VerdictKind = "rejected"
	VerdictUnparsable VerdictKind = "unparsable"
)

// Verdict is the result of classifying one article.
// Score and Group are only meaningful when Kind is VerdictAccepted.
type Verdict struct {
	Kind  VerdictKind
	Score float64
	Group string
}

// IngestReport summarizes one ingest invocation
type IngestReport struct {
	RunDir      string
	Pages       int
	FailedPages int
	Candidates  int
	Skipped     int
	Accepted    int
	Rejected    int
	Unparsable  int
}

// SummarizeReport summarizes one summarize invocation
type SummarizeReport struct {
	RunDir     string
	Attempted  int
	Summarized int
	Failed     int
}

func floatPtr(v float64) *float64 {
	return &v
}
