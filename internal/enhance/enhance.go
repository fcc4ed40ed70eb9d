// Package enhance holds the two optional external collaborators: semantic
// classification of content blocks and synthesis of filler front-matter text.
// Both are pluggable, bounded by timeouts, and never required: every caller
// carries a deterministic rule-based fallback.
package enhance

import (
	"context"
	"fmt"
)

// Classification is the closed result shape of the classification
// collaborator. Category values come from the front-matter vocabulary.
type Classification struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// Classifier classifies text blocks into front-matter categories.
// Implementations must tolerate being unreachable; callers degrade to
// rule-based classification on any error.
type Classifier interface {
	Classify(ctx context.Context, blocks []string) ([]Classification, error)
}

// Synthesizer generates filler text for a missing front-matter category.
// kind is a category identifier; fields carry user metadata for context.
type Synthesizer interface {
	Synthesize(ctx context.Context, kind string, fields map[string]string) (string, error)
}

// RetryableError indicates a transient collaborator failure worth retrying.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
