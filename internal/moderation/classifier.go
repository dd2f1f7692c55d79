package moderation

import "strings"

// Result is the outcome of classifying a piece of text.
type Result struct {
	Violating   bool
	MatchedTerm string
}

// Classifier decides whether listing text violates content policy.
// Implementations must be safe for concurrent use.
type Classifier interface {
	Classify(text string) Result
}

// DenylistClassifier flags text containing any denylisted term as a
// case-insensitive substring match.
type DenylistClassifier struct {
	terms []string
}

// NewDenylistClassifier builds a classifier from the given terms. Terms are
// lowercased once up front; empty terms are dropped.
func NewDenylistClassifier(terms []string) *DenylistClassifier {
	lowered := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		lowered = append(lowered, t)
	}
	return &DenylistClassifier{terms: lowered}
}

// Classify returns the first matched term in denylist order.
func (c *DenylistClassifier) Classify(text string) Result {
	lowered := strings.ToLower(text)
	for _, term := range c.terms {
		if strings.Contains(lowered, term) {
			return Result{Violating: true, MatchedTerm: term}
		}
	}
	return Result{}
}
