package generator

import "strings"

// ReviewClassifier decides from the quality reviewer's text whether a revision pass runs.
type ReviewClassifier interface {
	NeedsRevision(review string) bool
}

// ClassifierFunc adapts a predicate to ReviewClassifier.
type ClassifierFunc func(review string) bool

func (f ClassifierFunc) NeedsRevision(review string) bool { return f(review) }

// MarkerClassifier triggers on any marker substring. It is a textual heuristic:
// a review that mentions a marker in passing ("没有发现问题") still triggers a revision.
type MarkerClassifier struct {
	Markers []string
}

// DefaultClassifier looks for “问题” (issue found) or “建议” (suggestion given).
func DefaultClassifier() MarkerClassifier {
	return MarkerClassifier{Markers: []string{"问题", "建议"}}
}

func (c MarkerClassifier) NeedsRevision(review string) bool {
	for _, m := range c.Markers {
		if m != "" && strings.Contains(review, m) {
			return true
		}
	}
	return false
}
