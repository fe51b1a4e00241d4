// Package intent decides whether a user message should trigger a web search
// before completion. The heuristic is deliberately a standalone function with
// an explicit contract so it can be swapped or tested independently of any
// handler.
package intent

import (
	"fmt"
	"regexp"
	"strings"
)

// Decision is the classifier output.
type Decision struct {
	TriggerSearch bool   `json:"triggerSearch"`
	Rationale     string `json:"rationale"`
}

// Classifier maps raw user text to a search decision. Detect is the default;
// callers hold a Classifier so the heuristic stays pluggable.
type Classifier func(text string) Decision

// browsingKeywords are phrases that signal the user wants fresh information
// from the web rather than a model answer.
var browsingKeywords = []string{
	"search for",
	"browse",
	"find information about",
	"latest news",
	"current",
	"recent",
}

var urlPattern = regexp.MustCompile(`https?://\S+`)

// Detect reports whether the text should trigger a web search. A message
// containing a browsing keyword or a URL triggers; anything else does not.
func Detect(text string) Decision {
	lower := strings.ToLower(text)

	for _, kw := range browsingKeywords {
		if strings.Contains(lower, kw) {
			return Decision{
				TriggerSearch: true,
				Rationale:     fmt.Sprintf("matched keyword %q", kw),
			}
		}
	}

	if urlPattern.MatchString(text) {
		return Decision{TriggerSearch: true, Rationale: "contains url"}
	}

	return Decision{Rationale: "no browsing signal"}
}
