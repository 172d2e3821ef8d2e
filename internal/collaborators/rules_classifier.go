package collaborators

import (
	"context"
	"strings"
)

// RulesClassifier is the deterministic default IntentClassifier (
// Open Question 4): a small keyword/heuristic scorer, substitutable for a
// real LLM-backed implementation without the dispatcher changing at all.
type RulesClassifier struct{}

var searchKeywords = []string{
	"find", "looking for", "show me", "search", "match", "recommend", "suggest", "anyone who",
}

var inquiryKeywords = []string{
	"who is", "what does", "tell me about", "how old", "where does", "is he", "is she",
}

// Classify scores utterance against the keyword sets above. It always
// returns promptly and never blocks on I/O, satisfying the "complete
// within the router's deadline" contract trivially.
func (RulesClassifier) Classify(_ context.Context, utterance string, referencedUserIDs []int64) (Classification, error) {
	lower := strings.ToLower(utterance)

	if score, ok := bestMatch(lower, inquiryKeywords); ok {
		return Classification{Intent: "inquiry", Confidence: score, Reasoning: "matched an inquiry-style phrase"}, nil
	}

	if score, ok := bestMatch(lower, searchKeywords); ok {
		return Classification{Intent: "search", Confidence: score, Reasoning: "matched a search-style phrase"}, nil
	}

	if len(referencedUserIDs) > 0 {
		return Classification{Intent: "inquiry", Confidence: 0.5, Reasoning: "referenced a profile with no clear question"}, nil
	}

	return Classification{Intent: "casual", Confidence: 0.6, Reasoning: "no search or inquiry phrase matched"}, nil
}

// bestMatch reports the confidence of the strongest keyword hit, scaled by
// how much of the utterance the keyword phrase covers.
func bestMatch(lower string, keywords []string) (float64, bool) {
	best := 0.0
	found := false
	for _, kw := range keywords {
		if !strings.Contains(lower, kw) {
			continue
		}
		found = true
		score := 0.55 + 0.35*float64(len(kw))/float64(len(lower)+1)
		if score > 0.95 {
			score = 0.95
		}
		if score > best {
			best = score
		}
	}
	return best, found
}
