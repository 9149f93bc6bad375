package llm

import (
	"regexp"
	"strings"
)

// IntentRule is one keyword-matched entry in an intent table. Order matters:
// the first rule with a matching keyword wins.
type IntentRule struct {
	Name     string
	Keywords []string
}

// DefaultIntents is the built-in rule-based intent table, ported from
// original_source/services/prompt_service.py's intents.json.
var DefaultIntents = []IntentRule{
	{Name: "booking_request", Keywords: []string{"book", "appointment", "schedule", "reserve"}},
	{Name: "pricing", Keywords: []string{"price", "cost", "how much", "pricing"}},
	{Name: "support", Keywords: []string{"help", "issue", "problem", "broken"}},
	{Name: "greeting", Keywords: []string{"hello", "hi", "hey"}},
}

// DetectIntent is a rule-based keyword matcher ported from
// prompt_service.py's detect_intent. Returns "general" when nothing
// matches. A nil rules table falls back to DefaultIntents.
func DetectIntent(message string, rules []IntentRule) string {
	if rules == nil {
		rules = DefaultIntents
	}
	lower := strings.ToLower(message)
	for _, rule := range rules {
		for _, kw := range rule.Keywords {
			if matchesWord(lower, kw) {
				return rule.Name
			}
		}
	}
	return "general"
}

func matchesWord(haystack, needle string) bool {
	pattern := `\b` + regexp.QuoteMeta(needle) + `\b`
	matched, _ := regexp.MatchString(pattern, haystack)
	return matched
}

var positiveWords = []string{"great", "thank", "love", "good", "amazing", "help", "cool", "nice", "awesome"}
var negativeWords = []string{"bad", "terrible", "hate", "slow", "broken", "worst", "stupid", "useless", "fail"}

// AnalyzeSentiment is a keyword-count heuristic ported from
// prompt_service.py's analyze_sentiment.
func AnalyzeSentiment(message string) string {
	lower := strings.ToLower(message)
	pos, neg := 0, 0
	for _, w := range positiveWords {
		if strings.Contains(lower, w) {
			pos++
		}
	}
	for _, w := range negativeWords {
		if strings.Contains(lower, w) {
			neg++
		}
	}
	switch {
	case pos > neg:
		return "Positive"
	case neg > pos:
		return "Negative"
	default:
		return "Neutral"
	}
}
