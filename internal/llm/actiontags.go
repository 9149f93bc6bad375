package llm

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	leadCaptureTag = regexp.MustCompile(`(?s)\[ACTION:\s*LEAD_CAPTURE\s*\|\s*(\{.*?\})\s*\]`)
	scheduleTag    = regexp.MustCompile(`\[ACTION:\s*SCHEDULE\s*\]`)
	analysisTag    = regexp.MustCompile(`\[ANALYSIS:\s*([^|]+)\|\s*([^\]]+)\]`)
)

// ActionTags is the structured result of parsing the action-tag protocol
// that BuildSystemPrompt instructs the model to append to its response
// (spec §11).
type ActionTags struct {
	LeadCapture map[string]any
	Schedule    bool
	Intent      string
	Sentiment   string
	CleanText   string
}

// ParseActionTags strips the action tags out of a raw model response and
// returns both the display-ready text and the structured actions. A
// malformed LEAD_CAPTURE payload is ignored rather than surfaced as an
// error: the tags are advisory, the cleaned text is always returned.
func ParseActionTags(raw string) ActionTags {
	out := ActionTags{CleanText: raw}

	if m := leadCaptureTag.FindStringSubmatch(raw); m != nil {
		var data map[string]any
		if err := json.Unmarshal([]byte(m[1]), &data); err == nil {
			out.LeadCapture = data
		}
		out.CleanText = leadCaptureTag.ReplaceAllString(out.CleanText, "")
	}

	if scheduleTag.MatchString(out.CleanText) {
		out.Schedule = true
		out.CleanText = scheduleTag.ReplaceAllString(out.CleanText, "")
	}

	if m := analysisTag.FindStringSubmatch(raw); m != nil {
		out.Intent = strings.TrimSpace(m[1])
		out.Sentiment = strings.TrimSpace(m[2])
		out.CleanText = analysisTag.ReplaceAllString(out.CleanText, "")
	}

	out.CleanText = strings.TrimSpace(out.CleanText)
	return out
}
