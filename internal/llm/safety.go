package llm

import "strings"

var unsafeKeywords = []string{"suicide", "kill", "murder", "bomb", "terrorist", "hack"}

// CheckSafety reports whether message is safe to forward to a provider.
// Ported from original_source/services/prompt_service.py's check_safety.
func CheckSafety(message string) bool {
	lower := strings.ToLower(message)
	for _, kw := range unsafeKeywords {
		if strings.Contains(lower, kw) {
			return false
		}
	}
	return true
}
