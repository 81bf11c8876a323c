package service

import "strings"

// normalizeAnswer folds free-text answers for comparison: trims, collapses
// inner whitespace and lowercases. Scoring and review must share this rule,
// otherwise "what was scored correct" and "what review displays as correct"
// drift apart.
func normalizeAnswer(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
