package costs

import "unicode/utf8"

// EstimateTokens approximates a token count from text length
// (4 characters ≈ 1 token for GPT-class models). Every token estimate in the
// system goes through this heuristic so recorded costs stay comparable.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text) / 4
	if n < 1 {
		return 1
	}
	return n
}
