package utils

// Truncate shortens text to at most 'limit' characters and appends an
// ellipsis only when something was actually cut off. Character-based, so
// multi-byte runes are never split in half.
func Truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
