// Package text provides utilities for text processing shared across pipeline
// stages. Turkish content is full of multi-byte runes, so anything that
// counts or cuts "characters" must operate on runes, not bytes.
package text

// CountRunes counts the number of Unicode characters (runes) in the given text.
// This correctly handles Turkish letters, emoji and other multi-byte
// characters by counting runes instead of bytes.
func CountRunes(text string) int {
	return len([]rune(text))
}

// TruncateRunes cuts the text to at most limit runes. Cutting by bytes would
// split a multi-byte rune in half and corrupt the payload.
func TruncateRunes(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
