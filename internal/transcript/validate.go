package transcript

import "strings"

// Tokens considered placeholders rather than speech.
var placeholderTokens = map[string]struct{}{
	"[inaudible]":      {},
	"[noise]":          {},
	"[silence]":        {},
	"[unintelligible]": {},
}

const (
	minUsableChars = 30
	minUsableWords = 5
	// Above this fraction of placeholder tokens the transcript carries no
	// analyzable speech.
	maxPlaceholderFraction = 0.7
)

// Usable reports whether text carries enough real speech for downstream
// analysis, with a reason when it does not.
func Usable(text string) (bool, string) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false, "empty transcript"
	}
	if len(trimmed) < minUsableChars {
		return false, "transcript shorter than minimum length"
	}

	words := strings.Fields(trimmed)
	if len(words) < minUsableWords {
		return false, "transcript has too few words"
	}

	placeholders := 0
	for _, w := range words {
		if _, ok := placeholderTokens[strings.ToLower(w)]; ok {
			placeholders++
		}
	}
	if float64(placeholders)/float64(len(words)) > maxPlaceholderFraction {
		return false, "transcript is mostly placeholder tokens"
	}

	return true, ""
}
