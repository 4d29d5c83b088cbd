// Package textfmt provides the deterministic local text transforms used when
// the remote text-generation collaborator is unavailable, plus small display
// helpers for transcripts and notes.
package textfmt

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Format normalizes a raw transcript: each sentence is capitalized and given
// terminal punctuation. It is the fallback applied when generation fails, so
// the user is never left with no output.
func Format(text string) string {
	sentences := splitSentences(text)

	formatted := make([]string, 0, len(sentences))
	for _, sentence := range sentences {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}

		r, size := utf8.DecodeRuneInString(sentence)
		if unicode.IsLower(r) {
			sentence = string(unicode.ToUpper(r)) + sentence[size:]
		}

		if !strings.ContainsAny(sentence[len(sentence)-1:], ".!?") {
			sentence += "."
		}

		formatted = append(formatted, sentence)
	}

	return strings.Join(formatted, " ")
}

// splitSentences breaks text after terminal punctuation followed by
// whitespace, keeping the punctuation with the preceding sentence.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i, r := range runes {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if i+1 >= len(runes) || unicode.IsSpace(runes[i+1]) {
				sentences = append(sentences, current.String())
				current.Reset()
			}
		}
	}
	if current.Len() > 0 {
		sentences = append(sentences, current.String())
	}
	return sentences
}

// DurationLabel renders elapsed seconds as mm:ss.
func DurationLabel(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// TitleFromContent derives a note title from the first few words of its
// content, ellipsized when truncated.
func TitleFromContent(content string, maxWords int) string {
	if maxWords <= 0 {
		maxWords = 6
	}
	words := strings.Fields(content)
	if len(words) == 0 {
		return "Untitled note"
	}
	if len(words) <= maxWords {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
