// Package prompt turns words and their clues into classification prompts
// for the embedding provider.
package prompt

import (
	"strings"
)

// DefaultTemplate is the question asked for every word. Each {word} is
// replaced with the canonical word text.
const DefaultTemplate = "I am making a wordlist for crossword puzzle constructors. " +
	"Do you think you would be able to guess this word '{word}' if it was used in a puzzle? " +
	"Respond NO if you think '{word}' is too obscure and YES if you think '{word}' is common."

// DefaultMaxClues is the number of clue lines appended to a prompt
const DefaultMaxClues = 6

const clueHeader = "\n\nHere are some possible clues: \n"

// Encoder builds prompts. The zero value uses the defaults.
type Encoder struct {
	Template string
	MaxClues int
}

// NewEncoder creates an Encoder, falling back to defaults for empty values
func NewEncoder(template string, maxClues int) *Encoder {
	if template == "" {
		template = DefaultTemplate
	}
	if maxClues <= 0 {
		maxClues = DefaultMaxClues
	}
	return &Encoder{Template: template, MaxClues: maxClues}
}

// Encode returns the prompt for word. Blank clues are skipped and at most
// MaxClues are included, in the order given.
func (e *Encoder) Encode(word string, clues []string) string {
	tmpl := e.Template
	if tmpl == "" {
		tmpl = DefaultTemplate
	}
	limit := e.MaxClues
	if limit <= 0 {
		limit = DefaultMaxClues
	}

	var sb strings.Builder
	sb.WriteString(strings.ReplaceAll(tmpl, "{word}", word))

	n := 0
	for _, c := range clues {
		c = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(c), "- "))
		if c == "" {
			continue
		}
		if n == limit {
			break
		}
		if n == 0 {
			sb.WriteString(clueHeader)
		} else {
			sb.WriteString("\n")
		}
		sb.WriteString("- ")
		sb.WriteString(c)
		n++
	}

	return sb.String()
}

// EncodeAll encodes words in order, looking up clues for each
func (e *Encoder) EncodeAll(words []string, clues map[string][]string) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = e.Encode(w, clues[w])
	}
	return out
}
