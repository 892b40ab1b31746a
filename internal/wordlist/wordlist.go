// Package wordlist reads and writes scored wordlists in the WORD;SCORE text
// format used by crossword construction tools.
package wordlist

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pbaille/wordlist/internal/ranking"
)

// Write emits one "word;score" line per entry, in the given order
func Write(w io.Writer, entries []ranking.Entry) error {
	bw := bufio.NewWriter(w)
	for _, e := range entries {
		if _, err := fmt.Fprintf(bw, "%s;%d\n", e.Word, e.Score); err != nil {
			return fmt.Errorf("write entry: %w", err)
		}
	}
	return bw.Flush()
}

// Read parses "word;score" lines. Blank lines are skipped; any other
// malformed line is an error naming its line number.
func Read(r io.Reader) ([]ranking.Entry, error) {
	var out []ranking.Entry
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		word, score, ok := strings.Cut(text, ";")
		if !ok || word == "" {
			return nil, fmt.Errorf("line %d: expected word;score, got %q", line, text)
		}
		n, err := strconv.Atoi(strings.TrimSpace(score))
		if err != nil {
			return nil, fmt.Errorf("line %d: bad score: %w", line, err)
		}
		out = append(out, ranking.Entry{Word: word, Score: n})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read wordlist: %w", err)
	}
	return out, nil
}

// WriteJSON emits the entries as an indented word to score object
func WriteJSON(w io.Writer, entries []ranking.Entry) error {
	m := make(map[string]int, len(entries))
	for _, e := range entries {
		m[e.Word] = e.Score
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	return enc.Encode(m)
}

// WriteWordsJSON emits a JSON array of words
func WriteWordsJSON(w io.Writer, words []string) error {
	if words == nil {
		words = []string{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	return enc.Encode(words)
}
