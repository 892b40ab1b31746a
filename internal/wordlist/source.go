package wordlist

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pbaille/wordlist/internal/domain"
)

// Source word lengths kept by ParseSource, inclusive
const (
	minSourceLen = 3
	maxSourceLen = 39
)

// SourceEntry is one cleaned word of a source wordlist
type SourceEntry struct {
	Word  string
	Score int
}

// ParseSource reads a source wordlist in TEXT;INT format. Text is
// uppercased and stripped to letters; words shorter than 3 or longer than
// 39 letters are dropped. A word seen again gets +1 on its first score.
// Entries keep first-seen order.
func ParseSource(r io.Reader) ([]SourceEntry, error) {
	var out []SourceEntry
	index := map[string]int{}

	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		raw, score, ok := strings.Cut(text, ";")
		if !ok {
			return nil, fmt.Errorf("line %d: missing ';' in %q", line, text)
		}

		word := domain.Canonical(raw)
		if len(word) < minSourceLen || len(word) > maxSourceLen {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(score))
		if err != nil {
			return nil, fmt.Errorf("line %d: bad score: %w", line, err)
		}

		if i, seen := index[word]; seen {
			out[i].Score++
			continue
		}
		index[word] = len(out)
		out = append(out, SourceEntry{Word: word, Score: n})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}
	return out, nil
}
