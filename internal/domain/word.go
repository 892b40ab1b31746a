package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Word length bounds, inclusive
const (
	MinWordLen = 2
	MaxWordLen = 40
)

// ErrInvalidWord is returned for words that cannot be canonicalized
var ErrInvalidWord = errors.New("invalid word")

// Canonical uppercases s and drops everything but ASCII letters
func Canonical(s string) string {
	var sb strings.Builder
	for _, r := range strings.ToUpper(s) {
		if r >= 'A' && r <= 'Z' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// CanonicalWord canonicalizes s and checks its length
func CanonicalWord(s string) (string, error) {
	w := Canonical(s)
	if len(w) < MinWordLen || len(w) > MaxWordLen {
		return "", fmt.Errorf("%w: %q", ErrInvalidWord, s)
	}
	return w, nil
}
