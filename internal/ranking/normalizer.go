// Package ranking merges raw classifier scores of approved, rejected and
// unchecked words into one bounded integer ranking.
//
// Each status tier is sorted on its own and its members are spread by rank
// over a band reserved for the tier, so curated decisions dominate model
// uncertainty while every word still gets a place in a single total order.
package ranking

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/pbaille/wordlist/internal/domain"
)

// Band is an inclusive integer range assigned to a status tier
type Band struct {
	Lo int `json:"lo" yaml:"lo"`
	Hi int `json:"hi" yaml:"hi"`
}

// Width is the distance between the band bounds
func (b Band) Width() int { return b.Hi - b.Lo }

// Config holds the normalization constants
type Config struct {
	ClampMin     float64 `json:"clamp_min" yaml:"clamp_min"`
	ClampMax     float64 `json:"clamp_max" yaml:"clamp_max"`
	DefaultScore float64 `json:"default_score" yaml:"default_score"`
	Neutral      int     `json:"neutral" yaml:"neutral"`
	Midpoint     float64 `json:"midpoint" yaml:"midpoint"`
	Rejected     Band    `json:"rejected" yaml:"rejected"`
	Unchecked    Band    `json:"unchecked" yaml:"unchecked"`
	Approved     Band    `json:"approved" yaml:"approved"`
}

// DefaultConfig returns the stock bands: rejected 0-10, unchecked 0-50,
// approved 25-50, raw scores clamped to [0, 2]
func DefaultConfig() Config {
	return Config{
		ClampMin:     0,
		ClampMax:     2,
		DefaultScore: 0,
		Neutral:      25,
		Midpoint:     0,
		Rejected:     Band{Lo: 0, Hi: 10},
		Unchecked:    Band{Lo: 0, Hi: 50},
		Approved:     Band{Lo: 25, Hi: 50},
	}
}

// Validate checks the bounds are ordered
func (c Config) Validate() error {
	if c.ClampMin >= c.ClampMax {
		return fmt.Errorf("clamp range [%g, %g] is empty", c.ClampMin, c.ClampMax)
	}
	for name, b := range map[string]Band{"rejected": c.Rejected, "unchecked": c.Unchecked, "approved": c.Approved} {
		if b.Lo > b.Hi {
			return fmt.Errorf("%s band %d-%d is inverted", name, b.Lo, b.Hi)
		}
	}
	return nil
}

func (c Config) band(s domain.Status) Band {
	switch s {
	case domain.StatusApproved:
		return c.Approved
	case domain.StatusRejected:
		return c.Rejected
	}
	return c.Unchecked
}

// Entry is one word of the final ranking
type Entry struct {
	Word  string `json:"word"`
	Score int    `json:"score"`
}

// Result is a normalized ranking
type Result struct {
	// Ranking is ordered by descending score, then word
	Ranking []Entry
	Scores  map[string]int
	// Pivot is the word whose raw score is closest to the midpoint
	Pivot      string
	PivotScore float64
	// Degenerate is set when every word got the neutral value
	Degenerate bool
}

type item struct {
	word    string
	raw     float64
	clamped float64
}

// Normalize ranks rows. Rows without a score use cfg.DefaultScore.
func Normalize(rows []domain.ScoredWord, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	tiers := map[domain.Status][]item{}
	res := &Result{Scores: make(map[string]int, len(rows))}
	minRaw, maxRaw := math.Inf(1), math.Inf(-1)
	pivotDist := math.Inf(1)

	for _, r := range rows {
		if _, err := domain.ParseStatus(string(r.Status)); err != nil {
			return nil, fmt.Errorf("word %s: %w", r.Word, err)
		}
		raw := cfg.DefaultScore
		if r.Score != nil {
			raw = *r.Score
		}
		tiers[r.Status] = append(tiers[r.Status], item{
			word:    r.Word,
			raw:     raw,
			clamped: min(max(raw, cfg.ClampMin), cfg.ClampMax),
		})
		minRaw, maxRaw = min(minRaw, raw), max(maxRaw, raw)

		d := math.Abs(raw - cfg.Midpoint)
		if d < pivotDist || (d == pivotDist && r.Word < res.Pivot) {
			pivotDist, res.Pivot, res.PivotScore = d, r.Word, raw
		}
	}
	if len(rows) == 0 {
		return res, nil
	}

	for status, items := range tiers {
		slices.SortFunc(items, func(a, b item) int {
			if c := cmp.Compare(b.clamped, a.clamped); c != 0 {
				return c
			}
			if c := cmp.Compare(b.raw, a.raw); c != 0 {
				return c
			}
			return cmp.Compare(a.word, b.word)
		})
		band := cfg.band(status)
		for rank, it := range items {
			res.Scores[it.word] = bandValue(band, rank, len(items))
		}
	}

	if maxRaw == minRaw || allEqual(res.Scores) {
		res.Degenerate = true
		for w := range res.Scores {
			res.Scores[w] = cfg.Neutral
		}
	}

	res.Ranking = make([]Entry, 0, len(res.Scores))
	for w, v := range res.Scores {
		res.Ranking = append(res.Ranking, Entry{Word: w, Score: v})
	}
	SortEntries(res.Ranking)
	return res, nil
}

// bandValue spreads ranks 0..n-1 linearly from band.Hi down to band.Lo.
// A single member gets band.Hi.
func bandValue(band Band, rank, n int) int {
	if n <= 1 {
		return band.Hi
	}
	step := float64(band.Width()) * float64(rank) / float64(n-1)
	return band.Hi - int(math.Round(step))
}

func allEqual(m map[string]int) bool {
	first := true
	var v0 int
	for _, v := range m {
		if first {
			v0, first = v, false
			continue
		}
		if v != v0 {
			return false
		}
	}
	return true
}

// SortEntries orders entries by descending score, then ascending word
func SortEntries(entries []Entry) {
	slices.SortFunc(entries, func(a, b Entry) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Word, b.Word)
	})
}
