package ranking

import (
	"fmt"
	"io"
	"strings"
)

// Bucket counts scores in [Lo, Hi]
type Bucket struct {
	Lo    int
	Hi    int
	Count int
}

// Histogram buckets entry scores between lo and hi in steps of width
func Histogram(entries []Entry, lo, hi, width int) []Bucket {
	if width <= 0 {
		width = 1
	}
	var buckets []Bucket
	for b := lo; b <= hi; b += width {
		buckets = append(buckets, Bucket{Lo: b, Hi: min(b+width-1, hi)})
	}
	for _, e := range entries {
		if e.Score < lo || e.Score > hi {
			continue
		}
		buckets[(e.Score-lo)/width].Count++
	}
	return buckets
}

// WriteHistogram renders buckets as text bars scaled to maxBar characters
func WriteHistogram(w io.Writer, buckets []Bucket, maxBar int) error {
	peak := 0
	for _, b := range buckets {
		peak = max(peak, b.Count)
	}
	for _, b := range buckets {
		bar := 0
		if peak > 0 {
			bar = b.Count * maxBar / peak
		}
		if _, err := fmt.Fprintf(w, "%3d-%-3d %6d %s\n", b.Lo, b.Hi, b.Count, strings.Repeat("#", bar)); err != nil {
			return err
		}
	}
	return nil
}
