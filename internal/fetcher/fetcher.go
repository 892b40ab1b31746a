// Package fetcher looks up published crossword clues for a word.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// Defaults for Config
const (
	DefaultURLTemplate = "https://crosswordtracker.com/answer/{word}/"
	DefaultMaxClues    = 6
	DefaultDelay       = 150 * time.Millisecond
	DefaultUserAgent   = "wordlist/1.0 (crossword-wordlist)"

	clueHeading = "referring crossword puzzle clues"
	maxBodySize = 5 * 1024 * 1024
)

// Config configures a Fetcher
type Config struct {
	URLTemplate string
	MaxClues    int
	Delay       time.Duration
	Timeout     time.Duration
	UserAgent   string
}

// Fetcher retrieves clues from a crossword answer page
type Fetcher struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// New creates a Fetcher
func New(cfg Config, logger *slog.Logger) *Fetcher {
	if cfg.URLTemplate == "" {
		cfg.URLTemplate = DefaultURLTemplate
	}
	if cfg.MaxClues <= 0 {
		cfg.MaxClues = DefaultMaxClues
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
		sleep:  sleepContext,
	}
}

// FetchClues returns up to MaxClues clues for word. A missing page, a
// non-200 answer or a transport failure yields no clues and no error; only
// cancellation and a bad URL template are errors.
func (f *Fetcher) FetchClues(ctx context.Context, word string) ([]string, error) {
	rawURL := strings.ReplaceAll(f.cfg.URLTemplate, "{word}", url.PathEscape(strings.ToLower(word)))
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		f.logger.Warn("clue fetch failed", "word", word, "err", err)
		return nil, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		f.logger.Warn("no clue page", "word", word, "status", resp.StatusCode)
		return nil, nil
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		f.logger.Warn("unparseable clue page", "word", word, "err", err)
		return nil, nil
	}
	clues := extractClues(doc, f.cfg.MaxClues)

	if f.cfg.Delay > 0 {
		if err := f.sleep(ctx, f.cfg.Delay); err != nil {
			return clues, err
		}
	}
	return clues, nil
}

// extractClues finds the clue heading and reads the list items of the
// element that follows it
func extractClues(doc *html.Node, limit int) []string {
	heading := find(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "h3" &&
			strings.Contains(strings.ToLower(nodeText(n)), clueHeading)
	})
	if heading == nil {
		return nil
	}

	list := heading.NextSibling
	for list != nil && list.Type != html.ElementNode {
		list = list.NextSibling
	}
	if list == nil {
		return nil
	}

	var clues []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if len(clues) == limit {
			return
		}
		if n.Type == html.ElementNode && n.Data == "li" {
			if text := nodeText(n); text != "" {
				clues = append(clues, text)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(list)
	return clues
}

func find(n *html.Node, match func(*html.Node) bool) *html.Node {
	if match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := find(c, match); found != nil {
			return found
		}
	}
	return nil
}

// nodeText returns the whitespace-collapsed text under n
func nodeText(n *html.Node) string {
	var sb strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
