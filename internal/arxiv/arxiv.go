// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package arxiv queries the arXiv API for papers submitted inside a time
// window and returns them newest-first.
package arxiv

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/pdiddy/sonar/internal/window"
	"github.com/pdiddy/sonar/pkg/types"
)

// apiBase is the arXiv search endpoint. Declared as a var so tests can
// substitute an httptest server.
var apiBase = "https://export.arxiv.org/api/query"

// requestDelay is the unconditional pause before every API attempt, the
// first included. arXiv asks clients to keep at least a few seconds between
// requests. Tests shrink this to avoid real sleeps.
var requestDelay = 3 * time.Second

// maxAttempts bounds the retry loop. Exhaustion surfaces as ErrUnavailable.
const maxAttempts = 3

// ErrUnavailable reports that all attempts against the arXiv API failed.
// Callers skip the user's delivery and leave the watermark untouched so the
// same window is retried on the next run.
var ErrUnavailable = errors.New("arXiv API unavailable")

// Client queries the arXiv API.
type Client struct {
	http *http.Client
	cfg  types.SearchConfig
	log  *slog.Logger
}

// NewClient returns a Client using cfg. A zero cfg.Timeout falls back to 30s.
func NewClient(cfg types.SearchConfig, log *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		http: &http.Client{Timeout: timeout},
		cfg:  cfg,
		log:  log,
	}
}

// Search queries arXiv for papers matching query submitted inside w and
// returns them sorted by publication date, newest first. A malformed feed
// entry fails the whole call: silently dropping entries would let an upstream
// schema change eat results without a trace.
func (c *Client) Search(ctx context.Context, query string, w window.Window) ([]types.Result, error) {
	maxResults := c.cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 100
	}

	url := fmt.Sprintf("%s?search_query=%s&start=0&max_results=%d",
		apiBase, buildQuery(query, w), maxResults)
	c.log.Debug("query URL", "url", url)

	body, err := c.fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	results, err := parseFeed(body)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Published.After(results[j].Published)
	})
	return results, nil
}

// buildQuery assembles the search_query parameter: the free-text query (with
// newlines collapsed) conjoined with a submittedDate range filter in the
// separator-free form arXiv expects.
func buildQuery(query string, w window.Window) string {
	terms := strings.Join(strings.Fields(query), "+")
	return fmt.Sprintf("(%s)+AND+submittedDate:[%s+TO+%s]",
		terms, w.StartCompact(), w.EndCompact())
}

// fetch performs up to maxAttempts GETs against url, pausing requestDelay
// before each one. Transport errors and non-200 statuses count as failed
// attempts; exhaustion returns an error wrapping ErrUnavailable.
func (c *Client) fetch(ctx context.Context, url string) ([]byte, error) {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(requestDelay):
		}

		body, err := c.get(ctx, url)
		if err == nil {
			return body, nil
		}
		c.log.Warn("arXiv API request failed", "attempt", attempt, "err", err)
	}

	c.log.Error("all attempts to fetch results from the arXiv API failed",
		"attempts", maxAttempts)
	return nil, fmt.Errorf("fetching arXiv results after %d attempts: %w",
		maxAttempts, ErrUnavailable)
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arXiv API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arXiv API returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading arXiv response: %w", err)
	}
	return body, nil
}

// arXiv Atom feed XML structures. Entries carry fields in both the default
// Atom namespace and the arXiv extension namespace.
type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID              string         `xml:"id"`
	Title           string         `xml:"title"`
	Summary         string         `xml:"summary"`
	Published       string         `xml:"published"`
	Updated         string         `xml:"updated"`
	Authors         []atomAuthor   `xml:"author"`
	Comment         string         `xml:"http://arxiv.org/schemas/atom comment"`
	PrimaryCategory atomCategory   `xml:"http://arxiv.org/schemas/atom primary_category"`
	Categories      []atomCategory `xml:"category"`
}

type atomAuthor struct {
	Name string `xml:"name"`
}

type atomCategory struct {
	Term string `xml:"term,attr"`
}

func parseFeed(body []byte) ([]types.Result, error) {
	var feed atomFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("parsing arXiv response: %w", err)
	}

	results := make([]types.Result, 0, len(feed.Entries))
	for i, entry := range feed.Entries {
		r, err := parseEntry(entry)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		results = append(results, r)
	}
	return results, nil
}

const entryTimeFormat = "2006-01-02T15:04:05Z"

func parseEntry(entry atomEntry) (types.Result, error) {
	r := types.Result{
		Title:           strings.TrimSpace(entry.Title),
		Link:            strings.TrimSpace(entry.ID),
		Summary:         strings.TrimSpace(entry.Summary),
		Comment:         strings.TrimSpace(entry.Comment),
		PrimaryCategory: entry.PrimaryCategory.Term,
	}

	switch {
	case r.Title == "":
		return r, fmt.Errorf("missing title")
	case r.Link == "":
		return r, fmt.Errorf("missing id")
	case r.PrimaryCategory == "":
		return r, fmt.Errorf("missing primary category")
	}

	published, err := time.Parse(entryTimeFormat, entry.Published)
	if err != nil {
		return r, fmt.Errorf("invalid published timestamp %q: %w", entry.Published, err)
	}
	r.Published = published

	updated, err := time.Parse(entryTimeFormat, entry.Updated)
	if err != nil {
		return r, fmt.Errorf("invalid updated timestamp %q: %w", entry.Updated, err)
	}
	r.Updated = updated

	for _, a := range entry.Authors {
		r.Authors = append(r.Authors, strings.TrimSpace(a.Name))
	}

	r.Categories = categoryTerms(r.PrimaryCategory, entry.Categories)
	return r, nil
}

// categoryTerms returns the listed category terms in source order, with
// primary prepended when the feed did not already list it.
func categoryTerms(primary string, listed []atomCategory) []string {
	terms := make([]string, 0, len(listed)+1)
	seen := false
	for _, c := range listed {
		if c.Term == primary {
			seen = true
		}
		terms = append(terms, c.Term)
	}
	if !seen {
		terms = append([]string{primary}, terms...)
	}
	return terms
}
