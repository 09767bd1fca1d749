package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/immoscan/internal/htmltext"
)

// PageParam is the query parameter carrying the result page number.
const PageParam = "pag"

// Defaults of a Discoverer.
const (
	DefaultMaxPages  = 9999
	DefaultLinkDelay = 100 * time.Millisecond
)

// Phrases that mark a result page past the last one.
var endOfResultsPhrases = []string{
	"404 not found",
	"non è presente",
}

// StopReason tells why discovery ended.
type StopReason string

// Stop reasons.
const (
	// StopSinglePage means pagination was disabled.
	StopSinglePage StopReason = "single_page"

	// StopEndOfResults means a page reported that it does not exist.
	StopEndOfResults StopReason = "end_of_results"

	// StopPageCeiling means the configured page ceiling was reached.
	StopPageCeiling StopReason = "page_ceiling"

	// StopFetchError means a result page after the first could not be fetched.
	StopFetchError StopReason = "fetch_error"
)

// Fetcher returns the raw bytes of a page. A timed out fetch returns empty
// bytes and a nil error.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// DiscoveryResult holds the listing URLs found on the result pages.
type DiscoveryResult struct {
	// URLs are the listing URLs, de-duplicated, in the order first seen.
	URLs []string

	// PagesVisited counts every result page fetched, including the page
	// that ended pagination.
	PagesVisited int

	// StopReason tells why discovery ended.
	StopReason StopReason
}

// Discoverer walks search result pages and collects listing URLs.
type Discoverer struct {
	// fetcher retrieves result pages.
	fetcher Fetcher

	// browseAllPages enables pagination beyond the first page.
	browseAllPages bool

	// maxPages is the total number of result pages that may be fetched.
	maxPages int

	// linkDelay is slept before each link examined on the first page.
	linkDelay time.Duration

	logger *slog.Logger
}

// Option configures a Discoverer.
type Option func(*Discoverer)

// WithBrowseAllPages enables or disables pagination beyond the first page.
func WithBrowseAllPages(browse bool) Option {
	return func(d *Discoverer) {
		d.browseAllPages = browse
	}
}

// WithMaxPages sets the maximum number of result pages fetched.
// Non-positive values are ignored.
func WithMaxPages(n int) Option {
	return func(d *Discoverer) {
		if n > 0 {
			d.maxPages = n
		}
	}
}

// WithLinkDelay sets the delay slept before each link on the first page.
// Zero disables it.
func WithLinkDelay(delay time.Duration) Option {
	return func(d *Discoverer) {
		if delay >= 0 {
			d.linkDelay = delay
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Discoverer) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDiscoverer creates a Discoverer that paginates by default.
func NewDiscoverer(fetcher Fetcher, opts ...Option) *Discoverer {
	d := &Discoverer{
		fetcher:        fetcher,
		browseAllPages: true,
		maxPages:       DefaultMaxPages,
		linkDelay:      DefaultLinkDelay,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Discover collects the listing URLs reachable from baseURL.
//
// An error fetching the first page is returned. Later pages that fail to
// fetch end pagination with a warning and the URLs gathered so far. A timed
// out page has no text, so it neither ends pagination nor adds URLs.
func (d *Discoverer) Discover(ctx context.Context, baseURL string) (*DiscoveryResult, error) {
	if d.fetcher == nil {
		return nil, ErrNilFetcher
	}
	base, err := url.Parse(baseURL)
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}

	res := &DiscoveryResult{URLs: make([]string, 0)}
	seen := make(map[string]struct{})
	add := func(links []string) int {
		added := 0
		for _, link := range links {
			key := normalizeURL(link)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			res.URLs = append(res.URLs, link)
			added++
		}
		return added
	}

	d.logger.Info("processing result page", "page", 1, "url", baseURL)
	body, err := d.fetcher.Fetch(ctx, baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch first result page: %w", err)
	}
	res.PagesVisited = 1

	links, err := scanListingLinks(ctx, body, base, d.linkDelay)
	if err != nil {
		return res, fmt.Errorf("failed to scan first result page: %w", err)
	}
	add(links)

	if !d.browseAllPages {
		res.StopReason = StopSinglePage
		return res, nil
	}

	res.StopReason = StopPageCeiling
	for page := 2; page <= d.maxPages; page++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		pageURL := PageURL(base, page)
		d.logger.Info("processing result page", "page", page, "url", pageURL)

		body, err := d.fetcher.Fetch(ctx, pageURL)
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			d.logger.Warn("stopping pagination after fetch error", "page", page, "error", err)
			res.StopReason = StopFetchError
			break
		}
		res.PagesVisited++

		if isEndOfResults(htmltext.NormalizeLower(body)) {
			d.logger.Info("end of results reached", "page", page)
			res.StopReason = StopEndOfResults
			break
		}

		pageBase, _ := url.Parse(pageURL)
		links, err := scanListingLinks(ctx, body, pageBase, 0)
		if err != nil {
			d.logger.Warn("failed to scan result page", "page", page, "error", err)
			continue
		}
		d.logger.Debug("result page scanned", "page", page, "new_urls", add(links))
	}

	if res.StopReason == StopPageCeiling {
		d.logger.Info("page ceiling reached", "max_pages", d.maxPages)
	}
	d.logger.Info("discovery finished", "urls", len(res.URLs), "pages", res.PagesVisited)
	return res, nil
}

// PageURL returns the URL of result page n derived from base.
func PageURL(base *url.URL, n int) string {
	u := *base
	q := u.Query()
	q.Set(PageParam, strconv.Itoa(n))
	u.RawQuery = q.Encode()
	return u.String()
}

func isEndOfResults(text string) bool {
	for _, phrase := range endOfResultsPhrases {
		if strings.Contains(text, phrase) {
			return true
		}
	}
	return false
}
