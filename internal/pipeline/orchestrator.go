package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"

	"github.com/nao1215/immoscan/internal/config"
	"github.com/nao1215/immoscan/internal/crawler"
	"github.com/nao1215/immoscan/internal/extractor"
	"github.com/nao1215/immoscan/internal/htmltext"
	"github.com/nao1215/immoscan/internal/model"
)

// ErrNilFetcher is returned by NewCrawler when no fetcher is given.
var ErrNilFetcher = errors.New("fetcher is nil")

// ProgressFunc is called once per finished listing with the number of
// listings done so far and the total. It may be called concurrently.
type ProgressFunc func(record model.ListingRecord, done, total int)

// Crawler drives one search: discovery, then concurrent extraction.
// The configuration is copied at construction and never changes afterwards.
type Crawler struct {
	cfg        config.Config
	fetcher    crawler.Fetcher
	discoverer *crawler.Discoverer
	extractor  *extractor.Extractor
	logger     *slog.Logger
	progress   ProgressFunc

	// mu guards discovery, which is cached after the first success.
	mu        sync.Mutex
	discovery *crawler.DiscoveryResult
}

// CrawlerOption configures a Crawler.
type CrawlerOption func(*Crawler)

// WithLogger sets the logger shared by discovery, extraction and the worker
// pool.
func WithLogger(logger *slog.Logger) CrawlerOption {
	return func(c *Crawler) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithProgress sets a callback receiving each record as it completes.
func WithProgress(fn ProgressFunc) CrawlerOption {
	return func(c *Crawler) {
		c.progress = fn
	}
}

// NewCrawler validates cfg and creates a Crawler fetching pages through f.
func NewCrawler(cfg *config.Config, f crawler.Fetcher, opts ...CrawlerOption) (*Crawler, error) {
	if f == nil {
		return nil, ErrNilFetcher
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	c := &Crawler{
		cfg:     *cfg,
		fetcher: f,
		logger:  slog.Default(),
	}
	c.cfg.Headers = maps.Clone(cfg.Headers)
	for _, opt := range opts {
		opt(c)
	}

	c.discoverer = crawler.NewDiscoverer(f,
		crawler.WithBrowseAllPages(c.cfg.BrowseAllPages),
		crawler.WithMaxPages(c.cfg.MaxPages),
		crawler.WithLinkDelay(c.cfg.LinkDelay),
		crawler.WithLogger(c.logger),
	)
	c.extractor = extractor.New(&c.cfg, extractor.WithLogger(c.logger))

	return c, nil
}

// Discover returns the listing URLs of the configured search. The first
// successful discovery is cached and returned by every later call.
func (c *Crawler) Discover(ctx context.Context) (*crawler.DiscoveryResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.discovery != nil {
		return c.discovery, nil
	}

	res, err := c.discoverer.Discover(ctx, c.cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	c.logger.Info("listings discovered", "count", len(res.URLs), "pages", res.PagesVisited)
	c.discovery = res
	return res, nil
}

// ExtractListing fetches one listing and extracts its record. A fetch error
// is logged and treated like a timeout: the record is made of sentinels.
// Run drops records built once ctx was cancelled.
func (c *Crawler) ExtractListing(ctx context.Context, url string) model.ListingRecord {
	body, err := c.fetcher.Fetch(ctx, url)
	if err != nil {
		c.logger.Warn("failed to fetch listing", "url", url, "error", err)
		body = nil
	}
	return c.extractor.Extract(htmltext.NormalizeLower(body), url)
}

// Run discovers the listings and extracts all of them using Workers
// concurrent workers. The result keeps the discovery order.
//
// If ctx is cancelled during extraction the partial result is returned
// together with the context error.
func (c *Crawler) Run(ctx context.Context) (*model.CrawlResult, error) {
	result := model.NewCrawlResult(c.cfg.BaseURL)
	result.Sentinels = c.cfg.Sentinels

	discovery, err := c.Discover(ctx)
	if err != nil {
		return nil, fmt.Errorf("discovery failed: %w", err)
	}

	bp := NewBatchProcessor(c.ExtractListing,
		WithConcurrency(c.cfg.Workers),
		WithBatchLogger(c.logger),
	)

	var records []model.ListingRecord
	if c.progress == nil {
		records, err = bp.ProcessBatch(ctx, discovery.URLs)
	} else {
		var (
			mu   sync.Mutex
			done int
		)
		total := len(discovery.URLs)
		records, err = bp.ProcessBatchWithCallback(ctx, discovery.URLs, func(record model.ListingRecord, _ int) {
			mu.Lock()
			done++
			n := done
			mu.Unlock()
			c.progress(record, n, total)
		})
	}
	result.Finish(records, discovery.PagesVisited)
	if err != nil {
		return result, err
	}

	c.logger.Info("crawl finished",
		"crawl_id", result.ID,
		"total", result.Total,
		"pages", result.PagesVisited,
		"elapsed", result.Duration(),
	)
	return result, nil
}
