package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/nao1215/immoscan/internal/config"
)

// CrawlResult is the output of one crawl run.
type CrawlResult struct {
	// ID uniquely identifies the run.
	ID string `json:"id"`

	// BaseURL is the search URL the crawl started from.
	BaseURL string `json:"base_url"`

	// StartedAt is when the crawl started.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the last record was collected.
	FinishedAt time.Time `json:"finished_at"`

	// PagesVisited is the number of result pages fetched during discovery.
	PagesVisited int `json:"pages_visited"`

	// Records holds one record per discovered listing.
	Records []ListingRecord `json:"records"`

	// Total is the number of records.
	Total int `json:"total"`

	// Sentinels are the "not found" values the records were extracted with.
	// They are stored with the crawl so that later summaries count resolved
	// fields correctly.
	Sentinels config.Sentinels `json:"-"`
}

// NewCrawlResult starts a new crawl result with a fresh ID and the default
// sentinels.
func NewCrawlResult(baseURL string) *CrawlResult {
	return &CrawlResult{
		ID:        uuid.NewString(),
		BaseURL:   baseURL,
		StartedAt: time.Now().UTC(),
		Records:   make([]ListingRecord, 0),
		Sentinels: config.DefaultSentinels(),
	}
}

// Finish stores the collected records and stamps the finish time.
func (c *CrawlResult) Finish(records []ListingRecord, pagesVisited int) {
	c.Records = records
	c.Total = len(records)
	c.PagesVisited = pagesVisited
	c.FinishedAt = time.Now().UTC()
}

// Summary aggregates the crawl against the sentinels it was run with.
func (c *CrawlResult) Summary() *CrawlSummary {
	return NewCrawlSummary(c, c.Sentinels)
}

// Duration returns how long the crawl took.
func (c *CrawlResult) Duration() time.Duration {
	if c.FinishedAt.IsZero() {
		return 0
	}
	return c.FinishedAt.Sub(c.StartedAt)
}

