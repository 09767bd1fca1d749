package model

import "time"

// Price trend directions of a CrawlDiff.
const (
	TrendDown      = "down"
	TrendUp        = "up"
	TrendUnchanged = "unchanged"
)

// CrawlRef identifies one side of a comparison.
type CrawlRef struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
	Total     int       `json:"total"`
}

// PriceChange is a listing whose cost differs between two crawls.
type PriceChange struct {
	URL      string `json:"url"`
	Previous Amount `json:"previous"`
	Current  Amount `json:"current"`
}

// Delta returns the change in cost. It is NaN when either side is NaN.
func (p PriceChange) Delta() Amount {
	return p.Current - p.Previous
}

// CrawlDiff describes how the listings of a search changed between two crawls.
type CrawlDiff struct {
	BaseURL  string   `json:"base_url"`
	Previous CrawlRef `json:"previous"`
	Current  CrawlRef `json:"current"`

	// Added holds listings only present in the current crawl, in crawl order.
	Added []ListingRecord `json:"added,omitempty"`

	// Removed holds listings only present in the previous crawl.
	Removed []ListingRecord `json:"removed,omitempty"`

	// PriceChanges holds listings present in both crawls with a different cost.
	PriceChanges []PriceChange `json:"price_changes,omitempty"`

	// UnchangedCount counts listings present in both crawls with the same cost.
	UnchangedCount int `json:"unchanged_count"`

	// Trend is TrendDown when more prices dropped than rose, TrendUp for the
	// opposite, TrendUnchanged otherwise.
	Trend string `json:"trend"`
}

// CompareCrawls computes the difference between previous and current.
// Listings are matched by URL. Two NaN costs count as equal.
func CompareCrawls(previous, current *CrawlResult) *CrawlDiff {
	diff := &CrawlDiff{
		BaseURL:  current.BaseURL,
		Previous: refOf(previous),
		Current:  refOf(current),
	}

	before := make(map[string]ListingRecord, len(previous.Records))
	for _, r := range previous.Records {
		before[r.URL] = r
	}
	after := make(map[string]struct{}, len(current.Records))

	drops, rises := 0, 0
	for _, r := range current.Records {
		after[r.URL] = struct{}{}
		old, ok := before[r.URL]
		if !ok {
			diff.Added = append(diff.Added, r)
			continue
		}
		if sameCost(old.Cost, r.Cost) {
			diff.UnchangedCount++
			continue
		}
		change := PriceChange{URL: r.URL, Previous: old.Cost, Current: r.Cost}
		diff.PriceChanges = append(diff.PriceChanges, change)
		switch d := change.Delta(); {
		case d < 0:
			drops++
		case d > 0:
			rises++
		}
	}

	for _, r := range previous.Records {
		if _, ok := after[r.URL]; !ok {
			diff.Removed = append(diff.Removed, r)
		}
	}

	switch {
	case drops > rises:
		diff.Trend = TrendDown
	case rises > drops:
		diff.Trend = TrendUp
	default:
		diff.Trend = TrendUnchanged
	}

	return diff
}

// HasChanges reports whether anything differs between the two crawls.
func (d *CrawlDiff) HasChanges() bool {
	return len(d.Added) > 0 || len(d.Removed) > 0 || len(d.PriceChanges) > 0
}

func refOf(c *CrawlResult) CrawlRef {
	return CrawlRef{ID: c.ID, StartedAt: c.StartedAt, Total: c.Total}
}

func sameCost(a, b Amount) bool {
	if a.IsNaN() || b.IsNaN() {
		return a.IsNaN() && b.IsNaN()
	}
	return a == b
}
