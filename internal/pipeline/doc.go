// Package pipeline runs a crawl from discovery to the finished result.
//
// A Crawler discovers the listing URLs once, then fans the per-listing work
// (fetch, normalize, extract) out over a BatchProcessor whose width bounds the
// number of concurrent fetches. A slow or failed fetch only degrades its own
// record to sentinel values.
//
// The finished model.CrawlResult is handed to a Pipeline of post-crawl Steps
// (persist to SQLite, export to Postgres, write a report) executed in order.
package pipeline
