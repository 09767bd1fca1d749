// Package model defines the data structures shared by the crawler, the
// report writers and the database.
//
//   - ListingRecord: the fields extracted from one listing page
//   - Amount: a monetary value that may be NaN when not found
//   - CrawlResult: every record of one crawl run plus run metadata
//   - CrawlSummary: aggregate statistics derived from a CrawlResult
//
// All types serialize to JSON for reports, the HTTP API and storage.
package model
