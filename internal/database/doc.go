// Package database stores crawl history.
//
// CrawlDB keeps every crawl run and its listings in a local SQLite file
// (modernc.org/sqlite, no CGO). It backs the history command, the HTTP API
// and the comparison between two runs of the same search.
//
// PostgresSink exports listings to a shared PostgreSQL database through a
// pgx connection pool, in batches, skipping rows already exported.
//
// NaN amounts are stored as NULL in both backends and read back as NaN.
package database
