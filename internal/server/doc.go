// Package server exposes the crawl history over a read-only JSON API.
//
// Routes:
//
//	GET /healthz
//	GET /api/crawls
//	GET /api/crawls/{id}
//	GET /api/crawls/{id}/summary
//	GET /api/listings/history?url=...
//	GET /api/compare?base_url=...
package server
