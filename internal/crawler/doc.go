// Package crawler discovers listing URLs on paginated search result pages.
//
// # Architecture
//
// The package is built around the Discoverer type. Discovery is strictly
// sequential: whether page n+1 is requested depends on the content of page n,
// so pages are fetched one at a time.
//
// # Pagination
//
// The first result page is always fetched. When pagination is enabled, pages
// 2, 3, ... are requested by setting the "pag" query parameter until a page
// reports that it does not exist ("404 not found" or "non è presente"). The
// links of that final page are not collected. A configurable page ceiling
// bounds runaway pagination against sites that never report the end.
//
// # Politeness
//
// A fixed delay is slept before each link examined on the first result page.
// Later pages carry no per-link delay; the fetcher's rate limiter, if any, is
// the only throttle there.
//
// # Usage
//
//	d := crawler.NewDiscoverer(f, crawler.WithMaxPages(50))
//	res, err := d.Discover(ctx, "https://www.immobiliare.it/vendita-case/milano/?criterio=rilevanza")
package crawler
