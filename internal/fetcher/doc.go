// Package fetcher retrieves raw listing and search pages over HTTP.
//
// A Fetcher applies one timeout to every request. When that timeout expires
// Fetch returns an empty body and a nil error: callers treat the page as
// having no content, and every field extracted from it falls back to its
// sentinel. Cancellation of the parent context is still reported as an error.
//
// Redirects are never followed, the body is capped at a configured size,
// and requests can go through a SOCKS5 proxy and a shared rate limiter.
package fetcher
