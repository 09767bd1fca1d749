package crawler

import "errors"

var (
	// ErrInvalidBaseURL is returned when the search URL is not an absolute
	// http(s) URL.
	ErrInvalidBaseURL = errors.New("base URL must be an absolute http or https URL")

	// ErrNilFetcher is returned when a Discoverer has no fetcher.
	ErrNilFetcher = errors.New("fetcher is nil")
)
