package fetcher

import "errors"

var (
	// ErrInvalidProxyAddress is returned when the proxy address is not in
	// "host:port" format.
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")

	// ErrEmptyURL is returned by Fetch when called with an empty URL.
	ErrEmptyURL = errors.New("empty URL")
)
