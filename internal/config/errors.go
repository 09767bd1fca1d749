package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrNoBaseURL is returned when neither an argument, a named search nor
	// the environment provides a search URL.
	ErrNoBaseURL = errors.New("no search URL specified: pass a URL or use --search")

	// ErrInvalidBaseURL is returned when the search URL is not an absolute
	// http(s) URL.
	ErrInvalidBaseURL = errors.New("invalid search URL: must be an absolute http or https URL")

	// ErrInvalidMinPrice is returned when the minimum price is negative.
	ErrInvalidMinPrice = errors.New("invalid minimum price: must be non-negative")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidWorkers is returned when the worker count is not positive.
	ErrInvalidWorkers = errors.New("invalid worker count: must be positive")

	// ErrInvalidMaxPages is returned when the page ceiling is not positive.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be positive")

	// ErrInvalidLinkDelay is returned when the per-link delay is negative.
	ErrInvalidLinkDelay = errors.New("invalid link delay: must be non-negative")

	// ErrInvalidRate is returned when the requests-per-second limit is negative.
	ErrInvalidRate = errors.New("invalid request rate: must be non-negative")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidBatchSize is returned when the Postgres export batch size is
	// not positive.
	ErrInvalidBatchSize = errors.New("invalid export batch size: must be positive")

	// ErrInvalidCSVSeparator is returned when the CSV separator cannot be
	// used as a field delimiter.
	ErrInvalidCSVSeparator = errors.New("invalid CSV separator: must be a single character other than a quote or newline")

	// ErrConflictingReportFormats is returned when more than one of --json,
	// --markdown and --csv is given.
	ErrConflictingReportFormats = errors.New("conflicting report formats: choose one of --json, --markdown or --csv")

	// ErrSearchNotFound is returned when a named search is not defined in the
	// configuration file.
	ErrSearchNotFound = errors.New("search not found in configuration file")

	// ErrInvalidSearch is returned by LoadConfigFile when a search in the
	// configuration file has an invalid setting.
	ErrInvalidSearch = errors.New("invalid search in configuration file")
)
