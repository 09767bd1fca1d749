// Package log builds the slog loggers used by immoscan.
//
// Loggers are created once by the CLI and injected into every component.
// The level is fixed at construction: Warn by default, Debug in verbose mode.
// All output passes through RedactingHandler, which masks cookies, auth
// headers and database passwords, so a shared log never leaks the
// credentials a search was configured with.
//
//	logger := log.NewLogger(os.Stderr, verbose)
//	logger.Info("fetching page", "url", pageURL, "cookie", cookie) // cookie is masked
package log
