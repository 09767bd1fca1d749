// Package main provides the entry point for the immoscan CLI.
//
// immoscan crawls the result pages of an immobiliare.it search, extracts the
// key facts of every listing and keeps a local history of each crawl.
//
// Usage:
//
//	immoscan crawl <search-url>
//	immoscan crawl --search milano
//	immoscan history --list
//	immoscan serve
//
// See --help for all available options.
package main

// main is the entry point for immoscan.
func main() {
	Execute()
}
