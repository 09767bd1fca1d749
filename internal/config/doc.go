// Package config provides the crawl configuration for immoscan.
// It defines defaults, the "not found" sentinel values, the .immoscan YAML
// file with named searches, and environment variable overrides.
package config
