package config

import (
	"math"
	"net/url"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultMinPrice is the lowest listing price accepted by the extractor.
	// Anything below it is a parsing artefact (e.g. a monthly fee) rather than
	// a sale price.
	DefaultMinPrice = 100

	// DefaultTimeout is the per-request timeout for every page fetch.
	DefaultTimeout = 10 * time.Second

	// DefaultWorkers is the width of the extraction worker pool.
	DefaultWorkers = 10

	// DefaultMaxPages bounds the number of result pages fetched by discovery.
	DefaultMaxPages = 9999

	// DefaultLinkDelay is slept before each link examined on the first
	// result page.
	DefaultLinkDelay = 100 * time.Millisecond

	// AppName is the application name used for XDG directory paths.
	AppName = "immoscan"

	// DefaultUserAgent identifies immoscan in HTTP requests.
	DefaultUserAgent = "immoscan/1.0 (+https://github.com/nao1215/immoscan)"

	// DefaultMaxBodySize limits the response body size read per page.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultPostgresBatchSize is the number of listings per export batch.
	DefaultPostgresBatchSize = 500
)

// Sentinels holds the values written into a listing record when a field
// cannot be resolved. Every extraction call reads them from the same Config.
type Sentinels struct {
	// PriceNotFound is used when no price could be parsed or the parsed
	// price was rejected by MinPrice.
	PriceNotFound float64 `yaml:"priceNotFound"`

	// PricePerAreaInvalid is used when the price per square metre cannot be
	// computed.
	PricePerAreaInvalid float64 `yaml:"pricePerAreaInvalid"`

	// FloorNotFound is used when no floor number appears in the listing.
	FloorNotFound int `yaml:"floorNotFound"`

	// AreaNotFound is used when the surface is missing.
	AreaNotFound int `yaml:"areaNotFound"`

	// EnergyNotFound is used when the energy class is missing, pending or
	// does not look like a class.
	EnergyNotFound string `yaml:"energyNotFound"`

	// ParkingNotFound is used when the listing says nothing about parking.
	ParkingNotFound int `yaml:"parkingNotFound"`

	// ParkingOnRequest is used when parking is only "possibly available".
	ParkingOnRequest int `yaml:"parkingOnRequest"`
}

// DefaultSentinels returns the sentinel values used when none are configured.
func DefaultSentinels() Sentinels {
	return Sentinels{
		PriceNotFound:       math.NaN(),
		PricePerAreaInvalid: 0,
		FloorNotFound:       0,
		AreaNotFound:        0,
		EnergyNotFound:      "n/a",
		ParkingNotFound:     0,
		ParkingOnRequest:    0,
	}
}

// Config holds all configuration options for a crawl.
// It is built once from defaults, the config file, the environment and CLI
// flags, validated, and then only read.
type Config struct {
	// BaseURL is the first search result page. Further pages are derived
	// from it by setting the page query parameter.
	BaseURL string

	// MinPrice is the minimum acceptable listing price. Parsed prices below
	// it resolve to Sentinels.PriceNotFound.
	MinPrice int

	// Sentinels are the "not found" values for every derivable field.
	Sentinels Sentinels

	// BrowseAllPages enables pagination beyond the first result page.
	BrowseAllPages bool

	// Timeout is the timeout of each individual page fetch.
	Timeout time.Duration

	// Workers is the number of listings fetched and extracted concurrently.
	Workers int

	// MaxPages is the hard ceiling on result pages fetched by discovery.
	MaxPages int

	// LinkDelay is slept before each link examined on the first result page.
	LinkDelay time.Duration

	// RequestsPerSecond limits the fetch rate across all workers.
	// Zero disables rate limiting.
	RequestsPerSecond float64

	// ProxyAddress is an optional SOCKS5 proxy in "host:port" format.
	ProxyAddress string

	// Cookie is an optional raw Cookie header sent with every request.
	Cookie string

	// Headers are extra HTTP headers sent with every request.
	Headers map[string]string

	// UserAgent is the User-Agent header sent with every request.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	MaxBodySize int64

	// Verbose enables debug logging.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, .immoscan is searched in the current and home directories.
	ConfigFilePath string

	// Searches holds named searches loaded from the config file.
	Searches *File

	// JSONReport selects JSON report output.
	JSONReport bool

	// MarkdownReport selects Markdown report output.
	MarkdownReport bool

	// CSVReport selects CSV output.
	CSVReport bool

	// CSVSeparator is the CSV field delimiter.
	CSVSeparator rune

	// Tee repeats the report on stdout when ReportFile is set.
	Tee bool

	// ReportFile is the output file path for the report. Stdout when empty.
	ReportFile string

	// DBDir is the directory holding the SQLite history database.
	DBDir string

	// SaveToDB stores the crawl result in the history database.
	SaveToDB bool

	// PostgresDSN enables exporting the crawl result to PostgreSQL.
	PostgresDSN string

	// PostgresBatchSize is the number of listings sent per export batch.
	PostgresBatchSize int
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		MinPrice:       DefaultMinPrice,
		Sentinels:      DefaultSentinels(),
		BrowseAllPages: true,
		Timeout:        DefaultTimeout,
		Workers:        DefaultWorkers,
		MaxPages:       DefaultMaxPages,
		LinkDelay:      DefaultLinkDelay,
		UserAgent:      DefaultUserAgent,
		MaxBodySize:    DefaultMaxBodySize,
		DBDir:          XDGDataDir(),
		SaveToDB:       true,

		CSVSeparator:      ',',
		PostgresBatchSize: DefaultPostgresBatchSize,
	}
}

// XDGDataDir returns the XDG data directory for immoscan.
// On Linux: ~/.local/share/immoscan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for immoscan.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found as one of the package sentinel errors.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrNoBaseURL
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidBaseURL
	}

	if c.MinPrice < 0 {
		return ErrInvalidMinPrice
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}

	if c.MaxPages <= 0 {
		return ErrInvalidMaxPages
	}

	if c.LinkDelay < 0 {
		return ErrInvalidLinkDelay
	}

	if c.RequestsPerSecond < 0 {
		return ErrInvalidRate
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	if c.PostgresBatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if c.CSVSeparator == 0 || c.CSVSeparator == '"' || c.CSVSeparator == '\r' || c.CSVSeparator == '\n' {
		return ErrInvalidCSVSeparator
	}

	formats := 0
	for _, f := range []bool{c.JSONReport, c.MarkdownReport, c.CSVReport} {
		if f {
			formats++
		}
	}
	if formats > 1 {
		return ErrConflictingReportFormats
	}

	return nil
}
