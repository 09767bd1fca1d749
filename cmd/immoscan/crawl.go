package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/nao1215/immoscan/internal/config"
	"github.com/nao1215/immoscan/internal/crawler"
	"github.com/nao1215/immoscan/internal/database"
	"github.com/nao1215/immoscan/internal/fetcher"
	"github.com/nao1215/immoscan/internal/model"
	"github.com/nao1215/immoscan/internal/pipeline"
	"github.com/nao1215/immoscan/internal/report"
)

// postCrawlStepTimeout bounds each of the report, save and export steps.
const postCrawlStepTimeout = 2 * time.Minute

// terminalURLWidth truncates listing URLs in the plain report on a terminal.
const terminalURLWidth = 80

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [search-url]",
		Short: "Crawl an immobiliare.it search and extract every listing",
		Long: `Crawl walks the result pages of a search, visits every listing and extracts
price, price per m², floor, top floor, surface, energy class and parking.

Pagination stops at the first page that reports no results, or at --max-pages.
Listings are fetched concurrently by --workers workers. Fields that cannot be
read keep their configured "not found" value, so every listing is reported.

Examples:
  # Crawl a search
  immoscan crawl "https://www.immobiliare.it/vendita-case/milano/?prezzoMassimo=300000"

  # Crawl a named search from .immoscan
  immoscan crawl --search milano

  # Only the first result page, written as CSV
  immoscan crawl --no-pagination --csv -o milano.csv <search-url>

  # Also export to PostgreSQL
  immoscan crawl --postgres-dsn "postgres://immo@localhost/immo" <search-url>

Configuration precedence: flags > IMMOSCAN_* environment (.env) > .immoscan > defaults.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCrawlCmd,
	}

	// Search selection
	cmd.Flags().StringP("search", "s", "",
		"Named search from the configuration file")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .immoscan in current or home directory)")
	cmd.Flags().String("env-file", config.DefaultEnvFile,
		"dotenv file with IMMOSCAN_* variables")

	// Crawl behavior
	cmd.Flags().Int("min-price", config.DefaultMinPrice,
		"Lowest accepted listing price")
	cmd.Flags().Bool("no-pagination", false,
		"Only crawl the first result page")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout of each page fetch")
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers,
		"Number of listings fetched concurrently")
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of result pages")
	cmd.Flags().Duration("link-delay", config.DefaultLinkDelay,
		"Wait before each link examined on the first result page")
	cmd.Flags().Float64("rps", 0,
		"Maximum requests per second (0 disables the limit)")
	cmd.Flags().String("proxy", "",
		"SOCKS5 proxy address (host:port)")

	// Report
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report")
	cmd.Flags().Bool("csv", false,
		"Output CSV (one row per listing)")
	cmd.Flags().String("csv-separator", ",",
		"CSV field separator (a single character)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().Bool("tee", false,
		"With --output, also print the report to stdout")

	// Storage
	cmd.Flags().Bool("no-save", false,
		"Do not store the crawl in the local history")
	cmd.Flags().String("db-dir", "",
		"History database directory (default: XDG data directory)")
	cmd.Flags().String("postgres-dsn", "",
		"Export the crawl to this PostgreSQL database")
	cmd.Flags().Int("postgres-batch-size", config.DefaultPostgresBatchSize,
		"Listings sent per PostgreSQL batch")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args, os.LookupEnv)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := newLogger(cmd, os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	f, err := newFetcher(cfg, logger)
	if err != nil {
		return err
	}

	return runCrawl(ctx, cfg, f, cmd.OutOrStdout(), cmd.ErrOrStderr(), logger)
}

// buildConfig layers defaults, the config file, the environment and the
// flags that were set explicitly, in that order.
func buildConfig(cmd *cobra.Command, args []string, lookup config.LookupFunc) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	cfg.ConfigFilePath, err = flags.GetString("config")
	if err != nil {
		return nil, err
	}
	searchName, err := flags.GetString("search")
	if err != nil {
		return nil, err
	}

	// An explicit config path must exist. Without one, a missing file is fine
	// unless a named search was requested.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		cfg.Searches, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		search, err := cfg.Searches.GetSearch(searchName)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", err, searchName)
		}
		search.ApplyTo(cfg)
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	case searchName != "":
		return nil, fmt.Errorf("%w: %s (no configuration file found)", config.ErrSearchNotFound, searchName)
	}

	envFile, err := flags.GetString("env-file")
	if err != nil {
		return nil, err
	}
	if lookup != nil {
		if lookup, err = config.DotEnvLookup(envFile, lookup); err != nil {
			return nil, err
		}
		if err := config.ApplyEnv(cfg, lookup); err != nil {
			return nil, fmt.Errorf("invalid environment: %w", err)
		}
	}

	if len(args) > 0 {
		cfg.BaseURL = args[0]
	}
	if err := applyCrawlFlags(cmd, cfg); err != nil {
		return nil, err
	}
	cfg.Verbose = getVerboseFlag(cmd)

	return cfg, nil
}

// applyCrawlFlags copies the flags the user actually set into cfg so that
// flag defaults never mask file or environment values.
func applyCrawlFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	var err error

	if flags.Changed("min-price") {
		if cfg.MinPrice, err = flags.GetInt("min-price"); err != nil {
			return err
		}
	}
	if flags.Changed("no-pagination") {
		noPagination, err := flags.GetBool("no-pagination")
		if err != nil {
			return err
		}
		cfg.BrowseAllPages = !noPagination
	}
	if flags.Changed("timeout") {
		if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
			return err
		}
	}
	if flags.Changed("workers") {
		if cfg.Workers, err = flags.GetInt("workers"); err != nil {
			return err
		}
	}
	if flags.Changed("max-pages") {
		if cfg.MaxPages, err = flags.GetInt("max-pages"); err != nil {
			return err
		}
	}
	if flags.Changed("link-delay") {
		if cfg.LinkDelay, err = flags.GetDuration("link-delay"); err != nil {
			return err
		}
	}
	if flags.Changed("rps") {
		if cfg.RequestsPerSecond, err = flags.GetFloat64("rps"); err != nil {
			return err
		}
	}
	if flags.Changed("proxy") {
		if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
			return err
		}
	}
	if flags.Changed("db-dir") {
		if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
			return err
		}
	}
	if flags.Changed("postgres-dsn") {
		if cfg.PostgresDSN, err = flags.GetString("postgres-dsn"); err != nil {
			return err
		}
	}

	if flags.Changed("postgres-batch-size") {
		if cfg.PostgresBatchSize, err = flags.GetInt("postgres-batch-size"); err != nil {
			return err
		}
	}
	if flags.Changed("csv-separator") {
		sep, err := flags.GetString("csv-separator")
		if err != nil {
			return err
		}
		if cfg.CSVSeparator, err = parseSeparator(sep); err != nil {
			return err
		}
	}

	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return err
	}
	if cfg.CSVReport, err = flags.GetBool("csv"); err != nil {
		return err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return err
	}
	if cfg.Tee, err = flags.GetBool("tee"); err != nil {
		return err
	}
	noSave, err := flags.GetBool("no-save")
	if err != nil {
		return err
	}
	cfg.SaveToDB = !noSave

	return nil
}

// parseSeparator accepts exactly one character, with "\t" standing for a tab.
func parseSeparator(s string) (rune, error) {
	if s == `\t` {
		return '\t', nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("%w: %q", config.ErrInvalidCSVSeparator, s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, nil
}

// newFetcher builds the HTTP fetcher described by cfg.
func newFetcher(cfg *config.Config, logger *slog.Logger) (*fetcher.Fetcher, error) {
	opts := []fetcher.Option{
		fetcher.WithTimeout(cfg.Timeout),
		fetcher.WithUserAgent(cfg.UserAgent),
		fetcher.WithMaxBodySize(cfg.MaxBodySize),
		fetcher.WithRateLimit(cfg.RequestsPerSecond),
		fetcher.WithCookie(cfg.Cookie),
		fetcher.WithHeaders(cfg.Headers),
		fetcher.WithLogger(logger),
	}
	if cfg.ProxyAddress != "" {
		opts = append(opts, fetcher.WithProxy(cfg.ProxyAddress))
	}

	f, err := fetcher.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create fetcher: %w", err)
	}
	return f, nil
}

// runCrawl crawls cfg.BaseURL through f, then writes the report, saves the
// crawl and exports it. Progress goes to progressOut.
func runCrawl(ctx context.Context, cfg *config.Config, f crawler.Fetcher, out, progressOut io.Writer, logger *slog.Logger) error {
	logger.Info("starting crawl",
		"url", cfg.BaseURL,
		"workers", cfg.Workers,
		"browseAllPages", cfg.BrowseAllPages,
		"saveToDB", cfg.SaveToDB,
	)

	c, err := pipeline.NewCrawler(cfg, f,
		pipeline.WithLogger(logger),
		pipeline.WithProgress(func(record model.ListingRecord, done, total int) {
			fmt.Fprintf(progressOut, "[%d/%d] %s\n", done, total, record.URL)
		}),
	)
	if err != nil {
		return err
	}

	fmt.Fprintf(progressOut, "Crawling %s...\n", cfg.BaseURL)
	result, crawlErr := c.Run(ctx)
	if result == nil {
		return crawlErr
	}
	if crawlErr != nil {
		// Interrupted: keep what was collected.
		logger.Warn("crawl interrupted, keeping partial result", "error", crawlErr, "total", result.Total)
	}
	fmt.Fprintf(progressOut, "Listings found: %d (pages visited: %d)\n", result.Total, result.PagesVisited)

	output, closeOutput, err := openOutput(cfg.ReportFile, out)
	if err != nil {
		return err
	}
	defer func() { _ = closeOutput() }()

	p := pipeline.New(
		pipeline.WithPipelineLogger(logger),
		pipeline.WithContinueOnError(true),
		pipeline.WithStepTimeout(postCrawlStepTimeout),
	)
	p.AddStep(newReportStep(cfg, output, out))

	// Steps run after an interrupt too, so they get a fresh context.
	stepCtx := context.WithoutCancel(ctx)

	if cfg.SaveToDB {
		db, err := openStore(cfg.DBDir)
		if err != nil {
			return err
		}
		defer db.Close()
		p.AddStep(pipeline.NewSaveStep(db, logger))
	}

	if cfg.PostgresDSN != "" {
		sink, err := database.OpenPostgres(stepCtx, cfg.PostgresDSN, 0)
		if err != nil {
			return err
		}
		defer sink.Close()
		if err := sink.EnsureSchema(stepCtx); err != nil {
			return err
		}
		p.AddStep(pipeline.NewExportStep(sink,
			pipeline.WithExportLogger(logger),
			pipeline.WithExportBatchSize(cfg.PostgresBatchSize),
		))
	}

	logger.Debug("running post-crawl steps", "steps", p.StepNames())
	if err := p.Execute(stepCtx, result); err != nil {
		return errors.Join(crawlErr, err)
	}
	return crawlErr
}

// newReportStep builds the report step for the requested format. With
// cfg.Tee the report written to output is repeated on stdout.
func newReportStep(cfg *config.Config, output, stdout io.Writer) pipeline.Step {
	w := newReportWriter(cfg, output, cfg.ReportFile == "")
	if cfg.Tee && cfg.ReportFile != "" {
		w = report.NewMultiWriter(w, newReportWriter(cfg, stdout, true))
	}

	if cfg.JSONReport || cfg.CSVReport {
		return pipeline.NewReportStep(w)
	}
	return pipeline.NewSummaryReportStep(w, cfg.Sentinels)
}

// newReportWriter picks the report writer for the requested format.
// Listing URLs are only truncated on a terminal.
func newReportWriter(cfg *config.Config, output io.Writer, terminal bool) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewFullJSONWriter(output, getVersion(), cfg.Sentinels, report.WithPrettyPrint())
	case cfg.CSVReport:
		return report.NewCSVWriter(output, report.WithComma(cfg.CSVSeparator))
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(output)
	default:
		width := 0
		if terminal {
			width = terminalURLWidth
		}
		return report.NewSimpleWriter(output, report.WithMaxURLWidth(width))
	}
}
