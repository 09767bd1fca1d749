package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/immoscan/internal/database"
	"github.com/nao1215/immoscan/internal/model"
	"github.com/nao1215/immoscan/internal/report"
)

// NewHistoryCmd creates the history command.
// It reads crawls stored by previous runs of the crawl command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [search-url]",
		Short: "Inspect and compare stored crawls",
		Long: `History reads the crawls stored by 'immoscan crawl'.

Examples:
  # List all stored crawls
  immoscan history --list

  # Show one crawl
  immoscan history --crawl-id 2b1f...

  # Price history of one listing across crawls
  immoscan history --url https://www.immobiliare.it/annunci/123456/

  # Compare the latest two crawls of a search
  immoscan history --compare "https://www.immobiliare.it/vendita-case/milano/"

  # Remove one crawl from the history
  immoscan history --delete 2b1f...

  # Output in JSON format
  immoscan history --list --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("list", "l", false,
		"List stored crawls, newest first")
	cmd.Flags().StringP("crawl-id", "i", "",
		"Show the crawl with this ID")
	cmd.Flags().StringP("url", "u", "",
		"Show the price history of one listing")
	cmd.Flags().Bool("compare", false,
		"Compare the latest two crawls of the search given as argument")
	cmd.Flags().String("delete", "",
		"Delete the crawl with this ID")
	cmd.Flags().BoolP("json", "j", false,
		"Output in JSON format")
	cmd.Flags().String("db-dir", "",
		"History database directory (default: XDG data directory)")

	return cmd
}

// historyOptions holds the parsed flags of the history command.
type historyOptions struct {
	list    bool
	crawlID string
	url     string
	compare bool
	remove  string
	json    bool
	dbDir   string
	baseURL string
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	opts, err := parseHistoryFlags(cmd, args)
	if err != nil {
		return err
	}

	db, err := openStore(resolveDBDir(opts.dbDir))
	if err != nil {
		return err
	}
	defer db.Close()

	return runHistory(cmd.Context(), db, opts, cmd.OutOrStdout())
}

func parseHistoryFlags(cmd *cobra.Command, args []string) (historyOptions, error) {
	var (
		opts historyOptions
		err  error
	)
	flags := cmd.Flags()
	if opts.list, err = flags.GetBool("list"); err != nil {
		return opts, err
	}
	if opts.crawlID, err = flags.GetString("crawl-id"); err != nil {
		return opts, err
	}
	if opts.url, err = flags.GetString("url"); err != nil {
		return opts, err
	}
	if opts.compare, err = flags.GetBool("compare"); err != nil {
		return opts, err
	}
	if opts.remove, err = flags.GetString("delete"); err != nil {
		return opts, err
	}
	if opts.json, err = flags.GetBool("json"); err != nil {
		return opts, err
	}
	if opts.dbDir, err = flags.GetString("db-dir"); err != nil {
		return opts, err
	}
	if len(args) > 0 {
		opts.baseURL = args[0]
	}

	// Validate before opening the database.
	modes := 0
	for _, set := range []bool{opts.list, opts.crawlID != "", opts.url != "", opts.compare, opts.remove != ""} {
		if set {
			modes++
		}
	}
	switch {
	case modes == 0:
		return opts, errors.New("nothing to do: use --list, --crawl-id, --url, --compare or --delete")
	case modes > 1:
		return opts, errors.New("--list, --crawl-id, --url, --compare and --delete are mutually exclusive")
	case opts.compare && opts.baseURL == "":
		return opts, errors.New("--compare requires the search URL as argument")
	}
	return opts, nil
}

func runHistory(ctx context.Context, db *database.CrawlDB, opts historyOptions, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	switch {
	case opts.list:
		crawls, err := db.ListCrawls(ctx)
		if err != nil {
			return fmt.Errorf("failed to list crawls: %w", err)
		}
		if opts.json {
			return writeJSON(out, crawls)
		}
		return writeCrawlList(out, crawls)

	case opts.crawlID != "":
		crawl, err := db.GetCrawl(ctx, opts.crawlID)
		if err != nil {
			return fmt.Errorf("failed to get crawl: %w", err)
		}
		if crawl == nil {
			return fmt.Errorf("crawl not found: %s", opts.crawlID)
		}
		if opts.json {
			return writeJSON(out, crawl)
		}
		w := report.NewSimpleWriter(out)
		if _, err := w.Write(crawl); err != nil {
			return err
		}
		_, err = w.WriteSummary(crawl.Summary())
		return err

	case opts.url != "":
		history, err := db.ListingHistory(ctx, opts.url)
		if err != nil {
			return fmt.Errorf("failed to get listing history: %w", err)
		}
		if opts.json {
			return writeJSON(out, history)
		}
		return writeListingHistory(out, opts.url, history)

	case opts.remove != "":
		deleted, err := db.DeleteCrawl(ctx, opts.remove)
		if err != nil {
			return fmt.Errorf("failed to delete crawl: %w", err)
		}
		if !deleted {
			return fmt.Errorf("crawl not found: %s", opts.remove)
		}
		fmt.Fprintf(out, "Deleted crawl %s\n", opts.remove)
		return nil

	default:
		crawls, err := db.GetLatestCrawls(ctx, opts.baseURL, 2)
		if err != nil {
			return fmt.Errorf("failed to get crawls: %w", err)
		}
		if len(crawls) < 2 {
			return fmt.Errorf("at least 2 crawls are required for comparison (found %d)", len(crawls))
		}
		diff := model.CompareCrawls(crawls[1], crawls[0])
		if opts.json {
			return writeJSON(out, diff)
		}
		return writeDiff(out, diff)
	}
}

func writeJSON(out io.Writer, v any) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func writeCrawlList(out io.Writer, crawls []database.CrawlMetadata) error {
	if len(crawls) == 0 {
		fmt.Fprintln(out, "No crawls found in the history.")
		fmt.Fprintln(out, "\nUse 'immoscan crawl <search-url>' to crawl a search.")
		return nil
	}

	fmt.Fprintf(out, "Stored crawls (%d):\n\n", len(crawls))
	fmt.Fprintf(out, "  %-36s  %-19s  %8s  %5s  %s\n", "ID", "Date", "Listings", "Pages", "Search")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 100))
	for _, c := range crawls {
		fmt.Fprintf(out, "  %-36s  %-19s  %8d  %5d  %s\n",
			c.ID,
			c.StartedAt.Format("2006-01-02 15:04:05"),
			c.Total,
			c.PagesVisited,
			c.BaseURL,
		)
	}
	return nil
}

func writeListingHistory(out io.Writer, url string, history []database.ListingObservation) error {
	if len(history) == 0 {
		fmt.Fprintf(out, "No history found for %s\n", url)
		return nil
	}

	fmt.Fprintf(out, "Price history for %s (%d crawls):\n\n", url, len(history))
	fmt.Fprintf(out, "  %-19s  %10s  %9s  %s\n", "Date", "Cost", "EUR/m2", "Crawl")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 80))
	for _, obs := range history {
		fmt.Fprintf(out, "  %-19s  %10s  %9s  %s\n",
			obs.CrawledAt.Format("2006-01-02 15:04:05"),
			obs.Record.Cost.String(),
			obs.Record.PricePerArea.String(),
			obs.CrawlID,
		)
	}
	return nil
}

func writeDiff(out io.Writer, diff *model.CrawlDiff) error {
	fmt.Fprintf(out, "Crawl Comparison: %s\n", diff.BaseURL)
	fmt.Fprintln(out, strings.Repeat("=", 60))
	fmt.Fprintf(out, "\nPrevious crawl: %s (%d listings)\n", diff.Previous.StartedAt.Format("2006-01-02 15:04:05"), diff.Previous.Total)
	fmt.Fprintf(out, "Current crawl:  %s (%d listings)\n", diff.Current.StartedAt.Format("2006-01-02 15:04:05"), diff.Current.Total)
	fmt.Fprintf(out, "Price trend:    %s\n", diff.Trend)

	if !diff.HasChanges() {
		fmt.Fprintf(out, "\nNo changes (%d listings unchanged).\n", diff.UnchangedCount)
		return nil
	}

	if len(diff.Added) > 0 {
		fmt.Fprintf(out, "\nNew listings (%d):\n", len(diff.Added))
		for _, r := range diff.Added {
			fmt.Fprintf(out, "  + %s  %s\n", r.URL, r.Cost.String())
		}
	}
	if len(diff.Removed) > 0 {
		fmt.Fprintf(out, "\nRemoved listings (%d):\n", len(diff.Removed))
		for _, r := range diff.Removed {
			fmt.Fprintf(out, "  - %s  %s\n", r.URL, r.Cost.String())
		}
	}
	if len(diff.PriceChanges) > 0 {
		fmt.Fprintf(out, "\nPrice changes (%d):\n", len(diff.PriceChanges))
		for _, c := range diff.PriceChanges {
			fmt.Fprintf(out, "  ~ %s  %s -> %s (%s)\n", c.URL, c.Previous.String(), c.Current.String(), formatDelta(c.Delta()))
		}
	}
	fmt.Fprintf(out, "\n%d listings unchanged\n", diff.UnchangedCount)
	return nil
}

// formatDelta formats a price change with an explicit sign.
func formatDelta(d model.Amount) string {
	if d > 0 {
		return "+" + d.String()
	}
	return d.String()
}
