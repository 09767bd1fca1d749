package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/immoscan/internal/model"
)

// MarkdownWriter outputs crawls in Markdown format for documentation and
// sharing. It is built on the nao1215/markdown fluent API.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the crawl header and a table of every record.
func (w *MarkdownWriter) Write(result *model.CrawlResult) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, result)
	w.writeListings(md, result.Records)

	return len(md.String()), md.Build()
}

// WriteSummary outputs field coverage, price statistics and an energy class
// pie chart, closing the report.
func (w *MarkdownWriter) WriteSummary(summary *model.CrawlSummary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H2("Summary")
	md.PlainText("")

	total := strconv.Itoa(summary.Total)
	md.Table(markdown.TableSet{
		Header: []string{"Field", "Resolved"},
		Rows: [][]string{
			{"Cost", strconv.Itoa(summary.WithCost) + "/" + total},
			{"Price per m²", strconv.Itoa(summary.WithPricePerArea) + "/" + total},
			{"Floor", strconv.Itoa(summary.WithFloor) + "/" + total},
			{"Area", strconv.Itoa(summary.WithArea) + "/" + total},
			{"Energy class", strconv.Itoa(summary.WithEnergyClass) + "/" + total},
			{"Parking", strconv.Itoa(summary.WithParking) + "/" + total},
			{"Top floor", strconv.Itoa(summary.TopFloor) + "/" + total},
		},
	})
	md.PlainText("")

	if stats := summary.PricePerArea; stats != nil {
		md.H3("Price per m²")
		md.PlainText("")
		md.Table(markdown.TableSet{
			Header: []string{"Min", "Median", "Mean", "Max"},
			Rows: [][]string{{
				formatFloat(stats.Min),
				formatFloat(stats.Median),
				formatFloat(stats.Mean),
				formatFloat(stats.Max),
			}},
		})
		md.PlainText("")
	}

	if len(summary.EnergyClasses) > 0 {
		w.writePieChart(md, summary)
	}

	w.writeAlert(md, summary)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with crawl information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, result *model.CrawlResult) {
	md.H1("immoscan Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Search", "`" + result.BaseURL + "`"},
			{"Crawl ID", "`" + result.ID + "`"},
			{"Started", result.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Pages Visited", strconv.Itoa(result.PagesVisited)},
			{"Listings", strconv.Itoa(result.Total)},
		},
	})
	md.PlainText("")
}

// writeListings writes one table row per record.
func (w *MarkdownWriter) writeListings(md *markdown.Markdown, records []model.ListingRecord) {
	md.H2("Listings")
	md.PlainText("")

	if len(records) == 0 {
		md.PlainText("No listings found.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = r.Row()
	}
	md.Table(markdown.TableSet{
		Header: model.ListingColumns,
		Rows:   rows,
	})
	md.PlainText("")
}

// writePieChart writes a mermaid pie chart of the energy class distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, summary *model.CrawlSummary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Energy Class Distribution"),
		piechart.WithShowData(true),
	)

	for _, name := range summary.EnergyClassNames() {
		chart.LabelAndIntValue(name, uint64(summary.EnergyClasses[name])) //nolint:gosec // counts are never negative
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert flags crawls where most listings lost their price.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, summary *model.CrawlSummary) {
	switch {
	case summary.Total == 0:
		md.Warning("No listings were found. Check the search URL and the pagination settings.")
	case summary.WithCost == 0:
		md.Cautionf("None of the %d listings has a usable price.", summary.Total)
	case summary.WithCost*2 < summary.Total:
		md.Importantf("Only %d of %d listings have a usable price.", summary.WithCost, summary.Total)
	default:
		md.Tip(fmt.Sprintf("%d of %d listings have a usable price.", summary.WithCost, summary.Total))
	}
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*%s ([source](%s))*", footerText, projectURL)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 1, 64)
}
