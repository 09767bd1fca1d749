package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/immoscan/internal/model"
)

// SimpleWriter outputs human-readable text reports for the terminal.
// Records are printed as a fixed-width table.
type SimpleWriter struct {
	baseWriter

	// maxURLWidth truncates long listing URLs. Zero disables truncation.
	maxURLWidth int
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithMaxURLWidth truncates listing URLs longer than width characters.
func WithMaxURLWidth(width int) SimpleWriterOption {
	return func(w *SimpleWriter) {
		if width >= 0 {
			w.maxURLWidth = width
		}
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the crawl header, one line per record and the listing count.
func (w *SimpleWriter) Write(result *model.CrawlResult) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, result)
	w.writeRecords(&sb, result.Records)
	w.writeFooter(&sb, result)

	return w.output.Write([]byte(sb.String()))
}

// WriteSummary outputs field coverage, price statistics and the energy
// class distribution.
func (w *SimpleWriter) WriteSummary(summary *model.CrawlSummary) (int, error) {
	var sb strings.Builder

	writeSection(&sb, "SUMMARY")
	sb.WriteString(fmt.Sprintf("  Listings:        %d\n", summary.Total))
	sb.WriteString(fmt.Sprintf("  Pages visited:   %d\n", summary.PagesVisited))
	sb.WriteString("\n")

	coverage := []struct {
		label string
		count int
	}{
		{"Cost", summary.WithCost},
		{"Price per m2", summary.WithPricePerArea},
		{"Floor", summary.WithFloor},
		{"Area", summary.WithArea},
		{"Energy class", summary.WithEnergyClass},
		{"Parking", summary.WithParking},
		{"Top floor", summary.TopFloor},
	}
	for _, c := range coverage {
		sb.WriteString(fmt.Sprintf("  %-15s  %d/%d\n", c.label+":", c.count, summary.Total))
	}
	sb.WriteString("\n")

	if stats := summary.PricePerArea; stats != nil {
		sb.WriteString("  Price per m2\n")
		sb.WriteString(fmt.Sprintf("    min %.1f  median %.1f  mean %.1f  max %.1f\n",
			stats.Min, stats.Median, stats.Mean, stats.Max))
		sb.WriteString("\n")
	}

	if len(summary.EnergyClasses) > 0 {
		sb.WriteString("  Energy classes\n")
		for _, name := range summary.EnergyClassNames() {
			sb.WriteString(fmt.Sprintf("    %-6s %d\n", name, summary.EnergyClasses[name]))
		}
		sb.WriteString("\n")
	}

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the report header with crawl information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, result *model.CrawlResult) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                          IMMOSCAN REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Search:         %s\n", result.BaseURL))
	sb.WriteString(fmt.Sprintf("Crawl ID:       %s\n", result.ID))
	sb.WriteString(fmt.Sprintf("Started:        %s\n", result.StartedAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Duration:       %s\n", result.Duration().Round(time.Millisecond)))
	sb.WriteString(fmt.Sprintf("Pages visited:  %d\n", result.PagesVisited))
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeRecords(sb *strings.Builder, records []model.ListingRecord) {
	writeSection(sb, "LISTINGS")

	if len(records) == 0 {
		sb.WriteString("  No listings found\n\n")
		return
	}

	sb.WriteString(fmt.Sprintf("  %10s %9s %5s %5s %3s %6s %4s  %s\n",
		"COST", "EUR/M2", "FLOOR", "M2", "TOP", "ENERGY", "PARK", "URL"))
	for _, r := range records {
		top := "-"
		if r.IsTopFloor {
			top = "yes"
		}
		sb.WriteString(fmt.Sprintf("  %10s %9s %5d %5d %3s %6s %4d  %s\n",
			r.Cost.String(),
			r.PricePerArea.String(),
			r.Floor,
			r.Area,
			top,
			r.EnergyClass,
			r.ParkingSpots,
			truncateString(r.URL, w.maxURLWidth),
		))
	}
	sb.WriteString("\n")
}

// writeFooter writes the listing count and the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder, result *model.CrawlResult) {
	sb.WriteString(fmt.Sprintf("Listings found: %d\n", result.Total))
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString(footerText + "\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}

func writeSection(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title + "\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}

// truncateString truncates a string to maxLen characters with ellipsis.
// A non-positive maxLen leaves the string untouched.
func truncateString(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
