package report

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/nao1215/immoscan/internal/model"
)

// CSVWriter outputs one row per record after a header row in
// model.ListingColumns order.
type CSVWriter struct {
	baseWriter

	comma rune
}

// CSVWriterOption configures a CSVWriter.
type CSVWriterOption func(*CSVWriter)

// WithComma sets the field delimiter. Spreadsheets configured for Italian
// often expect ';'.
func WithComma(r rune) CSVWriterOption {
	return func(w *CSVWriter) {
		w.comma = r
	}
}

// NewCSVWriter creates a CSVWriter that outputs to the given writer.
func NewCSVWriter(output io.Writer, opts ...CSVWriterOption) *CSVWriter {
	w := &CSVWriter{
		baseWriter: newBaseWriter(output),
		comma:      ',',
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the header row and every record.
func (w *CSVWriter) Write(result *model.CrawlResult) (int, error) {
	rows := make([][]string, 0, len(result.Records)+1)
	rows = append(rows, model.ListingColumns)
	for _, r := range result.Records {
		rows = append(rows, r.Row())
	}
	return w.writeRows(rows)
}

// WriteSummary outputs the summary as metric,value rows.
func (w *CSVWriter) WriteSummary(summary *model.CrawlSummary) (int, error) {
	rows := [][]string{
		{"metric", "value"},
		{"total", strconv.Itoa(summary.Total)},
		{"pages_visited", strconv.Itoa(summary.PagesVisited)},
		{"with_cost", strconv.Itoa(summary.WithCost)},
		{"with_price_per_area", strconv.Itoa(summary.WithPricePerArea)},
		{"with_floor", strconv.Itoa(summary.WithFloor)},
		{"with_area", strconv.Itoa(summary.WithArea)},
		{"with_energy_class", strconv.Itoa(summary.WithEnergyClass)},
		{"with_parking", strconv.Itoa(summary.WithParking)},
		{"top_floor", strconv.Itoa(summary.TopFloor)},
	}
	if stats := summary.PricePerArea; stats != nil {
		rows = append(rows,
			[]string{"price_per_area_min", formatFloat(stats.Min)},
			[]string{"price_per_area_median", formatFloat(stats.Median)},
			[]string{"price_per_area_mean", formatFloat(stats.Mean)},
			[]string{"price_per_area_max", formatFloat(stats.Max)},
		)
	}
	for _, name := range summary.EnergyClassNames() {
		rows = append(rows, []string{"energy_class_" + name, strconv.Itoa(summary.EnergyClasses[name])})
	}
	return w.writeRows(rows)
}

func (w *CSVWriter) writeRows(rows [][]string) (int, error) {
	cw := &countingWriter{w: w.output}
	enc := csv.NewWriter(cw)
	enc.Comma = w.comma
	if err := enc.WriteAll(rows); err != nil {
		return cw.n, err
	}
	return cw.n, nil
}

// countingWriter counts the bytes passed to w.
type countingWriter struct {
	w io.Writer
	n int
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += n
	return n, err
}
