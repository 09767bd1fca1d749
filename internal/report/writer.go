package report

import (
	"io"

	"github.com/nao1215/immoscan/internal/model"
)

// Writer defines the interface for report output.
// Implementations write crawl results in various formats.
type Writer interface {
	// Write outputs every record of the crawl.
	// Returns the number of bytes written and any error encountered.
	Write(result *model.CrawlResult) (int, error)

	// WriteSummary outputs only the aggregate view of a crawl.
	WriteSummary(summary *model.CrawlSummary) (int, error)
}

// MultiWriter writes to multiple Writers in order.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the crawl to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(result *model.CrawlResult) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(result)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteSummary outputs the summary to all configured Writers.
func (m *MultiWriter) WriteSummary(summary *model.CrawlSummary) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteSummary(summary)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// footerText is appended to human-oriented reports.
const footerText = "Report generated by immoscan"

// projectURL is linked from the markdown footer.
const projectURL = "https://github.com/nao1215/immoscan"
