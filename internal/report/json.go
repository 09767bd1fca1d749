package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/immoscan/internal/config"
	"github.com/nao1215/immoscan/internal/model"
)

// JSONWriter outputs crawls in JSON format for tool integration.
// NaN amounts are encoded as the string "NaN". HTML characters are not
// escaped so that search URLs keep their "&" separators.
type JSONWriter struct {
	baseWriter

	// prefix and indent are passed to json.Encoder.SetIndent.
	// Both empty means compact output.
	prefix string
	indent string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables indented output using prefix and indent as in
// json.MarshalIndent.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.prefix = prefix
		w.indent = indent
	}
}

// WithPrettyPrint indents with two spaces.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the crawl as one JSON document.
func (w *JSONWriter) Write(result *model.CrawlResult) (int, error) {
	return w.encode(result)
}

// WriteSummary outputs only the summary.
func (w *JSONWriter) WriteSummary(summary *model.CrawlSummary) (int, error) {
	return w.encode(summary)
}

// encode writes v followed by a newline. Nothing is written when v cannot
// be encoded.
func (w *JSONWriter) encode(v any) (int, error) {
	cw := &countingWriter{w: w.output}
	enc := json.NewEncoder(cw)
	enc.SetEscapeHTML(false)
	enc.SetIndent(w.prefix, w.indent)
	err := enc.Encode(v)
	return cw.n, err
}

// JSONReport wraps a crawl with the tool version and its summary.
type JSONReport struct {
	// Version is the immoscan version that generated this report.
	Version string `json:"version"`

	// Crawl is the full crawl result.
	Crawl *model.CrawlResult `json:"crawl"`

	// Summary is the aggregate view for quick access.
	Summary *model.CrawlSummary `json:"summary,omitempty"`
}

// NewJSONReport creates a JSONReport wrapper with version information.
func NewJSONReport(result *model.CrawlResult, sentinels config.Sentinels, version string) *JSONReport {
	return &JSONReport{
		Version: version,
		Crawl:   result,
		Summary: model.NewCrawlSummary(result, sentinels),
	}
}

// FullJSONWriter outputs complete crawls with a metadata wrapper.
type FullJSONWriter struct {
	*JSONWriter

	// version is the immoscan version string.
	version string

	// sentinels decide which fields count as resolved in the summary.
	sentinels config.Sentinels
}

// NewFullJSONWriter creates a writer for complete reports with metadata.
func NewFullJSONWriter(output io.Writer, version string, sentinels config.Sentinels, opts ...JSONWriterOption) *FullJSONWriter {
	return &FullJSONWriter{
		JSONWriter: NewJSONWriter(output, opts...),
		version:    version,
		sentinels:  sentinels,
	}
}

// Write outputs the crawl wrapped with metadata.
func (w *FullJSONWriter) Write(result *model.CrawlResult) (int, error) {
	return w.encode(NewJSONReport(result, w.sentinels, w.version))
}
