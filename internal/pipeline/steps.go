package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nao1215/immoscan/internal/config"
	"github.com/nao1215/immoscan/internal/model"
)

// DefaultExportBatchSize is the number of listings sent per export batch.
const DefaultExportBatchSize = 500

// CrawlSaver persists a crawl result. *database.CrawlDB implements it.
type CrawlSaver interface {
	SaveCrawl(ctx context.Context, result *model.CrawlResult) error
}

// CrawlExporter sends a crawl result to an external store.
// *database.PostgresSink implements it.
type CrawlExporter interface {
	ExportCrawl(ctx context.Context, result *model.CrawlResult, batchSize int) (int, error)
}

// ReportWriter renders a crawl result and its summary.
// Every writer of the report package implements it.
type ReportWriter interface {
	Write(result *model.CrawlResult) (int, error)
	WriteSummary(summary *model.CrawlSummary) (int, error)
}

// SaveStep stores the crawl in the local history database.
type SaveStep struct {
	saver  CrawlSaver
	logger *slog.Logger
}

// NewSaveStep creates a step saving results through saver.
func NewSaveStep(saver CrawlSaver, logger *slog.Logger) *SaveStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &SaveStep{saver: saver, logger: logger}
}

// Name returns the step name.
func (s *SaveStep) Name() string {
	return "save"
}

// Do saves the crawl.
func (s *SaveStep) Do(ctx context.Context, result *model.CrawlResult) error {
	if err := s.saver.SaveCrawl(ctx, result); err != nil {
		return fmt.Errorf("failed to save crawl: %w", err)
	}
	s.logger.Info("crawl saved", "crawl_id", result.ID, "listings", result.Total)
	return nil
}

// ExportStep exports the crawl to an external database.
type ExportStep struct {
	exporter  CrawlExporter
	batchSize int
	logger    *slog.Logger
}

// ExportStepOption configures an ExportStep.
type ExportStepOption func(*ExportStep)

// WithExportBatchSize sets the number of listings per batch.
func WithExportBatchSize(n int) ExportStepOption {
	return func(s *ExportStep) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithExportLogger sets the logger of the export step.
func WithExportLogger(logger *slog.Logger) ExportStepOption {
	return func(s *ExportStep) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewExportStep creates a step exporting results through exporter.
func NewExportStep(exporter CrawlExporter, opts ...ExportStepOption) *ExportStep {
	s := &ExportStep{
		exporter:  exporter,
		batchSize: DefaultExportBatchSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *ExportStep) Name() string {
	return "export"
}

// Do exports the crawl.
func (s *ExportStep) Do(ctx context.Context, result *model.CrawlResult) error {
	inserted, err := s.exporter.ExportCrawl(ctx, result, s.batchSize)
	if err != nil {
		return fmt.Errorf("failed to export crawl: %w", err)
	}
	s.logger.Info("crawl exported", "crawl_id", result.ID, "listings", result.Total, "inserted", inserted)
	return nil
}

// ReportStep writes the crawl with a report writer, optionally followed by
// its summary.
type ReportStep struct {
	writer    ReportWriter
	summary   bool
	sentinels config.Sentinels
}

// NewReportStep creates a step writing the records only.
func NewReportStep(writer ReportWriter) *ReportStep {
	return &ReportStep{writer: writer}
}

// NewSummaryReportStep creates a step writing the records followed by their
// summary, computed against sentinels.
func NewSummaryReportStep(writer ReportWriter, sentinels config.Sentinels) *ReportStep {
	return &ReportStep{writer: writer, summary: true, sentinels: sentinels}
}

// Name returns the step name.
func (s *ReportStep) Name() string {
	return "report"
}

// Do writes the report.
func (s *ReportStep) Do(_ context.Context, result *model.CrawlResult) error {
	if _, err := s.writer.Write(result); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if s.summary {
		if _, err := s.writer.WriteSummary(model.NewCrawlSummary(result, s.sentinels)); err != nil {
			return fmt.Errorf("failed to write summary: %w", err)
		}
	}
	return nil
}
