package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/nao1215/immoscan/internal/config"
	"github.com/nao1215/immoscan/internal/model"
)

type mockSaver struct {
	saved []*model.CrawlResult
	err   error
}

func (m *mockSaver) SaveCrawl(_ context.Context, result *model.CrawlResult) error {
	m.saved = append(m.saved, result)
	return m.err
}

type mockExporter struct {
	batchSize int
	err       error
}

func (m *mockExporter) ExportCrawl(_ context.Context, result *model.CrawlResult, batchSize int) (int, error) {
	m.batchSize = batchSize
	if m.err != nil {
		return 0, m.err
	}
	return len(result.Records), nil
}

type mockWriter struct {
	calls []string
	total int
}

func (m *mockWriter) Write(result *model.CrawlResult) (int, error) {
	m.calls = append(m.calls, "records")
	return len(result.Records), nil
}

func (m *mockWriter) WriteSummary(summary *model.CrawlSummary) (int, error) {
	m.calls = append(m.calls, "summary")
	m.total = summary.Total
	return 0, nil
}

func TestSaveStep(t *testing.T) {
	t.Parallel()

	t.Run("saves the result", func(t *testing.T) {
		t.Parallel()

		saver := &mockSaver{}
		step := NewSaveStep(saver, discardLogger())
		res := newResult()

		if err := step.Do(context.Background(), res); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(saver.saved) != 1 || saver.saved[0] != res {
			t.Error("expected result to be saved")
		}
		if step.Name() != "save" {
			t.Errorf("unexpected name %q", step.Name())
		}
	})

	t.Run("wraps errors", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("database is locked")
		if err := NewSaveStep(&mockSaver{err: boom}, nil).Do(context.Background(), newResult()); !errors.Is(err, boom) {
			t.Errorf("expected wrapped error, got %v", err)
		}
	})
}

func TestExportStep(t *testing.T) {
	t.Parallel()

	t.Run("uses the default batch size", func(t *testing.T) {
		t.Parallel()

		exp := &mockExporter{}
		if err := NewExportStep(exp, WithExportLogger(discardLogger())).Do(context.Background(), newResult()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if exp.batchSize != DefaultExportBatchSize {
			t.Errorf("expected batch size %d, got %d", DefaultExportBatchSize, exp.batchSize)
		}
	})

	t.Run("custom batch size and errors", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("connection refused")
		exp := &mockExporter{err: boom}
		step := NewExportStep(exp, WithExportBatchSize(50), WithExportLogger(discardLogger()))
		if err := step.Do(context.Background(), newResult()); !errors.Is(err, boom) {
			t.Errorf("expected wrapped error, got %v", err)
		}
		if exp.batchSize != 50 {
			t.Errorf("expected batch size 50, got %d", exp.batchSize)
		}
	})
}

func TestReportStep(t *testing.T) {
	t.Parallel()

	t.Run("records only", func(t *testing.T) {
		t.Parallel()

		w := &mockWriter{}
		if err := NewReportStep(w).Do(context.Background(), newResult()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(w.calls) != 1 || w.calls[0] != "records" {
			t.Errorf("unexpected calls %v", w.calls)
		}
	})

	t.Run("records then summary", func(t *testing.T) {
		t.Parallel()

		w := &mockWriter{}
		step := NewSummaryReportStep(w, config.DefaultSentinels())
		if err := step.Do(context.Background(), newResult()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(w.calls) != 2 || w.calls[0] != "records" || w.calls[1] != "summary" {
			t.Errorf("unexpected calls %v", w.calls)
		}
		if w.total != 1 {
			t.Errorf("expected summary of 1 record, got %d", w.total)
		}
	})
}
