package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nao1215/immoscan/internal/model"
)

// mockStep is a test helper that implements the Step interface.
type mockStep struct {
	name      string
	doFunc    func(ctx context.Context, result *model.CrawlResult) error
	callCount int
}

// Do implements Step.Do.
func (m *mockStep) Do(ctx context.Context, result *model.CrawlResult) error {
	m.callCount++
	if m.doFunc != nil {
		return m.doFunc(ctx, result)
	}
	return nil
}

// Name implements Step.Name.
func (m *mockStep) Name() string {
	return m.name
}

func newResult() *model.CrawlResult {
	res := model.NewCrawlResult("https://www.immobiliare.it/vendita-case/milano/")
	res.Finish([]model.ListingRecord{{URL: "https://www.immobiliare.it/annunci/1/"}}, 1)
	return res
}

// TestPipelineNew tests the Pipeline constructor.
func TestPipelineNew(t *testing.T) {
	t.Parallel()

	t.Run("creates pipeline with default settings", func(t *testing.T) {
		t.Parallel()

		p := New()

		if p == nil {
			t.Fatal("expected non-nil pipeline")
		}
		if len(p.StepNames()) != 0 {
			t.Errorf("expected 0 steps, got %d", len(p.StepNames()))
		}
		if p.logger == nil {
			t.Error("expected default logger")
		}
	})

	t.Run("applies WithContinueOnError option", func(t *testing.T) {
		t.Parallel()

		p := New(WithContinueOnError(true))

		if !p.continueOnError {
			t.Error("expected continueOnError to be true")
		}
	})
}

// TestPipelineAddStep tests adding steps to the pipeline.
func TestPipelineAddStep(t *testing.T) {
	t.Parallel()

	t.Run("keeps insertion order across calls", func(t *testing.T) {
		t.Parallel()

		p := New()
		p.AddStep(&mockStep{name: "save"}, &mockStep{name: "export"})
		p.AddStep(&mockStep{name: "report"})

		if len(p.StepNames()) != 3 {
			t.Errorf("expected 3 steps, got %d", len(p.StepNames()))
		}

		expected := []string{"save", "export", "report"}
		for i, name := range p.StepNames() {
			if name != expected[i] {
				t.Errorf("step %d: got %q, expected %q", i, name, expected[i])
			}
		}
	})
}

// TestPipelineExecute tests pipeline execution.
func TestPipelineExecute(t *testing.T) {
	t.Parallel()

	t.Run("executes all steps in order", func(t *testing.T) {
		t.Parallel()

		order := make([]string, 0)
		record := func(name string) *mockStep {
			return &mockStep{name: name, doFunc: func(context.Context, *model.CrawlResult) error {
				order = append(order, name)
				return nil
			}}
		}

		p := New()
		p.AddStep(record("first"), record("second"), record("third"))

		if err := p.Execute(context.Background(), newResult()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(order) != 3 || order[0] != "first" || order[2] != "third" {
			t.Errorf("unexpected execution order %v", order)
		}
	})

	t.Run("stops on first error by default", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("disk full")
		failing := &mockStep{name: "save", doFunc: func(context.Context, *model.CrawlResult) error { return boom }}
		after := &mockStep{name: "report"}

		p := New()
		p.AddStep(failing, after)

		err := p.Execute(context.Background(), newResult())
		if !errors.Is(err, boom) {
			t.Errorf("expected step error, got %v", err)
		}
		var stepErr *StepError
		if !errors.As(err, &stepErr) || stepErr.Step != "save" {
			t.Errorf("expected StepError for save, got %v", err)
		}
		if after.callCount != 0 {
			t.Error("step after failure must not run")
		}
	})

	t.Run("continues and joins errors when configured", func(t *testing.T) {
		t.Parallel()

		errSave := errors.New("save failed")
		errExport := errors.New("export failed")
		after := &mockStep{name: "report"}

		p := New(WithContinueOnError(true))
		p.AddStep(
			&mockStep{name: "save", doFunc: func(context.Context, *model.CrawlResult) error { return errSave }},
			&mockStep{name: "export", doFunc: func(context.Context, *model.CrawlResult) error { return errExport }},
			after,
		)

		err := p.Execute(context.Background(), newResult())
		if !errors.Is(err, errSave) || !errors.Is(err, errExport) {
			t.Errorf("expected both errors, got %v", err)
		}
		if after.callCount != 1 {
			t.Error("expected remaining step to run")
		}
	})

	t.Run("step timeout sets a deadline", func(t *testing.T) {
		t.Parallel()

		var hasDeadline bool
		step := &mockStep{name: "export", doFunc: func(ctx context.Context, _ *model.CrawlResult) error {
			_, hasDeadline = ctx.Deadline()
			return nil
		}}

		p := New(WithStepTimeout(time.Minute))
		p.AddStep(step)
		if err := p.Execute(context.Background(), newResult()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !hasDeadline {
			t.Error("expected step context to carry a deadline")
		}
	})

	t.Run("respects cancellation", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		step := &mockStep{name: "save"}
		p := New()
		p.AddStep(step)

		if err := p.Execute(ctx, newResult()); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if step.callCount != 0 {
			t.Error("step must not run after cancellation")
		}
	})
}
