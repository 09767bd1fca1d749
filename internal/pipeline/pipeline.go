package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/immoscan/internal/model"
)

// Step is one post-crawl stage. Steps are executed in sequence, each
// receiving the same finished crawl result.
type Step interface {
	// Do executes the step. The result must not be modified.
	Do(ctx context.Context, result *model.CrawlResult) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// StepError reports which step failed.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s step: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Pipeline runs the post-crawl steps (report, save, export) over one
// CrawlResult.
type Pipeline struct {
	steps  []Step
	logger *slog.Logger

	// continueOnError runs the remaining steps after a failure.
	continueOnError bool

	// stepTimeout bounds each step. Zero means no bound.
	stepTimeout time.Duration
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithPipelineLogger sets a custom logger for the pipeline.
func WithPipelineLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError configures the pipeline to run the remaining steps
// after one fails. The errors of all failed steps are joined and returned.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// WithStepTimeout gives every step its own deadline. Non-positive values
// are ignored.
func WithStepTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.stepTimeout = d
		}
	}
}

// New creates an empty Pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddStep appends steps in execution order.
func (p *Pipeline) AddStep(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}

// Execute runs the steps in order. A cancelled ctx stops the pipeline before
// the next step. Step failures are returned as *StepError.
func (p *Pipeline) Execute(ctx context.Context, result *model.CrawlResult) error {
	var errs []error
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("pipeline cancelled", "step", step.Name(), "reason", err)
			return errors.Join(append(errs, err)...)
		}

		start := time.Now()
		err := p.run(ctx, step, result)
		if err == nil {
			p.logger.Debug("step completed",
				"step", step.Name(),
				"crawl_id", result.ID,
				"elapsed", time.Since(start),
			)
			continue
		}

		p.logger.Error("step failed",
			"step", step.Name(),
			"crawl_id", result.ID,
			"error", err,
		)
		stepErr := &StepError{Step: step.Name(), Err: err}
		if !p.continueOnError {
			return stepErr
		}
		errs = append(errs, stepErr)
	}
	return errors.Join(errs...)
}

func (p *Pipeline) run(ctx context.Context, step Step, result *model.CrawlResult) error {
	if p.stepTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.stepTimeout)
		defer cancel()
	}
	return step.Do(ctx, result)
}
