package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/immoscan/internal/config"
	"github.com/nao1215/immoscan/internal/model"
	"golang.org/x/sync/errgroup"
)

// ListingFunc produces the record of one listing. It must not fail: problems
// resolve to sentinel values inside the record.
type ListingFunc func(ctx context.Context, url string) model.ListingRecord

// BatchProcessor handles concurrent processing of listing URLs.
// It uses errgroup to bound the number of listings processed at once.
type BatchProcessor struct {
	// process builds the record of one listing.
	process ListingFunc

	// concurrency is the maximum number of listings processed at once.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent listings.
// Default is config.DefaultWorkers if not specified.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor running process for every
// URL.
func NewBatchProcessor(process ListingFunc, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		process:     process,
		concurrency: config.DefaultWorkers,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch processes all URLs concurrently and returns one record per URL
// in input order.
//
// Workers never cancel each other. Only the parent context stops the batch;
// in that case the records completed before the cancellation are returned
// with ctx.Err(). A record whose processing overlapped the cancellation is
// dropped, since its fetch may have been cut short.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, urls []string) ([]model.ListingRecord, error) {
	return bp.ProcessBatchWithCallback(ctx, urls, nil)
}

// ProcessBatchWithCallback is ProcessBatch calling callback with each record
// as soon as it is ready. The callback runs on the worker goroutine, so it
// must be safe for concurrent use.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	urls []string,
	callback func(record model.ListingRecord, index int),
) ([]model.ListingRecord, error) {
	bp.logger.Info("starting batch processing",
		"total_listings", len(urls),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()

	// Each worker writes only its own index.
	results := make([]model.ListingRecord, len(urls))
	done := make([]bool, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, url := range urls {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			bp.logger.Debug("processing listing",
				"url", url,
				"index", i+1,
				"total", len(urls),
			)

			record := bp.process(gctx, url)
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = record
			done[i] = true

			if callback != nil {
				callback(record, i)
			}
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	bp.logger.Info("batch processing complete",
		"total_listings", len(urls),
		"elapsed", time.Since(startTime),
	)

	if err != nil {
		completed := make([]model.ListingRecord, 0, len(urls))
		for i, ok := range done {
			if ok {
				completed = append(completed, results[i])
			}
		}
		return completed, err
	}
	return results, nil
}
