package pipeline

import (
	"fmt"
	"sync"
	"sync/atomic"

	"mediacat/internal/catalog"
	"mediacat/internal/logging"
	"mediacat/internal/metrics"
	"mediacat/internal/workers"
)

// DefaultBatchSize bounds a transaction when the caller does not set one.
const DefaultBatchSize = 1000

// Item is a unit of work: a file id and the absolute path to read.
type Item struct {
	ID   int64
	Path string
}

// Progress tracks a running operation. It is safe for concurrent use.
type Progress struct {
	total     atomic.Int64
	completed atomic.Int64
	cancelled atomic.Bool
}

// NewProgress creates a Progress with the given total.
func NewProgress(total int) *Progress {
	p := &Progress{}
	p.total.Store(int64(total))
	return p
}

// SetTotal records the number of items the operation will process.
func (p *Progress) SetTotal(total int) {
	p.total.Store(int64(total))
}

// Total returns the number of items the operation will process.
func (p *Progress) Total() int {
	return int(p.total.Load())
}

// Completed returns the number of items processed so far.
func (p *Progress) Completed() int {
	return int(p.completed.Load())
}

// Cancel requests cancellation. Items not yet started are skipped; the
// current batch still writes its collected results.
func (p *Progress) Cancel() {
	p.cancelled.Store(true)
}

// Cancelled reports whether cancellation was requested.
func (p *Progress) Cancelled() bool {
	return p.cancelled.Load()
}

// Config controls a pipeline run.
type Config struct {
	// Name labels the operation in logs and metrics.
	Name string
	// Workers is the compute parallelism. Zero derives it from the CPUs.
	Workers int
	// BatchSize bounds each write transaction. Zero means DefaultBatchSize.
	BatchSize int
}

// Run processes items in fixed-size batches: each batch is computed by a
// worker pool, then its results are written serially inside one transaction.
// The database never sees concurrent writers, and an interrupted run loses at
// most one batch of work.
//
// compute returns the value for an item and whether there is one; items
// without a result are skipped at the write stage. write persists one result.
// A write error aborts the run; compute-side failures are the caller's to
// count inside compute.
//
// Run returns the number of results written.
func Run[T any](cat *catalog.Catalog, items []Item, cfg Config, prog *Progress,
	compute func(Item) (T, bool),
	write func(Item, T) error,
) (int, error) {
	if prog == nil {
		prog = NewProgress(len(items))
	} else {
		prog.SetTotal(len(items))
	}

	numWorkers := cfg.Workers
	if numWorkers <= 0 {
		numWorkers = workers.ForCPU(0)
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	metrics.PipelineRunning.Set(1)
	defer metrics.PipelineRunning.Set(0)

	logging.Debug("Pipeline %s: %d items, %d workers, batch size %d",
		cfg.Name, len(items), numWorkers, batchSize)

	written := 0
	for start := 0; start < len(items); start += batchSize {
		end := start + batchSize
		if end > len(items) {
			end = len(items)
		}

		results := computeBatch(items[start:end], numWorkers, prog, compute)
		n, err := writeBatch(cat, results, write)
		written += n
		if err != nil {
			metrics.PipelineRunsTotal.WithLabelValues(cfg.Name, "error").Inc()
			return written, fmt.Errorf("%s: %w", cfg.Name, err)
		}
		metrics.PipelineItemsProcessed.WithLabelValues(cfg.Name).Add(float64(end - start))

		// The batch in flight at cancellation time still got written above.
		if prog.Cancelled() {
			metrics.PipelineRunsTotal.WithLabelValues(cfg.Name, "cancelled").Inc()
			logging.Info("Pipeline %s cancelled after %d/%d items",
				cfg.Name, prog.Completed(), prog.Total())
			return written, nil
		}
	}

	metrics.PipelineRunsTotal.WithLabelValues(cfg.Name, "completed").Inc()
	return written, nil
}

type result[T any] struct {
	item  Item
	value T
	ok    bool
}

// computeBatch fans the batch out to a worker pool. Results keep the input
// order so writes are deterministic.
func computeBatch[T any](batch []Item, numWorkers int, prog *Progress,
	compute func(Item) (T, bool),
) []result[T] {
	results := make([]result[T], len(batch))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				if prog.Cancelled() {
					continue
				}
				value, ok := compute(batch[idx])
				results[idx] = result[T]{item: batch[idx], value: value, ok: ok}
				prog.completed.Add(1)
			}
		}()
	}

	for i := range batch {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}

// writeBatch persists the batch's results inside a single transaction.
func writeBatch[T any](cat *catalog.Catalog, results []result[T],
	write func(Item, T) error,
) (int, error) {
	if err := cat.Begin(); err != nil {
		return 0, err
	}

	written := 0
	for _, r := range results {
		if !r.ok {
			continue
		}
		if err := write(r.item, r.value); err != nil {
			cat.Rollback()
			return 0, err
		}
		written++
	}

	if err := cat.Commit(); err != nil {
		return 0, err
	}
	return written, nil
}
