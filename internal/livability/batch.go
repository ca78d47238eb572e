package livability

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"casaviva/server/config"
	"casaviva/server/internal/queue"
)

// PropertyLister pages through the property ids held in the graph.
type PropertyLister interface {
	PropertyIDs(ctx context.Context, skip, limit int) ([]string, error)
}

// BatchScorer drives bulk recomputation of livability scores over all
// properties: ids are read from the graph in pages, pushed onto the queue
// and consumed by concurrent scoring workers with per-batch retries.
type BatchScorer struct {
	scorer    *Scorer
	lister    PropertyLister
	queue     *queue.IDQueue
	config    *config.Config
	logger    *logrus.Logger
	waitGroup sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewBatchScorer creates a new bulk scoring pipeline.
func NewBatchScorer(scorer *Scorer, lister PropertyLister, q *queue.IDQueue, cfg *config.Config, logger *logrus.Logger) *BatchScorer {
	ctx, cancel := context.WithCancel(context.Background())
	return &BatchScorer{
		scorer: scorer,
		lister: lister,
		queue:  q,
		config: cfg,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start registers the scoring handler and launches the consuming workers.
func (b *BatchScorer) Start() {
	b.queue.Subscribe(func(batch []string) error {
		return b.processBatch(batch)
	})
	for i := 0; i < b.config.Scoring.WorkerCount; i++ {
		b.waitGroup.Add(1)
		go b.processLoop()
	}
}

// Stop cancels in-flight scoring, closes the queue and waits for every
// worker to finish its current batch.
func (b *BatchScorer) Stop() {
	b.cancel()
	_ = b.queue.Close()
	b.waitGroup.Wait()
}

// processLoop consumes queue batches until the queue closes.
func (b *BatchScorer) processLoop() {
	defer b.waitGroup.Done()
	b.queue.Run()
}

// Enqueue pages through every property in the graph and queues their ids
// for scoring. Blocks until all pages are queued or ctx is done.
func (b *BatchScorer) Enqueue(ctx context.Context) error {
	skip := 0
	for {
		ids, err := b.lister.PropertyIDs(ctx, skip, b.config.Scoring.BatchSize)
		if err != nil {
			return fmt.Errorf("failed to list property ids: %w", err)
		}
		if len(ids) == 0 {
			return nil
		}
		if err := b.push(ctx, ids); err != nil {
			return err
		}
		skip += len(ids)
	}
}

// push retries a full queue until the batch fits or ctx is done.
func (b *BatchScorer) push(ctx context.Context, ids []string) error {
	for {
		err := b.queue.Push(ids)
		if err == nil {
			return nil
		}
		if !errors.Is(err, queue.ErrQueueFull) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}

// processBatch scores a single batch with retry logic. A cancelled scorer
// stops retrying immediately.
func (b *BatchScorer) processBatch(batch []string) error {
	var err error
	for attempt := 0; attempt <= b.config.Scoring.MaxRetries; attempt++ {
		if attempt > 0 {
			b.logger.Infof("Retrying batch scoring, attempt %d of %d", attempt, b.config.Scoring.MaxRetries)
			select {
			case <-b.ctx.Done():
				return b.ctx.Err()
			case <-time.After(time.Duration(b.config.Scoring.RetryDelay) * time.Second):
			}
		}

		if err = b.scoreAll(batch); err == nil {
			b.logger.Infof("Successfully scored batch of %d properties", len(batch))
			return nil
		}
		if b.ctx.Err() != nil {
			return err
		}

		b.logger.Errorf("Batch scoring failed: %v", err)
	}

	return fmt.Errorf("failed to score batch after %d attempts: %w", b.config.Scoring.MaxRetries, err)
}

func (b *BatchScorer) scoreAll(batch []string) error {
	for _, id := range batch {
		if err := b.ctx.Err(); err != nil {
			return err
		}
		if _, err := b.scorer.Recompute(b.ctx, id); err != nil {
			return fmt.Errorf("failed to score property %s: %w", id, err)
		}
	}
	return nil
}
