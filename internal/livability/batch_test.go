package livability

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casaviva/server/config"
	"casaviva/server/internal/models"
	"casaviva/server/internal/queue"
)

type fakeLister struct {
	ids []string
}

func (f *fakeLister) PropertyIDs(ctx context.Context, skip, limit int) ([]string, error) {
	if skip >= len(f.ids) {
		return nil, nil
	}
	end := skip + limit
	if end > len(f.ids) {
		end = len(f.ids)
	}
	return f.ids[skip:end], nil
}

func batchConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Scoring.BatchSize = 2
	cfg.Scoring.WorkerCount = 2
	cfg.Scoring.MaxRetries = 1
	cfg.Scoring.RetryDelay = 0
	return cfg
}

func (f *fakeGraph) scoreCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.scores)
}

func TestBatchScorer_ScoresEveryProperty(t *testing.T) {
	g := newFakeGraph()
	lister := &fakeLister{}
	for i := 0; i < 5; i++ {
		lister.ids = append(lister.ids, fmt.Sprintf("prop-%d", i))
	}

	logger := logrus.New()
	q := queue.NewIDQueue(10, logger)

	b := NewBatchScorer(NewScorer(g, logger), lister, q, batchConfig(), logger)
	b.Start()

	require.NoError(t, b.Enqueue(context.Background()))

	// Wait for the workers to drain the queue, then shut down.
	deadline := time.Now().Add(2 * time.Second)
	for g.scoreCount() < 5 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	b.Stop()

	require.Equal(t, 5, g.scoreCount())
	for _, id := range lister.ids {
		assert.Contains(t, g.scores, id)
	}
}

// blockingGraph parks the scoring worker inside a batch until released, so
// shutdown ordering can be observed.
type blockingGraph struct {
	started chan struct{}
	release chan struct{}
	scores  chan string
}

func (g *blockingGraph) POIAggregates(ctx context.Context, propertyID string) ([]models.POIAggregate, error) {
	close(g.started)
	<-g.release
	return nil, nil
}

func (g *blockingGraph) SetLivabilityScore(ctx context.Context, propertyID string, score float64) error {
	g.scores <- propertyID
	return nil
}

func TestBatchScorer_StopWaitsForInFlightBatch(t *testing.T) {
	g := &blockingGraph{
		started: make(chan struct{}),
		release: make(chan struct{}),
		scores:  make(chan string, 1),
	}

	logger := logrus.New()
	q := queue.NewIDQueue(10, logger)
	cfg := batchConfig()
	cfg.Scoring.WorkerCount = 1

	b := NewBatchScorer(NewScorer(g, logger), &fakeLister{}, q, cfg, logger)
	b.Start()

	require.NoError(t, q.Push([]string{"prop-1"}))
	<-g.started // worker is mid-batch

	stopped := make(chan struct{})
	go func() {
		b.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a batch was still in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(g.release)
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after the batch finished")
	}

	// The in-flight property was scored before shutdown completed.
	assert.Equal(t, "prop-1", <-g.scores)
}
