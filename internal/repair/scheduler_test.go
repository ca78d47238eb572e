package repair

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casaviva/server/internal/models"
)

type fakeApplier struct {
	mu        sync.Mutex
	calls     []Job
	remaining map[string][]string // job id → buyers still failing
}

func (f *fakeApplier) Apply(ctx context.Context, job Job) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, job)
	return f.remaining[job.ID]
}

func (f *fakeApplier) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newTestScheduler(applier Applier, cpu float64) *Scheduler {
	s := NewScheduler(applier, 5*time.Minute, time.Second, 30, logrus.New())
	s.cpuPercent = func(ctx context.Context) (float64, error) { return cpu, nil }
	return s
}

func TestScheduler_JobNotDueYet(t *testing.T) {
	applier := &fakeApplier{}
	s := newTestScheduler(applier, 0)

	s.Enqueue(NewJob("prop-1", OpUpsert, []string{"buyer-1"}, models.BuyerEntry{}))
	require.Equal(t, 1, s.Pending())

	// The first attempt happens one full backoff after enqueue.
	s.runDueJobs(context.Background(), time.Now())
	assert.Equal(t, 0, applier.callCount())
	assert.Equal(t, 1, s.Pending())
}

func TestScheduler_RunsDueJobWhenLoadIsLow(t *testing.T) {
	applier := &fakeApplier{}
	s := newTestScheduler(applier, 10)

	job := NewJob("prop-1", OpUpsert, []string{"buyer-1"}, models.BuyerEntry{})
	s.Enqueue(job)

	s.runDueJobs(context.Background(), time.Now().Add(6*time.Minute))
	require.Equal(t, 1, applier.callCount())
	assert.Equal(t, job.ID, applier.calls[0].ID)

	// Fully repaired: nothing left to schedule.
	assert.Equal(t, 0, s.Pending())
}

func TestScheduler_DefersUnderHighLoad(t *testing.T) {
	applier := &fakeApplier{}
	s := newTestScheduler(applier, 85)

	s.Enqueue(NewJob("prop-1", OpUpsert, []string{"buyer-1"}, models.BuyerEntry{}))

	due := time.Now().Add(6 * time.Minute)
	s.runDueJobs(context.Background(), due)
	assert.Equal(t, 0, applier.callCount())
	require.Equal(t, 1, s.Pending())

	// Deferred by one more backoff, not dropped.
	s.runDueJobs(context.Background(), due.Add(time.Minute))
	assert.Equal(t, 0, applier.callCount())
	s.runDueJobs(context.Background(), due.Add(6*time.Minute))
	assert.Equal(t, 0, applier.callCount()) // still gated on CPU
	assert.Equal(t, 1, s.Pending())
}

func TestScheduler_RequeuesRemainingBuyers(t *testing.T) {
	job := NewJob("prop-1", OpUpsert, []string{"buyer-1", "buyer-2"}, models.BuyerEntry{})
	applier := &fakeApplier{remaining: map[string][]string{job.ID: {"buyer-2"}}}
	s := newTestScheduler(applier, 10)

	s.Enqueue(job)

	first := time.Now().Add(6 * time.Minute)
	s.runDueJobs(context.Background(), first)
	require.Equal(t, 1, applier.callCount())
	require.Equal(t, 1, s.Pending())

	// The re-enqueued job carries only the unrepaired remainder and waits a
	// full backoff before the next attempt.
	s.runDueJobs(context.Background(), first.Add(time.Minute))
	require.Equal(t, 1, applier.callCount())

	applier.remaining = map[string][]string{}
	s.runDueJobs(context.Background(), first.Add(6*time.Minute))
	require.Equal(t, 2, applier.callCount())
	assert.Equal(t, []string{"buyer-2"}, applier.calls[1].BuyerIDs)
	assert.Equal(t, 0, s.Pending())
}

func TestScheduler_StartStop(t *testing.T) {
	applier := &fakeApplier{}
	s := NewScheduler(applier, 10*time.Millisecond, 10*time.Millisecond, 30, logrus.New())
	s.cpuPercent = func(ctx context.Context) (float64, error) { return 0, nil }

	s.Enqueue(NewJob("prop-1", OpDelete, []string{"buyer-1"}, models.BuyerEntry{}))
	s.Start()

	// Wait for the ticker to pick the job up.
	deadline := time.Now().Add(time.Second)
	for applier.callCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	s.Stop()

	assert.GreaterOrEqual(t, applier.callCount(), 1)
	assert.Equal(t, 0, s.Pending())
}
