package repair

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/sirupsen/logrus"
)

// Applier re-attempts the buyer-side mutation of a job and returns the buyer
// ids that still failed.
type Applier interface {
	Apply(ctx context.Context, job Job) (remaining []string)
}

// Scheduler is the background convergence mechanism for half-written
// reservation pairs. Due jobs are retried with a fixed backoff, and only
// when sampled CPU utilization is below the configured threshold. Jobs that
// still have failing buyers re-enqueue themselves with the same backoff,
// unboundedly, until the worklist drains.
type Scheduler struct {
	applier  Applier
	logger   *logrus.Logger
	backoff  time.Duration
	tick     time.Duration
	maxCPU   float64
	stopChan chan struct{}
	wg       sync.WaitGroup

	// Injectable for tests; defaults to a gopsutil sample.
	cpuPercent func(ctx context.Context) (float64, error)

	mu   sync.Mutex
	jobs []*pendingJob
}

type pendingJob struct {
	job         Job
	nextAttempt time.Time
}

// NewScheduler creates a repair scheduler. backoff is the fixed delay before
// a job's first attempt and between attempts; maxCPU is the utilization
// percentage at or above which attempts are deferred.
func NewScheduler(applier Applier, backoff, tick time.Duration, maxCPU float64, logger *logrus.Logger) *Scheduler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	return &Scheduler{
		applier:    applier,
		logger:     logger,
		backoff:    backoff,
		tick:       tick,
		maxCPU:     maxCPU,
		stopChan:   make(chan struct{}),
		cpuPercent: sampleCPU,
	}
}

func sampleCPU(ctx context.Context) (float64, error) {
	percents, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return 0, err
	}
	if len(percents) == 0 {
		return 0, nil
	}
	return percents[0], nil
}

// Enqueue schedules a job for its first attempt one backoff from now.
func (s *Scheduler) Enqueue(job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobs = append(s.jobs, &pendingJob{job: job, nextAttempt: time.Now().Add(s.backoff)})
	s.logger.WithFields(logrus.Fields{
		"job_id":      job.ID,
		"property_id": job.PropertyID,
		"op":          job.Op.String(),
		"buyers":      len(job.BuyerIDs),
	}).Info("Queued reservation repair job")
}

// Pending returns the number of jobs awaiting an attempt.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Start begins the background retry loop.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.runScheduler()
}

// Stop gracefully stops the scheduler. Pending jobs are discarded.
func (s *Scheduler) Stop() {
	close(s.stopChan)
	s.wg.Wait()
}

func (s *Scheduler) runScheduler() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case t := <-ticker.C:
			s.runDueJobs(context.Background(), t)
		}
	}
}

// runDueJobs attempts every job whose backoff elapsed, provided system load
// permits. Repaired buyers leave the worklist; only the remainder is
// re-scheduled.
func (s *Scheduler) runDueJobs(ctx context.Context, now time.Time) {
	due := s.takeDue(now)
	if len(due) == 0 {
		return
	}

	utilization, err := s.cpuPercent(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to sample CPU utilization, deferring repair jobs")
		s.deferAll(due, now)
		return
	}
	if utilization >= s.maxCPU {
		s.logger.WithFields(logrus.Fields{
			"cpu_percent": utilization,
			"threshold":   s.maxCPU,
			"jobs":        len(due),
		}).Info("System load too high, deferring repair jobs")
		s.deferAll(due, now)
		return
	}

	for _, p := range due {
		remaining := s.applier.Apply(ctx, p.job)
		if len(remaining) == 0 {
			s.logger.WithFields(logrus.Fields{
				"job_id":      p.job.ID,
				"property_id": p.job.PropertyID,
				"op":          p.job.Op.String(),
			}).Info("Repair job converged")
			continue
		}

		s.logger.WithFields(logrus.Fields{
			"job_id":      p.job.ID,
			"property_id": p.job.PropertyID,
			"op":          p.job.Op.String(),
			"remaining":   len(remaining),
		}).Warn("Repair job still has failing buyers, re-scheduling")
		p.job.BuyerIDs = remaining
		p.nextAttempt = now.Add(s.backoff)
		s.requeue(p)
	}
}

// takeDue removes and returns every job whose attempt time has passed.
func (s *Scheduler) takeDue(now time.Time) []*pendingJob {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due, rest []*pendingJob
	for _, p := range s.jobs {
		if p.nextAttempt.After(now) {
			rest = append(rest, p)
		} else {
			due = append(due, p)
		}
	}
	s.jobs = rest
	return due
}

func (s *Scheduler) deferAll(jobs []*pendingJob, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range jobs {
		p.nextAttempt = now.Add(s.backoff)
		s.jobs = append(s.jobs, p)
	}
}

func (s *Scheduler) requeue(p *pendingJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, p)
}
