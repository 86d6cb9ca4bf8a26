// Package scheduler drives the periodic pipeline jobs (C2/C3/C6/C7/C8) on
// their configured intervals, built on robfig/cron/v3 rather than a
// hand-rolled ticker loop, since this module has no work-queue/priority
// layer to feed — each job runs directly on its own cron-driven goroutine.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/coinwatch/confluence/internal/scheduler/base"
)

// Job is the contract every scheduled unit of work implements.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// DegradationSink receives the "degraded after 3 consecutive overruns"
// operational signal of spec.md §5 (and its inverse once a job recovers).
// internal/reliability.Tracker satisfies this.
type DegradationSink interface {
	MarkDegraded(component, reason string)
	MarkHealthy(component string)
}

// RunRecord is one completed job-run entry in the in-memory ledger surfaced
// by the status server.
type RunRecord struct {
	Job       string
	StartedAt time.Time
	Duration  time.Duration
	Overran   bool
	Err       string
}

const ledgerCap = 200

// entry pairs a Job with its schedule and per-job overrun/error bookkeeping.
type entry struct {
	job      Job
	interval time.Duration
	base     base.JobBase
}

// Scheduler runs a fixed set of Jobs, each on its own cron-driven interval,
// enforcing a per-run deadline of 2x the job's interval (spec.md §5) and
// reporting sustained overruns to a DegradationSink.
type Scheduler struct {
	cron        *cron.Cron
	entries     []*entry
	degradation DegradationSink
	log         zerolog.Logger

	mu     sync.Mutex
	ledger []RunRecord
}

// New builds a Scheduler. degradation may be nil (overrun signals are then
// only logged, never surfaced to a health tracker).
func New(degradation DegradationSink, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:        cron.New(),
		degradation: degradation,
		log:         log.With().Str("component", "scheduler").Logger(),
	}
}

// Register adds a Job to run every interval, starting immediately and then
// on each subsequent tick. Returns an error if the cron spec can't be built
// (only possible with a non-positive interval).
func (s *Scheduler) Register(job Job, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("scheduler: %s: interval must be positive", job.Name())
	}
	e := &entry{job: job, interval: interval}
	spec := fmt.Sprintf("@every %s", interval)
	if _, err := s.cron.AddFunc(spec, func() { s.runOnce(e) }); err != nil {
		return fmt.Errorf("scheduler: register %s: %w", job.Name(), err)
	}
	s.entries = append(s.entries, e)
	return nil
}

// Start launches the cron scheduler and immediately runs every registered
// job once, so the pipeline doesn't sit idle for a full interval on a cold
// start.
func (s *Scheduler) Start() {
	for _, e := range s.entries {
		go s.runOnce(e)
	}
	s.cron.Start()
	s.log.Info().Int("jobs", len(s.entries)).Msg("scheduler started")
}

// Stop halts the cron driver and waits for any in-flight runs triggered by
// it to return (new ticks stop firing; already-dispatched runOnce calls are
// not forcibly cancelled beyond their own deadline).
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("scheduler stopped")
}

// Ledger returns a snapshot of the most recent job runs, newest last.
func (s *Scheduler) Ledger() []RunRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RunRecord, len(s.ledger))
	copy(out, s.ledger)
	return out
}

func (s *Scheduler) runOnce(e *entry) {
	if !e.base.TryStart() {
		s.log.Warn().Str("job", e.job.Name()).Msg("previous run still in flight, skipping tick")
		return
	}

	deadline := 2 * e.interval
	ctx, cancel := context.WithTimeout(context.Background(), deadline)
	defer cancel()

	start := time.Now()
	err := e.job.Run(ctx)
	elapsed := time.Since(start)
	overran := elapsed > deadline || ctx.Err() == context.DeadlineExceeded

	e.base.Finish(overran, err != nil)

	rec := RunRecord{Job: e.job.Name(), StartedAt: start, Duration: elapsed, Overran: overran}
	if err != nil {
		rec.Err = err.Error()
		s.log.Error().Err(err).Str("job", e.job.Name()).Dur("elapsed", elapsed).Msg("job run failed")
	} else if overran {
		s.log.Warn().Str("job", e.job.Name()).Dur("elapsed", elapsed).Dur("deadline", deadline).Msg("job run exceeded its deadline")
	} else {
		s.log.Debug().Str("job", e.job.Name()).Dur("elapsed", elapsed).Msg("job run completed")
	}
	s.appendLedger(rec)

	if s.degradation == nil {
		return
	}
	if e.base.ConsecutiveOverruns() >= 3 {
		s.degradation.MarkDegraded(e.job.Name(), fmt.Sprintf("%d consecutive overruns", e.base.ConsecutiveOverruns()))
	} else if overran == false && err == nil {
		s.degradation.MarkHealthy(e.job.Name())
	}
}

func (s *Scheduler) appendLedger(rec RunRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledger = append(s.ledger, rec)
	if len(s.ledger) > ledgerCap {
		s.ledger = s.ledger[len(s.ledger)-ledgerCap:]
	}
}
