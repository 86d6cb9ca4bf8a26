// Package base provides the minimal embeddable type every scheduled job
// composes with.
package base

import "sync"

// JobBase tracks the bookkeeping the scheduler needs from every job without
// forcing jobs to depend on the scheduler package (avoiding an import
// cycle): the running flag and the consecutive-overrun counter that drives
// spec.md §5's "operational signal after 3 consecutive overruns" rule.
type JobBase struct {
	mu                sync.Mutex
	running           bool
	consecutiveOver   int
	consecutiveErrors int
}

// TryStart reports whether the job was idle and marks it running. A
// scheduler tick that finds the previous run still in flight must skip
// rather than pile up concurrent runs of the same job.
func (j *JobBase) TryStart() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.running {
		return false
	}
	j.running = true
	return true
}

// Finish clears the running flag and folds in this run's outcome.
func (j *JobBase) Finish(overran, failed bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.running = false
	if overran {
		j.consecutiveOver++
	} else {
		j.consecutiveOver = 0
	}
	if failed {
		j.consecutiveErrors++
	} else {
		j.consecutiveErrors = 0
	}
}

// ConsecutiveOverruns returns how many runs in a row have exceeded their
// deadline.
func (j *JobBase) ConsecutiveOverruns() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.consecutiveOver
}

// ConsecutiveErrors returns how many runs in a row have returned an error.
func (j *JobBase) ConsecutiveErrors() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.consecutiveErrors
}
