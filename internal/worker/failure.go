package worker

import "sync"

// FailureTracker counts outcomes within the current batch. A batch whose
// failures reach the threshold without a single success is stalled, which
// usually means the backend is down rather than the documents are bad.
type FailureTracker struct {
	mu        sync.Mutex
	threshold int
	failures  int
	successes int
	total     int
}

// NewFailureTracker creates a tracker; threshold <= 0 disables stalling.
func NewFailureTracker(threshold int) *FailureTracker {
	return &FailureTracker{threshold: threshold}
}

// RecordFailure counts one failed item
func (f *FailureTracker) RecordFailure() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures++
	f.total++
}

// RecordSuccess counts one successful item
func (f *FailureTracker) RecordSuccess() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.successes++
}

// Stalled reports whether the current batch has only failures, at least
// threshold of them.
func (f *FailureTracker) Stalled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.threshold > 0 && f.failures >= f.threshold && f.successes == 0
}

// Successes returns the successes recorded in the current batch
func (f *FailureTracker) Successes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.successes
}

// Reset starts a new batch. The lifetime failure total is kept.
func (f *FailureTracker) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = 0
	f.successes = 0
}

// Total returns every failure recorded since creation
func (f *FailureTracker) Total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.total
}
