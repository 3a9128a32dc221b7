// Package progress implements the trace-drained bookkeeping described in
// spec.md §4.7: dispatch/completion counters and the one-shot callbacks
// that fire when every job has reached a VM, and when every job has
// finished.
package progress

import (
	"errors"
	"sync/atomic"
)

// ErrAlreadyInitialized is returned by SetTotal on a second call.
var ErrAlreadyInitialized = errors.New("progress: total already set")

// Progress tracks dispatch and completion counts against a trace's total
// job count, firing callbacks exactly once each.
type Progress struct {
	total      int64
	totalSet   bool
	dispatched int64
	done       int64

	onAllDispatched func()
	onAllFinished   func()

	dispatchedFired bool
	finishedFired   bool
}

// New creates an empty Progress tracker.
func New() *Progress {
	return &Progress{}
}

// SetTotal records the trace's job count. One-shot: a second call fails
// with ErrAlreadyInitialized.
func (p *Progress) SetTotal(n int) error {
	if p.totalSet {
		return ErrAlreadyInitialized
	}
	p.total = int64(n)
	p.totalSet = true
	return nil
}

// OnAllDispatched registers the callback fired when every job has reached
// a VM (spec.md §4.7: "last job reached a VM").
func (p *Progress) OnAllDispatched(fn func()) { p.onAllDispatched = fn }

// OnAllFinished registers the callback fired when every job has completed.
func (p *Progress) OnAllFinished(fn func()) { p.onAllFinished = fn }

// RegisterDispatch increments the dispatched counter and fires
// onAllDispatched exactly once when dispatched reaches total.
func (p *Progress) RegisterDispatch() {
	n := atomic.AddInt64(&p.dispatched, 1)
	if !p.dispatchedFired && n == p.total && p.onAllDispatched != nil {
		p.dispatchedFired = true
		p.onAllDispatched()
	}
}

// RegisterCompletion increments the done counter and fires onAllFinished
// exactly once when done reaches total.
func (p *Progress) RegisterCompletion() {
	n := atomic.AddInt64(&p.done, 1)
	if !p.finishedFired && n == p.total && p.onAllFinished != nil {
		p.finishedFired = true
		p.onAllFinished()
	}
}

// DoneCount returns a monotonic read of completed jobs.
func (p *Progress) DoneCount() int64 {
	return atomic.LoadInt64(&p.done)
}

// DispatchedCount returns a monotonic read of dispatched jobs.
func (p *Progress) DispatchedCount() int64 {
	return atomic.LoadInt64(&p.dispatched)
}

// Total returns the trace's total job count.
func (p *Progress) Total() int64 {
	return p.total
}
