// Package queue implements the retry queue described in spec.md §4.5: a
// per-kind FIFO of jobs that failed a first-fit dispatch attempt, drained
// on its own clock cadence by re-offering each kind's head job to the
// launcher.
package queue

import (
	"container/list"

	"github.com/oriys/vcsim/internal/clock"
	"github.com/oriys/vcsim/internal/domain"
	"github.com/oriys/vcsim/internal/logging"
	"github.com/oriys/vcsim/internal/metrics"
)

// TickPeriodMs is the queue drain cadence: every 10 simulated seconds,
// matching spec.md §4.5.
const TickPeriodMs = 10 * 1000

// Dispatcher is the subset of Launcher the queue needs: attempt dispatch,
// report whether the job must stay queued.
type Dispatcher interface {
	Launch(job *domain.Job, nowMs int64) bool
}

// Manager is the per-kind FIFO retry queue. Jobs are appended at the tail
// and drained from the head — true FIFO, per spec.md §9's resolution of
// the QueueManager ordering open question ("treat as FIFO by design").
type Manager struct {
	clk    *clock.Clock
	launch Dispatcher
	queues map[string]*list.List
	order  []string
}

// New builds an empty Manager.
func New(clk *clock.Clock, launch Dispatcher) *Manager {
	return &Manager{
		clk:    clk,
		launch: launch,
		queues: make(map[string]*list.List),
	}
}

// Start subscribes the Manager to the clock at TickPeriodMs.
func (m *Manager) Start() {
	m.clk.Subscribe(m, TickPeriodMs)
}

// Enqueue appends job to the tail of its kind's queue, creating the queue
// on first use, and subscribes the Manager to the clock if a drained queue
// had unsubscribed it.
func (m *Manager) Enqueue(job *domain.Job) {
	m.clk.Subscribe(m, TickPeriodMs)
	kind := job.Kind
	q, ok := m.queues[kind]
	if !ok {
		q = list.New()
		m.queues[kind] = q
		m.order = append(m.order, kind)
	}
	q.PushBack(job)
	metrics.SetQueueDepth(kind, q.Len())
}

// Depth returns the number of jobs currently queued for kind.
func (m *Manager) Depth(kind string) int {
	q, ok := m.queues[kind]
	if !ok {
		return 0
	}
	return q.Len()
}

// Tick implements clock.Subscriber: for each kind, repeatedly try
// launching the head job — on success pop it and retry the same kind
// immediately; on failure stop processing that kind and move to the
// next one. A kind whose queue drains empty is dropped from m.order, and
// once no kinds remain the Manager unsubscribes from the clock.
func (m *Manager) Tick(now int64) {
	remaining := m.order[:0]
	for _, kind := range m.order {
		q := m.queues[kind]
		for q != nil && q.Len() > 0 {
			front := q.Front()
			job := front.Value.(*domain.Job)
			if stillQueued := m.launch.Launch(job, now); stillQueued {
				break
			}
			q.Remove(front)
			metrics.SetQueueDepth(kind, q.Len())
			logging.Op().Debug("queue: drained job", "kind", kind, "job_id", job.ID, "remaining", q.Len())
		}
		if q == nil || q.Len() == 0 {
			delete(m.queues, kind)
			continue
		}
		remaining = append(remaining, kind)
	}
	m.order = remaining

	if len(m.order) == 0 {
		m.clk.Unsubscribe(m)
	}
}
