// Package clock implements the discrete-event scheduling primitive that
// drives the whole simulation: a virtual clock advancing over a min-heap of
// (fire-time, subscriber) entries. Spec.md §1 treats the kernel itself as
// out of scope engineering-wise — it is a scheduling primitive, not part of
// the control plane — but a working implementation is required to run
// anything. It follows the pack's inference-sim cluster simulator, which
// drives a shared virtual clock off the same container/heap primitive.
package clock

import (
	"container/heap"
)

// Subscriber receives tick callbacks from the Clock. now is the simulated
// time in milliseconds at which the tick fires.
type Subscriber interface {
	Tick(now int64)
}

// entry is one pending (fire-time, subscriber) pair in the event heap.
// seq breaks ties between entries scheduled for the same instant in
// subscription order, pinning intra-tick ordering per spec.md §9's open
// question on co-firing subscribers.
type entry struct {
	fireAt int64
	period int64 // 0 for one-shot entries
	sub    Subscriber
	seq    int64
	active bool
	index  int
}

type eventHeap []*entry

func (h eventHeap) Len() int { return len(h) }
func (h eventHeap) Less(i, j int) bool {
	if h[i].fireAt != h[j].fireAt {
		return h[i].fireAt < h[j].fireAt
	}
	return h[i].seq < h[j].seq
}
func (h eventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *eventHeap) Push(x any) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// Clock is the simulation's global virtual time source and event heap. The
// zero value is not usable; construct with New.
type Clock struct {
	now     int64
	heap    eventHeap
	seq     int64
	entries map[Subscriber]*entry
}

// New creates a Clock starting at simulated time 0.
func New() *Clock {
	return &Clock{entries: make(map[Subscriber]*entry)}
}

// Now returns the current simulated time in milliseconds.
func (c *Clock) Now() int64 { return c.now }

// Subscribe registers sub to fire every periodMs milliseconds, starting at
// now+periodMs. Returns false if sub is already subscribed — subscribing is
// idempotent with respect to the scheduler (spec.md §5).
func (c *Clock) Subscribe(sub Subscriber, periodMs int64) bool {
	if _, exists := c.entries[sub]; exists {
		return false
	}
	c.seq++
	e := &entry{fireAt: c.now + periodMs, period: periodMs, sub: sub, seq: c.seq, active: true}
	c.entries[sub] = e
	heap.Push(&c.heap, e)
	return true
}

// SubscribeAt registers sub to fire exactly once at the given absolute
// simulated time. Used by ArrivalHandler to reschedule itself for the next
// job's submit time (spec.md §4.6).
func (c *Clock) SubscribeAt(sub Subscriber, atMs int64) bool {
	if _, exists := c.entries[sub]; exists {
		return false
	}
	c.seq++
	e := &entry{fireAt: atMs, period: 0, sub: sub, seq: c.seq, active: true}
	c.entries[sub] = e
	heap.Push(&c.heap, e)
	return true
}

// Unsubscribe cancels sub's subscription. A no-op if sub is not subscribed.
func (c *Clock) Unsubscribe(sub Subscriber) {
	e, ok := c.entries[sub]
	if !ok {
		return
	}
	e.active = false
	delete(c.entries, sub)
}

// UpdateFrequency changes the period of an already-subscribed entity,
// rescheduling its next fire time relative to now.
func (c *Clock) UpdateFrequency(sub Subscriber, periodMs int64) bool {
	e, ok := c.entries[sub]
	if !ok {
		return false
	}
	e.active = false
	delete(c.entries, sub)
	c.seq++
	ne := &entry{fireAt: c.now + periodMs, period: periodMs, sub: sub, seq: c.seq, active: true}
	c.entries[sub] = ne
	heap.Push(&c.heap, ne)
	return true
}

// RescheduleAt moves an already-subscribed one-shot entity to a new
// absolute fire time. Used by ArrivalHandler when the next job lies in the
// future (spec.md §4.6).
func (c *Clock) RescheduleAt(sub Subscriber, atMs int64) bool {
	if _, ok := c.entries[sub]; !ok {
		return c.SubscribeAt(sub, atMs)
	}
	c.Unsubscribe(sub)
	return c.SubscribeAt(sub, atMs)
}

// SkipUntil advances the virtual clock to atMs without firing any
// subscribers, as long as atMs is not in the past. Used by ArrivalHandler
// construction when the trace's earliest submit time is in the future of
// the current clock.
func (c *Clock) SkipUntil(atMs int64) {
	if atMs > c.now {
		c.now = atMs
	}
}

// step advances now to the earliest pending fire time, then pops and fires
// every entry due at that time, in subscription order. Periodic entries
// are automatically re-armed.
func (c *Clock) step() bool {
	if len(c.heap) == 0 {
		return false
	}
	fireAt := c.heap[0].fireAt
	c.now = fireAt

	var due []*entry
	for len(c.heap) > 0 && c.heap[0].fireAt == fireAt {
		e := heap.Pop(&c.heap).(*entry)
		due = append(due, e)
	}

	for _, e := range due {
		if !e.active {
			continue
		}
		// A periodic entry may have been replaced (UpdateFrequency) or
		// cancelled (Unsubscribe) during a co-firing subscriber's callback
		// earlier in this batch; re-check liveness against the map.
		if cur, ok := c.entries[e.sub]; !ok || cur != e {
			continue
		}
		e.sub.Tick(c.now)
		if !e.active {
			continue
		}
		if cur, ok := c.entries[e.sub]; ok && cur == e && e.period > 0 {
			c.seq++
			e.seq = c.seq
			e.fireAt = c.now + e.period
			heap.Push(&c.heap, e)
		} else if cur, ok := c.entries[e.sub]; ok && cur == e {
			delete(c.entries, e.sub)
		}
	}
	return true
}

// SimulateUntilLastEvent drains the event heap, firing subscribers in
// virtual-time order until no events remain.
func (c *Clock) SimulateUntilLastEvent() {
	for c.step() {
	}
}
