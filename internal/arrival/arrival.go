// Package arrival implements the ArrivalHandler of spec.md §4.6: feed a
// sorted trace into the launcher/queue at the jobs' recorded submit times,
// skipping the virtual clock forward to each next submission instead of
// ticking through idle periods.
package arrival

import (
	"context"
	"math"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/oriys/vcsim/internal/clock"
	"github.com/oriys/vcsim/internal/domain"
	"github.com/oriys/vcsim/internal/logging"
)

// tracer emits spans around Handler.Tick; see internal/vi's identical
// global-TracerProvider pattern.
var tracer = otel.Tracer("github.com/oriys/vcsim/internal/arrival")

// Dispatcher is the subset of Launcher the handler needs.
type Dispatcher interface {
	Launch(job *domain.Job, nowMs int64) bool
}

// Queuer is the subset of the retry queue.Manager the handler needs.
type Queuer interface {
	Enqueue(job *domain.Job)
}

// Handler drains a sorted job trace against the simulated clock.
type Handler struct {
	clk    *clock.Clock
	launch Dispatcher
	queue  Queuer
	jobs   []*domain.Job
	next   int
}

// New builds a Handler over a trace already sorted by submit time
// ascending (trace.Load guarantees this). If the trace's first job submits
// in the future of the clock's current time, the clock is skipped forward
// to meet it rather than ticking through the gap. If the clock is already
// past the earliest submit time, every job is shifted forward by the
// deficit (rounded up to whole seconds) so relative spacing between jobs
// is preserved, and the clock advances to the (now current) first
// submit-time.
func New(clk *clock.Clock, launch Dispatcher, queue Queuer, jobs []*domain.Job) *Handler {
	h := &Handler{clk: clk, launch: launch, queue: queue, jobs: jobs}
	if len(jobs) > 0 {
		firstAtS := jobs[0].SubmitTimeS
		nowS := float64(clk.Now()) / 1000
		if nowS > firstAtS {
			deficitS := math.Ceil(nowS - firstAtS)
			for _, j := range jobs {
				j.SubmitTimeS += deficitS
			}
			firstAtS = jobs[0].SubmitTimeS
		}
		clk.SkipUntil(int64(firstAtS * 1000))
	}
	return h
}

// Start subscribes the handler for its first job's submit time, or does
// nothing if the trace is empty.
func (h *Handler) Start() {
	if h.next >= len(h.jobs) {
		return
	}
	at := int64(h.jobs[h.next].SubmitTimeS * 1000)
	if at < h.clk.Now() {
		at = h.clk.Now()
	}
	h.clk.SubscribeAt(h, at)
}

// Tick implements clock.Subscriber: dispatch every job whose submit time
// has arrived, then reschedule for the next future submission.
func (h *Handler) Tick(now int64) {
	_, span := tracer.Start(context.Background(), "arrival.tick", trace.WithAttributes(
		attribute.Int64("now_ms", now),
	))
	defer span.End()

	var traceID, spanID string
	if sc := span.SpanContext(); sc.IsValid() {
		traceID, spanID = sc.TraceID().String(), sc.SpanID().String()
	}
	log := logging.OpWithTrace(traceID, spanID)

	dispatched := 0
	for h.next < len(h.jobs) {
		job := h.jobs[h.next]
		if int64(job.SubmitTimeS*1000) > now {
			break
		}
		h.next++
		decision := "dispatched"
		if stillQueued := h.launch.Launch(job, now); stillQueued {
			h.queue.Enqueue(job)
			decision = "queued"
		}
		dispatched++
		log.Debug("arrival: submitted job", "job_id", job.ID, "kind", job.Kind, "now_ms", now, "decision", decision)
	}
	span.SetAttributes(attribute.Int("jobs_offered", dispatched))

	if h.next >= len(h.jobs) {
		return
	}
	h.clk.RescheduleAt(h, int64(h.jobs[h.next].SubmitTimeS*1000))
}

// Remaining reports how many jobs have not yet been submitted.
func (h *Handler) Remaining() int {
	return len(h.jobs) - h.next
}

// AverageQueueTime computes the mean realized queue wait (seconds) across
// every dispatched job in jobs, regardless of whether it went straight
// through on arrival or was drained from the retry queue. Jobs that never
// reached a VM are left out. The run summary (internal/report) prints it.
func AverageQueueTime(jobs []*domain.Job) float64 {
	var sum float64
	var n int
	for _, j := range jobs {
		if !j.Dispatched() {
			continue
		}
		sum += j.RealQueueTimeS
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
