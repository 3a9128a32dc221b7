// Package launcher implements the stateless first-fit job dispatcher of
// spec.md §4.4: scan a kind's pool for an idle running VM, hand it a
// compute task sized from the job's expected execution time, or signal
// that the caller should queue the job for retry.
package launcher

import (
	"github.com/oriys/vcsim/internal/cloud"
	"github.com/oriys/vcsim/internal/domain"
	"github.com/oriys/vcsim/internal/logging"
	"github.com/oriys/vcsim/internal/metrics"
	"github.com/oriys/vcsim/internal/progress"
	"github.com/oriys/vcsim/internal/vi"
)

// DefaultKind is substituted for a job whose Kind is the empty string, per
// spec.md §4.4 ("treating null as the literal string 'default'").
const DefaultKind = "default"

// Launcher is the first-fit JobLauncher.
type Launcher struct {
	vi       *vi.VI
	cld      *cloud.Cloud
	progress *progress.Progress
}

// New builds a Launcher over the given VI, cloud substrate and progress
// tracker.
func New(v *vi.VI, cld *cloud.Cloud, p *progress.Progress) *Launcher {
	return &Launcher{vi: v, cld: cld, progress: p}
}

// Launch attempts to dispatch job to an idle running VM of its kind at
// simulated time nowMs. Returns true when the caller must enqueue the job
// for retry: either no pool exists yet for the kind (a fresh RegisterKind
// is issued) or every VM of that kind is busy.
func (l *Launcher) Launch(job *domain.Job, nowMs int64) bool {
	kind := job.Kind
	if kind == "" {
		kind = DefaultKind
	}

	if !l.vi.HasPool(kind) {
		l.vi.RegisterKind(kind)
		return true
	}

	for _, candidate := range l.vi.Pool(kind) {
		if candidate.State != domain.VMStateRunning || !candidate.Idle() {
			continue
		}
		workUnits := int64(job.ExecTimeS*1000*candidate.PerTickPower + 0.5)
		l.cld.NewComputeTask(candidate, workUnits, func() {
			l.progress.RegisterCompletion()
			metrics.RecordJobCompleted(kind)
		}, nil)
		job.Started(nowMs)
		l.progress.RegisterDispatch()
		metrics.RecordJobDispatched(kind, job.RealQueueTimeS)
		logging.Op().Debug("launcher: dispatched", "job_id", job.ID, "kind", kind, "vm_id", candidate.ID)
		return false
	}

	return true
}
