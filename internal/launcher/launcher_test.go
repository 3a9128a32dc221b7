package launcher

import (
	"testing"

	"github.com/oriys/vcsim/internal/clock"
	"github.com/oriys/vcsim/internal/cloud"
	"github.com/oriys/vcsim/internal/domain"
	"github.com/oriys/vcsim/internal/progress"
	"github.com/oriys/vcsim/internal/vi"
)

func newHarness(t *testing.T) (*Launcher, *vi.VI, *clock.Clock) {
	t.Helper()
	clk := clock.New()
	pms := []*domain.PhysicalMachine{domain.NewPhysicalMachine("pm-0", 32, 65536, 1.0)}
	repo := cloud.NewRepository(0)
	cld := cloud.NewCloud(clk, repo, pms)
	v := vi.New(clk, cld, vi.NewThreshold(vi.DefaultLimits()))
	prog := progress.New()
	prog.SetTotal(10)
	return New(v, cld, prog), v, clk
}

// bootPool moves every VM of kind's pool straight to RUNNING, firing the
// VI's and monitor's state-change listeners. The clock is not run: the VM's
// periodic utilization-monitor subscription would keep SimulateUntilLastEvent
// from ever returning.
func bootPool(v *vi.VI, kind string) {
	for _, vm := range v.Pool(kind) {
		vm.TransitionTo(domain.VMStateRunning)
	}
}

func TestLaunchRegistersUnknownKindAndQueues(t *testing.T) {
	l, v, _ := newHarness(t)
	job := domain.NewJob("k1", 0, 5)

	stillQueued := l.Launch(job, 0)

	if !stillQueued {
		t.Fatalf("expected job to be queued when its kind has no pool yet")
	}
	if !v.HasPool("k1") {
		t.Fatalf("expected Launch to register the kind")
	}
}

func TestLaunchEmptyKindDefaultsToDefaultKind(t *testing.T) {
	l, v, _ := newHarness(t)
	job := domain.NewJob("", 0, 5)

	l.Launch(job, 0)

	if !v.HasPool(DefaultKind) {
		t.Fatalf("expected empty job kind to register under DefaultKind")
	}
}

func TestLaunchDispatchesToIdleRunningVM(t *testing.T) {
	l, v, clk := newHarness(t)
	v.RegisterKind("k1")
	v.RequestVM("k1")
	bootPool(v, "k1")

	job := domain.NewJob("k1", 0, 5)
	stillQueued := l.Launch(job, clk.Now())

	if stillQueued {
		t.Fatalf("expected dispatch to succeed against an idle running VM")
	}
	if !job.Dispatched() {
		t.Fatalf("expected job to be marked dispatched")
	}
	vm := v.Pool("k1")[0]
	if vm.RunningTasks != 1 {
		t.Fatalf("expected VM to carry the dispatched task")
	}
}

func TestLaunchQueuesWhenEveryVMBusy(t *testing.T) {
	l, v, clk := newHarness(t)
	v.RegisterKind("k1")
	v.RequestVM("k1")
	bootPool(v, "k1")

	first := domain.NewJob("k1", 0, 5)
	l.Launch(first, clk.Now())

	second := domain.NewJob("k1", 0, 5)
	stillQueued := l.Launch(second, clk.Now())

	if !stillQueued {
		t.Fatalf("expected second job to be queued while the only VM is busy")
	}
}
