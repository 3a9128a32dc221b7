package cloud

import "github.com/oriys/vcsim/internal/domain"

// TaskCompleteFunc is invoked when a compute task finishes successfully.
type TaskCompleteFunc func()

// TaskCancelFunc is invoked if a task is cancelled. The harness never
// initiates cancellation (spec.md §7), so in practice this is never called,
// but the contract is kept symmetric with the substrate's listener shape.
type TaskCancelFunc func()

// computeTask is a one-shot clock subscriber representing work in flight on
// a VM. When it fires, the VM's total-processed counter advances by
// workUnits and onComplete runs.
type computeTask struct {
	vm         *domain.VM
	workUnits  int64
	onComplete TaskCompleteFunc
}

func (t *computeTask) Tick(_ int64) {
	if t.vm.State == domain.VMStateDestroyed {
		return
	}
	t.vm.TotalProcessed += t.workUnits
	if t.vm.RunningTasks > 0 {
		t.vm.RunningTasks--
	}
	if t.onComplete != nil {
		t.onComplete()
	}
}

// NewComputeTask enqueues workUnits of work on vm, unlimited parallelism
// (this simulator never queues tasks within a VM — the launcher only ever
// dispatches to an idle VM, per spec.md §4.4). Completion fires after
// workUnits / vm.PerTickPower simulated milliseconds.
func (c *Cloud) NewComputeTask(vm *domain.VM, workUnits int64, onComplete TaskCompleteFunc, _ TaskCancelFunc) {
	vm.RunningTasks++
	durationMs := int64(1)
	if vm.PerTickPower > 0 {
		durationMs = int64(float64(workUnits)/vm.PerTickPower + 0.999)
	}
	if durationMs < 1 {
		durationMs = 1
	}
	task := &computeTask{vm: vm, workUnits: workUnits, onComplete: onComplete}
	c.clk.SubscribeAt(task, c.clk.Now()+durationMs)
}
