package cloud

import (
	"testing"

	"github.com/oriys/vcsim/internal/domain"
)

func TestComputeTaskAdvancesProcessedAndCallsBack(t *testing.T) {
	cld, clk := newTestCloud(t, 1)
	va := domain.NewVA("k1")
	vms, _ := cld.RequestVM(va, 2, 4096, 1)
	vm := vms[0]
	clk.SimulateUntilLastEvent() // boot to RUNNING

	called := false
	cld.NewComputeTask(vm, 1000, func() { called = true }, nil)

	if vm.RunningTasks != 1 {
		t.Fatalf("expected RunningTasks to be 1 while task is in flight, got %d", vm.RunningTasks)
	}

	clk.SimulateUntilLastEvent()

	if !called {
		t.Fatalf("expected completion callback to fire")
	}
	if vm.TotalProcessed != 1000 {
		t.Fatalf("expected total processed to advance by 1000, got %d", vm.TotalProcessed)
	}
	if vm.RunningTasks != 0 {
		t.Fatalf("expected RunningTasks to drop back to 0, got %d", vm.RunningTasks)
	}
}

func TestComputeTaskDurationMatchesWorkOverPower(t *testing.T) {
	cld, clk := newTestCloud(t, 1)
	va := domain.NewVA("k1")
	vms, _ := cld.RequestVM(va, 2, 4096, 1)
	vm := vms[0]
	clk.SimulateUntilLastEvent()

	execTimeS := 30.0
	workUnits := int64(execTimeS * 1000 * vm.PerTickPower)
	start := clk.Now()
	cld.NewComputeTask(vm, workUnits, func() {}, nil)
	clk.SimulateUntilLastEvent()

	gotMs := clk.Now() - start
	wantMs := int64(execTimeS * 1000)
	if gotMs != wantMs {
		t.Fatalf("expected completion after %dms, got %dms", wantMs, gotMs)
	}
}
