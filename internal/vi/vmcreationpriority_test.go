package vi

import "testing"

func TestVMCreationPriorityGrowsFromEmptyPool(t *testing.T) {
	v, clk := newTestVI(t, NewVMCreationPriority(1, DefaultLimits()))
	v.RegisterKind("k1")

	v.Tick(clk.Now())

	if len(v.Pool("k1")) != 1 {
		t.Fatalf("expected a VM to be requested for an empty pool, got %d", len(v.Pool("k1")))
	}
}

func TestVMCreationPrioritySingletonIdleGrace(t *testing.T) {
	v, clk := newTestVI(t, NewVMCreationPriority(1, DefaultLimits()))
	v.RegisterKind("k1")
	v.RequestVM("k1")
	bootAll(v)

	for i := 0; i < DefaultIdleTicks-1; i++ {
		v.Tick(clk.Now())
	}
	if len(v.Pool("k1")) != 1 {
		t.Fatalf("expected singleton pool to survive the grace period")
	}

	v.Tick(clk.Now())
	if v.HasPool("k1") {
		t.Fatalf("expected kind to be dropped once singleton grace period elapses")
	}
}

func TestVMCreationPriorityDeterministicVictimSelection(t *testing.T) {
	build := func() []int {
		v, clk := newTestVI(t, NewVMCreationPriority(42, DefaultLimits()))
		v.RegisterKind("k1")
		for i := 0; i < 3; i++ {
			v.RequestVM("k1")
			bootAll(v)
		}
		before := len(v.Pool("k1"))
		v.Tick(clk.Now())
		return []int{before, len(v.Pool("k1"))}
	}

	a := build()
	b := build()

	if a[0] != b[0] || a[1] != b[1] {
		t.Fatalf("expected identical seed to produce identical pool-size trajectory, got %v vs %v", a, b)
	}
}
