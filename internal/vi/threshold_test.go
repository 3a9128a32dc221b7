package vi

import "testing"

func TestThresholdGrowsFromEmptyPool(t *testing.T) {
	v, clk := newTestVI(t, NewThreshold(DefaultLimits()))
	v.RegisterKind("k1")

	v.Tick(clk.Now())

	if len(v.Pool("k1")) != 1 {
		t.Fatalf("expected Threshold to request a VM for an empty pool, got pool size %d", len(v.Pool("k1")))
	}
}

func TestThresholdSingletonAppliesIdleGrace(t *testing.T) {
	v, clk := newTestVI(t, NewThreshold(DefaultLimits()))
	v.RegisterKind("k1")
	v.RequestVM("k1")
	bootAll(v)

	for i := 0; i < DefaultIdleTicks-1; i++ {
		v.Tick(clk.Now())
	}
	if len(v.Pool("k1")) != 1 {
		t.Fatalf("expected singleton pool to survive the grace period, got pool size %d", len(v.Pool("k1")))
	}

	v.Tick(clk.Now())
	if len(v.Pool("k1")) != 0 {
		t.Fatalf("expected singleton pool to shrink to 0 once the grace period elapses")
	}
}

func TestThresholdMultiVMShrinksEagerly(t *testing.T) {
	v, clk := newTestVI(t, NewThreshold(DefaultLimits()))
	v.RegisterKind("k1")
	v.RequestVM("k1")
	bootAll(v) // first VM reaches RUNNING, clearing under_prep
	v.RequestVM("k1")
	bootAll(v)

	if len(v.Pool("k1")) != 2 {
		t.Fatalf("expected 2 VMs in pool, got %d", len(v.Pool("k1")))
	}

	// Both VMs are idle and under MinUtil (no monitor samples yet), so a
	// multi-VM pool should shrink eagerly on the very next tick, unlike
	// the singleton case's grace period.
	v.Tick(clk.Now())

	if len(v.Pool("k1")) >= 2 {
		t.Fatalf("expected multi-VM pool to shrink eagerly, still has %d VMs", len(v.Pool("k1")))
	}
}
