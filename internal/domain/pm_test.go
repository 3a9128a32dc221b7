package domain

import "testing"

func TestPhysicalMachineCanFitAllocateRelease(t *testing.T) {
	pm := NewPhysicalMachine("pm-0", 8, 16384, 2.0)

	if !pm.CanFit(4, 8192) {
		t.Fatalf("expected PM to fit 4 cores / 8GB")
	}
	pm.Allocate(4, 8192)
	if pm.CanFit(8, 16384) {
		t.Fatalf("expected PM to reject a request exceeding remaining capacity")
	}

	pm.Release(4, 8192)
	if !pm.CanFit(8, 16384) {
		t.Fatalf("expected PM to fit again after release")
	}
}

func TestPhysicalMachineReleaseClampsToCapacity(t *testing.T) {
	pm := NewPhysicalMachine("pm-0", 4, 4096, 1.0)
	pm.Release(100, 100000)

	if !pm.CanFit(4, 4096) {
		t.Fatalf("expected over-release to clamp back to full capacity")
	}
}

func TestPhysicalMachineAccrueEnergy(t *testing.T) {
	pm := NewPhysicalMachine("pm-0", 4, 4096, 1.0)
	pm.AccrueEnergy(0)
	pm.AccrueEnergy(2)

	if pm.EnergyUnits() <= 0 {
		t.Fatalf("expected positive cumulative energy, got %v", pm.EnergyUnits())
	}
}
