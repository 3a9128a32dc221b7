// Package cloud is the opaque IaaS substrate the control plane runs on top
// of: physical machines, a VM scheduler, an energy meter and the VMI
// repository. Spec.md §1 puts this out of scope beyond its contract (§6);
// this package implements just enough of that contract — deterministic,
// single-threaded, driven by the same virtual clock as everything else —
// to make the simulation runnable.
package cloud

import (
	"fmt"

	"github.com/oriys/vcsim/internal/clock"
	"github.com/oriys/vcsim/internal/domain"
	"github.com/oriys/vcsim/internal/logging"
	"github.com/oriys/vcsim/internal/metrics"
)

// Cloud is the simulated IaaS substrate: a fixed set of physical machines,
// a single VMI repository, and the virtual clock used to schedule VM boot
// completion and compute task completion.
type Cloud struct {
	clk  *clock.Clock
	repo *Repository
	pms  []*domain.PhysicalMachine
	vmPM map[string]*domain.PhysicalMachine // vm ID -> hosting PM
}

// NewCloud builds a Cloud over the given physical machines and repository.
// A VM's boot delay is read from its VA's BootCost (spec.md §4.2 ties boot
// duration to the VA, not to a substrate-wide constant).
func NewCloud(clk *clock.Clock, repo *Repository, pms []*domain.PhysicalMachine) *Cloud {
	return &Cloud{
		clk:  clk,
		repo: repo,
		pms:  pms,
		vmPM: make(map[string]*domain.PhysicalMachine),
	}
}

// Repository exposes the VMI repository for VA lookups and registration.
func (c *Cloud) Repository() *Repository { return c.repo }

// PhysicalMachines returns the cloud's host inventory.
func (c *Cloud) PhysicalMachines() []*domain.PhysicalMachine { return c.pms }

// FirstPMProcessingPower returns the per-core processing power of the first
// PM, used by the VI to size new VMs deterministically (spec.md §4.2 step
// 3: "per-core processing copied from the first PM").
func (c *Cloud) FirstPMProcessingPower() float64 {
	if len(c.pms) == 0 {
		return 1
	}
	return c.pms[0].PerCoreProcessingPwr
}

func (c *Cloud) pickPM(cores, memoryMB int) *domain.PhysicalMachine {
	for _, pm := range c.pms {
		if pm.CanFit(cores, memoryMB) {
			return pm
		}
	}
	return nil
}

// RequestVM creates n VMs on va's image, each sized cores/memoryMB, placed
// first-fit across the PM inventory. Returned VMs are already in STARTUP
// and transition to RUNNING asynchronously via the clock, once their VA's
// boot cost has elapsed.
func (c *Cloud) RequestVM(va *domain.VA, cores, memoryMB, n int) ([]*domain.VM, error) {
	vms := make([]*domain.VM, 0, n)
	for i := 0; i < n; i++ {
		pm := c.pickPM(cores, memoryMB)
		if pm == nil {
			return vms, fmt.Errorf("%w: need %d cores/%dMB", ErrNoCapacity, cores, memoryMB)
		}
		pm.Allocate(cores, memoryMB)
		vm := domain.NewVM(va.Kind, cores, memoryMB, c.FirstPMProcessingPower()*float64(cores))
		c.vmPM[vm.ID] = pm
		vms = append(vms, vm)

		vm.TransitionTo(domain.VMStateStartup)
		bootMs := int64(float64(va.BootCost) * 1000)
		if bootMs <= 0 {
			bootMs = 1
		}
		c.clk.SubscribeAt(&bootCompletion{vm: vm, bootMs: bootMs}, c.clk.Now()+bootMs)
		logging.Op().Debug("cloud: VM requested", "vm_id", vm.ID, "kind", va.Kind, "pm_id", pm.ID)
	}
	return vms, nil
}

// bootCompletion is a one-shot clock subscriber firing when a VM finishes
// booting.
type bootCompletion struct {
	vm     *domain.VM
	bootMs int64
}

func (b *bootCompletion) Tick(_ int64) {
	if b.vm.State == domain.VMStateDestroyed {
		return
	}
	b.vm.TransitionTo(domain.VMStateRunning)
	metrics.RecordVMBootDuration(float64(b.bootMs))
}

// DestroyVM stops a live VM, releasing its PM capacity. Matches the
// substrate's vm.destroy(force) contract.
func (c *Cloud) DestroyVM(vm *domain.VM, force bool) error {
	return c.retire(vm)
}

// TerminateVM force-terminates a VM that is already in the DESTROYED state
// (matches vm.terminate_vm(force) — the path used when the VI observes a
// VM that died on its own, e.g. NONSERVABLE).
func (c *Cloud) TerminateVM(vm *domain.VM, force bool) error {
	return c.retire(vm)
}

func (c *Cloud) retire(vm *domain.VM) error {
	if pm, ok := c.vmPM[vm.ID]; ok {
		pm.Release(vm.Cores, vm.MemoryMB)
		delete(c.vmPM, vm.ID)
	}
	vm.TransitionTo(domain.VMStateDestroyed)
	return nil
}

// AccrueEnergy is called once per control-loop tick to let every hosted PM
// accumulate its simple energy model (spec.md §12 supplemented feature).
func (c *Cloud) AccrueEnergy() {
	hosted := make(map[string]int, len(c.pms))
	for _, pm := range c.vmPM {
		hosted[pm.ID]++
	}
	for _, pm := range c.pms {
		pm.AccrueEnergy(hosted[pm.ID])
	}
}

// TotalEnergyUnits sums the energy accrued across every PM.
func (c *Cloud) TotalEnergyUnits() float64 {
	var total float64
	for _, pm := range c.pms {
		total += pm.EnergyUnits()
	}
	return total
}
