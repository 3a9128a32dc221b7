// Package monitor implements the per-VM sliding-window utilization
// estimator described in spec.md §4.1: a 12-slot ring of total-processed
// samples taken every 5 simulated minutes, reporting an hourly utilization
// fraction the autoscaler policies read on every tick.
package monitor

import (
	"errors"

	"github.com/oriys/vcsim/internal/clock"
	"github.com/oriys/vcsim/internal/domain"
)

// ErrMonitorInactive is returned by HourlyUtilization after Stop, per
// spec.md §7.
var ErrMonitorInactive = errors.New("monitor: inactive")

const (
	ringSize     = 12
	sampleMs     = 5 * 60 * 1000       // 5 simulated minutes
	hourMs       = 3_600_000           // 1 simulated hour, in ms
)

// Monitor samples a single VM's cumulative processed-work counter on a
// fixed cadence and reports an hourly-utilization fraction derived from the
// newest and the oldest sample in its ring.
type Monitor struct {
	clk *clock.Clock
	vm  *domain.VM

	ring        [ringSize]int64
	index       int
	finished    bool
	subscribed  bool
	maxHourWork float64 // latched on first RUNNING transition; 0 (=> +inf divisor) until then
	latched     bool
	stateToken  int
}

// New creates a Monitor for vm. Call Start to begin sampling.
func New(clk *clock.Clock, vm *domain.VM) *Monitor {
	return &Monitor{clk: clk, vm: vm}
}

// Start begins sampling: every slot is filled with the VM's current
// total-processed value, the write index resets to 0, and the monitor
// subscribes to both the clock (for periodic sampling) and the VM's state
// changes (to latch max_hourly_work on first RUNNING).
func (m *Monitor) Start() {
	for i := range m.ring {
		m.ring[i] = m.vm.TotalProcessed
	}
	m.index = 0
	m.finished = false
	m.latched = m.vm.State == domain.VMStateRunning
	if m.latched {
		m.maxHourWork = m.vm.PerTickPower * float64(hourMs)
	}
	m.clk.Subscribe(m, sampleMs)
	m.subscribed = true
	m.stateToken = m.vm.SubscribeStateChange(m.onStateChange)
}

// Stop ends sampling. Idempotent (spec.md §8 law).
func (m *Monitor) Stop() {
	if !m.subscribed {
		return
	}
	m.finished = true
	m.clk.Unsubscribe(m)
	m.subscribed = false
}

func (m *Monitor) onStateChange(vm *domain.VM, old, new domain.VMState) {
	if m.latched {
		return
	}
	if new == domain.VMStateRunning {
		m.maxHourWork = vm.PerTickPower * float64(hourMs)
		m.latched = true
		vm.UnsubscribeStateChange(m.stateToken)
	}
}

// Tick is called by the clock every 5 simulated minutes. If the monitor has
// been marked finished (Stop was called before this fire could be
// cancelled — the clock's Unsubscribe already prevents that, but this
// guard keeps the contract explicit) it unsubscribes instead of sampling.
func (m *Monitor) Tick(_ int64) {
	if m.finished {
		m.clk.Unsubscribe(m)
		return
	}
	m.ring[m.index%ringSize] = m.vm.TotalProcessed
	m.index++
}

// HourlyUtilization reports the fraction of the VM's maximum possible
// hourly work it has done recently, per spec.md §4.1:
//
//	0                                             if index == 0
//	(ring[(index-1) mod 12] - ring[index mod 12]) / maxHourWork   otherwise
//
// maxHourWork is 0 (reported as 0 utilization) until the VM's first RUNNING
// transition latches it — this is intentional: a pre-RUNNING VM must never
// look "idle enough to destroy".
func (m *Monitor) HourlyUtilization() (float64, error) {
	if !m.subscribed {
		return 0, ErrMonitorInactive
	}
	if m.index == 0 {
		return 0, nil
	}
	if !m.latched || m.maxHourWork <= 0 {
		return 0, nil
	}
	newest := m.ring[(m.index-1)%ringSize]
	oldest := m.ring[m.index%ringSize]
	delta := newest - oldest
	if delta < 0 {
		delta = 0
	}
	return float64(delta) / m.maxHourWork, nil
}
