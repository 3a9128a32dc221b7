// Package vi implements the VirtualInfrastructure base described in
// spec.md §4.2: per-kind VM pools, VA registration/eviction via the cloud's
// repository, the in-flight "under preparation" guard, obsolete-VA
// tracking for storage eviction, and the state-change wiring that feeds
// the autoscaler policies in §4.3.
package vi

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/oriys/vcsim/internal/clock"
	"github.com/oriys/vcsim/internal/cloud"
	"github.com/oriys/vcsim/internal/domain"
	"github.com/oriys/vcsim/internal/logging"
	"github.com/oriys/vcsim/internal/metrics"
	"github.com/oriys/vcsim/internal/monitor"
)

// tracer emits spans around VI.Tick. It resolves against whatever
// TracerProvider internal/telemetry installed globally; with tracing
// disabled that provider is the otel no-op default, so this never needs a
// nil check.
var tracer = otel.Tracer("github.com/oriys/vcsim/internal/vi")

// Default policy constants shared by every autoscaler policy in §4.3,
// used when no tuned config.PolicyConfig is supplied (tests, and callers
// that want spec.md's reference values).
const (
	DefaultMinUtil      = 0.2
	DefaultMaxUtil      = 0.75
	DefaultIdleTicks    = 30
	DefaultHeadroom     = 4
	DefaultTickPeriodMs = 2 * 60 * 1000 // control loop cadence: every 2 simulated minutes
)

// Limits bundles the tunable constants every policy in §4.3 reads:
// utilization growth/shrink thresholds and the idle-tick/headroom grace
// windows. Threaded in from config.PolicyConfig so VCSIM_POLICY_* env
// overrides actually affect scaling decisions.
type Limits struct {
	MinUtil   float64
	MaxUtil   float64
	IdleTicks int
	Headroom  int
}

// DefaultLimits returns spec.md's reference constants.
func DefaultLimits() Limits {
	return Limits{
		MinUtil:   DefaultMinUtil,
		MaxUtil:   DefaultMaxUtil,
		IdleTicks: DefaultIdleTicks,
		Headroom:  DefaultHeadroom,
	}
}

// Policy is the injected control law a VirtualInfrastructure runs every
// tick. Design note §9: this flattens the teacher's "VI with a default
// policy" inheritance into ordinary composition — pools and helpers are
// reached through the VI the policy is handed.
type Policy interface {
	Tick(now int64, vi *VI)
	Name() string
}

// VI (VirtualInfrastructure) owns the per-kind pools, the VA storage
// eviction bookkeeping, the per-VM monitors, and the tick subscription that
// drives a Policy.
type VI struct {
	clk          *clock.Clock
	cld          *cloud.Cloud
	policy       Policy
	tickPeriodMs int64

	pools      map[string][]*domain.VM
	kindOrder  []string
	underPrep  map[string]*domain.VM
	obsolete   []string // FIFO of kinds whose pool just emptied
	monitors   map[string]*monitor.Monitor
	hits       map[string]int
	stateToken map[string]int
	evictions  int
}

// New builds a VI over the given cloud substrate, running policy on the
// control-loop cadence spec.md §4.2 names (DefaultTickPeriodMs).
func New(clk *clock.Clock, cld *cloud.Cloud, policy Policy) *VI {
	return NewWithTickPeriod(clk, cld, policy, DefaultTickPeriodMs)
}

// NewWithTickPeriod builds a VI whose control loop fires every
// tickPeriodMs simulated milliseconds, per config.PolicyConfig.TickPeriodMs.
func NewWithTickPeriod(clk *clock.Clock, cld *cloud.Cloud, policy Policy, tickPeriodMs int64) *VI {
	return &VI{
		clk:          clk,
		cld:          cld,
		policy:       policy,
		tickPeriodMs: tickPeriodMs,
		pools:        make(map[string][]*domain.VM),
		underPrep:    make(map[string]*domain.VM),
		monitors:     make(map[string]*monitor.Monitor),
		hits:         make(map[string]int),
		stateToken:   make(map[string]int),
	}
}

// RegisterKind activates kind, creating an empty pool if one does not
// already exist. Idempotent.
func (v *VI) RegisterKind(kind string) {
	if _, ok := v.pools[kind]; ok {
		return
	}
	v.pools[kind] = []*domain.VM{}
	v.kindOrder = append(v.kindOrder, kind)
}

// StartAutoscaling subscribes the VI to the clock at the control-loop
// cadence.
func (v *VI) StartAutoscaling() {
	v.clk.Subscribe(v, v.tickPeriodMs)
}

// Tick implements clock.Subscriber; it delegates to the injected Policy and
// then lets the cloud's energy meter accrue for this control-loop period.
func (v *VI) Tick(now int64) {
	_, span := tracer.Start(context.Background(), "vi.tick", trace.WithAttributes(
		attribute.Int64("now_ms", now),
		attribute.String("policy", v.policy.Name()),
	))
	defer span.End()

	start := time.Now()
	v.policy.Tick(now, v)
	metrics.RecordTickDuration(v.policy.Name(), float64(time.Since(start).Microseconds()))
	v.cld.AccrueEnergy()
	for _, k := range v.kindOrder {
		pool := v.pools[k]
		if len(pool) == 0 {
			continue
		}
		metrics.SetHourlyUtilization(k, meanUtil(v, pool))
	}

	var traceID, spanID string
	if sc := span.SpanContext(); sc.IsValid() {
		traceID, spanID = sc.TraceID().String(), sc.SpanID().String()
	}
	logging.OpWithTrace(traceID, spanID).Debug("vi: tick complete", "now_ms", now, "policy", v.policy.Name(), "kinds", len(v.kindOrder))
}

// Terminate destroys every VM in every pool, iterating each pool from the
// tail as spec.md §4.2 prescribes, then cancels the tick subscription.
func (v *VI) Terminate() {
	for _, k := range append([]string{}, v.kindOrder...) {
		vms := append([]*domain.VM{}, v.pools[k]...)
		for i := len(vms) - 1; i >= 0; i-- {
			if err := v.DestroyVM(vms[i]); err != nil {
				logging.Op().Error("vi: terminate destroy failed", "vm_id", vms[i].ID, "error", err)
			}
		}
	}
	v.clk.Unsubscribe(v)
}

// Kinds returns the currently active kinds in registration order, for
// deterministic policy iteration (spec.md §9 pins intra-tick order).
func (v *VI) Kinds() []string {
	return append([]string{}, v.kindOrder...)
}

// Pool returns the VMs of the given kind, in insertion order.
func (v *VI) Pool(kind string) []*domain.VM {
	return v.pools[kind]
}

// Evictions reports the total number of obsolete VAs deregistered to make
// room for a new registration (spec.md §4.2's storage eviction path).
func (v *VI) Evictions() int { return v.evictions }

// HasPool reports whether kind has been registered (its pool may still be
// empty), distinguishing "active kind, no VMs yet" from "kind never
// registered" — the distinction JobLauncher needs (spec.md §4.4).
func (v *VI) HasPool(kind string) bool {
	_, ok := v.pools[kind]
	return ok
}

// UnderPrep reports the kind's in-flight VM request, if any.
func (v *VI) UnderPrep(kind string) (*domain.VM, bool) {
	vm, ok := v.underPrep[kind]
	return vm, ok
}

// HourlyUtil reads the kind's VM's utilization monitor, defaulting to 0 if
// the VM has no live monitor (e.g. it was never started).
func (v *VI) HourlyUtil(vm *domain.VM) float64 {
	m, ok := v.monitors[vm.ID]
	if !ok {
		return 0
	}
	u, err := m.HourlyUtilization()
	if err != nil {
		return 0
	}
	return u
}

// Hits, IncHits and ResetHits manage the UnnecessaryHits counters described
// in spec.md §3. Policies key these by VM ID or by kind depending on
// whether the policy's grace period is per-VM or per-kind (see §4.3).
func (v *VI) Hits(id string) int    { return v.hits[id] }
func (v *VI) IncHits(id string) int { v.hits[id]++; return v.hits[id] }
func (v *VI) ResetHits(id string)   { delete(v.hits, id) }

// DropKind removes a kind entirely from the VI (spec.md §4.8 state
// machine: Present(empty) -> Dropped). Re-activating the kind later
// requires a fresh RegisterKind.
func (v *VI) DropKind(kind string) {
	delete(v.pools, kind)
	delete(v.hits, kind)
	delete(v.underPrep, kind)
	for i, k := range v.obsolete {
		if k == kind {
			v.obsolete = append(v.obsolete[:i], v.obsolete[i+1:]...)
			break
		}
	}
	for i, k := range v.kindOrder {
		if k == kind {
			v.kindOrder = append(v.kindOrder[:i], v.kindOrder[i+1:]...)
			break
		}
	}
}

func (v *VI) pushObsolete(kind string) {
	for _, k := range v.obsolete {
		if k == kind {
			return
		}
	}
	v.obsolete = append(v.obsolete, kind)
}

func (v *VI) popObsolete() (string, bool) {
	if len(v.obsolete) == 0 {
		return "", false
	}
	kind := v.obsolete[0]
	v.obsolete = v.obsolete[1:]
	return kind, true
}

func (v *VI) removeFromObsolete(kind string) {
	for i, k := range v.obsolete {
		if k == kind {
			v.obsolete = append(v.obsolete[:i], v.obsolete[i+1:]...)
			return
		}
	}
}

// RequestVM implements spec.md §4.2's VA storage management algorithm.
func (v *VI) RequestVM(kind string) error {
	if _, ok := v.underPrep[kind]; ok {
		return nil
	}

	repo := v.cld.Repository()
	va := repo.Lookup(kind)
	if va == nil {
		va = domain.NewVA(kind)
		if !repo.RegisterObject(va) {
			for {
				oldest, ok := v.popObsolete()
				if !ok {
					return fmt.Errorf("vi: request VM for %q: %w", kind, cloud.ErrStorageExhausted)
				}
				repo.DeregisterObject(oldest)
				logging.Op().Debug("vi: VA evicted", "evicted_kind", oldest, "for_kind", kind)
				v.evictions++
				metrics.RecordStorageEviction()
				if repo.RegisterObject(va) {
					break
				}
			}
		}
	}

	pms := v.cld.PhysicalMachines()
	if len(pms) == 0 {
		return fmt.Errorf("vi: request VM for %q: %w", kind, cloud.ErrNoCapacity)
	}
	first := pms[0]
	cores := (len(kind) % 4) + 1
	memoryMB := cores * first.MemoryMB / first.Cores

	vms, err := v.cld.RequestVM(va, cores, memoryMB, 1)
	if err != nil {
		return fmt.Errorf("vi: request VM for %q: %w", kind, err)
	}
	vm := vms[0]

	m := monitor.New(v.clk, vm)
	m.Start()
	v.monitors[vm.ID] = m

	wasEmpty := len(v.pools[kind]) == 0
	v.pools[kind] = append(v.pools[kind], vm)
	if wasEmpty {
		v.removeFromObsolete(kind)
	}

	v.underPrep[kind] = vm
	v.stateToken[vm.ID] = vm.SubscribeStateChange(v.onVMStateChange)

	metrics.RecordVMCreated(kind)
	metrics.RecordAutoscaleDecision(kind, "grow")
	metrics.SetPoolSize(kind, len(v.pools[kind]))
	logging.Op().Debug("vi: VM requested", "kind", kind, "vm_id", vm.ID, "cores", cores, "memory_mb", memoryMB)
	return nil
}

// DestroyVM implements spec.md §4.2's destroy_vm: stop the monitor, remove
// the VM from its pool, clear under_prep if it matched, and push the kind
// onto obsoleteVAs if the pool is now empty.
func (v *VI) DestroyVM(vm *domain.VM) error {
	kind := vm.VAID

	if m, ok := v.monitors[vm.ID]; ok {
		m.Stop()
		delete(v.monitors, vm.ID)
	}

	v.pools[kind] = removeVM(v.pools[kind], vm)

	if up, ok := v.underPrep[kind]; ok && up == vm {
		delete(v.underPrep, kind)
	}
	if token, ok := v.stateToken[vm.ID]; ok {
		vm.UnsubscribeStateChange(token)
		delete(v.stateToken, vm.ID)
	}

	var err error
	if vm.State == domain.VMStateDestroyed {
		err = v.cld.TerminateVM(vm, true)
	} else {
		err = v.cld.DestroyVM(vm, true)
	}

	if _, ok := v.pools[kind]; ok && len(v.pools[kind]) == 0 {
		v.pushObsolete(kind)
	}

	metrics.RecordVMDestroyed(kind)
	metrics.RecordAutoscaleDecision(kind, "shrink")
	metrics.SetPoolSize(kind, len(v.pools[kind]))

	if err != nil {
		return fmt.Errorf("vi: destroy VM %s: %w", vm.ID, err)
	}
	logging.Op().Debug("vi: VM destroyed", "kind", kind, "vm_id", vm.ID)
	return nil
}

// onVMStateChange implements the VI's state-change callback (spec.md
// §4.2): on RUNNING or NONSERVABLE, clear under_prep and unsubscribe.
func (v *VI) onVMStateChange(vm *domain.VM, old, new domain.VMState) {
	if new != domain.VMStateRunning && new != domain.VMStateNonservable {
		return
	}
	if up, ok := v.underPrep[vm.VAID]; ok && up == vm {
		delete(v.underPrep, vm.VAID)
	}
	if token, ok := v.stateToken[vm.ID]; ok {
		vm.UnsubscribeStateChange(token)
		delete(v.stateToken, vm.ID)
	}
}

func removeVM(vms []*domain.VM, target *domain.VM) []*domain.VM {
	out := make([]*domain.VM, 0, len(vms))
	for _, vm := range vms {
		if vm != target {
			out = append(out, vm)
		}
	}
	return out
}

// idleRunning reports whether vm is both RUNNING and carrying no tasks —
// the dispatch-availability predicate that autoscaler policies use to
// decide what counts as "idle" for shrink purposes. A VM mid-boot
// (STARTUP, INITIAL_TRANSFER) is never idle in this sense, which is what
// keeps the under-prep guard (invariant 1, spec.md §8) effective even
// though the guard itself only blocks new requests.
func idleRunning(vm *domain.VM) bool {
	return vm.State == domain.VMStateRunning && vm.Idle()
}
