package domain

import "github.com/google/uuid"

// VMState is the lifecycle state of a simulated VM, matching the substrate's
// state machine: INITIAL_TRANSFER -> STARTUP -> RUNNING -> {SUSPENDED,
// NONSERVABLE, DESTROYED}.
type VMState string

const (
	VMStateInitialTransfer VMState = "INITIAL_TRANSFER"
	VMStateStartup         VMState = "STARTUP"
	VMStateRunning         VMState = "RUNNING"
	VMStateSuspended       VMState = "SUSPENDED"
	VMStateNonservable     VMState = "NONSERVABLE"
	VMStateDestroyed       VMState = "DESTROYED"
)

// StateChangeListener is notified whenever a VM transitions between states.
type StateChangeListener func(vm *VM, old, new VMState)

type subscription struct {
	token int
	fn    StateChangeListener
}

// VM is a simulated virtual machine instance. RunningTasks and PendingTasks
// are sized by count only — this simulator does not model real concurrent
// execution, per spec Non-goals.
type VM struct {
	ID             string
	VAID           string
	Cores          int
	MemoryMB       int
	PerTickPower   float64 // units of work this VM can perform per simulated millisecond
	State          VMState
	RunningTasks   int
	PendingTasks   int
	TotalProcessed int64 // cumulative work units completed since creation

	subs    []subscription
	nextTok int
}

// NewVM constructs a VM in the INITIAL_TRANSFER state.
func NewVM(vaID string, cores, memoryMB int, perTickPower float64) *VM {
	return &VM{
		ID:           uuid.NewString(),
		VAID:         vaID,
		Cores:        cores,
		MemoryMB:     memoryMB,
		PerTickPower: perTickPower,
		State:        VMStateInitialTransfer,
	}
}

// Idle reports whether the VM has no running and no pending tasks.
func (v *VM) Idle() bool {
	return v.RunningTasks == 0 && v.PendingTasks == 0
}

// AvailableForDispatch reports whether the VM can accept a new job: it must
// be RUNNING and idle.
func (v *VM) AvailableForDispatch() bool {
	return v.State == VMStateRunning && v.Idle()
}

// SubscribeStateChange registers a listener for state transitions and
// returns a token for unsubscribing it later.
func (v *VM) SubscribeStateChange(l StateChangeListener) int {
	v.nextTok++
	tok := v.nextTok
	v.subs = append(v.subs, subscription{token: tok, fn: l})
	return tok
}

// UnsubscribeStateChange removes a previously registered listener by token.
// Unsubscribing an unknown token is a no-op, matching the idempotent
// unsubscribe contract in spec.md §5.
func (v *VM) UnsubscribeStateChange(token int) {
	for i, s := range v.subs {
		if s.token == token {
			v.subs = append(v.subs[:i], v.subs[i+1:]...)
			return
		}
	}
}

// TransitionTo moves the VM to a new state and fires listeners, iterating a
// snapshot of the subscriber slice so a listener that unsubscribes itself
// mid-callback does not corrupt iteration.
func (v *VM) TransitionTo(state VMState) {
	if v.State == state {
		return
	}
	old := v.State
	v.State = state
	snapshot := make([]subscription, len(v.subs))
	copy(snapshot, v.subs)
	for _, s := range snapshot {
		s.fn(v, old, state)
	}
}
