package domain

import "testing"

func TestVMTransitionFiresListeners(t *testing.T) {
	vm := NewVM("k1", 2, 4096, 10)
	var got []VMState
	vm.SubscribeStateChange(func(_ *VM, old, new VMState) {
		got = append(got, new)
	})

	vm.TransitionTo(VMStateStartup)
	vm.TransitionTo(VMStateRunning)

	if len(got) != 2 || got[0] != VMStateStartup || got[1] != VMStateRunning {
		t.Fatalf("unexpected listener calls: %v", got)
	}
}

func TestVMTransitionToSameStateIsNoOp(t *testing.T) {
	vm := NewVM("k1", 2, 4096, 10)
	calls := 0
	vm.SubscribeStateChange(func(_ *VM, old, new VMState) { calls++ })

	vm.TransitionTo(VMStateInitialTransfer)

	if calls != 0 {
		t.Fatalf("expected no-op transition to fire no listeners, got %d calls", calls)
	}
}

func TestUnsubscribeStateChange(t *testing.T) {
	vm := NewVM("k1", 2, 4096, 10)
	calls := 0
	tok := vm.SubscribeStateChange(func(_ *VM, old, new VMState) { calls++ })
	vm.UnsubscribeStateChange(tok)

	vm.TransitionTo(VMStateStartup)

	if calls != 0 {
		t.Fatalf("expected unsubscribed listener to not fire, got %d calls", calls)
	}
}

func TestUnsubscribeUnknownTokenIsNoOp(t *testing.T) {
	vm := NewVM("k1", 2, 4096, 10)
	vm.UnsubscribeStateChange(999)
	vm.TransitionTo(VMStateStartup)
	if vm.State != VMStateStartup {
		t.Fatalf("expected transition to proceed despite unknown unsubscribe")
	}
}

func TestListenerCanUnsubscribeItselfMidCallback(t *testing.T) {
	vm := NewVM("k1", 2, 4096, 10)
	var tok int
	calls := 0
	tok = vm.SubscribeStateChange(func(v *VM, old, new VMState) {
		calls++
		v.UnsubscribeStateChange(tok)
	})

	vm.TransitionTo(VMStateStartup)
	vm.TransitionTo(VMStateRunning)

	if calls != 1 {
		t.Fatalf("expected listener to fire exactly once before self-unsubscribing, got %d", calls)
	}
}

func TestIdleAndAvailableForDispatch(t *testing.T) {
	vm := NewVM("k1", 2, 4096, 10)
	vm.TransitionTo(VMStateStartup)
	vm.TransitionTo(VMStateRunning)

	if !vm.Idle() || !vm.AvailableForDispatch() {
		t.Fatalf("expected fresh RUNNING VM to be idle and available")
	}

	vm.RunningTasks = 1
	if vm.Idle() || vm.AvailableForDispatch() {
		t.Fatalf("expected VM with a running task to be neither idle nor available")
	}
}
