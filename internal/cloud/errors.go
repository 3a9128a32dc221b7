package cloud

import "errors"

// Error taxonomy for the IaaS substrate, per spec.md §7. These are fatal in
// normal operation — the simulation has no meaningful recovery path for a
// failure down here.
var (
	// ErrStorageExhausted is returned when a VA cannot be registered and no
	// obsolete VA is available to evict.
	ErrStorageExhausted = errors.New("cloud: VMI storage exhausted")
	// ErrVMManagement is returned by request/destroy failures from the
	// substrate.
	ErrVMManagement = errors.New("cloud: VM management failure")
	// ErrNoCapacity is returned when no physical machine has room for a
	// requested VM.
	ErrNoCapacity = errors.New("cloud: no physical machine capacity")
)
