package cloud

import (
	"container/list"

	"github.com/oriys/vcsim/internal/domain"
)

// Repository is the cloud's single VMI (VM image) repository. It is a
// capacity-bounded store of VAs, keyed by kind; the VI layer never stores
// more than one VA per kind by construction (spec.md §3 invariant 2), but
// the repository enforces the capacity bound independently of that
// discipline.
//
// Entries are tracked in insertion order via a list so FIFO eviction
// (spec.md §4.2 step 2, "pop the oldest entry from obsoleteVAs") can be
// cross-checked against actual storage occupancy by callers that need it.
type Repository struct {
	maxBytes int64
	used     int64
	byKind   map[string]*list.Element
	order    *list.List // holds *domain.VA, oldest-registered at Front
}

// NewRepository creates a Repository with the given total byte capacity.
// A capacity of 0 means unlimited.
func NewRepository(maxBytes int64) *Repository {
	return &Repository{
		maxBytes: maxBytes,
		byKind:   make(map[string]*list.Element),
		order:    list.New(),
	}
}

// Lookup returns the VA registered under id, or nil if absent.
func (r *Repository) Lookup(id string) *domain.VA {
	el, ok := r.byKind[id]
	if !ok {
		return nil
	}
	return el.Value.(*domain.VA)
}

// RegisterObject attempts to store va. Returns false if storage is full
// (maxBytes > 0 and there is not enough free space) without mutating state.
func (r *Repository) RegisterObject(va *domain.VA) bool {
	if _, exists := r.byKind[va.Kind]; exists {
		return true
	}
	if r.maxBytes > 0 && r.used+va.SizeBytes > r.maxBytes {
		return false
	}
	el := r.order.PushBack(va)
	r.byKind[va.Kind] = el
	r.used += va.SizeBytes
	return true
}

// DeregisterObject removes the VA with the given id, if present.
func (r *Repository) DeregisterObject(id string) {
	el, ok := r.byKind[id]
	if !ok {
		return
	}
	va := el.Value.(*domain.VA)
	r.order.Remove(el)
	delete(r.byKind, id)
	r.used -= va.SizeBytes
}

// Contents returns every VA currently in storage, oldest first.
func (r *Repository) Contents() []*domain.VA {
	out := make([]*domain.VA, 0, r.order.Len())
	for el := r.order.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(*domain.VA))
	}
	return out
}
