package vi

import "github.com/oriys/vcsim/internal/domain"

// Pooling implements spec.md §4.3's Pooling policy: maintain at least
// Headroom idle VMs per kind at all times, growing eagerly and shrinking
// only the single oldest excess idle VM per tick once headroom is
// comfortably exceeded.
type Pooling struct {
	limits Limits
}

// NewPooling constructs the Pooling policy with the given tunables.
func NewPooling(limits Limits) *Pooling { return &Pooling{limits: limits} }

// Name identifies the policy for tick-duration metrics.
func (p *Pooling) Name() string { return "pooling" }

func (p *Pooling) Tick(now int64, v *VI) {
	for _, k := range v.Kinds() {
		if _, underPrep := v.UnderPrep(k); underPrep {
			continue
		}
		pool := v.Pool(k)
		if len(pool) < p.limits.Headroom {
			_ = v.RequestVM(k)
			continue
		}

		var unused []*domain.VM
		for _, vm := range pool {
			if idleRunning(vm) {
				unused = append(unused, vm)
			}
		}

		switch {
		case len(unused) < p.limits.Headroom:
			_ = v.RequestVM(k)
		case len(unused) == len(pool):
			hits := v.IncHits(k)
			if hits >= p.limits.IdleTicks {
				for _, vm := range append([]*domain.VM{}, pool...) {
					_ = v.DestroyVM(vm)
				}
				v.DropKind(k)
			}
		default:
			v.ResetHits(k)
			if len(unused) > p.limits.Headroom {
				_ = v.DestroyVM(unused[0])
			}
		}
	}
}
