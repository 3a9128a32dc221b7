package vi

import "github.com/oriys/vcsim/internal/domain"

// Threshold implements spec.md §4.3's Threshold policy: grow when mean
// utilization crosses MaxUtil, shed under-utilized VMs eagerly in a
// multi-VM pool, and apply an idle grace period only to a singleton pool.
type Threshold struct {
	limits Limits
}

// NewThreshold constructs the Threshold policy with the given tunables.
func NewThreshold(limits Limits) *Threshold { return &Threshold{limits: limits} }

// Name identifies the policy for tick-duration metrics.
func (p *Threshold) Name() string { return "threshold" }

func (p *Threshold) Tick(now int64, v *VI) {
	for _, k := range v.Kinds() {
		if _, underPrep := v.UnderPrep(k); underPrep {
			continue
		}
		pool := v.Pool(k)
		if len(pool) == 0 {
			_ = v.RequestVM(k)
			continue
		}

		destroyedThisTick := false
		if len(pool) == 1 {
			vm := pool[0]
			if idleRunning(vm) {
				hits := v.IncHits(vm.ID)
				if hits >= p.limits.IdleTicks {
					_ = v.DestroyVM(vm)
					v.DropKind(k)
				}
				continue
			}
			v.ResetHits(vm.ID)
		} else {
			for _, vm := range append([]*domain.VM{}, pool...) {
				if idleRunning(vm) && v.HourlyUtil(vm) < p.limits.MinUtil {
					_ = v.DestroyVM(vm)
					destroyedThisTick = true
				}
			}
			if destroyedThisTick {
				continue
			}
		}

		pool = v.Pool(k)
		if len(pool) == 0 {
			continue
		}
		if meanUtil(v, pool) > p.limits.MaxUtil {
			_ = v.RequestVM(k)
		}
	}
}

func meanUtil(v *VI, pool []*domain.VM) float64 {
	if len(pool) == 0 {
		return 0
	}
	var sum float64
	for _, vm := range pool {
		sum += v.HourlyUtil(vm)
	}
	return sum / float64(len(pool))
}
