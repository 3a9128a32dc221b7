package vi

import (
	"math/rand"

	"github.com/oriys/vcsim/internal/domain"
)

// VMCreationPriority implements spec.md §4.3's VMCreationPriority policy:
// growth always wins ties against shrink, a singleton pool gets the same
// idle-tick grace as Threshold (keyed per kind rather than per VM), and
// multi-VM shrink picks a uniformly random under-utilized victim from a
// deterministically seeded RNG so runs with the same seed are reproducible
// (spec.md §8 scenario S5, §9 "Randomness").
type VMCreationPriority struct {
	rng    *rand.Rand
	limits Limits
}

// NewVMCreationPriority constructs the policy with an explicit seed and
// tunables.
func NewVMCreationPriority(seed int64, limits Limits) *VMCreationPriority {
	return &VMCreationPriority{rng: rand.New(rand.NewSource(seed)), limits: limits}
}

// Name identifies the policy for tick-duration metrics.
func (p *VMCreationPriority) Name() string { return "vm_creation_priority" }

func (p *VMCreationPriority) Tick(now int64, v *VI) {
	for _, k := range v.Kinds() {
		if _, underPrep := v.UnderPrep(k); underPrep {
			continue
		}
		pool := v.Pool(k)
		if len(pool) == 0 {
			_ = v.RequestVM(k)
			continue
		}

		var underUtil []*domain.VM
		var sum float64
		for _, vm := range pool {
			u := v.HourlyUtil(vm)
			sum += u
			if idleRunning(vm) && u < p.limits.MinUtil {
				underUtil = append(underUtil, vm)
			}
		}
		mean := sum / float64(len(pool))

		switch {
		case mean > p.limits.MaxUtil:
			_ = v.RequestVM(k)
		case len(pool) == 1:
			vm := pool[0]
			if idleRunning(vm) {
				hits := v.IncHits(k)
				if hits >= p.limits.IdleTicks {
					_ = v.DestroyVM(vm)
					v.DropKind(k)
				}
			} else {
				v.ResetHits(k)
			}
		case len(underUtil) > 0:
			v.ResetHits(k)
			victim := underUtil[p.rng.Intn(len(underUtil))]
			_ = v.DestroyVM(victim)
		default:
			v.ResetHits(k)
		}
	}
}
