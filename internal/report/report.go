// Package report renders the end-of-run summary described in SPEC_FULL.md
// §12: job counts, average queue time, total energy consumption, VA
// evictions and per-kind pool sizes, printed as an aligned table the way the
// teacher's CLI renders "nova function list" (text/tabwriter).
package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/oriys/vcsim/internal/arrival"
	"github.com/oriys/vcsim/internal/domain"
	"github.com/oriys/vcsim/internal/progress"
	"github.com/oriys/vcsim/internal/vi"
)

// Summary is the data a run summary is rendered from.
type Summary struct {
	SimulatedSeconds float64
	Jobs             []*domain.Job
	Kinds            []string
	PoolSizes        map[string]int
	EnergyUnits      float64
	Completed        int64
	VAEvictions      int
}

// Build assembles a Summary from the live VI, Progress tracker and job set
// at the end of a run.
func Build(v *vi.VI, prog *progress.Progress, jobs []*domain.Job, simulatedMs int64, energyUnits float64) Summary {
	s := Summary{
		SimulatedSeconds: float64(simulatedMs) / 1000,
		Jobs:             jobs,
		Kinds:            v.Kinds(),
		PoolSizes:        make(map[string]int),
		EnergyUnits:      energyUnits,
		Completed:        prog.DoneCount(),
		VAEvictions:      v.Evictions(),
	}
	for _, k := range s.Kinds {
		s.PoolSizes[k] = len(v.Pool(k))
	}
	return s
}

// Write renders the summary to w as an aligned table.
func Write(w io.Writer, s Summary) error {
	var dispatched int
	for _, j := range s.Jobs {
		if j.Dispatched() {
			dispatched++
		}
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "simulated time\t%.1fs\n", s.SimulatedSeconds)
	fmt.Fprintf(tw, "jobs total\t%d\n", len(s.Jobs))
	fmt.Fprintf(tw, "jobs dispatched\t%d\n", dispatched)
	fmt.Fprintf(tw, "jobs completed\t%d\n", s.Completed)
	fmt.Fprintf(tw, "average queue time\t%.3fs\n", arrival.AverageQueueTime(s.Jobs))
	fmt.Fprintf(tw, "energy units\t%.1f\n", s.EnergyUnits)
	fmt.Fprintf(tw, "VA evictions\t%d\n", s.VAEvictions)
	fmt.Fprintln(tw, "---\t---")
	fmt.Fprintln(tw, "KIND\tPOOL SIZE")
	for _, k := range s.Kinds {
		fmt.Fprintf(tw, "%s\t%d\n", k, s.PoolSizes[k])
	}

	return tw.Flush()
}
