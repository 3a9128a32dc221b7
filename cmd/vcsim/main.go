// Command vcsim is the demo driver for the autoscaling simulation: it
// loads a job trace, builds a cloud substrate of the requested PM
// topology, wires the chosen autoscaler policy, runs the discrete-event
// clock to completion and prints a run summary.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/oriys/vcsim/internal/arrival"
	"github.com/oriys/vcsim/internal/cloud"
	"github.com/oriys/vcsim/internal/clock"
	"github.com/oriys/vcsim/internal/config"
	"github.com/oriys/vcsim/internal/domain"
	"github.com/oriys/vcsim/internal/launcher"
	"github.com/oriys/vcsim/internal/logging"
	"github.com/oriys/vcsim/internal/metrics"
	"github.com/oriys/vcsim/internal/progress"
	"github.com/oriys/vcsim/internal/queue"
	"github.com/oriys/vcsim/internal/report"
	"github.com/oriys/vcsim/internal/telemetry"
	"github.com/oriys/vcsim/internal/trace"
	"github.com/oriys/vcsim/internal/vi"
)

// ErrInvalidParameter signals a CLI precondition failure (spec.md §6/§7).
var ErrInvalidParameter = fmt.Errorf("vcsim: invalid parameter")

var configFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "vcsim <trace-file> <cores-per-pm> <num-pms> <policy>",
		Short: "vcsim - discrete-event VM autoscaling simulator",
		Long:  "Replays a job trace against a simulated IaaS substrate under a chosen autoscaler policy and reports the outcome.",
		Args:  cobra.ExactArgs(4),
		RunE:  runSimulation,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to YAML config file (optional)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runSimulation(cmd *cobra.Command, args []string) error {
	tracePath := args[0]
	if tracePath == "" {
		return fmt.Errorf("%w: trace-file must not be empty", ErrInvalidParameter)
	}
	cores, err := strconv.Atoi(args[1])
	if err != nil || cores < 4 {
		return fmt.Errorf("%w: cores-per-pm must be an integer >= 4, got %q", ErrInvalidParameter, args[1])
	}
	numPMs, err := strconv.Atoi(args[2])
	if err != nil || numPMs < 1 {
		return fmt.Errorf("%w: num-pms must be a positive integer, got %q", ErrInvalidParameter, args[2])
	}
	policyName := args[3]

	cfg := config.DefaultConfig()
	if configFile != "" {
		cfg, err = config.LoadFromFile(configFile)
		if err != nil {
			return fmt.Errorf("vcsim: load config: %w", err)
		}
	}
	config.LoadFromEnv(cfg)
	logging.SetLevelFromString(cfg.Logging.Level)
	if cfg.Logging.Format == "json" {
		logging.InitStructured(cfg.Logging.Format, cfg.Logging.Level)
	}

	ctx := context.Background()
	tracer, shutdownTracer, err := telemetry.Setup(ctx, cfg.Tracing)
	if err != nil {
		return fmt.Errorf("vcsim: telemetry setup: %w", err)
	}
	defer shutdownTracer(ctx)

	jobs, err := trace.Load(tracePath)
	if err != nil {
		return fmt.Errorf("vcsim: %w", err)
	}

	clk := clock.New()

	pms := make([]*domain.PhysicalMachine, 0, numPMs)
	memoryMB := cfg.PMs[0].MemoryMB
	perCore := cfg.PMs[0].PerCoreProcessingPwr
	for i := 0; i < numPMs; i++ {
		pms = append(pms, domain.NewPhysicalMachine(fmt.Sprintf("pm-%d", i), cores, memoryMB, perCore))
	}

	repo := cloud.NewRepository(cfg.Storage.CapacityBytes)
	cld := cloud.NewCloud(clk, repo, pms)

	limits := vi.Limits{
		MinUtil:   cfg.Policy.MinUtil,
		MaxUtil:   cfg.Policy.MaxUtil,
		IdleTicks: cfg.Policy.IdleTicks,
		Headroom:  cfg.Policy.Headroom,
	}
	policy, err := buildPolicy(policyName, cfg, limits)
	if err != nil {
		return err
	}

	if cfg.Metrics.Enabled {
		pm := metrics.InitPrometheus(cfg.Metrics.Namespace, nil,
			func() float64 { return float64(clk.Now()) / 1000 },
			cld.TotalEnergyUnits,
		)
		if cfg.Metrics.Addr != "" {
			srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: pm.Handler()}
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logging.Op().Error("vcsim: metrics server failed", "addr", cfg.Metrics.Addr, "error", err)
				}
			}()
			defer srv.Shutdown(ctx)
		}
	}

	v := vi.NewWithTickPeriod(clk, cld, policy, cfg.Policy.TickPeriodMs)
	v.StartAutoscaling()

	prog := progress.New()
	if err := prog.SetTotal(len(jobs)); err != nil {
		return fmt.Errorf("vcsim: %w", err)
	}
	prog.OnAllFinished(func() {
		logging.Op().Info("vcsim: all jobs finished", "count", len(jobs))
		v.Terminate()
	})

	launch := launcher.New(v, cld, prog)
	qm := queue.New(clk, launch)
	qm.Start()

	_, span := tracer.Start(ctx, "run")
	ah := arrival.New(clk, launch, qm, jobs)
	ah.Start()

	clk.SimulateUntilLastEvent()
	span.End()

	v.Terminate()

	summary := report.Build(v, prog, jobs, clk.Now(), cld.TotalEnergyUnits())
	return report.Write(os.Stdout, summary)
}

func buildPolicy(name string, cfg *config.Config, limits vi.Limits) (vi.Policy, error) {
	switch name {
	case "threshold":
		return vi.NewThreshold(limits), nil
	case "vm_creation_priority":
		return vi.NewVMCreationPriority(cfg.Policy.RandomSeed, limits), nil
	case "pooling":
		return vi.NewPooling(limits), nil
	default:
		return nil, fmt.Errorf("%w: unknown policy class %q", ErrInvalidParameter, name)
	}
}
