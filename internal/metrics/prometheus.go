package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusMetrics wraps prometheus collectors for the simulation's
// control plane: pool sizes, queue depth, autoscale decisions, dispatch
// throughput and energy.
type PrometheusMetrics struct {
	registry *prometheus.Registry

	// Counters
	vmsCreated          *prometheus.CounterVec
	vmsDestroyed        *prometheus.CounterVec
	jobsDispatched      *prometheus.CounterVec
	jobsCompleted       *prometheus.CounterVec
	autoscaleDecisions  *prometheus.CounterVec
	storageEvictions    prometheus.Counter

	// Histograms
	tickDuration     *prometheus.HistogramVec
	jobQueueWaitS    prometheus.Histogram
	vmBootDurationMs prometheus.Histogram

	// Gauges
	uptime        prometheus.GaugeFunc
	poolSize      *prometheus.GaugeVec
	queueDepth    *prometheus.GaugeVec
	hourlyUtil    *prometheus.GaugeVec
	energyUnits   prometheus.GaugeFunc
	simulatedTime prometheus.GaugeFunc
}

// Default histogram buckets for control-loop tick duration, in microseconds
// of wall-clock compute (not simulated time).
var defaultTickBuckets = []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000}

var promMetrics *PrometheusMetrics
var startTime = time.Now()

// TimeSourceFunc reports the current simulated time, in seconds, for the
// simulated_time_seconds gauge.
type TimeSourceFunc func() float64

// EnergySourceFunc reports cumulative energy units, for the energy_units
// gauge.
type EnergySourceFunc func() float64

// InitPrometheus initializes the Prometheus metrics subsystem.
func InitPrometheus(namespace string, buckets []float64, nowSim TimeSourceFunc, energy EnergySourceFunc) *PrometheusMetrics {
	if len(buckets) == 0 {
		buckets = defaultTickBuckets
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	pm := &PrometheusMetrics{
		registry: registry,

		vmsCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "vms_created_total", Help: "Total VMs requested from the cloud substrate"},
			[]string{"kind"},
		),
		vmsDestroyed: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "vms_destroyed_total", Help: "Total VMs destroyed"},
			[]string{"kind"},
		),
		jobsDispatched: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "jobs_dispatched_total", Help: "Total jobs dispatched to a VM"},
			[]string{"kind"},
		),
		jobsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "jobs_completed_total", Help: "Total jobs finished execution"},
			[]string{"kind"},
		),
		autoscaleDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "autoscale_decisions_total", Help: "Total autoscaler grow/shrink decisions"},
			[]string{"kind", "direction"},
		),
		storageEvictions: prometheus.NewCounter(
			prometheus.CounterOpts{Namespace: namespace, Name: "storage_evictions_total", Help: "Total VA evictions from the VMI repository"},
		),

		tickDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{Namespace: namespace, Name: "control_loop_tick_microseconds", Help: "Wall-clock duration of a policy Tick call", Buckets: buckets},
			[]string{"policy"},
		),
		jobQueueWaitS: prometheus.NewHistogram(
			prometheus.HistogramOpts{Namespace: namespace, Name: "job_queue_wait_seconds", Help: "Realized queue wait per dispatched job, in simulated seconds", Buckets: []float64{0, 1, 5, 10, 30, 60, 300, 900}},
		),
		vmBootDurationMs: prometheus.NewHistogram(
			prometheus.HistogramOpts{Namespace: namespace, Name: "vm_boot_duration_milliseconds", Help: "Simulated VM boot duration", Buckets: []float64{1000, 5000, 15000, 30000, 60000}},
		),

		poolSize: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Namespace: namespace, Name: "pool_size", Help: "Current VM pool size by kind"},
			[]string{"kind"},
		),
		queueDepth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Namespace: namespace, Name: "retry_queue_depth", Help: "Current retry queue depth by kind"},
			[]string{"kind"},
		),
		hourlyUtil: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Namespace: namespace, Name: "hourly_utilization_ratio", Help: "Mean hourly utilization fraction by kind"},
			[]string{"kind"},
		),
	}

	pm.uptime = prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{Namespace: namespace, Name: "uptime_seconds", Help: "Wall-clock time since the simulation process started"},
		func() float64 { return time.Since(startTime).Seconds() },
	)
	if nowSim != nil {
		pm.simulatedTime = prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Namespace: namespace, Name: "simulated_time_seconds", Help: "Current virtual clock value, in simulated seconds"},
			func() float64 { return nowSim() },
		)
	}
	if energy != nil {
		pm.energyUnits = prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Namespace: namespace, Name: "energy_units_total", Help: "Cumulative simulated energy consumption across all physical machines"},
			func() float64 { return energy() },
		)
	}

	collectors := []prometheus.Collector{
		pm.vmsCreated, pm.vmsDestroyed, pm.jobsDispatched, pm.jobsCompleted,
		pm.autoscaleDecisions, pm.storageEvictions, pm.tickDuration,
		pm.jobQueueWaitS, pm.vmBootDurationMs, pm.uptime, pm.poolSize,
		pm.queueDepth, pm.hourlyUtil,
	}
	if pm.simulatedTime != nil {
		collectors = append(collectors, pm.simulatedTime)
	}
	if pm.energyUnits != nil {
		collectors = append(collectors, pm.energyUnits)
	}
	registry.MustRegister(collectors...)

	promMetrics = pm
	return pm
}

// Handler returns an http.Handler serving this registry's metrics in the
// Prometheus exposition format.
func (pm *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(pm.registry, promhttp.HandlerOpts{})
}

// RecordVMCreated increments the vms_created_total counter for kind.
func RecordVMCreated(kind string) {
	if promMetrics == nil {
		return
	}
	promMetrics.vmsCreated.WithLabelValues(kind).Inc()
}

// RecordVMDestroyed increments the vms_destroyed_total counter for kind.
func RecordVMDestroyed(kind string) {
	if promMetrics == nil {
		return
	}
	promMetrics.vmsDestroyed.WithLabelValues(kind).Inc()
}

// RecordJobDispatched increments jobs_dispatched_total and observes the
// job's realized queue wait.
func RecordJobDispatched(kind string, queueWaitS float64) {
	if promMetrics == nil {
		return
	}
	promMetrics.jobsDispatched.WithLabelValues(kind).Inc()
	promMetrics.jobQueueWaitS.Observe(queueWaitS)
}

// RecordJobCompleted increments jobs_completed_total for kind.
func RecordJobCompleted(kind string) {
	if promMetrics == nil {
		return
	}
	promMetrics.jobsCompleted.WithLabelValues(kind).Inc()
}

// RecordAutoscaleDecision increments autoscale_decisions_total for kind and
// direction ("grow" or "shrink").
func RecordAutoscaleDecision(kind, direction string) {
	if promMetrics == nil {
		return
	}
	promMetrics.autoscaleDecisions.WithLabelValues(kind, direction).Inc()
}

// RecordStorageEviction increments storage_evictions_total.
func RecordStorageEviction() {
	if promMetrics == nil {
		return
	}
	promMetrics.storageEvictions.Inc()
}

// RecordTickDuration observes how long a policy's Tick call took.
func RecordTickDuration(policy string, microseconds float64) {
	if promMetrics == nil {
		return
	}
	promMetrics.tickDuration.WithLabelValues(policy).Observe(microseconds)
}

// RecordVMBootDuration observes a VM's simulated boot duration.
func RecordVMBootDuration(durationMs float64) {
	if promMetrics == nil {
		return
	}
	promMetrics.vmBootDurationMs.Observe(durationMs)
}

// SetPoolSize sets the current pool size gauge for kind.
func SetPoolSize(kind string, size int) {
	if promMetrics == nil {
		return
	}
	promMetrics.poolSize.WithLabelValues(kind).Set(float64(size))
}

// SetQueueDepth sets the current retry queue depth gauge for kind.
func SetQueueDepth(kind string, depth int) {
	if promMetrics == nil {
		return
	}
	promMetrics.queueDepth.WithLabelValues(kind).Set(float64(depth))
}

// SetHourlyUtilization sets the hourly utilization gauge for kind.
func SetHourlyUtilization(kind string, ratio float64) {
	if promMetrics == nil {
		return
	}
	promMetrics.hourlyUtil.WithLabelValues(kind).Set(ratio)
}
