// Package domain holds the plain data types shared by the simulation
// control plane: jobs, VMs, virtual appliances and physical machines.
// Nothing in this package depends on the clock or the cloud substrate.
package domain

import "github.com/google/uuid"

// Job is a unit of work read from the trace. SubmitTimeS and ExecTimeS are
// expressed in simulated seconds. RealQueueTimeS is mutated by the harness
// once the job is dispatched.
type Job struct {
	ID             string
	Kind           string
	SubmitTimeS    float64
	ExecTimeS      float64
	RealQueueTimeS float64
	dispatched     bool
}

// NewJob builds a Job with a fresh identity.
func NewJob(kind string, submitTimeS, execTimeS float64) *Job {
	return &Job{
		ID:          uuid.NewString(),
		Kind:        kind,
		SubmitTimeS: submitTimeS,
		ExecTimeS:   execTimeS,
	}
}

// Started marks the job as dispatched to a VM at simulated time nowMs
// (milliseconds), recording its realized queue wait in RealQueueTimeS.
// Idempotent: a second call is a no-op.
func (j *Job) Started(nowMs int64) {
	if j.dispatched {
		return
	}
	j.dispatched = true
	j.RealQueueTimeS = float64(nowMs)/1000 - j.SubmitTimeS
	if j.RealQueueTimeS < 0 {
		j.RealQueueTimeS = 0
	}
}

// Dispatched reports whether the job has reached a VM.
func (j *Job) Dispatched() bool {
	return j.dispatched
}
