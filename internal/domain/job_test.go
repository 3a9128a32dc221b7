package domain

import "testing"

func TestJobStartedSetsQueueTime(t *testing.T) {
	j := NewJob("k1", 10, 5)
	j.Started(15000) // 15s simulated

	if !j.Dispatched() {
		t.Fatalf("expected job to be dispatched")
	}
	if j.RealQueueTimeS != 5 {
		t.Fatalf("expected queue time 5s, got %v", j.RealQueueTimeS)
	}
}

func TestJobStartedIsIdempotent(t *testing.T) {
	j := NewJob("k1", 10, 5)
	j.Started(15000)
	j.Started(999999)

	if j.RealQueueTimeS != 5 {
		t.Fatalf("expected second Started call to be a no-op, got %v", j.RealQueueTimeS)
	}
}

func TestJobStartedClampsNegativeQueueTime(t *testing.T) {
	j := NewJob("k1", 10, 5)
	j.Started(1000) // before submit time, in simulated terms

	if j.RealQueueTimeS != 0 {
		t.Fatalf("expected clamped queue time 0, got %v", j.RealQueueTimeS)
	}
}
