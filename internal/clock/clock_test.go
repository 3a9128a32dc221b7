package clock

import "testing"

type recorder struct {
	fires []int64
}

func (r *recorder) Tick(now int64) {
	r.fires = append(r.fires, now)
}

func TestSubscribePeriodicFiresRepeatedly(t *testing.T) {
	c := New()
	r := &recorder{}
	c.Subscribe(r, 100)

	for i := 0; i < 3; i++ {
		if !c.step() {
			t.Fatalf("expected a pending event at step %d", i)
		}
	}

	want := []int64{100, 200, 300}
	if len(r.fires) != len(want) {
		t.Fatalf("expected %d fires, got %d: %v", len(want), len(r.fires), r.fires)
	}
	for i, w := range want {
		if r.fires[i] != w {
			t.Fatalf("fire %d: want %d, got %d", i, w, r.fires[i])
		}
	}
}

func TestSubscribeIsIdempotent(t *testing.T) {
	c := New()
	r := &recorder{}
	if !c.Subscribe(r, 100) {
		t.Fatalf("expected first subscribe to succeed")
	}
	if c.Subscribe(r, 200) {
		t.Fatalf("expected second subscribe of the same subscriber to fail")
	}
}

func TestUnsubscribeCancelsFutureFires(t *testing.T) {
	c := New()
	r := &recorder{}
	c.Subscribe(r, 100)
	c.step()
	c.Unsubscribe(r)
	c.SimulateUntilLastEvent()

	if len(r.fires) != 1 {
		t.Fatalf("expected exactly one fire before unsubscribe, got %d", len(r.fires))
	}
}

func TestSimulateUntilLastEventDrainsOneShots(t *testing.T) {
	c := New()
	a := &recorder{}
	b := &recorder{}
	c.SubscribeAt(a, 500)
	c.SubscribeAt(b, 250)

	c.SimulateUntilLastEvent()

	if len(a.fires) != 1 || a.fires[0] != 500 {
		t.Fatalf("expected a to fire once at 500, got %v", a.fires)
	}
	if len(b.fires) != 1 || b.fires[0] != 250 {
		t.Fatalf("expected b to fire once at 250, got %v", b.fires)
	}
	if c.Now() != 500 {
		t.Fatalf("expected clock to settle at 500, got %d", c.Now())
	}
}

func TestCoFiringEntriesOrderedBySubscriptionSequence(t *testing.T) {
	c := New()
	var order []string
	a := &subscriberFunc{f: func(int64) { order = append(order, "a") }}
	b := &subscriberFunc{f: func(int64) { order = append(order, "b") }}
	c.SubscribeAt(a, 100)
	c.SubscribeAt(b, 100)

	c.SimulateUntilLastEvent()

	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Fatalf("expected co-firing entries in subscription order, got %v", order)
	}
}

func TestSkipUntilAdvancesWithoutFiring(t *testing.T) {
	c := New()
	c.SkipUntil(5000)
	if c.Now() != 5000 {
		t.Fatalf("expected clock to advance to 5000, got %d", c.Now())
	}
	c.SkipUntil(1000) // must not move backwards
	if c.Now() != 5000 {
		t.Fatalf("expected SkipUntil to never move the clock backwards, got %d", c.Now())
	}
}

func TestRescheduleAtMovesOneShot(t *testing.T) {
	c := New()
	r := &recorder{}
	c.SubscribeAt(r, 1000)
	c.RescheduleAt(r, 2000)

	c.SimulateUntilLastEvent()

	if len(r.fires) != 1 || r.fires[0] != 2000 {
		t.Fatalf("expected single fire at rescheduled time 2000, got %v", r.fires)
	}
}

func TestUpdateFrequencyReschedulesRelativeToNow(t *testing.T) {
	c := New()
	r := &recorder{}
	c.Subscribe(r, 100)
	c.step() // fires at 100, re-arms for 200

	c.UpdateFrequency(r, 50)
	c.step()

	if len(r.fires) != 2 || r.fires[1] != 150 {
		t.Fatalf("expected second fire at 150 after UpdateFrequency, got %v", r.fires)
	}
}

// subscriberFunc adapts a function to Subscriber. It is a pointer-receiver
// struct rather than a func type because the Clock keys subscriptions by
// Subscriber in a map, and func values are not hashable.
type subscriberFunc struct{ f func(now int64) }

func (s *subscriberFunc) Tick(now int64) { s.f(now) }
