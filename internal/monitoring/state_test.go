package monitoring

import (
	"sync"
	"testing"
)

func TestStateTrackerBaselineAndFlips(t *testing.T) {
	tracker := NewStateTracker(nil)

	steps := []struct {
		isUp bool
		want Transition
	}{
		{isUp: false, want: NoTransition},
		{isUp: false, want: NoTransition},
		{isUp: true, want: TransitionUp},
		{isUp: true, want: NoTransition},
		{isUp: false, want: TransitionDown},
	}

	for i, step := range steps {
		if got := tracker.Observe("site", step.isUp); got != step.want {
			t.Fatalf("step %d: got %s, want %s", i, got, step.want)
		}
	}
}

func TestStateTrackerForgetRestartsBaseline(t *testing.T) {
	tracker := NewStateTracker(nil)
	tracker.Observe("site", true)
	tracker.Forget("site")

	if got := tracker.Observe("site", false); got != NoTransition {
		t.Fatalf("first observation after Forget must be a baseline, got %s", got)
	}
}

func TestStateTrackerPrune(t *testing.T) {
	tracker := NewStateTracker(nil)
	for _, id := range []string{"a", "b", "c"} {
		tracker.Observe(id, true)
	}

	removed := tracker.Prune(map[string]struct{}{"b": {}})
	if removed != 2 {
		t.Fatalf("expected 2 pruned entries, got %d", removed)
	}
	if tracker.Len() != 1 {
		t.Fatalf("expected 1 remaining entry, got %d", tracker.Len())
	}
	if got := tracker.Observe("b", false); got != TransitionDown {
		t.Fatalf("kept entry lost its state, got %s", got)
	}
}

func TestStateTrackerSerializesSameWebsite(t *testing.T) {
	tracker := NewStateTracker(nil)
	tracker.Observe("site", true)

	const goroutines = 64
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		downs int
	)
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			if tracker.Observe("site", false) == TransitionDown {
				mu.Lock()
				downs++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if downs != 1 {
		t.Fatalf("exactly one concurrent observer should see the flip, got %d", downs)
	}
}

func TestStateTrackerIndependentWebsites(t *testing.T) {
	tracker := NewStateTracker(nil)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := string(rune('a'+i%26)) + string(rune('a'+i/26))
			tracker.Observe(id, true)
		}(i)
	}
	wg.Wait()

	if tracker.Len() != 100 {
		t.Fatalf("expected 100 tracked websites, got %d", tracker.Len())
	}
}
