package monitoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"webmonitor/internal/database"
)

func TestSweepScenarioNotifiesOnlyOnTransitions(t *testing.T) {
	site := website("t", true)
	h := newHarness(site)
	h.prober.queue(site.URL, statusResult(200), statusResult(503), refusedResult(), statusResult(200))

	wantKinds := [][]database.NotificationKind{
		nil,
		{database.NotificationDown},
		{database.NotificationDown},
		{database.NotificationDown, database.NotificationUp},
	}
	wantUp := []bool{true, false, false, true}

	for i := range wantKinds {
		outcomes, err := h.scheduler.CheckNow(context.Background())
		if err != nil {
			t.Fatalf("probe %d: CheckNow: %v", i+1, err)
		}
		if len(outcomes) != 1 || outcomes[0].IsUp != wantUp[i] {
			t.Fatalf("probe %d: unexpected outcomes %+v", i+1, outcomes)
		}

		var kinds []database.NotificationKind
		for _, n := range h.store.allNotifications() {
			kinds = append(kinds, n.Kind)
		}
		if len(kinds) != len(wantKinds[i]) {
			t.Fatalf("probe %d: notifications %v, want %v", i+1, kinds, wantKinds[i])
		}
		for j := range kinds {
			if kinds[j] != wantKinds[i][j] {
				t.Fatalf("probe %d: notifications %v, want %v", i+1, kinds, wantKinds[i])
			}
		}
	}

	if got := len(h.store.resultsFor(site.ID)); got != 4 {
		t.Fatalf("expected every probe recorded, got %d", got)
	}
}

func TestSweepFirstProbeIsBaselineEvenWhenDown(t *testing.T) {
	site := website("t", true)
	h := newHarness(site)
	h.prober.queue(site.URL, statusResult(500))

	if _, err := h.scheduler.CheckNow(context.Background()); err != nil {
		t.Fatalf("CheckNow: %v", err)
	}
	if n := len(h.store.allNotifications()); n != 0 {
		t.Fatalf("first probe must not notify, got %d notifications", n)
	}
}

func TestSweepNotificationsDisabledStillTracksState(t *testing.T) {
	site := website("quiet", false)
	h := newHarness(site)
	h.prober.queue(site.URL, statusResult(200), statusResult(500))

	for i := 0; i < 2; i++ {
		if _, err := h.scheduler.CheckNow(context.Background()); err != nil {
			t.Fatalf("CheckNow: %v", err)
		}
	}
	if n := len(h.store.allNotifications()); n != 0 {
		t.Fatalf("disabled website must not notify, got %d", n)
	}
	if got := len(h.store.resultsFor(site.ID)); got != 2 {
		t.Fatalf("results must still be recorded, got %d", got)
	}

	// Re-enabling notifications must not fire on the stale down state.
	h.store.mu.Lock()
	h.store.websites[0].EnableNotifications = true
	h.store.mu.Unlock()
	h.prober.queue(site.URL, statusResult(500))
	if _, err := h.scheduler.CheckNow(context.Background()); err != nil {
		t.Fatalf("CheckNow: %v", err)
	}
	if n := len(h.store.allNotifications()); n != 0 {
		t.Fatalf("no transition expected after re-enabling, got %d", n)
	}
}

func TestSweepIsolatesStoreFailure(t *testing.T) {
	a, b, c := website("a", true), website("b", true), website("c", true)
	h := newHarness(a, b, c)
	h.store.failResults["b"] = true

	outcomes, err := h.scheduler.CheckNow(context.Background())
	if err != nil {
		t.Fatalf("a per-website store failure must not fail the sweep: %v", err)
	}
	if len(outcomes) != 3 {
		t.Fatalf("expected an outcome per website, got %d", len(outcomes))
	}
	for i, id := range []string{"a", "b", "c"} {
		if outcomes[i].WebsiteID != id {
			t.Fatalf("outcomes out of registry order: %+v", outcomes)
		}
	}

	if len(h.store.resultsFor("a")) != 1 || len(h.store.resultsFor("c")) != 1 {
		t.Fatal("A and C results should be recorded")
	}
	if len(h.store.resultsFor("b")) != 0 {
		t.Fatal("B result should not be recorded")
	}
	if h.tracker.Len() != 2 {
		t.Fatalf("state should be evaluated for A and C only, tracked=%d", h.tracker.Len())
	}
}

func TestCheckNowRegistryFailure(t *testing.T) {
	h := newHarness(website("a", true))
	h.store.listErr = errors.New("registry offline")

	if _, err := h.scheduler.CheckNow(context.Background()); err == nil {
		t.Fatal("registry failure should surface to the caller")
	}
}

func TestCheckNowEmptyRegistry(t *testing.T) {
	h := newHarness()
	outcomes, err := h.scheduler.CheckNow(context.Background())
	if err != nil || len(outcomes) != 0 {
		t.Fatalf("expected empty result, got %v %v", outcomes, err)
	}
}

func TestCheckNowIgnoresCallerCancellation(t *testing.T) {
	h := newHarness(website("a", true))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcomes, err := h.scheduler.CheckNow(ctx)
	if err != nil || len(outcomes) != 1 {
		t.Fatalf("sweep should complete for a cancelled caller, got %v %v", outcomes, err)
	}
	if len(h.store.resultsFor("a")) != 1 {
		t.Fatal("result should still be recorded")
	}
}

func TestSchedulerStartIsIdempotent(t *testing.T) {
	h := newHarness(website("a", true))
	h.scheduler.interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := h.scheduler.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	first := h.scheduler.quit
	if err := h.scheduler.Start(ctx); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if h.scheduler.quit != first {
		t.Fatal("second Start must not launch another ticker")
	}
	if !h.scheduler.Running() {
		t.Fatal("scheduler should be running")
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(h.store.resultsFor("a")) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("periodic sweep never ran")
		}
		time.Sleep(5 * time.Millisecond)
	}

	h.scheduler.Stop()
	h.scheduler.Wait()
	if h.scheduler.Running() {
		t.Fatal("scheduler should be stopped")
	}
	stopped := len(h.store.resultsFor("a"))

	time.Sleep(50 * time.Millisecond)
	if got := len(h.store.resultsFor("a")); got != stopped {
		t.Fatalf("ticker kept running after Stop: %d -> %d results", stopped, got)
	}

	if _, err := h.scheduler.CheckNow(context.Background()); err != nil {
		t.Fatalf("CheckNow after Stop: %v", err)
	}
	if h.scheduler.Running() {
		t.Fatal("CheckNow must not restart the ticker")
	}
}

func TestSchedulerRestartsAfterContextCancel(t *testing.T) {
	h := newHarness(website("a", true))
	h.scheduler.interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	if err := h.scheduler.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for h.scheduler.Running() {
		if time.Now().After(deadline) {
			t.Fatal("scheduler still reports running after its context was cancelled")
		}
		time.Sleep(5 * time.Millisecond)
	}
	h.scheduler.Wait()
	before := len(h.store.resultsFor("a"))

	if err := h.scheduler.Start(context.Background()); err != nil {
		t.Fatalf("restart: %v", err)
	}
	defer func() {
		h.scheduler.Stop()
		h.scheduler.Wait()
	}()
	if !h.scheduler.Running() {
		t.Fatal("scheduler should be running after restart")
	}

	deadline = time.Now().Add(2 * time.Second)
	for len(h.store.resultsFor("a")) <= before {
		if time.Now().After(deadline) {
			t.Fatal("no periodic sweep ran after restart")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSweepBoundedWorkers(t *testing.T) {
	var sites []database.Website
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"} {
		sites = append(sites, website(id, false))
	}
	h := newHarness(sites...)
	h.scheduler.workers = 3

	outcomes, err := h.scheduler.CheckNow(context.Background())
	if err != nil {
		t.Fatalf("CheckNow: %v", err)
	}
	for i, site := range sites {
		if outcomes[i].WebsiteID != site.ID || outcomes[i].URL != site.URL {
			t.Fatalf("outcome %d does not match website %s: %+v", i, site.ID, outcomes[i])
		}
	}
}
