package monitoring

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"webmonitor/internal/config"
	"webmonitor/internal/database"
	"webmonitor/internal/metrics"
)

func newTestEngine(t *testing.T, sites ...config.WebsiteConfig) (*Engine, *database.BoltStore) {
	t.Helper()
	store, err := database.NewBoltStore(filepath.Join(t.TempDir(), "engine.db"))
	if err != nil {
		t.Fatalf("NewBoltStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	disabled := false
	cfg := &config.Config{
		Server:     config.ServerConfig{Workers: 2},
		Database:   config.DatabaseConfig{CleanupInterval: time.Hour, HistoryRetention: 24 * time.Hour},
		Monitoring: config.MonitoringConfig{SweepInterval: time.Hour, Timeout: 2 * time.Second},
		Notifications: config.NotificationConfig{
			Email: config.EmailConfig{Enabled: &disabled},
		},
		Websites: sites,
	}

	engine, err := NewEngine(cfg, store, metrics.NewCollector(store))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return engine, store
}

func TestEngineSyncsSeedWebsitesAndChecks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	engine, store := newTestEngine(t, config.WebsiteConfig{ID: "home", Name: "Home", URL: srv.URL, CheckInterval: 5})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := engine.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer engine.Stop()

	site, err := store.GetWebsite(ctx, "home")
	if err != nil {
		t.Fatalf("seed website not created: %v", err)
	}
	if !site.EnableNotifications {
		t.Fatal("notifications should default to enabled for seeded websites")
	}

	outcomes, err := engine.CheckNow(ctx)
	if err != nil {
		t.Fatalf("CheckNow: %v", err)
	}
	if len(outcomes) != 1 || !outcomes[0].IsUp || *outcomes[0].StatusCode != http.StatusNoContent {
		t.Fatalf("unexpected outcomes: %+v", outcomes)
	}

	latest, err := store.GetLatestMonitoringResults(ctx)
	if err != nil || len(latest) != 1 {
		t.Fatalf("expected one latest result, got %v %v", latest, err)
	}
	if engine.TrackedWebsites() != 1 {
		t.Fatalf("expected tracked state for the website, got %d", engine.TrackedWebsites())
	}

	engine.ForgetWebsite(site)
	if engine.TrackedWebsites() != 0 {
		t.Fatal("ForgetWebsite should drop tracked state")
	}
}

func TestEngineStartSyncFailureLeavesEngineStopped(t *testing.T) {
	engine, store := newTestEngine(t, config.WebsiteConfig{ID: "home", Name: "Home", URL: "https://example.com", CheckInterval: 5})
	store.Close()

	if err := engine.Start(context.Background()); err == nil {
		t.Fatal("expected Start to fail when the store is closed")
	}
	if engine.IsRunning() {
		t.Fatal("engine must not report running after a failed start")
	}
}

func TestEngineReportsStoppedAfterContextCancel(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())

	if err := engine.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !engine.IsRunning() {
		t.Fatal("engine should be running")
	}
	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for engine.IsRunning() {
		if time.Now().After(deadline) {
			t.Fatal("engine still running after its context was cancelled")
		}
		time.Sleep(5 * time.Millisecond)
	}

	restartCtx, stopRestart := context.WithCancel(context.Background())
	defer stopRestart()
	if err := engine.Start(restartCtx); err != nil {
		t.Fatalf("restart: %v", err)
	}
	defer engine.Stop()
	if !engine.IsRunning() {
		t.Fatal("engine should run again after restart")
	}
}

func TestEngineTransitionUsesStoredSettings(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusOK)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(status.Load()))
	}))
	defer srv.Close()

	engine, store := newTestEngine(t, config.WebsiteConfig{ID: "api", Name: "API", URL: srv.URL, CheckInterval: 1})
	ctx := context.Background()
	if err := engine.syncWebsites(ctx); err != nil {
		t.Fatalf("syncWebsites: %v", err)
	}

	if _, err := engine.CheckNow(ctx); err != nil {
		t.Fatalf("CheckNow: %v", err)
	}
	status.Store(http.StatusBadGateway)
	if _, err := engine.CheckNow(ctx); err != nil {
		t.Fatalf("CheckNow: %v", err)
	}

	list, err := store.GetNotifications(ctx, 10)
	if err != nil {
		t.Fatalf("GetNotifications: %v", err)
	}
	if len(list) != 1 || list[0].Kind != database.NotificationDown || list[0].Message != "API is down" {
		t.Fatalf("unexpected notifications: %+v", list)
	}
	if list[0].EmailSent || list[0].SMSSent {
		t.Fatalf("channels are disabled, flags must stay false: %+v", list[0])
	}
}

func TestMaintenancePrunesRemovedWebsites(t *testing.T) {
	h := newHarness(website("a", true))
	h.tracker.Observe("a", true)
	h.tracker.Observe("gone", true)

	m := NewMaintenance(h.store, nil, h.tracker, metrics.NewCollector(h.store), 0)
	if err := m.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if h.tracker.Len() != 1 {
		t.Fatalf("expected only the registered website to remain, got %d", h.tracker.Len())
	}
}

func TestMaintenancePurgesHistory(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	if err := store.CreateMonitoringResult(ctx, &database.MonitoringResult{WebsiteID: "a", IsUp: true}); err != nil {
		t.Fatalf("CreateMonitoringResult: %v", err)
	}

	engine.Maintenance().retention = time.Nanosecond
	time.Sleep(time.Millisecond)
	deleted, err := engine.Maintenance().PurgeHistory(ctx)
	if err != nil {
		t.Fatalf("PurgeHistory: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 purged result, got %d", deleted)
	}
}
