package monitoring

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"webmonitor/internal/config"
	"webmonitor/internal/database"
	"webmonitor/internal/metrics"
	"webmonitor/internal/notifications"
)

var errStoreDown = errors.New("store unavailable")

// memoryStore is an in-memory registry plus result and notification store.
type memoryStore struct {
	mu            sync.Mutex
	websites      []database.Website
	results       []database.MonitoringResult
	notifications map[string]*database.Notification
	order         []string
	failResults   map[string]bool
	listErr       error
	seq           int
}

func newMemoryStore(sites ...database.Website) *memoryStore {
	return &memoryStore{
		websites:      sites,
		notifications: make(map[string]*database.Notification),
		failResults:   make(map[string]bool),
	}
}

func (s *memoryStore) ListWebsites(ctx context.Context) ([]database.Website, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	return append([]database.Website(nil), s.websites...), nil
}

func (s *memoryStore) CreateMonitoringResult(ctx context.Context, result *database.MonitoringResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failResults[result.WebsiteID] {
		return errStoreDown
	}
	s.seq++
	result.ID = fmt.Sprintf("result-%d", s.seq)
	result.CheckedAt = time.Now()
	s.results = append(s.results, *result)
	return nil
}

func (s *memoryStore) GetMonitoringResults(ctx context.Context, filters database.ResultFilters) ([]database.MonitoringResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []database.MonitoringResult
	for _, r := range s.results {
		if filters.WebsiteID == "" || r.WebsiteID == filters.WebsiteID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memoryStore) GetLatestMonitoringResults(ctx context.Context) ([]database.MonitoringResult, error) {
	return nil, nil
}

func (s *memoryStore) CreateNotification(ctx context.Context, n *database.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	n.ID = fmt.Sprintf("notification-%d", s.seq)
	n.CreatedAt = time.Now()
	n.EmailSent = false
	n.SMSSent = false
	stored := *n
	s.notifications[n.ID] = &stored
	s.order = append(s.order, n.ID)
	return nil
}

func (s *memoryStore) MarkEmailSent(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok {
		return database.ErrNotificationNotFound
	}
	n.EmailSent = true
	return nil
}

func (s *memoryStore) MarkSMSSent(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok {
		return database.ErrNotificationNotFound
	}
	n.SMSSent = true
	return nil
}

func (s *memoryStore) GetNotifications(ctx context.Context, limit int) ([]database.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]database.Notification, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.notifications[id])
	}
	return out, nil
}

func (s *memoryStore) allNotifications() []database.Notification {
	list, _ := s.GetNotifications(context.Background(), 0)
	return list
}

func (s *memoryStore) resultsFor(id string) []database.MonitoringResult {
	list, _ := s.GetMonitoringResults(context.Background(), database.ResultFilters{WebsiteID: id})
	return list
}

// scriptedProber replays queued results per URL, then reports 200.
type scriptedProber struct {
	mu     sync.Mutex
	script map[string][]ProbeResult
	calls  map[string]int
}

func newScriptedProber() *scriptedProber {
	return &scriptedProber{script: make(map[string][]ProbeResult), calls: make(map[string]int)}
}

func (p *scriptedProber) queue(url string, results ...ProbeResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.script[url] = append(p.script[url], results...)
}

func (p *scriptedProber) Probe(ctx context.Context, url string) ProbeResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls[url]++
	queued := p.script[url]
	if len(queued) == 0 {
		return statusResult(200)
	}
	p.script[url] = queued[1:]
	return queued[0]
}

func statusResult(code int) ProbeResult {
	ms := int64(12)
	return ProbeResult{IsUp: code < 500, StatusCode: &code, ResponseTime: &ms}
}

func refusedResult() ProbeResult {
	ms := int64(3)
	return ProbeResult{IsUp: false, ResponseTime: &ms, Error: "Connection failed: connection refused: dial tcp 127.0.0.1:1"}
}

type fakeMailer struct {
	mu     sync.Mutex
	result bool
	sent   []notifications.EmailMessage
}

func (m *fakeMailer) Send(ctx context.Context, msg notifications.EmailMessage) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return m.result
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type fakeSMS struct {
	mu     sync.Mutex
	result bool
	to     []string
	bodies []string
}

func (f *fakeSMS) Send(ctx context.Context, to, body string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.to = append(f.to, to)
	f.bodies = append(f.bodies, body)
	return f.result
}

func (f *fakeSMS) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.bodies)
}

type staticSettings struct {
	settings config.ChannelSettings
	err      error
	reads    int
	mu       sync.Mutex
}

func (s *staticSettings) ChannelSettings(ctx context.Context) (config.ChannelSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	return s.settings, s.err
}

func allChannels() *staticSettings {
	return &staticSettings{settings: config.ChannelSettings{
		EmailEnabled:   true,
		EmailFrom:      "alerts@example.com",
		EmailTo:        "ops@example.com",
		SMSEnabled:     true,
		SMSPhoneNumber: "+15550100",
	}}
}

type harness struct {
	store      *memoryStore
	prober     *scriptedProber
	mailer     *fakeMailer
	sms        *fakeSMS
	settings   *staticSettings
	tracker    *StateTracker
	dispatcher *NotificationDispatcher
	pipeline   *Pipeline
	scheduler  *Scheduler
}

func newHarness(sites ...database.Website) *harness {
	h := &harness{
		store:    newMemoryStore(sites...),
		prober:   newScriptedProber(),
		mailer:   &fakeMailer{result: true},
		sms:      &fakeSMS{result: true},
		settings: allChannels(),
		tracker:  NewStateTracker(NewMemoryStateStore()),
	}
	collector := metrics.NewCollector(h.store)
	h.dispatcher = NewNotificationDispatcher(h.store, h.settings, h.mailer, h.sms, collector)
	h.pipeline = NewPipeline(h.prober, NewResultRecorder(h.store), h.tracker, h.dispatcher, collector)
	h.scheduler = NewScheduler(h.store, h.pipeline, collector, time.Hour, 4)
	return h
}

func website(id string, notify bool) database.Website {
	return database.Website{
		ID:                  id,
		Name:                "Site " + id,
		URL:                 "https://" + id + ".example.com",
		CheckInterval:       5,
		EnableNotifications: notify,
	}
}
