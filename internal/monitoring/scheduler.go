// internal/monitoring/scheduler.go
package monitoring

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"webmonitor/internal/database"
	"webmonitor/internal/metrics"
)

const (
	DefaultSweepInterval = 60 * time.Second
	DefaultWorkers       = 8

	triggerPeriodic = "periodic"
	triggerManual   = "manual"
)

// Scheduler runs sweeps over every registered website, either on a ticker or
// on demand. Sweeps may overlap; per-website state is serialized by the
// StateTracker.
type Scheduler struct {
	registry database.Registry
	pipeline *Pipeline
	metrics  *metrics.Collector
	interval time.Duration
	workers  int

	mu      sync.Mutex
	running bool
	quit    chan struct{}
	done    chan struct{}
	sweeps  sync.WaitGroup
}

type sweepResult struct {
	index   int
	outcome ProbeOutcome
	err     error
}

func NewScheduler(registry database.Registry, pipeline *Pipeline, collector *metrics.Collector, interval time.Duration, workers int) *Scheduler {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Scheduler{
		registry: registry,
		pipeline: pipeline,
		metrics:  collector,
		interval: interval,
		workers:  workers,
	}
}

// Start launches the periodic ticker. Calling it while running is a no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeLocked() {
		return nil
	}

	s.running = true
	s.quit = make(chan struct{})
	s.done = make(chan struct{})
	logrus.WithFields(logrus.Fields{
		"interval": s.interval,
		"workers":  s.workers,
	}).Info("Starting scheduler")

	go s.scheduleSweeps(ctx, s.quit, s.done)
	return nil
}

// Stop halts the ticker. Sweeps already in flight run to completion.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	if !s.activeLocked() {
		// The ticker already exited with its context.
		s.running = false
		return
	}

	logrus.Info("Stopping scheduler")
	s.running = false
	close(s.quit)
	<-s.done
}

// Running reports whether the periodic ticker is live. A ticker whose
// context was cancelled counts as stopped.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeLocked()
}

func (s *Scheduler) activeLocked() bool {
	if !s.running {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

// Wait blocks until periodic sweeps that are still in flight have finished.
func (s *Scheduler) Wait() {
	s.sweeps.Wait()
}

// CheckNow runs one sweep synchronously and returns an outcome per website in
// registry order. It works whether or not the ticker is running. Only a
// registry failure is returned as an error.
func (s *Scheduler) CheckNow(ctx context.Context) ([]ProbeOutcome, error) {
	return s.sweep(context.WithoutCancel(ctx), triggerManual)
}

func (s *Scheduler) scheduleSweeps(ctx context.Context, quit <-chan struct{}, done chan<- struct{}) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	defer close(done)

	sweepCtx := context.WithoutCancel(ctx)
	for {
		select {
		case <-ctx.Done():
			logrus.Info("Scheduler context cancelled, ticker stopped")
			return
		case <-quit:
			return
		case <-ticker.C:
			s.sweeps.Add(1)
			go func() {
				defer s.sweeps.Done()
				if _, err := s.sweep(sweepCtx, triggerPeriodic); err != nil {
					logrus.WithError(err).Error("Periodic sweep failed")
				}
			}()
		}
	}
}

func (s *Scheduler) sweep(ctx context.Context, trigger string) ([]ProbeOutcome, error) {
	start := time.Now()

	sites, err := s.registry.ListWebsites(ctx)
	if err != nil {
		s.metrics.RecordPipelineError("registry")
		return nil, fmt.Errorf("failed to list websites: %w", err)
	}

	outcomes := make([]ProbeOutcome, len(sites))
	if len(sites) == 0 {
		s.metrics.RecordSweep(trigger, time.Since(start))
		return outcomes, nil
	}

	workerCount := s.workers
	if workerCount > len(sites) {
		workerCount = len(sites)
	}

	jobs := make(chan int)
	results := make(chan sweepResult, len(sites))

	var wg sync.WaitGroup
	wg.Add(workerCount)
	for i := 0; i < workerCount; i++ {
		go func() {
			defer wg.Done()
			for idx := range jobs {
				outcome, err := s.pipeline.Run(ctx, sites[idx])
				results <- sweepResult{index: idx, outcome: outcome, err: err}
			}
		}()
	}

	go func() {
		for idx := range sites {
			jobs <- idx
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	failed, down := 0, 0
	for r := range results {
		outcomes[r.index] = r.outcome
		if r.err != nil {
			failed++
		}
		if !r.outcome.IsUp {
			down++
		}
	}

	duration := time.Since(start)
	s.metrics.RecordSweep(trigger, duration)
	logrus.WithFields(logrus.Fields{
		"trigger":  trigger,
		"websites": len(sites),
		"down":     down,
		"failed":   failed,
		"duration": duration,
	}).Debug("Sweep completed")

	return outcomes, nil
}
