// internal/monitoring/pipeline.go
package monitoring

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"webmonitor/internal/database"
	"webmonitor/internal/metrics"
)

// EventSink receives live events from sweeps, e.g. the websocket hub.
type EventSink interface {
	ProbeCompleted(outcome ProbeOutcome)
	NotificationCreated(n database.Notification)
}

// Pipeline runs probe, record, state check and dispatch for one website, in
// that order.
type Pipeline struct {
	prober     Prober
	recorder   *ResultRecorder
	tracker    *StateTracker
	dispatcher *NotificationDispatcher
	metrics    *metrics.Collector

	sinkMu sync.RWMutex
	sink   EventSink
}

func NewPipeline(prober Prober, recorder *ResultRecorder, tracker *StateTracker, dispatcher *NotificationDispatcher, collector *metrics.Collector) *Pipeline {
	return &Pipeline{
		prober:     prober,
		recorder:   recorder,
		tracker:    tracker,
		dispatcher: dispatcher,
		metrics:    collector,
	}
}

func (p *Pipeline) SetEventSink(sink EventSink) {
	p.sinkMu.Lock()
	p.sink = sink
	p.sinkMu.Unlock()
}

func (p *Pipeline) eventSink() EventSink {
	p.sinkMu.RLock()
	defer p.sinkMu.RUnlock()
	return p.sink
}

// Run always returns the outcome. The error is set when the result could not
// be recorded, in which case state and notifications are skipped.
func (p *Pipeline) Run(ctx context.Context, site database.Website) (ProbeOutcome, error) {
	start := time.Now()
	result := p.prober.Probe(ctx, site.URL)
	outcome := newProbeOutcome(site, result)
	p.metrics.RecordProbe(site.Name, outcome.IsUp, time.Since(start))

	logger := logrus.WithFields(logrus.Fields{
		"website": site.Name,
		"url":     site.URL,
		"is_up":   outcome.IsUp,
	})

	if _, err := p.recorder.Record(ctx, outcome); err != nil {
		p.metrics.RecordPipelineError("record")
		logger.WithError(err).Error("Failed to store monitoring result")
		return outcome, err
	}

	sink := p.eventSink()
	if sink != nil {
		sink.ProbeCompleted(outcome)
	}

	transition := p.tracker.Observe(site.ID, outcome.IsUp)
	if transition == NoTransition {
		logger.Debug("Probe completed")
		return outcome, nil
	}

	logger.WithField("transition", transition.String()).Info("Website state changed")
	if !site.EnableNotifications {
		return outcome, nil
	}

	n, err := p.dispatcher.Dispatch(ctx, site, transition, outcome.Error)
	if err != nil {
		p.metrics.RecordPipelineError("notify")
		logger.WithError(err).Error("Failed to dispatch notification")
		return outcome, nil
	}
	if sink != nil && n != nil {
		sink.NotificationCreated(*n)
	}
	return outcome, nil
}
