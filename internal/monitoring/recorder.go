// internal/monitoring/recorder.go
package monitoring

import (
	"context"
	"fmt"

	"webmonitor/internal/database"
)

// ProbeOutcome is one probe result tied to the website it was taken for.
type ProbeOutcome struct {
	WebsiteID    string `json:"website_id"`
	URL          string `json:"url"`
	IsUp         bool   `json:"is_up"`
	StatusCode   *int   `json:"status_code,omitempty"`
	ResponseTime *int64 `json:"response_time_ms,omitempty"`
	Error        string `json:"error,omitempty"`
}

func newProbeOutcome(site database.Website, result ProbeResult) ProbeOutcome {
	return ProbeOutcome{
		WebsiteID:    site.ID,
		URL:          site.URL,
		IsUp:         result.IsUp,
		StatusCode:   result.StatusCode,
		ResponseTime: result.ResponseTime,
		Error:        result.Error,
	}
}

// ResultRecorder persists probe outcomes. The store assigns id and timestamp.
type ResultRecorder struct {
	store database.ResultStore
}

func NewResultRecorder(store database.ResultStore) *ResultRecorder {
	return &ResultRecorder{store: store}
}

func (r *ResultRecorder) Record(ctx context.Context, outcome ProbeOutcome) (*database.MonitoringResult, error) {
	result := &database.MonitoringResult{
		WebsiteID:    outcome.WebsiteID,
		StatusCode:   outcome.StatusCode,
		ResponseTime: outcome.ResponseTime,
		IsUp:         outcome.IsUp,
		Error:        outcome.Error,
	}
	if err := r.store.CreateMonitoringResult(ctx, result); err != nil {
		return nil, fmt.Errorf("failed to record result for %s: %w", outcome.WebsiteID, err)
	}
	return result, nil
}
