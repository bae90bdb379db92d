// internal/monitoring/prober.go
package monitoring

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"
	"time"

	"webmonitor/internal/notifications"
)

const DefaultProbeTimeout = 30 * time.Second

// ProbeResult is the classification of a single HTTP probe.
type ProbeResult struct {
	IsUp         bool
	StatusCode   *int
	ResponseTime *int64 // milliseconds
	Error        string
}

// Prober runs one probe against a URL. Failures are reported inside the
// result, never as an error.
type Prober interface {
	Probe(ctx context.Context, url string) ProbeResult
}

type HTTPProber struct {
	client  *http.Client
	timeout time.Duration
}

func NewHTTPProber(timeout time.Duration) *HTTPProber {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &HTTPProber{
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

// Probe issues a single GET. Anything below 500 counts as up, including 4xx:
// the server answered.
func (p *HTTPProber) Probe(ctx context.Context, url string) ProbeResult {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	elapsed := func() *int64 {
		ms := time.Since(start).Milliseconds()
		return &ms
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ProbeResult{IsUp: false, ResponseTime: elapsed(), Error: err.Error()}
	}
	req.Header.Set("User-Agent", notifications.UserAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return ProbeResult{IsUp: false, ResponseTime: elapsed(), Error: describeProbeError(err)}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	code := resp.StatusCode
	result := ProbeResult{
		IsUp:         code < 500,
		StatusCode:   &code,
		ResponseTime: elapsed(),
	}
	if !result.IsUp {
		result.Error = fmt.Sprintf("HTTP %d: %s", code, http.StatusText(code))
	}
	return result
}

// describeProbeError names the failure kind for network-level errors and
// falls back to the raw error text for everything else.
func describeProbeError(err error) string {
	var dnsErr *net.DNSError
	var netErr net.Error

	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		return fmt.Sprintf("Connection failed: timeout: %v", err)
	case errors.As(err, &dnsErr):
		return fmt.Sprintf("Connection failed: dns lookup: %v", err)
	case errors.Is(err, syscall.ECONNREFUSED):
		return fmt.Sprintf("Connection failed: connection refused: %v", err)
	default:
		return err.Error()
	}
}
