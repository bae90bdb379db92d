package monitoring

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func statusServer(t *testing.T, code int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(code)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPProberClassificationBoundary(t *testing.T) {
	prober := NewHTTPProber(5 * time.Second)

	tests := []struct {
		code    int
		wantUp  bool
		wantErr string
	}{
		{code: 200, wantUp: true},
		{code: 404, wantUp: true},
		{code: 499, wantUp: true},
		{code: 500, wantUp: false, wantErr: "HTTP 500: Internal Server Error"},
		{code: 503, wantUp: false, wantErr: "HTTP 503: Service Unavailable"},
	}

	for _, tt := range tests {
		srv := statusServer(t, tt.code)
		result := prober.Probe(context.Background(), srv.URL)

		if result.IsUp != tt.wantUp {
			t.Errorf("status %d: IsUp = %v, want %v", tt.code, result.IsUp, tt.wantUp)
		}
		if result.StatusCode == nil || *result.StatusCode != tt.code {
			t.Errorf("status %d: unexpected status code %v", tt.code, result.StatusCode)
		}
		if result.Error != tt.wantErr {
			t.Errorf("status %d: Error = %q, want %q", tt.code, result.Error, tt.wantErr)
		}
		if result.ResponseTime == nil {
			t.Errorf("status %d: response time not measured", tt.code)
		}
	}
}

func TestHTTPProberTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	prober := NewHTTPProber(100 * time.Millisecond)
	result := prober.Probe(context.Background(), srv.URL)

	if result.IsUp {
		t.Fatal("timed out probe must be down")
	}
	if result.StatusCode != nil {
		t.Fatalf("no status code expected, got %d", *result.StatusCode)
	}
	if !strings.HasPrefix(result.Error, "Connection failed: timeout") {
		t.Fatalf("unexpected error description %q", result.Error)
	}
	if result.ResponseTime == nil || *result.ResponseTime < 100 {
		t.Fatalf("expected elapsed time of at least the timeout, got %v", result.ResponseTime)
	}
}

func TestHTTPProberConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	result := NewHTTPProber(time.Second).Probe(context.Background(), url)
	if result.IsUp {
		t.Fatal("refused connection must be down")
	}
	if !strings.HasPrefix(result.Error, "Connection failed: connection refused") {
		t.Fatalf("unexpected error description %q", result.Error)
	}
}

func TestHTTPProberInvalidURL(t *testing.T) {
	result := NewHTTPProber(time.Second).Probe(context.Background(), "://missing-scheme")
	if result.IsUp || result.Error == "" {
		t.Fatalf("expected down result with raw error, got %+v", result)
	}
	if strings.HasPrefix(result.Error, "Connection failed") {
		t.Fatalf("malformed URL is not a network failure: %q", result.Error)
	}
}
