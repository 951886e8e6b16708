package observability_test

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"campground_ingest/internal/adapters/observability"
)

func TestMetricsRegistryAndHandler(t *testing.T) {
	reg := observability.InitRegistry()

	// record samples so counters are non-zero
	observability.ObserveHTTP("/test", "GET", 200, 12*time.Millisecond)
	observability.ObserveRun("scheduled", "succeeded", time.Second, 2, 1, 0, 3)
	observability.ObserveRetry(503)

	mh := observability.MetricsHandler(reg)
	req := httptest.NewRequest("GET", "/metrics", nil)
	rr := httptest.NewRecorder()
	mh.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status: %d", rr.Code)
	}
	body, _ := io.ReadAll(rr.Body)
	out := string(body)
	for _, name := range []string{
		"campground_http_requests_total",
		"campground_ingest_runs_total",
		"campground_ingest_records_total",
		"campground_fetch_retries_total",
	} {
		if !strings.Contains(out, name) {
			t.Fatalf("expected %s in output", name)
		}
	}
}

func TestCronLogger_Error(t *testing.T) {
	var buf bytes.Buffer
	l := observability.CronLogger(zerolog.New(&buf))
	l.Error(errors.New("boom"), "panic", "stack", "trace")

	out := buf.String()
	if !strings.Contains(out, `"error":"boom"`) || !strings.Contains(out, `"stack":"trace"`) ||
		!strings.Contains(out, `"component":"scheduler"`) {
		t.Fatalf("unexpected log line: %s", out)
	}
}
