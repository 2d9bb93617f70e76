package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollector_RecordSynthesis(t *testing.T) {
	c := NewCollector("test", prometheus.NewRegistry())

	c.RecordSynthesis("fake", StatusOK, 100*time.Millisecond)
	c.RecordSynthesis("fake", StatusRetry, 50*time.Millisecond)
	c.RecordSynthesis("fake", StatusOK, 80*time.Millisecond)

	if got := testutil.ToFloat64(c.synthRequestsTotal.WithLabelValues("fake", StatusOK)); got != 2 {
		t.Errorf("ok count = %v, want 2", got)
	}
	if got := testutil.CollectAndCount(c.synthRequestsTotal); got != 2 {
		t.Errorf("expected 2 label combinations, got %d", got)
	}
}

func TestCollector_RetriesAndFillers(t *testing.T) {
	c := NewCollector("test", nil)
	c.RecordRetry("invalid_text")
	c.RecordRetry("invalid_text")
	c.RecordFiller()
	c.RecordCacheHit()

	if got := testutil.ToFloat64(c.synthRetriesTotal.WithLabelValues("invalid_text")); got != 2 {
		t.Errorf("retries = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.fillersTotal); got != 1 {
		t.Errorf("fillers = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.cacheHitsTotal); got != 1 {
		t.Errorf("cache hits = %v, want 1", got)
	}
}

func TestCollector_NilIsNoop(t *testing.T) {
	var c *Collector
	c.RecordSynthesis("fake", StatusOK, time.Second)
	c.RecordRetry("x")
	c.RecordFiller()
	c.RecordCacheHit()
	c.RecordIntroTier("dynamic")
	c.RecordRun(StatusSuccess, time.Second, time.Second)
	if err := c.WriteTextfile("/nonexistent/x.prom"); err != nil {
		t.Errorf("nil collector should not write: %v", err)
	}
}

func TestCollector_WriteTextfile(t *testing.T) {
	c := NewCollector("podvoice", nil)
	c.RecordIntroTier("static")
	c.RecordRun(StatusSuccess, 3*time.Second, 90*time.Second)

	path := filepath.Join(t.TempDir(), "podvoice.prom")
	if err := c.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		`podvoice_intro_compositions_total{tier="static"} 1`,
		`podvoice_runs_total{status="success"} 1`,
		`podvoice_audio_output_seconds_total 90`,
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("textfile missing %q:\n%s", want, data)
		}
	}
}
