package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSessionLifecycle(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.SessionStarted()
	m.SessionStarted()
	m.SessionEnded()
	m.Failed("auth")
	m.Redirected()
	m.Relayed(10, 20)

	if got := testutil.ToFloat64(m.SessionsActive); got != 1 {
		t.Fatalf("active: expected 1 got %v", got)
	}
	if got := testutil.ToFloat64(m.SessionsTotal); got != 2 {
		t.Fatalf("total: expected 2 got %v", got)
	}
	if got := testutil.ToFloat64(m.SessionFailures.WithLabelValues("auth")); got != 1 {
		t.Fatalf("auth failures: expected 1 got %v", got)
	}
	if got := testutil.ToFloat64(m.SniffRedirects); got != 1 {
		t.Fatalf("redirects: expected 1 got %v", got)
	}
	if got := testutil.ToFloat64(m.RelayedBytes.WithLabelValues("downstream")); got != 20 {
		t.Fatalf("downstream bytes: expected 20 got %v", got)
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.SessionStarted()
	m.SessionEnded()
	m.Failed("greeting")
	m.Redirected()
	m.Relayed(1, 1)
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.SessionStarted()

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(body), "socks5_sessions_total 1") {
		t.Fatalf("metric missing from output:\n%s", body)
	}
}
