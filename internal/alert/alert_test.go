package alert

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSlackSinkPostsSeverityPrefixedMessage(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		body = string(b)
	}))
	defer srv.Close()

	sink := NewSlackSink(srv.URL, testLogger())
	sink.Notify(context.Background(), SeverityError, "run failed at stage rewrite")

	if !strings.Contains(body, ":rotating_light:") {
		t.Errorf("payload = %q, want error icon", body)
	}
	if !strings.Contains(body, "run failed at stage rewrite") {
		t.Errorf("payload = %q, want message text", body)
	}
}

func TestSlackSinkSwallowsDeliveryFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no", http.StatusInternalServerError)
	}))
	defer srv.Close()

	sink := NewSlackSink(srv.URL, testLogger())
	// Must not panic or propagate; failure is logged only.
	sink.Notify(context.Background(), SeverityWarning, "low article count")
}

func TestMemorySinkRecords(t *testing.T) {
	var sink MemorySink
	sink.Notify(context.Background(), SeverityWarning, "one")
	sink.Notify(context.Background(), SeverityError, "two")

	if len(sink.Alerts) != 2 {
		t.Fatalf("recorded %d alerts, want 2", len(sink.Alerts))
	}
	if sink.Alerts[1].Severity != SeverityError || sink.Alerts[1].Message != "two" {
		t.Errorf("second alert = %+v", sink.Alerts[1])
	}
}
