package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCounts(t *testing.T) {
	r := New()
	r.ShiftOperation("open", OutcomeOK)
	r.ShiftOperation("open", OutcomeConflict)
	r.ShiftOperation("open", OutcomeConflict)
	r.DayClose(OutcomeOK)
	r.AggregationDegraded("shift")

	if got := testutil.ToFloat64(r.shiftOps.WithLabelValues("open", OutcomeConflict)); got != 2 {
		t.Fatalf("expected 2 conflicting opens, got %v", got)
	}
	if got := testutil.ToFloat64(r.dayCloses.WithLabelValues(OutcomeOK)); got != 1 {
		t.Fatalf("expected 1 day close, got %v", got)
	}
	if got := testutil.ToFloat64(r.degradations.WithLabelValues("shift")); got != 1 {
		t.Fatalf("expected 1 degradation, got %v", got)
	}
}

func TestNilRecorderIsSafe(t *testing.T) {
	var r *Recorder
	r.ShiftOperation("close", OutcomeOK)
	r.DayClose(OutcomeError)
	r.UnpaidRejection()
	r.AggregationDegraded("day")
	r.CashVariance("shift", 10)
	r.LedgerEntry("created")

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 from nil recorder handler, got %d", rec.Code)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	r := New()
	r.LedgerEntry("payment_mode_changed")

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "totalhealth_payment_ledger_entries_total") {
		t.Fatalf("expected ledger counter in exposition output")
	}
}
