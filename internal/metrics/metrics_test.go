package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Ads97/Veritas/internal/model"
)

func TestMiddleware_RecordsRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Post("/api/data", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/data", http.NoBody)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rr.Code)
	}

	got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("POST", "/api/data", "202"))
	if got < 1 {
		t.Errorf("expected http_requests_total >= 1, got %f", got)
	}
}

func TestStatus(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "success"},
		{fmt.Errorf("x: %w", model.ErrNotFound), "not_found"},
		{model.NewSchemaError("openai", "judge", errors.New("bad")), "schema_error"},
		{model.NewTransportError("serper", "search", 500, errors.New("boom")), "transport_error"},
		{model.ErrAmbiguousAddress, "ambiguous"},
		{errors.New("other"), "error"},
	}
	for _, tt := range tests {
		if got := Status(tt.err); got != tt.want {
			t.Errorf("Status(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}

func TestObserveHelpers(t *testing.T) {
	before := testutil.ToFloat64(ProviderRequestsTotal.WithLabelValues("serper", "search", "success"))
	ObserveProvider("serper", "search", time.Now(), nil)
	after := testutil.ToFloat64(ProviderRequestsTotal.WithLabelValues("serper", "search", "success"))
	if after != before+1 {
		t.Errorf("provider counter did not increase: %f -> %f", before, after)
	}

	ObserveCache("search", true)
	if testutil.ToFloat64(CacheTotal.WithLabelValues("search", "hit")) < 1 {
		t.Error("cache hit not recorded")
	}

	ObserveClaims([]model.Claim{{Dimension: model.DimensionFraudReport, Polarity: model.PolarityContradicts}})
	if testutil.ToFloat64(ClaimsTotal.WithLabelValues("fraud_report", "contradicts")) < 1 {
		t.Error("claim not recorded")
	}

	ObserveVerdict(&model.Verdict{ClearOutcome: true, ScamLikelihood: 0.2})
	if testutil.ToFloat64(RunsTotal.WithLabelValues("clear")) < 1 {
		t.Error("run not recorded")
	}
}

func TestRegisterIsIdempotent(t *testing.T) {
	Register()
	Register()
}
