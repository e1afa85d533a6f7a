package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ads97/Veritas/internal/model"
	"github.com/Ads97/Veritas/internal/pipeline"
)

type stubRunner struct {
	got    model.Subject
	result *pipeline.Result
	err    error
	panics bool
}

func (s *stubRunner) Verify(ctx context.Context, subject model.Subject) (*pipeline.Result, error) {
	if s.panics {
		panic("boom")
	}
	s.got = subject
	return s.result, s.err
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestVerify_ReturnsVerdict(t *testing.T) {
	runner := &stubRunner{result: &pipeline.Result{
		RunID: "run-1",
		Verdict: model.Verdict{
			ClearOutcome:   true,
			ScamLikelihood: 0.25,
			Address:        "123 Main St",
			Reasons:        []model.Reason{{Tag: model.TagGood, Text: "County records list Jane A Doe as an owner"}},
			AnalyzedData:   []model.DataPoint{{Label: "Sources Analyzed", Value: "1"}},
		},
	}}
	h := New(runner, nil).Routes()

	rec := do(t, h, http.MethodPost, "/api/data",
		`{"name":"Jane Doe","address":"123 Main St","listing_url":"https://l.example.com/1","listed_rent":1200,"payment_method":"Zelle","extra":{"phone":"555-0100"}}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "run-1", rec.Header().Get("X-Run-ID"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	assert.Equal(t, "Jane Doe", runner.got.Name)
	assert.Equal(t, "https://l.example.com/1", runner.got.ListingURL)
	assert.Equal(t, map[string]string{"listed_rent": "1200", "payment_method": "Zelle", "phone": "555-0100"}, runner.got.Extra)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["clear_outcome"])
	assert.Equal(t, 0.25, body["scam_likelihood"])
	assert.Equal(t, []any{[]any{"good", "County records list Jane A Doe as an owner"}}, body["reasons"])
	assert.Equal(t, []any{[]any{"Sources Analyzed", "1"}}, body["analyzed_data"])
}

func TestVerify_BadRequests(t *testing.T) {
	h := New(&stubRunner{}, nil).Routes()

	tests := []struct {
		name string
		body string
	}{
		{"empty body", ""},
		{"not json", "name=jane"},
		{"missing address", `{"name":"Jane Doe"}`},
		{"extra not object", `{"name":"Jane Doe","address":"1 Main","extra":"x"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/data", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, false, body["success"])
			assert.Equal(t, "error", body["status"])
			assert.NotEmpty(t, body["message"])
			assert.NotEmpty(t, body["timestamp"])
		})
	}
}

func TestVerify_RunFailure(t *testing.T) {
	runner := &stubRunner{err: model.NewRunError(model.ErrRunFailed)}
	rec := do(t, New(runner, nil).Routes(), http.MethodPost, "/api/data", `{"name":"Jane Doe","address":"123 Main St"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body model.RunError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, model.ErrRunFailed.Error(), body.Message)
}

func TestVerify_Timeout(t *testing.T) {
	runner := &stubRunner{err: context.DeadlineExceeded}
	rec := do(t, New(runner, nil).Routes(), http.MethodPost, "/api/data", `{"name":"Jane Doe","address":"123 Main St"}`)
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
}

func TestPanicIsJSON(t *testing.T) {
	rec := do(t, New(&stubRunner{panics: true}, nil).Routes(), http.MethodPost, "/api/data", `{"name":"Jane Doe","address":"123 Main St"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `"success":false`)
}

func TestHealth(t *testing.T) {
	rec := do(t, New(&stubRunner{}, nil).Routes(), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy","message":"Server is running"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	rec := do(t, New(&stubRunner{}, nil).Routes(), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	rec := do(t, New(&stubRunner{}, nil).Routes(), http.MethodGet, "/api/data", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
