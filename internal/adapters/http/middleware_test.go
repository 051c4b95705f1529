package httpadapter

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRecoverMiddlewareReturns500(t *testing.T) {
	panicking := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
	handler := accessLogMiddleware(recoverMiddleware(panicking))

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/v1/claims/process", nil))

	if res.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "internal error") {
		t.Fatalf("unexpected body: %s", res.Body.String())
	}
}

func TestRecoverMiddlewareKeepsWrittenStatus(t *testing.T) {
	partial := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		panic("late failure")
	})
	handler := accessLogMiddleware(recoverMiddleware(partial))

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/v1/claims", nil))

	if res.Code != http.StatusAccepted {
		t.Fatalf("expected original status to survive, got %d", res.Code)
	}
	if res.Body.Len() != 0 {
		t.Fatalf("expected no error body after headers were sent, got %q", res.Body.String())
	}
}

func TestRequestIDReplacesOversizedHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, strings.Repeat("x", 200))
	res := httptest.NewRecorder()
	newTestHandler(testConfig()).ServeHTTP(res, req)

	got := res.Header().Get(requestIDHeader)
	if got == "" || len(got) > 128 {
		t.Fatalf("expected generated request id, got %q", got)
	}
}

func TestClaimIDFromPath(t *testing.T) {
	tests := map[string]string{
		"/v1/claims/abc":             "abc",
		"/v1/claims/abc/report.xlsx": "abc",
		"/v1/claims/process":         "",
		"/v1/claims":                 "",
		"/healthz":                   "",
	}
	for path, want := range tests {
		if got := claimIDFromPath(path); got != want {
			t.Fatalf("claimIDFromPath(%q) = %q, want %q", path, got, want)
		}
	}
}
