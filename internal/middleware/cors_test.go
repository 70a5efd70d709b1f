package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func runCORS(origins []string, method, origin string) *httptest.ResponseRecorder {
	handler := CORS(origins)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	req := httptest.NewRequest(method, "/api/chat", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestCORSAllowedOrigin(t *testing.T) {
	rec := runCORS([]string{"https://logs.example.com"}, http.MethodPost, "https://logs.example.com")

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://logs.example.com" {
		t.Errorf("Allow-Origin = %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("Allow-Credentials = %q", got)
	}
	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want pass-through", rec.Code)
	}
}

func TestCORSUnknownOrigin(t *testing.T) {
	rec := runCORS([]string{"https://logs.example.com"}, http.MethodPost, "https://evil.example.com")

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Allow-Origin = %q, want unset", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "" {
		t.Errorf("Allow-Credentials = %q, want unset", got)
	}
}

func TestCORSWildcardWhenUnconfigured(t *testing.T) {
	rec := runCORS(nil, http.MethodPost, "https://anywhere.example.com")

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin = %q, want *", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "" {
		t.Errorf("Allow-Credentials = %q, want unset with wildcard", got)
	}
}

func TestCORSPreflightShortCircuits(t *testing.T) {
	rec := runCORS([]string{"https://logs.example.com"}, http.MethodOptions, "https://logs.example.com")

	if rec.Code != http.StatusOK {
		t.Errorf("preflight status = %d, want 200", rec.Code)
	}
}

func TestCORSNoOriginHeader(t *testing.T) {
	rec := runCORS([]string{"https://logs.example.com"}, http.MethodGet, "")

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Allow-Origin = %q for a same-origin request", got)
	}
	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want pass-through", rec.Code)
	}
}
