package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestServer(t *testing.T) (*httptest.Server, *memStore) {
	t.Helper()
	store := newMemStore()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	a := newAPI(store, log, nil)
	mux := http.NewServeMux()
	a.routes(mux)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts, store
}

// doJSON issues a request with an optional token and JSON body and decodes the
// response body into a generic map (nil for 204s).
func doJSON(t *testing.T, ts *httptest.Server, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, ts.URL+path, rd)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if len(raw) == 0 {
		return resp.StatusCode, nil
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		// list endpoints return arrays; wrap them for uniform access
		var arr []any
		if err2 := json.Unmarshal(raw, &arr); err2 != nil {
			t.Fatalf("decode %s %s: %v (%s)", method, path, err, raw)
		}
		return resp.StatusCode, map[string]any{"items": arr}
	}
	return resp.StatusCode, out
}

// newRequestWithToken builds a bare request carrying a token header, for unit
// tests that call handler internals directly.
func newRequestWithToken(t *testing.T, token string) *http.Request {
	t.Helper()
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Token "+token)
	return req
}

// newAuthedRequest builds a request with a raw Authorization header value, for
// tests that exercise header parsing directly.
func newAuthedRequest(t *testing.T, ts *httptest.Server, method, path, authorization string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(method, ts.URL+path, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", authorization)
	return req
}

// register creates an account through the API and returns its token and id.
func register(t *testing.T, ts *httptest.Server, email, fullname string) (string, int64) {
	t.Helper()
	status, body := doJSON(t, ts, "POST", "/api/registration/", "", map[string]any{
		"email":             email,
		"fullname":          fullname,
		"password":          "correct-horse",
		"repeated_password": "correct-horse",
	})
	if status != 201 {
		t.Fatalf("register %s: status %d body %v", email, status, body)
	}
	return body["token"].(string), int64(body["user_id"].(float64))
}

func wantStatus(t *testing.T, got, want int, body map[string]any) {
	t.Helper()
	if got != want {
		t.Fatalf("status = %d, want %d (body %v)", got, want, body)
	}
}

func wantField(t *testing.T, body map[string]any, field, msg string) {
	t.Helper()
	got, ok := body[field].(string)
	if !ok {
		t.Fatalf("missing field error %q in %v", field, body)
	}
	if got != msg {
		t.Fatalf("%s error = %q, want %q", field, got, msg)
	}
}
