package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type api struct {
	store Store
	log   *slog.Logger
	// tokens caches token lookups in redis; nil when redis is not configured
	tokens *tokenCache
	// rate limiting buckets per IP:key
	rlMu sync.Mutex
	rl   map[string]*rateBucket
}

func newAPI(store Store, log *slog.Logger, tokens *tokenCache) *api {
	return &api{store: store, log: log, tokens: tokens, rl: map[string]*rateBucket{}}
}

type rateBucket struct {
	count   int
	resetAt time.Time
}

func (a *api) allow(ip, key string, max int, window time.Duration) bool {
	now := time.Now()
	rk := ip + ":" + key
	a.rlMu.Lock()
	b, ok := a.rl[rk]
	if !ok || now.After(b.resetAt) {
		b = &rateBucket{count: 0, resetAt: now.Add(window)}
		a.rl[rk] = b
	}
	if b.count >= max {
		a.rlMu.Unlock()
		return false
	}
	b.count++
	a.rlMu.Unlock()
	return true
}

func (a *api) withRateLimit(name string, max int, window time.Duration, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if !a.allow(ip, name, max, window) {
			writeDetail(w, 429, "Too many requests.")
			return
		}
		next(w, r)
	}
}

func parseID(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) }

func readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, r.Body)
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(v)
}

// writeDetail emits the non-field failure shape: {"detail": msg}.
func writeDetail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"detail": msg})
}

// writeFields emits a field-scoped validation failure as a 400 whose body maps
// field names to messages.
func writeFields(w http.ResponseWriter, fields map[string]string) {
	writeJSON(w, 400, fields)
}

const authRequiredMsg = "Authentication credentials were not provided."

func (a *api) tokenTTL() time.Duration {
	if v := getenv("TOKEN_TTL", ""); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return 30 * 24 * time.Hour
}

// bearerToken extracts the opaque key from the Authorization header. Both
// "Token <key>" and "Bearer <key>" schemes are accepted.
func bearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	switch strings.ToLower(parts[0]) {
	case "token", "bearer":
		return strings.TrimSpace(parts[1])
	}
	return ""
}

func (a *api) currentUser(r *http.Request) (*User, error) {
	key := bearerToken(r)
	if key == "" {
		return nil, ErrNotFound
	}
	if a.tokens != nil {
		if u, ok := a.tokens.get(r.Context(), key); ok {
			return &u, nil
		}
	}
	u, err := a.store.UserByToken(r.Context(), key)
	if err != nil {
		return nil, err
	}
	if a.tokens != nil {
		a.tokens.put(r.Context(), key, u)
	}
	return &u, nil
}

// requireAuth wraps a handler and enforces a valid token
func (a *api) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := a.currentUser(r); err != nil {
			writeDetail(w, 401, authRequiredMsg)
			return
		}
		next(w, r)
	}
}

func withLogging(log *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: 200}
		start := time.Now()
		next.ServeHTTP(sw, r)
		log.Info("http", "req_id", uuid.NewString(), "method", r.Method, "path", r.URL.Path,
			"status", sw.status, "dur_ms", time.Since(start).Milliseconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) { w.status = code; w.ResponseWriter.WriteHeader(code) }

func (a *api) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, 200, map[string]any{"ok": true, "ts": time.Now().UTC().Format(time.RFC3339)})
}

func (a *api) routes(mux *http.ServeMux) {
	// Auth endpoints (paths keep the API's trailing slashes; {$} pins the
	// pattern to the exact path)
	mux.HandleFunc("POST /api/registration/{$}", a.withRateLimit("auth", 20, time.Minute, a.handleRegister))
	mux.HandleFunc("POST /api/login/{$}", a.withRateLimit("auth", 30, time.Minute, a.handleLogin))
	mux.HandleFunc("GET /api/email-check/{$}", a.requireAuth(a.handleEmailCheck))

	mux.HandleFunc("GET /api/health", a.handleHealth)

	mux.HandleFunc("GET /api/boards/{$}", a.requireAuth(a.handleListBoards))
	mux.HandleFunc("POST /api/boards/{$}", a.requireAuth(a.handleCreateBoard))
	mux.HandleFunc("GET /api/boards/{id}/{$}", a.requireAuth(a.handleGetBoard))
	mux.HandleFunc("PATCH /api/boards/{id}/{$}", a.requireAuth(a.handleUpdateBoard))
	mux.HandleFunc("DELETE /api/boards/{id}/{$}", a.requireAuth(a.handleDeleteBoard))

	mux.HandleFunc("GET /api/tasks/assigned-to-me/{$}", a.requireAuth(a.handleAssignedToMe))
	mux.HandleFunc("GET /api/tasks/reviewing/{$}", a.requireAuth(a.handleReviewing))
	mux.HandleFunc("POST /api/tasks/{$}", a.requireAuth(a.handleCreateTask))
	mux.HandleFunc("PATCH /api/tasks/{id}/{$}", a.requireAuth(a.handleUpdateTask))
	mux.HandleFunc("DELETE /api/tasks/{id}/{$}", a.requireAuth(a.handleDeleteTask))

	mux.HandleFunc("GET /api/tasks/{id}/comments/{$}", a.requireAuth(a.handleListComments))
	mux.HandleFunc("POST /api/tasks/{id}/comments/{$}", a.requireAuth(a.handleAddComment))
	mux.HandleFunc("DELETE /api/tasks/{id}/comments/{cid}/{$}", a.requireAuth(a.handleDeleteComment))
}
