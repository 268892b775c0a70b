package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
)

// CycleStatus is the last observed outcome of one user's polling loop.
type CycleStatus struct {
	UserID     string    `json:"userId"`
	LastRun    time.Time `json:"lastRun"`
	Continue   bool      `json:"continue"`
	HTTPStatus int       `json:"httpStatus,omitempty"`
}

// Tracker keeps per-user cycle outcomes for the ops surface.
type Tracker struct {
	mu     sync.RWMutex
	byUser map[string]CycleStatus
}

func NewTracker() *Tracker {
	return &Tracker{byUser: map[string]CycleStatus{}}
}

func (t *Tracker) Record(status CycleStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byUser[status.UserID] = status
}

func (t *Tracker) Snapshot() []CycleStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]CycleStatus, 0, len(t.byUser))
	for _, s := range t.byUser {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// Server exposes the operational endpoints: a public health check and a
// bearer-token-protected status listing.
type Server struct {
	tracker *Tracker
	secret  []byte
}

func New(tracker *Tracker, tokenSecret string) *Server {
	return &Server{tracker: tracker, secret: []byte(tokenSecret)}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(s.bearerAuth)
		r.Get("/status", s.handleStatus)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"ok":   true,
		"time": time.Now().UTC(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"users": s.tracker.Snapshot(),
	})
}

// bearerAuth verifies an HS256 bearer token. The ops surface is not a
// user-facing API; a shared signing secret is enough here.
func (s *Server) bearerAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(s.secret) == 0 {
			respondError(w, http.StatusUnauthorized, "ops token secret not configured")
			return
		}
		authz := r.Header.Get("Authorization")
		if !strings.HasPrefix(authz, "Bearer ") {
			respondError(w, http.StatusUnauthorized, "bearer token required")
			return
		}
		raw := strings.TrimSpace(authz[len("Bearer "):])
		_, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
			}
			return s.secret, nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil {
			respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
