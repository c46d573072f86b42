// Package handler serves the readiness endpoint.
package handler

import (
	"context"
	"net/http"
	"time"

	"laundry-ops/backend/internal/platform/httpjson"
)

const checkTimeout = 3 * time.Second

// Pinger reports database reachability. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PolicyChecker self-checks the admission policy engine.
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

// Server answers GET /healthz.
type Server struct {
	db     Pinger
	policy PolicyChecker
}

// NewServer returns a health server. Nil dependencies are reported as skipped.
func NewServer(db Pinger, policy PolicyChecker) *Server {
	return &Server{db: db, policy: policy}
}

type response struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// ServeHTTP reports 200 when every configured check passes, 503 otherwise.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		httpjson.MethodNotAllowed(w, r, http.MethodGet, http.MethodHead)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	res := response{Status: "ok", Checks: map[string]string{}}
	check := func(name string, fn func(context.Context) error) {
		if err := fn(ctx); err != nil {
			res.Status = "unavailable"
			res.Checks[name] = err.Error()
			return
		}
		res.Checks[name] = "ok"
	}
	if s.db != nil {
		check("database", s.db.PingContext)
	} else {
		res.Checks["database"] = "skipped"
	}
	if s.policy != nil {
		check("admission_policy", s.policy.HealthCheck)
	} else {
		res.Checks["admission_policy"] = "skipped"
	}

	status := http.StatusOK
	if res.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	httpjson.WriteJSON(w, r, status, res)
}
