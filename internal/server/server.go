// Package server exposes the REST API. Every response is wrapped in an
// envelope: {"ok": true, "data": ...} or {"ok": false, "error": "..."}.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"drawtrack/internal/app"
	"drawtrack/internal/ratelimit"
	"drawtrack/internal/util"
	"drawtrack/pkg/auth"
	"drawtrack/pkg/domain"
)

const maxBodyBytes = 1 << 20

// Config wires required dependencies for the HTTP server.
type Config struct {
	App *app.App
	// Limiter throttles credential endpoints per client IP; nil disables
	// throttling.
	Limiter *ratelimit.FixedWindowLimiter
}

// Server exposes the HTTP endpoints.
type Server struct {
	app     *app.App
	limiter *ratelimit.FixedWindowLimiter
	mux     *http.ServeMux
}

// New constructs the server with routes configured.
func New(cfg Config) *Server {
	s := &Server{
		app:     cfg.App,
		limiter: cfg.Limiter,
		mux:     http.NewServeMux(),
	}
	s.routes()
	return s
}

// Router returns the handler with the middleware chain applied.
func (s *Server) Router() http.Handler {
	var h http.Handler = s.mux
	h = util.WithCORS(h)
	h = util.WithSecurityHeaders(h)
	h = util.WithRequestLog("drawtrack", h)
	h = util.WithRequestID(h)
	return h
}

func (s *Server) routes() {
	s.mux.HandleFunc("/health", s.handleHealth)

	// games
	s.mux.HandleFunc("/api/v1/games", s.handleGames)
	s.mux.Handle("/api/v1/games/bulk", s.adminOnly(s.handleGamesBulk))
	s.mux.HandleFunc("/api/v1/games/", s.handleGameByCode)

	// results
	s.mux.HandleFunc("/api/v1/results/timewise", s.handleTimewise)
	s.mux.Handle("/api/v1/results/timewise/", s.adminOnly(s.handleResultByID))
	s.mux.HandleFunc("/api/v1/results/snapshot", s.handleSnapshot)
	s.mux.HandleFunc("/api/v1/results/monthly", s.handleMonthly)

	// auth
	s.mux.HandleFunc("/api/v1/users/register", s.handleRegister)
	s.mux.HandleFunc("/api/v1/auth/login", s.handleLogin)
	s.mux.Handle("/api/v1/auth/me", s.authenticated(s.handleMe))
	s.mux.HandleFunc("/api/v1/auth/logout", s.handleLogout)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	info, err := s.app.Health(r.Context())
	if err != nil {
		writeEnvelopeError(w, http.StatusInternalServerError, "database unreachable")
		return
	}
	writeEnvelope(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"database": info.Database,
		"tables":   info.Tables,
	})
}

// auth wrappers
type authHandler func(http.ResponseWriter, *http.Request, auth.Claims)

func (s *Server) authenticated(next authHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := s.authorize(r)
		if !ok {
			writeEnvelopeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r, claims)
	})
}

func (s *Server) adminOnly(next authHandler) http.Handler {
	return s.authenticated(func(w http.ResponseWriter, r *http.Request, claims auth.Claims) {
		if claims.Role != domain.RoleAdmin {
			writeEnvelopeError(w, http.StatusForbidden, "forbidden")
			return
		}
		next(w, r, claims)
	})
}

func (s *Server) authorize(r *http.Request) (auth.Claims, bool) {
	token, ok := bearerToken(r)
	if !ok {
		return auth.Claims{}, false
	}
	claims, err := s.app.VerifyToken(token)
	if err != nil {
		return auth.Claims{}, false
	}
	return claims, true
}

func (s *Server) allow(r *http.Request, action string) bool {
	return s.limiter.Allow(action + ":" + util.ClientIP(r))
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(dst); err != nil {
		writeEnvelopeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func methodNotAllowed(w http.ResponseWriter) {
	writeEnvelopeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// writeAppError maps service-layer sentinels onto status codes.
func writeAppError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		writeEnvelopeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrUnauthorized):
		writeEnvelopeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, app.ErrNotFound):
		writeEnvelopeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, app.ErrConflict):
		writeEnvelopeError(w, http.StatusConflict, err.Error())
	default:
		writeEnvelopeError(w, http.StatusInternalServerError, "internal error")
	}
}

type envelope struct {
	OK    bool   `json:"ok"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

func writeEnvelope(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{OK: true, Data: data})
}

func writeEnvelopeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{OK: false, Error: msg})
}
