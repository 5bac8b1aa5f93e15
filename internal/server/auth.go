package server

import (
	"net/http"

	"drawtrack/internal/app"
	"drawtrack/pkg/auth"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allow(r, "register") {
		writeEnvelopeError(w, http.StatusTooManyRequests, "too many requests")
		return
	}
	var req app.RegisterInput
	if !decodeBody(w, r, &req) {
		return
	}
	// Registration is public, but an authenticated admin caller may grant
	// the admin role; pass the claims through when a valid token is present.
	var actor *auth.Claims
	if claims, ok := s.authorize(r); ok {
		actor = &claims
	}
	sess, err := s.app.Register(req, actor)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeEnvelope(w, http.StatusCreated, sess)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allow(r, "login") {
		writeEnvelopeError(w, http.StatusTooManyRequests, "too many requests")
		return
	}
	var req app.LoginInput
	if !decodeBody(w, r, &req) {
		return
	}
	sess, err := s.app.Login(req)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeEnvelope(w, http.StatusOK, sess)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, claims auth.Claims) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	u, err := s.app.Me(claims)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeEnvelope(w, http.StatusOK, u)
}

// Tokens are stateless; logout exists so clients have a uniform endpoint
// to call when discarding a session.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	writeEnvelope(w, http.StatusOK, map[string]any{"loggedOut": true})
}
