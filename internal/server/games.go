package server

import (
	"net/http"
	"strings"

	"drawtrack/internal/app"
	"drawtrack/pkg/auth"
)

func (s *Server) handleGames(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		games, err := s.app.ListGames()
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeEnvelope(w, http.StatusOK, map[string]any{
			"items": games,
			"count": len(games),
		})
	case http.MethodPost:
		s.adminOnly(s.handleCreateGame).ServeHTTP(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request, _ auth.Claims) {
	var req app.GameInput
	if !decodeBody(w, r, &req) {
		return
	}
	g, err := s.app.CreateGame(req)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeEnvelope(w, http.StatusCreated, g)
}

func (s *Server) handleGamesBulk(w http.ResponseWriter, r *http.Request, _ auth.Claims) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req struct {
		Items []app.GameInput `json:"items"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	applied, err := s.app.BulkUpsertGames(req.Items)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeEnvelope(w, http.StatusOK, map[string]any{"applied": applied})
}

func (s *Server) handleGameByCode(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimPrefix(r.URL.Path, "/api/v1/games/")
	if code == "" || strings.Contains(code, "/") {
		writeEnvelopeError(w, http.StatusNotFound, "not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		g, err := s.app.GetGame(code)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeEnvelope(w, http.StatusOK, g)
	case http.MethodPut:
		s.adminOnly(func(w http.ResponseWriter, r *http.Request, _ auth.Claims) {
			var req app.GamePatch
			if !decodeBody(w, r, &req) {
				return
			}
			g, err := s.app.UpdateGame(code, req)
			if err != nil {
				writeAppError(w, err)
				return
			}
			writeEnvelope(w, http.StatusOK, g)
		}).ServeHTTP(w, r)
	case http.MethodDelete:
		s.adminOnly(func(w http.ResponseWriter, r *http.Request, _ auth.Claims) {
			if err := s.app.DeleteGame(code); err != nil {
				writeAppError(w, err)
				return
			}
			writeEnvelope(w, http.StatusOK, map[string]any{"deleted": true})
		}).ServeHTTP(w, r)
	default:
		methodNotAllowed(w)
	}
}
