package server

import (
	"net/http"
	"strconv"
	"strings"

	"drawtrack/internal/app"
	"drawtrack/pkg/auth"
)

func (s *Server) handleTimewise(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		day, err := s.app.TimewiseForDate(q.Get("dateStr"), splitCodes(q.Get("games")))
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeEnvelope(w, http.StatusOK, day)
	case http.MethodPost:
		s.adminOnly(s.handleAppendResult).ServeHTTP(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleAppendResult(w http.ResponseWriter, r *http.Request, _ auth.Claims) {
	var req app.ResultInput
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := s.app.AppendResult(req)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeEnvelope(w, http.StatusCreated, result)
}

func (s *Server) handleResultByID(w http.ResponseWriter, r *http.Request, _ auth.Claims) {
	raw := strings.TrimPrefix(r.URL.Path, "/api/v1/results/timewise/")
	if raw == "" || strings.Contains(raw, "/") {
		writeEnvelopeError(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodDelete {
		methodNotAllowed(w)
		return
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeEnvelopeError(w, http.StatusBadRequest, "result id must be an integer")
		return
	}
	if err := s.app.DeleteResult(id); err != nil {
		writeAppError(w, err)
		return
	}
	writeEnvelope(w, http.StatusOK, map[string]any{"deleted": true})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	q := r.URL.Query()
	snap, err := s.app.SnapshotAt(q.Get("dateStr"), q.Get("time"), splitCodes(q.Get("games")))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeEnvelope(w, http.StatusOK, snap)
}

func (s *Server) handleMonthly(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	q := r.URL.Query()
	year, err := strconv.Atoi(q.Get("year"))
	if err != nil {
		writeEnvelopeError(w, http.StatusBadRequest, "year must be an integer")
		return
	}
	month, err := strconv.Atoi(q.Get("month"))
	if err != nil {
		writeEnvelopeError(w, http.StatusBadRequest, "month must be an integer")
		return
	}
	table, err := s.app.MonthlyFinals(year, month, splitCodes(q.Get("games")))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeEnvelope(w, http.StatusOK, table)
}

// splitCodes parses the games= query parameter, a comma-separated list
// of game codes. Blank means no filter.
func splitCodes(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}
