package app

import "errors"

// Sentinel errors classify failures so the HTTP layer can map them to
// status codes without inspecting message text.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)
