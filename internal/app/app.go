// Package app implements the application service layer: input validation,
// code normalization, and the read models built on top of the store.
package app

import (
	"context"

	"drawtrack/pkg/auth"
	"drawtrack/pkg/store"
)

// App wires the persistence layer to token issuance. All handlers call
// through App; nothing above this layer touches the store directly.
type App struct {
	store  store.Store
	tokens *auth.TokenManager
}

func New(s store.Store, tm *auth.TokenManager) *App {
	return &App{store: s, tokens: tm}
}

// Health reports database connectivity for the health endpoint.
func (a *App) Health(ctx context.Context) (store.HealthInfo, error) {
	return a.store.Health(ctx)
}
