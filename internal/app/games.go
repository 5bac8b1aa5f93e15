package app

import (
	"errors"
	"fmt"
	"strings"

	"drawtrack/pkg/domain"
	"drawtrack/pkg/store"
	"drawtrack/pkg/timeslot"
)

const (
	maxNameLen = 120
	maxCodeLen = 16

	// Single creates sort first unless the caller says otherwise; bulk
	// imports sink to the bottom so they never displace curated ordering.
	defaultOrderIndexSingle = 1
	defaultOrderIndexBulk   = 999
)

// GameInput is the payload for creating a game or one bulk upsert item.
type GameInput struct {
	Name        string `json:"name"`
	Code        string `json:"code"`
	DefaultTime string `json:"defaultTime"`
	OrderIndex  *int   `json:"orderIndex"`
}

// GamePatch carries partial updates; nil fields are left untouched.
// NewCode renames the game's code.
type GamePatch struct {
	Name        *string `json:"name"`
	NewCode     *string `json:"newCode"`
	DefaultTime *string `json:"defaultTime"`
	OrderIndex  *int    `json:"orderIndex"`
}

// normCode upper-cases and trims a game code. Every code comparison in
// the system goes through this.
func normCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func validateGameFields(name, code, defaultTime string) error {
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if len(name) > maxNameLen {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidInput, maxNameLen)
	}
	if code == "" {
		return fmt.Errorf("%w: code is required", ErrInvalidInput)
	}
	if len(code) > maxCodeLen {
		return fmt.Errorf("%w: code exceeds %d characters", ErrInvalidInput, maxCodeLen)
	}
	if defaultTime != "" {
		if _, err := timeslot.ToMinutes(defaultTime); err != nil {
			return fmt.Errorf("%w: defaultTime %q is not a valid time", ErrInvalidInput, defaultTime)
		}
	}
	return nil
}

// ListGames returns all games ordered by orderIndex then name.
func (a *App) ListGames() ([]domain.Game, error) {
	return a.store.ListGames()
}

// GetGame looks a game up by code, case-insensitively.
func (a *App) GetGame(code string) (domain.Game, error) {
	code = normCode(code)
	if code == "" {
		return domain.Game{}, fmt.Errorf("%w: code is required", ErrInvalidInput)
	}
	g, ok, err := a.store.GetGameByCode(code)
	if err != nil {
		return domain.Game{}, err
	}
	if !ok {
		return domain.Game{}, fmt.Errorf("%w: game %q", ErrNotFound, code)
	}
	return g, nil
}

// CreateGame validates and inserts one game. Duplicate codes conflict.
func (a *App) CreateGame(in GameInput) (domain.Game, error) {
	name := strings.TrimSpace(in.Name)
	code := normCode(in.Code)
	defaultTime := strings.TrimSpace(in.DefaultTime)
	if err := validateGameFields(name, code, defaultTime); err != nil {
		return domain.Game{}, err
	}
	orderIndex := defaultOrderIndexSingle
	if in.OrderIndex != nil {
		orderIndex = *in.OrderIndex
	}
	g, err := a.store.CreateGame(domain.Game{
		Name:        name,
		Code:        code,
		DefaultTime: defaultTime,
		OrderIndex:  orderIndex,
	})
	if errors.Is(err, store.ErrDuplicate) {
		return domain.Game{}, fmt.Errorf("%w: game code %q already exists", ErrConflict, code)
	}
	if err != nil {
		return domain.Game{}, err
	}
	return g, nil
}

// UpdateGame applies a partial update to the game identified by code.
// Renaming to a code already held by another game conflicts; renaming a
// game to its own code is a no-op on the code field.
func (a *App) UpdateGame(code string, patch GamePatch) (domain.Game, error) {
	g, err := a.GetGame(code)
	if err != nil {
		return domain.Game{}, err
	}
	if patch.Name != nil {
		g.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.NewCode != nil {
		g.Code = normCode(*patch.NewCode)
	}
	if patch.DefaultTime != nil {
		g.DefaultTime = strings.TrimSpace(*patch.DefaultTime)
	}
	if patch.OrderIndex != nil {
		g.OrderIndex = *patch.OrderIndex
	}
	if err := validateGameFields(g.Name, g.Code, g.DefaultTime); err != nil {
		return domain.Game{}, err
	}
	err = a.store.UpdateGame(normCode(code), g)
	if errors.Is(err, store.ErrDuplicate) {
		return domain.Game{}, fmt.Errorf("%w: game code %q already exists", ErrConflict, g.Code)
	}
	if err != nil {
		return domain.Game{}, err
	}
	return a.GetGame(g.Code)
}

// DeleteGame removes a game and, through the schema's cascade, all of
// its results.
func (a *App) DeleteGame(code string) error {
	code = normCode(code)
	if code == "" {
		return fmt.Errorf("%w: code is required", ErrInvalidInput)
	}
	ok, err := a.store.DeleteGameByCode(code)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: game %q", ErrNotFound, code)
	}
	return nil
}

// BulkUpsertGames inserts or updates games keyed by code in one atomic
// batch. Items with a blank name or code are skipped, not rejected, so a
// partially dirty import file still loads its valid rows. Returns the
// number of items applied.
func (a *App) BulkUpsertGames(items []GameInput) (int, error) {
	batch := make([]domain.Game, 0, len(items))
	seen := make(map[string]int, len(items))
	for _, in := range items {
		name := strings.TrimSpace(in.Name)
		code := normCode(in.Code)
		if name == "" || code == "" {
			continue
		}
		if err := validateGameFields(name, code, strings.TrimSpace(in.DefaultTime)); err != nil {
			return 0, err
		}
		orderIndex := defaultOrderIndexBulk
		if in.OrderIndex != nil {
			orderIndex = *in.OrderIndex
		}
		g := domain.Game{
			Name:        name,
			Code:        code,
			DefaultTime: strings.TrimSpace(in.DefaultTime),
			OrderIndex:  orderIndex,
		}
		// Last occurrence of a code within the batch wins.
		if idx, ok := seen[code]; ok {
			batch[idx] = g
			continue
		}
		seen[code] = len(batch)
		batch = append(batch, g)
	}
	if len(batch) == 0 {
		return 0, nil
	}
	if err := a.store.UpsertGames(batch); err != nil {
		return 0, err
	}
	return len(batch), nil
}
