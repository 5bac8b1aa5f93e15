package store

import (
	"context"
	"errors"
	"time"

	"drawtrack/pkg/domain"
)

// ErrDuplicate is returned when an insert or update violates a unique
// constraint (game code, user email).
var ErrDuplicate = errors.New("duplicate key")

// ResultRow is a result joined with its game's code, in display order.
type ResultRow struct {
	domain.Result
	Code string
}

// CodeValue pairs a game code with a declared value.
type CodeValue struct {
	Code  string
	Value string
}

// DateCodeValue is a per-day final value for one game.
type DateCodeValue struct {
	DateStr string
	Code    string
	Value   string
}

// HealthInfo reports connectivity details for the health endpoint.
type HealthInfo struct {
	Database string
	Tables   []string
}

// Store defines persistence over games, results, users, and OTP tokens.
type Store interface {
	// games
	ListGames() ([]domain.Game, error)
	GetGameByCode(code string) (domain.Game, bool, error)
	CreateGame(g domain.Game) (domain.Game, error)
	UpdateGame(oldCode string, g domain.Game) error
	DeleteGameByCode(code string) (bool, error)
	// UpsertGames applies the whole batch in one transaction; on any
	// failure nothing from the batch persists.
	UpsertGames(items []domain.Game) error

	// results (append-only; ID order defines recency)
	AppendResult(r domain.Result) (domain.Result, error)
	DeleteResultByID(id int64) (bool, error)
	ListResultsForDate(dateStr string) ([]ResultRow, error)
	// SnapshotValues returns, per game, the value of the highest-ID row
	// on dateStr with slot_min <= slotMax.
	SnapshotValues(dateStr string, slotMax int) ([]CodeValue, error)
	// MonthlyFinals returns, per (date, game) in the month, the value of
	// the highest-ID row, dates ascending.
	MonthlyFinals(year, month int) ([]DateCodeValue, error)

	// users
	CreateUser(u domain.User) (domain.User, error)
	GetUserByEmail(email string) (domain.User, bool, error)
	GetUserByID(id int64) (domain.User, bool, error)
	UserCount() (int64, error)

	// otp tokens (maintenance paths only)
	UpsertOTPToken(t domain.OTPToken) error
	DeleteExpiredOTPTokens(now time.Time) (int64, error)

	// health and lifecycle
	Health(ctx context.Context) (HealthInfo, error)
	Close() error
}
