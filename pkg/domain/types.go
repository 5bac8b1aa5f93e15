package domain

import "time"

// UserRole controls what an authenticated user may do.
type UserRole string

const (
	RoleAdmin  UserRole = "admin"
	RoleViewer UserRole = "viewer"
)

// SentinelValue marks a result slot whose value has not been declared yet.
const SentinelValue = "XX"

// Game is a named recurring draw identified by a unique short code.
// Code is stored upper-cased and trimmed everywhere.
type Game struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Code        string    `json:"code"`
	DefaultTime string    `json:"defaultTime"`
	OrderIndex  int       `json:"orderIndex"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Result is one append-only declaration of a value for a game at a slot
// on a day. Rows are never mutated; the row with the largest ID among a
// filtered set is the current one.
type Result struct {
	ID        int64     `json:"id"`
	GameID    int64     `json:"gameId"`
	DateStr   string    `json:"dateStr"`
	SlotMin   int       `json:"slotMin"`
	Value     string    `json:"value"`
	Source    string    `json:"source"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// User is an admin-panel account.
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         UserRole  `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// OTPToken is a short-lived verification code record. The live API never
// issues or verifies these; only the cleanup and import commands touch them.
type OTPToken struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	OTPHash   string    `json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
	Attempts  int       `json:"attempts"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
