package store

import "time"

// GORM models used for persistence.

type GameModel struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	Name        string `gorm:"not null"`
	Code        string `gorm:"uniqueIndex;not null"`
	DefaultTime string
	OrderIndex  int       `gorm:"not null;default:999"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time
}

func (GameModel) TableName() string { return "games" }

// ResultModel rows are append-only; there is intentionally no uniqueness
// on (game_id, date_str, slot_min).
type ResultModel struct {
	ID        int64      `gorm:"primaryKey;autoIncrement"`
	GameID    int64      `gorm:"not null;index:idx_results_date_game,priority:2"`
	Game      *GameModel `gorm:"foreignKey:GameID;constraint:OnDelete:CASCADE"`
	DateStr   string     `gorm:"size:10;not null;index:idx_results_date_game,priority:1;index:idx_results_date_slot,priority:1"`
	SlotMin   int        `gorm:"not null;index:idx_results_date_slot,priority:2"`
	Value     string     `gorm:"size:4;not null"`
	Source    string     `gorm:"not null;default:manual"`
	Note      string
	CreatedAt time.Time `gorm:"not null"`
}

func (ResultModel) TableName() string { return "timewise_results" }

type UserModel struct {
	ID           int64     `gorm:"primaryKey;autoIncrement"`
	Name         string    `gorm:"not null"`
	Email        string    `gorm:"uniqueIndex;not null"`
	Role         string    `gorm:"not null;default:viewer"`
	PasswordHash string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time
}

func (UserModel) TableName() string { return "users" }

type OTPTokenModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	Email     string    `gorm:"uniqueIndex;not null"`
	OTPHash   string    `gorm:"not null"`
	ExpiresAt time.Time `gorm:"not null;index"`
	Attempts  int       `gorm:"not null;default:0"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time
}

func (OTPTokenModel) TableName() string { return "otp_tokens" }
