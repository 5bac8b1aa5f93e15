package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"drawtrack/pkg/domain"
)

const migrateLockID int64 = 48120731

const (
	maxOpenConns    = 10
	maxIdleConns    = 5
	connMaxLifetime = 30 * time.Minute
)

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB, bounds the connection pool, and runs
// auto-migrations under an advisory lock.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormLog,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)

	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(&GameModel{}, &ResultModel{}, &UserModel{}, &OTPTokenModel{}); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

func translateErr(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}

// ── games ──

// ListGames returns all games ordered by order_index then name.
func (s *GormStore) ListGames() ([]domain.Game, error) {
	var models []GameModel
	if err := s.db.Order("order_index ASC, name ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	games := make([]domain.Game, 0, len(models))
	for _, m := range models {
		games = append(games, gameFromModel(m))
	}
	return games, nil
}

// GetGameByCode looks up a game by its (already normalized) code.
func (s *GormStore) GetGameByCode(code string) (domain.Game, bool, error) {
	var model GameModel
	if err := s.db.Where("code = ?", code).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Game{}, false, nil
		}
		return domain.Game{}, false, err
	}
	return gameFromModel(model), true, nil
}

// CreateGame inserts a new game; code collisions surface as ErrDuplicate.
func (s *GormStore) CreateGame(g domain.Game) (domain.Game, error) {
	model := gameToModel(g)
	if err := s.db.Create(&model).Error; err != nil {
		return domain.Game{}, translateErr(err)
	}
	return gameFromModel(model), nil
}

// UpdateGame rewrites all mutable fields of the row matching oldCode.
func (s *GormStore) UpdateGame(oldCode string, g domain.Game) error {
	err := s.db.Model(&GameModel{}).Where("code = ?", oldCode).Updates(map[string]any{
		"name":         g.Name,
		"code":         g.Code,
		"default_time": g.DefaultTime,
		"order_index":  g.OrderIndex,
		"updated_at":   time.Now().UTC(),
	}).Error
	return translateErr(err)
}

// DeleteGameByCode removes the game; dependent results go with it via
// the FK cascade. Returns false when no row matched.
func (s *GormStore) DeleteGameByCode(code string) (bool, error) {
	tx := s.db.Where("code = ?", code).Delete(&GameModel{})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// UpsertGames inserts or overwrites games by code in one transaction.
func (s *GormStore) UpsertGames(items []domain.Game) error {
	if len(items) == 0 {
		return nil
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		for _, g := range items {
			model := gameToModel(g)
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "code"}},
				DoUpdates: clause.AssignmentColumns([]string{"name", "default_time", "order_index", "updated_at"}),
			}).Create(&model).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// ── results ──

// AppendResult inserts a new history row and returns it with its ID.
func (s *GormStore) AppendResult(r domain.Result) (domain.Result, error) {
	model := resultToModel(r)
	if err := s.db.Create(&model).Error; err != nil {
		return domain.Result{}, translateErr(err)
	}
	return resultFromModel(model), nil
}

// DeleteResultByID removes one history row. Returns false when absent.
func (s *GormStore) DeleteResultByID(id int64) (bool, error) {
	tx := s.db.Delete(&ResultModel{}, "id = ?", id)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

type resultRowScan struct {
	ID        int64
	GameID    int64
	DateStr   string
	SlotMin   int
	Value     string
	Source    string
	Note      string
	CreatedAt time.Time
	Code      string
}

// ListResultsForDate returns every row for the day joined with its game
// code, ordered by slot then the game's display order, insertion last.
func (s *GormStore) ListResultsForDate(dateStr string) ([]ResultRow, error) {
	var rows []resultRowScan
	err := s.db.Raw(`
		SELECT t.id, t.game_id, t.date_str, t.slot_min, t.value, t.source, t.note, t.created_at, g.code
		FROM timewise_results t
		JOIN games g ON g.id = t.game_id
		WHERE t.date_str = ?
		ORDER BY t.slot_min ASC, g.order_index ASC, g.name ASC, t.id ASC`,
		dateStr).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]ResultRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, ResultRow{
			Result: domain.Result{
				ID:        r.ID,
				GameID:    r.GameID,
				DateStr:   r.DateStr,
				SlotMin:   r.SlotMin,
				Value:     r.Value,
				Source:    r.Source,
				Note:      r.Note,
				CreatedAt: r.CreatedAt,
			},
			Code: r.Code,
		})
	}
	return out, nil
}

// SnapshotValues picks, per game, the highest-ID row on the date with
// slot_min <= slotMax. Append order, not slot order, defines recency.
func (s *GormStore) SnapshotValues(dateStr string, slotMax int) ([]CodeValue, error) {
	var rows []CodeValue
	err := s.db.Raw(`
		SELECT g.code, t.value
		FROM timewise_results t
		JOIN (
			SELECT game_id, MAX(id) AS id
			FROM timewise_results
			WHERE date_str = ? AND slot_min <= ?
			GROUP BY game_id
		) latest ON latest.id = t.id
		JOIN games g ON g.id = t.game_id`,
		dateStr, slotMax).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// MonthlyFinals picks, per (date, game) in the month, the highest-ID row.
func (s *GormStore) MonthlyFinals(year, month int) ([]DateCodeValue, error) {
	ym := fmt.Sprintf("%04d-%02d-%%", year, month)
	var rows []DateCodeValue
	err := s.db.Raw(`
		SELECT t.date_str, g.code, t.value
		FROM timewise_results t
		JOIN (
			SELECT date_str, game_id, MAX(id) AS id
			FROM timewise_results
			WHERE date_str LIKE ?
			GROUP BY date_str, game_id
		) last ON last.id = t.id
		JOIN games g ON g.id = t.game_id
		ORDER BY t.date_str ASC, g.order_index ASC`,
		ym).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ── users ──

// CreateUser inserts a user; email collisions surface as ErrDuplicate.
func (s *GormStore) CreateUser(u domain.User) (domain.User, error) {
	model := userToModel(u)
	if err := s.db.Create(&model).Error; err != nil {
		return domain.User{}, translateErr(err)
	}
	return userFromModel(model), nil
}

// GetUserByEmail looks up a user by (already lower-cased) email.
func (s *GormStore) GetUserByEmail(email string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.Where("email = ?", email).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByID returns a user by ID.
func (s *GormStore) GetUserByID(id int64) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// UserCount returns the number of registered users.
func (s *GormStore) UserCount() (int64, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ── otp tokens ──

// UpsertOTPToken inserts or refreshes a token by email (import path).
func (s *GormStore) UpsertOTPToken(t domain.OTPToken) error {
	model := otpToModel(t)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{"otp_hash", "expires_at", "attempts", "updated_at"}),
	}).Create(&model).Error
}

// DeleteExpiredOTPTokens removes tokens whose expiry has passed.
func (s *GormStore) DeleteExpiredOTPTokens(now time.Time) (int64, error) {
	tx := s.db.Where("expires_at <= ?", now).Delete(&OTPTokenModel{})
	return tx.RowsAffected, tx.Error
}

// ── health and lifecycle ──

// Health pings the pool and reports the selected database and its tables.
func (s *GormStore) Health(ctx context.Context) (HealthInfo, error) {
	sqlDB, err := s.db.DB()
	if err != nil {
		return HealthInfo{}, err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return HealthInfo{}, err
	}
	info := HealthInfo{}
	if err := s.db.WithContext(ctx).Raw("SELECT current_database()").Scan(&info.Database).Error; err != nil {
		return HealthInfo{}, err
	}
	if err := s.db.WithContext(ctx).
		Table("pg_catalog.pg_tables").
		Where("schemaname = ?", "public").
		Order("tablename").
		Pluck("tablename", &info.Tables).Error; err != nil {
		return HealthInfo{}, err
	}
	return info, nil
}

// Close releases the underlying connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ── conversions ──

func gameToModel(g domain.Game) GameModel {
	return GameModel{
		ID:          g.ID,
		Name:        g.Name,
		Code:        g.Code,
		DefaultTime: g.DefaultTime,
		OrderIndex:  g.OrderIndex,
		CreatedAt:   g.CreatedAt,
		UpdatedAt:   g.UpdatedAt,
	}
}

func gameFromModel(m GameModel) domain.Game {
	return domain.Game{
		ID:          m.ID,
		Name:        m.Name,
		Code:        m.Code,
		DefaultTime: m.DefaultTime,
		OrderIndex:  m.OrderIndex,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func resultToModel(r domain.Result) ResultModel {
	return ResultModel{
		ID:        r.ID,
		GameID:    r.GameID,
		DateStr:   r.DateStr,
		SlotMin:   r.SlotMin,
		Value:     r.Value,
		Source:    r.Source,
		Note:      r.Note,
		CreatedAt: r.CreatedAt,
	}
}

func resultFromModel(m ResultModel) domain.Result {
	return domain.Result{
		ID:        m.ID,
		GameID:    m.GameID,
		DateStr:   m.DateStr,
		SlotMin:   m.SlotMin,
		Value:     m.Value,
		Source:    m.Source,
		Note:      m.Note,
		CreatedAt: m.CreatedAt,
	}
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		Role:         string(u.Role),
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	role := domain.UserRole(m.Role)
	if role == "" {
		role = domain.RoleViewer
	}
	return domain.User{
		ID:           m.ID,
		Name:         m.Name,
		Email:        m.Email,
		Role:         role,
		PasswordHash: m.PasswordHash,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func otpToModel(t domain.OTPToken) OTPTokenModel {
	return OTPTokenModel{
		ID:        t.ID,
		Email:     t.Email,
		OTPHash:   t.OTPHash,
		ExpiresAt: t.ExpiresAt,
		Attempts:  t.Attempts,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}
