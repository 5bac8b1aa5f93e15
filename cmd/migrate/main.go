// Command migrate loads a legacy JSON export into the database. The
// export is a single object with games, users, results (keyed by game
// code), and otpTokens arrays. Rows that cannot be resolved are logged
// and skipped so a partial export still imports what it can.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"drawtrack/internal/util"
	"drawtrack/pkg/domain"
	"drawtrack/pkg/store"
	"drawtrack/pkg/timeslot"
)

type exportFile struct {
	Games []struct {
		Name        string `json:"name"`
		Code        string `json:"code"`
		DefaultTime string `json:"defaultTime"`
		OrderIndex  *int   `json:"orderIndex"`
	} `json:"games"`
	Users []struct {
		Name         string `json:"name"`
		Email        string `json:"email"`
		Role         string `json:"role"`
		PasswordHash string `json:"passwordHash"`
	} `json:"users"`
	Results []struct {
		GameCode string `json:"gameCode"`
		DateStr  string `json:"dateStr"`
		Time     string `json:"time"`
		Value    string `json:"value"`
		Source   string `json:"source"`
		Note     string `json:"note"`
	} `json:"results"`
	OTPTokens []struct {
		Email     string    `json:"email"`
		OTPHash   string    `json:"otpHash"`
		ExpiresAt time.Time `json:"expiresAt"`
		Attempts  int       `json:"attempts"`
	} `json:"otpTokens"`
}

func main() {
	exportPath := flag.String("export", "", "path to the legacy JSON export")
	flag.Parse()

	logger := util.InitLogger(os.Getenv("LOG_LEVEL"))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL is required")
	}
	if *exportPath == "" {
		log.Fatal("-export is required")
	}

	data, err := os.ReadFile(*exportPath)
	if err != nil {
		log.Fatalf("read export: %v", err)
	}
	var export exportFile
	if err := json.Unmarshal(data, &export); err != nil {
		log.Fatalf("parse export: %v", err)
	}

	db, err := store.NewGormStore(dsn)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	games := make([]domain.Game, 0, len(export.Games))
	for _, g := range export.Games {
		code := normCode(g.Code)
		if g.Name == "" || code == "" {
			logger.Warn("skipping game with blank name or code", "name", g.Name, "code", g.Code)
			continue
		}
		orderIndex := 999
		if g.OrderIndex != nil {
			orderIndex = *g.OrderIndex
		}
		games = append(games, domain.Game{
			Name:        g.Name,
			Code:        code,
			DefaultTime: g.DefaultTime,
			OrderIndex:  orderIndex,
		})
	}
	if err := db.UpsertGames(games); err != nil {
		log.Fatalf("import games: %v", err)
	}
	logger.Info("imported games", "count", len(games))

	var userCount int
	for _, u := range export.Users {
		if u.Email == "" || u.PasswordHash == "" {
			logger.Warn("skipping user with blank email or password hash", "email", u.Email)
			continue
		}
		role := domain.RoleViewer
		if u.Role == string(domain.RoleAdmin) {
			role = domain.RoleAdmin
		}
		_, err := db.CreateUser(domain.User{
			Name:         u.Name,
			Email:        u.Email,
			Role:         role,
			PasswordHash: u.PasswordHash,
		})
		if errors.Is(err, store.ErrDuplicate) {
			logger.Warn("user already exists", "email", u.Email)
			continue
		}
		if err != nil {
			log.Fatalf("import user %s: %v", u.Email, err)
		}
		userCount++
	}
	logger.Info("imported users", "count", userCount)

	var resultCount int
	for _, r := range export.Results {
		code := normCode(r.GameCode)
		g, ok, err := db.GetGameByCode(code)
		if err != nil {
			log.Fatalf("resolve game %s: %v", code, err)
		}
		if !ok {
			logger.Warn("skipping result for unknown game", "code", code, "date", r.DateStr)
			continue
		}
		slotMin, err := timeslot.ToMinutes(r.Time)
		if err != nil {
			logger.Warn("skipping result with bad time", "code", code, "date", r.DateStr, "time", r.Time)
			continue
		}
		value := r.Value
		if value == "" {
			value = domain.SentinelValue
		}
		source := r.Source
		if source == "" {
			source = "import"
		}
		if _, err := db.AppendResult(domain.Result{
			GameID:  g.ID,
			DateStr: r.DateStr,
			SlotMin: slotMin,
			Value:   value,
			Source:  source,
			Note:    r.Note,
		}); err != nil {
			log.Fatalf("import result %s %s: %v", code, r.DateStr, err)
		}
		resultCount++
	}
	logger.Info("imported results", "count", resultCount)

	var otpCount int
	for _, t := range export.OTPTokens {
		if t.Email == "" {
			continue
		}
		if err := db.UpsertOTPToken(domain.OTPToken{
			Email:     t.Email,
			OTPHash:   t.OTPHash,
			ExpiresAt: t.ExpiresAt,
			Attempts:  t.Attempts,
		}); err != nil {
			log.Fatalf("import otp token %s: %v", t.Email, err)
		}
		otpCount++
	}
	logger.Info("imported otp tokens", "count", otpCount)
}

func normCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
