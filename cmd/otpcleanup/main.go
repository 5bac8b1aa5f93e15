// Command otpcleanup deletes expired OTP token rows. Run it from cron;
// the live API never reads this table.
package main

import (
	"log"
	"os"
	"time"

	"drawtrack/internal/util"
	"drawtrack/pkg/store"
)

func main() {
	logger := util.InitLogger(os.Getenv("LOG_LEVEL"))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL is required")
	}

	db, err := store.NewGormStore(dsn)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	deleted, err := db.DeleteExpiredOTPTokens(time.Now().UTC())
	if err != nil {
		log.Fatalf("delete expired otp tokens: %v", err)
	}
	logger.Info("otp cleanup complete", "deleted", deleted)
}
