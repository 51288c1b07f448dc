package main

import (
	"log"
	"os"
	"time"

	"github.com/Ryz0n/auth-service/internal/config"
	"github.com/Ryz0n/auth-service/internal/database"
	"github.com/Ryz0n/auth-service/internal/email"
	"github.com/Ryz0n/auth-service/internal/server"
	"github.com/Ryz0n/auth-service/internal/tokens"
)

func main() {
	cfg := config.Load()

	if err := cfg.ValidateSecrets(); err != nil {
		log.Fatal("❌ Token secret configuration error: ", err)
	}
	log.Println("✅ Token secrets validated")

	requiredEnvVars := map[string]string{
		"DB_HOST":     os.Getenv("DB_HOST"),
		"DB_NAME":     os.Getenv("DB_NAME"),
		"DB_USER":     os.Getenv("DB_USER"),
		"DB_PASSWORD": os.Getenv("DB_PASSWORD"),
	}

	for key, value := range requiredEnvVars {
		if value == "" {
			log.Fatalf("❌ Required environment variable %s is not set", key)
		}
	}
	log.Println("✅ Required environment variables validated")

	tokens.Init(cfg)

	// ========== DATABASE SETUP ==========
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatal("❌ Database connection failed:", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatal("❌ Migration failed: ", err)
	}
	log.Println("✅ Database migrated successfully")

	// ========== EMAIL SETUP ==========
	mailer := email.FromConfig(cfg)
	if cfg.SMTPAddr == "" {
		log.Println("📧 No SMTP relay configured, using dev log sender")
	} else {
		log.Printf("📧 SMTP relay: %s", cfg.SMTPAddr)
	}

	// ========== BACKGROUND JOBS ==========
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()

		for range ticker.C {
			tokens.SweepExpired()
		}
	}()

	// ========== START SERVER ==========
	app := server.New(cfg, mailer)

	log.Printf("🚀 Auth server starting on %s", cfg.ServerAddr)
	log.Printf("🔐 Access token TTL: %s", cfg.AccessTTL)

	if err := app.Listen(cfg.ServerAddr); err != nil {
		log.Fatal("❌ Failed to start server:", err)
	}
}
