package database

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/voxchat/backend/internal/models"
	"github.com/voxchat/backend/internal/telemetry"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB holds the database connection
var DB *gorm.DB

// Initialize creates and configures the database connection. DB_DRIVER=sqlite
// opens an embedded database (used by tests and local development); anything
// else connects to PostgreSQL.
func Initialize() error {
	var dialector gorm.Dialector
	if os.Getenv("DB_DRIVER") == "sqlite" {
		path := getEnvOrDefault("DB_PATH", "voxchat.db")
		dialector = sqlite.Open(path)
	} else {
		databaseURL := os.Getenv("DATABASE_URL")
		if databaseURL == "" {
			// Fallback to individual components
			host := getEnvOrDefault("DB_HOST", "localhost")
			port := getEnvOrDefault("DB_PORT", "5432")
			user := getEnvOrDefault("DB_USER", "postgres")
			password := getEnvOrDefault("DB_PASSWORD", "")
			dbname := getEnvOrDefault("DB_NAME", "voxchat")
			sslmode := getEnvOrDefault("DB_SSLMODE", "disable")

			databaseURL = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
				host, port, user, password, dbname, sslmode)
		}
		dialector = postgres.Open(databaseURL)
	}

	// Configure GORM logger
	gormLogger := logger.Default
	if os.Getenv("ENVIRONMENT") == "development" {
		gormLogger = logger.Default.LogMode(logger.Info)
	}

	// Open database connection
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormLogger,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.Use(telemetry.GORMTracingPlugin()); err != nil {
		log.Printf("Warning: Could not register database tracing: %v", err)
	}

	DB = db
	log.Println("✅ Database connected successfully")

	return nil
}

// Migrate runs auto-migration for all models
func Migrate() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	if DB.Dialector.Name() == "postgres" {
		// Enable UUID extension for PostgreSQL
		err := DB.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"").Error
		if err != nil {
			log.Printf("Warning: Could not create uuid-ossp extension: %v", err)
		}
	}

	// Auto-migrate all models
	err := DB.AutoMigrate(
		&models.User{},
		&models.MessageDraft{},
		&models.VoiceNote{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Create indexes for performance
	err = createIndexes()
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	log.Println("✅ Database migrations completed")
	return nil
}

// createIndexes creates performance indexes
func createIndexes() error {
	if DB.Dialector.Name() != "postgres" {
		return nil
	}

	// User indexes
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_users_email_lower ON users (LOWER(email))")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_users_username_lower ON users (LOWER(username))")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_users_stream_user_id ON users (stream_user_id)")

	// Draft lookup happens on every session open
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_drafts_updated ON message_drafts (updated_at DESC)")

	// Voice note indexes for channel history queries
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_voice_notes_channel_created ON voice_notes (channel_id, created_at DESC)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_voice_notes_user_created ON voice_notes (user_id, created_at DESC)")

	return nil
}

// Close closes the database connection
func Close() error {
	if DB == nil {
		return nil
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

// Health checks database connectivity
func Health() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Ping()
}

// getEnvOrDefault returns environment variable or default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
