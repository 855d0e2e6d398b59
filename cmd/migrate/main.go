package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/voxchat/backend/internal/database"
)

// Schema management entrypoint. The server also auto-migrates on boot;
// this binary exists so deploys can run migrations before rolling pods.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	switch command {
	case "up":
		migrateUp()
	case "status":
		showStatus()
	default:
		fmt.Println("Usage: migrate [up|status]")
		fmt.Println("  up     - Apply the current model schema (users, drafts, voice notes)")
		fmt.Println("  status - Check database connectivity")
		os.Exit(1)
	}
}

func migrateUp() {
	log.Println("🔄 Connecting to database...")

	if err := database.Initialize(); err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer database.Close()

	log.Println("📈 Applying schema...")
	if err := database.Migrate(); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}

	log.Println("✅ Schema is up to date")
}

func showStatus() {
	if err := database.Initialize(); err != nil {
		log.Fatalf("❌ Database unreachable: %v", err)
	}
	defer database.Close()

	log.Println("✅ Database reachable")
}
