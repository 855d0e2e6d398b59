package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/voxchat/backend/internal/database"
	"github.com/voxchat/backend/internal/logger"
	"github.com/voxchat/backend/internal/seed"
	"github.com/voxchat/backend/internal/stream"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	if err := logger.Initialize(os.Getenv("LOG_LEVEL"), ""); err != nil {
		log.Fatalf("❌ Failed to initialize logger: %v", err)
	}

	// Parse command
	command := "dev"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	switch command {
	case "dev":
		seedDev()
	case "test":
		seedTest()
	case "clean":
		cleanSeed()
	default:
		fmt.Println("Usage: seed [dev|test|clean]")
		fmt.Println("  dev   - Seed development database with realistic data")
		fmt.Println("  test  - Seed test database with minimal data")
		fmt.Println("  clean - Remove all seed data (use with caution)")
		os.Exit(1)
	}
}

func connect() {
	if err := database.Initialize(); err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	if err := database.Migrate(); err != nil {
		log.Fatalf("❌ Failed to run migrations: %v", err)
	}
	log.Println("✅ Database connected")
}

func newSeeder() *seed.Seeder {
	seeder := seed.NewSeeder(database.DB)

	// Stream upserts are optional; the rows seed fine without them
	streamClient, err := stream.NewClient()
	if err != nil {
		log.Printf("⚠️  Stream client unavailable, skipping chat upserts: %v\n", err)
	} else {
		seeder.SetStreamClient(streamClient)
		log.Println("✅ Stream client configured")
	}

	return seeder
}

func seedDev() {
	log.Println("🌱 Seeding development database...")
	connect()
	defer database.Close()

	if err := newSeeder().SeedDev(); err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Println("✅ Development database seeded successfully!")
}

func seedTest() {
	log.Println("🧪 Seeding test database...")
	connect()
	defer database.Close()

	if err := newSeeder().SeedTest(); err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Println("✅ Test database seeded successfully!")
}

func cleanSeed() {
	log.Println("🧹 Cleaning seed data...")
	connect()
	defer database.Close()

	seeder := seed.NewSeeder(database.DB)
	if err := seeder.Clean(); err != nil {
		log.Fatalf("❌ Clean failed: %v", err)
	}

	log.Println("✅ Seed data cleaned successfully!")
}
