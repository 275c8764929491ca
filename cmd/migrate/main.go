package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"smartbin-backend/internal/database"
)

// Standalone migrate-and-seed, for setting up a database without booting
// the full server.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := database.Connect(dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	if os.Getenv("SKIP_SEED") == "" {
		if err := database.SeedUsers(db); err != nil {
			log.Fatalf("User seeding failed: %v", err)
		}
		if err := database.SeedBins(db); err != nil {
			log.Fatalf("Bin seeding failed: %v", err)
		}
	} else {
		log.Println("SKIP_SEED set, leaving tables empty")
	}

	var result struct {
		Users      int `db:"users"`
		Bins       int `db:"bins"`
		ActiveBins int `db:"active_bins"`
	}
	query := `
		SELECT
			(SELECT COUNT(*) FROM users WHERE is_deleted = FALSE) AS users,
			(SELECT COUNT(*) FROM bins) AS bins,
			(SELECT COUNT(*) FROM bins WHERE status = 'active') AS active_bins
	`
	if err := db.Get(&result, query); err != nil {
		log.Fatalf("Failed to query summary: %v", err)
	}

	fmt.Println("\n============================================================")
	fmt.Println("MIGRATION SUMMARY")
	fmt.Println("============================================================")
	fmt.Printf("Users:            %d\n", result.Users)
	fmt.Printf("Bins:             %d\n", result.Bins)
	fmt.Printf("Active bins:      %d\n", result.ActiveBins)
	fmt.Println("============================================================")
}
