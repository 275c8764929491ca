package database

import (
	"log"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

func SeedUsers(db *sqlx.DB) error {
	// Check if users already exist
	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM users"); err != nil {
		return err
	}

	if count > 0 {
		log.Println("✓ Users already seeded, skipping...")
		return nil
	}

	log.Println("🌱 Seeding initial users...")

	users := []struct {
		Email     string
		Password  string
		FirstName string
		LastName  string
		Role      string
	}{
		{"admin@smartbin.local", "admin123", "Sam", "Supervisor", "admin"},
		{"jordan@smartbin.local", "collect123", "Jordan", "Reyes", "user"},
		{"casey@smartbin.local", "collect123", "Casey", "Nguyen", "user"},
	}

	for _, u := range users {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		_, err = db.Exec(`
			INSERT INTO users (id, email, password, first_name, last_name, role)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, uuid.NewString(), u.Email, string(hash), u.FirstName, u.LastName, u.Role)
		if err != nil {
			return err
		}
	}

	log.Printf("✓ Seeded %d users", len(users))
	return nil
}

func SeedBins(db *sqlx.DB) error {
	// Check if bins already exist
	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM bins"); err != nil {
		return err
	}

	if count > 0 {
		log.Println("✓ Bins already seeded, skipping...")
		return nil
	}

	log.Println("🌱 Seeding bins...")

	// Bin names double as sensor keys in the telemetry feed.
	bins := []struct {
		Name      string
		Latitude  float64
		Longitude float64
	}{
		{"bin-civic-center", 37.3382, -121.8863},
		{"bin-market-st", 37.3339, -121.8905},
		{"bin-st-james-park", 37.3392, -121.8896},
		{"bin-san-pedro-square", 37.3360, -121.8942},
		{"bin-convention-center", 37.3294, -121.8890},
		{"bin-japantown", 37.3487, -121.8946},
	}

	for _, b := range bins {
		_, err := db.Exec(`
			INSERT INTO bins (id, name, status, latitude, longitude)
			VALUES ($1, $2, 'active', $3, $4)
		`, uuid.NewString(), b.Name, b.Latitude, b.Longitude)
		if err != nil {
			return err
		}
	}

	log.Printf("✓ Seeded %d bins", len(bins))
	return nil
}
