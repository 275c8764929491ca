package database

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

func Connect(dbURL string) (*sqlx.DB, error) {
	log.Println("🔌 Connecting to Postgres...")

	db, err := sqlx.Connect("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("✅ Database connection established")
	return db, nil
}

func Migrate(db *sqlx.DB) error {
	migrations := []string{
		// Create users table
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL,
			role TEXT NOT NULL CHECK(role IN ('admin', 'user')),
			is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,

		// Create bins table
		`CREATE TABLE IF NOT EXISTS bins (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			status TEXT NOT NULL DEFAULT 'active' CHECK(status IN ('active', 'offline', 'retired')),
			current_level INT,
			latitude DOUBLE PRECISION,
			longitude DOUBLE PRECISION,
			altitude DOUBLE PRECISION,
			last_report_at BIGINT,
			retired_at BIGINT,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,

		// Create trash_level_samples table (append-only, rate limited)
		`CREATE TABLE IF NOT EXISTS trash_level_samples (
			id SERIAL PRIMARY KEY,
			bin_id TEXT NOT NULL,
			trash_level INT NOT NULL CHECK(trash_level BETWEEN 0 AND 100),
			created_at BIGINT NOT NULL,
			FOREIGN KEY (bin_id) REFERENCES bins(id) ON DELETE CASCADE
		)`,

		// Create notifications table (append + mark-read only). The id
		// encodes time+level and is only unique per bin, so the key is
		// the (bin, id) pair.
		`CREATE TABLE IF NOT EXISTS notifications (
			id TEXT NOT NULL,
			bin_id TEXT NOT NULL,
			trash_level INT NOT NULL,
			datetime TEXT NOT NULL,
			is_read BOOLEAN NOT NULL DEFAULT FALSE,
			occurred_at BIGINT NOT NULL,
			PRIMARY KEY (bin_id, id),
			FOREIGN KEY (bin_id) REFERENCES bins(id) ON DELETE CASCADE
		)`,

		// Create emptying_events table (immutable once written)
		`CREATE TABLE IF NOT EXISTS emptying_events (
			id TEXT PRIMARY KEY,
			bin_id TEXT NOT NULL,
			collector TEXT NOT NULL,
			user_id TEXT NOT NULL,
			volume_liters DOUBLE PRECISION NOT NULL CHECK(volume_liters >= 0),
			emptied_at BIGINT NOT NULL,
			FOREIGN KEY (bin_id) REFERENCES bins(id) ON DELETE CASCADE,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		)`,

		// Create bin_assignments table (membership rows, one per bin/user)
		`CREATE TABLE IF NOT EXISTS bin_assignments (
			id TEXT PRIMARY KEY,
			bin_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			UNIQUE (bin_id, user_id),
			FOREIGN KEY (bin_id) REFERENCES bins(id) ON DELETE CASCADE,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		)`,

		// Create FCM tokens table
		`CREATE TABLE IF NOT EXISTS fcm_tokens (
			id SERIAL PRIMARY KEY,
			user_id TEXT NOT NULL,
			token TEXT NOT NULL UNIQUE,
			device_type TEXT NOT NULL CHECK(device_type IN ('ios', 'android')),
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		)`,

		// Create indexes
		`CREATE INDEX IF NOT EXISTS idx_users_email ON users(email)`,
		`CREATE INDEX IF NOT EXISTS idx_users_role ON users(role) WHERE is_deleted = FALSE`,
		`CREATE INDEX IF NOT EXISTS idx_samples_bin_id ON trash_level_samples(bin_id)`,
		`CREATE INDEX IF NOT EXISTS idx_samples_created_at ON trash_level_samples(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_bin_id ON notifications(bin_id)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_is_read ON notifications(is_read)`,
		`CREATE INDEX IF NOT EXISTS idx_emptying_events_bin_id ON emptying_events(bin_id)`,
		`CREATE INDEX IF NOT EXISTS idx_emptying_events_user_id ON emptying_events(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_emptying_events_emptied_at ON emptying_events(emptied_at)`,
		`CREATE INDEX IF NOT EXISTS idx_bin_assignments_bin_id ON bin_assignments(bin_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bin_assignments_user_id ON bin_assignments(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_fcm_tokens_user_id ON fcm_tokens(user_id)`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	log.Println("✓ Database migrations completed")
	return nil
}
