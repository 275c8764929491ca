package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"smartbin-backend/internal/models"
)

// Store implements the persistence interfaces the pipeline components
// depend on (notifier.Store, emptying.Store, ingest.Store,
// aggregate.EventSource) on top of Postgres.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// SaveNotification appends a threshold notification. The id encodes the
// crossing time and level, so a replay of the same crossing collides on
// the (bin, id) key and is ignored instead of duplicated. Different bins
// crossing in the same second carry the same id and must both land.
func (s *Store) SaveNotification(ctx context.Context, n models.Notification) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, bin_id, trash_level, datetime, is_read, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (bin_id, id) DO NOTHING
	`, n.ID, n.BinID, n.TrashLevel, n.Datetime, n.IsRead, n.OccurredAtUnix)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// SaveEmptyingEvent appends one immutable emptying event.
func (s *Store) SaveEmptyingEvent(ctx context.Context, e models.EmptyingEvent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO emptying_events (id, bin_id, collector, user_id, volume_liters, emptied_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, e.ID, e.BinID, e.Collector, e.UserID, e.VolumeL, e.EmptiedAt)
	if err != nil {
		return fmt.Errorf("insert emptying event: %w", err)
	}
	return nil
}

// SaveSample appends one rate-limited level snapshot.
func (s *Store) SaveSample(ctx context.Context, sample models.TrashLevelSample) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trash_level_samples (bin_id, trash_level, created_at)
		VALUES ($1, $2, $3)
	`, sample.BinID, sample.TrashLevel, sample.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert level sample: %w", err)
	}
	return nil
}

// UpdateBinTelemetry writes the bin's latest computed level and position.
// Whole-record last-writer-wins; partial writes cannot happen since this
// is a single UPDATE.
func (s *Store) UpdateBinTelemetry(ctx context.Context, binID string, levelPercent int, gps *models.GPS, at time.Time) error {
	var lat, lon, alt *float64
	if gps != nil {
		lat, lon, alt = gps.Latitude, gps.Longitude, gps.Altitude
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE bins
		SET current_level = $1,
		    latitude = COALESCE($2, latitude),
		    longitude = COALESCE($3, longitude),
		    altitude = COALESCE($4, altitude),
		    last_report_at = $5,
		    updated_at = $5
		WHERE id = $6
	`, levelPercent, lat, lon, alt, at.Unix(), binID)
	if err != nil {
		return fmt.Errorf("update bin telemetry: %w", err)
	}
	return nil
}

// EventsSince returns emptying events at or after since, oldest first.
// A nil since returns the whole log.
func (s *Store) EventsSince(ctx context.Context, since *time.Time) ([]models.EmptyingEvent, error) {
	events := []models.EmptyingEvent{}
	var err error
	if since == nil {
		err = s.db.SelectContext(ctx, &events, `
			SELECT id, bin_id, collector, user_id, volume_liters, emptied_at
			FROM emptying_events
			ORDER BY emptied_at ASC
		`)
	} else {
		err = s.db.SelectContext(ctx, &events, `
			SELECT id, bin_id, collector, user_id, volume_liters, emptied_at
			FROM emptying_events
			WHERE emptied_at >= $1
			ORDER BY emptied_at ASC
		`, since.Unix())
	}
	if err != nil {
		return nil, fmt.Errorf("select emptying events: %w", err)
	}
	return events, nil
}

// UsersByRole returns non-deleted users with the given role.
func (s *Store) UsersByRole(ctx context.Context, role string) ([]models.User, error) {
	users := []models.User{}
	err := s.db.SelectContext(ctx, &users, `
		SELECT * FROM users
		WHERE role = $1 AND is_deleted = FALSE
		ORDER BY last_name, first_name
	`, role)
	if err != nil {
		return nil, fmt.Errorf("select users by role: %w", err)
	}
	return users, nil
}
