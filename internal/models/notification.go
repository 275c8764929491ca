package models

import (
	"fmt"
	"time"
)

// Notification records a threshold crossing for a bin. Created at most once
// per (bin, tier, episode); the only mutation ever applied is mark-read.
type Notification struct {
	ID             string `json:"notificationId" db:"id"` // unique per bin, not globally
	BinID          string `json:"bin" db:"bin_id"`
	TrashLevel     int    `json:"trashLevel" db:"trash_level"`
	Datetime       string `json:"datetime" db:"datetime"` // formatted, server zone (bins are co-located with the server)
	IsRead         bool   `json:"isRead" db:"is_read"`
	OccurredAtUnix int64  `json:"occurred_at" db:"occurred_at"`
}

// NewNotification builds the document for a tier crossing. The id is
// derived from the crossing time and level so a replay of the same
// crossing collides on the (bin, id) key instead of duplicating; two bins
// crossing in the same second share an id and are kept apart by bin.
func NewNotification(binID string, level int, at time.Time) Notification {
	return Notification{
		ID:             fmt.Sprintf("%s-%d", at.Format("20060102150405"), level),
		BinID:          binID,
		TrashLevel:     level,
		Datetime:       at.Format("Jan 02, 2006 3:04 PM"),
		IsRead:         false,
		OccurredAtUnix: at.Unix(),
	}
}
