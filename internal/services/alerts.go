package services

import (
	"log"

	"github.com/jmoiron/sqlx"

	"smartbin-backend/internal/models"
	"smartbin-backend/internal/websocket"
)

// AlertDispatcher fans a persisted threshold notification out to
// connected dashboards and, when push is configured, to the mobile
// devices of everyone allowed to see the bin.
type AlertDispatcher struct {
	db  *sqlx.DB
	hub *websocket.Hub
	fcm *FCMService // nil when push notifications are disabled
}

func NewAlertDispatcher(db *sqlx.DB, hub *websocket.Hub, fcm *FCMService) *AlertDispatcher {
	return &AlertDispatcher{db: db, hub: hub, fcm: fcm}
}

// NotifyThreshold implements the ingest pipeline's alert sink. Failures
// are logged and absorbed; the notification is already persisted.
func (d *AlertDispatcher) NotifyThreshold(n models.Notification) {
	if d.hub != nil {
		d.hub.BroadcastNotification(n)
	}
	if d.fcm == nil {
		return
	}

	var binName string
	if err := d.db.Get(&binName, `SELECT name FROM bins WHERE id = $1`, n.BinID); err != nil {
		log.Printf("⚠️  Alert for bin %s: failed to resolve bin name: %v", n.BinID, err)
		binName = n.BinID
	}

	// Admins plus the bin's assignees.
	var tokens []string
	err := d.db.Select(&tokens, `
		SELECT t.token FROM fcm_tokens t
		JOIN users u ON u.id = t.user_id
		WHERE u.is_deleted = FALSE
		  AND (u.role = 'admin' OR EXISTS (
			SELECT 1 FROM bin_assignments a
			WHERE a.user_id = u.id AND a.bin_id = $1
		  ))
	`, n.BinID)
	if err != nil {
		log.Printf("⚠️  Alert for bin %s: failed to load device tokens: %v", n.BinID, err)
		return
	}

	if err := d.fcm.SendBinLevelAlert(tokens, binName, n.TrashLevel); err != nil {
		log.Printf("⚠️  Alert for bin %s: push delivery failed: %v", n.BinID, err)
	}
}
