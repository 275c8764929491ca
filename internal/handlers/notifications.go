package handlers

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"

	"smartbin-backend/internal/middleware"
	"smartbin-backend/internal/models"
	"smartbin-backend/pkg/utils"
)

// GetNotifications lists threshold notifications, newest first. Admins
// see all bins; users see only their assigned bins. ?unread=true filters
// to unread.
func GetNotifications(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		query := `SELECT n.* FROM notifications n`
		args := []interface{}{}
		where := ""

		if user.Role != models.RoleAdmin {
			query += ` JOIN bin_assignments a ON a.bin_id = n.bin_id`
			args = append(args, user.UserID)
			where = ` WHERE a.user_id = $1`
		}
		if r.URL.Query().Get("unread") == "true" {
			if where == "" {
				where = ` WHERE n.is_read = FALSE`
			} else {
				where += ` AND n.is_read = FALSE`
			}
		}
		query += where + ` ORDER BY n.occurred_at DESC`

		var notifications []models.Notification
		if err := db.Select(&notifications, query, args...); err != nil {
			log.Printf("❌ Error fetching notifications: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch notifications")
			return
		}
		utils.RespondJSON(w, http.StatusOK, notifications)
	}
}

// MarkNotificationRead flips is_read on one notification. This is the
// only mutation notifications ever receive. Ids are only unique per bin,
// so ?bin= narrows the update when two bins crossed in the same second.
func MarkNotificationRead(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		query := `UPDATE notifications SET is_read = TRUE WHERE id = $1`
		args := []interface{}{id}
		if binID := r.URL.Query().Get("bin"); binID != "" {
			args = append(args, binID)
			query += ` AND bin_id = $2`
		}

		result, err := db.Exec(query, args...)
		if err != nil {
			log.Printf("❌ Error marking notification %s read: %v", id, err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to update notification")
			return
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			utils.RespondError(w, http.StatusNotFound, "Notification not found")
			return
		}
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
	}
}
