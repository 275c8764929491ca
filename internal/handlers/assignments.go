package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"smartbin-backend/internal/models"
	"smartbin-backend/pkg/utils"
)

// GetAssignments returns every bin's assignee set (admin only), in the
// {bin, assignee: [...]} shape the dashboard consumes.
func GetAssignments(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var rows []models.BinAssignment
		err := db.Select(&rows, `SELECT * FROM bin_assignments ORDER BY bin_id, created_at`)
		if err != nil {
			log.Printf("❌ Error fetching assignments: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch assignments")
			return
		}

		byBin := make(map[string]*models.AssignmentResponse)
		order := []string{}
		for _, row := range rows {
			resp, ok := byBin[row.BinID]
			if !ok {
				resp = &models.AssignmentResponse{BinID: row.BinID, Assignees: []string{}}
				byBin[row.BinID] = resp
				order = append(order, row.BinID)
			}
			resp.Assignees = append(resp.Assignees, row.UserID)
		}

		out := make([]models.AssignmentResponse, 0, len(order))
		for _, binID := range order {
			out = append(out, *byBin[binID])
		}
		utils.RespondJSON(w, http.StatusOK, out)
	}
}

// GetBinAssignees returns one bin's assignee set (admin only).
func GetBinAssignees(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		binID := chi.URLParam(r, "id")

		var n int
		if err := db.Get(&n, `SELECT COUNT(*) FROM bins WHERE id = $1`, binID); err != nil || n == 0 {
			utils.RespondError(w, http.StatusNotFound, "Bin not found")
			return
		}

		assignees := []string{}
		err := db.Select(&assignees, `
			SELECT user_id FROM bin_assignments WHERE bin_id = $1 ORDER BY created_at
		`, binID)
		if err != nil {
			log.Printf("❌ Error fetching assignees for bin %s: %v", binID, err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch assignees")
			return
		}
		utils.RespondJSON(w, http.StatusOK, models.AssignmentResponse{BinID: binID, Assignees: assignees})
	}
}

// AssignUser adds a user to a bin's assignee set (admin only).
// Idempotent; assigning twice is not an error.
func AssignUser(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		binID := chi.URLParam(r, "id")
		userID := chi.URLParam(r, "userId")

		var n int
		if err := db.Get(&n, `SELECT COUNT(*) FROM bins WHERE id = $1`, binID); err != nil || n == 0 {
			utils.RespondError(w, http.StatusNotFound, "Bin not found")
			return
		}
		if err := db.Get(&n, `SELECT COUNT(*) FROM users WHERE id = $1 AND is_deleted = FALSE`, userID); err != nil || n == 0 {
			utils.RespondError(w, http.StatusNotFound, "User not found")
			return
		}

		_, err := db.Exec(`
			INSERT INTO bin_assignments (id, bin_id, user_id, created_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (bin_id, user_id) DO NOTHING
		`, uuid.NewString(), binID, userID, time.Now().Unix())
		if err != nil {
			log.Printf("❌ Error assigning user %s to bin %s: %v", userID, binID, err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to assign user")
			return
		}

		log.Printf("✅ User %s assigned to bin %s", userID, binID)
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
	}
}

// UnassignUser removes a user from a bin's assignee set (admin only).
func UnassignUser(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		binID := chi.URLParam(r, "id")
		userID := chi.URLParam(r, "userId")

		result, err := db.Exec(`
			DELETE FROM bin_assignments WHERE bin_id = $1 AND user_id = $2
		`, binID, userID)
		if err != nil {
			log.Printf("❌ Error unassigning user %s from bin %s: %v", userID, binID, err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to unassign user")
			return
		}

		if rows, _ := result.RowsAffected(); rows == 0 {
			utils.RespondError(w, http.StatusNotFound, "Assignment not found")
			return
		}
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
	}
}
