package handlers

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"

	"smartbin-backend/internal/middleware"
	"smartbin-backend/internal/models"
	"smartbin-backend/pkg/utils"
)

// parseTimeParam accepts either RFC3339 or a Unix-seconds integer.
func parseTimeParam(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0), true
	}
	return time.Time{}, false
}

// GetBinSamples returns a bin's level samples, oldest first, optionally
// restricted to ?from=..&to=.. (RFC3339 or Unix seconds).
func GetBinSamples(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		binID := chi.URLParam(r, "id")

		if user.Role != models.RoleAdmin {
			var n int
			if err := db.Get(&n, `SELECT COUNT(*) FROM bin_assignments WHERE bin_id = $1 AND user_id = $2`, binID, user.UserID); err != nil || n == 0 {
				utils.RespondError(w, http.StatusNotFound, "Bin not found")
				return
			}
		}

		query := `SELECT * FROM trash_level_samples WHERE bin_id = $1`
		args := []interface{}{binID}

		if from, ok := parseTimeParam(r.URL.Query().Get("from")); ok {
			args = append(args, from.Unix())
			query += ` AND created_at >= $` + strconv.Itoa(len(args))
		}
		if to, ok := parseTimeParam(r.URL.Query().Get("to")); ok {
			args = append(args, to.Unix())
			query += ` AND created_at <= $` + strconv.Itoa(len(args))
		}
		query += ` ORDER BY created_at ASC`

		var samples []models.TrashLevelSample
		if err := db.Select(&samples, query, args...); err != nil {
			log.Printf("❌ Error fetching samples for bin %s: %v", binID, err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch samples")
			return
		}

		responses := make([]models.SampleResponse, len(samples))
		for i := range samples {
			responses[i] = samples[i].ToSampleResponse()
		}
		utils.RespondJSON(w, http.StatusOK, responses)
	}
}
