package handlers

import (
	"database/sql"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"

	"smartbin-backend/internal/emptying"
	"smartbin-backend/internal/middleware"
	"smartbin-backend/internal/models"
	"smartbin-backend/pkg/utils"
)

// StartEmptying opens an emptying session for the bin and blocks until
// the sensor confirms, the window times out, or the collector cancels.
// Returns 409 when a session is already waiting on this bin.
func StartEmptying(db *sqlx.DB, recorder *emptying.Recorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		binID := chi.URLParam(r, "id")

		var bin models.Bin
		err := db.Get(&bin, `SELECT * FROM bins WHERE id = $1`, binID)
		if err == sql.ErrNoRows {
			utils.RespondError(w, http.StatusNotFound, "Bin not found")
			return
		}
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Database error")
			return
		}

		var collector models.User
		if err := db.Get(&collector, `SELECT * FROM users WHERE id = $1`, user.UserID); err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Database error")
			return
		}

		levelBefore := 0
		if bin.CurrentLevel != nil {
			levelBefore = *bin.CurrentLevel
		}

		log.Printf("🗑 Emptying started for bin %s by %s (level %d%%)", binID, collector.Email, levelBefore)

		result, err := recorder.Start(r.Context(), binID, collector.ID, collector.DisplayName(), levelBefore)
		if errors.Is(err, emptying.ErrSessionActive) {
			utils.RespondError(w, http.StatusConflict, "An emptying session is already active for this bin")
			return
		}
		if err != nil {
			log.Printf("❌ Emptying session for bin %s failed: %v", binID, err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to record emptying")
			return
		}

		resp := map[string]interface{}{"outcome": result.Outcome.String()}
		if result.Event != nil {
			resp["event"] = result.Event.ToEmptyingEventResponse()
			log.Printf("✅ Bin %s emptied: %.2f L credited to %s", binID, result.Event.VolumeL, collector.Email)
		} else {
			log.Printf("ℹ️  Emptying for bin %s ended: %s", binID, result.Outcome)
		}
		utils.RespondJSON(w, http.StatusOK, resp)
	}
}

// CancelEmptying aborts the bin's waiting session, if any.
func CancelEmptying(recorder *emptying.Recorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		binID := chi.URLParam(r, "id")
		if !recorder.Cancel(binID) {
			utils.RespondError(w, http.StatusNotFound, "No active emptying session for this bin")
			return
		}
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
	}
}

// GetEmptyings lists emptying events, newest first, optionally
// restricted to ?from=..&to=.. and ?bin=.. Admins see everything; users
// see only their own events.
func GetEmptyings(db *sqlx.DB) http.HandlerFunc {
	return listEmptyings(db, false)
}

// GetBinEmptyings lists one bin's emptying events, newest first, with
// the same ?from=&to= range filters.
func GetBinEmptyings(db *sqlx.DB) http.HandlerFunc {
	return listEmptyings(db, true)
}

func listEmptyings(db *sqlx.DB, binFromPath bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		query := `SELECT * FROM emptying_events WHERE 1=1`
		args := []interface{}{}

		if user.Role != models.RoleAdmin {
			args = append(args, user.UserID)
			query += ` AND user_id = $` + strconv.Itoa(len(args))
		}
		binID := r.URL.Query().Get("bin")
		if binFromPath {
			binID = chi.URLParam(r, "id")
		}
		if binID != "" {
			args = append(args, binID)
			query += ` AND bin_id = $` + strconv.Itoa(len(args))
		}
		if from, ok := parseTimeParam(r.URL.Query().Get("from")); ok {
			args = append(args, from.Unix())
			query += ` AND emptied_at >= $` + strconv.Itoa(len(args))
		}
		if to, ok := parseTimeParam(r.URL.Query().Get("to")); ok {
			args = append(args, to.Unix())
			query += ` AND emptied_at <= $` + strconv.Itoa(len(args))
		}
		query += ` ORDER BY emptied_at DESC`

		var events []models.EmptyingEvent
		if err := db.Select(&events, query, args...); err != nil {
			log.Printf("❌ Error fetching emptying events: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch emptying events")
			return
		}

		responses := make([]models.EmptyingEventResponse, len(events))
		for i := range events {
			responses[i] = events[i].ToEmptyingEventResponse()
		}
		utils.RespondJSON(w, http.StatusOK, responses)
	}
}
