package handlers

import (
	"log"
	"net/http"

	"smartbin-backend/internal/aggregate"
	"smartbin-backend/internal/middleware"
	"smartbin-backend/pkg/utils"
)

// GetVolumeByBin returns emptied volume per bin inside the selected
// window (?window=today|this-week|this-month|this-year|all-time).
func GetVolumeByBin(engine *aggregate.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		window, err := aggregate.ParseWindow(r.URL.Query().Get("window"))
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}

		rows, err := engine.VolumeByBin(r.Context(), window)
		if err != nil {
			log.Printf("❌ Error computing volume by bin: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to compute volume by bin")
			return
		}
		utils.RespondJSON(w, http.StatusOK, rows)
	}
}

// GetLeaderboard ranks collectors by emptied volume inside the selected
// window.
func GetLeaderboard(engine *aggregate.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		window, err := aggregate.ParseWindow(r.URL.Query().Get("window"))
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}

		rows, err := engine.Leaderboard(r.Context(), window)
		if err != nil {
			log.Printf("❌ Error computing leaderboard: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to compute leaderboard")
			return
		}
		utils.RespondJSON(w, http.StatusOK, rows)
	}
}

// GetMyStats returns the caller's rolling volume sums and month
// histogram.
func GetMyStats(engine *aggregate.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		buckets, err := engine.PerUserBuckets(r.Context(), user.UserID)
		if err != nil {
			log.Printf("❌ Error computing stats for %s: %v", user.UserID, err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to compute stats")
			return
		}
		utils.RespondJSON(w, http.StatusOK, buckets)
	}
}
