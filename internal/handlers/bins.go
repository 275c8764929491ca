package handlers

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"smartbin-backend/internal/ingest"
	"smartbin-backend/internal/middleware"
	"smartbin-backend/internal/models"
	"smartbin-backend/pkg/utils"
)

// GetBins lists the bins the caller may see: admins get all bins, users
// get only the bins they are assigned to.
func GetBins(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var bins []models.Bin
		var err error
		if user.Role == models.RoleAdmin {
			err = db.Select(&bins, `SELECT * FROM bins ORDER BY name`)
		} else {
			err = db.Select(&bins, `
				SELECT b.* FROM bins b
				JOIN bin_assignments a ON a.bin_id = b.id
				WHERE a.user_id = $1
				ORDER BY b.name
			`, user.UserID)
		}
		if err != nil {
			log.Printf("❌ Error fetching bins: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch bins")
			return
		}

		responses := make([]models.BinResponse, len(bins))
		for i := range bins {
			responses[i] = bins[i].ToBinResponse()
		}
		utils.RespondJSON(w, http.StatusOK, responses)
	}
}

// GetBin returns one bin, subject to the same visibility rule as GetBins.
func GetBin(db *sqlx.DB) http.HandlerFunc {
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
		utils.RespondJSON(w, http.StatusOK, bin.ToBinResponse())
	}
}

// CreateBin registers a new bin and starts watching its telemetry feed
// (admin only). The name doubles as the sensor key in the feed.
func CreateBin(db *sqlx.DB, ingestor *ingest.Ingestor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.CreateBinRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			utils.RespondError(w, http.StatusBadRequest, "Bin name is required")
			return
		}

		id := uuid.NewString()
		now := time.Now().Unix()
		_, err := db.Exec(`
			INSERT INTO bins (id, name, status, latitude, longitude, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $6)
		`, id, req.Name, models.BinStatusActive, req.Latitude, req.Longitude, now)
		if err != nil {
			log.Printf("❌ Error creating bin: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to create bin")
			return
		}

		if ingestor != nil {
			if err := ingestor.Watch(id, req.Name); err != nil {
				log.Printf("⚠️  Bin %s created but telemetry watch failed: %v", id, err)
			}
		}

		log.Printf("✅ Bin created: %s (%s)", req.Name, id)

		var bin models.Bin
		if err := db.Get(&bin, `SELECT * FROM bins WHERE id = $1`, id); err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Database error")
			return
		}
		utils.RespondJSON(w, http.StatusCreated, bin.ToBinResponse())
	}
}

// UpdateBin patches a bin's metadata (admin only). Moving a bin to
// "retired" stops its telemetry watch; moving it back resumes it.
func UpdateBin(db *sqlx.DB, ingestor *ingest.Ingestor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		binID := chi.URLParam(r, "id")

		var req models.UpdateBinRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

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

		if req.Status != nil {
			switch *req.Status {
			case models.BinStatusActive, models.BinStatusOffline, models.BinStatusRetired:
			default:
				utils.RespondError(w, http.StatusBadRequest, "Invalid status")
				return
			}
		}

		name := bin.Name
		if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
			name = strings.TrimSpace(*req.Name)
		}
		status := bin.Status
		if req.Status != nil {
			status = *req.Status
		}
		lat := bin.Latitude
		if req.Latitude != nil {
			lat = req.Latitude
		}
		lon := bin.Longitude
		if req.Longitude != nil {
			lon = req.Longitude
		}

		now := time.Now().Unix()
		var retiredAt *int64
		if status == models.BinStatusRetired {
			if bin.RetiredAt != nil {
				retiredAt = bin.RetiredAt
			} else {
				retiredAt = &now
			}
		}

		_, err = db.Exec(`
			UPDATE bins
			SET name = $1, status = $2, latitude = $3, longitude = $4, retired_at = $5, updated_at = $6
			WHERE id = $7
		`, name, status, lat, lon, retiredAt, now, binID)
		if err != nil {
			log.Printf("❌ Error updating bin %s: %v", binID, err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to update bin")
			return
		}

		if ingestor != nil {
			renamed := name != bin.Name
			switch {
			case status == models.BinStatusRetired && bin.Status != models.BinStatusRetired:
				ingestor.Unwatch(binID)
			case status != models.BinStatusRetired && bin.Status == models.BinStatusRetired:
				if err := ingestor.Watch(binID, name); err != nil {
					log.Printf("⚠️  Bin %s reactivated but telemetry watch failed: %v", binID, err)
				}
			case renamed && status != models.BinStatusRetired:
				// Sensor key changed; re-subscribe under the new name.
				ingestor.Unwatch(binID)
				if err := ingestor.Watch(binID, name); err != nil {
					log.Printf("⚠️  Bin %s renamed but telemetry watch failed: %v", binID, err)
				}
			}
		}

		if err := db.Get(&bin, `SELECT * FROM bins WHERE id = $1`, binID); err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Database error")
			return
		}
		utils.RespondJSON(w, http.StatusOK, bin.ToBinResponse())
	}
}

// DeleteBin retires a bin (admin only). Bins are never hard-deleted so
// their sample and event history survives; retiring stops the telemetry
// watch.
func DeleteBin(db *sqlx.DB, ingestor *ingest.Ingestor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		binID := chi.URLParam(r, "id")

		now := time.Now().Unix()
		result, err := db.Exec(`
			UPDATE bins
			SET status = $1, retired_at = COALESCE(retired_at, $2), updated_at = $2
			WHERE id = $3
		`, models.BinStatusRetired, now, binID)
		if err != nil {
			log.Printf("❌ Error retiring bin %s: %v", binID, err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to retire bin")
			return
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			utils.RespondError(w, http.StatusNotFound, "Bin not found")
			return
		}

		if ingestor != nil {
			ingestor.Unwatch(binID)
		}

		log.Printf("🗑 Bin retired: %s", binID)
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
	}
}
