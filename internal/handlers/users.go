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
	"golang.org/x/crypto/bcrypt"

	"smartbin-backend/internal/models"
	"smartbin-backend/pkg/utils"
)

// GetUsers returns all non-deleted accounts (admin only).
func GetUsers(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var users []models.User
		err := db.Select(&users, `
			SELECT * FROM users
			WHERE is_deleted = FALSE
			ORDER BY last_name, first_name
		`)
		if err != nil {
			log.Printf("❌ Error fetching users: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch users")
			return
		}

		responses := make([]models.UserResponse, len(users))
		for i := range users {
			responses[i] = users[i].ToUserResponse()
		}
		utils.RespondJSON(w, http.StatusOK, responses)
	}
}

// CreateUser registers a new account (admin only).
func CreateUser(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.CreateUserRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		req.Email = strings.TrimSpace(strings.ToLower(req.Email))
		if req.Email == "" || req.Password == "" {
			utils.RespondError(w, http.StatusBadRequest, "Email and password are required")
			return
		}
		if req.Role != models.RoleAdmin && req.Role != models.RoleUser {
			utils.RespondError(w, http.StatusBadRequest, "Role must be 'admin' or 'user'")
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Failed to hash password")
			return
		}

		id := uuid.NewString()
		now := time.Now().Unix()
		_, err = db.Exec(`
			INSERT INTO users (id, email, password, first_name, last_name, role, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		`, id, req.Email, string(hash), req.FirstName, req.LastName, req.Role, now)
		if err != nil {
			log.Printf("❌ Error creating user: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to create user")
			return
		}

		log.Printf("✅ User created: %s (%s)", req.Email, req.Role)
		utils.RespondJSON(w, http.StatusCreated, models.UserResponse{
			ID:        id,
			Email:     req.Email,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Role:      req.Role,
			CreatedAt: now,
		})
	}
}

// DeleteUser soft-deletes an account (admin only). Accounts are never
// hard-deleted so historical emptying events keep their attribution.
func DeleteUser(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			utils.RespondError(w, http.StatusBadRequest, "Bad Request")
			return
		}

		var existing models.User
		err := db.Get(&existing, "SELECT * FROM users WHERE id = $1 AND is_deleted = FALSE", id)
		if err == sql.ErrNoRows {
			utils.RespondError(w, http.StatusNotFound, "User not found")
			return
		}
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Database error")
			return
		}

		_, err = db.Exec(`
			UPDATE users SET is_deleted = TRUE, updated_at = $1 WHERE id = $2
		`, time.Now().Unix(), id)
		if err != nil {
			log.Printf("❌ Error deleting user: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to delete user")
			return
		}

		log.Printf("🗑 User soft-deleted: %s", existing.Email)
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
	}
}
