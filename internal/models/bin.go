package models

import "time"

// BinStatus values for Bin.Status
const (
	BinStatusActive  = "active"
	BinStatusOffline = "offline"
	BinStatusRetired = "retired"
)

// Bin is a physical waste bin with a distance sensor mounted under the lid.
type Bin struct {
	ID           string   `json:"id" db:"id"`
	Name         string   `json:"name" db:"name"` // sensor key in the telemetry feed
	Status       string   `json:"status" db:"status"`
	CurrentLevel *int     `json:"current_level,omitempty" db:"current_level"`
	Latitude     *float64 `json:"latitude,omitempty" db:"latitude"`
	Longitude    *float64 `json:"longitude,omitempty" db:"longitude"`
	Altitude     *float64 `json:"altitude,omitempty" db:"altitude"`
	LastReportAt *int64   `json:"last_report_at,omitempty" db:"last_report_at"` // Unix timestamp
	RetiredAt    *int64   `json:"retired_at,omitempty" db:"retired_at"`
	CreatedAt    int64    `json:"created_at" db:"created_at"`
	UpdatedAt    int64    `json:"updated_at" db:"updated_at"`
}

// BinResponse is what we send to the client with ISO timestamps
type BinResponse struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Status          string   `json:"status"`
	CurrentLevel    *int     `json:"current_level,omitempty"`
	Latitude        *float64 `json:"latitude,omitempty"`
	Longitude       *float64 `json:"longitude,omitempty"`
	Altitude        *float64 `json:"altitude,omitempty"`
	LastReportAtIso *string  `json:"lastReportAtIso,omitempty"`
}

// CreateBinRequest is the request body for POST /api/bins
type CreateBinRequest struct {
	Name      string   `json:"name"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// UpdateBinRequest is the request body for PATCH /api/bins/:id
type UpdateBinRequest struct {
	Name      *string  `json:"name,omitempty"`
	Status    *string  `json:"status,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// ToBinResponse converts a Bin to BinResponse
func (b *Bin) ToBinResponse() BinResponse {
	resp := BinResponse{
		ID:           b.ID,
		Name:         b.Name,
		Status:       b.Status,
		CurrentLevel: b.CurrentLevel,
		Latitude:     b.Latitude,
		Longitude:    b.Longitude,
		Altitude:     b.Altitude,
	}

	if b.LastReportAt != nil {
		t := time.Unix(*b.LastReportAt, 0)
		iso := t.Format(time.RFC3339)
		resp.LastReportAtIso = &iso
	}

	return resp
}
