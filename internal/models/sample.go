package models

import "time"

// TrashLevelSample is one rate-limited level snapshot for a bin.
// Append-only; drives the dashboard charts.
type TrashLevelSample struct {
	ID         int    `json:"id" db:"id"`
	BinID      string `json:"bin" db:"bin_id"`
	TrashLevel int    `json:"trashLevel" db:"trash_level"`
	CreatedAt  int64  `json:"created_at" db:"created_at"` // Unix timestamp
}

// SampleResponse is what we send to the client
type SampleResponse struct {
	BinID        string `json:"bin"`
	TrashLevel   int    `json:"trashLevel"`
	CreatedAtIso string `json:"createdAtIso"`
}

func (s *TrashLevelSample) ToSampleResponse() SampleResponse {
	return SampleResponse{
		BinID:        s.BinID,
		TrashLevel:   s.TrashLevel,
		CreatedAtIso: time.Unix(s.CreatedAt, 0).Format(time.RFC3339),
	}
}
