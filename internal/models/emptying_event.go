package models

import "time"

// EmptyingEvent records one emptying of a bin by a collector. Immutable
// once created; volume comes from exactly one before/after level pair.
type EmptyingEvent struct {
	ID        string  `json:"id" db:"id"`
	BinID     string  `json:"bin" db:"bin_id"`
	Collector string  `json:"collector" db:"collector"` // display name at event time
	UserID    string  `json:"userId" db:"user_id"`
	VolumeL   float64 `json:"volume" db:"volume_liters"`
	EmptiedAt int64   `json:"emptied_at" db:"emptied_at"` // Unix timestamp
}

// EmptyingEventResponse is what we send to the client
type EmptyingEventResponse struct {
	ID           string  `json:"id"`
	BinID        string  `json:"bin"`
	Collector    string  `json:"collector"`
	UserID       string  `json:"userId"`
	VolumeL      float64 `json:"volume"`
	EmptiedAtIso string  `json:"emptiedAtIso"`
}

func (e *EmptyingEvent) ToEmptyingEventResponse() EmptyingEventResponse {
	return EmptyingEventResponse{
		ID:           e.ID,
		BinID:        e.BinID,
		Collector:    e.Collector,
		UserID:       e.UserID,
		VolumeL:      e.VolumeL,
		EmptiedAtIso: time.Unix(e.EmptiedAt, 0).Format(time.RFC3339),
	}
}
