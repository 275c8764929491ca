package models

// GPS is the position block of a sensor push. All fields are optional;
// older devices omit it entirely.
type GPS struct {
	Altitude  *float64 `json:"altitude,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// TelemetryPayload mirrors the document a sensor writes under its bin key
// in the realtime feed.
type TelemetryPayload struct {
	DistanceCm *float64 `json:"distance(cm),omitempty"`
	TrashLevel *float64 `json:"trashLevel,omitempty"` // absent on older devices
	GPS        *GPS     `json:"gps,omitempty"`
}
