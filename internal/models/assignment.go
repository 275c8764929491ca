package models

// BinAssignment maps a bin to the users allowed to see it. Role "user"
// sees exactly the bins whose assignee set contains their id; admins see
// every bin regardless.
type BinAssignment struct {
	ID        string `json:"id" db:"id"`
	BinID     string `json:"bin" db:"bin_id"`
	UserID    string `json:"assignee" db:"user_id"`
	CreatedAt int64  `json:"created_at" db:"created_at"`
}

// AssignmentResponse groups one bin's assignee set, matching the
// {bin, assignee: [...]} document shape consumed by dashboards.
type AssignmentResponse struct {
	BinID     string   `json:"bin"`
	Assignees []string `json:"assignee"`
}
