package models

// Destination is a known route with a typical drive duration.
// Route lookups are case-normalized on (start_location, end_location).
type Destination struct {
	ID              int64  `json:"id" db:"id"`
	StartLocation   string `json:"start_location" db:"start_location"`
	EndLocation     string `json:"end_location" db:"end_location"`
	DurationMinutes int    `json:"duration_minutes" db:"duration_minutes"`
}
