package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"driverevents-backend/internal/models"
)

// DestinationStore runs all route-duration queries
type DestinationStore struct {
	DB *sqlx.DB
}

// FindDuration returns the drive duration in minutes for a route. The lookup
// is case-normalized on both location names. ok is false when the route is
// unknown, which is not an error: unknown routes are simply never cached.
func (s *DestinationStore) FindDuration(startLocation, endLocation string) (int, bool, error) {
	var minutes int
	err := s.DB.Get(&minutes, `
		SELECT duration_minutes FROM destinations
		WHERE UPPER(start_location) = $1 AND UPPER(end_location) = $2`,
		strings.ToUpper(startLocation), strings.ToUpper(endLocation))
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to fetch route duration: %w", err)
	}
	return minutes, true, nil
}

// All returns every known route
func (s *DestinationStore) All() ([]models.Destination, error) {
	var destinations []models.Destination
	err := s.DB.Select(&destinations, `
		SELECT id, start_location, end_location, duration_minutes
		FROM destinations ORDER BY start_location, end_location`)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch destinations: %w", err)
	}
	return destinations, nil
}

// Create inserts a route duration
func (s *DestinationStore) Create(d models.Destination) (models.Destination, error) {
	err := s.DB.QueryRow(`
		INSERT INTO destinations (start_location, end_location, duration_minutes)
		VALUES ($1, $2, $3)
		RETURNING id`,
		d.StartLocation, d.EndLocation, d.DurationMinutes).Scan(&d.ID)
	if err != nil {
		return d, fmt.Errorf("failed to create destination: %w", err)
	}
	return d, nil
}

// Update rewrites a route duration
func (s *DestinationStore) Update(id int64, d models.Destination) (models.Destination, error) {
	res, err := s.DB.Exec(`
		UPDATE destinations SET start_location = $1, end_location = $2, duration_minutes = $3
		WHERE id = $4`,
		d.StartLocation, d.EndLocation, d.DurationMinutes, id)
	if err != nil {
		return models.Destination{}, fmt.Errorf("failed to update destination: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.Destination{}, fmt.Errorf("destination %d: %w", id, ErrNotFound)
	}
	d.ID = id
	return d, nil
}

// Delete removes a route
func (s *DestinationStore) Delete(id int64) error {
	res, err := s.DB.Exec(`DELETE FROM destinations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete destination: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("destination %d: %w", id, ErrNotFound)
	}
	return nil
}
