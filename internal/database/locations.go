package database

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"driverevents-backend/internal/models"
)

// LocationStore runs all GPS ping queries
type LocationStore struct {
	DB *sqlx.DB
}

// Insert stores a new ping as unprocessed and returns it with its id
func (s *LocationStore) Insert(ping models.LocationPing) (models.LocationPing, error) {
	err := s.DB.QueryRow(`
		INSERT INTO driver_locations (driver_email, latitude, longitude, timestamp, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		ping.DriverEmail, ping.Latitude, ping.Longitude, ping.Timestamp,
		models.PingStatusUnprocessed).Scan(&ping.ID, &ping.CreatedAt)
	if err != nil {
		return ping, fmt.Errorf("failed to store location ping: %w", err)
	}
	ping.Status = models.PingStatusUnprocessed
	return ping, nil
}

// FindPending returns pings waiting for a relay attempt, oldest first.
// Failed pings re-enter the queue alongside unprocessed ones; they stop
// recurring once their booking window closes and the no-match path marks
// them sent.
func (s *LocationStore) FindPending(limit int) ([]models.LocationPing, error) {
	var pings []models.LocationPing
	err := s.DB.Select(&pings, `
		SELECT id, driver_email, latitude, longitude, timestamp, status, created_at
		FROM driver_locations
		WHERE status IN ($1, $2)
		ORDER BY id ASC
		LIMIT $3`,
		models.PingStatusUnprocessed, models.PingStatusFailed, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pending pings: %w", err)
	}
	return pings, nil
}

// UpdateStatus moves a ping to sent or failed
func (s *LocationStore) UpdateStatus(id int64, status models.PingStatus) error {
	res, err := s.DB.Exec(`UPDATE driver_locations SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update ping %d status: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("ping %d: %w", id, ErrNotFound)
	}
	return nil
}

// RecordSent writes the delivery audit row for a ping that reached the
// external API
func (s *LocationStore) RecordSent(sent models.SentLocation) error {
	_, err := s.DB.Exec(`
		INSERT INTO sent_locations (
			ping_id, booking_id, booking_number, vehicle_registration,
			latitude, longitude, timestamp
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		sent.PingID, sent.BookingID, sent.BookingNumber, sent.VehicleRegistration,
		sent.Latitude, sent.Longitude, sent.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to record sent location: %w", err)
	}
	return nil
}

// RecentForDriver returns the latest pings for a driver, newest first
func (s *LocationStore) RecentForDriver(email string, limit int) ([]models.LocationPing, error) {
	var pings []models.LocationPing
	err := s.DB.Select(&pings, `
		SELECT id, driver_email, latitude, longitude, timestamp, status, created_at
		FROM driver_locations
		WHERE LOWER(driver_email) = LOWER($1)
		ORDER BY id DESC
		LIMIT $2`, email, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch driver pings: %w", err)
	}
	return pings, nil
}
