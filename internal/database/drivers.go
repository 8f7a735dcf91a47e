package database

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"driverevents-backend/internal/models"
)

// DriverStore runs all driver queries
type DriverStore struct {
	DB *sqlx.DB
}

const driverSelect = `
	SELECT id, name, email, phone_number, preferred_contact_method, status,
	       vehicle_id, api_token, token_expiry, is_active, fcm_token,
	       created_at, updated_at
	FROM drivers`

func (s *DriverStore) hydrateVehicle(d *models.Driver) error {
	if d.VehicleID == nil {
		return nil
	}
	var v models.Vehicle
	err := s.DB.Get(&v, `
		SELECT id, registration_number, brand, model, color, capacity, description, status,
		       created_at, updated_at
		FROM vehicles WHERE id = $1`, *d.VehicleID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load vehicle for driver %d: %w", d.ID, err)
	}
	d.Vehicle = &v
	return nil
}

// All returns every driver with vehicles attached
func (s *DriverStore) All() ([]models.Driver, error) {
	var drivers []models.Driver
	if err := s.DB.Select(&drivers, driverSelect+` ORDER BY name ASC`); err != nil {
		return nil, fmt.Errorf("failed to fetch drivers: %w", err)
	}
	for i := range drivers {
		if err := s.hydrateVehicle(&drivers[i]); err != nil {
			return nil, err
		}
	}
	return drivers, nil
}

// FindByID returns a driver or ErrNotFound
func (s *DriverStore) FindByID(id int64) (models.Driver, error) {
	var d models.Driver
	err := s.DB.Get(&d, driverSelect+` WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return d, fmt.Errorf("driver %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return d, fmt.Errorf("failed to fetch driver: %w", err)
	}
	return d, s.hydrateVehicle(&d)
}

// FindByEmail resolves a driver from a ping's driver email (case-insensitive)
func (s *DriverStore) FindByEmail(email string) (models.Driver, error) {
	var d models.Driver
	err := s.DB.Get(&d, driverSelect+` WHERE LOWER(email) = LOWER($1)`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return d, fmt.Errorf("driver %s: %w", email, ErrNotFound)
	}
	if err != nil {
		return d, fmt.Errorf("failed to fetch driver by email: %w", err)
	}
	return d, s.hydrateVehicle(&d)
}

// FindByToken resolves a driver from an API token, checking expiry
func (s *DriverStore) FindByToken(token string) (models.Driver, error) {
	var d models.Driver
	err := s.DB.Get(&d, driverSelect+` WHERE api_token = $1 AND is_active = TRUE`, token)
	if errors.Is(err, sql.ErrNoRows) {
		return d, fmt.Errorf("driver token: %w", ErrNotFound)
	}
	if err != nil {
		return d, fmt.Errorf("failed to fetch driver by token: %w", err)
	}
	if d.TokenExpiry > 0 && d.TokenExpiry < time.Now().Unix() {
		return d, fmt.Errorf("driver token expired: %w", ErrNotFound)
	}
	return d, s.hydrateVehicle(&d)
}

// Create inserts a driver with a fresh API token valid for one year
func (s *DriverStore) Create(d models.Driver) (models.Driver, error) {
	token, err := GenerateDriverToken()
	if err != nil {
		return d, err
	}

	contact := d.PreferredContactMethod
	if contact == "" {
		contact = models.ContactMethodVoice
	}
	status := d.Status
	if status == "" {
		status = models.DriverStatusAvailable
	}

	query := `
		INSERT INTO drivers (name, email, phone_number, preferred_contact_method, status,
		                     vehicle_id, api_token, token_expiry, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE)
		RETURNING id`

	expiry := time.Now().AddDate(1, 0, 0).Unix()
	err = s.DB.QueryRow(query, d.Name, d.Email, d.PhoneNumber, contact, status,
		d.VehicleID, token, expiry).Scan(&d.ID)
	if err != nil {
		return d, fmt.Errorf("failed to create driver: %w", err)
	}

	return s.FindByID(d.ID)
}

// Update rewrites a driver's editable fields
func (s *DriverStore) Update(id int64, d models.Driver) (models.Driver, error) {
	query := `
		UPDATE drivers SET
			name = $1, email = $2, phone_number = $3, preferred_contact_method = $4,
			status = $5, vehicle_id = $6, is_active = $7,
			updated_at = EXTRACT(EPOCH FROM NOW())::BIGINT
		WHERE id = $8`

	res, err := s.DB.Exec(query, d.Name, d.Email, d.PhoneNumber, d.PreferredContactMethod,
		d.Status, d.VehicleID, d.IsActive, id)
	if err != nil {
		return models.Driver{}, fmt.Errorf("failed to update driver: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.Driver{}, fmt.Errorf("driver %d: %w", id, ErrNotFound)
	}

	return s.FindByID(id)
}

// RegenerateToken replaces a driver's API token and returns the new value
func (s *DriverStore) RegenerateToken(id int64) (string, error) {
	token, err := GenerateDriverToken()
	if err != nil {
		return "", err
	}

	expiry := time.Now().AddDate(1, 0, 0).Unix()
	res, err := s.DB.Exec(`
		UPDATE drivers SET api_token = $1, token_expiry = $2,
			updated_at = EXTRACT(EPOCH FROM NOW())::BIGINT
		WHERE id = $3`, token, expiry, id)
	if err != nil {
		return "", fmt.Errorf("failed to regenerate token: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return "", fmt.Errorf("driver %d: %w", id, ErrNotFound)
	}

	return token, nil
}

// SetFCMToken stores the device push token for a driver
func (s *DriverStore) SetFCMToken(id int64, fcmToken string) error {
	_, err := s.DB.Exec(`
		UPDATE drivers SET fcm_token = $1,
			updated_at = EXTRACT(EPOCH FROM NOW())::BIGINT
		WHERE id = $2`, fcmToken, id)
	if err != nil {
		return fmt.Errorf("failed to store fcm token: %w", err)
	}
	return nil
}

// Delete removes a driver
func (s *DriverStore) Delete(id int64) error {
	res, err := s.DB.Exec(`DELETE FROM drivers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete driver: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("driver %d: %w", id, ErrNotFound)
	}
	return nil
}

// GenerateDriverToken produces a 64-character hex token for driver API access
func GenerateDriverToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
