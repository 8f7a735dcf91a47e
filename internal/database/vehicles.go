package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"driverevents-backend/internal/models"
)

// VehicleStore runs all vehicle queries
type VehicleStore struct {
	DB *sqlx.DB
}

const vehicleSelect = `
	SELECT id, registration_number, brand, model, color, capacity, description, status,
	       created_at, updated_at
	FROM vehicles`

// All returns every vehicle
func (s *VehicleStore) All() ([]models.Vehicle, error) {
	var vehicles []models.Vehicle
	if err := s.DB.Select(&vehicles, vehicleSelect+` ORDER BY registration_number ASC`); err != nil {
		return nil, fmt.Errorf("failed to fetch vehicles: %w", err)
	}
	return vehicles, nil
}

// FindByID returns a vehicle or ErrNotFound
func (s *VehicleStore) FindByID(id int64) (models.Vehicle, error) {
	var v models.Vehicle
	err := s.DB.Get(&v, vehicleSelect+` WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return v, fmt.Errorf("vehicle %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return v, fmt.Errorf("failed to fetch vehicle: %w", err)
	}
	return v, nil
}

// Create inserts a vehicle
func (s *VehicleStore) Create(v models.Vehicle) (models.Vehicle, error) {
	status := v.Status
	if status == "" {
		status = models.VehicleStatusAvailable
	}
	capacity := v.Capacity
	if capacity == 0 {
		capacity = 4
	}

	query := `
		INSERT INTO vehicles (registration_number, brand, model, color, capacity, description, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	err := s.DB.QueryRow(query, v.RegistrationNumber, v.Brand, v.Model, v.Color,
		capacity, v.Description, status).Scan(&v.ID)
	if err != nil {
		return v, fmt.Errorf("failed to create vehicle: %w", err)
	}

	return s.FindByID(v.ID)
}

// Update rewrites a vehicle's fields
func (s *VehicleStore) Update(id int64, v models.Vehicle) (models.Vehicle, error) {
	query := `
		UPDATE vehicles SET
			registration_number = $1, brand = $2, model = $3, color = $4,
			capacity = $5, description = $6, status = $7,
			updated_at = EXTRACT(EPOCH FROM NOW())::BIGINT
		WHERE id = $8`

	res, err := s.DB.Exec(query, v.RegistrationNumber, v.Brand, v.Model, v.Color,
		v.Capacity, v.Description, v.Status, id)
	if err != nil {
		return models.Vehicle{}, fmt.Errorf("failed to update vehicle: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.Vehicle{}, fmt.Errorf("vehicle %d: %w", id, ErrNotFound)
	}

	return s.FindByID(id)
}

// Delete removes a vehicle
func (s *VehicleStore) Delete(id int64) error {
	res, err := s.DB.Exec(`DELETE FROM vehicles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete vehicle: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("vehicle %d: %w", id, ErrNotFound)
	}
	return nil
}
