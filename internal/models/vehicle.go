package models

// VehicleStatus represents a vehicle's availability
type VehicleStatus string

const (
	VehicleStatusAvailable   VehicleStatus = "available"
	VehicleStatusInUse       VehicleStatus = "in_use"
	VehicleStatusMaintenance VehicleStatus = "maintenance"
)

// Vehicle represents a fleet vehicle
type Vehicle struct {
	ID                 int64         `json:"id" db:"id"`
	RegistrationNumber string        `json:"registration_number" db:"registration_number"`
	Brand              string        `json:"brand" db:"brand"`
	Model              string        `json:"model" db:"model"`
	Color              string        `json:"color" db:"color"`
	Capacity           int           `json:"capacity" db:"capacity"`
	Description        *string       `json:"description,omitempty" db:"description"`
	Status             VehicleStatus `json:"status" db:"status"`
	CreatedAt          int64         `json:"created_at" db:"created_at"`
	UpdatedAt          int64         `json:"updated_at" db:"updated_at"`
}
