package models

// ContactMethod is how the external platform should reach a driver
type ContactMethod string

const (
	ContactMethodVoice    ContactMethod = "VOICE"
	ContactMethodSMS      ContactMethod = "SMS"
	ContactMethodWhatsApp ContactMethod = "WHATSAPP"
)

// DriverStatus represents a driver's availability
type DriverStatus string

const (
	DriverStatusAvailable   DriverStatus = "available"
	DriverStatusBusy        DriverStatus = "busy"
	DriverStatusUnavailable DriverStatus = "unavailable"
)

// Driver represents a fleet driver
type Driver struct {
	ID                     int64         `json:"id" db:"id"`
	Name                   string        `json:"name" db:"name"`
	Email                  string        `json:"email" db:"email"`
	PhoneNumber            string        `json:"phone" db:"phone_number"`
	PreferredContactMethod ContactMethod `json:"preferred_contact_method" db:"preferred_contact_method"`
	Status                 DriverStatus  `json:"status" db:"status"`
	VehicleID              *int64        `json:"vehicle_id,omitempty" db:"vehicle_id"`
	APIToken               string        `json:"-" db:"api_token"` // 64-char hex, never serialized
	TokenExpiry            int64         `json:"token_expiry" db:"token_expiry"`
	IsActive               bool          `json:"is_active" db:"is_active"`
	FCMToken               *string       `json:"-" db:"fcm_token"`
	CreatedAt              int64         `json:"created_at" db:"created_at"`
	UpdatedAt              int64         `json:"updated_at" db:"updated_at"`

	Vehicle *Vehicle `json:"vehicle,omitempty" db:"-"`
}
