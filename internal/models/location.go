package models

// PingStatus is the processing state of a driver location ping.
// A ping is written as "unprocessed" on ingestion and moved exactly once per
// relay attempt to "sent" or "failed".
type PingStatus string

const (
	PingStatusUnprocessed PingStatus = "unprocessed"
	PingStatusSent        PingStatus = "sent"
	PingStatusFailed      PingStatus = "failed"
)

// PingTimestampLayout is the wall-clock format drivers report in (local time,
// no zone information)
const PingTimestampLayout = "2006-01-02 15:04:05"

// LocationPing is a raw GPS ping from a driver device
type LocationPing struct {
	ID          int64      `json:"id" db:"id"`
	DriverEmail string     `json:"driver_email" db:"driver_email"`
	Latitude    float64    `json:"latitude" db:"latitude"`
	Longitude   float64    `json:"longitude" db:"longitude"`
	Timestamp   string     `json:"timestamp" db:"timestamp"` // PingTimestampLayout
	Status      PingStatus `json:"status" db:"status"`
	CreatedAt   int64      `json:"created_at" db:"created_at"`
}

// SentLocation records a location that was delivered to the external API,
// so a delivery can be traced back even after the ping row is archived
type SentLocation struct {
	ID                  int64   `json:"id" db:"id"`
	PingID              int64   `json:"ping_id" db:"ping_id"`
	BookingID           int64   `json:"booking_id" db:"booking_id"`
	BookingNumber       string  `json:"booking_number" db:"booking_number"`
	VehicleRegistration string  `json:"vehicle_registration" db:"vehicle_registration"`
	Latitude            float64 `json:"latitude" db:"latitude"`
	Longitude           float64 `json:"longitude" db:"longitude"`
	Timestamp           string  `json:"timestamp" db:"timestamp"` // UTC, as sent on the wire
	SentAt              int64   `json:"sent_at" db:"sent_at"`
}
