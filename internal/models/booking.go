package models

// BookingStatus tracks where a booking is in its lifecycle
type BookingStatus string

const (
	BookingStatusBeforePickup       BookingStatus = "before_pickup"
	BookingStatusWaitingForCustomer BookingStatus = "waiting_for_customer"
	BookingStatusAfterPickup        BookingStatus = "after_pickup"
	BookingStatusCompleted          BookingStatus = "completed"
)

// Booking represents a scheduled transfer booking
type Booking struct {
	ID                 int64         `json:"id" db:"id"`
	BookingNumber      string        `json:"booking_number" db:"booking_number"`
	DriverID           *int64        `json:"driver_id,omitempty" db:"driver_id"`
	DriverName         string        `json:"driver_name" db:"driver_name"`
	VehicleID          *int64        `json:"vehicle_id,omitempty" db:"vehicle_id"`
	VehicleNumber      string        `json:"vehicle_number" db:"vehicle_number"`
	BookingDate        string        `json:"booking_date" db:"booking_date"` // dd.MM.yyyy (spreadsheet locale)
	StartTime          string        `json:"start_time" db:"start_time"`     // HH:mm
	StartLocation      string        `json:"start_location" db:"start_location"`
	Destination        string        `json:"destination" db:"destination"`
	ArrivalOrDeparture string        `json:"arrival_or_departure" db:"arrival_or_departure"`
	ServiceType        string        `json:"service_type" db:"service_type"` // "private" or "shuttle"
	Notes              string        `json:"notes" db:"notes"`
	SyncedWithAPI      bool          `json:"synced_with_api" db:"synced_with_api"`
	Status             BookingStatus `json:"status" db:"status"`
	CreatedAt          int64         `json:"created_at" db:"created_at"`
	UpdatedAt          int64         `json:"updated_at" db:"updated_at"`

	// Hydrated by the store when driver_id / vehicle_id are set
	Driver  *Driver  `json:"driver,omitempty" db:"-"`
	Vehicle *Vehicle `json:"vehicle,omitempty" db:"-"`
}
