package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"driverevents-backend/internal/models"
)

// BookingStore runs all booking queries. Driver and vehicle rows are hydrated
// onto the booking because the sync and relay paths need their fields.
type BookingStore struct {
	DB *sqlx.DB
}

const bookingSelect = `
	SELECT
		b.id, b.booking_number, b.driver_id, b.driver_name, b.vehicle_id, b.vehicle_number,
		b.booking_date, b.start_time, b.start_location, b.destination,
		b.arrival_or_departure, b.service_type, b.notes, b.synced_with_api, b.status,
		b.created_at, b.updated_at,
		d.id, d.name, d.email, d.phone_number, d.preferred_contact_method, d.status,
		v.id, v.registration_number, v.brand, v.model, v.color, v.capacity, v.description, v.status
	FROM bookings b
	LEFT JOIN drivers d ON d.id = b.driver_id
	LEFT JOIN vehicles v ON v.id = b.vehicle_id`

func scanBooking(rows *sql.Rows) (models.Booking, error) {
	var b models.Booking

	var dID sql.NullInt64
	var dName, dEmail, dPhone, dContact, dStatus sql.NullString
	var vID sql.NullInt64
	var vReg, vBrand, vModel, vColor, vStatus sql.NullString
	var vCapacity sql.NullInt64
	var vDescription sql.NullString

	err := rows.Scan(
		&b.ID, &b.BookingNumber, &b.DriverID, &b.DriverName, &b.VehicleID, &b.VehicleNumber,
		&b.BookingDate, &b.StartTime, &b.StartLocation, &b.Destination,
		&b.ArrivalOrDeparture, &b.ServiceType, &b.Notes, &b.SyncedWithAPI, &b.Status,
		&b.CreatedAt, &b.UpdatedAt,
		&dID, &dName, &dEmail, &dPhone, &dContact, &dStatus,
		&vID, &vReg, &vBrand, &vModel, &vColor, &vCapacity, &vDescription, &vStatus,
	)
	if err != nil {
		return b, err
	}

	if dID.Valid {
		b.Driver = &models.Driver{
			ID:                     dID.Int64,
			Name:                   dName.String,
			Email:                  dEmail.String,
			PhoneNumber:            dPhone.String,
			PreferredContactMethod: models.ContactMethod(dContact.String),
			Status:                 models.DriverStatus(dStatus.String),
		}
	}
	if vID.Valid {
		vehicle := &models.Vehicle{
			ID:                 vID.Int64,
			RegistrationNumber: vReg.String,
			Brand:              vBrand.String,
			Model:              vModel.String,
			Color:              vColor.String,
			Capacity:           int(vCapacity.Int64),
			Status:             models.VehicleStatus(vStatus.String),
		}
		if vDescription.Valid {
			desc := vDescription.String
			vehicle.Description = &desc
		}
		b.Vehicle = vehicle
		if b.Driver != nil {
			b.Driver.Vehicle = vehicle
		}
	}

	return b, nil
}

func (s *BookingStore) queryBookings(query string, args ...interface{}) ([]models.Booking, error) {
	rows, err := s.DB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("booking query failed: %w", err)
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("booking scan failed: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// All returns every booking, newest first
func (s *BookingStore) All() ([]models.Booking, error) {
	return s.queryBookings(bookingSelect + ` ORDER BY b.id DESC`)
}

// FindByID returns a single booking or ErrNotFound
func (s *BookingStore) FindByID(id int64) (models.Booking, error) {
	bookings, err := s.queryBookings(bookingSelect+` WHERE b.id = $1`, id)
	if err != nil {
		return models.Booking{}, err
	}
	if len(bookings) == 0 {
		return models.Booking{}, fmt.Errorf("booking %d: %w", id, ErrNotFound)
	}
	return bookings[0], nil
}

// FindByIDs returns the bookings that exist among the given ids
func (s *BookingStore) FindByIDs(ids []int64) ([]models.Booking, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.queryBookings(bookingSelect+` WHERE b.id = ANY($1) ORDER BY b.id ASC`, pq.Array(ids))
}

// FindForDate returns the bookings scheduled on the given dd.MM.yyyy date
func (s *BookingStore) FindForDate(date string) ([]models.Booking, error) {
	return s.queryBookings(bookingSelect+` WHERE b.booking_date = $1 ORDER BY b.start_time ASC`, date)
}

// FindUnsynced returns bookings not yet pushed to the external API
func (s *BookingStore) FindUnsynced() ([]models.Booking, error) {
	return s.queryBookings(bookingSelect + ` WHERE b.synced_with_api = FALSE ORDER BY b.id ASC`)
}

// Create inserts a new booking (never synced at creation time)
func (s *BookingStore) Create(b models.Booking) (models.Booking, error) {
	query := `
		INSERT INTO bookings (
			booking_number, driver_id, driver_name, vehicle_id, vehicle_number,
			booking_date, start_time, start_location, destination,
			arrival_or_departure, service_type, notes, synced_with_api, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, FALSE, 'before_pickup')
		RETURNING id`

	serviceType := b.ServiceType
	if serviceType == "" {
		serviceType = "private"
	}
	arrOrDep := b.ArrivalOrDeparture
	if arrOrDep == "" {
		arrOrDep = "arrival"
	}

	err := s.DB.QueryRow(query,
		b.BookingNumber, b.DriverID, b.DriverName, b.VehicleID, b.VehicleNumber,
		b.BookingDate, b.StartTime, b.StartLocation, b.Destination,
		arrOrDep, serviceType, b.Notes,
	).Scan(&b.ID)
	if err != nil {
		return b, fmt.Errorf("failed to create booking: %w", err)
	}

	return s.FindByID(b.ID)
}

// Update rewrites the editable fields and clears the sync flag, since the
// external platform no longer has the latest version
func (s *BookingStore) Update(id int64, b models.Booking) (models.Booking, error) {
	query := `
		UPDATE bookings SET
			booking_date = $1, start_time = $2, start_location = $3, destination = $4,
			arrival_or_departure = $5, service_type = $6, notes = $7,
			synced_with_api = FALSE,
			updated_at = EXTRACT(EPOCH FROM NOW())::BIGINT
		WHERE id = $8`

	res, err := s.DB.Exec(query,
		b.BookingDate, b.StartTime, b.StartLocation, b.Destination,
		b.ArrivalOrDeparture, b.ServiceType, b.Notes, id,
	)
	if err != nil {
		return models.Booking{}, fmt.Errorf("failed to update booking: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.Booking{}, fmt.Errorf("booking %d: %w", id, ErrNotFound)
	}

	return s.FindByID(id)
}

// AssignDriver attaches a driver (and the driver's vehicle) to a booking and
// clears the sync flag
func (s *BookingStore) AssignDriver(bookingID int64, driver models.Driver) (models.Booking, error) {
	query := `
		UPDATE bookings SET
			driver_id = $1, driver_name = $2, vehicle_id = $3, vehicle_number = $4,
			synced_with_api = FALSE,
			updated_at = EXTRACT(EPOCH FROM NOW())::BIGINT
		WHERE id = $5`

	var vehicleNumber string
	if driver.Vehicle != nil {
		vehicleNumber = driver.Vehicle.RegistrationNumber
	}

	res, err := s.DB.Exec(query, driver.ID, driver.Name, driver.VehicleID, vehicleNumber, bookingID)
	if err != nil {
		return models.Booking{}, fmt.Errorf("failed to assign driver: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.Booking{}, fmt.Errorf("booking %d: %w", bookingID, ErrNotFound)
	}

	return s.FindByID(bookingID)
}

// MarkSynced persists the sync flag for all given bookings in one transaction.
// Used by the bulk orchestrator so a later failure cannot leave half the batch
// flagged.
func (s *BookingStore) MarkSynced(bookings []models.Booking) error {
	if len(bookings) == 0 {
		return nil
	}

	tx, err := s.DB.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin sync save: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	for _, b := range bookings {
		_, err := tx.Exec(
			`UPDATE bookings SET synced_with_api = TRUE, updated_at = $1 WHERE id = $2`,
			now, b.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to mark booking %d synced: %w", b.ID, err)
		}
	}

	return tx.Commit()
}

// Delete removes a booking
func (s *BookingStore) Delete(id int64) error {
	res, err := s.DB.Exec(`DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("booking %d: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteByIDs removes multiple bookings at once
func (s *BookingStore) DeleteByIDs(ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.DB.Exec(`DELETE FROM bookings WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to delete bookings: %w", err)
	}
	return nil
}
