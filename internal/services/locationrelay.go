package services

import (
	"errors"
	"log"
	"sync/atomic"

	"driverevents-backend/internal/database"
	"driverevents-backend/internal/models"
)

// PingSource is the relay's view of the ping store
type PingSource interface {
	FindPending(limit int) ([]models.LocationPing, error)
	UpdateStatus(id int64, status models.PingStatus) error
	RecordSent(sent models.SentLocation) error
}

// DriverSource resolves drivers from ping emails
type DriverSource interface {
	FindByEmail(email string) (models.Driver, error)
}

// ActiveBookingSource is the relay's view of the window cache
type ActiveBookingSource interface {
	GetActiveForDriver(email string) []models.Booking
}

// LocationPusher is the relay's view of the sync client
type LocationPusher interface {
	PushLocation(bookingNumber, vehicleReg string, payload LocationPayload) bool
	NormalizeTimestamp(wallClock string) (string, error)
}

// TelemetryBroadcaster publishes live pings to dashboard subscribers
type TelemetryBroadcaster interface {
	Publish(topic string, data interface{})
}

// LocationRelay drains pending GPS pings on a poll interval, matches each to
// an active booking, and forwards matched pings to the external API. Every
// ping is broadcast to live subscribers regardless of matching.
type LocationRelay struct {
	pings     PingSource
	drivers   DriverSource
	active    ActiveBookingSource
	pusher    LocationPusher
	broadcast TelemetryBroadcaster

	batchSize int
	running   atomic.Bool
}

// NewLocationRelay wires the relay's collaborators
func NewLocationRelay(
	pings PingSource,
	drivers DriverSource,
	active ActiveBookingSource,
	pusher LocationPusher,
	broadcast TelemetryBroadcaster,
	batchSize int,
) *LocationRelay {
	if batchSize <= 0 {
		batchSize = 200
	}
	return &LocationRelay{
		pings:     pings,
		drivers:   drivers,
		active:    active,
		pusher:    pusher,
		broadcast: broadcast,
		batchSize: batchSize,
	}
}

// ProcessPending drains one batch of pending pings. Overlapping invocations
// are skipped so a slow external API cannot cause the same ping to be claimed
// by two poll executions.
func (r *LocationRelay) ProcessPending() {
	if !r.running.CompareAndSwap(false, true) {
		log.Println("⚠️  Location relay still busy, skipping poll tick")
		return
	}
	defer r.running.Store(false)

	pending, err := r.pings.FindPending(r.batchSize)
	if err != nil {
		log.Printf("❌ Location relay: failed to fetch pending pings: %v", err)
		return
	}
	if len(pending) == 0 {
		return
	}

	sent, failed := 0, 0
	for _, ping := range pending {
		if r.processPing(ping) {
			sent++
		} else {
			failed++
		}
	}
	log.Printf("📡 Location relay: processed %d pings (%d sent, %d failed)", len(pending), sent, failed)
}

// processPing handles one ping and returns true when it ends up sent
func (r *LocationRelay) processPing(ping models.LocationPing) bool {
	// Live subscribers always get the raw ping, matched or not
	if r.broadcast != nil {
		r.broadcast.Publish("driver/"+ping.DriverEmail, map[string]interface{}{
			"type": "driver_location_update",
			"data": ping,
		})
	}

	driver, err := r.drivers.FindByEmail(ping.DriverEmail)
	if errors.Is(err, database.ErrNotFound) {
		// Nothing can ever be associated with this ping, so it is terminal
		log.Printf("⚠️  Ping %d from unknown driver %q, marking sent", ping.ID, ping.DriverEmail)
		return r.markStatus(ping.ID, models.PingStatusSent)
	}
	if err != nil {
		// Infrastructure problem: leave the ping for the next tick
		log.Printf("❌ Ping %d: driver lookup failed: %v", ping.ID, err)
		return false
	}

	bookings := r.active.GetActiveForDriver(driver.Email)
	if len(bookings) == 0 {
		return r.markStatus(ping.ID, models.PingStatusSent)
	}

	timestamp, err := r.pusher.NormalizeTimestamp(ping.Timestamp)
	if err != nil {
		// Unparseable wall clock can never be forwarded
		log.Printf("⚠️  Ping %d: %v, marking sent", ping.ID, err)
		return r.markStatus(ping.ID, models.PingStatusSent)
	}

	payload := LocationPayload{
		Timestamp: timestamp,
		Location:  LatLngPoint{Lat: ping.Latitude, Lng: ping.Longitude},
	}

	delivered := 0
	attempted := 0
	for _, booking := range bookings {
		if booking.Vehicle == nil || booking.Vehicle.RegistrationNumber == "" {
			log.Printf("⚠️  Booking %s has no vehicle registration, cannot push ping %d", booking.BookingNumber, ping.ID)
			continue
		}
		attempted++

		if !r.pusher.PushLocation(booking.BookingNumber, booking.Vehicle.RegistrationNumber, payload) {
			continue
		}
		delivered++

		if err := r.pings.RecordSent(models.SentLocation{
			PingID:              ping.ID,
			BookingID:           booking.ID,
			BookingNumber:       booking.BookingNumber,
			VehicleRegistration: booking.Vehicle.RegistrationNumber,
			Latitude:            ping.Latitude,
			Longitude:           ping.Longitude,
			Timestamp:           timestamp,
		}); err != nil {
			log.Printf("⚠️  Ping %d: failed to record sent location: %v", ping.ID, err)
		}
	}

	if attempted == 0 {
		// Active bookings existed but none could receive a location
		return r.markStatus(ping.ID, models.PingStatusSent)
	}
	if delivered < attempted {
		r.markStatus(ping.ID, models.PingStatusFailed)
		return false
	}
	return r.markStatus(ping.ID, models.PingStatusSent)
}

func (r *LocationRelay) markStatus(pingID int64, status models.PingStatus) bool {
	if err := r.pings.UpdateStatus(pingID, status); err != nil {
		log.Printf("❌ Failed to update ping %d status: %v", pingID, err)
		return false
	}
	return status == models.PingStatusSent
}
