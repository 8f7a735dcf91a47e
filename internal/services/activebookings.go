package services

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"driverevents-backend/internal/models"
)

const (
	// BookingDateLayout is the dd.MM.yyyy format booking dates are stored in
	BookingDateLayout = "02.01.2006"

	// StartTimeLayout is the HH:mm format booking start times are stored in
	StartTimeLayout = "15:04"

	// pickupLeadTime is how long before the scheduled start a booking counts
	// as in progress (drivers head out early)
	pickupLeadTime = 30 * time.Minute
)

// BookingWindow is the time interval during which a booking is treated as in
// progress. Derived on every refresh, never persisted.
type BookingWindow struct {
	Booking     models.Booking
	ActiveFrom  time.Time
	ActiveUntil time.Time
}

// DailyBookingSource yields the bookings scheduled for a calendar date
type DailyBookingSource interface {
	FindForDate(date string) ([]models.Booking, error)
}

// RouteDurationSource yields drive durations for known routes
type RouteDurationSource interface {
	FindDuration(startLocation, endLocation string) (minutes int, ok bool, err error)
}

// ActiveBookingCache derives which of today's bookings are currently in
// progress. A single refresh job writes it; API queries and the location
// relay read it concurrently.
type ActiveBookingCache struct {
	bookings DailyBookingSource
	routes   RouteDurationSource
	now      func() time.Time

	refreshing atomic.Bool

	mu      sync.RWMutex
	windows map[int64]BookingWindow
}

// NewActiveBookingCache creates an empty cache. Call Refresh (typically from
// the scheduler) to populate it.
func NewActiveBookingCache(bookings DailyBookingSource, routes RouteDurationSource) *ActiveBookingCache {
	return &ActiveBookingCache{
		bookings: bookings,
		routes:   routes,
		now:      time.Now,
		windows:  make(map[int64]BookingWindow),
	}
}

// Refresh recomputes the cache from today's bookings. A booking is cached iff
// now falls within [start-30min, start+routeDuration], both ends inclusive.
// Bad rows are logged and skipped without aborting the rest of the batch.
// Overlapping invocations (a manual trigger landing during a scheduled run)
// are skipped, keeping the refresh the cache's single writer.
func (c *ActiveBookingCache) Refresh() {
	if !c.refreshing.CompareAndSwap(false, true) {
		log.Println("⚠️  Active bookings refresh already running, skipping")
		return
	}
	defer c.refreshing.Store(false)

	now := c.now()
	today := now.Format(BookingDateLayout)

	todaysBookings, err := c.bookings.FindForDate(today)
	if err != nil {
		log.Printf("❌ Active bookings refresh: failed to fetch bookings for %s: %v", today, err)
		return
	}

	seen := make(map[int64]bool, len(todaysBookings))
	for _, b := range todaysBookings {
		seen[b.ID] = true

		window, active, err := c.computeWindow(b, now)
		if err != nil {
			log.Printf("⚠️  Skipping booking %s: %v", b.BookingNumber, err)
			continue
		}

		c.mu.Lock()
		if active {
			c.windows[b.ID] = window
		} else {
			delete(c.windows, b.ID)
		}
		c.mu.Unlock()
	}

	// Prune entries for bookings that dropped out of today's result set
	// (rescheduled or deleted since the last tick)
	c.mu.Lock()
	for id := range c.windows {
		if !seen[id] {
			delete(c.windows, id)
		}
	}
	size := len(c.windows)
	c.mu.Unlock()

	log.Printf("🔄 Active bookings refreshed: %d of %d bookings in progress", size, len(todaysBookings))
}

// computeWindow derives the active interval for one booking. active is false
// when the window does not cover now. An unknown route means the booking can
// never become active and is reported as an error so the caller logs and
// skips it.
func (c *ActiveBookingCache) computeWindow(b models.Booking, now time.Time) (BookingWindow, bool, error) {
	start, err := time.ParseInLocation(
		BookingDateLayout+" "+StartTimeLayout,
		b.BookingDate+" "+b.StartTime,
		now.Location(),
	)
	if err != nil {
		return BookingWindow{}, false, fmt.Errorf("bad schedule data (%q %q): %w", b.BookingDate, b.StartTime, err)
	}

	minutes, ok, err := c.routes.FindDuration(b.StartLocation, b.Destination)
	if err != nil {
		return BookingWindow{}, false, err
	}
	if !ok {
		return BookingWindow{}, false, fmt.Errorf("no route duration for %s - %s", b.StartLocation, b.Destination)
	}

	window := BookingWindow{
		Booking:     b,
		ActiveFrom:  start.Add(-pickupLeadTime),
		ActiveUntil: start.Add(time.Duration(minutes) * time.Minute),
	}

	active := !now.Before(window.ActiveFrom) && !now.After(window.ActiveUntil)
	return window, active, nil
}

// GetAllActive returns the bookings currently in progress
func (c *ActiveBookingCache) GetAllActive() []models.Booking {
	c.mu.RLock()
	defer c.mu.RUnlock()

	bookings := make([]models.Booking, 0, len(c.windows))
	for _, w := range c.windows {
		bookings = append(bookings, w.Booking)
	}
	return bookings
}

// GetActiveForDriver returns the in-progress bookings assigned to the driver
// with the given email (case-insensitive)
func (c *ActiveBookingCache) GetActiveForDriver(email string) []models.Booking {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var bookings []models.Booking
	for _, w := range c.windows {
		d := w.Booking.Driver
		if d != nil && strings.EqualFold(d.Email, email) {
			bookings = append(bookings, w.Booking)
		}
	}
	return bookings
}

// Size returns the number of cached windows
func (c *ActiveBookingCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.windows)
}
