package services

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"driverevents-backend/internal/models"
)

type fakeBookingSource struct {
	bookings []models.Booking
	err      error
	calls    int
}

func (f *fakeBookingSource) FindForDate(date string) ([]models.Booking, error) {
	f.calls++
	return f.bookings, f.err
}

type fakeRouteSource struct {
	durations map[string]int
	err       error
}

func (f *fakeRouteSource) FindDuration(start, end string) (int, bool, error) {
	if f.err != nil {
		return 0, false, f.err
	}
	minutes, ok := f.durations[start+"|"+end]
	return minutes, ok, nil
}

func testBooking(id int64, number, date, startTime, driverEmail string) models.Booking {
	return models.Booking{
		ID:            id,
		BookingNumber: number,
		BookingDate:   date,
		StartTime:     startTime,
		StartLocation: "SOFIA AIRPORT T2",
		Destination:   "BANSKO",
		Driver:        &models.Driver{ID: id, Name: "Ivan Petrov", Email: driverEmail, PhoneNumber: "+359888111222"},
		Vehicle:       &models.Vehicle{ID: id, RegistrationNumber: "CB1234XP", Brand: "Mercedes", Model: "Vito"},
	}
}

func newTestCache(bookings *fakeBookingSource, routes *fakeRouteSource, now time.Time) *ActiveBookingCache {
	cache := NewActiveBookingCache(bookings, routes)
	cache.now = func() time.Time { return now }
	return cache
}

func TestRefreshCachesBookingInsideWindow(t *testing.T) {
	booking := testBooking(1, "HTX-001", "15.01.2025", "09:30", "ivan@fleet.bg")
	bookings := &fakeBookingSource{bookings: []models.Booking{booking}}
	routes := &fakeRouteSource{durations: map[string]int{"SOFIA AIRPORT T2|BANSKO": 70}}

	// 09:30 start, 70 minute drive: window is 09:00 through 10:40
	now := time.Date(2025, 1, 15, 9, 50, 0, 0, time.UTC)
	cache := newTestCache(bookings, routes, now)

	cache.Refresh()

	active := cache.GetAllActive()
	require.Len(t, active, 1)
	assert.Equal(t, "HTX-001", active[0].BookingNumber)
}

func TestRefreshWindowBoundaries(t *testing.T) {
	cases := []struct {
		name   string
		now    time.Time
		active bool
	}{
		{"at window open", time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC), true},
		{"just before window open", time.Date(2025, 1, 15, 8, 59, 59, 0, time.UTC), false},
		{"at window close", time.Date(2025, 1, 15, 10, 40, 0, 0, time.UTC), true},
		{"just after window close", time.Date(2025, 1, 15, 10, 40, 1, 0, time.UTC), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			booking := testBooking(1, "HTX-001", "15.01.2025", "09:30", "ivan@fleet.bg")
			bookings := &fakeBookingSource{bookings: []models.Booking{booking}}
			routes := &fakeRouteSource{durations: map[string]int{"SOFIA AIRPORT T2|BANSKO": 70}}
			cache := newTestCache(bookings, routes, tc.now)

			cache.Refresh()

			if tc.active {
				assert.Equal(t, 1, cache.Size())
			} else {
				assert.Equal(t, 0, cache.Size())
			}
		})
	}
}

func TestRefreshSkipsBookingWithUnknownRoute(t *testing.T) {
	booking := testBooking(1, "HTX-002", "15.01.2025", "09:30", "ivan@fleet.bg")
	bookings := &fakeBookingSource{bookings: []models.Booking{booking}}
	routes := &fakeRouteSource{durations: map[string]int{}} // no routes known

	now := time.Date(2025, 1, 15, 9, 30, 0, 0, time.UTC)
	cache := newTestCache(bookings, routes, now)

	cache.Refresh()

	assert.Equal(t, 0, cache.Size())
}

func TestRefreshSkipsBookingWithBadScheduleData(t *testing.T) {
	booking := testBooking(1, "HTX-003", "2025-01-15", "late", "ivan@fleet.bg")
	bookings := &fakeBookingSource{bookings: []models.Booking{booking}}
	routes := &fakeRouteSource{durations: map[string]int{"SOFIA AIRPORT T2|BANSKO": 70}}

	cache := newTestCache(bookings, routes, time.Date(2025, 1, 15, 9, 30, 0, 0, time.UTC))
	cache.Refresh()

	assert.Equal(t, 0, cache.Size())
}

func TestRefreshIsIdempotent(t *testing.T) {
	booking := testBooking(1, "HTX-001", "15.01.2025", "09:30", "ivan@fleet.bg")
	bookings := &fakeBookingSource{bookings: []models.Booking{booking}}
	routes := &fakeRouteSource{durations: map[string]int{"SOFIA AIRPORT T2|BANSKO": 70}}
	cache := newTestCache(bookings, routes, time.Date(2025, 1, 15, 9, 50, 0, 0, time.UTC))

	cache.Refresh()
	cache.Refresh()
	cache.Refresh()

	assert.Equal(t, 1, cache.Size())
}

func TestRefreshPrunesBookingsDroppedFromSchedule(t *testing.T) {
	booking := testBooking(1, "HTX-001", "15.01.2025", "09:30", "ivan@fleet.bg")
	bookings := &fakeBookingSource{bookings: []models.Booking{booking}}
	routes := &fakeRouteSource{durations: map[string]int{"SOFIA AIRPORT T2|BANSKO": 70}}
	cache := newTestCache(bookings, routes, time.Date(2025, 1, 15, 9, 50, 0, 0, time.UTC))

	cache.Refresh()
	require.Equal(t, 1, cache.Size())

	// Booking rescheduled away: next fetch no longer returns it
	bookings.bookings = nil
	cache.Refresh()

	assert.Equal(t, 0, cache.Size())
}

func TestRefreshKeepsCacheOnFetchError(t *testing.T) {
	booking := testBooking(1, "HTX-001", "15.01.2025", "09:30", "ivan@fleet.bg")
	bookings := &fakeBookingSource{bookings: []models.Booking{booking}}
	routes := &fakeRouteSource{durations: map[string]int{"SOFIA AIRPORT T2|BANSKO": 70}}
	cache := newTestCache(bookings, routes, time.Date(2025, 1, 15, 9, 50, 0, 0, time.UTC))

	cache.Refresh()
	require.Equal(t, 1, cache.Size())

	bookings.err = errors.New("connection refused")
	cache.Refresh()

	// Stale data beats no data while the database is unreachable
	assert.Equal(t, 1, cache.Size())
}

func TestGetActiveForDriverMatchesCaseInsensitively(t *testing.T) {
	first := testBooking(1, "HTX-001", "15.01.2025", "09:30", "Ivan@Fleet.BG")
	second := testBooking(2, "HTX-002", "15.01.2025", "09:45", "maria@fleet.bg")
	bookings := &fakeBookingSource{bookings: []models.Booking{first, second}}
	routes := &fakeRouteSource{durations: map[string]int{"SOFIA AIRPORT T2|BANSKO": 70}}
	cache := newTestCache(bookings, routes, time.Date(2025, 1, 15, 9, 50, 0, 0, time.UTC))

	cache.Refresh()
	require.Equal(t, 2, cache.Size())

	mine := cache.GetActiveForDriver("ivan@fleet.bg")
	require.Len(t, mine, 1)
	assert.Equal(t, "HTX-001", mine[0].BookingNumber)

	assert.Empty(t, cache.GetActiveForDriver("nobody@fleet.bg"))
}

type blockingBookingSource struct {
	entered chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func (b *blockingBookingSource) FindForDate(date string) ([]models.Booking, error) {
	b.calls.Add(1)
	b.entered <- struct{}{}
	<-b.release
	return nil, nil
}

func TestRefreshSkipsOverlappingInvocation(t *testing.T) {
	src := &blockingBookingSource{entered: make(chan struct{}), release: make(chan struct{})}
	cache := NewActiveBookingCache(src, &fakeRouteSource{})

	done := make(chan struct{})
	go func() {
		cache.Refresh()
		close(done)
	}()

	// First refresh is parked inside the fetch; a second one (manual trigger)
	// must return immediately without touching the source
	<-src.entered
	cache.Refresh()

	close(src.release)
	<-done

	assert.Equal(t, int32(1), src.calls.Load())
}

func TestGetActiveForDriverIgnoresUnassignedBookings(t *testing.T) {
	booking := testBooking(1, "HTX-001", "15.01.2025", "09:30", "ivan@fleet.bg")
	booking.Driver = nil
	bookings := &fakeBookingSource{bookings: []models.Booking{booking}}
	routes := &fakeRouteSource{durations: map[string]int{"SOFIA AIRPORT T2|BANSKO": 70}}
	cache := newTestCache(bookings, routes, time.Date(2025, 1, 15, 9, 50, 0, 0, time.UTC))

	cache.Refresh()
	require.Equal(t, 1, cache.Size())

	assert.Empty(t, cache.GetActiveForDriver("ivan@fleet.bg"))
}
