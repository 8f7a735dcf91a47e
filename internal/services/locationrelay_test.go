package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"driverevents-backend/internal/database"
	"driverevents-backend/internal/models"
)

type fakePingStore struct {
	pending  []models.LocationPing
	findErr  error
	statuses map[int64]models.PingStatus
	sent     []models.SentLocation
	findCall int
}

func (f *fakePingStore) FindPending(limit int) ([]models.LocationPing, error) {
	f.findCall++
	if f.findErr != nil {
		return nil, f.findErr
	}
	if len(f.pending) > limit {
		return f.pending[:limit], nil
	}
	return f.pending, nil
}

func (f *fakePingStore) UpdateStatus(id int64, status models.PingStatus) error {
	if f.statuses == nil {
		f.statuses = make(map[int64]models.PingStatus)
	}
	f.statuses[id] = status
	return nil
}

func (f *fakePingStore) RecordSent(sent models.SentLocation) error {
	f.sent = append(f.sent, sent)
	return nil
}

type fakeDriverSource struct {
	drivers map[string]models.Driver
	err     error
}

func (f *fakeDriverSource) FindByEmail(email string) (models.Driver, error) {
	if f.err != nil {
		return models.Driver{}, f.err
	}
	d, ok := f.drivers[email]
	if !ok {
		return models.Driver{}, fmt.Errorf("driver %s: %w", email, database.ErrNotFound)
	}
	return d, nil
}

type fakeActiveSource struct {
	active map[string][]models.Booking
}

func (f *fakeActiveSource) GetActiveForDriver(email string) []models.Booking {
	return f.active[email]
}

type fakeLocationPusher struct {
	pushed   []string // "bookingNumber/vehicleReg"
	failFor  map[string]bool
	badStamp bool
}

func (f *fakeLocationPusher) PushLocation(bookingNumber, vehicleReg string, payload LocationPayload) bool {
	key := bookingNumber + "/" + vehicleReg
	f.pushed = append(f.pushed, key)
	return !f.failFor[bookingNumber]
}

func (f *fakeLocationPusher) NormalizeTimestamp(wallClock string) (string, error) {
	if f.badStamp {
		return "", errors.New("bad ping timestamp")
	}
	return "normalized:" + wallClock, nil
}

type fakeBroadcaster struct {
	topics []string
}

func (f *fakeBroadcaster) Publish(topic string, data interface{}) {
	f.topics = append(f.topics, topic)
}

func testPing(id int64, email string) models.LocationPing {
	return models.LocationPing{
		ID:          id,
		DriverEmail: email,
		Latitude:    42.6977,
		Longitude:   23.3219,
		Timestamp:   "2025-01-15 09:50:00",
		Status:      models.PingStatusUnprocessed,
	}
}

func activeBookingFor(id int64, number string) models.Booking {
	return models.Booking{
		ID:            id,
		BookingNumber: number,
		Vehicle:       &models.Vehicle{RegistrationNumber: "CB1234XP", Brand: "Mercedes", Model: "Vito"},
	}
}

func newTestRelay(pings *fakePingStore, drivers *fakeDriverSource, active *fakeActiveSource, pusher *fakeLocationPusher, broadcast *fakeBroadcaster) *LocationRelay {
	return NewLocationRelay(pings, drivers, active, pusher, broadcast, 200)
}

func TestProcessPendingForwardsMatchedPing(t *testing.T) {
	pings := &fakePingStore{pending: []models.LocationPing{testPing(1, "ivan@fleet.bg")}}
	drivers := &fakeDriverSource{drivers: map[string]models.Driver{
		"ivan@fleet.bg": {ID: 1, Email: "ivan@fleet.bg"},
	}}
	active := &fakeActiveSource{active: map[string][]models.Booking{
		"ivan@fleet.bg": {activeBookingFor(10, "HTX-001")},
	}}
	pusher := &fakeLocationPusher{}
	broadcast := &fakeBroadcaster{}

	relay := newTestRelay(pings, drivers, active, pusher, broadcast)
	relay.ProcessPending()

	assert.Equal(t, []string{"HTX-001/CB1234XP"}, pusher.pushed)
	assert.Equal(t, models.PingStatusSent, pings.statuses[1])

	require.Len(t, pings.sent, 1)
	assert.Equal(t, int64(1), pings.sent[0].PingID)
	assert.Equal(t, int64(10), pings.sent[0].BookingID)
	assert.Equal(t, "CB1234XP", pings.sent[0].VehicleRegistration)
	assert.Equal(t, "normalized:2025-01-15 09:50:00", pings.sent[0].Timestamp)

	assert.Equal(t, []string{"driver/ivan@fleet.bg"}, broadcast.topics)
}

func TestProcessPendingMarksUnknownDriverPingSent(t *testing.T) {
	pings := &fakePingStore{pending: []models.LocationPing{testPing(1, "ghost@fleet.bg")}}
	drivers := &fakeDriverSource{drivers: map[string]models.Driver{}}
	pusher := &fakeLocationPusher{}
	broadcast := &fakeBroadcaster{}

	relay := newTestRelay(pings, drivers, &fakeActiveSource{}, pusher, broadcast)
	relay.ProcessPending()

	assert.Empty(t, pusher.pushed)
	assert.Equal(t, models.PingStatusSent, pings.statuses[1])
	// Live subscribers still get the ping
	assert.Equal(t, []string{"driver/ghost@fleet.bg"}, broadcast.topics)
}

func TestProcessPendingLeavesPingAloneOnDriverLookupError(t *testing.T) {
	pings := &fakePingStore{pending: []models.LocationPing{testPing(1, "ivan@fleet.bg")}}
	drivers := &fakeDriverSource{err: errors.New("connection refused")}
	pusher := &fakeLocationPusher{}

	relay := newTestRelay(pings, drivers, &fakeActiveSource{}, pusher, &fakeBroadcaster{})
	relay.ProcessPending()

	assert.Empty(t, pusher.pushed)
	assert.NotContains(t, pings.statuses, int64(1))
}

func TestProcessPendingMarksUnmatchedPingSent(t *testing.T) {
	pings := &fakePingStore{pending: []models.LocationPing{testPing(1, "ivan@fleet.bg")}}
	drivers := &fakeDriverSource{drivers: map[string]models.Driver{
		"ivan@fleet.bg": {ID: 1, Email: "ivan@fleet.bg"},
	}}
	pusher := &fakeLocationPusher{}

	relay := newTestRelay(pings, drivers, &fakeActiveSource{}, pusher, &fakeBroadcaster{})
	relay.ProcessPending()

	assert.Empty(t, pusher.pushed)
	assert.Equal(t, models.PingStatusSent, pings.statuses[1])
}

func TestProcessPendingMarksPingFailedWhenPushFails(t *testing.T) {
	pings := &fakePingStore{pending: []models.LocationPing{testPing(1, "ivan@fleet.bg")}}
	drivers := &fakeDriverSource{drivers: map[string]models.Driver{
		"ivan@fleet.bg": {ID: 1, Email: "ivan@fleet.bg"},
	}}
	active := &fakeActiveSource{active: map[string][]models.Booking{
		"ivan@fleet.bg": {activeBookingFor(10, "HTX-001")},
	}}
	pusher := &fakeLocationPusher{failFor: map[string]bool{"HTX-001": true}}

	relay := newTestRelay(pings, drivers, active, pusher, &fakeBroadcaster{})
	relay.ProcessPending()

	assert.Equal(t, models.PingStatusFailed, pings.statuses[1])
	assert.Empty(t, pings.sent)
}

func TestProcessPendingPushesToEveryActiveBooking(t *testing.T) {
	pings := &fakePingStore{pending: []models.LocationPing{testPing(1, "ivan@fleet.bg")}}
	drivers := &fakeDriverSource{drivers: map[string]models.Driver{
		"ivan@fleet.bg": {ID: 1, Email: "ivan@fleet.bg"},
	}}
	active := &fakeActiveSource{active: map[string][]models.Booking{
		"ivan@fleet.bg": {activeBookingFor(10, "HTX-001"), activeBookingFor(11, "HTX-002")},
	}}
	pusher := &fakeLocationPusher{}

	relay := newTestRelay(pings, drivers, active, pusher, &fakeBroadcaster{})
	relay.ProcessPending()

	assert.ElementsMatch(t, []string{"HTX-001/CB1234XP", "HTX-002/CB1234XP"}, pusher.pushed)
	assert.Equal(t, models.PingStatusSent, pings.statuses[1])
	assert.Len(t, pings.sent, 2)
}

func TestProcessPendingPartialDeliveryMarksFailed(t *testing.T) {
	pings := &fakePingStore{pending: []models.LocationPing{testPing(1, "ivan@fleet.bg")}}
	drivers := &fakeDriverSource{drivers: map[string]models.Driver{
		"ivan@fleet.bg": {ID: 1, Email: "ivan@fleet.bg"},
	}}
	active := &fakeActiveSource{active: map[string][]models.Booking{
		"ivan@fleet.bg": {activeBookingFor(10, "HTX-001"), activeBookingFor(11, "HTX-002")},
	}}
	pusher := &fakeLocationPusher{failFor: map[string]bool{"HTX-002": true}}

	relay := newTestRelay(pings, drivers, active, pusher, &fakeBroadcaster{})
	relay.ProcessPending()

	assert.Equal(t, models.PingStatusFailed, pings.statuses[1])
	// The successful delivery is still recorded
	assert.Len(t, pings.sent, 1)
}

func TestProcessPendingMarksBadTimestampPingSent(t *testing.T) {
	pings := &fakePingStore{pending: []models.LocationPing{testPing(1, "ivan@fleet.bg")}}
	drivers := &fakeDriverSource{drivers: map[string]models.Driver{
		"ivan@fleet.bg": {ID: 1, Email: "ivan@fleet.bg"},
	}}
	active := &fakeActiveSource{active: map[string][]models.Booking{
		"ivan@fleet.bg": {activeBookingFor(10, "HTX-001")},
	}}
	pusher := &fakeLocationPusher{badStamp: true}

	relay := newTestRelay(pings, drivers, active, pusher, &fakeBroadcaster{})
	relay.ProcessPending()

	assert.Empty(t, pusher.pushed)
	assert.Equal(t, models.PingStatusSent, pings.statuses[1])
}

func TestProcessPendingSkipsBookingWithoutVehicle(t *testing.T) {
	noVehicle := activeBookingFor(10, "HTX-001")
	noVehicle.Vehicle = nil

	pings := &fakePingStore{pending: []models.LocationPing{testPing(1, "ivan@fleet.bg")}}
	drivers := &fakeDriverSource{drivers: map[string]models.Driver{
		"ivan@fleet.bg": {ID: 1, Email: "ivan@fleet.bg"},
	}}
	active := &fakeActiveSource{active: map[string][]models.Booking{
		"ivan@fleet.bg": {noVehicle},
	}}
	pusher := &fakeLocationPusher{}

	relay := newTestRelay(pings, drivers, active, pusher, &fakeBroadcaster{})
	relay.ProcessPending()

	assert.Empty(t, pusher.pushed)
	assert.Equal(t, models.PingStatusSent, pings.statuses[1])
}

func TestProcessPendingSkipsOverlappingInvocation(t *testing.T) {
	pings := &fakePingStore{pending: []models.LocationPing{testPing(1, "ivan@fleet.bg")}}
	relay := newTestRelay(pings, &fakeDriverSource{}, &fakeActiveSource{}, &fakeLocationPusher{}, &fakeBroadcaster{})

	relay.running.Store(true)
	relay.ProcessPending()

	assert.Zero(t, pings.findCall)

	relay.running.Store(false)
	relay.ProcessPending()
	assert.Equal(t, 1, pings.findCall)
}
