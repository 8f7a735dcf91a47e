package services

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"driverevents-backend/internal/config"
	"driverevents-backend/internal/models"
)

func newTestAPIService(baseURL string) *ExternalAPIService {
	return NewExternalAPIService(config.Config{
		ExternalAPIBaseURL:   baseURL,
		ExternalAPIKey:       "test-key",
		ExternalAPIKeyHeader: "X-Api-Key",
		ExternalAPIVersion:   "2024-01",
		ExternalAPITimeout:   5 * time.Second,
	})
}

func TestSyncBookingSendsVendorFormat(t *testing.T) {
	var gotMethod, gotPath, gotKey, gotVersion, gotContentType string
	var gotBody []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotKey = r.Header.Get("X-Api-Key")
		gotVersion = r.Header.Get("X-Api-Version")
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	svc := newTestAPIService(server.URL)
	description := "8 seats"
	booking := models.Booking{
		BookingNumber: "HTX-001",
		Driver: &models.Driver{
			Name:                   "Ivan Petrov",
			PhoneNumber:            "+359888111222",
			PreferredContactMethod: models.ContactMethodWhatsApp,
		},
		Vehicle: &models.Vehicle{
			RegistrationNumber: "CB1234XP",
			Brand:              "Mercedes",
			Model:              "Vito",
			Color:              "black",
			Description:        &description,
		},
	}

	ok := svc.SyncBooking(booking.BookingNumber, booking.Vehicle.RegistrationNumber, BuildBookingPayload(booking))

	require.True(t, ok)
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/bookings/HTX-001/vehicles/CB1234XP", gotPath)
	assert.Equal(t, "test-key", gotKey)
	assert.Equal(t, "2024-01", gotVersion)
	assert.Equal(t, "application/json", gotContentType)

	var payload map[string]map[string]string
	require.NoError(t, json.Unmarshal(gotBody, &payload))
	assert.Equal(t, "Ivan Petrov", payload["driver"]["name"])
	assert.Equal(t, "+359888111222", payload["driver"]["phoneNumber"])
	assert.Equal(t, "WHATSAPP", payload["driver"]["preferredContactMethod"])
	assert.Equal(t, "CB1234XP", payload["vehicle"]["registration"])
	assert.Equal(t, "Mercedes", payload["vehicle"]["brand"])
	assert.Equal(t, "Vito", payload["vehicle"]["model"])
	assert.Equal(t, "8 seats", payload["vehicle"]["description"])
}

func TestPushLocationPostsToLocationPath(t *testing.T) {
	var gotMethod, gotPath string
	var gotBody []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	svc := newTestAPIService(server.URL)
	payload := LocationPayload{
		Timestamp: "2025-01-15T07:50:00+00:00",
		Location:  LatLngPoint{Lat: 42.6977, Lng: 23.3219},
	}

	ok := svc.PushLocation("HTX-001", "CB1234XP", payload)

	require.True(t, ok)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/bookings/HTX-001/vehicles/CB1234XP/location", gotPath)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(gotBody, &body))
	assert.Equal(t, "2025-01-15T07:50:00+00:00", body["timestamp"])
	location := body["location"].(map[string]interface{})
	assert.InDelta(t, 42.6977, location["lat"], 0.0001)
	assert.InDelta(t, 23.3219, location["lng"], 0.0001)
}

func TestSendReportsFailureOnUnauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	svc := newTestAPIService(server.URL)
	assert.False(t, svc.PushLocation("HTX-001", "CB1234XP", LocationPayload{}))
}

func TestSendReportsFailureOnServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	svc := newTestAPIService(server.URL)
	assert.False(t, svc.SyncBooking("HTX-001", "CB1234XP", BookingPayload{}))
}

func TestSendReportsFailureOnUnreachableHost(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse connections

	svc := newTestAPIService(server.URL)
	assert.False(t, svc.PushLocation("HTX-001", "CB1234XP", LocationPayload{}))
}

func TestNormalizeTimestampConvertsLocalWallClockToUTC(t *testing.T) {
	svc := newTestAPIService("http://unused")

	// Sofia is UTC+2 in winter
	normalized, err := svc.NormalizeTimestamp("2025-01-15 09:50:00")
	require.NoError(t, err)
	assert.Equal(t, "2025-01-15T07:50:00+00:00", normalized)

	// and UTC+3 in summer (DST)
	normalized, err = svc.NormalizeTimestamp("2025-07-15 09:50:00")
	require.NoError(t, err)
	assert.Equal(t, "2025-07-15T06:50:00+00:00", normalized)
}

func TestNormalizeTimestampRejectsGarbage(t *testing.T) {
	svc := newTestAPIService("http://unused")

	_, err := svc.NormalizeTimestamp("not-a-timestamp")
	assert.Error(t, err)
}

func TestBuildBookingPayloadDefaultsContactMethod(t *testing.T) {
	booking := models.Booking{
		BookingNumber: "HTX-001",
		Driver:        &models.Driver{Name: "Ivan Petrov", PhoneNumber: "+359888111222"},
		Vehicle:       &models.Vehicle{RegistrationNumber: "CB1234XP", Brand: "Mercedes", Model: "Vito"},
	}

	payload := BuildBookingPayload(booking)

	assert.Equal(t, "VOICE", payload.Driver.PreferredContactMethod)
	assert.Empty(t, payload.Vehicle.Description)
}
