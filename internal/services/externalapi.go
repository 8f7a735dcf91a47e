package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"driverevents-backend/internal/config"
	"driverevents-backend/internal/models"
)

// driverTimezone is the zone driver devices report wall-clock timestamps in
const driverTimezone = "Europe/Sofia"

// wireTimestampLayout serializes UTC instants with an explicit offset suffix,
// which is what the dispatch platform expects
const wireTimestampLayout = "2006-01-02T15:04:05-07:00"

// BookingPayload is the vendor-facing booking sync body
type BookingPayload struct {
	Driver  BookingDriverPayload  `json:"driver"`
	Vehicle BookingVehiclePayload `json:"vehicle"`
}

type BookingDriverPayload struct {
	Name                   string `json:"name"`
	PhoneNumber            string `json:"phoneNumber"`
	PreferredContactMethod string `json:"preferredContactMethod"`
}

type BookingVehiclePayload struct {
	Brand        string `json:"brand"`
	Model        string `json:"model"`
	Color        string `json:"color"`
	Description  string `json:"description"`
	Registration string `json:"registration"`
}

// LocationPayload is the vendor-facing location push body
type LocationPayload struct {
	Timestamp string      `json:"timestamp"`
	Location  LatLngPoint `json:"location"`
}

type LatLngPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ExternalAPIService is the HTTP adapter for the external dispatch platform.
// It owns payload construction, headers, and the shared timeout-configured
// client. Retry policy belongs to the callers.
type ExternalAPIService struct {
	baseURL   string
	apiKey    string
	keyHeader string
	version   string
	client    *http.Client
	driverLoc *time.Location
}

// NewExternalAPIService builds the adapter with one pooled client for all
// outbound calls
func NewExternalAPIService(cfg config.Config) *ExternalAPIService {
	loc, err := time.LoadLocation(driverTimezone)
	if err != nil {
		log.Printf("⚠️  Failed to load %s timezone, falling back to UTC: %v", driverTimezone, err)
		loc = time.UTC
	}

	return &ExternalAPIService{
		baseURL:   cfg.ExternalAPIBaseURL,
		apiKey:    cfg.ExternalAPIKey,
		keyHeader: cfg.ExternalAPIKeyHeader,
		version:   cfg.ExternalAPIVersion,
		client:    &http.Client{Timeout: cfg.ExternalAPITimeout},
		driverLoc: loc,
	}
}

// SyncBooking PUTs the booking's driver/vehicle details to
// /bookings/{bookingNumber}/vehicles/{registration}. Returns false on any
// transport error or non-2xx response.
func (s *ExternalAPIService) SyncBooking(bookingNumber, vehicleReg string, payload BookingPayload) bool {
	url := fmt.Sprintf("%s/bookings/%s/vehicles/%s", s.baseURL, bookingNumber, vehicleReg)
	return s.send(http.MethodPut, url, payload)
}

// PushLocation POSTs a location update to
// /bookings/{bookingNumber}/vehicles/{registration}/location
func (s *ExternalAPIService) PushLocation(bookingNumber, vehicleReg string, payload LocationPayload) bool {
	url := fmt.Sprintf("%s/bookings/%s/vehicles/%s/location", s.baseURL, bookingNumber, vehicleReg)
	return s.send(http.MethodPost, url, payload)
}

func (s *ExternalAPIService) send(method, url string, payload interface{}) bool {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("❌ Failed to marshal payload for %s: %v", url, err)
		return false
	}

	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		log.Printf("❌ Failed to build request for %s: %v", url, err)
		return false
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(s.keyHeader, s.apiKey)
	req.Header.Set("X-Api-Version", s.version)

	resp, err := s.client.Do(req)
	if err != nil {
		log.Printf("❌ External API request failed: %s %s: %v", method, url, err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		log.Printf("🚨 External API returned 401 for %s %s, check EXTERNAL_API_KEY configuration", method, url)
		return false
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		log.Printf("❌ External API returned %d for %s %s: %s", resp.StatusCode, method, url, string(respBody))
		return false
	}

	return true
}

// NormalizeTimestamp interprets a driver's wall-clock timestamp in the fleet
// timezone, converts it to UTC, and serializes it with an explicit offset
func (s *ExternalAPIService) NormalizeTimestamp(wallClock string) (string, error) {
	local, err := time.ParseInLocation(models.PingTimestampLayout, wallClock, s.driverLoc)
	if err != nil {
		return "", fmt.Errorf("bad ping timestamp %q: %w", wallClock, err)
	}
	return local.UTC().Format(wireTimestampLayout), nil
}

// BuildBookingPayload maps a booking to the vendor format. Callers validate
// first; this only coalesces the optional fields.
func BuildBookingPayload(b models.Booking) BookingPayload {
	contact := string(models.ContactMethodVoice)
	if b.Driver != nil && b.Driver.PreferredContactMethod != "" {
		contact = string(b.Driver.PreferredContactMethod)
	}

	payload := BookingPayload{}
	if b.Driver != nil {
		payload.Driver = BookingDriverPayload{
			Name:                   b.Driver.Name,
			PhoneNumber:            b.Driver.PhoneNumber,
			PreferredContactMethod: contact,
		}
	}
	if b.Vehicle != nil {
		description := ""
		if b.Vehicle.Description != nil {
			description = *b.Vehicle.Description
		}
		payload.Vehicle = BookingVehiclePayload{
			Brand:        b.Vehicle.Brand,
			Model:        b.Vehicle.Model,
			Color:        b.Vehicle.Color,
			Description:  description,
			Registration: b.Vehicle.RegistrationNumber,
		}
	}
	return payload
}
