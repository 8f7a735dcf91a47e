package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"driverevents-backend/internal/database"
	"driverevents-backend/internal/middleware"
	"driverevents-backend/internal/models"
	"driverevents-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
)

type LocationPingRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timestamp string  `json:"timestamp"`
}

// SubmitLocation accepts a GPS ping from the authenticated driver's app.
// The ping is stored for the relay to process on its next poll.
func SubmitLocation(store *database.LocationStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		driver, ok := middleware.GetDriverFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var req LocationPingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if req.Latitude < -90 || req.Latitude > 90 || req.Longitude < -180 || req.Longitude > 180 {
			utils.RespondError(w, http.StatusBadRequest, "Coordinates out of range")
			return
		}

		// Pings carry the driver's local wall clock, no zone designator
		if req.Timestamp == "" {
			req.Timestamp = time.Now().Format(models.PingTimestampLayout)
		} else if _, err := time.Parse(models.PingTimestampLayout, req.Timestamp); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid timestamp, expected YYYY-MM-DD HH:MM:SS")
			return
		}

		ping, err := store.Insert(models.LocationPing{
			DriverEmail: driver.Email,
			Latitude:    req.Latitude,
			Longitude:   req.Longitude,
			Timestamp:   req.Timestamp,
		})
		if err != nil {
			log.Printf("❌ Failed to store ping from %s: %v", driver.Email, err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to store location")
			return
		}

		utils.RespondJSON(w, http.StatusAccepted, ping)
	}
}

// GetDriverLocations returns recent pings for one driver
func GetDriverLocations(store *database.LocationStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email := chi.URLParam(r, "email")
		if email == "" {
			utils.RespondError(w, http.StatusBadRequest, "Driver email is required")
			return
		}

		limit := 50
		if v := r.URL.Query().Get("limit"); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 && parsed <= 500 {
				limit = parsed
			}
		}

		pings, err := store.RecentForDriver(email, limit)
		if err != nil {
			log.Printf("❌ Failed to fetch pings for %s: %v", email, err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch locations")
			return
		}
		utils.RespondJSON(w, http.StatusOK, pings)
	}
}
