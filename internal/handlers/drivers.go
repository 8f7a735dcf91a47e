package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"driverevents-backend/internal/database"
	"driverevents-backend/internal/middleware"
	"driverevents-backend/internal/models"
	"driverevents-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
)

// GetDrivers returns all drivers
func GetDrivers(store *database.DriverStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		drivers, err := store.All()
		if err != nil {
			log.Printf("❌ Failed to fetch drivers: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch drivers")
			return
		}
		utils.RespondJSON(w, http.StatusOK, drivers)
	}
}

// GetDriver returns a single driver by ID
func GetDriver(store *database.DriverStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid driver ID")
			return
		}

		driver, err := store.FindByID(id)
		if errors.Is(err, database.ErrNotFound) {
			utils.RespondError(w, http.StatusNotFound, "Driver not found")
			return
		}
		if err != nil {
			log.Printf("❌ Failed to fetch driver %d: %v", id, err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch driver")
			return
		}
		utils.RespondJSON(w, http.StatusOK, driver)
	}
}

// CreateDriver creates a new driver with a fresh API token
func CreateDriver(store *database.DriverStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var driver models.Driver
		if err := json.NewDecoder(r.Body).Decode(&driver); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if driver.Email == "" || driver.Name == "" {
			utils.RespondError(w, http.StatusBadRequest, "Name and email are required")
			return
		}

		created, err := store.Create(driver)
		if err != nil {
			log.Printf("❌ Failed to create driver: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to create driver")
			return
		}

		log.Printf("✅ Driver created: %s", created.Email)
		utils.RespondJSON(w, http.StatusCreated, created)
	}
}

// UpdateDriver updates an existing driver
func UpdateDriver(store *database.DriverStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid driver ID")
			return
		}

		var driver models.Driver
		if err := json.NewDecoder(r.Body).Decode(&driver); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		updated, err := store.Update(id, driver)
		if errors.Is(err, database.ErrNotFound) {
			utils.RespondError(w, http.StatusNotFound, "Driver not found")
			return
		}
		if err != nil {
			log.Printf("❌ Failed to update driver %d: %v", id, err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to update driver")
			return
		}
		utils.RespondJSON(w, http.StatusOK, updated)
	}
}

// DeleteDriver removes a driver
func DeleteDriver(store *database.DriverStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid driver ID")
			return
		}

		if err := store.Delete(id); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				utils.RespondError(w, http.StatusNotFound, "Driver not found")
				return
			}
			log.Printf("❌ Failed to delete driver %d: %v", id, err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to delete driver")
			return
		}
		utils.RespondJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

// RegenerateDriverToken issues a new API token for the driver app
func RegenerateDriverToken(store *database.DriverStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid driver ID")
			return
		}

		token, err := store.RegenerateToken(id)
		if errors.Is(err, database.ErrNotFound) {
			utils.RespondError(w, http.StatusNotFound, "Driver not found")
			return
		}
		if err != nil {
			log.Printf("❌ Failed to regenerate token for driver %d: %v", id, err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to regenerate token")
			return
		}

		log.Printf("🔑 Token regenerated for driver %d", id)
		utils.RespondJSON(w, http.StatusOK, map[string]string{"token": token})
	}
}

type FCMTokenRequest struct {
	Token string `json:"token"`
}

// UpdateFCMToken stores the device push token for the authenticated driver
func UpdateFCMToken(store *database.DriverStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		driver, ok := middleware.GetDriverFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var req FCMTokenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if err := store.SetFCMToken(driver.ID, req.Token); err != nil {
			log.Printf("❌ Failed to store FCM token for driver %s: %v", driver.Email, err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to store token")
			return
		}
		utils.RespondJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}
