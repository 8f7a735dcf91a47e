package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"driverevents-backend/internal/database"
	"driverevents-backend/internal/models"
	"driverevents-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
)

// GetVehicles returns all vehicles
func GetVehicles(store *database.VehicleStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vehicles, err := store.All()
		if err != nil {
			log.Printf("❌ Failed to fetch vehicles: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch vehicles")
			return
		}
		utils.RespondJSON(w, http.StatusOK, vehicles)
	}
}

// GetVehicle returns a single vehicle by ID
func GetVehicle(store *database.VehicleStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid vehicle ID")
			return
		}

		vehicle, err := store.FindByID(id)
		if errors.Is(err, database.ErrNotFound) {
			utils.RespondError(w, http.StatusNotFound, "Vehicle not found")
			return
		}
		if err != nil {
			log.Printf("❌ Failed to fetch vehicle %d: %v", id, err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch vehicle")
			return
		}
		utils.RespondJSON(w, http.StatusOK, vehicle)
	}
}

// CreateVehicle creates a new vehicle
func CreateVehicle(store *database.VehicleStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var vehicle models.Vehicle
		if err := json.NewDecoder(r.Body).Decode(&vehicle); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if vehicle.RegistrationNumber == "" {
			utils.RespondError(w, http.StatusBadRequest, "Registration number is required")
			return
		}

		created, err := store.Create(vehicle)
		if err != nil {
			log.Printf("❌ Failed to create vehicle: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to create vehicle")
			return
		}

		log.Printf("✅ Vehicle created: %s", created.RegistrationNumber)
		utils.RespondJSON(w, http.StatusCreated, created)
	}
}

// UpdateVehicle updates an existing vehicle
func UpdateVehicle(store *database.VehicleStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid vehicle ID")
			return
		}

		var vehicle models.Vehicle
		if err := json.NewDecoder(r.Body).Decode(&vehicle); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		updated, err := store.Update(id, vehicle)
		if errors.Is(err, database.ErrNotFound) {
			utils.RespondError(w, http.StatusNotFound, "Vehicle not found")
			return
		}
		if err != nil {
			log.Printf("❌ Failed to update vehicle %d: %v", id, err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to update vehicle")
			return
		}
		utils.RespondJSON(w, http.StatusOK, updated)
	}
}

// DeleteVehicle removes a vehicle
func DeleteVehicle(store *database.VehicleStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid vehicle ID")
			return
		}

		if err := store.Delete(id); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				utils.RespondError(w, http.StatusNotFound, "Vehicle not found")
				return
			}
			log.Printf("❌ Failed to delete vehicle %d: %v", id, err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to delete vehicle")
			return
		}
		utils.RespondJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}
