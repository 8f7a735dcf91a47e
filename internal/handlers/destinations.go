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

// GetDestinations returns all known routes and their durations
func GetDestinations(store *database.DestinationStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		destinations, err := store.All()
		if err != nil {
			log.Printf("❌ Failed to fetch destinations: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch destinations")
			return
		}
		utils.RespondJSON(w, http.StatusOK, destinations)
	}
}

// CreateDestination registers a route with its expected duration
func CreateDestination(store *database.DestinationStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var destination models.Destination
		if err := json.NewDecoder(r.Body).Decode(&destination); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if destination.StartLocation == "" || destination.EndLocation == "" {
			utils.RespondError(w, http.StatusBadRequest, "Start and end locations are required")
			return
		}
		if destination.DurationMinutes <= 0 {
			utils.RespondError(w, http.StatusBadRequest, "Duration must be positive")
			return
		}

		created, err := store.Create(destination)
		if err != nil {
			log.Printf("❌ Failed to create destination: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to create destination")
			return
		}
		utils.RespondJSON(w, http.StatusCreated, created)
	}
}

// UpdateDestination updates a route's duration or endpoints
func UpdateDestination(store *database.DestinationStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid destination ID")
			return
		}

		var destination models.Destination
		if err := json.NewDecoder(r.Body).Decode(&destination); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		updated, err := store.Update(id, destination)
		if errors.Is(err, database.ErrNotFound) {
			utils.RespondError(w, http.StatusNotFound, "Destination not found")
			return
		}
		if err != nil {
			log.Printf("❌ Failed to update destination %d: %v", id, err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to update destination")
			return
		}
		utils.RespondJSON(w, http.StatusOK, updated)
	}
}

// DeleteDestination removes a route
func DeleteDestination(store *database.DestinationStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid destination ID")
			return
		}

		if err := store.Delete(id); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				utils.RespondError(w, http.StatusNotFound, "Destination not found")
				return
			}
			log.Printf("❌ Failed to delete destination %d: %v", id, err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to delete destination")
			return
		}
		utils.RespondJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}
