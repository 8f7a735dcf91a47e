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
	"driverevents-backend/internal/services"
	"driverevents-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
)

// GetBookings returns all bookings with driver and vehicle details
func GetBookings(store *database.BookingStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bookings, err := store.All()
		if err != nil {
			log.Printf("❌ Failed to fetch bookings: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch bookings")
			return
		}
		utils.RespondJSON(w, http.StatusOK, bookings)
	}
}

// GetBooking returns a single booking by ID
func GetBooking(store *database.BookingStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid booking ID")
			return
		}

		booking, err := store.FindByID(id)
		if errors.Is(err, database.ErrNotFound) {
			utils.RespondError(w, http.StatusNotFound, "Booking not found")
			return
		}
		if err != nil {
			log.Printf("❌ Failed to fetch booking %d: %v", id, err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch booking")
			return
		}
		utils.RespondJSON(w, http.StatusOK, booking)
	}
}

// CreateBooking creates a new booking
func CreateBooking(store *database.BookingStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var booking models.Booking
		if err := json.NewDecoder(r.Body).Decode(&booking); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if booking.BookingNumber == "" {
			utils.RespondError(w, http.StatusBadRequest, "Booking number is required")
			return
		}

		created, err := store.Create(booking)
		if err != nil {
			log.Printf("❌ Failed to create booking: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to create booking")
			return
		}

		log.Printf("✅ Booking created: %s", created.BookingNumber)
		utils.RespondJSON(w, http.StatusCreated, created)
	}
}

// UpdateBooking updates an existing booking and clears its synced flag
func UpdateBooking(store *database.BookingStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid booking ID")
			return
		}

		var booking models.Booking
		if err := json.NewDecoder(r.Body).Decode(&booking); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		updated, err := store.Update(id, booking)
		if errors.Is(err, database.ErrNotFound) {
			utils.RespondError(w, http.StatusNotFound, "Booking not found")
			return
		}
		if err != nil {
			log.Printf("❌ Failed to update booking %d: %v", id, err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to update booking")
			return
		}
		utils.RespondJSON(w, http.StatusOK, updated)
	}
}

// DeleteBooking removes a booking
func DeleteBooking(store *database.BookingStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid booking ID")
			return
		}

		if err := store.Delete(id); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				utils.RespondError(w, http.StatusNotFound, "Booking not found")
				return
			}
			log.Printf("❌ Failed to delete booking %d: %v", id, err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to delete booking")
			return
		}
		utils.RespondJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

type BulkIDsRequest struct {
	IDs []int64 `json:"ids"`
}

// BulkDeleteBookings removes a set of bookings in one request
func BulkDeleteBookings(store *database.BookingStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BulkIDsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if len(req.IDs) == 0 {
			utils.RespondError(w, http.StatusBadRequest, "No booking IDs provided")
			return
		}

		if err := store.DeleteByIDs(req.IDs); err != nil {
			log.Printf("❌ Failed to bulk delete bookings: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to delete bookings")
			return
		}
		log.Printf("🗑️  Deleted %d bookings", len(req.IDs))
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "deleted": len(req.IDs)})
	}
}

type AssignDriverRequest struct {
	DriverID int64 `json:"driver_id"`
}

// AssignDriver assigns a driver (and their vehicle) to a booking and
// notifies the driver's device
func AssignDriver(bookings *database.BookingStore, drivers *database.DriverStore, fcm *services.FCMService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid booking ID")
			return
		}

		var req AssignDriverRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		driver, err := drivers.FindByID(req.DriverID)
		if errors.Is(err, database.ErrNotFound) {
			utils.RespondError(w, http.StatusNotFound, "Driver not found")
			return
		}
		if err != nil {
			log.Printf("❌ Failed to fetch driver %d: %v", req.DriverID, err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch driver")
			return
		}

		booking, err := bookings.AssignDriver(id, driver)
		if errors.Is(err, database.ErrNotFound) {
			utils.RespondError(w, http.StatusNotFound, "Booking not found")
			return
		}
		if err != nil {
			log.Printf("❌ Failed to assign driver to booking %d: %v", id, err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to assign driver")
			return
		}

		// Push notification is best effort, assignment already happened
		if fcm != nil && driver.FCMToken != nil && *driver.FCMToken != "" {
			if err := fcm.SendBookingAssignedNotification(*driver.FCMToken, booking.BookingNumber, booking.BookingDate, booking.StartTime); err != nil {
				log.Printf("⚠️  Failed to notify driver %s: %v", driver.Email, err)
			}
		}

		log.Printf("✅ Driver %s assigned to booking %s", driver.Email, booking.BookingNumber)
		utils.RespondJSON(w, http.StatusOK, booking)
	}
}

// GetUnsyncedBookings returns bookings not yet pushed to the external API
func GetUnsyncedBookings(store *database.BookingStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bookings, err := store.FindUnsynced()
		if err != nil {
			log.Printf("❌ Failed to fetch unsynced bookings: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch bookings")
			return
		}
		utils.RespondJSON(w, http.StatusOK, bookings)
	}
}

// SyncBooking pushes one booking to the external API immediately
func SyncBooking(sync *services.BookingSyncService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid booking ID")
			return
		}

		booking, err := sync.SyncSingle(id)
		if err != nil {
			var validationErr *services.ValidationError
			var externalErr *services.ExternalError
			switch {
			case errors.Is(err, services.ErrBookingNotFound):
				utils.RespondError(w, http.StatusNotFound, "Booking not found")
			case errors.As(err, &validationErr):
				utils.RespondError(w, http.StatusBadRequest, validationErr.Error())
			case errors.As(err, &externalErr):
				utils.RespondError(w, http.StatusBadGateway, externalErr.Error())
			default:
				log.Printf("❌ Failed to sync booking %d: %v", id, err)
				utils.RespondError(w, http.StatusInternalServerError, "Failed to sync booking")
			}
			return
		}
		utils.RespondJSON(w, http.StatusOK, booking)
	}
}

// BulkSyncBookings pushes a batch of bookings to the external API and
// reports per-booking outcomes
func BulkSyncBookings(sync *services.BookingSyncService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BulkIDsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if len(req.IDs) == 0 {
			utils.RespondError(w, http.StatusBadRequest, "No booking IDs provided")
			return
		}

		result, err := sync.SyncMany(req.IDs)
		if err != nil {
			log.Printf("❌ Bulk sync failed: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Bulk sync failed")
			return
		}
		utils.RespondJSON(w, http.StatusOK, result)
	}
}

// GetActiveBookings returns bookings currently inside their pickup window
func GetActiveBookings(cache *services.ActiveBookingCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, cache.GetAllActive())
	}
}

// GetActiveBookingsForDriver returns active bookings for one driver
func GetActiveBookingsForDriver(cache *services.ActiveBookingCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email := chi.URLParam(r, "email")
		if email == "" {
			utils.RespondError(w, http.StatusBadRequest, "Driver email is required")
			return
		}
		utils.RespondJSON(w, http.StatusOK, cache.GetActiveForDriver(email))
	}
}

// GetMyActiveBookings returns active bookings for the authenticated driver
func GetMyActiveBookings(cache *services.ActiveBookingCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		driver, ok := middleware.GetDriverFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		utils.RespondJSON(w, http.StatusOK, cache.GetActiveForDriver(driver.Email))
	}
}

// RefreshActiveBookings forces an immediate cache refresh
func RefreshActiveBookings(cache *services.ActiveBookingCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cache.Refresh()
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"active":  cache.Size(),
		})
	}
}
