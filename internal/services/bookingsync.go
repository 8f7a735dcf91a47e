package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"driverevents-backend/internal/database"
	"driverevents-backend/internal/models"
)

// BookingSyncStore is the orchestrator's view of the booking store
type BookingSyncStore interface {
	FindByID(id int64) (models.Booking, error)
	FindByIDs(ids []int64) ([]models.Booking, error)
	MarkSynced(bookings []models.Booking) error
}

// BookingPusher is the orchestrator's view of the sync client
type BookingPusher interface {
	SyncBooking(bookingNumber, vehicleReg string, payload BookingPayload) bool
}

// ErrBookingNotFound is returned when a sync is requested for an id that
// does not exist.
var ErrBookingNotFound = errors.New("booking not found")

// ValidationError carries the reasons a booking cannot be sent to the
// external API. Retrying never helps, the booking data has to change.
type ValidationError struct {
	BookingNumber string
	Problems      []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("booking %s cannot be synced: %s", e.BookingNumber, strings.Join(e.Problems, ", "))
}

// ExternalError is returned when the external API rejected a valid booking
type ExternalError struct {
	BookingNumber string
}

func (e *ExternalError) Error() string {
	return fmt.Sprintf("external API rejected booking %s", e.BookingNumber)
}

// SyncResult summarizes one bulk sync run
type SyncResult struct {
	SyncedCount  int      `json:"synced_count"`
	FailedCount  int      `json:"failed_count"`
	SkippedCount int      `json:"skipped_count"`
	Synced       []string `json:"synced"`
	Failed       []string `json:"failed"`
	Skipped      []string `json:"skipped"`
}

// BookingSyncService pushes booking assignments to the external API,
// one at a time or in validated, retried batches.
type BookingSyncService struct {
	store  BookingSyncStore
	pusher BookingPusher

	maxBatchSize   int
	retryAttempts  int
	retryBaseDelay time.Duration
	sleep          func(time.Duration)
}

// NewBookingSyncService wires the orchestrator. Zero or negative limits fall
// back to safe defaults.
func NewBookingSyncService(store BookingSyncStore, pusher BookingPusher, maxBatchSize, retryAttempts int, retryBaseDelay time.Duration) *BookingSyncService {
	if maxBatchSize <= 0 {
		maxBatchSize = 100
	}
	if retryAttempts <= 0 {
		retryAttempts = 3
	}
	if retryBaseDelay <= 0 {
		retryBaseDelay = time.Second
	}
	return &BookingSyncService{
		store:          store,
		pusher:         pusher,
		maxBatchSize:   maxBatchSize,
		retryAttempts:  retryAttempts,
		retryBaseDelay: retryBaseDelay,
		sleep:          time.Sleep,
	}
}

// ValidateForSync collects every reason a booking cannot be pushed to the
// external API. An empty slice means the booking is sendable.
func ValidateForSync(b models.Booking) []string {
	var problems []string

	if strings.TrimSpace(b.BookingNumber) == "" {
		problems = append(problems, "missing booking number")
	}

	if b.Driver == nil {
		problems = append(problems, "no driver assigned")
	} else {
		if strings.TrimSpace(b.Driver.Name) == "" {
			problems = append(problems, "driver missing name")
		}
		if strings.TrimSpace(b.Driver.PhoneNumber) == "" {
			problems = append(problems, "driver missing phone number")
		}
	}

	if b.Vehicle == nil {
		problems = append(problems, "no vehicle assigned")
	} else {
		if strings.TrimSpace(b.Vehicle.RegistrationNumber) == "" {
			problems = append(problems, "vehicle missing registration number")
		}
		if strings.TrimSpace(b.Vehicle.Brand) == "" {
			problems = append(problems, "vehicle missing brand")
		}
		if strings.TrimSpace(b.Vehicle.Model) == "" {
			problems = append(problems, "vehicle missing model")
		}
	}

	return problems
}

// SyncSingle pushes one booking immediately, without retries. Returns
// ErrBookingNotFound, a *ValidationError, or a *ExternalError on failure.
func (s *BookingSyncService) SyncSingle(id int64) (models.Booking, error) {
	booking, err := s.store.FindByID(id)
	if errors.Is(err, database.ErrNotFound) {
		return models.Booking{}, ErrBookingNotFound
	}
	if err != nil {
		return models.Booking{}, err
	}

	if problems := ValidateForSync(booking); len(problems) > 0 {
		return models.Booking{}, &ValidationError{BookingNumber: booking.BookingNumber, Problems: problems}
	}

	if !s.pusher.SyncBooking(booking.BookingNumber, booking.Vehicle.RegistrationNumber, BuildBookingPayload(booking)) {
		return models.Booking{}, &ExternalError{BookingNumber: booking.BookingNumber}
	}

	if err := s.store.MarkSynced([]models.Booking{booking}); err != nil {
		return models.Booking{}, err
	}
	booking.SyncedWithAPI = true
	return booking, nil
}

// SyncMany pushes a batch of bookings, retrying transient external failures
// per booking. Bookings that fail validation are reported failed without a
// single API call. Batches beyond the size cap are truncated.
func (s *BookingSyncService) SyncMany(ids []int64) (SyncResult, error) {
	result := SyncResult{
		Synced:  []string{},
		Failed:  []string{},
		Skipped: []string{},
	}
	if len(ids) == 0 {
		return result, nil
	}
	if len(ids) > s.maxBatchSize {
		log.Printf("⚠️  Bulk sync request of %d bookings exceeds cap, truncating to %d", len(ids), s.maxBatchSize)
		ids = ids[:s.maxBatchSize]
	}

	bookings, err := s.store.FindByIDs(ids)
	if err != nil {
		return result, err
	}

	found := make(map[int64]models.Booking, len(bookings))
	for _, b := range bookings {
		found[b.ID] = b
	}

	var synced []models.Booking
	for _, id := range ids {
		booking, ok := found[id]
		if !ok {
			log.Printf("❌ Bulk sync: booking %d not found", id)
			result.Failed = append(result.Failed, fmt.Sprintf("id %d: not found", id))
			continue
		}

		if booking.SyncedWithAPI {
			result.Skipped = append(result.Skipped, booking.BookingNumber)
			continue
		}

		if problems := ValidateForSync(booking); len(problems) > 0 {
			log.Printf("❌ Bulk sync: booking %s failed validation: %s", booking.BookingNumber, strings.Join(problems, ", "))
			result.Failed = append(result.Failed, fmt.Sprintf("%s: %s", booking.BookingNumber, strings.Join(problems, ", ")))
			continue
		}

		if s.syncWithRetry(booking) {
			synced = append(synced, booking)
			result.Synced = append(result.Synced, booking.BookingNumber)
		} else {
			result.Failed = append(result.Failed, fmt.Sprintf("%s: external API rejected booking", booking.BookingNumber))
		}
	}

	if len(synced) > 0 {
		if err := s.store.MarkSynced(synced); err != nil {
			return result, err
		}
	}

	result.SyncedCount = len(result.Synced)
	result.FailedCount = len(result.Failed)
	result.SkippedCount = len(result.Skipped)
	log.Printf("🔄 Bulk sync finished: %d synced, %d failed, %d skipped", result.SyncedCount, result.FailedCount, result.SkippedCount)
	return result, nil
}

// syncWithRetry pushes one booking with linear backoff between attempts
func (s *BookingSyncService) syncWithRetry(booking models.Booking) bool {
	payload := BuildBookingPayload(booking)
	for attempt := 1; attempt <= s.retryAttempts; attempt++ {
		if s.pusher.SyncBooking(booking.BookingNumber, booking.Vehicle.RegistrationNumber, payload) {
			return true
		}
		if attempt < s.retryAttempts {
			delay := s.retryBaseDelay * time.Duration(attempt)
			log.Printf("⚠️  Sync attempt %d/%d failed for booking %s, retrying in %v", attempt, s.retryAttempts, booking.BookingNumber, delay)
			s.sleep(delay)
		}
	}
	log.Printf("❌ Booking %s failed all %d sync attempts", booking.BookingNumber, s.retryAttempts)
	return false
}
