package database

import (
	"errors"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// ErrNotFound is returned by store lookups when no row matches.
// Handlers map it to 404; batch operations map it to failure counts.
var ErrNotFound = errors.New("not found")

func Connect(dbURL string) (*sqlx.DB, error) {
	log.Println("🔌 Connecting to database...")

	db, err := sqlx.Connect("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("✅ Database connection established")
	return db, nil
}

func Migrate(db *sqlx.DB) error {
	migrations := []string{
		// Dashboard login accounts
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			name TEXT NOT NULL,
			role TEXT NOT NULL CHECK(role IN ('driver', 'admin')),
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,

		// Fleet vehicles
		`CREATE TABLE IF NOT EXISTS vehicles (
			id SERIAL PRIMARY KEY,
			registration_number TEXT NOT NULL UNIQUE,
			brand TEXT NOT NULL,
			model TEXT NOT NULL,
			color TEXT NOT NULL,
			capacity INT NOT NULL DEFAULT 4,
			description TEXT,
			status TEXT NOT NULL DEFAULT 'available'
				CHECK(status IN ('available', 'in_use', 'maintenance')),
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,

		// Fleet drivers
		`CREATE TABLE IF NOT EXISTS drivers (
			id SERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			phone_number TEXT NOT NULL,
			preferred_contact_method TEXT NOT NULL DEFAULT 'VOICE'
				CHECK(preferred_contact_method IN ('VOICE', 'SMS', 'WHATSAPP')),
			status TEXT NOT NULL DEFAULT 'available'
				CHECK(status IN ('available', 'busy', 'unavailable')),
			vehicle_id INT REFERENCES vehicles(id) ON DELETE SET NULL,
			api_token TEXT NOT NULL DEFAULT '',
			token_expiry BIGINT NOT NULL DEFAULT 0,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			fcm_token TEXT,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,

		// Route durations between known locations
		`CREATE TABLE IF NOT EXISTS destinations (
			id SERIAL PRIMARY KEY,
			start_location TEXT NOT NULL,
			end_location TEXT NOT NULL,
			duration_minutes INT NOT NULL CHECK(duration_minutes > 0),
			UNIQUE(start_location, end_location)
		)`,

		// Bookings (dates kept in the spreadsheet's dd.MM.yyyy format)
		`CREATE TABLE IF NOT EXISTS bookings (
			id SERIAL PRIMARY KEY,
			booking_number TEXT NOT NULL UNIQUE,
			driver_id INT REFERENCES drivers(id) ON DELETE SET NULL,
			driver_name TEXT NOT NULL DEFAULT '',
			vehicle_id INT REFERENCES vehicles(id) ON DELETE SET NULL,
			vehicle_number TEXT NOT NULL DEFAULT '',
			booking_date TEXT NOT NULL,
			start_time TEXT NOT NULL,
			start_location TEXT NOT NULL,
			destination TEXT NOT NULL,
			arrival_or_departure TEXT NOT NULL DEFAULT 'arrival',
			service_type TEXT NOT NULL DEFAULT 'private',
			notes TEXT NOT NULL DEFAULT '',
			synced_with_api BOOLEAN NOT NULL DEFAULT FALSE,
			status TEXT NOT NULL DEFAULT 'before_pickup'
				CHECK(status IN ('before_pickup', 'waiting_for_customer', 'after_pickup', 'completed')),
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,

		// Raw GPS pings from driver devices
		`CREATE TABLE IF NOT EXISTS driver_locations (
			id SERIAL PRIMARY KEY,
			driver_email TEXT NOT NULL,
			latitude DOUBLE PRECISION NOT NULL,
			longitude DOUBLE PRECISION NOT NULL,
			timestamp TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'unprocessed'
				CHECK(status IN ('unprocessed', 'sent', 'failed')),
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,

		`CREATE INDEX IF NOT EXISTS idx_driver_locations_status
			ON driver_locations(status, id)`,

		// Locations delivered to the external API (delivery audit trail)
		`CREATE TABLE IF NOT EXISTS sent_locations (
			id SERIAL PRIMARY KEY,
			ping_id INT NOT NULL,
			booking_id INT NOT NULL,
			booking_number TEXT NOT NULL,
			vehicle_registration TEXT NOT NULL,
			latitude DOUBLE PRECISION NOT NULL,
			longitude DOUBLE PRECISION NOT NULL,
			timestamp TEXT NOT NULL,
			sent_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,

		`CREATE INDEX IF NOT EXISTS idx_bookings_booking_date ON bookings(booking_date)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_synced ON bookings(synced_with_api)`,
	}

	for i, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	log.Printf("✅ Ran %d migrations", len(migrations))
	return nil
}
