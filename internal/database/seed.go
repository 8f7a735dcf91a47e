package database

import (
	"log"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

// SeedUsers creates the default dashboard accounts if none exist
func SeedUsers(db *sqlx.DB) error {
	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM users"); err != nil {
		return err
	}

	if count > 0 {
		log.Println("✓ Users already seeded, skipping...")
		return nil
	}

	log.Println("🌱 Seeding default users...")

	users := []struct {
		Email    string
		Password string
		Name     string
		Role     string
	}{
		{"admin@driverevents.local", "admin123", "Dispatch Manager", "admin"},
	}

	for _, u := range users {
		hashed, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}

		_, err = db.Exec(`
			INSERT INTO users (id, email, password, name, role)
			VALUES ($1, $2, $3, $4, $5)`,
			uuid.New().String(), u.Email, string(hashed), u.Name, u.Role)
		if err != nil {
			return err
		}
	}

	log.Printf("✅ Seeded %d users", len(users))
	return nil
}

// SeedDestinations loads the standard route durations if the table is empty.
// These mirror the dispatch office's transfer sheet.
func SeedDestinations(db *sqlx.DB) error {
	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM destinations"); err != nil {
		return err
	}

	if count > 0 {
		log.Println("✓ Destinations already seeded, skipping...")
		return nil
	}

	log.Println("🌱 Seeding route durations...")

	routes := []struct {
		From    string
		To      string
		Minutes int
	}{
		{"SOFIA AIRPORT T2", "BANSKO", 160},
		{"SOFIA AIRPORT T2", "BOROVETS", 75},
		{"SOFIA AIRPORT T2", "PAMPOROVO", 185},
		{"SOFIA AIRPORT T2", "SOFIA CENTER", 30},
		{"BANSKO", "SOFIA AIRPORT T2", 160},
		{"BOROVETS", "SOFIA AIRPORT T2", 75},
		{"PAMPOROVO", "SOFIA AIRPORT T2", 185},
		{"SOFIA CENTER", "SOFIA AIRPORT T2", 30},
		{"PLOVDIV AIRPORT", "PAMPOROVO", 90},
		{"PAMPOROVO", "PLOVDIV AIRPORT", 90},
	}

	for _, r := range routes {
		_, err := db.Exec(`
			INSERT INTO destinations (start_location, end_location, duration_minutes)
			VALUES ($1, $2, $3)`, r.From, r.To, r.Minutes)
		if err != nil {
			return err
		}
	}

	log.Printf("✅ Seeded %d routes", len(routes))
	return nil
}
