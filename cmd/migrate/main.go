package main

import (
	"log"
	"os"

	"driverevents-backend/internal/database"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := database.Connect(dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	log.Println("Connected to database successfully")

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Println("Migration completed successfully!")

	if err := database.SeedUsers(db); err != nil {
		log.Fatalf("User seeding failed: %v", err)
	}
	if err := database.SeedDestinations(db); err != nil {
		log.Fatalf("Destination seeding failed: %v", err)
	}
	log.Println("Seed data loaded")
}
