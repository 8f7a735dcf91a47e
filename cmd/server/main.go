package main

import (
	"log"
	"net/http"
	"os"

	"driverevents-backend/internal/config"
	"driverevents-backend/internal/database"
	"driverevents-backend/internal/handlers"
	"driverevents-backend/internal/middleware"
	"driverevents-backend/internal/scheduler"
	"driverevents-backend/internal/services"
	"driverevents-backend/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
)

func main() {
	log.Println("═══════════════════════════════════════════════════════════════════")
	log.Println("🚀 DRIVER EVENTS BACKEND SERVER STARTING")
	log.Println("═══════════════════════════════════════════════════════════════════")

	// Load .env file
	log.Println("📂 Loading environment variables...")
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  Warning: .env file not found, using environment variables from system")
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Println("❌ FATAL ERROR: DATABASE_URL environment variable is required")
		log.Println("   Please set DATABASE_URL in deployment variables or .env file")
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Fatal("DATABASE_URL environment variable is required")
	}

	// Connect to database
	log.Println("🔌 Connecting to database...")
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Println("❌ FATAL ERROR: Database connection failed")
		log.Printf("   Error: %v", err)
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Fatal(err)
	}
	defer db.Close()
	log.Println("✅ Database connection established")

	// Run migrations
	log.Println("🔄 Running database migrations...")
	if err := database.Migrate(db); err != nil {
		log.Printf("❌ FATAL ERROR: Database migrations failed: %v", err)
		log.Fatal(err)
	}
	log.Println("✅ Database migrations completed")

	// Seed database
	log.Println("🌱 Seeding database with initial data...")
	if err := database.SeedUsers(db); err != nil {
		log.Fatalf("❌ FATAL ERROR: User seeding failed: %v", err)
	}
	if err := database.SeedDestinations(db); err != nil {
		log.Fatalf("❌ FATAL ERROR: Destination seeding failed: %v", err)
	}
	log.Println("✅ Seed data loaded")

	// Initialize Firebase Cloud Messaging
	// Supports both file path and base64-encoded credentials (for cloud deployments)
	var fcmService *services.FCMService
	if cfg.FirebaseCredentialsBase64 != "" {
		fcmService, err = services.NewFCMServiceFromBase64(cfg.FirebaseCredentialsBase64)
		if err != nil {
			log.Printf("⚠️  Failed to initialize FCM from base64: %v (push notifications disabled)", err)
			fcmService = nil
		} else {
			log.Println("✅ Firebase Cloud Messaging initialized from base64 credentials")
		}
	} else {
		credentialsFile := cfg.FirebaseCredentialsFile
		if credentialsFile == "" {
			credentialsFile = "./firebase-service-account.json"
		}
		fcmService, err = services.NewFCMService(credentialsFile)
		if err != nil {
			log.Printf("⚠️  Failed to initialize FCM from file: %v (push notifications disabled)", err)
			fcmService = nil
		} else {
			log.Println("✅ Firebase Cloud Messaging initialized from file")
		}
	}

	// Initialize WebSocket hub
	wsHub := websocket.NewHub()
	go wsHub.Run()
	log.Println("✅ WebSocket hub started")

	// Stores
	bookingStore := &database.BookingStore{DB: db}
	driverStore := &database.DriverStore{DB: db}
	vehicleStore := &database.VehicleStore{DB: db}
	destinationStore := &database.DestinationStore{DB: db}
	locationStore := &database.LocationStore{DB: db}

	// Core services
	externalAPI := services.NewExternalAPIService(cfg)
	activeCache := services.NewActiveBookingCache(bookingStore, destinationStore)
	bookingSync := services.NewBookingSyncService(bookingStore, externalAPI, cfg.SyncMaxBatchSize, cfg.SyncRetryAttempts, cfg.SyncRetryBaseDelay)
	locationRelay := services.NewLocationRelay(locationStore, driverStore, activeCache, externalAPI, wsHub, 200)

	// Background schedule: window refresh and ping relay
	sched := scheduler.New()
	sched.Add("active-bookings-refresh", cfg.RefreshInterval, activeCache.Refresh)
	sched.Add("location-relay-poll", cfg.LocationPollInterval, locationRelay.ProcessPending)
	sched.Start()
	defer sched.Stop()

	// Create router
	r := chi.NewRouter()

	// Middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// Authentication routes (no auth required)
	r.Post("/api/auth/login", handlers.Login(db))

	// WebSocket endpoint (authentication handled in handler via query param)
	r.Get("/ws", websocket.HandleWebSocket(wsHub))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Driver app endpoints (driver API token auth)
		r.Group(func(r chi.Router) {
			r.Use(middleware.DriverAuth(driverStore))

			r.Post("/driver/location", handlers.SubmitLocation(locationStore))
			r.Get("/driver/bookings/active", handlers.GetMyActiveBookings(activeCache))
			r.Post("/driver/fcm-token", handlers.UpdateFCMToken(driverStore))
		})

		// Dispatcher endpoints (require authentication + admin role)
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth)
			r.Use(middleware.RequireRole("admin"))

			// Bookings
			r.Get("/bookings", handlers.GetBookings(bookingStore))
			r.Post("/bookings", handlers.CreateBooking(bookingStore))
			r.Get("/bookings/unsynced", handlers.GetUnsyncedBookings(bookingStore))
			r.Get("/bookings/active", handlers.GetActiveBookings(activeCache))
			r.Post("/bookings/active/refresh", handlers.RefreshActiveBookings(activeCache))
			r.Get("/bookings/active/{email}", handlers.GetActiveBookingsForDriver(activeCache))
			r.Put("/bookings/bulk-sync", handlers.BulkSyncBookings(bookingSync))
			r.Post("/bookings/bulk-delete", handlers.BulkDeleteBookings(bookingStore))
			r.Get("/bookings/{id}", handlers.GetBooking(bookingStore))
			r.Put("/bookings/{id}", handlers.UpdateBooking(bookingStore))
			r.Delete("/bookings/{id}", handlers.DeleteBooking(bookingStore))
			r.Post("/bookings/{id}/assign-driver", handlers.AssignDriver(bookingStore, driverStore, fcmService))
			r.Put("/bookings/{id}/sync", handlers.SyncBooking(bookingSync))

			// Drivers
			r.Get("/drivers", handlers.GetDrivers(driverStore))
			r.Post("/drivers", handlers.CreateDriver(driverStore))
			r.Get("/drivers/{id}", handlers.GetDriver(driverStore))
			r.Put("/drivers/{id}", handlers.UpdateDriver(driverStore))
			r.Delete("/drivers/{id}", handlers.DeleteDriver(driverStore))
			r.Post("/drivers/{id}/regenerate-token", handlers.RegenerateDriverToken(driverStore))
			r.Get("/drivers/{email}/locations", handlers.GetDriverLocations(locationStore))

			// Vehicles
			r.Get("/vehicles", handlers.GetVehicles(vehicleStore))
			r.Post("/vehicles", handlers.CreateVehicle(vehicleStore))
			r.Get("/vehicles/{id}", handlers.GetVehicle(vehicleStore))
			r.Put("/vehicles/{id}", handlers.UpdateVehicle(vehicleStore))
			r.Delete("/vehicles/{id}", handlers.DeleteVehicle(vehicleStore))

			// Destinations (route durations)
			r.Get("/destinations", handlers.GetDestinations(destinationStore))
			r.Post("/destinations", handlers.CreateDestination(destinationStore))
			r.Put("/destinations/{id}", handlers.UpdateDestination(destinationStore))
			r.Delete("/destinations/{id}", handlers.DeleteDestination(destinationStore))
		})
	})

	port := cfg.Port
	if port == "" {
		port = "8080"
		log.Printf("⚠️  PORT not set, using default: %s", port)
	}

	log.Println("═══════════════════════════════════════════════════════════════════")
	log.Println("✅ ALL INITIALIZATION COMPLETE")
	log.Printf("🚀 Server starting on http://localhost:%s", port)
	log.Println("🔌 Ready to accept requests!")
	log.Println("═══════════════════════════════════════════════════════════════════")

	if err := http.ListenAndServe(":"+port, r); err != nil {
		log.Printf("❌ FATAL ERROR: Server failed to start on port %s: %v", port, err)
		os.Exit(1)
	}
}
