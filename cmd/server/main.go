package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"smartbin-backend/internal/aggregate"
	"smartbin-backend/internal/database"
	"smartbin-backend/internal/emptying"
	"smartbin-backend/internal/handlers"
	"smartbin-backend/internal/ingest"
	"smartbin-backend/internal/level"
	"smartbin-backend/internal/middleware"
	"smartbin-backend/internal/models"
	"smartbin-backend/internal/notifier"
	"smartbin-backend/internal/services"
	"smartbin-backend/internal/telemetry"
	"smartbin-backend/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
)

// envSeconds reads a duration override in whole seconds.
func envSeconds(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("⚠️  Ignoring invalid %s=%q", key, v)
		return fallback
	}
	return time.Duration(n) * time.Second
}

func main() {
	log.Println("═══════════════════════════════════════════════════════════════════")
	log.Println("🚀 SMARTBIN BACKEND SERVER STARTING")
	log.Println("═══════════════════════════════════════════════════════════════════")

	// Load .env file
	log.Println("📂 Loading environment variables...")
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  Warning: .env file not found, using environment variables from system")
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	// Get database URL
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Println("❌ FATAL ERROR: DATABASE_URL environment variable is required")
		log.Println("   Please set DATABASE_URL in Railway Variables or .env file")
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Fatal("DATABASE_URL environment variable is required")
	}

	if os.Getenv("APP_JWT_SECRET") == "" {
		log.Fatal("❌ FATAL ERROR: APP_JWT_SECRET environment variable is required")
	}

	// Connect to database
	db, err := database.Connect(dbURL)
	if err != nil {
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Println("❌ FATAL ERROR: Database connection failed")
		log.Printf("   Error: %v", err)
		log.Println("   This is usually caused by:")
		log.Println("   1. Wrong DATABASE_URL format")
		log.Println("   2. PostgreSQL service is down")
		log.Println("   3. Network connectivity issue")
		log.Println("   4. Invalid credentials")
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Fatal(err)
	}
	defer db.Close()

	// Run migrations
	log.Println("🔄 Running database migrations...")
	if err := database.Migrate(db); err != nil {
		log.Println("❌ FATAL ERROR: Database migrations failed")
		log.Fatal(err)
	}

	// Seed database
	log.Println("🌱 Seeding database with initial data...")
	if err := database.SeedUsers(db); err != nil {
		log.Println("❌ FATAL ERROR: User seeding failed")
		log.Fatal(err)
	}
	if err := database.SeedBins(db); err != nil {
		log.Println("❌ FATAL ERROR: Bin seeding failed")
		log.Fatal(err)
	}

	// Initialize Firebase Cloud Messaging
	// Supports both file path and base64-encoded credentials (for Railway/cloud deployments)
	var fcmService *services.FCMService
	fcmCredsBase64 := os.Getenv("FIREBASE_CREDENTIALS_BASE64")

	if fcmCredsBase64 != "" {
		fcmService, err = services.NewFCMServiceFromBase64(fcmCredsBase64)
		if err != nil {
			log.Printf("⚠️  Failed to initialize FCM from base64: %v (push notifications disabled)", err)
			fcmService = nil
		} else {
			log.Println("✅ Firebase Cloud Messaging initialized from base64 credentials")
		}
	} else {
		fcmCredentialsFile := os.Getenv("FIREBASE_CREDENTIALS_FILE")
		if fcmCredentialsFile == "" {
			fcmCredentialsFile = "./firebase-service-account.json"
		}
		fcmService, err = services.NewFCMService(fcmCredentialsFile)
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

	// Wire the telemetry pipeline
	store := database.NewStore(db)
	calc := level.NewCalculator()
	tank := level.NewTank()
	levelNotifier := notifier.New(store, notifier.DefaultTiers)
	recorder := emptying.NewRecorder(store, tank, envSeconds("EMPTYING_CONFIRM_TIMEOUT_SECONDS", emptying.DefaultConfirmTimeout))
	engine := aggregate.NewEngine(store)

	// Telemetry source: same credential options as FCM, separate database URL
	var ingestor *ingest.Ingestor
	rtdbURL := os.Getenv("FIREBASE_DATABASE_URL")
	if rtdbURL == "" {
		log.Println("⚠️  FIREBASE_DATABASE_URL not set, telemetry ingestion disabled")
	} else {
		basePath := os.Getenv("TELEMETRY_BASE_PATH")
		if basePath == "" {
			basePath = "sensors"
		}

		ctx := context.Background()
		var source *telemetry.RTDBSource
		if fcmCredsBase64 != "" {
			source, err = telemetry.NewRTDBSourceFromBase64(ctx, fcmCredsBase64, rtdbURL, basePath, telemetry.DefaultPollInterval)
		} else {
			credsFile := os.Getenv("FIREBASE_CREDENTIALS_FILE")
			if credsFile == "" {
				credsFile = "./firebase-service-account.json"
			}
			source, err = telemetry.NewRTDBSource(ctx, credsFile, rtdbURL, basePath, telemetry.DefaultPollInterval)
		}
		if err != nil {
			log.Println("❌ FATAL ERROR: Telemetry source initialization failed")
			log.Fatal(err)
		}

		ingestor = ingest.New(source, store, calc, levelNotifier, recorder, wsHub, envSeconds("SAMPLE_INTERVAL_SECONDS", ingest.DefaultSampleInterval))
		ingestor.SetAlertSink(services.NewAlertDispatcher(db, wsHub, fcmService))
		defer ingestor.Stop()

		// Watch every non-retired bin
		var bins []models.Bin
		if err := db.Select(&bins, `SELECT * FROM bins WHERE status != 'retired'`); err != nil {
			log.Println("❌ FATAL ERROR: Failed to load bins for telemetry watch")
			log.Fatal(err)
		}
		for _, bin := range bins {
			if err := ingestor.Watch(bin.ID, bin.Name); err != nil {
				log.Printf("⚠️  Failed to watch telemetry for bin %s: %v", bin.Name, err)
			}
		}
		log.Printf("✅ Telemetry ingestion started for %d bins", len(bins))
	}

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
		AllowedMethods:   []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
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
	r.Get("/ws", websocket.HandleWebSocket(wsHub, db))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Authenticated endpoints (any role)
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth)

			// Bins (visibility scoped by role inside the handlers)
			r.Get("/bins", handlers.GetBins(db))
			r.Get("/bins/{id}", handlers.GetBin(db))
			r.Get("/bins/{id}/samples", handlers.GetBinSamples(db))

			// Threshold notifications
			r.Get("/notifications", handlers.GetNotifications(db))
			r.Patch("/notifications/{id}/read", handlers.MarkNotificationRead(db))

			// Emptying sessions
			r.Post("/bins/{id}/empty", handlers.StartEmptying(db, recorder))
			r.Delete("/bins/{id}/empty", handlers.CancelEmptying(recorder))
			r.Get("/emptyings", handlers.GetEmptyings(db))
			r.Get("/bins/{id}/emptyings", handlers.GetBinEmptyings(db))

			// Per-user stats
			r.Get("/analytics/my-stats", handlers.GetMyStats(engine))

			// FCM token registration
			r.Post("/devices/fcm-token", handlers.RegisterFCMToken(db))
		})

		// Admin endpoints (require authentication + admin role)
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth)
			r.Use(middleware.RequireRole(models.RoleAdmin))

			// Bin management
			r.Post("/bins", handlers.CreateBin(db, ingestor))
			r.Patch("/bins/{id}", handlers.UpdateBin(db, ingestor))
			r.Delete("/bins/{id}", handlers.DeleteBin(db, ingestor))

			// Assignments
			r.Get("/assignments", handlers.GetAssignments(db))
			r.Get("/bins/{id}/assignees", handlers.GetBinAssignees(db))
			r.Put("/bins/{id}/assignees/{userId}", handlers.AssignUser(db))
			r.Delete("/bins/{id}/assignees/{userId}", handlers.UnassignUser(db))

			// User management
			r.Get("/users", handlers.GetUsers(db))
			r.Post("/users", handlers.CreateUser(db))
			r.Delete("/users/{id}", handlers.DeleteUser(db))

			// Fleet-wide analytics
			r.Get("/analytics/volume-by-bin", handlers.GetVolumeByBin(engine))
			r.Get("/analytics/leaderboard", handlers.GetLeaderboard(engine))
		})
	})

	// Get port
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
		log.Printf("⚠️  PORT not set, using default: %s", port)
	}

	log.Println("═══════════════════════════════════════════════════════════════════")
	log.Println("✅ ALL INITIALIZATION COMPLETE")
	log.Printf("🚀 Server starting on http://localhost:%s", port)
	log.Println("🔌 Ready to accept requests!")
	log.Println("═══════════════════════════════════════════════════════════════════")

	// Start server
	if err := http.ListenAndServe(":"+port, r); err != nil {
		log.Println("❌ FATAL ERROR: Server failed to start")
		log.Fatal(err)
	}
}
