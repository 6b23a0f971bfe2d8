// cmd/api/main.go
// Main entry point for the application.
// This file bootstraps all components and starts the server.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ojpierre/mutuals-backend/internal/common/database"
	"github.com/ojpierre/mutuals-backend/internal/config"
	"github.com/ojpierre/mutuals-backend/internal/conversations"
	"github.com/ojpierre/mutuals-backend/internal/realtime"
	"github.com/ojpierre/mutuals-backend/internal/relationships"
	"github.com/ojpierre/mutuals-backend/internal/users"
)

var startTime = time.Now()

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	log.Println("========================================")
	log.Println("🚀 Starting Mutuals Messaging API")
	log.Println("========================================")

	// 1. Load environment variables
	log.Println("📁 Step 1: Loading .env file...")
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  Warning: No .env file found (%v), using environment variables", err)
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	// 2. Load and validate configuration
	log.Println("\n📋 Step 2: Loading configuration...")
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal("❌ Configuration validation failed:", err)
	}
	log.Println("✅ Configuration loaded and valid")

	// 3. Connect to PostgreSQL
	log.Println("\n🗄️  Step 3: Connecting to PostgreSQL...")
	db, err := database.NewPostgresDBFromURL(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("❌ Failed to connect to PostgreSQL:", err)
	}
	defer db.Close()
	log.Println("✅ Connected to PostgreSQL successfully")

	// 4. Connect to Redis (optional)
	log.Println("\n📮 Step 4: Connecting to Redis...")
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.NewRedisClientFromURL(cfg.RedisURL)
		if err != nil {
			log.Printf("⚠️  Redis unavailable: %v, continuing without Redis", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
			log.Println("✅ Connected to Redis successfully")
		}
	} else {
		log.Println("⚠️  Redis URL not configured, skipping Redis connection")
	}

	// 5. Run database migrations
	log.Println("\n🔨 Step 5: Running database migrations...")
	if err := runMigrations(db); err != nil {
		log.Fatal("❌ Failed to run migrations:", err)
	}
	log.Println("✅ Database migrations completed")

	// 6. Start the realtime hub
	log.Println("\n📡 Step 6: Starting realtime hub...")
	hub := realtime.NewHub()
	go hub.Run()
	realtimeHandler := realtime.NewHandler(hub, cfg.WSSendBuffer)
	log.Println("✅ Realtime hub started")

	// 7. Initialize Users module
	log.Println("\n🔐 Step 7: Initializing users module...")

	usersRepo := users.NewPostgresRepository(db)

	var emailProvider users.EmailProvider
	switch cfg.EmailProvider {
	case "sendgrid":
		emailProvider = users.NewSendGridEmailProvider(cfg.SendGridAPIKey, cfg.EmailFrom, "Mutuals")
		log.Println("   ✅ Using SendGrid for emails")
	case "smtp":
		emailProvider = users.NewSMTPEmailProvider(
			cfg.SMTPHost,
			fmt.Sprintf("%d", cfg.SMTPPort),
			cfg.SMTPUsername,
			cfg.SMTPPassword,
			cfg.EmailFrom,
		)
		log.Println("   ✅ Using SMTP for emails")
	default:
		emailProvider = users.NewMockEmailProvider()
		log.Println("   ⚠️  Using mock email provider (development mode)")
	}

	usersService := users.NewService(usersRepo, redisClient, emailProvider, &users.Config{
		JWTSecret:          cfg.JWTSecret,
		AppURL:             cfg.AppURL,
		BCryptCost:         cfg.BCryptCost,
		AccessTokenExpiry:  cfg.AccessTokenExpiry,
		RefreshTokenExpiry: cfg.RefreshTokenExpiry,
		ConfirmTokenExpiry: cfg.ConfirmTokenExpiry,
		ResetTokenExpiry:   cfg.ResetTokenExpiry,
	})
	usersHandler := users.NewHandler(usersService)
	authMiddleware := users.NewMiddleware(usersService)
	log.Println("✅ Users module initialized")

	// 8. Initialize Conversations module
	log.Println("\n💬 Step 8: Initializing conversations module...")
	conversationsRepo := conversations.NewPostgresRepository(db)
	log.Println("✅ Conversations repository initialized")

	// 9. Initialize Relationships module
	log.Println("\n🤝 Step 9: Initializing relationships module...")
	relationshipsRepo := relationships.NewPostgresRepository(db)
	relationshipsService := relationships.NewService(relationshipsRepo, usersRepo, conversationsRepo, hub)
	relationshipsHandler := relationships.NewHandler(relationshipsService)
	log.Println("✅ Relationships module initialized")

	// Conversations service needs the friend state derivation
	conversationsService := conversations.NewService(conversationsRepo, relationshipsService, hub)
	conversationsHandler := conversations.NewHandler(conversationsService)
	log.Println("✅ Conversations module initialized")

	// 10. Setup routes
	log.Println("\n🛣️  Step 10: Setting up routes...")
	router := mux.NewRouter()

	router.HandleFunc("/health", healthCheck).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	users.RegisterRoutes(router, usersHandler, authMiddleware.Authenticate)
	log.Println("   ✅ Users routes registered")

	relationships.RegisterRoutes(router, relationshipsHandler, authMiddleware.Authenticate)
	log.Println("   ✅ Relationships routes registered")

	conversations.RegisterRoutes(router, conversationsHandler, authMiddleware.Authenticate)
	log.Println("   ✅ Conversations routes registered")

	realtime.RegisterRoutes(router, realtimeHandler, authMiddleware.Authenticate)
	log.Println("   ✅ Realtime routes registered")

	router.Use(loggingMiddleware)
	router.Use(corsMiddleware)

	// 11. Create and start HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Println("\n========================================")
		log.Printf("🚀 Server starting on http://localhost%s", srv.Addr)
		log.Printf("🌍 Environment: %s", cfg.Environment)
		log.Println("========================================")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("❌ Failed to start server:", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("\n⚠️  Shutdown signal received...")

	log.Println("   - Shutting down realtime hub...")
	hub.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("❌ Server forced to shutdown:", err)
	}

	log.Println("✅ Server exited gracefully")
}

// healthCheck returns server health status
func healthCheck(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(startTime).String(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// loggingMiddleware logs every request with its duration
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("📥 %s %s from %s (%v)", r.Method, r.RequestURI, r.RemoteAddr, time.Since(start))
	})
}

// corsMiddleware sets permissive CORS headers
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
