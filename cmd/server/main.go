package main

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	"github.com/ovasylenko/contactbook-backend/internal/config"
	"github.com/ovasylenko/contactbook-backend/internal/database"
	"github.com/ovasylenko/contactbook-backend/internal/handlers"
	"github.com/ovasylenko/contactbook-backend/internal/middleware"
	"github.com/ovasylenko/contactbook-backend/internal/routes"
)

func main() {
	// Load env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	// Load configuration
	cfg := config.Load()

	if cfg.JWTSecret == "your-secret-key-change-in-production" {
		log.Println("⚠️  WARNING: JWT_SECRET not set, using insecure default.")
		log.Println("   Generate one with: openssl rand -base64 32")
	}

	// Connect to PostgreSQL
	log.Printf("Connecting to PostgreSQL...")
	if err := database.ConnectPostgres(cfg.PostgresURI); err != nil {
		log.Fatal("Failed to connect to PostgreSQL:", err)
	}
	defer database.DisconnectPostgres()

	// Connect to Redis
	log.Printf("Connecting to Redis...")
	if err := database.ConnectRedis(cfg.RedisURI); err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer database.DisconnectRedis()

	// Wire auth services (tokens, mail, Cloudinary)
	if err := handlers.Init(cfg); err != nil {
		log.Fatal("Failed to initialize services:", err)
	}
	log.Println("✅ Services initialized")

	// Setup router
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Production: security headers + per-IP global rate limit backstop
	if cfg.IsProduction() {
		for _, mw := range middleware.ProductionSecurity() {
			r.Use(mw)
		}
		log.Println("✅ Production security enabled (security headers, per-IP rate limiting)")
	}

	// Health check (no rate limit)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// Setup routes
	routes.SetupRoutes(r, cfg)

	// Log registered routes for debugging
	log.Println("📋 Registered routes:")
	log.Println("  GET    /health")
	log.Println("  POST   /auth/register")
	log.Println("  POST   /auth/login")
	log.Println("  GET    /auth/verify-email")
	log.Println("  GET    /auth/me")
	log.Println("  PATCH  /auth/avatar")
	log.Println("  PATCH  /auth/avatar/default")
	log.Println("  POST   /auth/request-password-reset")
	log.Println("  POST   /auth/reset-password")
	log.Println("  POST   /contacts")
	log.Println("  GET    /contacts")
	log.Println("  GET    /contacts/find")
	log.Println("  GET    /contacts/birthdays/next7days")
	log.Println("  GET    /contacts/{id}")
	log.Println("  PUT    /contacts/{id}")
	log.Println("  DELETE /contacts/{id}")

	log.Printf("🚀 Contactbook backend running on :%s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
