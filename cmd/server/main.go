package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"github.com/lingua-prep/backend/internal/analytics"
	"github.com/lingua-prep/backend/internal/auth"
	"github.com/lingua-prep/backend/internal/database"
	"github.com/lingua-prep/backend/internal/generator"
	"github.com/lingua-prep/backend/internal/mastery"
	"github.com/lingua-prep/backend/internal/middleware"
	"github.com/lingua-prep/backend/internal/recommendation"
	"github.com/lingua-prep/backend/internal/selection"
	"github.com/lingua-prep/backend/internal/sessions"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize database
	db, err := database.Connect()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Stores and engines
	analyticsStore := analytics.NewStore(db)
	sessionStore := sessions.NewStore(db)

	selectionEngine := selection.NewEngine(analyticsStore)
	masteryEngine := mastery.NewEngine(analyticsStore)
	recommendationEngine := recommendation.NewEngine(analyticsStore)

	gen := generator.NewGenerator()
	sessionService := sessions.NewService(sessionStore, selectionEngine, masteryEngine, gen)

	// Handlers
	authHandler := auth.NewHandler(db)
	sessionHandler := sessions.NewHandler(sessionService)
	recommendationHandler := recommendation.NewHandler(recommendationEngine, analyticsStore)

	// Background recommendation refresh
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go recommendationEngine.StartRefreshWorker(ctx, analyticsStore, time.Hour)

	// Setup router
	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()

	// Public routes
	api.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	api.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	// Protected routes
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.AuthMiddleware)
	protected.HandleFunc("/auth/me", authHandler.GetCurrentUser).Methods("GET")
	protected.HandleFunc("/sessions", sessionHandler.StartSession).Methods("POST")
	protected.HandleFunc("/sessions/{id}", sessionHandler.GetSession).Methods("GET")
	protected.HandleFunc("/sessions/{id}/complete", sessionHandler.CompleteSession).Methods("POST")
	protected.HandleFunc("/recommendations", recommendationHandler.GetRecommendations).Methods("GET")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	handler := c.Handler(r)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on :%s", port)
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
