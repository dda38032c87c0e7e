package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/QwerTayu/anniversary-calendar/internal/config"
	"github.com/QwerTayu/anniversary-calendar/internal/handlers"
	"github.com/QwerTayu/anniversary-calendar/internal/middleware"
	"github.com/QwerTayu/anniversary-calendar/internal/repository"
	"github.com/QwerTayu/anniversary-calendar/internal/services"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func Run() {
	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	setupLogger(cfg.Log.Level)

	// Connect to database
	db, err := pgxpool.New(context.Background(), cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := db.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	log.Info().Msg("Database connection established")

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	memoryRepo := repository.NewMemoryRepository(db)
	pairRepo := repository.NewPairRepository(db)
	photoRepo := repository.NewPhotoRepository(db)

	// Initialize services
	hub := services.NewWSHub(userRepo)
	userService := services.NewUserService(userRepo, cfg.JWT.Secret)
	memoryService := services.NewMemoryService(memoryRepo, userRepo, hub)
	hub.BindMemories(memoryService)
	pairService := services.NewPairService(pairRepo, hub)
	pinService := services.NewPinService(userRepo, memoryRepo, hub)
	photoService, err := services.NewPhotoService(
		photoRepo,
		memoryRepo,
		userRepo,
		cfg.AWS.Region,
		cfg.AWS.S3Bucket,
		cfg.AWS.AccessKey,
		cfg.AWS.SecretKey,
		cfg.AWS.Endpoint,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create photo service")
	}
	pusher, err := services.NewAPNSPusher(
		cfg.APNS.CertPath,
		cfg.APNS.CertPassword,
		cfg.APNS.Topic,
		cfg.APNS.Production,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create APNs pusher")
	}
	notifier := services.NewNotifier(memoryRepo, userRepo, pusher)

	// Initialize handlers
	userHandler := handlers.NewUserHandler(userService)
	memoryHandler := handlers.NewMemoryHandler(memoryService, pinService)
	pairHandler := handlers.NewPairHandler(pairService)
	photoHandler := handlers.NewPhotoHandler(photoService)
	cronHandler := handlers.NewCronHandler(notifier, cfg.Cron.Secret, cfg.IsProduction())
	wsHandler := handlers.NewWebSocketHandler(hub, userService)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(corsMiddleware)

	// Routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Post("/users", userHandler.Register)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(userService))
			r.Put("/users/push-token", userHandler.UpdatePushToken)

			r.Get("/calendar", memoryHandler.Calendar)
			r.Get("/memories", memoryHandler.List)
			r.Get("/memories/home", memoryHandler.Home)
			r.Post("/memories", memoryHandler.Create)
			r.Put("/memories/{memory_id}", memoryHandler.Update)
			r.Delete("/memories/{memory_id}", memoryHandler.Delete)
			r.Post("/memories/{memory_id}/pin", memoryHandler.TogglePin)
			r.Post("/memories/{memory_id}/photos", photoHandler.Attach)
			r.Get("/memories/{memory_id}/photos", photoHandler.List)

			r.Post("/invite", pairHandler.Invite)
			r.Post("/accept", pairHandler.Accept)
			r.Post("/disconnect", pairHandler.Disconnect)
		})
	})

	// Scheduler endpoint, shared-secret auth
	r.Get("/cron", cronHandler.Dispatch)

	// WebSocket route
	r.Get("/ws", wsHandler.HandleWebSocket)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
