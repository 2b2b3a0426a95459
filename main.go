package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/minhvu/schedly-be/internal/api"
	"github.com/minhvu/schedly-be/internal/auth"
	"github.com/minhvu/schedly-be/internal/config"
	"github.com/minhvu/schedly-be/internal/database"
	"github.com/minhvu/schedly-be/internal/logger"
	"github.com/minhvu/schedly-be/internal/monitoring"
	"github.com/minhvu/schedly-be/internal/services"
	"github.com/minhvu/schedly-be/internal/websocket"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.IsProduction())

	// Set up database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	// Set up token service with the injected signing secret
	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)

	// Set up WebSocket Hub
	hub := websocket.NewHub()
	go hub.Run()

	// Set up services
	eventService := services.NewEventService(db)
	userService := services.NewUserService(db)
	scheduleService := services.NewScheduleService(db, eventService)
	notificationService := services.NewNotificationService(db, eventService, hub)

	// Set up and run the background deadline reminder
	reminder, err := monitoring.NewReminder(scheduleService, notificationService, cfg.ReminderCron, cfg.ReminderWindow)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize reminder worker")
	}
	go reminder.Run()

	// Set up router
	router := api.NewRouter(cfg, tokens, hub, userService, scheduleService, notificationService, eventService)

	// Set up server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.ServerPort),
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Msg("Server starting")
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("ListenAndServe()")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	reminder.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting")
}
