package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/annaehugo/freepharma/internal/config"
	"github.com/annaehugo/freepharma/internal/database"
	"github.com/annaehugo/freepharma/internal/handlers"
	"github.com/annaehugo/freepharma/internal/logger"
	"github.com/annaehugo/freepharma/internal/models"
	"github.com/annaehugo/freepharma/internal/repository"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Setup(logger.DefaultConfig())
		l := logger.WithComponent("main")
		l.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Setup(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	log := logger.WithComponent("main")

	// 2. Initialize database (detects embedded vs external automatically)
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	// Note: db.Close() is called manually in shutdown handler below

	// 3. Auto-migrate schema
	log.Info().Msg("Synchronizing database schema")
	err = db.AutoMigrate(
		&models.UserAuth{},
		&models.Pharmacy{},
		&models.Unit{},
		&models.Supplier{},
		&models.ProductReference{},
		&models.ProductSupplierLink{},
		&models.StockRecord{},
		&models.StockAdjustment{},
		&models.Invoice{},
		&models.InvoiceItem{},
		&models.Inconsistency{},
		&models.ImportRecord{},
	)
	if err != nil {
		log.Warn().Err(err).Msg("Migration warning")
	} else {
		log.Info().Msg("Schema synchronized successfully")
	}

	// 4. Set up HTTP router
	repo := repository.New(db.DB)
	router := handlers.NewRouter(cfg, repo)

	// 5. Start server with graceful shutdown
	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	sig := <-shutdown
	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// Close database (this also stops embedded PostgreSQL)
	log.Info().Msg("Closing database connection")
	if err := db.Close(); err != nil {
		log.Error().Err(err).Msg("Database close error")
	}

	log.Info().Msg("Shutdown complete")
}
