// main is the entry point of the samplauncher application.
// It parses the configuration, sets up logging and dispatches the selected command.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/samplauncher/internal/config"
	"github.com/woozymasta/samplauncher/internal/fake"
	"github.com/woozymasta/samplauncher/internal/geoip"
	"github.com/woozymasta/samplauncher/internal/logger"
	"github.com/woozymasta/samplauncher/internal/maintenance"
	"github.com/woozymasta/samplauncher/internal/server"
	"github.com/woozymasta/samplauncher/internal/storage"
)

func main() {
	cfg := config.Parse()

	logger.Setup(cfg.Logger)

	switch cfg.Command {
	case config.CommandQuery:
		os.Exit(runQuery(cfg, os.Stdout))
	case config.CommandConnect:
		os.Exit(runConnect(cfg, os.Stdout))
	case config.CommandList:
		os.Exit(runList(cfg, os.Stdout))
	default:
		serve(cfg)
	}
}

// serve runs the HTTP API until interrupted.
func serve(cfg *config.Config) {
	log.Info().Msg("Starting samplauncher service...")

	// GeoIP Update
	log.Info().Msg("Checking GeoIP database...")
	if err := geoip.EnsureDB(cfg.GeoIP.Path, cfg.GeoIP.URL, cfg.GeoIP.Interval); err != nil {
		log.Error().Err(err).Msg("Failed to download GeoIP database")
	}

	geoProvider, err := geoip.Open(cfg.GeoIP.Path)
	if err != nil {
		log.Error().Err(err).Msg("Failed to open GeoIP database, country detection disabled")
		geoProvider = nil
	} else {
		defer func() {
			if err := geoProvider.Close(); err != nil {
				log.Error().Err(err).Msg("Error closing GeoIP provider")
			}
		}()
	}

	// Database
	store, err := storage.New(cfg.Storage.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database")
		}
	}()

	// data generation or database maintenance
	if cfg.Storage.GenerateCount > 0 {
		fake.GenerateData(store, cfg.Storage.GenerateCount)
		return
	} else if maintenance.Run(cfg, store) {
		return
	}

	// Init server
	srvHandler, err := server.New(store, geoProvider, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize server")
	}

	srvHandler.StartWorkers()

	httpServer := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: srvHandler.Run(),
		// a handshake probe may take the connect timeout plus the read timeout
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 2*cfg.Handshake.Timeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("address", cfg.Server.Address).Msg("Server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	srvHandler.StopWorkers()

	log.Info().Msg("Server exited")
}
