package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/dkeye/beacon/internal/adapters/http"
	wssignal "github.com/dkeye/beacon/internal/adapters/signal"
	"github.com/dkeye/beacon/internal/app"
	"github.com/dkeye/beacon/internal/config"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
		os.Exit(1)
	}

	rooms := app.NewRoomStore()
	health := app.NewHealthStore()
	hub := wssignal.NewHub()
	relay := &app.Relay{
		Rooms:             rooms,
		Health:            health,
		Transport:         hub,
		DefaultICEServers: cfg.ICEServers(),
	}
	ctl := wssignal.NewController(hub, relay, cfg.ReadLimit, cfg.PingPeriod)
	api := router.NewAPI(rooms, health, hub, cfg)

	r := router.SetupRouter(ctx, cfg, api, ctl)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		var err error
		if cfg.CertFile != "" && cfg.KeyFile != "" {
			log.Info().Str("addr", addr).Msg("Beacon signaling server started (TLS)")
			err = srv.ListenAndServeTLS(cfg.CertFile, cfg.KeyFile)
		} else {
			log.Info().Str("addr", addr).Msg("Beacon signaling server started")
			err = srv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
