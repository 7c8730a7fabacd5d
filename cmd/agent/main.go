package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"printer-voice-agent/internal/aifallback"
	"printer-voice-agent/internal/catalog"
	"printer-voice-agent/internal/config"
	"printer-voice-agent/internal/httpserver"
	"printer-voice-agent/internal/logger"
	"printer-voice-agent/internal/metrics"
	"printer-voice-agent/internal/session"
)

func main() {
	log := logger.New()
	cfg := config.Load()

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		log.WithError(err).Error("catalog load failed")
		os.Exit(2)
	}
	log.WithField("issues", cat.Len()).Info("catalog loaded")

	ai := aifallback.NewClient(cfg.AnthropicKey, cfg.AnthropicModel, cfg.AITimeout, cfg.AIMaxAttempts, log.Entry)
	if !ai.Configured() {
		log.Warn("AI fallback not configured, running catalog-only")
	}

	met := metrics.New()
	mgr := session.NewManager()
	srv := httpserver.New(cfg, cat, ai, mgr, met, log.Entry)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	for {
		select {
		case err := <-serverErrors:
			if err != nil {
				log.WithError(err).Error("server error")
				os.Exit(1)
			}
			return
		case sig := <-sigChan:
			if sig == syscall.SIGHUP {
				// live catalog reload; sessions in flight keep their snapshot
				if err := cat.Reload(cfg.CatalogPath); err != nil {
					log.WithError(err).Warn("catalog reload failed, keeping current catalog")
				} else {
					log.WithField("issues", cat.Len()).Info("catalog reloaded")
				}
				continue
			}

			log.WithField("signal", sig.String()).Info("shutdown signal received")
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err := srv.Shutdown(ctx)
			cancel()
			if err != nil {
				log.WithError(err).Error("graceful shutdown failed")
				os.Exit(1)
			}
			return
		}
	}
}
