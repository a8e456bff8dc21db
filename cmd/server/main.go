package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/courtbot-app/courtbot/internal/api"
	"github.com/courtbot-app/courtbot/internal/automation"
	"github.com/courtbot-app/courtbot/internal/browser"
	"github.com/courtbot-app/courtbot/internal/calendar"
	"github.com/courtbot-app/courtbot/internal/config"
	"github.com/courtbot-app/courtbot/internal/dispatch"
	"github.com/courtbot-app/courtbot/internal/driver"
	"github.com/courtbot-app/courtbot/internal/intent"
	"github.com/courtbot-app/courtbot/internal/log"
	"github.com/courtbot-app/courtbot/internal/profile"
	"github.com/courtbot-app/courtbot/internal/ratelimit"
	"github.com/courtbot-app/courtbot/internal/registry"
	"github.com/courtbot-app/courtbot/internal/transport"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		base := log.Base()
		base.Debug().Msg("no .env file found, using system environment")
	}

	log.Configure(log.Config{})
	logger := log.WithComponent("main")
	logger.Info().Msg("starting courtbot")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	// Playwright runtime, shared by every launcher.
	runtime, err := browser.StartRuntime()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to start browser runtime")
	}

	broker, err := browser.NewBroker(cfg, runtime)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create browser broker")
	}

	prepCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	if err := broker.Prepare(prepCtx); err != nil {
		cancel()
		logger.Fatal().Err(err).Msg("failed to prepare browser broker")
	}
	cancel()
	logger.Info().Str("mode", string(cfg.Mode)).Msg("browser broker ready")

	profiles, err := profile.NewStore(cfg.DataDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open profile store")
	}

	// Calendar sync is optional; without a webhook bookings simply skip
	// the sync step.
	var syncer dispatch.Syncer
	if cfg.CalendarWebhookURL != "" {
		syncer = calendar.NewWebhookSyncer(cfg.CalendarWebhookURL, log.WithComponent("calendar"))
	}

	companion := ""
	if len(cfg.Companions) > 0 {
		companion = cfg.Companions[0]
	}
	dispatcher := dispatch.New(syncer, companion, log.WithComponent("dispatch"))

	factory := func(sessionID string) *automation.Session {
		d := driver.New(driver.Options{
			SessionID:    sessionID,
			DashboardURL: cfg.DashboardURL,
			Credentials: driver.Credentials{
				Username: cfg.Username,
				Password: cfg.Password,
			},
			Companions: cfg.Companions,
			Launcher:   broker,
			Profiles:   profiles,
			Logger:     log.WithComponent("driver"),
		})
		return automation.NewSession(d, log.WithComponent("automation"))
	}

	reg := registry.New(factory, dispatcher.Handle, cfg.IdleWindow, cfg.MaxBrowsers, log.WithComponent("registry"))

	extractor, err := intent.NewOpenAIExtractor(cfg.OpenAIKey,
		intent.WithBaseURL(cfg.OpenAIBaseURL),
		intent.WithModel(cfg.OpenAIModel),
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create intent extractor")
	}

	// 100 messages/hour per session, burst of 10.
	rateLimiter := ratelimit.NewLimiter(100, 10)

	chatServer := transport.NewServer(reg, extractor, rateLimiter, log.WithComponent("transport"))

	handler := api.NewHandler(reg, log.WithComponent("api"))
	profileHandler := api.NewProfileHandler(profiles, log.WithComponent("api"))
	router := handler.SetupRoutes(profileHandler, chatServer, rateLimiter)

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.ListenAddr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("server forced to shut down")
	}

	reg.Shutdown(shutdownCtx)

	if err := broker.Close(); err != nil {
		logger.Warn().Err(err).Msg("failed to close browser broker")
	}
	if err := runtime.Stop(); err != nil {
		logger.Warn().Err(err).Msg("failed to stop browser runtime")
	}

	logger.Info().Msg("stopped")
}
