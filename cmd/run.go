package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"companion/config"
	"companion/database"
	"companion/domain/interfaces"
	"companion/domain/services"
	"companion/events"
	"companion/infrastructure"
	"companion/repository"
	"companion/server"

	log "github.com/sirupsen/logrus"
)

// Run initializes and starts the companion service
func Run(ctx context.Context) error {
	log.Info("Starting companion service...")

	// Load configuration
	cfg := config.Get()

	// Initialize database connection
	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	log.Info("Database connection established")

	// Initialize event bus
	eventBus := events.NewBus()

	// Upstream API clients share one transport; no client-side timeouts,
	// failures surface through the transport itself.
	httpClient := &http.Client{}
	coreClient := infrastructure.NewCoreAPIClient(cfg.CoreAPIBaseURL, httpClient)
	gameClient := infrastructure.NewGameAPIClient(cfg.GameAPIBaseURL, httpClient)
	lotteryClient := infrastructure.NewLotteryAPIClient(cfg.LotteryAPIBaseURL, httpClient)

	// Wire services
	sessionRepo := repository.NewSessionRepository(db)
	authService := services.NewAuthService(coreClient, sessionRepo, eventBus, cfg.SessionTTL)
	lotteryService := services.NewLotteryService(lotteryClient, eventBus)
	rankingService := services.NewRankingService(gameClient)

	// Websocket fan-out for reveal progress
	broadcaster := server.NewBroadcaster(cfg.AllowedOrigins)
	broadcaster.Bind(eventBus)

	srv := server.New(authService, lotteryService, rankingService, broadcaster)
	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: srv.Routes(),
	}

	// Expired sessions are swept in the background
	go sweepExpiredSessions(ctx, sessionRepo, lotteryService, cfg.SessionTTL)

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(log.Fields{
			"addr":        cfg.ListenAddr,
			"environment": cfg.Environment,
		}).Info("Companion service is running")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	// Cleanup resources
	log.Info("Shutting down companion service...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server shutdown failed")
	}

	log.Info("Shutdown complete")
	return nil
}

// sweepExpiredSessions periodically deletes sessions past their expiry and
// drops the ticket state those sessions held in memory.
func sweepExpiredSessions(ctx context.Context, sessions *repository.SessionRepository, lottery interfaces.LotteryService, ttl time.Duration) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := sessions.DeleteExpired(ctx)
			if err != nil {
				log.WithError(err).Warn("Failed to sweep expired sessions")
				continue
			}
			if deleted > 0 {
				log.WithField("deleted", deleted).Info("Swept expired sessions")
			}
			lottery.PruneIdle(ttl)
		}
	}
}
