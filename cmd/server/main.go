package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	httpapi "github.com/campus-share/campus-share/internal/api/http"
	"github.com/campus-share/campus-share/internal/application/audit"
	"github.com/campus-share/campus-share/internal/application/auth"
	"github.com/campus-share/campus-share/internal/application/claim"
	"github.com/campus-share/campus-share/internal/application/item"
	"github.com/campus-share/campus-share/internal/application/notification"
	"github.com/campus-share/campus-share/internal/application/reminder"
	"github.com/campus-share/campus-share/internal/application/request"
	"github.com/campus-share/campus-share/internal/application/transaction"
	"github.com/campus-share/campus-share/internal/application/trust"
	"github.com/campus-share/campus-share/internal/application/user"
	"github.com/campus-share/campus-share/internal/config"
	"github.com/campus-share/campus-share/internal/infrastructure/postgres"
	"github.com/campus-share/campus-share/internal/infrastructure/sse"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db error: %v", err)
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool, cfg.MigrationsDir); err != nil {
		log.Fatalf("migration error: %v", err)
	}

	// repositories
	userRepo := postgres.NewUserRepository(pool)
	sessionRepo := postgres.NewSessionRepository(pool)
	itemRepo := postgres.NewItemRepository(pool)
	requestRepo := postgres.NewRequestRepository(pool)
	offerRepo := postgres.NewOfferRepository(pool)
	txRepo := postgres.NewTransactionRepository(pool)
	claimRepo := postgres.NewClaimRepository(pool)
	trustRepo := postgres.NewTrustRepository(pool)
	notificationRepo := postgres.NewNotificationRepository(pool)
	auditRepo := postgres.NewAuditRepository(pool)

	// infrastructure
	sseHub := sse.NewHub()

	// services
	trustSvc := trust.NewService(trustRepo, logger)
	auditSvc := audit.NewService(auditRepo, logger)
	notificationSvc := notification.NewService(notificationRepo, sseHub, logger)
	userSvc := user.NewService(userRepo, logger)
	authSvc := auth.NewService(userRepo, sessionRepo, cfg.SessionTTL, logger)
	itemSvc := item.NewService(itemRepo, auditSvc, logger)
	requestSvc := request.NewService(requestRepo, offerRepo, itemRepo, txRepo, notificationSvc, auditSvc, logger)
	claimSvc := claim.NewService(claimRepo, itemRepo, trustSvc, notificationSvc, auditSvc, logger)
	transactionSvc := transaction.NewService(txRepo, itemRepo, trustSvc, notificationSvc, auditSvc, logger)
	reminderSvc := reminder.NewService(txRepo, notificationSvc, logger)

	// API server
	apiServer := httpapi.NewServer(userSvc, authSvc, itemSvc, requestSvc, claimSvc, transactionSvc, trustSvc, notificationSvc, auditSvc, sseHub, cfg.SessionCookieName, cfg.SessionCookieSecure)

	httpServer := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      apiServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// background loops
	runCtx, cancelRun := context.WithCancel(context.Background())
	defer cancelRun()

	go reminderSvc.Run(runCtx, cfg.ReminderInterval)

	go func() {
		ticker := time.NewTicker(cfg.SessionPurgeEvery)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				authSvc.PurgeExpired(context.Background())
			}
		}
	}()

	// start server
	go func() {
		logger.Info().Str("addr", cfg.ServerAddr).Msg("http server started")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	// graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	cancelRun()
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(ctxShutdown)
	sseHub.Stop()
}
