package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	cartclient "bookstore-checkout/internal/client/cart"
	catalogclient "bookstore-checkout/internal/client/catalog"
	identityclient "bookstore-checkout/internal/client/identity"
	"bookstore-checkout/internal/config"
	"bookstore-checkout/internal/db"
	"bookstore-checkout/internal/httpserver"
	"bookstore-checkout/internal/metrics"
	"bookstore-checkout/internal/outbox"
	idemrepo "bookstore-checkout/internal/repository/idempotency"
	inventoryrepo "bookstore-checkout/internal/repository/inventory"
	orderrepo "bookstore-checkout/internal/repository/order"
	checkoutsvc "bookstore-checkout/internal/service/checkout"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[checkout] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbpool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatalf("connect to db: %v", err)
	}
	defer dbpool.Close()

	inventoryRepo := inventoryrepo.NewPostgres(dbpool)
	orderRepo := orderrepo.NewPostgres(dbpool)
	idemRepo := idemrepo.NewPostgres(dbpool)
	outboxStore := outbox.NewPostgres(dbpool)

	cartClient := cartclient.New(cfg.CartServiceURL)
	catalogClient := catalogclient.New(cfg.ProductsServiceURL)
	identityClient := identityclient.New(cfg.LoginServiceURL)

	checkoutMetrics := metrics.New(prometheus.DefaultRegisterer)

	checkoutService := checkoutsvc.New(
		cartClient,
		catalogClient,
		inventoryRepo,
		orderRepo,
		idemRepo,
		outboxStore,
		checkoutMetrics,
		logger,
		checkoutsvc.Config{
			AttemptDeadline:      cfg.AttemptDeadline,
			ReserveAttempts:      cfg.ReserveAttempts,
			CommitAttempts:       cfg.CommitAttempts,
			BackoffBase:          cfg.BackoffBase,
			BackoffMax:           cfg.BackoffMax,
			IdempotencyRetention: cfg.IdempotencyRetention,
			OrderEventTopic:      cfg.OrderEventTopic,
			AlertTopic:           cfg.AlertTopic,
		},
	)

	relay := outbox.NewRelay(outboxStore, cfg.KafkaBrokers, logger)
	go relay.Run(ctx)
	go sweepIdempotency(ctx, idemRepo, logger)

	srv, err := httpserver.New(cfg.HTTPAddr, logger, dbpool, httpserver.Deps{
		CheckoutSvc: checkoutService,
		Identity:    identityClient,
	})
	if err != nil {
		logger.Fatalf("init server: %v", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Printf("starting http server on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Printf("received signal %s, shutting down", sig)
	case err := <-serverErr:
		logger.Printf("server error: %v", err)
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	} else {
		logger.Printf("server stopped")
	}
}

// sweepIdempotency evicts idempotency records past their retention window.
func sweepIdempotency(ctx context.Context, repo idemrepo.Repository, logger *log.Logger) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purged, err := repo.PurgeExpired(ctx)
			if err != nil {
				if ctx.Err() == nil {
					logger.Printf("purge idempotency records: %v", err)
				}
				continue
			}
			if purged > 0 {
				logger.Printf("purged %d expired idempotency records", purged)
			}
		}
	}
}
