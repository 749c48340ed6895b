package httpserver

import (
	"context"
	"log"

	"bookstore-checkout/internal/client/identity"
	"bookstore-checkout/internal/domain"
	"bookstore-checkout/internal/metrics"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CheckoutService is the slice of the orchestrator the transport needs.
type CheckoutService interface {
	Checkout(ctx context.Context, userID, idempotencyKey string) (domain.CheckoutResult, error)
	GetOrder(ctx context.Context, confirmationNumber, userID string) (*domain.Order, error)
}

// Deps carries the wired services for route handlers.
type Deps struct {
	CheckoutSvc CheckoutService
	Identity    identity.Verifier
}

// buildRouter wires routes for the checkout API.
func buildRouter(logger *log.Logger, db *pgxpool.Pool, deps Deps) (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.LoggerWithWriter(logger.Writer()), gin.Recovery())

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization", idempotencyKeyHeader)
	router.Use(cors.New(corsCfg))

	router.GET("/healthz", healthHandler)
	router.GET("/health", healthHandler)
	router.GET("/readyz", readyHandler(db))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := router.Group("/checkout-microservice")
	api.Use(authMiddleware(deps.Identity, logger))
	api.POST("/shoppingCart/checkout", checkoutHandler(deps.CheckoutSvc, logger))
	api.GET("/order/:confirmationNumber", orderHandler(deps.CheckoutSvc))

	return router, nil
}
