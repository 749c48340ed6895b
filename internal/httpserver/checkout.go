package httpserver

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"bookstore-checkout/internal/domain"
	"github.com/gin-gonic/gin"
)

// idempotencyKeyHeader carries the client-supplied idempotency key.
const idempotencyKeyHeader = "Idempotency-Key"

func checkoutHandler(svc CheckoutService, logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := principalFrom(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}

		key := strings.TrimSpace(c.GetHeader(idempotencyKeyHeader))
		result, err := svc.Checkout(c.Request.Context(), principal.UserID, key)
		if err != nil {
			logger.Printf("checkout for user %s: %v", principal.UserID, err)
			c.JSON(http.StatusBadGateway, checkoutResponse{
				Status: legacyStatusRetryable,
				Reason: "UpstreamUnavailable",
			})
			return
		}

		c.JSON(http.StatusOK, toCheckoutResponse(result))
	}
}

func orderHandler(svc CheckoutService) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := principalFrom(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}

		confirmation := c.Param("confirmationNumber")
		o, err := svc.GetOrder(c.Request.Context(), confirmation, principal.UserID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.JSON(http.StatusOK, o)
	}
}
