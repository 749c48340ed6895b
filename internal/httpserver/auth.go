package httpserver

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"bookstore-checkout/internal/client/identity"
	"github.com/gin-gonic/gin"
)

const principalKey = "checkout.principal"

// authMiddleware resolves the verified principal for the request. The user
// id comes only from identity verification, never from a query parameter or
// request body.
func authMiddleware(verifier identity.Verifier, logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		principal, err := verifier.Verify(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, identity.ErrUnauthenticated) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
				return
			}
			logger.Printf("identity verification: %v", err)
			c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "identity service unavailable"})
			return
		}
		c.Set(principalKey, principal)
		c.Next()
	}
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if strings.HasPrefix(header, prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

func principalFrom(c *gin.Context) (*identity.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil, false
	}
	principal, ok := v.(*identity.Principal)
	return principal, ok
}
