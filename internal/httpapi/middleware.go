package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/keepat/api/internal/identity"
)

const principalKey = "principal"

// AuthMiddleware verifies the bearer token and stores the principal on the
// request context.
func AuthMiddleware(verifier *identity.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Missing bearer token."})
			return
		}

		principal, err := verifier.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid bearer token."})
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

func getPrincipal(c *gin.Context) *identity.Principal {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil
	}
	principal, _ := v.(*identity.Principal)
	return principal
}

// userAuthorizer is the slice of the user service the access middleware
// needs.
type userAuthorizer interface {
	IsAuthorized(ctx context.Context, applicationID, userID string) (bool, error)
}

// ApplicationAccessMiddleware rejects callers that are not members of the
// application named by the applicationId route parameter.
func ApplicationAccessMiddleware(users userAuthorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := getPrincipal(c)
		if principal == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Missing principal."})
			return
		}

		applicationID := c.Param("applicationId")
		if applicationID == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Missing applicationId."})
			return
		}

		if _, err := users.IsAuthorized(c.Request.Context(), applicationID, principal.UserID); err != nil {
			c.Abort()
			respondError(c, err)
			return
		}
		c.Next()
	}
}
