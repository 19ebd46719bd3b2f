package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-events-api/internal/middleware"
	"github.com/noah-isme/sma-events-api/internal/models"
	appErrors "github.com/noah-isme/sma-events-api/pkg/errors"
	"github.com/noah-isme/sma-events-api/pkg/response"
)

// currentActor returns the caller populated by the JWT middleware. It answers 401 when none is present.
func currentActor(c *gin.Context) (*models.JWTClaims, bool) {
	value, exists := c.Get(middleware.ContextUserKey)
	if exists {
		if claims, ok := value.(*models.JWTClaims); ok && claims != nil && claims.UserID != "" {
			return claims, true
		}
	}
	response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "authentication required"))
	return nil, false
}

func isStudent(claims *models.JWTClaims) bool {
	return claims != nil && claims.Role == models.RoleStudent
}
