package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"blogchat/internal/apperr"
	"blogchat/internal/auth"
	"blogchat/internal/model"
)

// IdentityKey is the gin context key holding the authenticated model.Identity.
const IdentityKey = "identity"

// RequireIdentity authenticates REST calls with the same bearer credential as the socket handshake.
func RequireIdentity(gate *auth.Gate, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := gate.Authenticate(c.Request)
		if err != nil {
			if !errors.Is(err, apperr.ErrUnauthorized) {
				logger.Error("authentication failed", zap.Error(err))
			}
			abortWithError(c, err)
			return
		}
		c.Set(IdentityKey, identity)
		c.Next()
	}
}

func currentIdentity(c *gin.Context) model.Identity {
	identity, _ := c.MustGet(IdentityKey).(model.Identity)
	return identity
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrPersistence):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// abortWithError writes {success:false, message}. Server side failures get a generic message.
func abortWithError(c *gin.Context, err error) {
	status := statusFor(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		message = http.StatusText(status)
	}
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"message": message,
	})
}
