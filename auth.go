package main

import (
	"net/http"
	"strings"

	"fintrack/models"
	"fintrack/pkg/apperr"
	"fintrack/pkg/auth"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const userKey = "user"

// jwtAuthMiddleware resolves the bearer token to a user and stores it on the
// gin context. Requests without a valid token stop here with 401.
func jwtAuthMiddleware(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			writeError(c, apperr.New(apperr.Unauthorized, "missing or invalid Authorization header"))
			return
		}
		user, err := svc.ValidateToken(c.Request.Context(), strings.TrimSpace(token))
		if err != nil {
			writeError(c, err)
			return
		}
		l := zerolog.Ctx(c.Request.Context()).With().Uint("user_id", user.ID).Logger()
		c.Request = c.Request.WithContext(l.WithContext(c.Request.Context()))
		c.Set(userKey, user)
		c.Next()
	}
}

// currentUser returns the user set by jwtAuthMiddleware.
func currentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*models.User)
	return u, ok
}

// mustUser is currentUser for handlers mounted behind the middleware; a
// missing user there is a wiring bug and answers 500.
func mustUser(c *gin.Context) *models.User {
	u, ok := currentUser(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorBody(internalKind, "internal server error", nil))
		return nil
	}
	return u
}
