package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/userforge/user-service/internal/models"
	"github.com/userforge/user-service/internal/service"
)

// CredentialVerifier checks a username/password pair against the user store.
// Implemented by service.UserService.
type CredentialVerifier interface {
	VerifyCredentials(ctx context.Context, username, password string) (*models.UserView, error)
}

// Auth authenticates requests with either HTTP Basic (verified against active
// stored users) or a Bearer JWT. The service is stateless; no sessions.
func Auth(secret []byte, users CredentialVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			unauthorized(c, "Authorization header required")
			return
		}

		scheme, value, ok := strings.Cut(authHeader, " ")
		if !ok {
			unauthorized(c, "Invalid authorization header format")
			return
		}

		switch scheme {
		case "Basic":
			username, password, ok := c.Request.BasicAuth()
			if !ok {
				unauthorized(c, "Invalid authorization header format")
				return
			}
			user, err := users.VerifyCredentials(c.Request.Context(), username, password)
			if err != nil {
				unauthorized(c, "Invalid credentials")
				return
			}
			c.Set("userId", user.ID)
			c.Set("username", user.Username)

		case "Bearer":
			claims := &service.Claims{}
			token, err := jwt.ParseWithClaims(value, claims, func(token *jwt.Token) (any, error) {
				return secret, nil
			})
			if err != nil || !token.Valid {
				unauthorized(c, "Invalid or expired token")
				return
			}
			c.Set("userId", claims.UserID)
			c.Set("username", claims.Username)

		default:
			unauthorized(c, "Unsupported authorization scheme")
			return
		}

		c.Next()
	}
}

// GetUserID returns the authenticated user's id from the request context.
func GetUserID(c *gin.Context) (string, bool) {
	userID, exists := c.Get("userId")
	if !exists {
		return "", false
	}
	return userID.(string), true
}

func unauthorized(c *gin.Context, message string) {
	c.Header("WWW-Authenticate", `Basic realm="user-service"`)
	RespondWithError(c, http.StatusUnauthorized, message)
	c.Abort()
}
