package middlewares

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"jansarthi-be/models"
	"jansarthi-be/store"
	"jansarthi-be/utils"
)

const userKey = "current_user"

func unauthorized(c *gin.Context, detail string) {
	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": detail})
}

// AuthMiddleware requires a valid access token and loads its user into the
// request context.
func AuthMiddleware(tokens *utils.TokenIssuer, users store.Users) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			unauthorized(c, "Not authenticated")
			return
		}

		// Extracting token from "Bearer <token>" format
		scheme, tokenString, found := strings.Cut(authHeader, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || tokenString == "" {
			unauthorized(c, "Not authenticated")
			return
		}

		claims, err := tokens.Verify(strings.TrimSpace(tokenString), utils.AccessToken)
		if err != nil {
			var typeErr *utils.TokenTypeError
			if errors.As(err, &typeErr) {
				unauthorized(c, typeErr.Error())
				return
			}
			slog.Debug("Token validation failed", "error", err)
			unauthorized(c, "Could not validate credentials")
			return
		}

		user, err := users.GetUser(c.Request.Context(), claims.UserID)
		if errors.Is(err, store.ErrNotFound) {
			unauthorized(c, "Could not validate credentials")
			return
		}
		if err != nil {
			slog.Error("Failed to load user for token", "user_id", claims.UserID, "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}
		if !user.IsActive {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"detail": "User account is inactive"})
			return
		}

		c.Set(userKey, user)
		c.Next()
	}
}

// RequireVerified rejects users that have not completed OTP verification.
func RequireVerified() gin.HandlerFunc {
	return func(c *gin.Context) {
		u := CurrentUser(c)
		if u == nil || !u.IsVerified {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"detail": "Please verify your account first"})
			return
		}
		c.Next()
	}
}

// RequireRole lets only users with the given role through, answering 403
// with detail otherwise.
func RequireRole(role models.UserRole, detail string) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := CurrentUser(c)
		if u == nil || u.Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"detail": detail})
			return
		}
		c.Next()
	}
}

// CurrentUser returns the user stored by AuthMiddleware, or nil.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	u, _ := v.(*models.User)
	return u
}
