package middleware

import (
	"context"
	"strings"

	"natours/errs"
	"natours/models"

	"github.com/gin-gonic/gin"
)

const (
	// TokenCookie carries the session token for browser clients.
	TokenCookie = "jwt"
	// LoggedOutValue replaces the token on logout.
	LoggedOutValue = "loggedout"
)

var (
	ErrNotLoggedIn  = errs.Unauthorized("You are not logged in! Please log in to get access.")
	ErrNoPermission = errs.Forbidden("You do not have permission to perform this action")
)

// Authenticator resolves a session token to its user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// Protect requires a valid token from the Authorization bearer header or the
// jwt cookie.
func Protect(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := tokenFromRequest(c)
		if token == "" || token == LoggedOutValue {
			abortWith(c, ErrNotLoggedIn)
			return
		}

		user, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			abortWith(c, err)
			return
		}
		setUser(c, user)
		c.Next()
	}
}

// IsLoggedIn exposes the user to page templates when the jwt cookie is valid.
// It never rejects the request.
func IsLoggedIn(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(TokenCookie)
		if err == nil && token != "" && token != LoggedOutValue {
			if user, err := auth.Authenticate(c.Request.Context(), token); err == nil {
				setUser(c, user)
			}
		}
		c.Next()
	}
}

// RestrictTo must run after Protect.
func RestrictTo(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			abortWith(c, ErrNotLoggedIn)
			return
		}
		for _, r := range roles {
			if user.Role == r {
				c.Next()
				return
			}
		}
		abortWith(c, ErrNoPermission)
	}
}

func tokenFromRequest(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if token, err := c.Cookie(TokenCookie); err == nil {
		return token
	}
	return ""
}

// abortWith records err for ErrorHandler and stops the chain.
func abortWith(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
