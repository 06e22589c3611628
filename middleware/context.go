package middleware

import (
	"natours/models"

	"github.com/gin-gonic/gin"
)

const (
	RequestIDHeader = "X-Request-ID"
	RequestIDKey    = "request_id"

	// UserKey holds the *models.User of the current session. Page templates
	// read it as .user.
	UserKey = "user"
	// AlertKey holds a message the page layout shows once.
	AlertKey = "alert"
)

func GetRequestID(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}

// CurrentUser returns the logged in user or nil.
func CurrentUser(c *gin.Context) *models.User {
	if u, ok := c.Get(UserKey); ok {
		if user, ok := u.(*models.User); ok {
			return user
		}
	}
	return nil
}

func setUser(c *gin.Context, user *models.User) {
	c.Set(UserKey, user)
}
