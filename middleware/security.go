package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"
)

// SecurityHeaders sets the usual hardening headers on every response. HSTS
// is only sent for TLS requests, directly or behind a proxy.
func SecurityHeaders() gin.HandlerFunc {
	return secure.New(secure.Config{
		STSSeconds:           15552000,
		STSIncludeSubdomains: true,
		FrameDeny:            true,
		ContentTypeNosniff:   true,
		BrowserXssFilter:     true,
		IENoOpen:             true,
		ReferrerPolicy:       "no-referrer",
		SSLProxyHeaders:      map[string]string{"X-Forwarded-Proto": "https"},
		ContentSecurityPolicy: strings.Join([]string{
			"default-src 'self'",
			"script-src 'self' https://js.stripe.com",
			"frame-src 'self' https://js.stripe.com",
			"connect-src 'self'",
			"style-src 'self' 'unsafe-inline' https://fonts.googleapis.com",
			"font-src 'self' https://fonts.gstatic.com",
			"img-src 'self' data:",
		}, "; "),
	})
}

// BodyLimit caps JSON and form bodies at limit bytes. Multipart uploads are
// bounded by the upload handlers instead.
func BodyLimit(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil && !strings.HasPrefix(c.ContentType(), "multipart/") {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}

// Alerts turns ?alert= on page requests into a message for the layout.
func Alerts() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Query("alert") == "booking" {
			c.Set(AlertKey, "Your booking was successful! Please check your email for a confirmation. If your booking doesn't show up here immediatly, please come back later.")
		}
		c.Next()
	}
}
