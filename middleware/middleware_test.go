package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"natours/errs"
	"natours/logger"
	"natours/models"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeAuth map[string]*models.User

func (f fakeAuth) Authenticate(_ context.Context, token string) (*models.User, error) {
	if u, ok := f[token]; ok {
		return u, nil
	}
	return nil, errs.Unauthorized("Invalid token. Please log in again!")
}

func newEngine(development bool, page PageRenderer) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), ErrorHandler(development, logger.Nop(), page), Recovery())
	return r
}

func serve(r http.Handler, req *http.Request) (*httptest.ResponseRecorder, map[string]interface{}) {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	body := map[string]interface{}{}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestProtect(t *testing.T) {
	t.Parallel()

	auth := fakeAuth{
		"user-token":  {ID: 1, Name: "Ann", Role: models.RoleUser},
		"admin-token": {ID: 2, Name: "Root", Role: models.RoleAdmin},
	}
	r := newEngine(false, nil)
	r.GET("/api/me", Protect(auth), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": CurrentUser(c).ID})
	})
	r.DELETE("/api/thing", Protect(auth), RestrictTo(models.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	w, body := serve(r, httptest.NewRequest(http.MethodGet, "/api/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "fail", body["status"])
	assert.Equal(t, ErrNotLoggedIn.Message, body["message"])

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer user-token")
	w, body = serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), body["id"])

	req = httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: TokenCookie, Value: "user-token"})
	w, _ = serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: TokenCookie, Value: LoggedOutValue})
	w, _ = serve(r, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer forged")
	w, body = serve(r, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid token. Please log in again!", body["message"])

	req = httptest.NewRequest(http.MethodDelete, "/api/thing", nil)
	req.Header.Set("Authorization", "Bearer user-token")
	w, body = serve(r, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, ErrNoPermission.Message, body["message"])

	req = httptest.NewRequest(http.MethodDelete, "/api/thing", nil)
	req.Header.Set("Authorization", "Bearer admin-token")
	w, _ = serve(r, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestIsLoggedInNeverRejects(t *testing.T) {
	t.Parallel()

	auth := fakeAuth{"good": {ID: 5, Name: "Ann"}}
	r := newEngine(false, nil)
	r.GET("/", IsLoggedIn(auth), func(c *gin.Context) {
		if u := CurrentUser(c); u != nil {
			c.String(http.StatusOK, u.Name)
			return
		}
		c.String(http.StatusOK, "anonymous")
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: TokenCookie, Value: "bad"})
	w, _ := serve(r, req)
	assert.Equal(t, "anonymous", w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: TokenCookie, Value: "good"})
	w, _ = serve(r, req)
	assert.Equal(t, "Ann", w.Body.String())
}

func TestErrorHandlerProduction(t *testing.T) {
	t.Parallel()

	r := newEngine(false, nil)
	r.GET("/api/bug", func(c *gin.Context) { abortWith(c, errors.New("db exploded")) })
	r.GET("/api/missing", func(c *gin.Context) { abortWith(c, errs.ErrNoDocument) })
	r.GET("/api/panic", func(c *gin.Context) { panic("boom") })
	r.NoRoute(NoRoute())

	w, body := serve(r, httptest.NewRequest(http.MethodGet, "/api/bug", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, map[string]interface{}{"status": "error", "message": genericAPIMessage}, body)

	w, body = serve(r, httptest.NewRequest(http.MethodGet, "/api/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, map[string]interface{}{"status": "fail", "message": "No document found with that ID"}, body)

	w, body = serve(r, httptest.NewRequest(http.MethodGet, "/api/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, genericAPIMessage, body["message"])

	w, body = serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/nothing?x=1", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Can't find /api/v1/nothing?x=1 on this server!", body["message"])
}

func TestErrorHandlerDevelopment(t *testing.T) {
	t.Parallel()

	r := newEngine(true, nil)
	r.GET("/api/bug", func(c *gin.Context) { abortWith(c, errors.New("db exploded")) })

	w, body := serve(r, httptest.NewRequest(http.MethodGet, "/api/bug", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "db exploded", body["message"])
	assert.Contains(t, body["stack"], "middleware_test.go")
	assert.NotNil(t, body["error"])
}

func TestErrorHandlerRendersPages(t *testing.T) {
	t.Parallel()

	var gotStatus int
	var gotMsg string
	page := func(c *gin.Context, status int, title, msg string) {
		gotStatus, gotMsg = status, msg
		c.String(status, title+": "+msg)
	}
	r := newEngine(false, page)
	r.GET("/tour/:slug", func(c *gin.Context) { abortWith(c, errs.NotFound("There is no tour with that name.")) })
	r.GET("/me", func(c *gin.Context) { abortWith(c, errors.New("secret detail")) })

	w, _ := serve(r, httptest.NewRequest(http.MethodGet, "/tour/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "There is no tour with that name.", gotMsg)
	assert.Equal(t, pageErrorTitle+": There is no tour with that name.", w.Body.String())

	w, _ = serve(r, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusInternalServerError, gotStatus)
	assert.Equal(t, genericPageMessage, gotMsg)
	assert.False(t, strings.Contains(w.Body.String(), "secret detail"))
}

func TestRequestID(t *testing.T) {
	t.Parallel()

	r := newEngine(false, nil)
	r.GET("/id", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	w, _ := serve(r, httptest.NewRequest(http.MethodGet, "/id", nil))
	assert.Len(t, w.Body.String(), 36)
	assert.Equal(t, w.Body.String(), w.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/id", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w, _ = serve(r, req)
	assert.Equal(t, "abc-123", w.Body.String())
}

func TestMemoryLimiter(t *testing.T) {
	t.Parallel()

	l := NewMemoryLimiter(2, time.Hour)
	defer l.Stop()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 1; i <= 2; i++ {
		res, err := l.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 2-i, res.Remaining)
	}
	res, _ := l.Allow(ctx, "1.2.3.4")
	assert.False(t, res.Allowed)
	assert.Equal(t, now.Add(time.Hour), res.Reset)

	res, _ = l.Allow(ctx, "5.6.7.8")
	assert.True(t, res.Allowed)

	now = now.Add(time.Hour)
	res, _ = l.Allow(ctx, "1.2.3.4")
	assert.True(t, res.Allowed)
	assert.Equal(t, 1, res.Remaining)

	now = now.Add(2 * time.Hour)
	l.cleanupExpired()
	assert.Empty(t, l.windows)
}

type brokenLimiter struct{}

func (brokenLimiter) Allow(context.Context, string) (RateResult, error) {
	return RateResult{}, errors.New("redis down")
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	l := NewMemoryLimiter(1, time.Hour)
	defer l.Stop()

	r := newEngine(false, nil)
	r.GET("/api/x", RateLimit(l, logger.Nop()), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/open", RateLimit(brokenLimiter{}, logger.Nop()), func(c *gin.Context) { c.Status(http.StatusOK) })

	w, _ := serve(r, httptest.NewRequest(http.MethodGet, "/api/x", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w, body := serve(r, httptest.NewRequest(http.MethodGet, "/api/x", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, ErrTooManyRequests.Message, body["message"])
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	w, _ = serve(r, httptest.NewRequest(http.MethodGet, "/api/open", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBodyLimit(t *testing.T) {
	t.Parallel()

	r := newEngine(false, nil)
	r.POST("/api/echo", BodyLimit(16), func(c *gin.Context) {
		var v map[string]interface{}
		if err := json.NewDecoder(c.Request.Body).Decode(&v); err != nil {
			abortWith(c, err)
			return
		}
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/echo", strings.NewReader(`{"a":1}`))
	req.Header.Set("Content-Type", "application/json")
	w, _ := serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/echo", strings.NewReader(`{"a":"`+strings.Repeat("x", 64)+`"}`))
	req.Header.Set("Content-Type", "application/json")
	w, _ = serve(r, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestSecurityHeadersAndAlerts(t *testing.T) {
	t.Parallel()

	r := newEngine(false, nil)
	r.GET("/my-tours", SecurityHeaders(), Alerts(), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(AlertKey))
	})

	w, _ := serve(r, httptest.NewRequest(http.MethodGet, "/my-tours?alert=booking", nil))
	assert.Contains(t, w.Body.String(), "Your booking was successful!")
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-referrer", w.Header().Get("Referrer-Policy"))
	assert.Equal(t, "noopen", w.Header().Get("X-Download-Options"))
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), "js.stripe.com")
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"), "plain http gets no HSTS")

	req := httptest.NewRequest(http.MethodGet, "/my-tours", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	w, _ = serve(r, req)
	assert.Contains(t, w.Header().Get("Strict-Transport-Security"), "max-age=15552000")
}
