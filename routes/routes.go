package routes

import (
	"html/template"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"natours/config"
	"natours/controllers"
	"natours/middleware"
	"natours/models"
)

const bodyLimit = 10 << 10

// parseCorsOrigins accepts both a list and comma separated entries. An empty
// list allows every origin.
func parseCorsOrigins(raw []string) []string {
	origins := make([]string, 0, len(raw))
	for _, entry := range raw {
		for _, part := range strings.Split(entry, ",") {
			origin := strings.TrimSpace(part)
			if origin != "" {
				origins = append(origins, origin)
			}
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

// Controllers are the handlers mounted by SetupRouter.
type Controllers struct {
	Auth     *controllers.AuthController
	Tours    *controllers.TourController
	Users    *controllers.UserController
	Reviews  *controllers.ReviewController
	Bookings *controllers.BookingController
	Views    *controllers.ViewController
}

// Options carry the cross-cutting dependencies of the router.
type Options struct {
	Config        *config.Config
	Log           zerolog.Logger
	Authenticator middleware.Authenticator
	Limiter       middleware.Limiter
	// Views may be nil, in which case page errors are answered as JSON.
	Views *template.Template
}

func SetupRouter(h Controllers, opts Options) *gin.Engine {
	cfg := opts.Config
	r := gin.New()

	var pageRenderer middleware.PageRenderer
	if opts.Views != nil {
		r.SetHTMLTemplate(opts.Views)
		pageRenderer = controllers.RenderError
	}

	r.Use(
		middleware.RequestID(),
		middleware.Logger(opts.Log),
		gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/webhook-checkout"})),
		middleware.ErrorHandler(cfg.IsDevelopment(), opts.Log, pageRenderer),
		middleware.Recovery(),
	)

	origins := parseCorsOrigins(cfg.Server.CORSOrigins)
	allowCredentials := true
	for _, origin := range origins {
		if origin == "*" {
			allowCredentials = false
			break
		}
	}

	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: allowCredentials,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.SecurityHeaders())

	public := cfg.Server.PublicDir
	r.Static("/img", filepath.Join(public, "img"))
	r.Static("/css", filepath.Join(public, "css"))
	r.Static("/js", filepath.Join(public, "js"))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// The payment provider signs the raw body, so this route sits outside
	// the body limit.
	r.POST("/webhook-checkout", h.Bookings.WebhookCheckout)

	protect := middleware.Protect(opts.Authenticator)
	isLoggedIn := middleware.IsLoggedIn(opts.Authenticator)
	restrictTo := middleware.RestrictTo

	api := r.Group("/api/v1",
		middleware.RateLimit(opts.Limiter, opts.Log),
		middleware.BodyLimit(bodyLimit),
	)
	{
		tours := api.Group("/tours")
		{
			tours.GET("", h.Tours.GetAll())
			tours.GET("/top-5-cheap", h.Tours.AliasTopTours, h.Tours.GetAll())
			tours.GET("/tour-stats", h.Tours.GetTourStats)
			tours.GET("/monthly-plan/:year", protect, restrictTo(models.RoleAdmin, models.RoleLeadGuide, models.RoleGuide), h.Tours.GetMonthlyPlan)
			tours.GET("/tours-within/:distance/center/:latlng/unit/:unit", h.Tours.GetToursWithin)
			tours.GET("/distances/:latlng/unit/:unit", h.Tours.GetDistances)

			tours.POST("", protect, restrictTo(models.RoleAdmin, models.RoleLeadGuide), h.Tours.CreateOne())
			tours.GET("/:id", h.Tours.GetTour)
			tours.PATCH("/:id", protect, restrictTo(models.RoleAdmin, models.RoleLeadGuide), h.Tours.UpdateTour)
			tours.DELETE("/:id", protect, restrictTo(models.RoleAdmin, models.RoleLeadGuide), h.Tours.DeleteOne())

			// reviews of one tour
			tours.GET("/:id/reviews", protect, nestedTour, h.Reviews.GetAllReviews)
			tours.POST("/:id/reviews", protect, restrictTo(models.RoleUser), nestedTour, h.Reviews.CreateReview)
			tours.GET("/:id/reviews/:reviewId", protect, nestedReview, h.Reviews.GetOne())
			tours.PATCH("/:id/reviews/:reviewId", protect, restrictTo(models.RoleUser, models.RoleAdmin), nestedReview, h.Reviews.UpdateOne())
			tours.DELETE("/:id/reviews/:reviewId", protect, restrictTo(models.RoleUser, models.RoleAdmin), nestedReview, h.Reviews.DeleteOne())
		}

		users := api.Group("/users")
		{
			users.POST("/signup", h.Auth.Signup)
			users.POST("/login", h.Auth.Login)
			users.GET("/logout", h.Auth.Logout)
			users.POST("/forgot-password", h.Auth.ForgotPassword)
			users.PATCH("/reset-password/:token", h.Auth.ResetPassword)

			me := users.Group("", protect)
			me.PATCH("/update-my-password", h.Auth.UpdatePassword)
			me.GET("/me", h.Users.GetMe)
			me.PATCH("/update-my-details", h.Users.UpdateMe)
			me.DELETE("/delete-my-account", h.Users.DeleteMe)

			admin := me.Group("", restrictTo(models.RoleAdmin))
			admin.GET("", h.Users.GetAll())
			admin.POST("", h.Users.CreateUser)
			admin.GET("/:id", h.Users.GetOne())
			admin.PATCH("/:id", h.Users.UpdateOne())
			admin.DELETE("/:id", h.Users.DeleteOne())
		}

		reviews := api.Group("/reviews", protect)
		{
			reviews.GET("", h.Reviews.GetAllReviews)
			reviews.POST("", restrictTo(models.RoleUser), h.Reviews.CreateReview)
			reviews.GET("/:id", h.Reviews.GetOne())
			reviews.PATCH("/:id", restrictTo(models.RoleUser, models.RoleAdmin), h.Reviews.UpdateOne())
			reviews.DELETE("/:id", restrictTo(models.RoleUser, models.RoleAdmin), h.Reviews.DeleteOne())
		}

		bookings := api.Group("/bookings", protect)
		{
			bookings.GET("/checkout-session/:tourId", h.Bookings.GetCheckoutSession)

			staff := bookings.Group("", restrictTo(models.RoleAdmin, models.RoleLeadGuide))
			staff.GET("", h.Bookings.GetAll())
			staff.POST("", h.Bookings.CreateOne())
			staff.GET("/:id", h.Bookings.GetOne())
			staff.PATCH("/:id", h.Bookings.UpdateOne())
			staff.DELETE("/:id", h.Bookings.DeleteOne())
		}
	}

	views := r.Group("/", middleware.Alerts(), middleware.BodyLimit(bodyLimit))
	{
		views.GET("/", isLoggedIn, h.Views.GetOverview)
		views.GET("/tour/:slug", isLoggedIn, h.Views.GetTour)
		views.GET("/login", isLoggedIn, h.Views.GetLoginForm)
		views.GET("/signup", isLoggedIn, h.Views.GetSignupForm)
		views.GET("/me", protect, h.Views.GetAccount)
		views.GET("/my-tours", protect, h.Views.GetMyTours)
		views.POST("/submit-user-data", protect, h.Views.UpdateUserData)
	}

	r.NoRoute(middleware.NoRoute())
	return r
}

// nestedTour exposes the :id of /tours/:id/reviews as tourId.
func nestedTour(c *gin.Context) {
	c.Params = append(c.Params, gin.Param{Key: "tourId", Value: c.Param("id")})
	c.Next()
}

// nestedReview maps /tours/:id/reviews/:reviewId onto the review handlers,
// which read the review from id.
func nestedReview(c *gin.Context) {
	tourID, reviewID := c.Param("id"), c.Param("reviewId")
	for i := range c.Params {
		if c.Params[i].Key == "id" {
			c.Params[i].Value = reviewID
		}
	}
	c.Params = append(c.Params, gin.Param{Key: "tourId", Value: tourID})
	c.Next()
}
