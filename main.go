package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"natours/config"
	"natours/controllers"
	"natours/jobs"
	"natours/logger"
	"natours/middleware"
	"natours/routes"
	"natours/services"
	"natours/templates"
)

func main() {
	// Load .env (optional)
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		boot := logger.New(config.EnvDevelopment)
		boot.Fatal().Err(err).Msg("load config")
	}
	log := logger.New(cfg.Env)
	if envErr != nil {
		log.Debug().Msg(".env not found; using environment variables only")
	}
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := config.ConnectDatabase(cfg, logger.NewGormLogger(log, cfg.Database.Debug), log); err != nil {
		log.Fatal().Err(err).Msg("database connect failed")
	}
	db := config.DB
	log.Info().Str("driver", cfg.Database.Driver).Msg("database ready")

	mailer := services.NewMailer(cfg, log)
	emails, err := services.NewEmailService(mailer)
	if err != nil {
		log.Fatal().Err(err).Msg("email templates")
	}

	var (
		notifier services.Notifier = emails
		limiter  middleware.Limiter
		worker   *jobs.Worker
		queue    *jobs.Queue
		rdb      *redis.Client
	)
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		limiter = middleware.NewRedisLimiter(rdb, cfg.RateLimit.Max, cfg.RateLimit.Window)

		queue = jobs.NewQueue(cfg.Redis, emails, log)
		notifier = queue
		worker = jobs.NewWorker(cfg.Redis, emails, log)
		if err := worker.Start(); err != nil {
			log.Fatal().Err(err).Msg("start email worker")
		}
	} else {
		mem := middleware.NewMemoryLimiter(cfg.RateLimit.Max, cfg.RateLimit.Window)
		defer mem.Stop()
		limiter = mem
		log.Warn().Msg("redis not configured: emails are sent inline and rate limits are per process")
	}

	if cfg.Stripe.SecretKey == "" {
		log.Warn().Msg("stripe secret key not set: checkout sessions will fail")
	}

	// Initialize services
	tokens := services.NewTokenManager(cfg.JWT.Secret, cfg.JWT.ExpiresIn)
	userService := services.NewUserService(db)
	authService := services.NewAuthService(db, userService, tokens, notifier, log)
	tourService := services.NewTourService(db)
	reviewService := services.NewReviewService(db)
	payments := services.NewStripeGateway(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret)
	bookingService := services.NewBookingService(db, payments, cfg.Stripe.Currency, log)
	imageService := services.NewImageService(cfg.Uploads.Dir)

	views, err := templates.Views()
	if err != nil {
		log.Fatal().Err(err).Msg("page templates")
	}

	// Build router
	router := routes.SetupRouter(routes.Controllers{
		Auth:     controllers.NewAuthController(authService, cfg.JWT.CookieExpiresIn),
		Tours:    controllers.NewTourController(tourService, imageService),
		Users:    controllers.NewUserController(userService, imageService, log),
		Reviews:  controllers.NewReviewController(reviewService),
		Bookings: controllers.NewBookingController(bookingService, tourService),
		Views:    controllers.NewViewController(tourService, bookingService, userService),
	}, routes.Options{
		Config:        cfg,
		Log:           log,
		Authenticator: authService,
		Limiter:       limiter,
		Views:         views,
	})

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("ListenAndServe")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with timeout
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutdown signal received, shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	shutdownBackground(worker, queue, rdb, log)

	log.Info().Msg("server stopped gracefully")
}

func shutdownBackground(worker *jobs.Worker, queue *jobs.Queue, rdb *redis.Client, log zerolog.Logger) {
	if worker != nil {
		worker.Stop()
	}
	if queue != nil {
		if err := queue.Close(); err != nil {
			log.Warn().Err(err).Msg("close job queue")
		}
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			log.Warn().Err(err).Msg("close redis")
		}
	}
}
