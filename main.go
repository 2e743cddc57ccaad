// main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	pubnub "github.com/pubnub/go/v7"

	"seatgrid/config"
	"seatgrid/handlers"
	_ "seatgrid/migrations"
	"seatgrid/monitoring"
	"seatgrid/security"
	"seatgrid/services"
	"seatgrid/utils"
)

func main() {
	app := pocketbase.New()

	// Load configuration
	cfg := config.LoadConfig()

	// Initialize Redis (HSS)
	redisClient := utils.NewRedisClient(cfg.RedisURL)
	defer redisClient.Close()

	// Initialize PubNub (realtime seat-state broadcast)
	pnConfig := pubnub.NewConfigWithUserId(pubnub.UserId("seatgrid-server"))
	pnConfig.PublishKey = cfg.PubNubPublishKey
	pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
	pnConfig.SecretKey = cfg.PubNubSecretKey
	pn := pubnub.NewPubNub(pnConfig)

	realtime := services.NewRealtimeNotifier(pn)
	metrics := monitoring.NewMetrics(redisClient)

	// Initialize services
	reservations := services.NewReservationService(app, redisClient, cfg.HoldDuration, cfg.ReceiptRetention, cfg.DRSTxTimeout).
		WithRealtime(realtime).
		WithMetrics(metrics)

	authGate := security.NewAuthGate(cfg.JWTSecret, cfg.JWTTokenTTL)
	rateLimiter := security.NewRateLimiter(redisClient).WithMetrics(metrics)
	authService := services.NewAuthService(app, redisClient, authGate, cfg.BcryptCost, cfg.OTPTTL)

	holdBucket := security.Bucket{Prefix: "ratelimit:hold", Capacity: cfg.HoldBucketCapacity, Window: cfg.HoldBucketWindow}
	authBucket := security.Bucket{Prefix: "ratelimit:auth", Capacity: cfg.AuthBucketCapacity, Window: cfg.AuthBucketWindow}

	// Initialize handlers
	seatHandler := handlers.NewSeatHandler(reservations, rateLimiter)
	lockHandler := handlers.NewLockHandler(reservations, authGate, rateLimiter, holdBucket)
	paymentHandler := handlers.NewPaymentHandler(reservations, authGate)
	adminHandler := handlers.NewAdminHandler(reservations)
	authHandler := handlers.NewAuthHandler(authService, rateLimiter, authBucket)

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: true,
	})

	// Create context for background tasks
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start background tasks
	go reservations.RunReconciliation(ctx, cfg.ReconcileInterval)

	// Setup graceful shutdown
	go handleShutdown(cancel)

	// Register routes
	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		// Seat endpoints
		e.Router.GET("/api/seats", seatHandler.GetSeats)
		e.Router.POST("/api/lock", lockHandler.Lock)
		e.Router.POST("/api/release", lockHandler.Release)
		e.Router.POST("/api/pay", paymentHandler.Purchase)

		// Admin endpoints
		e.Router.POST("/api/reset", adminHandler.Reset)

		// Auth endpoints
		e.Router.POST("/api/auth/register", authHandler.Register)
		e.Router.POST("/api/auth/verify-register", authHandler.VerifyRegistration)
		e.Router.POST("/api/auth/login", authHandler.Login)

		// Health check
		e.Router.GET("/health", func(e *core.RequestEvent) error {
			if err := utils.RedisHealthCheck(redisClient); err != nil {
				return e.JSON(503, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
			}
			return e.JSON(200, map[string]string{"status": "healthy"})
		})

		log.Println("Server routes registered")

		return e.Next()
	})

	// Start server
	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
}

// handleShutdown handles graceful shutdown
func handleShutdown(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
	cancel()
}
