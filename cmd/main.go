package main

import (
	"context"
	"crypto/rand"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/userforge/user-service/internal/config"
	"github.com/userforge/user-service/internal/database"
	"github.com/userforge/user-service/internal/handler"
	"github.com/userforge/user-service/internal/middleware"
	"github.com/userforge/user-service/internal/repository"
	"github.com/userforge/user-service/internal/service"
)

const serviceName = "user-service"

func main() {
	cfg := config.Load()

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}

	secret := []byte(cfg.JWTSecret)
	if len(secret) == 0 {
		// Tokens signed with an ephemeral secret do not survive restarts.
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			log.Fatalf("Failed to generate token secret: %v", err)
		}
		log.Println("JWT_SECRET not set; using an ephemeral secret")
	}

	userRepo := repository.NewUserRepository(db)
	userSvc := service.NewUserService(userRepo, cfg.BcryptCost)
	authSvc := service.NewAuthService(userSvc, secret)

	userHandler := handler.NewUserHandler(userSvc)
	authHandler := handler.NewAuthHandler(authSvc)
	healthHandler := handler.NewHealthHandler(serviceName)

	// Setup router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())

	// Authorization policy: health and auth routes are always open; the user
	// routes are gated by an explicit configuration flag (AUTH_REQUIRED).
	health := router.Group("/health")
	{
		health.GET("", healthHandler.Health)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/live", healthHandler.Live)
	}

	auth := router.Group("/api/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
	}

	users := router.Group("/api/users")
	if cfg.AuthRequired {
		users.Use(middleware.Auth(secret, userSvc))
	}
	{
		users.POST("", userHandler.CreateUser)
		users.GET("", userHandler.ListUsers)
		users.GET("/:id", userHandler.GetUser)
		users.GET("/username/:username", userHandler.GetUserByUsername)
		users.PUT("/:id", userHandler.UpdateUser)
		users.DELETE("/:id", userHandler.DeleteUser)
		users.PATCH("/:id/deactivate", userHandler.DeactivateUser)
		users.PATCH("/:id/activate", userHandler.ActivateUser)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Println("Shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}()

	log.Printf("%s starting on port %s", serviceName, cfg.HTTPPort)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Failed to start server: %v", err)
	}
}
