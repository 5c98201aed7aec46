package main

import (
	"context"  // Lifecycle hooks
	"errors"   // Server shutdown detection
	"net"      // Listener
	"net/http" // HTTP server
	"time"     // Server timeouts

	"feedback_system/internal/config" // Custom package for configuration
	"feedback_system/internal/service"
	"feedback_system/internal/store"

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logrus for structured logging
	"go.uber.org/fx"             // Dependency injection and lifecycle
)

// Main function to set up and run the server
func main() {
	app := fx.New(
		fx.Provide(
			provideConfig,              // Environment configuration
			provideDB,                  // Database connection
			provideHasher,              // bcrypt hasher
			provideSessionStore,        // Cookie or Redis sessions
			store.NewUserStore,         // User persistence
			store.NewFeedbackStore,     // Feedback persistence
			service.NewAccountService,  // Account operations
			service.NewFeedbackService, // Feedback operations
			provideRouter,              // Gin engine with all routes
		),
		fx.Invoke(startServer),
	)
	app.Run()
}

// startServer runs the HTTP server for the lifetime of the fx application
func startServer(lc fx.Lifecycle, cfg *config.Config, engine *gin.Engine) {
	srv := &http.Server{
		Addr:         ":" + cfg.AppPort,
		Handler:      engine,
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr) // Fail start-up if the port is taken
			if err != nil {
				return err
			}
			go func() {
				logrus.Infof("Server running on %s", cfg.AppPort) // Log server start
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logrus.Fatalf("server stopped: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logrus.Info("Stopping HTTP server")
			return srv.Shutdown(ctx) // Drain in-flight requests
		},
	})
}
