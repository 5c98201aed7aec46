package main

import (
	"context" // Lifecycle hooks

	"feedback_system/internal/api"     // Custom package for API handlers
	"feedback_system/internal/auth"    // Password hashing
	"feedback_system/internal/config"  // Custom package for configuration
	"feedback_system/internal/db"      // Database connection and migration
	"feedback_system/internal/service" // Business operations
	"feedback_system/internal/session" // Session stores

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
	"go.uber.org/fx"               // Dependency injection and lifecycle
	"gorm.io/gorm"                 // GORM ORM library
)

// provideConfig loads and validates configuration, then sets up logging
func provideConfig() (*config.Config, error) {
	cfg := config.LoadConfig() // Load configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	// Setup logger
	if cfg.IsProd {
		logrus.SetFormatter(&logrus.JSONFormatter{})
		gin.SetMode(gin.ReleaseMode) // Set Mode to Release if in production
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	} else {
		logrus.Warnf("unknown LOG_LEVEL %q, keeping %s", cfg.LogLevel, logrus.GetLevel())
	}
	return cfg, nil
}

// provideDB connects to the database and closes it on shutdown
func provideDB(lc fx.Lifecycle, cfg *config.Config) (*gorm.DB, error) {
	conn, err := db.Open(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.AutoMigrate {
		if err := db.Migrate(conn); err != nil {
			return nil, err
		}
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return db.Close(conn)
		},
	})
	logrus.WithField("driver", cfg.DBDriver).Info("Database connected")
	return conn, nil
}

// provideHasher builds the bcrypt hasher at the configured cost
func provideHasher(cfg *config.Config) (*auth.Hasher, error) {
	return auth.NewHasher(cfg.BcryptCost)
}

// provideSessionStore picks the cookie or Redis session store
func provideSessionStore(lc fx.Lifecycle, cfg *config.Config) (session.Store, error) {
	opts := session.CookieOptions{TTL: cfg.SessionTTL, Secure: cfg.IsProd}
	if cfg.SessionStore != config.SessionRedis {
		return session.NewCookieStore(cfg.SecretKey, opts), nil
	}
	// Setup Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr, // Redis server address
		Password: cfg.RedisPass, // Redis password
		DB:       cfg.RedisDB,   // Redis database number
	})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			// Test Redis connection
			return redisClient.Ping(ctx).Err()
		},
		OnStop: func(context.Context) error {
			return redisClient.Close()
		},
	})
	return session.NewRedisStore(redisClient, opts), nil
}

// provideRouter builds the gin engine
func provideRouter(
	cfg *config.Config,
	conn *gorm.DB,
	accounts *service.AccountService,
	feedback *service.FeedbackService,
	sessions session.Store,
) (*gin.Engine, error) {
	return api.NewRouter(api.Deps{
		DB:             conn,
		Accounts:       accounts,
		Feedback:       feedback,
		Sessions:       sessions,
		CSRFKey:        cfg.CSRFKey(),         // Derived from SECRET_KEY
		SecureCookies:  cfg.IsProd,            // HTTPS only in production
		TrustedProxies: []string{"127.0.0.1"}, // Set trusted proxies for Gin
	})
}
