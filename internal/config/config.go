package config

import (
	"crypto/sha256" // For deriving fixed-size keys
	"fmt"           // For error formatting
	"os"            // For environment variables
	"strconv"       // For string to int conversion
	"time"          // For session lifetime

	"github.com/joho/godotenv"   // For loading .env files
	"golang.org/x/crypto/bcrypt" // For the default hashing cost
)

// Supported database drivers
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Supported session stores
const (
	SessionCookie = "cookie"
	SessionRedis  = "redis"
)

// Config holds the application configuration
type Config struct {
	AppPort      string        // Application port
	DBDriver     string        // Database driver: mysql, postgres or sqlite
	DatabaseURL  string        // Full DSN, overrides the DB_* parts
	DBUser       string        // Database user
	DBPassword   string        // Database password
	DBHost       string        // Database host
	DBPort       string        // Database port
	DBName       string        // Database name
	AutoMigrate  bool          // Migrate schema on server start
	SecretKey    string        // Session signing key
	SessionStore string        // Session store: cookie or redis
	SessionTTL   time.Duration // Session lifetime
	RedisAddr    string        // Redis server address
	RedisPass    string        // Redis password
	RedisDB      int           // Redis database number
	BcryptCost   int           // Password hashing cost
	LogLevel     string        // Logrus level name
	IsProd       bool          // Is production environment
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	redisDB, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	cost, err := strconv.Atoi(os.Getenv("BCRYPT_COST"))
	if err != nil || cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost // Fall back to the library default
	}
	ttl, err := time.ParseDuration(os.Getenv("SESSION_TTL"))
	if err != nil || ttl <= 0 {
		ttl = 24 * time.Hour // One day by default
	}
	return &Config{
		AppPort:      getEnv("APP_PORT", "8080"),             // Application port
		DBDriver:     getEnv("DB_DRIVER", DriverMySQL),       // Database driver
		DatabaseURL:  os.Getenv("DATABASE_URL"),              // Full DSN
		DBUser:       os.Getenv("DB_USER"),                   // Database user
		DBPassword:   os.Getenv("DB_PASSWORD"),               // Database password
		DBHost:       getEnv("DB_HOST", "127.0.0.1"),         // Database host
		DBPort:       os.Getenv("DB_PORT"),                   // Database port
		DBName:       getEnv("DB_NAME", "feedback"),          // Database name
		AutoMigrate:  os.Getenv("AUTO_MIGRATE") == "true",    // Migrate on start
		SecretKey:    os.Getenv("SECRET_KEY"),                // Session signing key
		SessionStore: getEnv("SESSION_STORE", SessionCookie), // Session store
		SessionTTL:   ttl,                                    // Session lifetime
		RedisAddr:    getEnv("REDIS_ADDR", "127.0.0.1:6379"), // Redis server address
		RedisPass:    os.Getenv("REDIS_PASS"),                // Redis password
		RedisDB:      redisDB,                                // Redis database number
		BcryptCost:   cost,                                   // Password hashing cost
		LogLevel:     getEnv("LOG_LEVEL", "info"),            // Log level
		IsProd:       os.Getenv("IS_PROD") == "true",         // Is production environment
	}
}

// Validate rejects configurations the server cannot start with
func (c *Config) Validate() error {
	switch c.DBDriver {
	case DriverMySQL, DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	switch c.SessionStore {
	case SessionCookie, SessionRedis:
	default:
		return fmt.Errorf("unsupported SESSION_STORE %q", c.SessionStore)
	}
	if c.SecretKey == "" {
		if c.IsProd {
			return fmt.Errorf("SECRET_KEY is required in production")
		}
		c.SecretKey = "dev-secret-key" // Development only
	}
	return nil
}

// DSN builds the Data Source Name for the configured driver
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL // Explicit DSN wins
	}
	switch c.DBDriver {
	case DriverPostgres:
		port := c.DBPort
		if port == "" {
			port = "5432"
		}
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			c.DBHost, port, c.DBUser, c.DBPassword, c.DBName)
	case DriverSQLite:
		return c.DBName + ".db" // File next to the binary
	default:
		port := c.DBPort
		if port == "" {
			port = "3306"
		}
		return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + port + ")/" + c.DBName + "?parseTime=true&charset=utf8mb4"
	}
}

// CSRFKey derives the 32-byte CSRF cookie key from SecretKey
func (c *Config) CSRFKey() []byte {
	sum := sha256.Sum256([]byte("csrf:" + c.SecretKey))
	return sum[:]
}

// getEnv returns the variable value or a fallback when unset
func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
