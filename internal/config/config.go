package config // package config loads application configuration from environment variables

import (
	"log"
	"os"
	"time"
)

// Config holds all runtime configuration values.  Each field
// corresponds to an environment variable.  Moderation-window fields
// govern the token-age gates of the comment pipeline; the transport
// rate-limit and cache settings live in their own structs.
type Config struct {
	Env               string        // application environment (e.g. "dev", "prod")
	Port              string        // HTTP port to listen on
	DBUser            string        // database username
	DBPass            string        // database password (optional)
	DBHost            string        // database host address
	DBPort            string        // database port number
	DBName            string        // database name
	JWTSecret         string        // secret used to sign identity tokens
	AdminPasswordHash string        // bcrypt hash of the moderator password
	RequireSession    bool          // reject comment creation without a session token
	MinTokenAge       time.Duration // minimum token age before a comment is accepted
	MaxTokenAge       time.Duration // maximum token age before a session must be refreshed
}

// Load reads configuration values from environment variables and
// returns a Config.  Required variables are enforced by must() and
// missing values cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:               must("APP_ENV"),
		Port:              must("APP_PORT"),
		DBUser:            must("DB_USER"),
		DBPass:            os.Getenv("DB_PASS"),
		DBHost:            must("DB_HOST"),
		DBPort:            must("DB_PORT"),
		DBName:            must("DB_NAME"),
		JWTSecret:         must("JWT_SECRET"),
		AdminPasswordHash: must("ADMIN_PASSWORD_HASH"),
		RequireSession:    envBool("REQUIRE_SESSION", true),
		MinTokenAge:       envDur("COMMENT_MIN_TOKEN_AGE", 30*time.Second),
		MaxTokenAge:       envDur("COMMENT_MAX_TOKEN_AGE", 2*time.Hour),
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}
