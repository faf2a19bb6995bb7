package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"time"    // time is used for duration-valued settings
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for durations
// and costs.
type Config struct {
	Env             string // application environment (e.g. "dev", "prod")
	Port            string // HTTP port to listen on
	DBUser          string // database username
	DBPass          string // database password (optional)
	DBHost          string // database host address
	DBPort          string // database port number
	DBName          string // database name
	JWTSecret       string // secret used to sign API bearer tokens
	AccessTTLMin    int    // API token time-to-live in minutes
	SessionTTLHours int    // server-side session time-to-live in hours
	BcryptCost      int    // bcrypt cost for password hashing
	MapQuestKey     string // MapQuest static map API key (optional; empty disables fetching)
	MapDir          string // directory where static map images are written
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:             must("APP_ENV"),                  // environment (dev/test/prod)
		Port:            must("APP_PORT"),                 // port to bind the HTTP server
		DBUser:          must("DB_USER"),                  // database user
		DBPass:          os.Getenv("DB_PASS"),             // database password (empty allowed)
		DBHost:          must("DB_HOST"),                  // database host
		DBPort:          must("DB_PORT"),                  // database port
		DBName:          must("DB_NAME"),                  // database name
		JWTSecret:       must("JWT_SECRET"),               // secret used for signing API tokens
		AccessTTLMin:    mustInt("ACCESS_TOKEN_TTL_MIN"),  // TTL for API tokens in minutes
		SessionTTLHours: mustInt("SESSION_TTL_HOURS"),     // TTL for browser sessions in hours
		BcryptCost:      mustInt("BCRYPT_COST"),           // bcrypt cost factor
		MapQuestKey:     os.Getenv("MAPQUEST_API_KEY"),    // map provider key (empty allowed)
		MapDir:          envStr("MAP_DIR", "static/maps"), // output directory for map images
	}
}

// SessionTTL returns the configured browser session lifetime as a duration.
func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLHours) * time.Hour
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

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
