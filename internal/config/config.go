package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"time"    // time parses the reclaimer durations
)

// Config holds all runtime configuration values.  Each field corresponds
// to an environment variable.  The expiry/interval fields implement the
// abandonment policy: the client heartbeat period must stay well below
// ExpiryThreshold so transient disconnects do not lose an active cart.
type Config struct {
	Env               string        // application environment (e.g. "dev", "prod")
	Port              string        // HTTP port to listen on
	DBUser            string        // database username
	DBPass            string        // database password (optional)
	DBHost            string        // database host address
	DBPort            string        // database port number
	DBName            string        // database name
	JWTSecret         string        // secret used to sign session tokens
	SessionTTLMin     int           // session token time-to-live in minutes
	OperatorPINHash   string        // bcrypt hash of the terminal operator PIN
	HeartbeatInterval time.Duration // advertised heartbeat period for clients
	ExpiryThreshold   time.Duration // silence after which a reservation is abandoned
	SweepInterval     time.Duration // how often the reclaimer sweeps
	ScanDebounce      time.Duration // window for rejecting repeated scans
}

// Load reads configuration values from environment variables and returns
// a Config.  Required variables are enforced by must() and missing
// values cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:               must("APP_ENV"),
		Port:              must("APP_PORT"),
		DBUser:            must("DB_USER"),
		DBPass:            os.Getenv("DB_PASS"), // empty allowed
		DBHost:            must("DB_HOST"),
		DBPort:            must("DB_PORT"),
		DBName:            must("DB_NAME"),
		JWTSecret:         must("JWT_SECRET"),
		SessionTTLMin:     mustInt("SESSION_TOKEN_TTL_MIN"),
		OperatorPINHash:   must("OPERATOR_PIN_HASH"),
		HeartbeatInterval: envDur("HEARTBEAT_INTERVAL", 30*time.Second),
		ExpiryThreshold:   envDur("RESERVATION_EXPIRY", 5*time.Minute),
		SweepInterval:     envDur("RECLAIM_SWEEP_INTERVAL", time.Minute),
		ScanDebounce:      envDur("SCAN_DEBOUNCE", 750*time.Millisecond),
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

// mustInt is like must() but converts the retrieved string into an
// integer.  If conversion fails, the application exits.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
