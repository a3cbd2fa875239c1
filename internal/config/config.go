package config // package config loads application configuration from environment variables

import (
	"log"     // log reports configuration errors before the structured logger exists
	"os"      // os provides access to environment variables
	"time"

	"github.com/joho/godotenv" // optional .env file for local runs
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Values are read once in main and passed into
// constructors; nothing below reads the environment on its own.
type Config struct {
	Env  string // application environment (e.g. "dev", "prod")
	Port string // HTTP port to listen on

	DBUser string // database username
	DBPass string // database password (optional)
	DBHost string // database host address
	DBPort string // database port number
	DBName string // database name
	DBMigrate bool // apply the schema on startup

	JWTSecret        string // secret used to sign admin JWTs

	StripeSecretKey     string        // Stripe API key
	StripeWebhookSecret string        // signing secret of the webhook endpoint
	WebBase             string        // site root for checkout success/cancel URLs
	CORSOrigin          string        // Access-Control-Allow-Origin value
	Currency            string        // checkout currency, lower case ISO
	CheckoutLocale      string        // checkout page locale
	CheckoutSessionTTL  time.Duration // how long a checkout page stays payable

	HoldTTL        time.Duration // lifetime of a capacity hold
	SweepEnabled   bool          // run the housekeeping sweeper
	SweepInterval  time.Duration // sweeper tick
	AbandonAfter   time.Duration // pending bookings older than this with a dead hold are cancelled
	IdempotencyTTL time.Duration // how long webhook event ids are remembered

	RabbitURL        string // broker URL; empty disables publishing
	RabbitConsumer   bool   // run the booking.confirmed audit consumer in-process
	BookingLogPath   string // audit log written by the consumer
}

// Load reads an optional .env file and then the environment.  Required
// variables are enforced by must() and missing values cause the program to
// exit with a fatal log message.
func Load() Config {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	corsOrigin := envStr("CORS_ORIGIN", "*")
	webBase := os.Getenv("WEB_BASE")
	if webBase == "" && corsOrigin != "*" {
		webBase = corsOrigin
	}
	if webBase == "" {
		webBase = "https://taksim-blue.com"
	}
	rabbit := os.Getenv("RABBITMQ_URL")
	if rabbit == "" {
		rabbit = os.Getenv("AMQP_URL")
	}

	return Config{
		Env:       must("APP_ENV"),
		Port:      must("APP_PORT"),
		DBUser:    must("DB_USER"),
		DBPass:    os.Getenv("DB_PASS"), // empty allowed
		DBHost:    must("DB_HOST"),
		DBPort:    must("DB_PORT"),
		DBName:    must("DB_NAME"),
		DBMigrate: envBool("DB_MIGRATE", true),

		JWTSecret:        must("JWT_SECRET"),

		StripeSecretKey:     must("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: must("STRIPE_WEBHOOK_SECRET"),
		WebBase:             webBase,
		CORSOrigin:          corsOrigin,
		Currency:            envStr("CURRENCY", "try"),
		CheckoutLocale:      envStr("CHECKOUT_LOCALE", "tr"),
		CheckoutSessionTTL:  envDur("CHECKOUT_SESSION_TTL", 30*time.Minute),

		HoldTTL:        envDur("HOLD_TTL", 15*time.Minute),
		SweepEnabled:   envBool("SWEEP_ENABLED", true),
		SweepInterval:  envDur("SWEEP_INTERVAL", time.Minute),
		AbandonAfter:   envDur("ABANDON_AFTER", 2*time.Hour),
		IdempotencyTTL: envDur("IDEMPOTENCY_TTL", 48*time.Hour),

		RabbitURL:      rabbit,
		RabbitConsumer: envBool("RABBITMQ_CONSUMER", false),
		BookingLogPath: envStr("BOOKING_LOG_PATH", "logs/booking.log"),
	}
}

// IsProd reports whether the service runs in production mode.
func (c Config) IsProd() bool { return c.Env == "prod" || c.Env == "production" }

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}
