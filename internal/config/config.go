package config // package config loads application configuration from environment variables

import (
    "errors"  // errors reports missing required settings
    "log"     // log is used to report configuration problems
    "os"      // os provides access to environment variables
    "strconv" // strconv converts strings to other types
    "time"    // time parses tick and poll durations

    "github.com/joho/godotenv" // godotenv loads an optional .env file into the environment
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Adapters (database, broker, HTTP API) are
// optional: an empty host/URL disables the adapter and the simulation still
// runs on its own.
type Config struct {
    Env            string        // application environment (e.g. "dev", "prod")
    Port           string        // HTTP port of the operator API; empty disables the API
    DBUser         string        // database username
    DBPass         string        // database password (optional)
    DBHost         string        // database host address; empty disables run history
    DBPort         string        // database port number
    DBName         string        // database name
    RunRetention   time.Duration // prune stored runs older than this; 0 keeps all
    RabbitURL      string        // AMQP broker URL; empty disables events
    PurchaseLogDir string        // directory for the purchase log written by the consumer
    RunConsumer    bool          // start the purchase-log consumer in-process
    JWTSecret      string        // secret used to sign operator JWTs
    AccessTTLMin   int           // access token time‑to‑live in minutes
    OperatorUser   string        // operator login name
    OperatorHash   string        // bcrypt hash of the operator password
    ConfigFile     string        // JSON file with the simulation parameters
    Interactive    bool          // ask on the console instead of reading ConfigFile only
    TickInterval   time.Duration // pause between vendor/customer batches
    PollInterval   time.Duration // completion safety-net interval
    ShowTime       string        // show time printed on tickets
    ServeAfterRun  bool          // keep the API up after the report was printed
}

// ErrMissingSecret is returned by Validate when the operator API is
// enabled without a signing secret.
var ErrMissingSecret = errors.New("config: JWT_SECRET is required when OPERATOR_PASSWORD_HASH is set")

// Load reads an optional .env file and then the environment.  Missing
// variables fall back to defaults suitable for a local run.
func Load() Config {
    if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
        log.Printf("config: ignoring .env: %v", err)
    }
    return Config{
        Env:            envStr("APP_ENV", "dev"),
        Port:           os.Getenv("APP_PORT"),
        DBUser:         envStr("DB_USER", "root"),
        DBPass:         os.Getenv("DB_PASS"),
        DBHost:         os.Getenv("DB_HOST"),
        DBPort:         envStr("DB_PORT", "3306"),
        DBName:         envStr("DB_NAME", "ticket_simulator"),
        RunRetention:   envDur("RUN_HISTORY_RETENTION", 0),
        RabbitURL:      rabbitURL(),
        PurchaseLogDir: envStr("PURCHASE_LOG_DIR", "logs"),
        RunConsumer:    envBool("PURCHASE_CONSUMER_ENABLED", false),
        JWTSecret:      os.Getenv("JWT_SECRET"),
        AccessTTLMin:   envInt("ACCESS_TOKEN_TTL_MIN", 15),
        OperatorUser:   envStr("OPERATOR_USER", "operator"),
        OperatorHash:   os.Getenv("OPERATOR_PASSWORD_HASH"),
        ConfigFile:     envStr("SIM_CONFIG_FILE", "config.json"),
        Interactive:    envBool("SIM_INTERACTIVE", true),
        TickInterval:   envDur("SIM_TICK_INTERVAL", time.Second),
        PollInterval:   envDur("SIM_POLL_INTERVAL", 500*time.Millisecond),
        ShowTime:       envStr("SIM_SHOW_TIME", "10:00 AM"),
        ServeAfterRun:  envBool("SERVE_AFTER_RUN", false),
    }
}

// Validate checks combinations of settings that Load cannot default.
func (c Config) Validate() error {
    if c.OperatorHash != "" && c.JWTSecret == "" {
        return ErrMissingSecret
    }
    return nil
}

// OperatorEnabled reports whether operator login (and therefore the
// protected stop endpoint) is configured.
func (c Config) OperatorEnabled() bool { return c.OperatorHash != "" && c.JWTSecret != "" }

// rabbitURL mirrors the broker lookup order used by the publisher and the
// consumer: RABBITMQ_URL first, then AMQP_URL.
func rabbitURL() string {
    if v := os.Getenv("RABBITMQ_URL"); v != "" {
        return v
    }
    return os.Getenv("AMQP_URL")
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
