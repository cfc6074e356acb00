package config // package config loads application configuration from environment variables

import (
	"log"     // log reports configuration errors and halts execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"strings" // strings normalizes driver names
	"time"    // time parses durations

	"github.com/joho/godotenv" // godotenv loads a local .env file into the environment
)

// Store drivers accepted in STORE_DRIVER.
const (
	DriverMySQL  = "mysql"
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env          string        // application environment (e.g. "dev", "prod")
	Port         string        // HTTP port to listen on
	StoreDriver  string        // mysql, mongo or memory
	DBUser       string        // MySQL username
	DBPass       string        // MySQL password (optional)
	DBHost       string        // MySQL host address
	DBPort       string        // MySQL port number
	DBName       string        // MySQL database name
	MongoURI     string        // MongoDB connection string
	MongoDB      string        // MongoDB database name
	JWTSecret    string        // secret used to sign JWTs
	AccessTTLMin int           // access token time-to-live in minutes
	SessionTTL   time.Duration // lifetime of a server-side session record
	BcryptCost   int           // bcrypt cost for password hashing
	AdminEmails  []string      // accounts promoted to admin at startup
}

// Load reads configuration values from the environment and returns a
// Config.  A .env file in the working directory is loaded first when
// present; variables already set in the environment win.  Required
// variables are enforced by must() and missing values cause the program to
// exit with a fatal log message.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: .env not loaded: %v", err)
	}
	cfg := Config{
		Env:          envStr("APP_ENV", "dev"),
		Port:         envStr("APP_PORT", "8080"),
		StoreDriver:  strings.ToLower(envStr("STORE_DRIVER", DriverMySQL)),
		JWTSecret:    must("JWT_SECRET"),
		AccessTTLMin: mustInt("ACCESS_TOKEN_TTL_MIN"),
		BcryptCost:   envInt("BCRYPT_COST", 10),
		AdminEmails:  splitList(os.Getenv("ADMIN_EMAILS")),
	}
	cfg.SessionTTL = envDur("SESSION_TTL", time.Duration(cfg.AccessTTLMin)*time.Minute)

	switch cfg.StoreDriver {
	case DriverMySQL:
		cfg.DBUser = must("DB_USER")
		cfg.DBPass = os.Getenv("DB_PASS") // empty allowed
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = must("DB_PORT")
		cfg.DBName = must("DB_NAME")
	case DriverMongo:
		cfg.MongoURI = must("MONGO_URI")
		cfg.MongoDB = envStr("MONGO_DB", "meetups")
		// accounts stay in MySQL when it is configured
		cfg.DBUser = os.Getenv("DB_USER")
		cfg.DBPass = os.Getenv("DB_PASS")
		cfg.DBHost = os.Getenv("DB_HOST")
		cfg.DBPort = envStr("DB_PORT", "3306")
		cfg.DBName = os.Getenv("DB_NAME")
	case DriverMemory:
	default:
		log.Fatalf("unknown STORE_DRIVER: %q", cfg.StoreDriver)
	}
	return cfg
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
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}
