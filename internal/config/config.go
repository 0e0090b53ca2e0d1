package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port                 string   `mapstructure:"PORT"`
	Env                  string   `mapstructure:"ENV"`
	DatabaseURL          string   `mapstructure:"DATABASE_URL"`
	DBMaxConns           int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns           int32    `mapstructure:"DB_MIN_CONNS"`
	EventStore           string   `mapstructure:"EVENT_STORE"`
	MigrationsDir        string   `mapstructure:"MIGRATIONS_DIR"`
	OracleURL            string   `mapstructure:"ORACLE_URL"`
	OracleAPIKey         string   `mapstructure:"ORACLE_API_KEY"`
	OracleTimeoutSeconds int      `mapstructure:"ORACLE_TIMEOUT_SECONDS"`
	OracleMaxRetries     int      `mapstructure:"ORACLE_MAX_RETRIES"`
	AuthIssuer           string   `mapstructure:"AUTH_ISSUER"`
	AuthJWKSURL          string   `mapstructure:"AUTH_JWKS_URL"`
	AuthAudience         string   `mapstructure:"AUTH_AUDIENCE"`
	JWTSecret            string   `mapstructure:"JWT_SECRET"`
	CORSOrigins          []string `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS         float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst       int      `mapstructure:"RATE_LIMIT_BURST"`
	BodyLimit            string   `mapstructure:"BODY_LIMIT"`
	TLSEnabled           bool     `mapstructure:"TLS_ENABLED"`
	TLSCertFile          string   `mapstructure:"TLS_CERT_FILE"`
	TLSKeyFile           string   `mapstructure:"TLS_KEY_FILE"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("EVENT_STORE", "postgres")
	v.SetDefault("MIGRATIONS_DIR", "migrations")
	v.SetDefault("ORACLE_TIMEOUT_SECONDS", 30)
	v.SetDefault("ORACLE_MAX_RETRIES", 2)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("BODY_LIMIT", "1MB")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("EVENT_STORE")
	v.BindEnv("MIGRATIONS_DIR")
	v.BindEnv("ORACLE_URL")
	v.BindEnv("ORACLE_API_KEY")
	v.BindEnv("ORACLE_TIMEOUT_SECONDS")
	v.BindEnv("ORACLE_MAX_RETRIES")
	v.BindEnv("AUTH_ISSUER")
	v.BindEnv("AUTH_JWKS_URL")
	v.BindEnv("AUTH_AUDIENCE")
	v.BindEnv("JWT_SECRET")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")
	v.BindEnv("BODY_LIMIT")
	v.BindEnv("TLS_ENABLED")
	v.BindEnv("TLS_CERT_FILE")
	v.BindEnv("TLS_KEY_FILE")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.EventStore == "postgres" && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required when EVENT_STORE is postgres")
	}

	if cfg.IsDev() {
		log.Println("WARNING: ============================================================")
		log.Println("WARNING: Server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: DevAuthMiddleware is active — all requests get admin access.")
		log.Println("WARNING: Do NOT use this configuration in production.")
		log.Println("WARNING: Set ENV=production and configure AUTH_ISSUER or JWT_SECRET.")
		log.Println("WARNING: ============================================================")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run. Production mode
// requires real JWT authentication (a JWKS endpoint or an HMAC secret) and a
// reachable clinical oracle.
func (c *Config) Validate() error {
	switch c.EventStore {
	case "postgres", "memory":
	default:
		return fmt.Errorf("EVENT_STORE must be \"postgres\" or \"memory\", got %q", c.EventStore)
	}

	if c.EventStore == "memory" && c.IsProduction() {
		return fmt.Errorf("EVENT_STORE=memory is not allowed in production: the event log would not survive a restart")
	}

	if c.IsProduction() {
		if c.AuthJWKSURL == "" && c.JWTSecret == "" {
			return fmt.Errorf("production requires AUTH_JWKS_URL or JWT_SECRET; refusing to start without authentication")
		}
		if c.OracleURL == "" {
			return fmt.Errorf("ORACLE_URL is required in production")
		}
	}

	if c.OracleTimeoutSeconds <= 0 {
		return fmt.Errorf("ORACLE_TIMEOUT_SECONDS must be positive, got %d", c.OracleTimeoutSeconds)
	}
	if c.OracleMaxRetries < 0 {
		return fmt.Errorf("ORACLE_MAX_RETRIES must not be negative, got %d", c.OracleMaxRetries)
	}

	// TLS validation: when TLS is enabled, cert and key files must be specified.
	if c.TLSEnabled {
		if c.TLSCertFile == "" {
			return fmt.Errorf("TLS_CERT_FILE is required when TLS_ENABLED is true")
		}
		if c.TLSKeyFile == "" {
			return fmt.Errorf("TLS_KEY_FILE is required when TLS_ENABLED is true")
		}
	}

	return nil
}
