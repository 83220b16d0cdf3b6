package config

import (
	"context"
	"errors"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

// Storage drivers
const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

// Mail drivers
const (
	MailDriverLog  = "log"
	MailDriverSMTP = "smtp"
)

type Config struct {
	Server   ServerConfig   `env:",prefix=SERVER_"`
	Database DatabaseConfig `env:",prefix=DB_"`
	Postgres PostgresConfig `env:",prefix=POSTGRES_"`
	Mongo    MongoConfig    `env:",prefix=MONGO_"`
	Redis    RedisConfig    `env:",prefix=REDIS_"`
	JWT      JWTConfig      `env:",prefix=JWT_"`
	Auth     AuthConfig     `env:",prefix=AUTH_"`
	Mail     MailConfig     `env:",prefix=MAIL_"`
	Security SecurityConfig `env:",prefix="`
	CORS     CORSConfig     `env:",prefix=CORS_"`
	Env      string         `env:"ENV,default=development"`
}

type ServerConfig struct {
	Port            string   `env:"PORT,default=8080"`
	Host            string   `env:"HOST,default=0.0.0.0"`
	ReadTimeout     Duration `env:"READ_TIMEOUT,default=15s"`
	WriteTimeout    Duration `env:"WRITE_TIMEOUT,default=15s"`
	ShutdownTimeout Duration `env:"SHUTDOWN_TIMEOUT,default=30s"`
}

type DatabaseConfig struct {
	Driver         string `env:"DRIVER,default=postgres"`
	MigrateOnStart bool   `env:"MIGRATE_ON_START,default=true"`
}

type PostgresConfig struct {
	Host     string `env:"HOST,default=localhost"`
	Port     string `env:"PORT,default=5432"`
	User     string `env:"USER,default=school_auth"`
	Password string `env:"PASSWORD,default=school_auth_password"`
	DBName   string `env:"DB,default=school_auth_db"`
	SSLMode  string `env:"SSLMODE,default=disable"`
}

type MongoConfig struct {
	URI            string   `env:"URI,default=mongodb://localhost:27017"`
	Database       string   `env:"DATABASE,default=school_management"`
	ConnectTimeout Duration `env:"CONNECT_TIMEOUT,default=10s"`
}

type RedisConfig struct {
	Host     string `env:"HOST,default=localhost"`
	Port     string `env:"PORT,default=6379"`
	Password string `env:"PASSWORD,default="`
	DB       int    `env:"DB,default=0"`
}

type JWTConfig struct {
	Secret            string   `env:"SECRET,required"`
	AccessTokenExpiry Duration `env:"ACCESS_TOKEN_EXPIRY,default=24h"`
}

type AuthConfig struct {
	SessionTTL         Duration `env:"SESSION_TTL,default=7d"`
	OTPTTL             Duration `env:"OTP_TTL,default=2m"`
	OTPRefLength       int      `env:"OTP_REF_LENGTH,default=6"`
	ConsumeOTPOnVerify bool     `env:"CONSUME_OTP_ON_VERIFY,default=false"`
	ResetTokenTTL      Duration `env:"RESET_TOKEN_TTL,default=2h"`
	ResetTokenLength   int      `env:"RESET_TOKEN_LENGTH,default=40"`
}

type MailConfig struct {
	Driver   string   `env:"DRIVER,default=log"`
	Host     string   `env:"HOST,default="`
	Port     int      `env:"PORT,default=587"`
	Username string   `env:"USERNAME,default="`
	Password string   `env:"PASSWORD,default="`
	From     string   `env:"FROM,default=noreply@school.local"`
	Timeout  Duration `env:"TIMEOUT,default=10s"`
}

type SecurityConfig struct {
	BCryptCost        int      `env:"BCRYPT_COST,default=12"`
	RateLimitRequests int      `env:"RATE_LIMIT_REQUESTS,default=10"`
	RateLimitWindow   Duration `env:"RATE_LIMIT_WINDOW,default=1m"`
}

type CORSConfig struct {
	AllowedOrigins []string `env:"ALLOWED_ORIGINS,default=http://localhost:3000"`
	AllowedMethods []string `env:"ALLOWED_METHODS,default=GET,POST,PUT,DELETE,OPTIONS"`
	AllowedHeaders []string `env:"ALLOWED_HEADERS,default=Content-Type,Authorization"`
}

// DSN returns PostgreSQL connection string
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
}

// Address returns Redis connection address
func (r RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// Load loads configuration from environment variables
func Load(ctx context.Context) (*Config, error) {
	return LoadFrom(ctx, envconfig.OsLookuper())
}

// LoadFrom loads configuration from the given lookuper
func LoadFrom(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var config Config

	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &config,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) validate() error {
	var errs []error

	if len(c.JWT.Secret) < 32 {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least 32 characters long"))
	}

	switch c.Database.Driver {
	case DriverPostgres, DriverMongo, DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be one of postgres, mongo, memory, got %q", c.Database.Driver))
	}

	switch c.Mail.Driver {
	case MailDriverLog:
	case MailDriverSMTP:
		if c.Mail.Host == "" {
			errs = append(errs, fmt.Errorf("MAIL_HOST is required for the smtp mail driver"))
		}
		if c.Mail.Port < 1 || c.Mail.Port > 65535 {
			errs = append(errs, fmt.Errorf("MAIL_PORT must be between 1 and 65535, got %d", c.Mail.Port))
		}
	default:
		errs = append(errs, fmt.Errorf("MAIL_DRIVER must be one of log, smtp, got %q", c.Mail.Driver))
	}

	if c.Auth.OTPRefLength < 4 {
		errs = append(errs, fmt.Errorf("AUTH_OTP_REF_LENGTH must be at least 4"))
	}
	if c.Auth.ResetTokenLength < 16 {
		errs = append(errs, fmt.Errorf("AUTH_RESET_TOKEN_LENGTH must be at least 16"))
	}
	if c.Auth.SessionTTL.Duration <= 0 || c.Auth.OTPTTL.Duration <= 0 || c.Auth.ResetTokenTTL.Duration <= 0 {
		errs = append(errs, fmt.Errorf("AUTH_ durations must be positive"))
	}

	return errors.Join(errs...)
}
