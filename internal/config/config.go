package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Migrations MigrationsConfig
	Redis      RedisConfig
	RateLimit  RateLimitConfig
	Kafka      KafkaConfig
	Auth       AuthConfig
	Metrics    MetricsConfig
	QR         QRConfig
	Log        LogConfig
}

type ServerConfig struct {
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Driver       string // postgres or sqlite
	DSN          string
	Host         string
	Port         string
	Username     string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
	ConnRetries  int
}

type MigrationsConfig struct {
	Dir         string
	AutoMigrate bool
	// TargetVersion pins the schema; 0 means latest
	TargetVersion uint
}

type RedisConfig struct {
	Addr    string
	Enabled bool
}

type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
}

type KafkaConfig struct {
	Brokers []string
	Enabled bool
	Topics  TopicConfig
}

type TopicConfig struct {
	PassCreated string
	PassDeleted string
}

type AuthConfig struct {
	Mode       string // none, oidc or hmac
	OIDCIssuer string
	JWTSecret  string
	// client credentials the console uses against OIDCIssuer
	ClientID     string
	ClientSecret string
}

type MetricsConfig struct {
	Timezone            string
	WeekStart           time.Weekday
	HourlyDistribution  bool
	WeekdayDistribution bool
}

type QRConfig struct {
	SecretKey string
	Size      int
}

type LogConfig struct {
	Level   string
	Dir     string
	Service string
}

// ConsoleConfig drives cmd/pass-console
type ConsoleConfig struct {
	APIURL          string
	Token           string
	RefreshInterval time.Duration
	EventsGroup     string
	Auth            AuthConfig
	Kafka           KafkaConfig
	Log             LogConfig
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", ":8080"),
			ReadTimeout:    getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:    getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		},
		Database: DatabaseConfig{
			Driver:       strings.ToLower(getEnv("DB_DRIVER", "postgres")),
			DSN:          os.Getenv("DATABASE_URL"),
			Host:         os.Getenv("DB_HOST"),
			Port:         getEnv("DB_PORT", "5432"),
			Username:     os.Getenv("DB_USERNAME"),
			Password:     os.Getenv("DB_PASSWORD"),
			Database:     getEnv("DB_NAME", "gatepass"),
			SSLMode:      getEnv("DB_SSLMODE", "require"),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  time.Duration(getEnvInt("DB_MAX_LIFETIME_MINUTES", 5)) * time.Minute,
			ConnRetries:  getEnvInt("DB_CONNECT_RETRIES", 5),
		},
		Migrations: MigrationsConfig{
			Dir:           getEnv("MIGRATIONS_DIR", "./migrations"),
			AutoMigrate:   getEnvBool("AUTO_MIGRATE", true),
			TargetVersion: uint(getEnvInt("MIGRATIONS_TARGET_VERSION", 0)),
		},
		Redis: RedisConfig{
			Addr:    getEnv("REDIS_ADDR", "localhost:6379"),
			Enabled: getEnvBool("REDIS_ENABLED", false),
		},
		RateLimit: RateLimitConfig{
			Enabled:        getEnvBool("RATE_LIMIT_ENABLED", true),
			Capacity:       getEnvInt("RATE_LIMIT_CAPACITY", 20),
			RefillTokens:   getEnvInt("RATE_LIMIT_REFILL_TOKENS", 1),
			RefillInterval: getEnvDuration("RATE_LIMIT_REFILL_INTERVAL", 3*time.Second),
			TTL:            getEnvDuration("RATE_LIMIT_TTL", 10*time.Minute),
		},
		Kafka: loadKafka(),
		Auth: loadAuth(),
		Metrics: MetricsConfig{
			Timezone:            getEnv("APP_TIMEZONE", "Local"),
			WeekStart:           time.Weekday(getEnvInt("METRICS_WEEK_START", int(time.Sunday)) % 7),
			HourlyDistribution:  getEnvBool("METRICS_HOURLY_DISTRIBUTION", false),
			WeekdayDistribution: getEnvBool("METRICS_WEEKDAY_DISTRIBUTION", false),
		},
		QR: QRConfig{
			SecretKey: os.Getenv("QR_SECRET_KEY"),
			Size:      getEnvInt("QR_SIZE", 256),
		},
		Log: LogConfig{
			Level:   strings.ToUpper(getEnv("LOG_LEVEL", "INFO")),
			Dir:     getEnv("LOG_DIR", "logs"),
			Service: getEnv("SERVICE_NAME", "gatepass"),
		},
	}
}

// LoadConsole reads the console settings; the API URL defaults to a local server
func LoadConsole() *ConsoleConfig {
	return &ConsoleConfig{
		APIURL:          getEnv("GATEPASS_API_URL", "http://localhost:8080"),
		Token:           os.Getenv("GATEPASS_TOKEN"),
		RefreshInterval: getEnvDuration("DASHBOARD_REFRESH_INTERVAL", 5*time.Minute),
		EventsGroup:     getEnv("KAFKA_EVENTS_GROUP", "pass-console"),
		Auth:            loadAuth(),
		Kafka:           loadKafka(),
		Log: LogConfig{
			Level:   strings.ToUpper(getEnv("LOG_LEVEL", "INFO")),
			Service: "pass-console",
		},
	}
}

func loadAuth() AuthConfig {
	return AuthConfig{
		Mode:         strings.ToLower(getEnv("AUTH_MODE", "none")),
		OIDCIssuer:   os.Getenv("OIDC_ISSUER"),
		JWTSecret:    os.Getenv("AUTH_JWT_SECRET"),
		ClientID:     os.Getenv("OIDC_CLIENT_ID"),
		ClientSecret: os.Getenv("OIDC_CLIENT_SECRET"),
	}
}

func loadKafka() KafkaConfig {
	return KafkaConfig{
		Brokers: getEnvList("KAFKA_BROKERS", []string{"localhost:9092"}),
		Enabled: getEnvBool("KAFKA_ENABLED", false),
		Topics: TopicConfig{
			PassCreated: getEnv("KAFKA_TOPIC_PASS_CREATED", "visitor.pass.created"),
			PassDeleted: getEnv("KAFKA_TOPIC_PASS_DELETED", "visitor.pass.deleted"),
		},
	}
}

// Validate reports settings that would make the service unusable
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres":
		if c.Database.DSN == "" && c.Database.Host == "" {
			return fmt.Errorf("DATABASE_URL or DB_HOST must be set for the postgres driver")
		}
	case "sqlite":
		if c.Database.DSN == "" {
			return fmt.Errorf("DATABASE_URL must be set for the sqlite driver")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}

	switch c.Auth.Mode {
	case "none":
	case "oidc":
		if c.Auth.OIDCIssuer == "" {
			return fmt.Errorf("OIDC_ISSUER must be set when AUTH_MODE=oidc")
		}
	case "hmac":
		if c.Auth.JWTSecret == "" {
			return fmt.Errorf("AUTH_JWT_SECRET must be set when AUTH_MODE=hmac")
		}
	default:
		return fmt.Errorf("unsupported AUTH_MODE %q", c.Auth.Mode)
	}

	if c.QR.SecretKey == "" {
		return fmt.Errorf("QR_SECRET_KEY must be set")
	}
	return nil
}

// PostgresDSN builds the connection string from DATABASE_URL or the DB_* parts
func (d DatabaseConfig) PostgresDSN() string {
	if d.DSN != "" {
		return d.DSN
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.Username, d.Password, d.Host, d.Port, d.Database, d.SSLMode)
}

// Location resolves the configured time zone, falling back to the process zone
func (m MetricsConfig) Location() *time.Location {
	if m.Timezone == "" || m.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(m.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
