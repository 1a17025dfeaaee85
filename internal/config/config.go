package config

import (
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Credential provider modes
const (
	ProviderDatabase = "database"
	ProviderStatic   = "static"
)

// Access token strategies
const (
	TokenStrategyPaseto = "paseto"
	TokenStrategyJWT    = "jwt"
)

// Email transports
const (
	TransportSMTP  = "smtp"
	TransportKafka = "kafka"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Email    EmailConfig
	Metrics  MetricsConfig
}

type ServerConfig struct {
	Port            string
	Env             string // dev or prod
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	TrustedOrigins  []string // CORS allowed origins for cookie auth
	// TrustedProxies are the addresses or CIDRs whose forwarded headers are
	// believed; empty means the peer address is always the client
	TrustedProxies []string
}

type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	ChannelBinding string // "require" for Neon DB, empty for local
	AutoMigrate    bool
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type AuthConfig struct {
	// Provider selects where credentials are checked: "database" or "static"
	Provider string
	// StaticCredentialsFile is the YAML file read when Provider is "static"
	StaticCredentialsFile string

	// TokenStrategy selects the access token format: "paseto" or "jwt"
	TokenStrategy string
	// TokenKey is the symmetric key for access tokens (must be 32 bytes)
	TokenKey            []byte
	AccessTokenDuration time.Duration

	VerificationTokenTTL time.Duration
	ResetTokenTTL        time.Duration
	SessionTTL           time.Duration
}

type EmailConfig struct {
	Transport string // smtp or kafka

	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPassword string
	FromEmail    string
	AppName      string
	BaseURL      string // Frontend URL for verification and reset links
	SendTimeout  time.Duration

	KafkaBroker   string
	KafkaTopic    string
	KafkaUsername string
	KafkaPassword string
}

type MetricsConfig struct {
	Enabled bool
}

// Load reads configuration from environment variables
// Call godotenv.Load() before this if using .env file
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			Env:             getEnv("APP_ENV", "dev"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 15*time.Second),
			TrustedOrigins:  getSliceEnv("TRUSTED_ORIGINS", []string{"http://localhost:8501"}),
			TrustedProxies:  getSliceEnv("SERVER_TRUSTED_PROXIES", nil),
		},
		Database: DatabaseConfig{
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnv("DB_PORT", "5432"),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", "postgres"),
			DBName:         getEnv("DB_NAME", "ai_data_assistant"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			ChannelBinding: getEnv("DB_CHANNEL_BINDING", ""),
			AutoMigrate:    getBoolEnv("DB_AUTO_MIGRATE", false),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		Auth: AuthConfig{
			Provider:              getEnv("AUTH_PROVIDER", ProviderDatabase),
			StaticCredentialsFile: getEnv("AUTH_STATIC_CREDENTIALS_FILE", "credentials.yaml"),
			TokenStrategy:         getEnv("AUTH_TOKEN_STRATEGY", TokenStrategyPaseto),
			TokenKey:              []byte(getEnv("AUTH_TOKEN_KEY", "")),
			AccessTokenDuration:   getDurationEnv("ACCESS_TOKEN_DURATION", 15*time.Minute),
			VerificationTokenTTL:  getDurationEnv("VERIFICATION_TOKEN_TTL", 24*time.Hour),
			ResetTokenTTL:         getDurationEnv("RESET_TOKEN_TTL", time.Hour),
			SessionTTL:            getDurationEnv("SESSION_TTL", 30*24*time.Hour),
		},
		Email: EmailConfig{
			Transport:     getEnv("EMAIL_TRANSPORT", TransportSMTP),
			SMTPHost:      getEnv("SMTP_HOST", "smtp.gmail.com"),
			SMTPPort:      getEnv("SMTP_PORT", "587"),
			SMTPUser:      getEnv("SMTP_USER", ""),
			SMTPPassword:  getEnv("SMTP_PASS", ""),
			FromEmail:     getEnv("FROM_EMAIL", ""),
			AppName:       getEnv("APP_NAME", "AI Data Assistant"),
			BaseURL:       strings.TrimRight(getEnv("APP_URL", "http://localhost:8501"), "/"),
			SendTimeout:   getDurationEnv("EMAIL_SEND_TIMEOUT", 10*time.Second),
			KafkaBroker:   getEnv("KAFKA_BROKER", "localhost:9092"),
			KafkaTopic:    getEnv("KAFKA_EMAIL_TOPIC", "auth.emails"),
			KafkaUsername: getEnv("KAFKA_USERNAME", ""),
			KafkaPassword: getEnv("KAFKA_PASSWORD", ""),
		},
		Metrics: MetricsConfig{
			Enabled: getBoolEnv("METRICS_ENABLED", true),
		},
	}

	if cfg.Email.FromEmail == "" {
		cfg.Email.FromEmail = cfg.Email.SMTPUser
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks values that have no usable fallback
func (c *Config) Validate() error {
	// Both PASETO v4.local and HS256 use the same 32 byte key
	if len(c.Auth.TokenKey) != 32 {
		return fmt.Errorf("AUTH_TOKEN_KEY must be exactly 32 bytes, got %d", len(c.Auth.TokenKey))
	}

	if _, err := c.Server.TrustedProxyPrefixes(); err != nil {
		return err
	}

	switch c.Auth.Provider {
	case ProviderDatabase, ProviderStatic:
	default:
		return fmt.Errorf("AUTH_PROVIDER must be %q or %q, got %q", ProviderDatabase, ProviderStatic, c.Auth.Provider)
	}

	switch c.Auth.TokenStrategy {
	case TokenStrategyPaseto, TokenStrategyJWT:
	default:
		return fmt.Errorf("AUTH_TOKEN_STRATEGY must be %q or %q, got %q", TokenStrategyPaseto, TokenStrategyJWT, c.Auth.TokenStrategy)
	}

	switch c.Email.Transport {
	case TransportSMTP, TransportKafka:
	default:
		return fmt.Errorf("EMAIL_TRANSPORT must be %q or %q, got %q", TransportSMTP, TransportKafka, c.Email.Transport)
	}

	return nil
}

func (c *DatabaseConfig) ConnectionString() string {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)

	// Add channel_binding if configured (required for Neon DB)
	if c.ChannelBinding != "" {
		connStr += fmt.Sprintf(" channel_binding=%s", c.ChannelBinding)
	}

	return connStr
}

// Address returns Redis connection address (host:port)
func (c *RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// TrustedProxyPrefixes parses TrustedProxies. A bare address is a single-host prefix.
func (c *ServerConfig) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(c.TrustedProxies))
	for _, value := range c.TrustedProxies {
		if strings.Contains(value, "/") {
			prefix, err := netip.ParsePrefix(value)
			if err != nil {
				return nil, fmt.Errorf("SERVER_TRUSTED_PROXIES: invalid CIDR %q: %w", value, err)
			}
			prefixes = append(prefixes, prefix.Masked())
			continue
		}

		addr, err := netip.ParseAddr(value)
		if err != nil {
			return nil, fmt.Errorf("SERVER_TRUSTED_PROXIES: invalid address %q: %w", value, err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

// IsDevelopment returns true if the environment is set to dev
func (c *ServerConfig) IsDevelopment() bool {
	return c.Env == "dev"
}

// UsesDatabase reports whether the configured provider needs postgres
func (c *AuthConfig) UsesDatabase() bool {
	return c.Provider == ProviderDatabase
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return boolValue
}

// getDurationEnv reads a number of seconds
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	seconds, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return time.Duration(seconds) * time.Second
}

func getSliceEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Split by comma and trim whitespace
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	if len(result) == 0 {
		return defaultValue
	}

	return result
}
