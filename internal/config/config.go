package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"member-accounts/internal/domain"
)

const (
	KeyStorePostgres = "postgres"
	KeyStoreRedis    = "redis"

	AccountNumberRandom = "random"
	AccountNumberSeed   = "seed"
)

// Config stores all configuration for the service.
type Config struct {
	DBHost     string `mapstructure:"DB_HOST"`
	DBPort     string `mapstructure:"DB_PORT"`
	DBUser     string `mapstructure:"DB_USER"`
	DBPassword string `mapstructure:"DB_PASSWORD"`
	DBName     string `mapstructure:"DB_NAME"`
	DBSSLMode  string `mapstructure:"DB_SSLMODE"`
	ServerPort string `mapstructure:"SERVER_PORT"`
	LogLevel   string `mapstructure:"LOG_LEVEL"`

	JWTSecret string `mapstructure:"JWT_SECRET"`

	RSAKeyBits          int                 `mapstructure:"RSA_KEY_BITS"`
	KeyStore            string              `mapstructure:"KEY_STORE"`
	KeyRetention        domain.KeyRetention `mapstructure:"KEY_RETENTION"`
	AccountNumberSource string              `mapstructure:"ACCOUNT_NUMBER_SOURCE"`
	AccountNumberSeed   string              `mapstructure:"ACCOUNT_NUMBER_SEED"`
	BcryptCost          int                 `mapstructure:"BCRYPT_COST"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	RabbitMQURL           string `mapstructure:"RABBITMQ_URL"`
	AccountEventsExchange string `mapstructure:"ACCOUNT_EVENTS_EXCHANGE"`

	FCMCredentialsFile string `mapstructure:"FCM_CREDENTIALS_FILE"`
	FCMProjectID       string `mapstructure:"FCM_PROJECT_ID"`
}

var keys = []string{
	"DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SSLMODE",
	"SERVER_PORT", "LOG_LEVEL", "JWT_SECRET",
	"RSA_KEY_BITS", "KEY_STORE", "KEY_RETENTION", "ACCOUNT_NUMBER_SOURCE", "ACCOUNT_NUMBER_SEED", "BCRYPT_COST",
	"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
	"RABBITMQ_URL", "ACCOUNT_EVENTS_EXCHANGE",
	"FCM_CREDENTIALS_FILE", "FCM_PROJECT_ID",
}

// Load reads configuration from the environment and an optional .env file in path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName(".env")
	v.SetConfigType("env")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "password")
	v.SetDefault("DB_NAME", "member_accounts")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("RSA_KEY_BITS", 2048)
	v.SetDefault("KEY_STORE", KeyStorePostgres)
	v.SetDefault("KEY_RETENTION", string(domain.KeyRetentionRetain))
	v.SetDefault("ACCOUNT_NUMBER_SOURCE", AccountNumberRandom)
	v.SetDefault("ACCOUNT_NUMBER_SEED", "1234567891010")
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("ACCOUNT_EVENTS_EXCHANGE", "account_events")

	// Bind explicitly so Unmarshal sees variables that only exist in the environment.
	for _, key := range keys {
		_ = v.BindEnv(key)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("Error reading config file", "error", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.KeyStore {
	case KeyStorePostgres, KeyStoreRedis:
	default:
		return fmt.Errorf("KEY_STORE must be %q or %q, got %q", KeyStorePostgres, KeyStoreRedis, c.KeyStore)
	}

	switch c.KeyRetention {
	case domain.KeyRetentionRetain, domain.KeyRetentionCascade:
	default:
		return fmt.Errorf("KEY_RETENTION must be %q or %q, got %q", domain.KeyRetentionRetain, domain.KeyRetentionCascade, c.KeyRetention)
	}

	switch c.AccountNumberSource {
	case AccountNumberRandom, AccountNumberSeed:
	default:
		return fmt.Errorf("ACCOUNT_NUMBER_SOURCE must be %q or %q, got %q", AccountNumberRandom, AccountNumberSeed, c.AccountNumberSource)
	}

	if c.RSAKeyBits < 1024 {
		return fmt.Errorf("RSA_KEY_BITS must be at least 1024, got %d", c.RSAKeyBits)
	}

	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("BCRYPT_COST must be between %d and %d, got %d", bcrypt.MinCost, bcrypt.MaxCost, c.BcryptCost)
	}

	if c.AccountNumberSource == AccountNumberSeed {
		// PKCS#1 v1.5 padding takes 11 bytes of each RSA block.
		limit := c.RSAKeyBits/8 - 11
		if c.AccountNumberSeed == "" || len(c.AccountNumberSeed) > limit {
			return fmt.Errorf("ACCOUNT_NUMBER_SEED must be 1 to %d bytes for %d-bit keys, got %d", limit, c.RSAKeyBits, len(c.AccountNumberSeed))
		}
	}

	return nil
}

func (c *Config) GetDBConnectionString() string {
	sslMode := c.DBSSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, sslMode)
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
