package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"medibook/models"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Document store: "mongo", "firestore" or "redis".
	StoreBackend   string `mapstructure:"STORE_BACKEND"`
	DatabaseURL    string `mapstructure:"DATABASE_URL"`
	DatabaseName   string `mapstructure:"DATABASE_NAME"`
	TxnMaxAttempts int    `mapstructure:"TXN_MAX_ATTEMPTS"`

	// Redis configuration.
	RedisAddr            string        `mapstructure:"REDIS_ADDR"`
	RedisPassword        string        `mapstructure:"REDIS_PASSWORD"`
	RedisStoreDB         int           `mapstructure:"REDIS_STORE_DB"`
	RedisCacheDB         int           `mapstructure:"REDIS_CACHE_DB"`
	AvailabilityCacheTTL time.Duration `mapstructure:"AVAILABILITY_CACHE_TTL"`

	// Identity: "firebase" verifies Firebase ID tokens, "jwt" verifies HS256 tokens.
	AuthProvider            string `mapstructure:"AUTH_PROVIDER"`
	JWTSecret               string `mapstructure:"JWT_SECRET"`
	FirebaseCredentialsFile string `mapstructure:"FIREBASE_CREDENTIALS_FILE"`
	FirebaseProjectID       string `mapstructure:"FIREBASE_PROJECT_ID"`

	AppointmentTypes []models.AppointmentType `mapstructure:"APPOINTMENT_TYPES"`
}

var AppConfig Config

// Load reads configuration from an optional config.yaml and the environment.
// An empty path searches "." and "./config".
func Load(path string) (Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		// Look for a config file named "config.yaml" in the current and "config" directory.
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	// Automatically use environment variables where available.
	v.AutomaticEnv()

	// Set default values.
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("MAX_REQUESTS_PER_MIN", 200)
	v.SetDefault("STORE_BACKEND", "mongo")
	v.SetDefault("DATABASE_URL", "mongodb://localhost:27017/?replicaSet=rs0")
	v.SetDefault("DATABASE_NAME", "medibook")
	v.SetDefault("TXN_MAX_ATTEMPTS", 10)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_STORE_DB", 0)
	v.SetDefault("REDIS_CACHE_DB", 1)
	v.SetDefault("AVAILABILITY_CACHE_TTL", 30*time.Second)
	v.SetDefault("AUTH_PROVIDER", "jwt")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("FIREBASE_CREDENTIALS_FILE", "")
	v.SetDefault("FIREBASE_PROJECT_ID", "")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		log.Println("No config file found, using environment variables only")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	if len(cfg.AppointmentTypes) == 0 {
		cfg.AppointmentTypes = models.DefaultAppointmentTypes
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig populates AppConfig, exiting the process on failure.
func LoadConfig() {
	cfg, err := Load("")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	AppConfig = cfg
}

// Validate rejects combinations the service cannot start with.
func (c Config) Validate() error {
	switch strings.ToLower(c.StoreBackend) {
	case "mongo", "firestore", "redis":
	default:
		return fmt.Errorf("unsupported STORE_BACKEND %q", c.StoreBackend)
	}
	switch strings.ToLower(c.AuthProvider) {
	case "firebase":
		if c.FirebaseCredentialsFile == "" && c.FirebaseProjectID == "" {
			return fmt.Errorf("AUTH_PROVIDER=firebase requires FIREBASE_CREDENTIALS_FILE or FIREBASE_PROJECT_ID")
		}
	case "jwt":
		if c.JWTSecret == "" && c.IsProduction() {
			return fmt.Errorf("JWT_SECRET must be set in production")
		}
	default:
		return fmt.Errorf("unsupported AUTH_PROVIDER %q", c.AuthProvider)
	}
	if strings.EqualFold(c.StoreBackend, "firestore") && c.FirebaseCredentialsFile == "" && c.FirebaseProjectID == "" {
		return fmt.Errorf("STORE_BACKEND=firestore requires FIREBASE_CREDENTIALS_FILE or FIREBASE_PROJECT_ID")
	}
	if c.TxnMaxAttempts < 1 {
		return fmt.Errorf("TXN_MAX_ATTEMPTS must be at least 1")
	}
	for _, t := range c.AppointmentTypes {
		if t.Code == "" || t.DurationMinutes <= 0 || t.Price < 0 {
			return fmt.Errorf("invalid appointment type %+v", t)
		}
		if t.DurationMinutes%models.SlotQuantumMinutes != 0 {
			return fmt.Errorf("appointment type %q: duration %d is not a multiple of %d minutes", t.Code, t.DurationMinutes, models.SlotQuantumMinutes)
		}
	}
	return nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}
