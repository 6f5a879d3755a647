package config

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

func init() {
	// Load .env file if it exists (silently ignore if not found)
	_ = godotenv.Load()
}

type Config struct {
	// HTTP
	HTTPPort     int    `yaml:"port"`
	BaseURL      string `yaml:"base_url"`
	SecureCookie bool   `yaml:"secure_cookie"`
	DevMode      bool   `yaml:"dev_mode"`

	// Storage
	DBPath        string `yaml:"db_path"`
	EncryptionKey string `yaml:"-"`

	// Google
	GoogleCredentialsFile string        `yaml:"google_credentials_file"`
	GoogleCredentialsJSON string        `yaml:"-"`
	CalendarID            string        `yaml:"calendar_id"`
	CalendarTimeout       time.Duration `yaml:"calendar_timeout"`

	// Scheduling
	Timezone string `yaml:"timezone"`

	// Language model
	LLMProvider    string        `yaml:"llm_provider"`
	LLMModel       string        `yaml:"llm_model"`
	LLMTemperature float64       `yaml:"llm_temperature"`
	LLMAPIKey      string        `yaml:"-"`
	LLMBaseURL     string        `yaml:"llm_base_url"`
	LLMTimeout     time.Duration `yaml:"llm_timeout"`

	// Notifications
	ResendAPIKey string `yaml:"-"`
	EmailFrom    string `yaml:"email_from"`

	// Operations
	LogLevel        string `yaml:"log_level"`
	LogFormat       string `yaml:"log_format"`
	CleanupSchedule string `yaml:"cleanup_schedule"`
}

// Default returns the configuration used when neither a config file nor
// environment variables override a setting.
func Default() *Config {
	return &Config{
		HTTPPort:              5000,
		BaseURL:               "http://127.0.0.1:5000",
		DBPath:                "./planner.db",
		GoogleCredentialsFile: "./credentials.json",
		CalendarID:            "primary",
		CalendarTimeout:       30 * time.Second,
		Timezone:              "Asia/Kolkata",
		LLMProvider:           "groq",
		LLMModel:              "llama-3.3-70b-versatile",
		LLMTemperature:        0.1,
		LLMTimeout:            60 * time.Second,
		LogLevel:              "info",
		LogFormat:             "text",
		CleanupSchedule:       "@hourly",
	}
}

// Load builds the configuration: defaults, then the optional YAML file named
// by PLANNER_CONFIG, then environment variables.
func Load() (*Config, error) {
	cfg := Default()
	if path := os.Getenv("PLANNER_CONFIG"); path != "" {
		if err := cfg.MergeFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.HTTPPort = getEnvAsIntOrDefault("PORT", c.HTTPPort)
	c.BaseURL = getEnvOrDefault("PLANNER_BASE_URL", c.BaseURL)
	c.SecureCookie = getEnvAsBoolOrDefault("PLANNER_SECURE_COOKIE", c.SecureCookie)
	c.DevMode = getEnvAsBoolOrDefault("PLANNER_DEV_MODE", c.DevMode)

	c.DBPath = getEnvOrDefault("PLANNER_DB_PATH", c.DBPath)
	c.EncryptionKey = getEnvOrDefault("PLANNER_ENCRYPTION_KEY", c.EncryptionKey)

	c.GoogleCredentialsFile = getEnvOrDefault("GOOGLE_CREDENTIALS_FILE", c.GoogleCredentialsFile)
	c.GoogleCredentialsJSON = getEnvOrDefault("GOOGLE_CREDENTIALS_JSON", c.GoogleCredentialsJSON)
	c.CalendarID = getEnvOrDefault("PLANNER_CALENDAR_ID", c.CalendarID)
	c.CalendarTimeout = getEnvAsDurationOrDefault("PLANNER_CALENDAR_TIMEOUT", c.CalendarTimeout)

	c.Timezone = getEnvOrDefault("PLANNER_TIMEZONE", c.Timezone)

	c.LLMProvider = getEnvOrDefault("PLANNER_LLM_PROVIDER", c.LLMProvider)
	c.LLMModel = getEnvOrDefault("PLANNER_LLM_MODEL", c.LLMModel)
	c.LLMTemperature = getEnvAsFloatOrDefault("PLANNER_LLM_TEMPERATURE", c.LLMTemperature)
	c.LLMBaseURL = getEnvOrDefault("PLANNER_LLM_BASE_URL", c.LLMBaseURL)
	c.LLMTimeout = getEnvAsDurationOrDefault("PLANNER_LLM_TIMEOUT", c.LLMTimeout)
	switch c.LLMProvider {
	case "anthropic":
		c.LLMAPIKey = getEnvOrDefault("ANTHROPIC_API_KEY", c.LLMAPIKey)
	case "openai":
		c.LLMAPIKey = getEnvOrDefault("OPENAI_API_KEY", c.LLMAPIKey)
	default:
		c.LLMAPIKey = getEnvOrDefault("GROQ_API_KEY", c.LLMAPIKey)
	}

	c.ResendAPIKey = getEnvOrDefault("RESEND_API_KEY", c.ResendAPIKey)
	c.EmailFrom = getEnvOrDefault("PLANNER_EMAIL_FROM", c.EmailFrom)

	c.LogLevel = getEnvOrDefault("PLANNER_LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnvOrDefault("PLANNER_LOG_FORMAT", c.LogFormat)
	c.CleanupSchedule = getEnvOrDefault("PLANNER_CLEANUP_SCHEDULE", c.CleanupSchedule)
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid port %d", c.HTTPPort)
	}
	switch c.LLMProvider {
	case "groq", "openai", "anthropic":
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLMProvider)
	}
	return nil
}

// ErrNoEncryptionKey is returned by TokenKey when PLANNER_ENCRYPTION_KEY is
// unset outside dev mode.
var ErrNoEncryptionKey = errors.New("PLANNER_ENCRYPTION_KEY is required unless PLANNER_DEV_MODE is set")

// TokenKey returns the secret that encrypts stored OAuth tokens. In dev mode
// an unset key is derived from fallback, so tokens stay readable across
// restarts as long as fallback does. The bool reports whether it was derived.
func (c *Config) TokenKey(fallback string) (string, bool, error) {
	if c.EncryptionKey != "" {
		return c.EncryptionKey, false, nil
	}
	if !c.DevMode || fallback == "" {
		return "", false, ErrNoEncryptionKey
	}
	sum := sha256.Sum256([]byte("planner-token-key:" + fallback))
	return hex.EncodeToString(sum[:]), true, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
