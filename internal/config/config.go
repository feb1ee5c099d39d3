// Package config provides environment configuration for the API server and
// the terminal client.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/chadn/ai-chatbot-meetings/internal/calendar"
	"github.com/chadn/ai-chatbot-meetings/internal/llm"
	"github.com/chadn/ai-chatbot-meetings/internal/service"
	"github.com/chadn/ai-chatbot-meetings/internal/timeconv"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	CORSOrigins        []string

	// Model settings
	OpenAIAPIKey  string
	OpenAIBaseURL string
	ModelName     string
	MaxTokens     int
	Temperature   float64

	// Cal.com settings
	CalcomAPIKey            string
	CalcomBaseURL           string
	CalcomLanguage          string
	CalcomVersionSlots      string
	CalcomVersionBookings   string
	CalcomVersionEventTypes string

	// Conversation settings
	Timezone           string
	BookingsMaxResults int
	MaxToolTurns       int
	AttendeeName       string
	AttendeeEmail      string

	// NATS settings
	NATSEnabled  bool
	NATSURL      string
	NATSCAFile   string
	NATSCertFile string
	NATSKeyFile  string
	NATSToken    string
	EventsMaxAge time.Duration

	// JWT settings
	JWTSecret string

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Logging
	LogLevel  string
	DebugMode bool

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// Load reads configuration from environment variables. Values from a .env
// file in the working directory fill in variables that are not already set.
func Load() *Config {
	_ = godotenv.Load()

	defaults := service.DefaultChatConfig()

	cfg := &Config{
		// Server
		ServerPort:         getEnv("PORT", "8080"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 180*time.Second),
		CORSOrigins:        getListEnv("CORS_ALLOWED_ORIGINS"),

		// Model
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
		ModelName:     getEnv("OPENAI_MODEL_NAME", defaults.ModelName),
		MaxTokens:     getIntEnv("OPENAI_MAX_TOKENS", defaults.MaxTokens),
		Temperature:   getFloatEnv("OPENAI_TEMPERATURE", defaults.Temperature),

		// Cal.com
		CalcomAPIKey:            getEnv("CALCOM_API_KEY", ""),
		CalcomBaseURL:           getEnv("CALCOM_BASE_URL", calendar.DefaultBaseURL),
		CalcomLanguage:          getEnv("CALCOM_LANGUAGE", calendar.DefaultLanguage),
		CalcomVersionSlots:      getEnv("CALCOM_API_VERSION_SLOTS", calendar.DefaultVersionSlots),
		CalcomVersionBookings:   getEnv("CALCOM_API_VERSION_BOOKINGS", calendar.DefaultVersionBookings),
		CalcomVersionEventTypes: getEnv("CALCOM_API_VERSION_EVENT_TYPES", calendar.DefaultVersionEventTypes),

		// Conversation
		Timezone:           getEnv("DEFAULT_TIMEZONE", defaults.Timezone),
		BookingsMaxResults: getIntEnv("BOOKINGS_MAX_RESULTS", 20),
		MaxToolTurns:       getIntEnv("MAX_TOOL_TURNS", defaults.MaxToolTurns),
		AttendeeName:       getEnv("DEFAULT_ATTENDEE_NAME", defaults.AttendeeName),
		AttendeeEmail:      getEnv("DEFAULT_ATTENDEE_EMAIL", defaults.AttendeeEmail),

		// NATS
		NATSEnabled:  getBoolEnv("NATS_ENABLED", false),
		NATSURL:      getEnv("NATS_URL", "nats://localhost:4222"),
		NATSCAFile:   getEnv("NATS_CA_FILE", ""),
		NATSCertFile: getEnv("NATS_CERT_FILE", ""),
		NATSKeyFile:  getEnv("NATS_KEY_FILE", ""),
		NATSToken:    getEnv("NATS_TOKEN", ""),
		EventsMaxAge: getDurationEnv("NATS_EVENTS_MAX_AGE", 24*time.Hour),

		// JWT
		JWTSecret: getEnv("JWT_SECRET", ""),

		// Rate limiting
		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		DebugMode: getBoolEnv("DEBUG_MODE", false),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
	}

	if cfg.DebugMode {
		cfg.LogLevel = "debug"
	}

	return cfg
}

// Validate checks the settings the core components require.
func (c *Config) Validate() error {
	var errs []error

	if c.OpenAIAPIKey == "" {
		errs = append(errs, errors.New("OPENAI_API_KEY is required"))
	}
	if c.CalcomAPIKey == "" {
		errs = append(errs, errors.New("CALCOM_API_KEY is required"))
	}
	if !llm.IsSupported(c.ModelName) {
		errs = append(errs, fmt.Errorf("OPENAI_MODEL_NAME %q is not supported (choose one of %s)",
			c.ModelName, strings.Join(llm.SupportedModels, ", ")))
	}
	if _, err := timeconv.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("DEFAULT_TIMEZONE: %w", err))
	}
	if c.MaxTokens <= 0 {
		errs = append(errs, errors.New("OPENAI_MAX_TOKENS must be positive"))
	}
	if c.MaxToolTurns < 0 {
		errs = append(errs, errors.New("MAX_TOOL_TURNS must not be negative"))
	}
	if c.BookingsMaxResults < 0 {
		errs = append(errs, errors.New("BOOKINGS_MAX_RESULTS must not be negative"))
	}

	return errors.Join(errs...)
}

// ChatConfig returns the conversation settings.
func (c *Config) ChatConfig() service.ChatConfig {
	return service.ChatConfig{
		ModelName:     c.ModelName,
		MaxTokens:     c.MaxTokens,
		Temperature:   c.Temperature,
		Timezone:      c.Timezone,
		AttendeeName:  c.AttendeeName,
		AttendeeEmail: c.AttendeeEmail,
		MaxToolTurns:  c.MaxToolTurns,
	}
}

// CalendarConfig returns the Cal.com client settings.
func (c *Config) CalendarConfig() calendar.Config {
	return calendar.Config{
		APIKey:            c.CalcomAPIKey,
		BaseURL:           c.CalcomBaseURL,
		Timezone:          c.Timezone,
		Language:          c.CalcomLanguage,
		VersionSlots:      c.CalcomVersionSlots,
		VersionBookings:   c.CalcomVersionBookings,
		VersionEventTypes: c.CalcomVersionEventTypes,
	}
}

// SessionConfig returns the defaults for new sessions.
func (c *Config) SessionConfig() service.SessionConfig {
	return service.SessionConfig{
		Chat:        c.ChatConfig(),
		Calendar:    c.CalendarConfig(),
		MaxBookings: c.BookingsMaxResults,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getListEnv(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
