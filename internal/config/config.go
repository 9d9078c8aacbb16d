package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Env      string
	LogLevel string

	// Remote assistant + scheduling service
	APIBaseURL   string
	APITimeout   time.Duration
	HistoryLimit int

	// Session storage
	StorageBackend string // memory | file | redis
	StoragePath    string
	SessionKey     string
	ContextKey     string
	SessionTTL     time.Duration
	RedisAddr      string
	RedisPassword  string
	RedisTLS       bool

	// Host page configuration (the embedding page's user context)
	UserID   string
	UserName string
	PetName  string
	Source   string

	WelcomeMessage string
	LocalBooking   bool

	DevServerPort     string
	DevAllowedOrigins []string
	MetricsAddr       string
}

// DefaultWelcomeMessage is shown when the assistant service cannot provide a greeting.
const DefaultWelcomeMessage = "Hello! I'm your virtual veterinary assistant. I can help you with pet care questions, vaccination schedules, diet and nutrition advice, and booking vet appointments. How can I help you today?"

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		APIBaseURL:   strings.TrimRight(getEnv("VETBOT_API_BASE_URL", "http://localhost:8089/api"), "/"),
		APITimeout:   getEnvAsDuration("VETBOT_API_TIMEOUT", 30*time.Second),
		HistoryLimit: getEnvAsInt("VETBOT_HISTORY_LIMIT", 50),

		StorageBackend: strings.ToLower(strings.TrimSpace(getEnv("VETBOT_STORAGE", "file"))),
		StoragePath:    getEnv("VETBOT_STORAGE_PATH", defaultStoragePath()),
		SessionKey:     getEnv("VETBOT_SESSION_KEY", "vetbot_session_id"),
		ContextKey:     getEnv("VETBOT_CONTEXT_KEY", "vetbot_context"),
		SessionTTL:     getEnvAsDuration("VETBOT_SESSION_TTL", 0),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisTLS:       getEnvAsBool("REDIS_TLS", false),

		UserID:   getEnv("VETBOT_USER_ID", ""),
		UserName: getEnv("VETBOT_USER_NAME", ""),
		PetName:  getEnv("VETBOT_PET_NAME", ""),
		Source:   getEnv("VETBOT_SOURCE", ""),

		WelcomeMessage: getEnv("VETBOT_WELCOME_MESSAGE", DefaultWelcomeMessage),
		LocalBooking:   getEnvAsBool("VETBOT_LOCAL_BOOKING", true),

		DevServerPort:     getEnv("DEV_SERVER_PORT", "8089"),
		DevAllowedOrigins: getEnvAsList("DEV_ALLOWED_ORIGINS", []string{"http://localhost:*", "http://127.0.0.1:*"}),
		MetricsAddr:       getEnv("METRICS_ADDR", ""),
	}
}

// HasHostContext reports whether the embedding environment supplied any user context.
func (c *Config) HasHostContext() bool {
	return c.UserID != "" || c.UserName != "" || c.PetName != "" || c.Source != ""
}

func defaultStoragePath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return ".vetbot-session.json"
	}
	return dir + string(os.PathSeparator) + "vetbot" + string(os.PathSeparator) + "session.json"
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated variable, dropping blank entries.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
