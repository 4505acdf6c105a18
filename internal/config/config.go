package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr    string
	VisionBackend string

	GeminiAPIKey     string
	GeminiModel      string
	GeminiBaseURL    string
	GeminiAPIVersion string

	OllamaHost   string
	OllamaModel  string
	ClaudeAPIKey string
	ClaudeModel  string

	CameraModel   string
	CameraSystem  string
	GuideLanguage string

	MaxUploadBytes int64
	HTTPTimeout    time.Duration
	PreferIPv4     bool
	SessionTTL     time.Duration
	MaxSessions    int

	LogLevel string
	LogFile  string
}

// Load reads the configuration from the environment. Values from a .env file
// in the working directory fill in variables that are not already set.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ListenAddr:       getEnv("LISTEN_ADDR", ":8080"),
		VisionBackend:    strings.ToLower(getEnv("VISION_BACKEND", "gemini")),
		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		GeminiModel:      getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiBaseURL:    getEnv("GEMINI_BASE_URL", ""),
		GeminiAPIVersion: getEnv("GEMINI_API_VERSION", "v1beta"),
		OllamaHost:       getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OllamaModel:      getEnv("OLLAMA_MODEL", "llava"),
		ClaudeAPIKey:     getEnv("CLAUDE_API_KEY", ""),
		ClaudeModel:      getEnv("CLAUDE_MODEL", "claude-opus-4-6"),
		CameraModel:      getEnv("CAMERA_MODEL", "Canon EOS R50"),
		CameraSystem:     getEnv("CAMERA_SYSTEM", "APS-C, RF-S mount"),
		GuideLanguage:    getEnv("GUIDE_LANGUAGE", "English"),
		MaxUploadBytes:   int64(getEnvInt("MAX_UPLOAD_BYTES", 50<<20)),
		HTTPTimeout:      time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 180)) * time.Second,
		PreferIPv4:       getEnvBool("PREFER_IPV4", true),
		SessionTTL:       time.Duration(getEnvInt("SESSION_TTL_MINUTES", 60)) * time.Minute,
		MaxSessions:      getEnvInt("MAX_SESSIONS", 1000),
		LogLevel:         strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFile:          getEnv("LOG_FILE", ""),
	}
}

// Validate reports settings the selected backend cannot run without.
func (c *Config) Validate() error {
	switch c.VisionBackend {
	case "gemini":
		if c.GeminiAPIKey == "" {
			return errors.New("GEMINI_API_KEY is required when VISION_BACKEND=gemini")
		}
	case "claude":
		if c.ClaudeAPIKey == "" {
			return errors.New("CLAUDE_API_KEY is required when VISION_BACKEND=claude")
		}
	case "ollama":
	default:
		return fmt.Errorf("unknown VISION_BACKEND %q", c.VisionBackend)
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("MAX_UPLOAD_BYTES must be positive")
	}
	if c.MaxSessions <= 0 {
		return errors.New("MAX_SESSIONS must be positive")
	}
	if c.HTTPTimeout <= 0 {
		return errors.New("HTTP_TIMEOUT_SECONDS must be positive")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return strings.TrimSpace(val)
	}
	return defaultVal
}

func getEnvInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
