package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App    AppConfig
	Keys   APIKeys
	Ai     AIConfig
	Upload UploadConfig
	Events EventsConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	UsageLogFilePath   string
	CorsAllowedOrigins string
	BodyLimitMB        int
	PromptsDir         string
	DebugLogDir        string
}

type APIKeys struct {
	GoogleGemini string
}

type AIConfig struct {
	LLMProvider    string // "gemini" or "ollama"
	GeminiModel    string
	GeminiBaseURL  string
	GeminiTimeout  time.Duration
	OllamaBaseURL  string
	WorkerPoolSize int
}

type UploadConfig struct {
	MaxUploadMB      int
	HeartbeatSeconds int
}

type EventsConfig struct {
	NatsURL    string
	UsageTopic string
}

// IsProduction reports whether the server runs in bring-your-own-key mode.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// MaxUploadBytes is the largest PDF accepted by the upload pipeline.
func (c *Config) MaxUploadBytes() int {
	return c.Upload.MaxUploadMB * 1024 * 1024
}

func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.Upload.HeartbeatSeconds) * time.Second
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "8000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			UsageLogFilePath:   getEnv("USAGE_LOG_FILE_PATH", "logs/usage.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173, http://localhost:3000"),
			BodyLimitMB:        getEnvAsInt("BODY_LIMIT_MB", 60),
			PromptsDir:         getEnv("PROMPTS_DIR", "prompts"),
			DebugLogDir:        getEnv("DEBUG_LOG_DIR", "debug"),
		},
		Keys: APIKeys{
			GoogleGemini: getEnv("GOOGLE_API_KEY", ""),
		},
		Ai: AIConfig{
			LLMProvider:    getEnv("LLM_PROVIDER", "gemini"),
			GeminiModel:    getEnv("GEMINI_MODEL", "gemini-3-flash-preview"),
			GeminiBaseURL:  getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
			GeminiTimeout:  time.Duration(getEnvAsInt("GEMINI_TIMEOUT_MS", 30000)) * time.Millisecond,
			OllamaBaseURL:  getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			WorkerPoolSize: getEnvAsInt("AI_WORKER_POOL_SIZE", 4),
		},
		Upload: UploadConfig{
			MaxUploadMB:      getEnvAsInt("MAX_UPLOAD_MB", 50),
			HeartbeatSeconds: getEnvAsInt("SSE_HEARTBEAT_SECONDS", 15),
		},
		Events: EventsConfig{
			NatsURL:    getEnv("NATS_URL", ""),
			UsageTopic: getEnv("USAGE_TOPIC", "nana.usage"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}
