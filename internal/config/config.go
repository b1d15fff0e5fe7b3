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
	Redash RedashConfig
	Ai     AIConfig
	Agent  AgentConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
}

type RedashConfig struct {
	BaseURL             string
	APIKey              string
	DefaultDataSourceID int
	PollInterval        time.Duration
	PollMaxWait         time.Duration
}

type AIConfig struct {
	LLMProvider   string // "ollama" or "huggingface"
	LLMModel      string // e.g. "llama3", "qwen2.5"
	OllamaBaseURL string
	HuggingFace   string
}

type AgentConfig struct {
	SchemaCacheTTL time.Duration
	ResultCacheTTL time.Duration
	MaxHistory     int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		},
		Redash: RedashConfig{
			BaseURL:             getEnv("REDASH_BASE_URL", "http://localhost:5000"),
			APIKey:              getEnv("REDASH_API_KEY", ""),
			DefaultDataSourceID: getEnvAsInt("REDASH_DEFAULT_DATA_SOURCE_ID", 1),
			PollInterval:        getEnvAsDuration("REDASH_POLL_INTERVAL", time.Second),
			PollMaxWait:         getEnvAsDuration("REDASH_POLL_MAX_WAIT", 30*time.Second),
		},
		Ai: AIConfig{
			LLMProvider:   getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:      getEnv("LLM_MODEL", "llama3"),
			OllamaBaseURL: getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			HuggingFace:   getEnv("HUGGINGFACE_API_KEY", ""),
		},
		Agent: AgentConfig{
			SchemaCacheTTL: getEnvAsDuration("SCHEMA_CACHE_TTL", time.Hour),
			ResultCacheTTL: getEnvAsDuration("RESULT_CACHE_TTL", 5*time.Minute),
			MaxHistory:     getEnvAsInt("SESSION_MAX_HISTORY", 10),
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

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
