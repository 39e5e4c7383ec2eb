package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr   string
	DBPath       string
	LLMBackend   string
	GeminiAPIKey string
	GeminiModel  string
	ClaudeAPIKey string
	ClaudeModel  string
	OllamaHost   string
	OllamaModel  string
	TavilyAPIKey string
	MaxFollowups int
	PromptFile   string
	PhotoBackend string
	PhotoPath    string
	S3Bucket     string
	S3Region     string
	S3Prefix     string
	LogLevel     string
	LogFile      string
	TestMode     bool
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment")
	}

	return &Config{
		ListenAddr:   getEnv("LISTEN_ADDR", ":8080"),
		DBPath:       getEnv("DB_PATH", ":memory:"),
		LLMBackend:   getEnv("LLM_BACKEND", "gemini"),
		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-1.5-pro-latest"),
		ClaudeAPIKey: getEnv("CLAUDE_API_KEY", ""),
		ClaudeModel:  getEnv("CLAUDE_MODEL", "claude-opus-4-6"),
		OllamaHost:   getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OllamaModel:  getEnv("OLLAMA_MODEL", "llava"),
		TavilyAPIKey: getEnv("TAVILY_API_KEY", ""),
		MaxFollowups: getEnvInt("MAX_FOLLOWUPS", 1),
		PromptFile:   getEnv("PROMPT_FILE", ""),
		PhotoBackend: getEnv("PHOTO_BACKEND", "memory"),
		PhotoPath:    getEnv("PHOTO_LOCAL_PATH", "/data/photos"),
		S3Bucket:     getEnv("S3_BUCKET", ""),
		S3Region:     getEnv("S3_REGION", ""),
		S3Prefix:     getEnv("S3_PREFIX", "meal-photos"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFile:      getEnv("LOG_FILE", ""),
		TestMode:     os.Getenv("PLATELENS_TEST_MODE") == "1",
	}
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	val, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		log.Printf("invalid %s=%q, using %d", key, val, defaultVal)
		return defaultVal
	}
	return n
}
