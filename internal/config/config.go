package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// SeedAccount is one account slot provisioned at startup. A slot missing
// either the email or the password is skipped entirely.
type SeedAccount struct {
	Email    string
	Password string
	FullName string
}

type Config struct {
	HTTPPort    string
	DatabaseURL string
	LogLevel    string
	JWTSecret   string

	ChatProvider  string // "openai" or "gemini"
	ChatModel     string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	GeminiAPIKey  string
	LLMTimeout    time.Duration

	AllowSignup  bool
	SeedAccounts []SeedAccount
}

var AppConfig Config

const seedAccountSlots = 2

func LoadConfig() {
	err := godotenv.Load() // Load .env file if it exists
	if err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	// The secrets file wins over the process environment, so deployment
	// secrets are always checked first.
	if secretsFile := getEnv("SECRETS_FILE", ""); secretsFile != "" {
		if err := godotenv.Overload(secretsFile); err != nil {
			log.Printf("Could not load secrets file %s: %v", secretsFile, err)
		}
	}

	AppConfig = Config{
		HTTPPort:    getEnv("HTTP_PORT", "8080"),
		DatabaseURL: getEnv("DATABASE_URL", "claire_app.db"),
		LogLevel:    getEnv("LOG_LEVEL", "INFO"),
		JWTSecret:   getEnv("JWT_SECRET", ""),

		ChatProvider:  getEnv("CHAT_PROVIDER", "openai"),
		ChatModel:     getEnv("CHAT_MODEL", ""),
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1/chat/completions"),
		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		LLMTimeout:    time.Duration(getEnvAsInt("LLM_TIMEOUT_SECONDS", 60)) * time.Second,

		AllowSignup:  getEnvAsBool("ALLOW_SIGNUP", true),
		SeedAccounts: loadSeedAccounts(),
	}

	if AppConfig.JWTSecret == "" {
		log.Fatal("JWT_SECRET environment variable is required")
	}

	// API keys are not validated here; a missing key surfaces as an error
	// on the first completion call.
}

func loadSeedAccounts() []SeedAccount {
	var accounts []SeedAccount
	for i := 1; i <= seedAccountSlots; i++ {
		prefix := fmt.Sprintf("SEED_ACCOUNT%d_", i)
		account := SeedAccount{
			Email:    getEnv(prefix+"EMAIL", ""),
			Password: getEnv(prefix+"PASSWORD", ""),
			FullName: getEnv(prefix+"NAME", ""),
		}
		if account.Email == "" || account.Password == "" {
			continue
		}
		accounts = append(accounts, account)
	}
	return accounts
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}
