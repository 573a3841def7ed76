package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	JWT        JWTConfig
	Push       PushConfig
	Cloudinary CloudinaryConfig
	RabbitMQ   RabbitMQConfig
	Admin      AdminConfig
	Assignment AssignmentConfig
}

type ServerConfig struct {
	Port           string
	GinMode        string
	Env            string
	AllowedOrigins []string
}

type DatabaseConfig struct {
	URL          string
	MaxIdleConns int
	MaxOpenConns int
	LogLevel     string
}

type JWTConfig struct {
	Secret            string
	ExpiryHours       int
	RefreshExpiryDays int
}

// PushConfig selects the push delivery provider: "fcm", "expo" or "log".
type PushConfig struct {
	Provider                string
	FirebaseCredentialsFile string
	FirebaseProjectID       string
	ExpoURL                 string
	IconURL                 string
	TasksURL                string
}

type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
}

// RabbitMQConfig is optional; an empty URL disables event publishing.
type RabbitMQConfig struct {
	URL      string
	Exchange string
}

type AdminConfig struct {
	APIKey string
}

type AssignmentConfig struct {
	StrictWorkerMatch bool
}

var AppConfig *Config

func Load() {
	AppConfig = &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			GinMode:        getEnv("GIN_MODE", "debug"),
			Env:            getEnv("APP_ENV", "development"),
			AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		},
		Database: DatabaseConfig{
			URL:          getEnv("DB_URL", ""),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 50),
			LogLevel:     getEnv("DB_LOG_LEVEL", "warn"),
		},
		JWT: JWTConfig{
			Secret:            getEnv("JWT_SECRET", "change-this-secret-in-production"),
			ExpiryHours:       getEnvAsInt("JWT_EXPIRY_HOURS", 24),
			RefreshExpiryDays: getEnvAsInt("JWT_REFRESH_EXPIRY_DAYS", 30),
		},
		Push: PushConfig{
			Provider:                getEnv("PUSH_PROVIDER", "log"),
			FirebaseCredentialsFile: getEnv("FIREBASE_CREDENTIALS_FILE", ""),
			FirebaseProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
			ExpoURL:                 getEnv("EXPO_PUSH_URL", "https://exp.host/--/api/v2/push/send"),
			IconURL:                 getEnv("PUSH_ICON_URL", "/icons/task-icon.png"),
			TasksURL:                getEnv("PUSH_TASKS_URL", "http://localhost:3000/tasks"),
		},
		Cloudinary: CloudinaryConfig{
			CloudName: getEnv("CLOUDINARY_CLOUD_NAME", ""),
			APIKey:    getEnv("CLOUDINARY_API_KEY", ""),
			APISecret: getEnv("CLOUDINARY_API_SECRET", ""),
		},
		RabbitMQ: RabbitMQConfig{
			URL:      getEnv("RABBITMQ_URL", ""),
			Exchange: getEnv("RABBITMQ_EXCHANGE", "tasks_topic"),
		},
		Admin: AdminConfig{
			APIKey: getEnv("ADMIN_API_KEY", ""),
		},
		Assignment: AssignmentConfig{
			StrictWorkerMatch: getEnvAsBool("STRICT_WORKER_MATCH", false),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma separated value, dropping empty entries.
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
