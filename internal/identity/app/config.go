package app

import (
	"os"
	"time"
)

type Config struct {
	Issuer        string        // Issuer label in TOTP provisioning URIs
	InvitationTTL time.Duration // How long invitations stay acceptable (default: 7 days)
	DatabaseFile  string        // Path to SQLite database file (default: ./identity.db)
	BaseURL       string        // Portal base URL used in invitation links
	SendGridKey   string        // Optional: enables the SendGrid dispatcher
	MailFrom      string        // Sender address for invitation mail
	MailFromName  string        // Sender display name
	Env           string        // Environment (dev, staging, prod) (default: dev)
	LogLevel      string        // Log level (debug, info, warn, error) (default: info)
	LogFormat     string        // Log format (json, text) (default: json)
}

func LoadConfig() Config {
	cfg := Config{
		Issuer:        getEnvOrDefault("IDENTITY_ISSUER", "Quillgate"),
		InvitationTTL: getEnvDurationOrDefault("IDENTITY_INVITATION_TTL", 7*24*time.Hour),
		DatabaseFile:  getEnvOrDefault("IDENTITY_DATABASE_FILE", "identity.db"),
		BaseURL:       getEnvOrDefault("IDENTITY_BASE_URL", "http://localhost:8080"),
		SendGridKey:   os.Getenv("SENDGRID_API_KEY"),
		MailFrom:      getEnvOrDefault("IDENTITY_MAIL_FROM", "no-reply@quillgate.example"),
		MailFromName:  getEnvOrDefault("IDENTITY_MAIL_FROM_NAME", "Quillgate"),
		Env:           getEnvOrDefault("ENV", "dev"),
		LogLevel:      getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:     getEnvOrDefault("LOG_FORMAT", "json"),
	}

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	return defaultValue
}
