// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
}

// JWTConfig provides JWT signing and validation settings.
type JWTConfig interface {
	GetJWTSecret() string
}

// AdminConfig provides the single admin credential used by /auth/login.
type AdminConfig interface {
	JWTConfig
	GetAdminUser() string
	GetAdminPassword() string
	GetAdminPasswordHash() string
	GetAdminTokenTTL() time.Duration
}

// DashboardConfig provides the dashboard password gate.
type DashboardConfig interface {
	JWTConfig
	GetDashboardPassword() string
	GetDashboardTokenTTL() time.Duration
}

// PodioConfig provides vendor credentials for every workspace.
type PodioConfig interface {
	GetPodioClientID() string
	GetPodioClientSecret() string
	GetPodioApps() map[string]PodioAppCredentials
	GetPodioWebhookURL() string
	IsPodioEnabled() bool
}

// WhatsAppConfig provides settings for the WhatsApp Cloud API.
type WhatsAppConfig interface {
	GetWhatsAppAPIBase() string
	GetWhatsAppAccessToken() string
	GetWhatsAppClientsPhoneNumberID() string
	GetWhatsAppOpsPhoneNumberID() string
	GetWhatsAppVerifyTokens() []string
	GetWhatsAppAppSecret() string
}

// LLMConfig provides settings for the qualification model.
type LLMConfig interface {
	GetLLMProvider() string
	GetOpenAIAPIKey() string
	GetOpenAIModel() string
	GetGeminiAPIKey() string
	GetGeminiModel() string
}

// AlertConfig provides settings for operational alerts.
type AlertConfig interface {
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUser() string
	GetSMTPPass() string
	GetAlertEmailTo() string
	GetAlertWhatsAppTo() string
	GetSentryDSN() string
}

// RedisConfig provides the shared Redis connection.
type RedisConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
}

// SchedulerConfig provides asynq settings.
type SchedulerConfig interface {
	RedisConfig
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetPodioSyncDelay() time.Duration
}

// JobsConfig provides SLA job runner settings.
type JobsConfig interface {
	GetJobsPollInterval() time.Duration
	GetJobsBatchSize() int
	GetJobsRetryDelay() time.Duration
}

// MinIOConfig provides settings for MinIO S3-compatible storage.
type MinIOConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinioBucketPodioApps() string
	IsMinIOEnabled() bool
}

// PodioAppCredentials is one workspace's app-level credential pair.
type PodioAppCredentials struct {
	AppID    string
	AppToken string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                        string
	HTTPAddr                   string
	DatabaseURL                string
	CORSAllowAll               bool
	CORSOrigins                []string
	JWTSecret                  string
	AdminUser                  string
	AdminPassword              string
	AdminPasswordHash          string
	AdminTokenTTL              time.Duration
	DashboardPassword          string
	DashboardTokenTTL          time.Duration
	PodioClientID              string
	PodioClientSecret          string
	PodioApps                  map[string]PodioAppCredentials
	PodioWebhookURL            string
	WhatsAppAPIBase            string
	WhatsAppAccessToken        string
	WhatsAppClientsPhoneID     string
	WhatsAppOpsPhoneID         string
	WhatsAppVerifyTokenClients string
	WhatsAppVerifyTokenOps     string
	WhatsAppAppSecret          string
	LLMProvider                string
	OpenAIAPIKey               string
	OpenAIModel                string
	GeminiAPIKey               string
	GeminiModel                string
	SMTPHost                   string
	SMTPPort                   int
	SMTPUser                   string
	SMTPPass                   string
	AlertEmailTo               string
	AlertWhatsAppTo            string
	SentryDSN                  string
	RedisURL                   string
	RedisTLSInsecure           bool
	AsynqQueueName             string
	AsynqConcurrency           int
	PodioSyncDelay             time.Duration
	JobsPollInterval           time.Duration
	JobsBatchSize              int
	JobsRetryDelay             time.Duration
	MinIOEndpoint              string
	MinIOAccessKey             string
	MinIOSecretKey             string
	MinIOUseSSL                bool
	MinioBucketPodioApps       string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }

// JWTConfig implementation
func (c *Config) GetJWTSecret() string { return c.JWTSecret }

// AdminConfig implementation
func (c *Config) GetAdminUser() string            { return c.AdminUser }
func (c *Config) GetAdminPassword() string        { return c.AdminPassword }
func (c *Config) GetAdminPasswordHash() string    { return c.AdminPasswordHash }
func (c *Config) GetAdminTokenTTL() time.Duration { return c.AdminTokenTTL }

// DashboardConfig implementation
func (c *Config) GetDashboardPassword() string        { return c.DashboardPassword }
func (c *Config) GetDashboardTokenTTL() time.Duration { return c.DashboardTokenTTL }

// PodioConfig implementation
func (c *Config) GetPodioClientID() string                     { return c.PodioClientID }
func (c *Config) GetPodioClientSecret() string                 { return c.PodioClientSecret }
func (c *Config) GetPodioApps() map[string]PodioAppCredentials { return c.PodioApps }
func (c *Config) GetPodioWebhookURL() string                   { return c.PodioWebhookURL }
func (c *Config) IsPodioEnabled() bool {
	return c.PodioClientID != "" && c.PodioClientSecret != ""
}

// WhatsAppConfig implementation
func (c *Config) GetWhatsAppAPIBase() string              { return c.WhatsAppAPIBase }
func (c *Config) GetWhatsAppAccessToken() string          { return c.WhatsAppAccessToken }
func (c *Config) GetWhatsAppClientsPhoneNumberID() string { return c.WhatsAppClientsPhoneID }
func (c *Config) GetWhatsAppOpsPhoneNumberID() string     { return c.WhatsAppOpsPhoneID }
func (c *Config) GetWhatsAppAppSecret() string            { return c.WhatsAppAppSecret }
func (c *Config) GetWhatsAppVerifyTokens() []string {
	tokens := make([]string, 0, 2)
	for _, t := range []string{c.WhatsAppVerifyTokenClients, c.WhatsAppVerifyTokenOps} {
		if t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// LLMConfig implementation
func (c *Config) GetLLMProvider() string  { return c.LLMProvider }
func (c *Config) GetOpenAIAPIKey() string { return c.OpenAIAPIKey }
func (c *Config) GetOpenAIModel() string  { return c.OpenAIModel }
func (c *Config) GetGeminiAPIKey() string { return c.GeminiAPIKey }
func (c *Config) GetGeminiModel() string  { return c.GeminiModel }

// AlertConfig implementation
func (c *Config) GetSMTPHost() string        { return c.SMTPHost }
func (c *Config) GetSMTPPort() int           { return c.SMTPPort }
func (c *Config) GetSMTPUser() string        { return c.SMTPUser }
func (c *Config) GetSMTPPass() string        { return c.SMTPPass }
func (c *Config) GetAlertEmailTo() string    { return c.AlertEmailTo }
func (c *Config) GetAlertWhatsAppTo() string { return c.AlertWhatsAppTo }
func (c *Config) GetSentryDSN() string       { return c.SentryDSN }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string              { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool        { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string        { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int         { return c.AsynqConcurrency }
func (c *Config) GetPodioSyncDelay() time.Duration { return c.PodioSyncDelay }

// JobsConfig implementation
func (c *Config) GetJobsPollInterval() time.Duration { return c.JobsPollInterval }
func (c *Config) GetJobsBatchSize() int              { return c.JobsBatchSize }
func (c *Config) GetJobsRetryDelay() time.Duration   { return c.JobsRetryDelay }

// MinIOConfig implementation
func (c *Config) GetMinIOEndpoint() string        { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string       { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string       { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool            { return c.MinIOUseSSL }
func (c *Config) GetMinioBucketPodioApps() string { return c.MinioBucketPodioApps }
func (c *Config) IsMinIOEnabled() bool            { return c.MinIOEndpoint != "" }

// podioWorkspaceEnv lists the env prefix and default app id per workspace key.
var podioWorkspaceEnv = []struct {
	key, prefix, defaultAppID string
}{
	{"franqueadora", "PODIO_FRANQUEADORA", "10094649"},
	{"campinas", "PODIO_CAMPINAS", "10777978"},
	{"litoral_norte", "PODIO_LITORAL_NORTE", "13683578"},
	{"rio_bh", "PODIO_RIO_BH", "12876626"},
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "*"))

	httpAddr := getEnv("HTTP_ADDR", "")
	if httpAddr == "" {
		httpAddr = ":" + getEnv("PORT", "3000")
	}

	apps := make(map[string]PodioAppCredentials, len(podioWorkspaceEnv))
	for _, ws := range podioWorkspaceEnv {
		apps[ws.key] = PodioAppCredentials{
			AppID:    getEnv(ws.prefix+"_APP_ID", ws.defaultAppID),
			AppToken: getEnv(ws.prefix+"_APP_TOKEN", ""),
		}
	}

	cfg := &Config{
		Env:                        getEnv("APP_ENV", "development"),
		HTTPAddr:                   httpAddr,
		DatabaseURL:                getEnv("DATABASE_URL", ""),
		CORSAllowAll:               containsWildcard(corsOrigins),
		CORSOrigins:                corsOrigins,
		JWTSecret:                  getEnv("JWT_SECRET", ""),
		AdminUser:                  getEnv("ADMIN_USER", "admin"),
		AdminPassword:              getEnv("ADMIN_PASS", ""),
		AdminPasswordHash:          getEnv("ADMIN_PASS_HASH", ""),
		AdminTokenTTL:              mustDuration(getEnv("ADMIN_TOKEN_TTL", "168h")),
		DashboardPassword:          getEnv("DASHBOARD_PASSWORD", ""),
		DashboardTokenTTL:          mustDuration(getEnv("DASHBOARD_TOKEN_TTL", "24h")),
		PodioClientID:              getEnv("PODIO_CLIENT_ID", ""),
		PodioClientSecret:          getEnv("PODIO_CLIENT_SECRET", ""),
		PodioApps:                  apps,
		PodioWebhookURL:            getEnv("PODIO_WEBHOOK_URL", ""),
		WhatsAppAPIBase:            strings.TrimRight(getEnv("WHATSAPP_API_BASE", "https://graph.facebook.com/v25.0"), "/"),
		WhatsAppAccessToken:        getEnv("WHATSAPP_ACCESS_TOKEN", ""),
		WhatsAppClientsPhoneID:     getEnv("WHATSAPP_CLIENTS_PHONE_NUMBER_ID", ""),
		WhatsAppOpsPhoneID:         getEnv("WHATSAPP_OPS_PHONE_NUMBER_ID", ""),
		WhatsAppVerifyTokenClients: getEnv("WHATSAPP_VERIFY_TOKEN_CLIENTS", ""),
		WhatsAppVerifyTokenOps:     getEnv("WHATSAPP_VERIFY_TOKEN_OPS", ""),
		WhatsAppAppSecret:          getEnv("WHATSAPP_APP_SECRET", ""),
		LLMProvider:                strings.ToLower(getEnv("LLM_PROVIDER", "openai")),
		OpenAIAPIKey:               getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:                getEnv("OPENAI_MODEL", "gpt-4.1-mini"),
		GeminiAPIKey:               getEnv("GEMINI_API_KEY", ""),
		GeminiModel:                getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		SMTPHost:                   getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:                   mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUser:                   getEnv("SMTP_USER", ""),
		SMTPPass:                   getEnv("SMTP_PASS", ""),
		AlertEmailTo:               getEnv("ALERT_EMAIL_TO", ""),
		AlertWhatsAppTo:            getEnv("ALERT_WHATSAPP_TO", ""),
		SentryDSN:                  getEnv("SENTRY_DSN", ""),
		RedisURL:                   getEnv("REDIS_URL", ""),
		RedisTLSInsecure:           strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:             getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:           mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		PodioSyncDelay:             mustDuration(getEnv("PODIO_SYNC_DELAY", "2s")),
		JobsPollInterval:           mustDuration(getEnv("JOBS_POLL_INTERVAL", "1m")),
		JobsBatchSize:              mustInt(getEnv("JOBS_BATCH_SIZE", "20")),
		JobsRetryDelay:             mustDuration(getEnv("JOBS_RETRY_DELAY", "1h")),
		MinIOEndpoint:              getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:             getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:             getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:                strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinioBucketPodioApps:       getEnv("MINIO_BUCKET_PODIO_APPS", "podio-apps"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.AdminPassword == "" && c.AdminPasswordHash == "" {
		return fmt.Errorf("ADMIN_PASS or ADMIN_PASS_HASH is required")
	}
	if c.LLMProvider != "openai" && c.LLMProvider != "gemini" {
		return fmt.Errorf("LLM_PROVIDER must be openai or gemini, got %q", c.LLMProvider)
	}
	if c.JobsPollInterval <= 0 || c.JobsRetryDelay <= 0 {
		return fmt.Errorf("JOBS_POLL_INTERVAL and JOBS_RETRY_DELAY must be positive durations")
	}
	if c.JobsBatchSize < 1 {
		return fmt.Errorf("JOBS_BATCH_SIZE must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
