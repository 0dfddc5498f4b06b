package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cmlabs-hris/discipline-dashboard-go/internal/pkg/render"
	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	JWT      JWTConfig
	Upstream UpstreamConfig
	Render   RenderConfig
	Report   ReportConfig
	Storage  StorageConfig
	Archive  ArchiveConfig
	Database DatabaseConfig
}

// AppConfig holds application configuration
type AppConfig struct {
	Port        int
	Env         string
	LogLevel    string
	FrontendURL string
}

// JWTConfig holds the settings used to verify session tokens issued by the backend API
type JWTConfig struct {
	Secret     string
	CookieName string
}

// UpstreamConfig points at the backend REST API every CRUD route is forwarded to
type UpstreamConfig struct {
	BaseURL string
	Timeout time.Duration
}

// RenderConfig selects the headless browser engine and the environment profile.
// Profile is resolved once here and handed to the renderer by main.
type RenderConfig struct {
	Profile                render.Profile
	Engine                 string
	ChromiumPath           string
	ServerlessChromiumPath string
	MaxRetries             int
	BackoffBase            time.Duration
}

type ReportConfig struct {
	HeaderImageURL string
	FooterImageURL string
	SchoolName     string
}

type StorageConfig struct {
	Type     string
	BasePath string
}

type ArchiveConfig struct {
	Enabled       bool
	RetentionDays int
}

type DatabaseConfig struct {
	URL      string
	MaxConns int32
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file loaded, using process environment", "error", err)
	}

	config := &Config{}

	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	config.App = AppConfig{
		Port:        appPort,
		Env:         getEnv("APP_ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),
	}

	config.JWT = JWTConfig{
		Secret:     getEnv("JWT_SECRET_KEY", ""),
		CookieName: getEnv("SESSION_COOKIE_NAME", "session"),
	}

	upstreamTimeout, err := time.ParseDuration(getEnv("API_TIMEOUT", "15s"))
	if err != nil {
		return nil, fmt.Errorf("invalid API_TIMEOUT: %w", err)
	}
	config.Upstream = UpstreamConfig{
		BaseURL: strings.TrimRight(getEnv("API_BASE_URL", ""), "/"),
		Timeout: upstreamTimeout,
	}

	maxRetries, err := strconv.Atoi(getEnv("RENDER_MAX_RETRIES", "2"))
	if err != nil {
		return nil, fmt.Errorf("invalid RENDER_MAX_RETRIES: %w", err)
	}
	backoffBase, err := time.ParseDuration(getEnv("RENDER_BACKOFF_BASE", "1s"))
	if err != nil {
		return nil, fmt.Errorf("invalid RENDER_BACKOFF_BASE: %w", err)
	}
	config.Render = RenderConfig{
		Profile:                render.Profile(getEnv("RENDER_PROFILE", string(profileForEnv(config.App.Env)))),
		Engine:                 getEnv("RENDER_ENGINE", render.EngineRod),
		ChromiumPath:           getEnv("CHROMIUM_PATH", ""),
		ServerlessChromiumPath: getEnv("SERVERLESS_CHROMIUM_PATH", "/opt/chromium/chromium"),
		MaxRetries:             maxRetries,
		BackoffBase:            backoffBase,
	}

	config.Report = ReportConfig{
		HeaderImageURL: getEnv("REPORT_HEADER_IMAGE_URL", ""),
		FooterImageURL: getEnv("REPORT_FOOTER_IMAGE_URL", ""),
		SchoolName:     getEnv("REPORT_SCHOOL_NAME", ""),
	}

	config.Storage = StorageConfig{
		Type:     getEnv("STORAGE_TYPE", "local"),
		BasePath: getEnv("STORAGE_BASE_PATH", "./storage"),
	}

	retentionDays, err := strconv.Atoi(getEnv("ARCHIVE_RETENTION_DAYS", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid ARCHIVE_RETENTION_DAYS: %w", err)
	}
	archiveEnabled, err := strconv.ParseBool(getEnv("ARCHIVE_ENABLED", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid ARCHIVE_ENABLED: %w", err)
	}
	config.Archive = ArchiveConfig{
		Enabled:       archiveEnabled,
		RetentionDays: retentionDays,
	}

	maxConns, err := strconv.Atoi(getEnv("DB_MAX_CONNS", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}
	config.Database = DatabaseConfig{
		URL:      getEnv("DATABASE_URL", ""),
		MaxConns: int32(maxConns),
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if c.Upstream.BaseURL == "" {
		return fmt.Errorf("API_BASE_URL is required")
	}
	switch c.Render.Profile {
	case render.ProfileLocal, render.ProfileConstrained:
	default:
		return fmt.Errorf("RENDER_PROFILE must be %q or %q, got %q", render.ProfileLocal, render.ProfileConstrained, c.Render.Profile)
	}
	switch c.Render.Engine {
	case render.EngineRod, render.EnginePlaywright:
	default:
		return fmt.Errorf("RENDER_ENGINE must be %q or %q, got %q", render.EngineRod, render.EnginePlaywright, c.Render.Engine)
	}
	if c.Render.MaxRetries < 1 {
		return fmt.Errorf("RENDER_MAX_RETRIES must be at least 1")
	}
	if c.Archive.Enabled {
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required when ARCHIVE_ENABLED is true")
		}
		if c.Storage.Type != "local" {
			return fmt.Errorf("unsupported STORAGE_TYPE: %s", c.Storage.Type)
		}
		if c.Archive.RetentionDays < 1 {
			return fmt.Errorf("ARCHIVE_RETENTION_DAYS must be at least 1")
		}
	}
	return nil
}

// IsProduction reports whether the process runs in the deployed (serverless) environment
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// profileForEnv maps the runtime environment to a render profile.
func profileForEnv(env string) render.Profile {
	if env == "production" {
		return render.ProfileConstrained
	}
	return render.ProfileLocal
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
