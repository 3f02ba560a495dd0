package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	YouTube  YouTubeConfig
	Update   UpdateConfig
	Redis    RedisConfig
	CORS     CORSConfig
}

type ServerConfig struct {
	Port        string
	GinMode     string
	Environment string
}

type DatabaseConfig struct {
	// URL takes precedence when set; otherwise a local SQLite file is used.
	URL      string
	File     string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type YouTubeConfig struct {
	APIKey               string
	PlaylistID           string
	MaxResultsPerRequest int
}

type UpdateConfig struct {
	// Cron expression checked first; Schedule (comma-separated HH:MM list)
	// second; IntervalHours is the fallback.
	Cron           string
	Schedule       string
	IntervalHours  float64
	LockTTLSeconds int
}

type RedisConfig struct {
	Host            string
	Port            string
	Password        string
	DB              int
	CacheTTLSeconds int
}

type CORSConfig struct {
	AllowedOrigins []string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			GinMode:     getEnv("GIN_MODE", "debug"),
			Environment: getEnv("ENVIRONMENT", "development"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			File:     getEnv("DB_FILE", "./data/tinydesk.db"),
			Host:     getEnv("DB_HOST", ""),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "tinydesk"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "tinydesk"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		YouTube: YouTubeConfig{
			APIKey:               getEnv("YOUTUBE_API_KEY", ""),
			PlaylistID:           getEnv("TINY_DESK_PLAYLIST_ID", "PL1B627337ED6F55F0"),
			MaxResultsPerRequest: parseInt(getEnv("MAX_RESULTS_PER_REQUEST", "50"), 50),
		},
		Update: UpdateConfig{
			Cron:           strings.TrimSpace(getEnv("UPDATE_CRON", "*/30 * * * *")),
			Schedule:       strings.TrimSpace(getEnv("UPDATE_SCHEDULE", "")),
			IntervalHours:  parseFloat(getEnv("UPDATE_INTERVAL_HOURS", "6"), 6),
			LockTTLSeconds: parseInt(getEnv("UPDATE_LOCK_TTL_SECONDS", "7200"), 7200),
		},
		Redis: RedisConfig{
			Host:            getEnv("REDIS_HOST", ""),
			Port:            getEnv("REDIS_PORT", "6379"),
			Password:        getEnv("REDIS_PASSWORD", ""),
			DB:              parseInt(getEnv("REDIS_DB", "0"), 0),
			CacheTTLSeconds: parseInt(getEnv("CACHE_TTL_SECONDS", "60"), 60),
		},
		CORS: CORSConfig{
			AllowedOrigins: parseSlice(getEnv("ALLOWED_ORIGINS", "*")),
		},
	}

	return config, nil
}

// Validate checks settings the tracker cannot run without. The HTTP read API
// works on an empty database, so only the update path has hard requirements.
func (c *Config) Validate() error {
	if c.YouTube.APIKey == "" {
		return fmt.Errorf("YOUTUBE_API_KEY is required")
	}
	if c.YouTube.MaxResultsPerRequest <= 0 {
		return fmt.Errorf("MAX_RESULTS_PER_REQUEST must be positive")
	}
	return nil
}

// UsesExternalDatabase reports whether a PostgreSQL connection is configured.
func (c *DatabaseConfig) UsesExternalDatabase() bool {
	return c.URL != "" || c.Host != ""
}

func (c *DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// CacheEnabled reports whether the optional Redis response cache is configured.
func (c *RedisConfig) CacheEnabled() bool {
	return c.Host != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt(s string, defaultValue int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		log.Printf("Invalid integer %q, using default %d", s, defaultValue)
		return defaultValue
	}
	return v
}

func parseFloat(s string, defaultValue float64) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		log.Printf("Invalid number %q, using default %v", s, defaultValue)
		return defaultValue
	}
	return v
}

func parseSlice(s string) []string {
	if s == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
