// Package config loads configuration for the itinerary planning engine from
// environment variables / a .env file, following the teacher's viper-based
// convention: one sub-struct per collaborator, explicit defaults, a single
// Load() entry point.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/tourloop/planner/internal/model"
)

// Config holds all configuration for the application.
type Config struct {
	Server    ServerConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Embedding EmbeddingConfig
	Planner   PlannerConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string        `mapstructure:"SERVER_HOST"`
	Port         int           `mapstructure:"SERVER_PORT"`
	ReadTimeout  time.Duration `mapstructure:"SERVER_READ_TIMEOUT"`
	WriteTimeout time.Duration `mapstructure:"SERVER_WRITE_TIMEOUT"`
	IdleTimeout  time.Duration `mapstructure:"SERVER_IDLE_TIMEOUT"`
}

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `mapstructure:"POSTGRES_HOST"`
	Port     int    `mapstructure:"POSTGRES_PORT"`
	User     string `mapstructure:"POSTGRES_USER"`
	Password string `mapstructure:"POSTGRES_PASSWORD"`
	DBName   string `mapstructure:"POSTGRES_DB"`
	SSLMode  string `mapstructure:"POSTGRES_SSLMODE"`
	MaxConns int32  `mapstructure:"POSTGRES_MAX_CONNS"`
	MinConns int32  `mapstructure:"POSTGRES_MIN_CONNS"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Host     string `mapstructure:"REDIS_HOST"`
	Port     int    `mapstructure:"REDIS_PORT"`
	Password string `mapstructure:"REDIS_PASSWORD"`
	DB       int    `mapstructure:"REDIS_DB"`
	PoolSize int    `mapstructure:"REDIS_POOL_SIZE"`
}

// EmbeddingConfig holds settings for the external embedding service (C15).
type EmbeddingConfig struct {
	BaseURL    string `mapstructure:"EMBEDDING_BASE_URL"`
	APIKey     string `mapstructure:"EMBEDDING_API_KEY"`
	Model      string `mapstructure:"EMBEDDING_MODEL"`
	Dimensions int    `mapstructure:"EMBEDDING_DIMENSIONS"`
	Asymmetric bool   `mapstructure:"EMBEDDING_ASYMMETRIC"`
}

// ModeConfig fixes the average speed and H3 k-ring radius for one
// transportation mode (spec.md §3).
type ModeConfig struct {
	SpeedKmph float64
	KRing     int
	RadiusM   float64
}

// PlannerConfig carries every enumerated default from spec.md §6.
type PlannerConfig struct {
	H3Resolution int `mapstructure:"H3_RESOLUTION"`

	Modes map[model.Mode]ModeConfig

	UseCircularRouting          bool    `mapstructure:"USE_CIRCULAR_ROUTING"`
	CircularAngleToleranceDeg   float64 `mapstructure:"CIRCULAR_ANGLE_TOLERANCE"`
	CircularDirectionPreference string  `mapstructure:"CIRCULAR_DIRECTION_PREFERENCE"`

	DefaultStayMinutes float64 `mapstructure:"DEFAULT_STAY_MINUTES"`
	StayMinutesByCat   map[string]float64

	LunchWindowStart string `mapstructure:"LUNCH_WINDOW_START"`
	LunchWindowEnd   string `mapstructure:"LUNCH_WINDOW_END"`
	DinnerWindowStart string `mapstructure:"DINNER_WINDOW_START"`
	DinnerWindowEnd   string `mapstructure:"DINNER_WINDOW_END"`

	UserCacheTTL time.Duration `mapstructure:"USER_CACHE_TTL"`
	CellCacheTTL time.Duration `mapstructure:"CELL_CACHE_TTL"`

	MaxCandidatesFloor int `mapstructure:"MAX_CANDIDATES_FLOOR"`
	ProgressiveExpand  bool `mapstructure:"PROGRESSIVE_EXPAND"`
	MaxKRingCap        int  `mapstructure:"MAX_KRING_CAP"`

	ClosingThresholds []float64
}

// DSN returns the PostgreSQL connection string.
func (p *PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.DBName, p.SSLMode,
	)
}

// Addr returns the Redis address in host:port format.
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// ServerAddr returns the HTTP listen address in host:port format.
func (s *ServerConfig) ServerAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// defaultModeConfigs returns the per-mode speed/k-ring table (spec.md §2, §3).
func defaultModeConfigs() map[model.Mode]ModeConfig {
	return map[model.Mode]ModeConfig{
		model.ModeWalking:   {SpeedKmph: 4.5, KRing: 2, RadiusM: 1500},
		model.ModeBicycling: {SpeedKmph: 15.0, KRing: 3, RadiusM: 4000},
		model.ModeTransit:   {SpeedKmph: 22.0, KRing: 4, RadiusM: 6000},
		model.ModeFlexible:  {SpeedKmph: 18.0, KRing: 3, RadiusM: 5000},
		model.ModeDriving:   {SpeedKmph: 35.0, KRing: 5, RadiusM: 9000},
	}
}

func defaultStayMinutesByCategory() map[string]float64 {
	return map[string]float64{
		model.CategoryRestaurant: 60,
		model.CategoryCafeBakery: 30,
		model.CategoryCulture:    75,
		model.CategoryNature:     45,
		model.CategoryEntertain:  90,
		model.CategoryShopping:  45,
		model.CategoryBar:        45,
	}
}

// Load reads configuration from environment variables and .env file.
func Load() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// ── Defaults ────────────────────────────────────────
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_PORT", 8080)
	viper.SetDefault("SERVER_READ_TIMEOUT", "5s")
	viper.SetDefault("SERVER_WRITE_TIMEOUT", "10s")
	viper.SetDefault("SERVER_IDLE_TIMEOUT", "120s")

	viper.SetDefault("POSTGRES_HOST", "localhost")
	viper.SetDefault("POSTGRES_PORT", 5432)
	viper.SetDefault("POSTGRES_USER", "planner")
	viper.SetDefault("POSTGRES_PASSWORD", "planner_secret")
	viper.SetDefault("POSTGRES_DB", "planner_db")
	viper.SetDefault("POSTGRES_SSLMODE", "disable")
	viper.SetDefault("POSTGRES_MAX_CONNS", 50)
	viper.SetDefault("POSTGRES_MIN_CONNS", 10)

	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", 6379)
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("REDIS_POOL_SIZE", 100)

	viper.SetDefault("EMBEDDING_BASE_URL", "https://api.openai.com/v1")
	viper.SetDefault("EMBEDDING_API_KEY", "")
	viper.SetDefault("EMBEDDING_MODEL", "text-embedding-3-small")
	viper.SetDefault("EMBEDDING_DIMENSIONS", 384)
	viper.SetDefault("EMBEDDING_ASYMMETRIC", false)

	viper.SetDefault("H3_RESOLUTION", 9)
	viper.SetDefault("USE_CIRCULAR_ROUTING", true)
	viper.SetDefault("CIRCULAR_ANGLE_TOLERANCE", 10.0)
	viper.SetDefault("CIRCULAR_DIRECTION_PREFERENCE", "auto")
	viper.SetDefault("DEFAULT_STAY_MINUTES", 30.0)
	viper.SetDefault("LUNCH_WINDOW_START", "11:30")
	viper.SetDefault("LUNCH_WINDOW_END", "13:30")
	viper.SetDefault("DINNER_WINDOW_START", "18:00")
	viper.SetDefault("DINNER_WINDOW_END", "20:00")
	viper.SetDefault("USER_CACHE_TTL", "3600s")
	viper.SetDefault("CELL_CACHE_TTL", "900s")
	viper.SetDefault("MAX_CANDIDATES_FLOOR", 50)
	viper.SetDefault("PROGRESSIVE_EXPAND", true)
	viper.SetDefault("MAX_KRING_CAP", 10)

	// Try to read .env file. If it doesn't exist (e.g., inside Docker),
	// env vars injected by docker-compose env_file are used instead.
	_ = viper.ReadInConfig()

	cfg := &Config{}

	// ── Server ──────────────────────────────────────────
	cfg.Server = ServerConfig{
		Host:         viper.GetString("SERVER_HOST"),
		Port:         viper.GetInt("SERVER_PORT"),
		ReadTimeout:  viper.GetDuration("SERVER_READ_TIMEOUT"),
		WriteTimeout: viper.GetDuration("SERVER_WRITE_TIMEOUT"),
		IdleTimeout:  viper.GetDuration("SERVER_IDLE_TIMEOUT"),
	}

	// ── Postgres ────────────────────────────────────────
	cfg.Postgres = PostgresConfig{
		Host:     viper.GetString("POSTGRES_HOST"),
		Port:     viper.GetInt("POSTGRES_PORT"),
		User:     viper.GetString("POSTGRES_USER"),
		Password: viper.GetString("POSTGRES_PASSWORD"),
		DBName:   viper.GetString("POSTGRES_DB"),
		SSLMode:  viper.GetString("POSTGRES_SSLMODE"),
		MaxConns: viper.GetInt32("POSTGRES_MAX_CONNS"),
		MinConns: viper.GetInt32("POSTGRES_MIN_CONNS"),
	}

	// ── Redis ───────────────────────────────────────────
	cfg.Redis = RedisConfig{
		Host:     viper.GetString("REDIS_HOST"),
		Port:     viper.GetInt("REDIS_PORT"),
		Password: viper.GetString("REDIS_PASSWORD"),
		DB:       viper.GetInt("REDIS_DB"),
		PoolSize: viper.GetInt("REDIS_POOL_SIZE"),
	}

	// ── Embedding ───────────────────────────────────────
	cfg.Embedding = EmbeddingConfig{
		BaseURL:    viper.GetString("EMBEDDING_BASE_URL"),
		APIKey:     viper.GetString("EMBEDDING_API_KEY"),
		Model:      viper.GetString("EMBEDDING_MODEL"),
		Dimensions: viper.GetInt("EMBEDDING_DIMENSIONS"),
		Asymmetric: viper.GetBool("EMBEDDING_ASYMMETRIC"),
	}

	// ── Planner ─────────────────────────────────────────
	cfg.Planner = PlannerConfig{
		H3Resolution:                viper.GetInt("H3_RESOLUTION"),
		Modes:                       defaultModeConfigs(),
		UseCircularRouting:          viper.GetBool("USE_CIRCULAR_ROUTING"),
		CircularAngleToleranceDeg:   viper.GetFloat64("CIRCULAR_ANGLE_TOLERANCE"),
		CircularDirectionPreference: viper.GetString("CIRCULAR_DIRECTION_PREFERENCE"),
		DefaultStayMinutes:          viper.GetFloat64("DEFAULT_STAY_MINUTES"),
		StayMinutesByCat:            defaultStayMinutesByCategory(),
		LunchWindowStart:            viper.GetString("LUNCH_WINDOW_START"),
		LunchWindowEnd:              viper.GetString("LUNCH_WINDOW_END"),
		DinnerWindowStart:           viper.GetString("DINNER_WINDOW_START"),
		DinnerWindowEnd:             viper.GetString("DINNER_WINDOW_END"),
		UserCacheTTL:                viper.GetDuration("USER_CACHE_TTL"),
		CellCacheTTL:                viper.GetDuration("CELL_CACHE_TTL"),
		MaxCandidatesFloor:          viper.GetInt("MAX_CANDIDATES_FLOOR"),
		ProgressiveExpand:           viper.GetBool("PROGRESSIVE_EXPAND"),
		MaxKRingCap:                 viper.GetInt("MAX_KRING_CAP"),
		ClosingThresholds:           []float64{0.2, 0.4, 0.6, 0.8, 1.0},
	}

	return cfg, nil
}

// StayMinutes returns the configured stay time for a category, falling back
// to DefaultStayMinutes.
func (p *PlannerConfig) StayMinutes(category string) float64 {
	if m, ok := p.StayMinutesByCat[category]; ok {
		return m
	}
	return p.DefaultStayMinutes
}
