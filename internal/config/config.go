package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/spf13/viper"
)

// DefaultExtent - охват Cary/Apex/Morrisville
var DefaultExtent = orb.Bound{
	Min: orb.Point{-78.95, 35.68},
	Max: orb.Point{-78.74, 35.88},
}

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Cache    CacheConfig
	Log      LogConfig
	Worker   WorkerConfig
	Map      MapConfig
	Session  SessionConfig
}

type ServerConfig struct {
	Host        string
	Port        int
	Env         string
	CORSOrigins string
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxConns        int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CacheConfig struct {
	PermitsCacheTTL time.Duration
	SearchCacheTTL  time.Duration
	SearchLimit     int
}

type LogConfig struct {
	Level string
}

type WorkerConfig struct {
	Enabled           bool
	ConsumerGroup     string
	StreamReadTimeout time.Duration
	MaxRetries        int
	BatchSize         int
	ImportDir         string
}

type MapConfig struct {
	Zoom          int
	Extent        orb.Bound
	FillOpacity   float64
	LookupTimeout time.Duration
	Palette       map[string]string
	Fallback      string
}

type SessionConfig struct {
	IdleTTL       time.Duration
	SweepInterval time.Duration
}

// Load читает .env (если есть) и переменные окружения
func Load() (*Config, error) {
	v := viper.GetViper()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil && !isMissingFile(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return FromViper(v)
}

// FromViper собирает конфиг из уже заполненного экземпляра viper
func FromViper(v *viper.Viper) (*Config, error) {
	extent, err := ParseExtent(v.GetString("MAP_EXTENT"))
	if err != nil {
		return nil, fmt.Errorf("MAP_EXTENT: %w", err)
	}
	palette, err := ParsePalette(v.GetString("MAP_PALETTE"))
	if err != nil {
		return nil, fmt.Errorf("MAP_PALETTE: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:        v.GetString("API_HOST"),
			Port:        v.GetInt("API_PORT"),
			Env:         v.GetString("API_ENV"),
			CORSOrigins: v.GetString("API_CORS_ORIGINS"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("DB_HOST"),
			Port:            v.GetInt("DB_PORT"),
			User:            v.GetString("DB_USER"),
			Password:        v.GetString("DB_PASSWORD"),
			DBName:          v.GetString("DB_NAME"),
			SSLMode:         v.GetString("DB_SSLMODE"),
			MaxConns:        v.GetInt("DB_MAX_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: time.Duration(v.GetInt("DB_CONN_MAX_LIFETIME")) * time.Second,
			ConnMaxIdleTime: time.Duration(v.GetInt("DB_CONN_MAX_IDLE_TIME")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetInt("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Cache: CacheConfig{
			PermitsCacheTTL: time.Duration(v.GetInt("PERMITS_CACHE_TTL")) * time.Second,
			SearchCacheTTL:  time.Duration(v.GetInt("SEARCH_CACHE_TTL")) * time.Second,
			SearchLimit:     v.GetInt("SEARCH_LIMIT"),
		},
		Log: LogConfig{
			Level: v.GetString("LOG_LEVEL"),
		},
		Worker: WorkerConfig{
			Enabled:           v.GetBool("WORKER_ENABLED"),
			ConsumerGroup:     v.GetString("WORKER_CONSUMER_GROUP"),
			StreamReadTimeout: time.Duration(v.GetInt("WORKER_STREAM_READ_TIMEOUT")) * time.Millisecond,
			MaxRetries:        v.GetInt("WORKER_MAX_RETRIES"),
			BatchSize:         v.GetInt("WORKER_BATCH_SIZE"),
			ImportDir:         v.GetString("IMPORT_DIR"),
		},
		Map: MapConfig{
			Zoom:          v.GetInt("MAP_ZOOM"),
			Extent:        extent,
			FillOpacity:   v.GetFloat64("MAP_FILL_OPACITY"),
			LookupTimeout: time.Duration(v.GetInt("MAP_LOOKUP_TIMEOUT")) * time.Second,
			Palette:       palette,
			Fallback:      v.GetString("MAP_PALETTE_FALLBACK"),
		},
		Session: SessionConfig{
			IdleTTL:       time.Duration(v.GetInt("SESSION_IDLE_TTL")) * time.Second,
			SweepInterval: time.Duration(v.GetInt("SESSION_SWEEP_INTERVAL")) * time.Second,
		},
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("API_HOST", "0.0.0.0")
	v.SetDefault("API_PORT", 8080)
	v.SetDefault("API_ENV", "production")
	v.SetDefault("API_CORS_ORIGINS", "*")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", 3600)
	v.SetDefault("DB_CONN_MAX_IDLE_TIME", 600)
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("PERMITS_CACHE_TTL", 3600)
	v.SetDefault("SEARCH_CACHE_TTL", 300)
	v.SetDefault("SEARCH_LIMIT", 50)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("WORKER_CONSUMER_GROUP", "permit-import-workers")
	v.SetDefault("WORKER_STREAM_READ_TIMEOUT", 5000)
	v.SetDefault("WORKER_MAX_RETRIES", 3)
	v.SetDefault("WORKER_BATCH_SIZE", 10)
	v.SetDefault("MAP_ZOOM", 15)
	v.SetDefault("MAP_FILL_OPACITY", 0.5)
	v.SetDefault("MAP_LOOKUP_TIMEOUT", 10)
	v.SetDefault("MAP_PALETTE_FALLBACK", "#9e9e9e")
	v.SetDefault("SESSION_IDLE_TTL", 1800)
	v.SetDefault("SESSION_SWEEP_INTERVAL", 60)
}

func isMissingFile(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}

// ParseExtent разбирает "minLon,minLat,maxLon,maxLat"; пустая строка - DefaultExtent
func ParseExtent(s string) (orb.Bound, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultExtent, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return orb.Bound{}, fmt.Errorf("expected 4 comma separated values, got %d", len(parts))
	}
	var vals [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return orb.Bound{}, fmt.Errorf("invalid number %q: %w", p, err)
		}
		vals[i] = f
	}
	if vals[0] > vals[2] || vals[1] > vals[3] {
		return orb.Bound{}, fmt.Errorf("min corner exceeds max corner")
	}
	return orb.Bound{
		Min: orb.Point{vals[0], vals[1]},
		Max: orb.Point{vals[2], vals[3]},
	}, nil
}

// ParsePalette разбирает "Категория=#цвет;Категория=#цвет"
func ParsePalette(s string) (map[string]string, error) {
	palette := make(map[string]string)
	for _, entry := range strings.Split(s, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, color, ok := strings.Cut(entry, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid palette entry %q", entry)
		}
		palette[strings.TrimSpace(name)] = strings.TrimSpace(color)
	}
	return palette, nil
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.SSLMode,
	)
}

func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}
