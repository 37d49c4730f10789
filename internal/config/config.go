// backend-go/internal/config/config.go
package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Cache     CacheConfig
	Optimizer OptimizerConfig
	ERP       ERPConfig
	Storage   StorageConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN renders the lib/pq keyword/value connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

type CacheConfig struct {
	Enabled          bool
	RedisURL         string
	RedisHost        string
	RedisPort        string
	RedisPassword    string
	RedisDB          int
	DemandTTLSeconds int
}

type OptimizerConfig struct {
	MaxEvaluations     int
	MaxNodes           int
	MaxVariables       int
	TimeoutSeconds     int
	RecentWindowHours  int
	BatchConcurrency   int
	RoutingDataFromERP bool
}

// Timeout is zero when no per-call limit is configured.
func (o OptimizerConfig) Timeout() time.Duration {
	return time.Duration(o.TimeoutSeconds) * time.Second
}

func (o OptimizerConfig) RecentWindow() time.Duration {
	return time.Duration(o.RecentWindowHours) * time.Hour
}

type ERPConfig struct {
	Enabled        bool
	BaseURL        string
	TokenURL       string
	ClientID       string
	ClientSecret   string
	InferenceURL   string
	TimeoutSeconds int
}

type StorageConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		v := viper.GetViper()
		SetDefaults(v)

		// Read from environment variables
		v.AutomaticEnv()

		instance = FromViper(v)
	})

	return instance
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_MODE", "debug")
	v.SetDefault("SERVER_READ_TIMEOUT", 30)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 60)
	v.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "replenish")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_HOST", "127.0.0.1")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_DEMAND_TTL_SECONDS", 3600)
	v.SetDefault("OPTIMIZER_MAX_EVALUATIONS", 20000)
	v.SetDefault("OPTIMIZER_MAX_NODES", 5000)
	v.SetDefault("OPTIMIZER_MAX_VARIABLES", 4000)
	v.SetDefault("OPTIMIZER_TIMEOUT_SECONDS", 30)
	v.SetDefault("OPTIMIZER_RECENT_WINDOW_HOURS", 10)
	v.SetDefault("OPTIMIZER_BATCH_CONCURRENCY", 4)
	v.SetDefault("OPTIMIZER_ROUTING_FROM_ERP", false)
	v.SetDefault("ERP_ENABLED", false)
	v.SetDefault("ERP_BASE_URL", "")
	v.SetDefault("ERP_TOKEN_URL", "")
	v.SetDefault("ERP_CLIENT_ID", "")
	v.SetDefault("ERP_CLIENT_SECRET", "")
	v.SetDefault("ERP_INFERENCE_URL", "")
	v.SetDefault("ERP_TIMEOUT_SECONDS", 15)
	v.SetDefault("STORAGE_ENABLED", false)
	v.SetDefault("STORAGE_ENDPOINT", "")
	v.SetDefault("STORAGE_ACCESS_KEY", "")
	v.SetDefault("STORAGE_SECRET_KEY", "")
	v.SetDefault("STORAGE_BUCKET", "optimization-reports")
	v.SetDefault("STORAGE_REGION", "us-east-1")
	v.SetDefault("STORAGE_USE_SSL", true)
}

func FromViper(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Port:           v.GetString("SERVER_PORT"),
			Mode:           v.GetString("SERVER_MODE"),
			ReadTimeout:    v.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   v.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: v.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		Cache: CacheConfig{
			Enabled:          v.GetBool("CACHE_ENABLED"),
			RedisURL:         v.GetString("REDIS_URL"),
			RedisHost:        v.GetString("REDIS_HOST"),
			RedisPort:        v.GetString("REDIS_PORT"),
			RedisPassword:    v.GetString("REDIS_PASSWORD"),
			RedisDB:          v.GetInt("REDIS_DB"),
			DemandTTLSeconds: v.GetInt("CACHE_DEMAND_TTL_SECONDS"),
		},
		Optimizer: OptimizerConfig{
			MaxEvaluations:     v.GetInt("OPTIMIZER_MAX_EVALUATIONS"),
			MaxNodes:           v.GetInt("OPTIMIZER_MAX_NODES"),
			MaxVariables:       v.GetInt("OPTIMIZER_MAX_VARIABLES"),
			TimeoutSeconds:     v.GetInt("OPTIMIZER_TIMEOUT_SECONDS"),
			RecentWindowHours:  v.GetInt("OPTIMIZER_RECENT_WINDOW_HOURS"),
			BatchConcurrency:   v.GetInt("OPTIMIZER_BATCH_CONCURRENCY"),
			RoutingDataFromERP: v.GetBool("OPTIMIZER_ROUTING_FROM_ERP"),
		},
		ERP: ERPConfig{
			Enabled:        v.GetBool("ERP_ENABLED"),
			BaseURL:        v.GetString("ERP_BASE_URL"),
			TokenURL:       v.GetString("ERP_TOKEN_URL"),
			ClientID:       v.GetString("ERP_CLIENT_ID"),
			ClientSecret:   v.GetString("ERP_CLIENT_SECRET"),
			InferenceURL:   v.GetString("ERP_INFERENCE_URL"),
			TimeoutSeconds: v.GetInt("ERP_TIMEOUT_SECONDS"),
		},
		Storage: StorageConfig{
			Enabled:   v.GetBool("STORAGE_ENABLED"),
			Endpoint:  v.GetString("STORAGE_ENDPOINT"),
			AccessKey: v.GetString("STORAGE_ACCESS_KEY"),
			SecretKey: v.GetString("STORAGE_SECRET_KEY"),
			Bucket:    v.GetString("STORAGE_BUCKET"),
			Region:    v.GetString("STORAGE_REGION"),
			UseSSL:    v.GetBool("STORAGE_USE_SSL"),
		},
	}
}
