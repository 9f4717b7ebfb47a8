package config

import (
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Google   GoogleConfig
	Kafka    KafkaConfig
	MinIO    MinIOConfig
}

var (
	configInstance *Config
	once           sync.Once
)

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	URI          string
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
	MinIdleConns int
}

type JWTConfig struct {
	Secret         string
	ExpirationTime time.Duration
}

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	DeveloperKey string
	AppID        string
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

func LoadConfig() (*Config, error) {
	once.Do(func() {
		// .env is optional; real deployments inject the environment
		godotenv.Load()

		viper.SetDefault("NORTH_HOST", "")
		viper.SetDefault("NORTH_PORT", "8000")
		viper.SetDefault("NORTH_READ_TIMEOUT", 30*time.Second)
		viper.SetDefault("NORTH_WRITE_TIMEOUT", 30*time.Second)
		viper.SetDefault("NORTH_IDLE_TIMEOUT", 60*time.Second)
		viper.SetDefault("NORTH_JWT_SECRET", "secret")
		viper.SetDefault("NORTH_JWT_EXPIRE", "24h")
		viper.SetDefault("POSTGRES_USER", "postgres")
		viper.SetDefault("POSTGRES_PASSWORD", "password")
		viper.SetDefault("POSTGRES_HOST", "localhost")
		viper.SetDefault("POSTGRES_PORT", "5432")
		viper.SetDefault("POSTGRES_DB", "postgres")
		viper.SetDefault("POSTGRES_SSLMODE", "disable")
		viper.SetDefault("REDIS_URL", "redis://127.0.0.1:6379/0")
		viper.SetDefault("REDIS_MAX_RETRIES", 3)
		viper.SetDefault("REDIS_POOL_SIZE", 100)
		viper.SetDefault("REDIS_MIN_IDLE_CONNS", 10)
		viper.SetDefault("REDIS_DIAL_TIMEOUT", 5*time.Second)
		viper.SetDefault("REDIS_READ_TIMEOUT", 3*time.Second)
		viper.SetDefault("REDIS_WRITE_TIMEOUT", 3*time.Second)
		viper.SetDefault("GOOGLE_REDIRECT_URI", "http://localhost:8000/api/v1/auth/google/callback")
		viper.SetDefault("GOOGLE_OAUTH_SCOPES", "openid email profile https://www.googleapis.com/auth/drive")
		viper.SetDefault("KAFKA_BROKERS", "")
		viper.SetDefault("KAFKA_TOPIC", "chat-messages")
		viper.SetDefault("MINIO_ENDPOINT", "")
		viper.SetDefault("MINIO_BUCKET", "drive-staging")
		viper.SetDefault("MINIO_USE_SSL", false)
		viper.AutomaticEnv()

		configInstance = &Config{
			Server: ServerConfig{
				Host:         viper.GetString("NORTH_HOST"),
				Port:         viper.GetString("NORTH_PORT"),
				ReadTimeout:  viper.GetDuration("NORTH_READ_TIMEOUT"),
				WriteTimeout: viper.GetDuration("NORTH_WRITE_TIMEOUT"),
				IdleTimeout:  viper.GetDuration("NORTH_IDLE_TIMEOUT"),
			},
			Database: DatabaseConfig{
				Host:     viper.GetString("POSTGRES_HOST"),
				Port:     viper.GetString("POSTGRES_PORT"),
				User:     viper.GetString("POSTGRES_USER"),
				Password: viper.GetString("POSTGRES_PASSWORD"),
				DBName:   viper.GetString("POSTGRES_DB"),
				SSLMode:  viper.GetString("POSTGRES_SSLMODE"),
			},
			Redis: RedisConfig{
				URI:          viper.GetString("REDIS_URL"),
				MaxRetries:   viper.GetInt("REDIS_MAX_RETRIES"),
				DialTimeout:  viper.GetDuration("REDIS_DIAL_TIMEOUT"),
				ReadTimeout:  viper.GetDuration("REDIS_READ_TIMEOUT"),
				WriteTimeout: viper.GetDuration("REDIS_WRITE_TIMEOUT"),
				PoolSize:     viper.GetInt("REDIS_POOL_SIZE"),
				MinIdleConns: viper.GetInt("REDIS_MIN_IDLE_CONNS"),
			},
			JWT: JWTConfig{
				Secret:         viper.GetString("NORTH_JWT_SECRET"),
				ExpirationTime: viper.GetDuration("NORTH_JWT_EXPIRE"),
			},
			Google: GoogleConfig{
				ClientID:     viper.GetString("GOOGLE_OAUTH_CLIENT_ID"),
				ClientSecret: viper.GetString("GOOGLE_OAUTH_CLIENT_SECRET"),
				RedirectURL:  viper.GetString("GOOGLE_REDIRECT_URI"),
				Scopes:       strings.Fields(viper.GetString("GOOGLE_OAUTH_SCOPES")),
				DeveloperKey: viper.GetString("GOOGLE_DEVELOPER_KEY"),
				AppID:        viper.GetString("GOOGLE_APP_ID"),
			},
			Kafka: KafkaConfig{
				Brokers: splitNonEmpty(viper.GetString("KAFKA_BROKERS")),
				Topic:   viper.GetString("KAFKA_TOPIC"),
			},
			MinIO: MinIOConfig{
				Endpoint:  viper.GetString("MINIO_ENDPOINT"),
				AccessKey: viper.GetString("MINIO_ACCESS_KEY"),
				SecretKey: viper.GetString("MINIO_SECRET_KEY"),
				Bucket:    viper.GetString("MINIO_BUCKET"),
				UseSSL:    viper.GetBool("MINIO_USE_SSL"),
			},
		}
	})

	return configInstance, nil
}

func splitNonEmpty(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
