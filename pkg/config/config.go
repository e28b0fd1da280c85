package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database     DatabaseConfig
	Redis        RedisConfig
	Kafka        KafkaConfig
	ReportServer ReportServerConfig
	Refresh      RefreshConfig
	Quality      QualityConfig
	Masking      MaskingConfig
	SMTP         SMTPConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func (d DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers       []string
	TopicFeed     string
	TopicAlerts   string
	NumPartitions int
}

type ReportServerConfig struct {
	Port         int
	MaxSessions  int
	HelloTimeout time.Duration
	IdleTimeout  time.Duration
}

type RefreshConfig struct {
	DailyTime string
}

type QualityConfig struct {
	CheckInterval time.Duration
}

type MaskingConfig struct {
	RolesFile string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	config := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "salesweather_user"),
			Password: getEnv("DB_PASSWORD", "salesweather_pass"),
			DBName:   getEnv("DB_NAME", "salesweather_db"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers:       strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			TopicFeed:     getEnv("KAFKA_TOPIC_FEED", "marketplace.feed.raw"),
			TopicAlerts:   getEnv("KAFKA_TOPIC_ALERTS", "quality.alerts"),
			NumPartitions: getEnvAsInt("KAFKA_NUM_PARTITIONS", 10),
		},
		ReportServer: ReportServerConfig{
			Port:         getEnvAsInt("REPORT_PORT", 8080),
			MaxSessions:  getEnvAsInt("REPORT_MAX_SESSIONS", 500),
			HelloTimeout: getEnvAsDuration("REPORT_HELLO_TIMEOUT", 10*time.Second),
			IdleTimeout:  getEnvAsDuration("REPORT_IDLE_TIMEOUT", 5*time.Minute),
		},
		Refresh: RefreshConfig{
			DailyTime: getEnv("REFRESH_DAILY_TIME", "00:15"),
		},
		Quality: QualityConfig{
			CheckInterval: getEnvAsDuration("QUALITY_CHECK_INTERVAL", 5*time.Minute),
		},
		Masking: MaskingConfig{
			RolesFile: getEnv("MASKING_ROLES_FILE", "roles.json"),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", "smtp.gmail.com"),
			Port:     getEnvAsInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "salesweather@example.com"),
			To:       getEnv("SMTP_TO", "data-team@example.com"),
		},
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
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

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
