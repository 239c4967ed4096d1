package config

import (
	"fmt"
	"os"
	"strings"
)

type Config struct {
	ServerPort string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// RedisAddr empty disables the customer event consumer.
	RedisAddr      string
	RedisPassword  string
	CustomerStream string
	ConsumerGroup  string
	// ConsumerName must be stable across restarts so pending stream entries
	// stay claimable; empty derives one from the hostname.
	ConsumerName string
}

// Load reads configuration from the environment, falling back to local
// development defaults.
func Load() *Config {
	return &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "password"),
		DBName:     getEnv("DB_NAME", "accounts"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		RedisAddr:      getEnv("REDIS_ADDR", ""),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		CustomerStream: getEnv("CUSTOMER_EVENTS_STREAM", "customer.events"),
		ConsumerGroup:  getEnv("CONSUMER_GROUP", "account-service-group"),
		ConsumerName:   getEnv("CONSUMER_NAME", ""),
	}
}

func (c *Config) GetDBConnectionString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}
