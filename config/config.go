package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	MQTT      MQTTConfig
	Detection DetectionConfig
	JWT       JWTConfig
	CORS      CORSConfig
}

type ServerConfig struct {
	Port        int
	MetricsAddr string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type MQTTConfig struct {
	BrokerURL      string
	ClientIDPrefix string
	TelemetryTopic string
	AlertTopic     string
	StatusTopic    string
	QoS            byte
	ConnectRetries int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
}

// DetectionConfig is the tuning surface of the violation pipeline.
type DetectionConfig struct {
	SpeedLimitKMH        float64
	ConsecutiveThreshold int
	SuppressionWindow    time.Duration
	HistorySize          int
	StateEvictionAge     time.Duration
	EvictionSweepEvery   time.Duration
	ShutdownGrace        time.Duration
}

type JWTConfig struct {
	Secret      string
	ExpiryHours int
}

type CORSConfig struct {
	AllowedOrigins string
}

func (d DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// GetPoolDSN is the URL form expected by pgxpool.
func (d DatabaseConfig) GetPoolDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

func LoadConfig() (*Config, error) {
	serverPort, err := getIntEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	dbPort, err := getIntEnv("DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	redisPort, err := getIntEnv("REDIS_PORT", 6379)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_PORT: %w", err)
	}

	redisDB, err := getIntEnv("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	jwtExpiry, err := getIntEnv("JWT_EXPIRY_HOURS", 24)
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRY_HOURS: %w", err)
	}

	mqttQoS, err := getIntEnv("MQTT_QOS", 1)
	if err != nil {
		return nil, fmt.Errorf("invalid MQTT_QOS: %w", err)
	}
	if mqttQoS < 0 || mqttQoS > 2 {
		return nil, fmt.Errorf("invalid MQTT_QOS: %d not in 0..2", mqttQoS)
	}

	connectRetries, err := getIntEnv("MQTT_CONNECT_RETRIES", 8)
	if err != nil {
		return nil, fmt.Errorf("invalid MQTT_CONNECT_RETRIES: %w", err)
	}

	speedLimit, err := getFloatEnv("SPEED_LIMIT_KMH", 60)
	if err != nil {
		return nil, fmt.Errorf("invalid SPEED_LIMIT_KMH: %w", err)
	}

	consecutiveThreshold, err := getIntEnv("CONSECUTIVE_THRESHOLD", 3)
	if err != nil {
		return nil, fmt.Errorf("invalid CONSECUTIVE_THRESHOLD: %w", err)
	}

	suppressionMS, err := getIntEnv("SUPPRESSION_WINDOW_MS", 30000)
	if err != nil {
		return nil, fmt.Errorf("invalid SUPPRESSION_WINDOW_MS: %w", err)
	}

	historySize, err := getIntEnv("HISTORY_SIZE", 10)
	if err != nil {
		return nil, fmt.Errorf("invalid HISTORY_SIZE: %w", err)
	}

	evictionAgeMin, err := getIntEnv("STATE_EVICTION_AGE_MIN", 60)
	if err != nil {
		return nil, fmt.Errorf("invalid STATE_EVICTION_AGE_MIN: %w", err)
	}

	sweepSec, err := getIntEnv("EVICTION_SWEEP_SEC", 300)
	if err != nil {
		return nil, fmt.Errorf("invalid EVICTION_SWEEP_SEC: %w", err)
	}

	graceSec, err := getIntEnv("SHUTDOWN_GRACE_SEC", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_GRACE_SEC: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:        serverPort,
			MetricsAddr: getEnv("METRICS_ADDR", ":8081"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("DB_USER", "speedguard"),
			Password: getEnv("DB_PASSWORD", "speedguard_dev_password"),
			Name:     getEnv("DB_NAME", "speedguard"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     redisPort,
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		MQTT: MQTTConfig{
			BrokerURL:      getEnv("MQTT_URL", "tcp://localhost:1883"),
			ClientIDPrefix: getEnv("MQTT_CLIENT_ID_PREFIX", "speedguard-ingestor"),
			TelemetryTopic: getEnv("MQTT_TELEMETRY_TOPIC", "speedguard/telemetry/+"),
			AlertTopic:     getEnv("MQTT_ALERT_TOPIC", "speedguard/alerts"),
			StatusTopic:    getEnv("MQTT_STATUS_TOPIC", "speedguard/ingestor/status"),
			QoS:            byte(mqttQoS),
			ConnectRetries: connectRetries,
			RetryBaseDelay: time.Second,
			RetryMaxDelay:  30 * time.Second,
		},
		Detection: DetectionConfig{
			SpeedLimitKMH:        speedLimit,
			ConsecutiveThreshold: consecutiveThreshold,
			SuppressionWindow:    time.Duration(suppressionMS) * time.Millisecond,
			HistorySize:          historySize,
			StateEvictionAge:     time.Duration(evictionAgeMin) * time.Minute,
			EvictionSweepEvery:   time.Duration(sweepSec) * time.Second,
			ShutdownGrace:        time.Duration(graceSec) * time.Second,
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "dev-secret-change-me"),
			ExpiryHours: jwtExpiry,
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
		},
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getIntEnv(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

func getFloatEnv(key string, fallback float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}
