package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server
	ServerPort     string
	ServerHost     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestBody int64
	StaticDir      string
	RateLimitRPS   int
	RateLimitBurst int

	// Model store
	ModelDir    string
	DatasetPath string

	// Interactive client
	PredictURL     string
	PredictTimeout time.Duration

	// Training
	SearchSpacePath  string
	RandomSeed       int64
	SearchIterations int
	CVFolds          int
	TestSize         float64
	TrainingWorkers  int

	// Database
	PostgresEnabled  bool
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Redis
	RedisEnabled       bool
	RedisHost          string
	RedisPort          string
	RedisPassword      string
	RedisDB            int
	PredictionCacheTTL time.Duration

	// Kafka
	KafkaEnabled       bool
	KafkaBrokers       []string
	KafkaTrainingTopic string
}

func Load() *Config {
	return &Config{
		ServerPort:     getEnv("SERVER_PORT", "5000"),
		ServerHost:     getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:    getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:   getDuration("WRITE_TIMEOUT", 30*time.Second),
		MaxRequestBody: int64(getIntEnv("MAX_REQUEST_BODY_BYTES", 1024*1024)),
		StaticDir:      getEnv("STATIC_DIR", "static"),
		RateLimitRPS:   getIntEnv("RATE_LIMIT_RPS", 0),
		RateLimitBurst: getIntEnv("RATE_LIMIT_BURST", 100),

		ModelDir:    getEnv("MODEL_DIR", "diet_model"),
		DatasetPath: getEnv("DATASET_PATH", "Personalized_Diet_Recommendations.csv"),

		PredictURL:     getEnv("PREDICT_URL", ""),
		PredictTimeout: getDuration("PREDICT_TIMEOUT", 10*time.Second),

		SearchSpacePath:  getEnv("SEARCH_SPACE_PATH", ""),
		RandomSeed:       int64(getIntEnv("RANDOM_SEED", 42)),
		SearchIterations: getIntEnv("SEARCH_ITERATIONS", 15),
		CVFolds:          getIntEnv("CV_FOLDS", 3),
		TestSize:         getFloatEnv("TEST_SIZE", 0.2),
		TrainingWorkers:  getIntEnv("TRAINING_WORKERS", 4),

		PostgresEnabled:  getBoolEnv("POSTGRES_ENABLED", false),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "cureconnect"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "cureconnect"),
		PostgresDB:       getEnv("POSTGRES_DB", "cureconnect"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisEnabled:       getBoolEnv("REDIS_ENABLED", false),
		RedisHost:          getEnv("REDIS_HOST", "localhost"),
		RedisPort:          getEnv("REDIS_PORT", "6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:            getIntEnv("REDIS_DB", 0),
		PredictionCacheTTL: getDuration("PREDICTION_CACHE_TTL", 10*time.Minute),

		KafkaEnabled:       getBoolEnv("KAFKA_ENABLED", false),
		KafkaBrokers:       getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaTrainingTopic: getEnv("KAFKA_TRAINING_TOPIC", "diet.training"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var out []string
		for _, part := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
