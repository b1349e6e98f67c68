package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Redis     RedisConfig
	Pricing   PricingConfig
	Scheduler SchedulerConfig
	ML        MLConfig
}

type AppConfig struct {
	Name        string
	Version     string
	Environment string
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type JWTConfig struct {
	SecretKey string
}

type RedisConfig struct {
	Enabled       bool
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
}

type PricingConfig struct {
	RulesPath string
}

type SchedulerConfig struct {
	Interval      time.Duration
	CycleBudget   time.Duration
	DaysThreshold int
}

type MLConfig struct {
	ModelPath    string
	DiscountMin  float64
	DiscountMax  float64
	DiscountStep float64
	TopK         int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, errors.New("invalid redis database")
	}

	interval, err := time.ParseDuration(getEnv("RECOMPUTE_INTERVAL", "1h"))
	if err != nil {
		return nil, errors.New("invalid recompute interval")
	}

	cycleBudget, err := time.ParseDuration(getEnv("RECOMPUTE_CYCLE_BUDGET", "25m"))
	if err != nil {
		return nil, errors.New("invalid recompute cycle budget")
	}

	daysThreshold, err := strconv.Atoi(getEnv("EXPIRY_THRESHOLD_DAYS", "30"))
	if err != nil {
		return nil, errors.New("invalid expiry threshold days")
	}

	topK, err := strconv.Atoi(getEnv("ML_TOP_K", "3"))
	if err != nil {
		return nil, errors.New("invalid ml top k")
	}

	cfg := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "FlexiPrice API"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
			Environment: getEnv("APP_ENV", "development"),
		},
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "flexiprice"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		JWT: JWTConfig{
			SecretKey: getEnv("JWT_SECRET", ""),
		},
		Redis: RedisConfig{
			Enabled:       getEnv("REDIS_ENABLED", "false") == "true",
			RedisHost:     getEnv("REDIS_HOST", "localhost"),
			RedisPort:     getEnv("REDIS_PORT", "6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       redisDB,
		},
		Pricing: PricingConfig{
			RulesPath: getEnv("DISCOUNT_RULES_PATH", "config/discount_rules.yaml"),
		},
		Scheduler: SchedulerConfig{
			Interval:      interval,
			CycleBudget:   cycleBudget,
			DaysThreshold: daysThreshold,
		},
		ML: MLConfig{
			ModelPath:    getEnv("ML_MODEL_PATH", "ml_models/purchase_model.json"),
			DiscountMin:  getEnvFloat("ML_DISCOUNT_MIN", 0),
			DiscountMax:  getEnvFloat("ML_DISCOUNT_MAX", 80),
			DiscountStep: getEnvFloat("ML_DISCOUNT_STEP", 5),
			TopK:         topK,
		},
	}

	if cfg.JWT.SecretKey == "" {
		return nil, errors.New("missing jwt secret")
	}

	if cfg.Database.Password == "" {
		return nil, errors.New("missing database password")
	}

	if cfg.Scheduler.DaysThreshold <= 0 {
		return nil, errors.New("expiry threshold days must be positive")
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}

	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return defaultVal
	}

	return f
}
