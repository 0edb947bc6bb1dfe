package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config представляет структуру конфигурации для приложения.
type Config struct {
	App struct {
		Port            string        `mapstructure:"port"`
		Env             string        `mapstructure:"env"`
		LogLevel        string        `mapstructure:"logLevel"`
		ReadTimeout     time.Duration `mapstructure:"readTimeout"`
		WriteTimeout    time.Duration `mapstructure:"writeTimeout"`
		ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout"`
	} `mapstructure:"app"`
	Database struct {
		DSN            string `mapstructure:"dsn"`
		MigrationsAuto bool   `mapstructure:"migrationsAuto"`
	} `mapstructure:"database"`
	Redis struct {
		Addr     string        `mapstructure:"addr"`
		Password string        `mapstructure:"password"`
		DB       int           `mapstructure:"db"`
		TTL      time.Duration `mapstructure:"ttl"`
	} `mapstructure:"redis"`
	Kafka struct {
		Brokers []string `mapstructure:"brokers"`
	} `mapstructure:"kafka"`
	Stripe struct {
		APIKey        string `mapstructure:"apiKey"`
		WebhookSecret string `mapstructure:"webhookSecret"`
	} `mapstructure:"stripe"`
	GRPC struct {
		Port string `mapstructure:"port"`
	} `mapstructure:"grpc"`
	Auth struct {
		JWTSecret  string `mapstructure:"jwtSecret"`
		AdminScope string `mapstructure:"adminScope"`
	} `mapstructure:"auth"`
	Seats struct {
		RenewalWindowDays int `mapstructure:"renewalWindowDays"`
	} `mapstructure:"seats"`
	Redemption struct {
		FreePlanID        string        `mapstructure:"freePlanId"`
		OrphanTimeout     time.Duration `mapstructure:"orphanTimeout"`
		OrphanMaxAge      time.Duration `mapstructure:"orphanMaxAge"`
		ReconcileSchedule string        `mapstructure:"reconcileSchedule"`
	} `mapstructure:"redemption"`
	Payments struct {
		MaxFetch int `mapstructure:"maxFetch"`
		PageSize int `mapstructure:"pageSize"`
	} `mapstructure:"payments"`
}

// LoadConfig загружает конфигурацию из config.yml, .env и переменных окружения.
// Переменные окружения перекрывают файл: app.port -> APP_PORT.
func LoadConfig(envPath string) (*Config, error) {
	if os.Getenv("APP_ENV") != "production" && envPath != "" {
		// .env необязателен при локальном запуске
		if err := godotenv.Load(envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.logLevel", "info")
	v.SetDefault("app.readTimeout", 10*time.Second)
	v.SetDefault("app.writeTimeout", 10*time.Second)
	v.SetDefault("app.shutdownTimeout", 10*time.Second)
	v.SetDefault("database.migrationsAuto", true)
	v.SetDefault("redis.ttl", 5*time.Minute)
	v.SetDefault("grpc.port", "50051")
	v.SetDefault("auth.adminScope", "admin")
	v.SetDefault("seats.renewalWindowDays", 30)
	v.SetDefault("redemption.freePlanId", "free")
	v.SetDefault("redemption.orphanTimeout", 15*time.Minute)
	v.SetDefault("redemption.orphanMaxAge", 24*time.Hour)
	v.SetDefault("redemption.reconcileSchedule", "@every 5m")
	v.SetDefault("payments.maxFetch", 50)
	v.SetDefault("payments.pageSize", 10)
}
