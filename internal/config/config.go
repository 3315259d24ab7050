package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App struct {
		Port string `mapstructure:"port"`
		Env  string `mapstructure:"env"`
	} `mapstructure:"app"`
	DB struct {
		DSN           string `mapstructure:"dsn"`
		MigrationsURL string `mapstructure:"migrations_url"`
	} `mapstructure:"db"`
	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
	} `mapstructure:"redis"`
	Kafka struct {
		Brokers []string `mapstructure:"brokers"`
		GroupID string   `mapstructure:"group_id"`
	} `mapstructure:"kafka"`
	Auth struct {
		JWTSecret     string        `mapstructure:"jwt_secret"`
		TokenLifespan time.Duration `mapstructure:"token_lifespan"`
	} `mapstructure:"auth"`
	Cloudinary struct {
		CloudName string `mapstructure:"cloud_name"`
		ApiKey    string `mapstructure:"api_key"`
		ApiSecret string `mapstructure:"api_secret"`
	} `mapstructure:"cloudinary"`
	Jaeger struct {
		OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	} `mapstructure:"jaeger"`
	Ledger LedgerConfig `mapstructure:"ledger"`
}

type LedgerConfig struct {
	// Arbiter is the ledger owner; only it may resolve disputes.
	Arbiter        string `mapstructure:"arbiter"`
	DefaultToken   string `mapstructure:"default_token"`
	FeedbackPolicy string `mapstructure:"feedback_policy"`
	DisputeRaisers string `mapstructure:"dispute_raisers"`
	// ConfirmationWindow overrides the 30-day window. Zero keeps the default.
	ConfirmationWindow time.Duration `mapstructure:"confirmation_window"`
	MinRating          int           `mapstructure:"min_rating"`
	MaxRating          int           `mapstructure:"max_rating"`
}

// LoadConfig reads .env, then <path>/config.yaml, then the environment. Later sources win.
func LoadConfig(path string) (cfg Config, err error) {
	if path == "" {
		path = "."
	}

	err = godotenv.Load(path + "/.env")
	if err != nil {
		log.Println("warning: .env file not found, use default.")
	}

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if err = v.ReadInConfig(); err != nil {
		log.Printf("note: config.yaml not found, read .env only. Error: %v", err)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("app.port", "8080")
	v.SetDefault("app.env", "development")
	v.SetDefault("db.migrations_url", "file://migrations")
	v.SetDefault("kafka.group_id", "ledger-projector-group")
	v.SetDefault("auth.token_lifespan", 24*time.Hour)
	v.SetDefault("ledger.default_token", "0x0000000000000000000000000000000000000000")
	v.SetDefault("ledger.feedback_policy", "completed")
	v.SetDefault("ledger.dispute_raisers", "either")
	v.SetDefault("ledger.min_rating", 1)
	v.SetDefault("ledger.max_rating", 5)

	v.BindEnv("app.port", "APP_PORT")
	v.BindEnv("app.env", "APP_ENV")
	v.BindEnv("db.dsn", "DB_DSN")
	v.BindEnv("db.migrations_url", "DB_MIGRATIONS_URL")
	v.BindEnv("redis.addr", "REDIS_ADDR")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("kafka.group_id", "KAFKA_GROUP_ID")
	v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	v.BindEnv("auth.token_lifespan", "TOKEN_LIFESPAN")

	v.BindEnv("cloudinary.cloud_name", "CLOUDINARY_CLOUD_NAME")
	v.BindEnv("cloudinary.api_key", "CLOUDINARY_API_KEY")
	v.BindEnv("cloudinary.api_secret", "CLOUDINARY_API_SECRET")

	v.BindEnv("jaeger.otlp_endpoint", "JAEGER_OTLP_ENDPOINT")

	v.BindEnv("ledger.arbiter", "LEDGER_ARBITER")
	v.BindEnv("ledger.default_token", "LEDGER_DEFAULT_TOKEN")
	v.BindEnv("ledger.feedback_policy", "LEDGER_FEEDBACK_POLICY")
	v.BindEnv("ledger.dispute_raisers", "LEDGER_DISPUTE_RAISERS")
	v.BindEnv("ledger.confirmation_window", "LEDGER_CONFIRMATION_WINDOW")

	if err = v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal config: %w", err)
	}

	// KAFKA_BROKERS arrives as a single comma separated string from the environment.
	if len(cfg.Kafka.Brokers) == 1 && strings.Contains(cfg.Kafka.Brokers[0], ",") {
		cfg.Kafka.Brokers = strings.Split(cfg.Kafka.Brokers[0], ",")
	}

	err = cfg.Validate()
	return
}

func (c *Config) Validate() error {
	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}
	switch c.Ledger.FeedbackPolicy {
	case "completed", "settled":
	default:
		return fmt.Errorf("ledger.feedback_policy must be 'completed' or 'settled', got %q", c.Ledger.FeedbackPolicy)
	}
	switch c.Ledger.DisputeRaisers {
	case "requester", "freelancer", "either":
	default:
		return fmt.Errorf("ledger.dispute_raisers must be 'requester', 'freelancer' or 'either', got %q", c.Ledger.DisputeRaisers)
	}
	if c.Ledger.MinRating > c.Ledger.MaxRating {
		return fmt.Errorf("ledger.min_rating must not exceed ledger.max_rating")
	}
	return nil
}
