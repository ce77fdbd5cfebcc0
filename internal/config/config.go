package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App struct {
		Port    string `mapstructure:"port"`
		Env     string `mapstructure:"env"`
		BaseURL string `mapstructure:"base_url"`
	} `mapstructure:"app"`
	DB struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"db"`
	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
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
	Storage StorageConfig `mapstructure:"storage"`
	Stripe  struct {
		SecretKey         string        `mapstructure:"secret_key"`
		WebhookSecret     string        `mapstructure:"webhook_secret"`
		Currency          string        `mapstructure:"currency"`
		Timeout           time.Duration `mapstructure:"timeout"`
		MaxNetworkRetries int64         `mapstructure:"max_network_retries"`
	} `mapstructure:"stripe"`
	Purchase struct {
		AwaitWindow       time.Duration `mapstructure:"await_window"`
		AwaitInterval     time.Duration `mapstructure:"await_interval"`
		ChargeTimeout     time.Duration `mapstructure:"charge_timeout"`
		ReconcileInterval time.Duration `mapstructure:"reconcile_interval"`
		ReconcileAfter    time.Duration `mapstructure:"reconcile_after"`
		ReconcileBatch    int           `mapstructure:"reconcile_batch"`
		ReplayWindow      time.Duration `mapstructure:"replay_window"`
		AbandonAfter      time.Duration `mapstructure:"abandon_after"`
	} `mapstructure:"purchase"`
	Jaeger struct {
		OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	} `mapstructure:"jaeger"`
	RateLimit struct {
		Requests int           `mapstructure:"requests"`
		Window   time.Duration `mapstructure:"window"`
		Burst    int           `mapstructure:"burst"`
	} `mapstructure:"ratelimit"`
}

// StorageConfig configures the S3 bucket holding film media.
type StorageConfig struct {
	Bucket     string        `mapstructure:"bucket"`
	Region     string        `mapstructure:"region"`
	Endpoint   string        `mapstructure:"endpoint"`
	LocatorTTL time.Duration `mapstructure:"locator_ttl"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.env", "development")
	v.SetDefault("kafka.group_id", "film-processor-group")
	v.SetDefault("auth.token_lifespan", 24*time.Hour)
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.locator_ttl", time.Hour)
	v.SetDefault("stripe.currency", "usd")
	v.SetDefault("stripe.timeout", 15*time.Second)
	v.SetDefault("stripe.max_network_retries", 2)
	v.SetDefault("purchase.await_window", 10*time.Second)
	v.SetDefault("purchase.await_interval", 200*time.Millisecond)
	v.SetDefault("purchase.charge_timeout", 45*time.Second)
	v.SetDefault("purchase.reconcile_interval", time.Minute)
	v.SetDefault("purchase.reconcile_after", 5*time.Minute)
	v.SetDefault("purchase.reconcile_batch", 50)
	v.SetDefault("purchase.replay_window", 23*time.Hour)
	v.SetDefault("purchase.abandon_after", time.Hour)
	v.SetDefault("ratelimit.requests", 10)
	v.SetDefault("ratelimit.window", time.Minute)
	v.SetDefault("ratelimit.burst", 5)
}

func LoadConfig(path string) (cfg Config, err error) {

	err = godotenv.Load()
	if err != nil {
		log.Println("warning: .env file not found, use default.")
	}

	v := viper.New()
	setDefaults(v)

	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if err = v.ReadInConfig(); err != nil {
		log.Printf("note: config.yaml not found, read .env only. Error: %v", err)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.BindEnv("app.port", "APP_PORT")
	v.BindEnv("app.env", "APP_ENV")
	v.BindEnv("app.base_url", "APP_BASE_URL")
	v.BindEnv("db.dsn", "DB_DSN")
	v.BindEnv("redis.addr", "REDIS_ADDR")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("redis.db", "REDIS_DB")
	v.BindEnv("kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("kafka.group_id", "KAFKA_GROUP_ID")
	v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	v.BindEnv("auth.token_lifespan", "TOKEN_LIFESPAN")

	v.BindEnv("cloudinary.cloud_name", "CLOUDINARY_CLOUD_NAME")
	v.BindEnv("cloudinary.api_key", "CLOUDINARY_API_KEY")
	v.BindEnv("cloudinary.api_secret", "CLOUDINARY_API_SECRET")

	v.BindEnv("storage.bucket", "STORAGE_BUCKET")
	v.BindEnv("storage.region", "STORAGE_REGION")
	v.BindEnv("storage.endpoint", "STORAGE_ENDPOINT")
	v.BindEnv("storage.locator_ttl", "STORAGE_LOCATOR_TTL")

	v.BindEnv("stripe.secret_key", "STRIPE_SECRET_KEY")
	v.BindEnv("stripe.webhook_secret", "STRIPE_WEBHOOK_SECRET")
	v.BindEnv("stripe.currency", "STRIPE_CURRENCY")
	v.BindEnv("stripe.timeout", "STRIPE_TIMEOUT")
	v.BindEnv("stripe.max_network_retries", "STRIPE_MAX_NETWORK_RETRIES")

	v.BindEnv("purchase.await_window", "PURCHASE_AWAIT_WINDOW")
	v.BindEnv("purchase.await_interval", "PURCHASE_AWAIT_INTERVAL")
	v.BindEnv("purchase.charge_timeout", "PURCHASE_CHARGE_TIMEOUT")
	v.BindEnv("purchase.reconcile_interval", "PURCHASE_RECONCILE_INTERVAL")
	v.BindEnv("purchase.reconcile_after", "PURCHASE_RECONCILE_AFTER")
	v.BindEnv("purchase.reconcile_batch", "PURCHASE_RECONCILE_BATCH")
	v.BindEnv("purchase.replay_window", "PURCHASE_REPLAY_WINDOW")
	v.BindEnv("purchase.abandon_after", "PURCHASE_ABANDON_AFTER")

	v.BindEnv("jaeger.otlp_endpoint", "JAEGER_OTLP_ENDPOINT")

	v.BindEnv("ratelimit.requests", "RATELIMIT_REQUESTS")
	v.BindEnv("ratelimit.window", "RATELIMIT_WINDOW")
	v.BindEnv("ratelimit.burst", "RATELIMIT_BURST")

	err = v.Unmarshal(&cfg)
	if err != nil {
		return
	}

	// KAFKA_BROKERS arrives as one comma separated string.
	if len(cfg.Kafka.Brokers) == 1 && strings.Contains(cfg.Kafka.Brokers[0], ",") {
		cfg.Kafka.Brokers = strings.Split(cfg.Kafka.Brokers[0], ",")
	}
	return
}
