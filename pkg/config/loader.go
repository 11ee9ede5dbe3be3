package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/app/configs")

	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	// Allow common env vars without APP_ prefix for Docker/VM deploys
	viper.BindEnv("http.port", "HTTP_PORT", "APP_HTTP_PORT")
	viper.BindEnv("database.url", "DATABASE_URL", "APP_DATABASE_URL")
	viper.BindEnv("redis.url", "REDIS_URL", "APP_REDIS_URL")
	viper.BindEnv("queue.url", "QUEUE_URL", "APP_QUEUE_URL")
	viper.BindEnv("jwt.secret", "JWT_SECRET", "APP_JWT_SECRET")
	viper.BindEnv("vault.address", "VAULT_ADDR")
	viper.BindEnv("vault.token", "VAULT_TOKEN")
	viper.BindEnv("billing.stripe.secret_key", "STRIPE_SECRET_KEY")
	viper.BindEnv("notification.sms.auth_token", "TWILIO_AUTH_TOKEN")
	viper.BindEnv("notification.email.api_key", "SENDGRID_API_KEY")
	viper.BindEnv("app.environment", "APP_ENVIRONMENT")
	viper.BindEnv("logging.level", "LOG_LEVEL")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file is fine, env vars cover deploys without one.
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults keeps a config-file-less deploy runnable with sane values.
func setDefaults() {
	viper.SetDefault("app.name", "nerava-arrival")
	viper.SetDefault("app.environment", "development")

	viper.SetDefault("http.port", 8080)
	viper.SetDefault("http.read_timeout", "15s")
	viper.SetDefault("http.write_timeout", "15s")
	viper.SetDefault("http.idle_timeout", "60s")

	viper.SetDefault("database.max_open_conns", 100)
	viper.SetDefault("database.max_idle_conns", 10)
	viper.SetDefault("database.auto_migrate", true)

	viper.SetDefault("queue.backend", "nats")
	viper.SetDefault("queue.url", "nats://localhost:4222")
	viper.SetDefault("queue.max_reconnects", 10)
	viper.SetDefault("queue.reconnect_wait", "2s")

	viper.SetDefault("arrival.confirm_radius_m", 250)
	viper.SetDefault("arrival.lookup_radius_m", 500)
	viper.SetDefault("arrival.session_ttl", "90m")
	viper.SetDefault("arrival.sweep_interval", "60s")
	viper.SetDefault("arrival.daily_session_cap", 3)
	viper.SetDefault("arrival.day_boundary_timezone", "UTC")

	viper.SetDefault("billing.fee_bps", 500)
	viper.SetDefault("billing.stripe.currency", "usd")

	viper.SetDefault("notification.email.provider", "smtp")
	viper.SetDefault("notification.email.from", "noreply@nerava.com")
	viper.SetDefault("notification.email.from_name", "Nerava")

	viper.SetDefault("prometheus.enabled", true)
	viper.SetDefault("prometheus.path", "/metrics")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")

	viper.SetDefault("circuit_breaker.max_requests", 3)
	viper.SetDefault("circuit_breaker.interval", "60s")
	viper.SetDefault("circuit_breaker.timeout", "30s")
	viper.SetDefault("circuit_breaker.failure_threshold", 0.6)
}
