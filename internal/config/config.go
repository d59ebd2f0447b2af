package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env        string           `mapstructure:"env"`
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Assignment AssignmentConfig `mapstructure:"assignment"`
	Notify     NotifyConfig     `mapstructure:"notify"`
	NATS       NATSConfig       `mapstructure:"nats"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	SMTP       SMTPConfig       `mapstructure:"smtp"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
	Bootstrap  BootstrapConfig  `mapstructure:"bootstrap"`
}

type ServerConfig struct {
	Port         string   `mapstructure:"port"`
	ReadTimeout  int      `mapstructure:"read_timeout_seconds"`
	WriteTimeout int      `mapstructure:"write_timeout_seconds"`
	IdleTimeout  int      `mapstructure:"idle_timeout_seconds"`
	CORSOrigins  []string `mapstructure:"cors_origins"`
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            string `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"name"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time_seconds"`
	AutoMigrate     bool   `mapstructure:"auto_migrate"`
}

// DSN returns the postgres URL shared by bun and golang-migrate.
func (d DatabaseConfig) DSN() string {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User,
		d.Password,
		d.Host,
		d.Port,
		d.DBName,
		sslMode,
	)
}

type AuthConfig struct {
	JWTSecret      string `mapstructure:"jwt_secret"`
	AccessTokenTTL int    `mapstructure:"access_token_ttl_seconds"`
	SecureCookies  bool   `mapstructure:"secure_cookies"`
	CookieSameSite string `mapstructure:"cookie_same_site"`
}

func (a AuthConfig) TokenTTL() time.Duration {
	return time.Duration(a.AccessTokenTTL) * time.Second
}

type AssignmentConfig struct {
	// Strategy is "first" or "least_loaded".
	Strategy string `mapstructure:"strategy"`
}

type NotifyConfig struct {
	// Transport is "nats", "kafka", "smtp" or "log".
	Transport   string `mapstructure:"transport"`
	QueueSize   int    `mapstructure:"queue_size"`
	Workers     int    `mapstructure:"workers"`
	ConsumeMail bool   `mapstructure:"consume_mail"`
}

type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	GroupID string   `mapstructure:"group_id"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type TelemetryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

// BootstrapConfig seeds the first admin account when the users table has no admin.
type BootstrapConfig struct {
	AdminName       string `mapstructure:"admin_name"`
	AdminEmail      string `mapstructure:"admin_email"`
	AdminPassword   string `mapstructure:"admin_password"`
	AdminDepartment string `mapstructure:"admin_department"`
}

// Load reads and validates the full service configuration.
func Load() (*Config, error) {
	config, err := read()
	if err != nil {
		return nil, err
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadDatabase reads only what the migration tool needs and skips the
// service-level validation.
func LoadDatabase() (DatabaseConfig, error) {
	config, err := read()
	if err != nil {
		return DatabaseConfig{}, err
	}
	return config.Database, nil
}

func read() (*Config, error) {
	// Get environment from ENV, default to "local"
	env := os.Getenv("ENV")
	if env == "" {
		env = "local"
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	v.SetConfigType("yaml")
	v.AddConfigPath("/configs")   // Kubernetes mount
	v.AddConfigPath("./configs")  // repo root
	v.AddConfigPath("../configs") // IDE from cmd/
	v.AddConfigPath("../../configs")

	// Config file is optional - ENV variables and defaults still apply
	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("No config file found (will use ENV variables): %v\n", err)
	}

	v.AutomaticEnv()

	v.BindEnv("env", "ENV")
	v.BindEnv("server.port", "PORT")
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.name", "DB_NAME")
	v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	v.BindEnv("notify.transport", "NOTIFY_TRANSPORT")
	v.BindEnv("nats.url", "NATS_URL")
	v.BindEnv("smtp.password", "SMTP_PASSWORD")
	v.BindEnv("telemetry.otlp_endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")
	v.BindEnv("bootstrap.admin_email", "ADMIN_EMAIL")
	v.BindEnv("bootstrap.admin_password", "ADMIN_PASSWORD")

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if config.Env == "" {
		config.Env = env
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout_seconds", 15)
	v.SetDefault("server.write_timeout_seconds", 15)
	v.SetDefault("server.idle_timeout_seconds", 60)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "leaves")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("auth.access_token_ttl_seconds", 3600)
	v.SetDefault("auth.cookie_same_site", "lax")

	v.SetDefault("assignment.strategy", "first")

	v.SetDefault("notify.transport", "log")
	v.SetDefault("notify.queue_size", 256)
	v.SetDefault("notify.workers", 2)

	v.SetDefault("nats.subject", "leaves.notifications")
	v.SetDefault("kafka.topic", "leave-notifications")
	v.SetDefault("kafka.group_id", "leave-service-mailer")

	v.SetDefault("smtp.port", 587)

	v.SetDefault("bootstrap.admin_name", "Administrator")
	v.SetDefault("bootstrap.admin_department", "Administration")
}

func (c *Config) validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("config: auth.jwt_secret (JWT_SECRET) must be set")
	}
	switch c.Assignment.Strategy {
	case "first", "least_loaded":
	default:
		return fmt.Errorf("config: unsupported assignment.strategy %q", c.Assignment.Strategy)
	}
	switch c.Notify.Transport {
	case "nats", "kafka", "smtp", "log":
	default:
		return fmt.Errorf("config: unsupported notify.transport %q", c.Notify.Transport)
	}
	return nil
}
