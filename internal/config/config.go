package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type ServerConfig struct {
	HTTPPort        string        `mapstructure:"http_port"`
	GRPCPort        string        `mapstructure:"grpc_port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver     string `mapstructure:"driver"`
	Host       string `mapstructure:"host"`
	Port       string `mapstructure:"port"`
	User       string `mapstructure:"user"`
	Password   string `mapstructure:"password"`
	Name       string `mapstructure:"name"`
	SSLMode    string `mapstructure:"sslmode"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type KafkaConfig struct {
	Enabled         bool     `mapstructure:"enabled"`
	Brokers         []string `mapstructure:"brokers"`
	EventsTopic     string   `mapstructure:"events_topic"`
	QuarantineTopic string   `mapstructure:"quarantine_topic"`
	GroupID         string   `mapstructure:"group_id"`
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Expiration time.Duration `mapstructure:"expiration"`
	Issuer     string        `mapstructure:"issuer"`
}

type TracingConfig struct {
	JaegerEndpoint string  `mapstructure:"jaeger_endpoint"`
	SampleRatio    float64 `mapstructure:"sample_ratio"`
}

type LockConfig struct {
	// Backend is local (single replica) or redis (several replicas)
	Backend string        `mapstructure:"backend"`
	TTL     time.Duration `mapstructure:"ttl"`
}

type AllocationConfig struct {
	SkipExpired bool `mapstructure:"skip_expired"`
}

type RateLimitConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	MaxRequests int           `mapstructure:"max_requests"`
	Window      time.Duration `mapstructure:"window"`
}

// Config is the full service configuration
type Config struct {
	ServiceName string           `mapstructure:"service_name"`
	Environment string           `mapstructure:"environment"`
	LogLevel    string           `mapstructure:"log_level"`
	Server      ServerConfig     `mapstructure:"server"`
	Database    DatabaseConfig   `mapstructure:"db"`
	Redis       RedisConfig      `mapstructure:"redis"`
	Kafka       KafkaConfig      `mapstructure:"kafka"`
	JWT         JWTConfig        `mapstructure:"jwt"`
	Tracing     TracingConfig    `mapstructure:"tracing"`
	Lock        LockConfig       `mapstructure:"lock"`
	Allocation  AllocationConfig `mapstructure:"allocation"`
	RateLimit   RateLimitConfig  `mapstructure:"ratelimit"`
}

// IsDevelopment reports whether pretty console logging should be used
func (c Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service_name", "dispensary-service")
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")

	v.SetDefault("server.http_port", "8084")
	v.SetDefault("server.grpc_port", "9094")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.request_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", "5432")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "postgres")
	v.SetDefault("db.name", "dispensarydb")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.sqlite_path", "dispensary.db")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.cache_ttl", 10*time.Minute)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.events_topic", "dispensary-events")
	v.SetDefault("kafka.quarantine_topic", "dispensary-quarantine-requests")
	v.SetDefault("kafka.group_id", "dispensary-service")

	v.SetDefault("jwt.secret", "change-me")
	v.SetDefault("jwt.expiration", 24*time.Hour)
	v.SetDefault("jwt.issuer", "clinic-dispensary")

	v.SetDefault("tracing.jaeger_endpoint", "http://localhost:14268/api/traces")
	v.SetDefault("tracing.sample_ratio", 1.0)

	v.SetDefault("lock.backend", "local")
	v.SetDefault("lock.ttl", 10*time.Second)

	v.SetDefault("allocation.skip_expired", false)

	v.SetDefault("ratelimit.enabled", false)
	v.SetDefault("ratelimit.max_requests", 100)
	v.SetDefault("ratelimit.window", time.Minute)
}

// Load reads an optional .env file, then environment variables over defaults.
// Nested keys map to upper snake case, e.g. db.host -> DB_HOST.
func Load(envFiles ...string) (*Config, error) {
	// .env is optional; a missing file is not an error
	_ = godotenv.Load(envFiles...)

	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// legacy names used by the deployment manifests
	_ = v.BindEnv("service_name", "SERVICE_NAME", "OTEL_SERVICE_NAME")
	_ = v.BindEnv("tracing.jaeger_endpoint", "TRACING_JAEGER_ENDPOINT", "JAEGER_ENDPOINT")
	_ = v.BindEnv("server.http_port", "SERVER_HTTP_PORT", "HTTP_PORT")
	_ = v.BindEnv("server.grpc_port", "SERVER_GRPC_PORT", "GRPC_PORT")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the service cannot start with
func (c Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("config: unsupported db.driver %q", c.Database.Driver)
	}
	switch c.Lock.Backend {
	case "local":
	case "redis":
		if !c.Redis.Enabled {
			return fmt.Errorf("config: lock.backend=redis requires redis.enabled")
		}
	default:
		return fmt.Errorf("config: unsupported lock.backend %q", c.Lock.Backend)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("config: kafka.enabled requires kafka.brokers")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("config: jwt.secret is required")
	}
	return nil
}
