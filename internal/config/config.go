package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Tenancy   TenancyConfig
	RateLimit RateLimitConfig
	Notify    NotifyConfig
	Mail      MailConfig
	Digest    DigestConfig
	Auth      AuthConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port            string `validate:"required"`
	Mode            string `validate:"oneof=debug release test"`
	TrustedProxies  []string
	TrustedPlatform string
	ForwardedHost   bool
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	URL             string `validate:"required"`
	MaxConnections  int    `validate:"min=1"`
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	QueryTimeout    time.Duration
	AutoMigrate     bool
}

type RedisConfig struct {
	URL string
}

type TenancyConfig struct {
	RootDomain          string `validate:"required,fqdn"`
	RootTenant          string `validate:"required"`
	CacheTTL            time.Duration
	MissRefreshCooldown time.Duration
	Timezone            string
}

type RateLimitConfig struct {
	Requests int           `validate:"min=1"`
	Window   time.Duration `validate:"required"`
}

type NotifyConfig struct {
	Timeout time.Duration `validate:"required"`
}

type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	TLS      bool
}

type DigestConfig struct {
	Schedule        string `validate:"required"`
	RefreshSchedule string `validate:"required"`
	Concurrency     int    `validate:"min=1"`
	XLSX            bool
	RetainOnFailure bool
	LockTTL         time.Duration
}

type AuthConfig struct {
	JWTSecret string
}

type LogConfig struct {
	Level  string
	Format string
}

// Location resolves the tenancy timezone, falling back to UTC.
func (t TenancyConfig) Location() *time.Location {
	if t.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(t.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func Load() (*Config, error) {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvPrefix("LEADS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.trustedproxies", []string{"127.0.0.1", "::1"})
	v.SetDefault("server.trustedplatform", "CF-Connecting-IP")
	v.SetDefault("server.forwardedhost", true)
	v.SetDefault("server.shutdowntimeout", "30s")
	v.SetDefault("database.maxconnections", 25)
	v.SetDefault("database.maxidleconns", 5)
	v.SetDefault("database.connmaxlifetime", "5m")
	v.SetDefault("database.querytimeout", "5s")
	v.SetDefault("database.automigrate", false)
	v.SetDefault("tenancy.rootdomain", "mysqft.in")
	v.SetDefault("tenancy.roottenant", "mysqft")
	v.SetDefault("tenancy.cachettl", "300s")
	v.SetDefault("tenancy.missrefreshcooldown", "5s")
	v.SetDefault("tenancy.timezone", "UTC")
	v.SetDefault("ratelimit.requests", 5)
	v.SetDefault("ratelimit.window", "10m")
	v.SetDefault("notify.timeout", "5s")
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.fromname", "MySqft")
	v.SetDefault("mail.tls", true)
	v.SetDefault("digest.schedule", "0 6 * * *")
	v.SetDefault("digest.refreshschedule", "30 6 * * *")
	v.SetDefault("digest.concurrency", 4)
	v.SetDefault("digest.xlsx", false)
	v.SetDefault("digest.retainonfailure", false)
	v.SetDefault("digest.lockttl", "1h")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	var cfg Config
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Override with environment variables
	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.Database.URL = url
	}
	if url := os.Getenv("REDIS_URL"); url != "" {
		cfg.Redis.URL = url
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.Auth.JWTSecret = secret
	}
	if host := os.Getenv("MAIL_SERVER"); host != "" {
		cfg.Mail.Host = host
	}
	if user := os.Getenv("MAIL_USERNAME"); user != "" {
		cfg.Mail.Username = user
	}
	if pass := os.Getenv("MAIL_PASSWORD"); pass != "" {
		cfg.Mail.Password = pass
	}
	if from := os.Getenv("MAIL_DEFAULT_SENDER"); from != "" {
		cfg.Mail.From = from
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func Validate(cfg *Config) error {
	return validator.New().Struct(cfg)
}
