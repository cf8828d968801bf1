// Package config loads service settings from configs/.env, an optional
// configs/config.yaml and TEMPSPEC_* environment variables, in that order of
// increasing precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	EnvPrefix       = "TEMPSPEC"
	devJWTSecret    = "default_super_secret_key"
	redacted        = "[REDACTED]"
	envProduction   = "production"
	StorageLocal    = "local"
	StorageS3       = "s3"
	ConverterOffice = "office"
	ConverterChrome = "chrome"
)

type Config struct {
	Env       string          `mapstructure:"env"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Docgen    DocgenConfig    `mapstructure:"docgen"`
	Log       LogConfig       `mapstructure:"log"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	AllowOrigins    []string      `mapstructure:"allow_origins"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	StaticRoot      string        `mapstructure:"static_root"` // inline images live under <root>/static/uploads/images
	MaxUploadMB     int64         `mapstructure:"max_upload_mb"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"` // postgres or sqlite
	DSN      string `mapstructure:"dsn"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

// ConnString returns DSN when set, otherwise a postgres URL built from the parts.
func (d DatabaseConfig) ConnString() string {
	if d.DSN != "" {
		return d.DSN
	}
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.Name + "?sslmode=" + d.SSLMode
}

type AuthConfig struct {
	JWTSecret    string        `mapstructure:"jwt_secret"`
	AccessTTL    time.Duration `mapstructure:"access_ttl"`
	RefreshTTL   time.Duration `mapstructure:"refresh_ttl"`
	SecureCookie bool          `mapstructure:"secure_cookie"`
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

type StorageConfig struct {
	Backend      string   `mapstructure:"backend"` // local or s3; inline images are always local
	GeneratedDir string   `mapstructure:"generated_dir"`
	UploadsDir   string   `mapstructure:"uploads_dir"`
	S3           S3Config `mapstructure:"s3"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	LockTTL  time.Duration `mapstructure:"lock_ttl"`
}

type DocgenConfig struct {
	Converter      string        `mapstructure:"converter"` // office or chrome
	OfficeBin      string        `mapstructure:"office_bin"`
	ChromeBin      string        `mapstructure:"chrome_bin"`
	TemplatePath   string        `mapstructure:"template_path"`
	ConvertTimeout time.Duration `mapstructure:"convert_timeout"`
	TempDir        string        `mapstructure:"temp_dir"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type SchedulerConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ExpireSpec string `mapstructure:"expire_spec"` // cron expression
}

type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.allow_origins", []string{"http://localhost:5173", "http://127.0.0.1:5173"})
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 5*time.Minute)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("server.static_root", ".")
	v.SetDefault("server.max_upload_mb", 20)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.name", "tempspec")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.access_ttl", 24*time.Hour)
	v.SetDefault("auth.refresh_ttl", 7*24*time.Hour)
	v.SetDefault("auth.secure_cookie", false)

	v.SetDefault("storage.backend", StorageLocal)
	v.SetDefault("storage.generated_dir", "data/generated")
	v.SetDefault("storage.uploads_dir", "data/uploads")
	v.SetDefault("storage.s3.bucket", "")
	v.SetDefault("storage.s3.prefix", "tempspec")
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("storage.s3.endpoint", "")
	v.SetDefault("storage.s3.access_key", "")
	v.SetDefault("storage.s3.secret_key", "")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.lock_ttl", 5*time.Minute)

	v.SetDefault("docgen.converter", ConverterOffice)
	v.SetDefault("docgen.office_bin", "soffice")
	v.SetDefault("docgen.chrome_bin", "")
	v.SetDefault("docgen.template_path", "")
	v.SetDefault("docgen.convert_timeout", time.Duration(0))
	v.SetDefault("docgen.temp_dir", "")

	v.SetDefault("log.level", "")

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.expire_spec", "5 0 * * *")

	v.SetDefault("ratelimit.rps", 2.0)
	v.SetDefault("ratelimit.burst", 5)
}

// Load reads configs/.env and configs/config.yaml when present and applies
// TEMPSPEC_* environment overrides, e.g. TEMPSPEC_SERVER_PORT.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")
	return load(viper.New(), "configs")
}

func load(v *viper.Viper, configDir string) (*Config, error) {
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Auth.JWTSecret == "" {
		if c.IsProduction() {
			return errors.New("TEMPSPEC_AUTH_JWT_SECRET is required in production")
		}
		c.Auth.JWTSecret = devJWTSecret
	}
	switch c.Storage.Backend {
	case StorageLocal:
	case StorageS3:
		if c.Storage.S3.Bucket == "" {
			return errors.New("storage.s3.bucket is required for the s3 backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q (supported: local, s3)", c.Storage.Backend)
	}
	switch c.Docgen.Converter {
	case ConverterOffice, ConverterChrome:
	default:
		return fmt.Errorf("unknown converter %q (supported: office, chrome)", c.Docgen.Converter)
	}
	if c.Docgen.ConvertTimeout < 0 {
		return errors.New("docgen.convert_timeout must not be negative")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == envProduction
}

// LogSummary writes the effective configuration with secrets redacted.
func (c *Config) LogSummary(logger *zap.Logger) {
	secret := func(s string) string {
		if s == "" {
			return ""
		}
		return redacted
	}
	logger.Info("Application configuration",
		zap.String("env", c.Env),
		zap.String("port", c.Server.Port),
		zap.Strings("allow_origins", c.Server.AllowOrigins),
		zap.String("database_driver", c.Database.Driver),
		zap.String("database_host", c.Database.Host),
		zap.String("database_name", c.Database.Name),
		zap.String("database_password", secret(c.Database.Password)),
		zap.String("jwt_secret", secret(c.Auth.JWTSecret)),
		zap.String("storage_backend", c.Storage.Backend),
		zap.String("s3_bucket", c.Storage.S3.Bucket),
		zap.String("s3_secret_key", secret(c.Storage.S3.SecretKey)),
		zap.String("redis_addr", c.Redis.Addr),
		zap.String("redis_password", secret(c.Redis.Password)),
		zap.String("converter", c.Docgen.Converter),
		zap.Duration("convert_timeout", c.Docgen.ConvertTimeout),
		zap.Bool("scheduler_enabled", c.Scheduler.Enabled),
		zap.String("expire_spec", c.Scheduler.ExpireSpec),
	)
}
