package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// minSecretLength is the shortest accepted HS256 signing secret.
const minSecretLength = 16

// Config holds application configuration. It is loaded once at startup and
// treated as read-only afterwards.
type Config struct {
	Server    ServerConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Password  PasswordConfig
	Wechat    WechatConfig
	OIDC      OIDCConfig
	RateLimit RateLimitConfig
	MinIO     MinIOConfig

	// FederationTimeout bounds every third-party code exchange.
	FederationTimeout time.Duration
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret         string
	AccessTokenTTL time.Duration
}

type PasswordConfig struct {
	BcryptCost int
}

type WechatConfig struct {
	AppID   string
	Secret  string
	APIBase string
}

type OIDCConfig struct {
	Provider     string
	Issuer       string
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

type RateLimitConfig struct {
	Enabled       bool
	RPS           float64
	Burst         int
	UseRedis      bool
	WindowSeconds int
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

// LoadConfig loads configuration from environment variables and .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", "3000")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_ENVIRONMENT", "development")
	v.SetDefault("MONGODB_DATABASE", "rentwise")
	v.SetDefault("MONGODB_TIMEOUT", 10)
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("JWT_EXPIRATION_TIME", "24h")
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("WECHAT_API_BASE", "https://api.weixin.qq.com")
	v.SetDefault("FEDERATION_TIMEOUT", 5)
	v.SetDefault("OIDC_PROVIDER", "oidc")
	v.SetDefault("RATE_LIMIT_RPS", 1.0)
	v.SetDefault("RATE_LIMIT_BURST", 5)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)
	v.SetDefault("MINIO_BUCKET", "avatars")

	ttl, err := ParseLifetime(v.GetString("JWT_EXPIRATION_TIME"))
	if err != nil {
		return nil, fmt.Errorf("JWT_EXPIRATION_TIME: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:         v.GetString("SERVER_PORT"),
			Host:         v.GetString("SERVER_HOST"),
			Environment:  v.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		MongoDB: MongoDBConfig{
			URI:      v.GetString("MONGODB_URI"),
			Database: v.GetString("MONGODB_DATABASE"),
			Timeout:  time.Duration(v.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:         v.GetString("JWT_SECRET"),
			AccessTokenTTL: ttl,
		},
		Password: PasswordConfig{
			BcryptCost: v.GetInt("BCRYPT_COST"),
		},
		Wechat: WechatConfig{
			AppID:   v.GetString("WECHAT_APPID"),
			Secret:  v.GetString("WECHAT_SECRET"),
			APIBase: strings.TrimRight(v.GetString("WECHAT_API_BASE"), "/"),
		},
		OIDC: OIDCConfig{
			Provider:     v.GetString("OIDC_PROVIDER"),
			Issuer:       v.GetString("OIDC_ISSUER"),
			ClientID:     v.GetString("OIDC_CLIENT_ID"),
			ClientSecret: v.GetString("OIDC_CLIENT_SECRET"),
			RedirectURL:  v.GetString("OIDC_REDIRECT_URL"),
		},
		RateLimit: RateLimitConfig{
			Enabled:       v.GetBool("RATE_LIMIT_ENABLED"),
			RPS:           v.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         v.GetInt("RATE_LIMIT_BURST"),
			UseRedis:      v.GetBool("RATE_LIMIT_USE_REDIS"),
			WindowSeconds: v.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
		MinIO: MinIOConfig{
			Endpoint:  v.GetString("MINIO_ENDPOINT"),
			AccessKey: v.GetString("MINIO_ACCESS_KEY"),
			SecretKey: v.GetString("MINIO_SECRET_KEY"),
			UseSSL:    v.GetBool("MINIO_USE_SSL"),
			Bucket:    v.GetString("MINIO_BUCKET"),
		},
		FederationTimeout: time.Duration(v.GetInt("FEDERATION_TIMEOUT")) * time.Second,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings the service cannot start without.
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if len(c.JWT.Secret) < minSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d bytes", minSecretLength)
	}
	if c.JWT.AccessTokenTTL <= 0 {
		return errors.New("JWT_EXPIRATION_TIME must be positive")
	}
	if c.FederationTimeout <= 0 {
		return errors.New("FEDERATION_TIMEOUT must be positive")
	}
	return nil
}

// WechatEnabled reports whether WeChat mini-program login is configured.
func (c *Config) WechatEnabled() bool { return c.Wechat.AppID != "" && c.Wechat.Secret != "" }

// OIDCEnabled reports whether the generic OIDC provider is configured.
func (c *Config) OIDCEnabled() bool { return c.OIDC.Issuer != "" && c.OIDC.ClientID != "" }

// ParseLifetime accepts Go durations ("15m", "24h"), whole days ("7d") and
// bare seconds ("3600").
func ParseLifetime(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty duration")
	}
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	if strings.HasSuffix(s, "d") {
		n, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil {
			return 0, fmt.Errorf("invalid day count %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}
