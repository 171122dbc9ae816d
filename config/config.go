package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/qs-lzh/eventpro/internal/util"
)

var ErrMissingJWTSecret = errors.New("JWT_SECRET must be set")

type Config struct {
	Addr string `mapstructure:"ADDR"`

	DatabaseDriver string `mapstructure:"DATABASE_DRIVER"`
	DatabaseDSN    string `mapstructure:"DATABASE_DSN"`

	CacheURL        string `mapstructure:"CACHE_URL"`
	CachePassword   string `mapstructure:"CACHE_PASSWORD"`
	CacheTTLSeconds int    `mapstructure:"CACHE_TTL_SECONDS"`

	MQURL string `mapstructure:"RABBIT_MQ_URL"`

	JWTSecret  string `mapstructure:"JWT_SECRET"`
	BcryptCost int    `mapstructure:"BCRYPT_COST"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`
	GinMode   string `mapstructure:"GIN_MODE"`
}

var keys = []string{
	"ADDR",
	"DATABASE_DRIVER", "DATABASE_DSN",
	"CACHE_URL", "CACHE_PASSWORD", "CACHE_TTL_SECONDS",
	"RABBIT_MQ_URL",
	"JWT_SECRET", "BCRYPT_COST",
	"LOG_LEVEL", "LOG_FORMAT", "GIN_MODE",
}

func LoadConfig() (*Config, error) {
	if err := util.LoadEnv(); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetDefault("ADDR", ":4000")
	v.SetDefault("DATABASE_DRIVER", "postgres")
	v.SetDefault("DATABASE_DSN", "")
	v.SetDefault("CACHE_URL", "")
	v.SetDefault("CACHE_PASSWORD", "")
	v.SetDefault("CACHE_TTL_SECONDS", 30)
	v.SetDefault("RABBIT_MQ_URL", "")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("GIN_MODE", "release")

	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.DatabaseDriver = strings.ToLower(cfg.DatabaseDriver)
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return nil, ErrMissingJWTSecret
	}
	return &cfg, nil
}

func (c *Config) CacheTTL() time.Duration {
	if c.CacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.CacheTTLSeconds) * time.Second
}
