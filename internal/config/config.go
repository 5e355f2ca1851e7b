// Package config загружает конфигурацию сервера из окружения и
// опционального .env файла
package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

// Config содержит конфигурацию сервера, прочитанную из окружения
type Config struct {
	// ListenAddr — адрес HTTP сервера, например :8080
	ListenAddr string `mapstructure:"LISTEN_ADDR"`
	// DatabasePath — путь к файлу SQLite
	DatabasePath string `mapstructure:"DATABASE_PATH"`
	// SimilarityPath — путь к JSON артефакту с матрицей сходства
	SimilarityPath string `mapstructure:"SIMILARITY_PATH"`
	// AccessSecret — HMAC секрет для access токенов
	AccessSecret string `mapstructure:"JWT_ACCESS_SECRET"`
	// RefreshSecret — HMAC секрет для refresh токенов, отличный от AccessSecret
	RefreshSecret string `mapstructure:"JWT_REFRESH_SECRET"`
	// AccessTTL — срок жизни access токена, например 15m
	AccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// RefreshTTL — срок жизни refresh токена, например 168h
	RefreshTTL string `mapstructure:"JWT_REFRESH_TTL"`
	// Env — окружение приложения: development или production
	Env string `mapstructure:"APP_ENV"`
	// RateLimit — запросов на клиента в окно
	RateLimit int `mapstructure:"RATE_LIMIT"`
	// RateWindow — окно rate limit, например 1m
	RateWindow string `mapstructure:"RATE_WINDOW"`
}

// CookieName — имя http-only cookie с refresh токеном
const CookieName = "AuthToken"

// CookiePath — префикс auth-эндпоинтов, за пределы которого cookie
// не отправляется
const CookiePath = "/api/v1/auth"

// Load читает .env (если есть), затем собирает Config из окружения.
// Переменные окружения имеют приоритет над .env.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // отсутствие .env не ошибка

	v.AutomaticEnv()

	v.SetDefault("LISTEN_ADDR", ":8080")
	v.SetDefault("DATABASE_PATH", "cinematch.db")
	v.SetDefault("SIMILARITY_PATH", "similarity.json")
	v.SetDefault("JWT_ACCESS_SECRET", "")
	v.SetDefault("JWT_REFRESH_SECRET", "")
	v.SetDefault("JWT_ACCESS_TTL", "15m")
	v.SetDefault("JWT_REFRESH_TTL", "168h") // 7 дней
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("RATE_LIMIT", 100)
	v.SetDefault("RATE_WINDOW", "1m")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, errors.New("config: JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must be set")
	}
	// Один секрет на оба вида токенов позволил бы подменять access
	// токен refresh токеном
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, errors.New("config: JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ")
	}
	if cfg.RateLimit <= 0 {
		return nil, errors.New("config: RATE_LIMIT must be positive")
	}

	return &cfg, nil
}

// IsProduction возвращает true для APP_ENV=production
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// AccessTokenTTL разбирает AccessTTL; при невалидном значении
// возвращает 15 минут
func (c *Config) AccessTokenTTL() time.Duration {
	return parseDuration(c.AccessTTL, 15*time.Minute)
}

// RefreshTokenTTL разбирает RefreshTTL; при невалидном значении
// возвращает 168 часов
func (c *Config) RefreshTokenTTL() time.Duration {
	return parseDuration(c.RefreshTTL, 168*time.Hour)
}

// RateLimitWindow разбирает RateWindow; при невалидном значении
// возвращает минуту
func (c *Config) RateLimitWindow() time.Duration {
	return parseDuration(c.RateWindow, time.Minute)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
