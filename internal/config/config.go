package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config хранит все параметры запуска приложения.
type Config struct {
	Env            string
	HTTPPort       string
	DatabaseURL    string
	MigrationsPath string
	RedisURL       string

	JWTSecret      string
	AccessTokenTTL time.Duration

	OTPTTL             time.Duration
	OTPMaxAttempts     int
	OTPSweepInterval   time.Duration
	AccessCodeCooldown time.Duration

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	MailFrom     string

	AIBaseURL string
	AIModel   string
	AIAPIKey  string

	MediaStoragePath string
	MaxUploadSizeMB  int64

	// Первый администратор создаётся при старте, если активных администраторов нет.
	AdminEmail      string
	AdminName       string
	AdminAccessCode string

	AllowedOrigins  []string
	RateLimitLimit  int64
	RateLimitPeriod time.Duration
}

// IsProduction сообщает, запущено ли приложение в production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// MailConfigured сообщает, заданы ли SMTP параметры.
func (c *Config) MailConfigured() bool {
	return c.SMTPHost != "" && c.SMTPUsername != "" && c.SMTPPassword != ""
}

// Load читает переменные окружения и возвращает готовую конфигурацию.
func Load() (*Config, error) {
	// Загружаем .env только если он существует, иначе используем системные переменные.
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("config: .env не найден, используем переменные окружения: %v", err)
	}

	env := getEnv("APP_ENV", "development")

	cfg := &Config{
		Env:              env,
		HTTPPort:         getEnv("HTTP_PORT", "8080"),
		DatabaseURL:      getDatabaseURL(),
		MigrationsPath:   getEnv("MIGRATIONS_PATH", "./migrations"),
		RedisURL:         getEnv("REDIS_URL", ""),
		SMTPHost:         getEnv("SMTP_HOST", ""),
		SMTPPort:         getEnv("SMTP_PORT", "465"),
		SMTPUsername:     getEnv("SMTP_USERNAME", ""),
		SMTPPassword:     getEnv("SMTP_PASSWORD", ""),
		MailFrom:         getEnv("MAIL_FROM", ""),
		AIBaseURL:        getEnv("AI_BASE_URL", ""),
		AIModel:          getEnv("AI_MODEL", "gpt-4o-mini"),
		AIAPIKey:         getEnv("AI_API_KEY", ""),
		MediaStoragePath: getEnv("MEDIA_STORAGE_PATH", "./storage/reports"),
		AdminEmail:       getEnv("ADMIN_EMAIL", ""),
		AdminName:        getEnv("ADMIN_NAME", "Admin Baronda"),
		AdminAccessCode:  getEnv("ADMIN_ACCESS_CODE", ""),
	}

	jwtSecret := getEnv("JWT_SECRET", "")
	if env == "production" {
		if len(jwtSecret) < 32 {
			return nil, fmt.Errorf("config: JWT_SECRET обязателен и должен быть не менее 32 символов в production")
		}
		if !cfg.MailConfigured() {
			return nil, fmt.Errorf("config: SMTP_HOST, SMTP_USERNAME и SMTP_PASSWORD обязательны в production")
		}
	} else if jwtSecret == "" {
		// Без секрета в development генерируем случайный: токены живут до перезапуска.
		secret, err := randomSecret()
		if err != nil {
			return nil, fmt.Errorf("config: не удалось сгенерировать JWT_SECRET: %w", err)
		}
		jwtSecret = secret
		log.Printf("config: WARNING - JWT_SECRET не задан, используется случайный секрет процесса")
	}
	cfg.JWTSecret = jwtSecret

	if cfg.MailFrom == "" {
		cfg.MailFrom = cfg.SMTPUsername
	}

	originsStr := getEnv("CORS_ALLOWED_ORIGINS", "")
	if originsStr == "" {
		if env == "production" {
			return nil, fmt.Errorf("config: CORS_ALLOWED_ORIGINS обязателен в production")
		}
		cfg.AllowedOrigins = []string{"http://localhost:3000", "http://localhost:9002"}
	} else {
		cfg.AllowedOrigins = strings.Split(originsStr, ",")
		for i, origin := range cfg.AllowedOrigins {
			cfg.AllowedOrigins[i] = strings.TrimSpace(origin)
		}
	}

	cfg.AccessTokenTTL = mustParseDuration(getEnv("ACCESS_TOKEN_TTL", "12h"))
	cfg.OTPTTL = mustParseDuration(getEnv("OTP_TTL", "10m"))
	cfg.OTPMaxAttempts = int(mustParseInt64(getEnv("OTP_MAX_ATTEMPTS", "5")))
	cfg.OTPSweepInterval = mustParseDuration(getEnv("OTP_SWEEP_INTERVAL", "1h"))
	cfg.AccessCodeCooldown = mustParseDuration(getEnv("ACCESS_CODE_COOLDOWN", "168h"))
	cfg.MaxUploadSizeMB = mustParseInt64(getEnv("MAX_UPLOAD_MB", "5"))

	cfg.RateLimitLimit = mustParseInt64(getEnv("RATE_LIMIT_LIMIT", "10"))
	cfg.RateLimitPeriod = mustParseDuration(getEnv("RATE_LIMIT_PERIOD", "1m"))

	return cfg, nil
}

// getEnv возвращает значение переменной окружения или дефолт.
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// getDatabaseURL возвращает DATABASE_URL либо из переменной, либо собирает из отдельных переменных.
func getDatabaseURL() string {
	if dbURL := getEnv("DATABASE_URL", ""); dbURL != "" {
		return dbURL
	}

	host := getEnv("POSTGRESQL_HOST", "")
	port := getEnv("POSTGRESQL_PORT", "5432")
	user := getEnv("POSTGRESQL_USER", "")
	password := getEnv("POSTGRESQL_PASSWORD", "")
	dbname := getEnv("POSTGRESQL_DBNAME", "")

	if host != "" && user != "" && dbname != "" {
		userInfo := url.UserPassword(user, password)
		return fmt.Sprintf("postgres://%s@%s:%s/%s?sslmode=disable",
			userInfo.String(), host, port, dbname)
	}

	return "postgres://localhost:5432/baronda?sslmode=disable"
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// mustParseDuration безопасно парсит строку в duration.
func mustParseDuration(v string) time.Duration {
	dur, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("config: не удалось распарсить длительность %q: %v", v, err)
	}
	return dur
}

// mustParseInt64 безопасно парсит строку в int64.
func mustParseInt64(v string) int64 {
	num, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		log.Fatalf("config: не удалось распарсить число %q: %v", v, err)
	}
	return num
}
