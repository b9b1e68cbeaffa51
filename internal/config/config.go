package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"
)

var ErrMissingJWTSecret = errors.New("JWT_SECRET is required")

type Config struct {
	Env   string
	Port  int
	DBURL string

	// postgres | memory
	StorageDriver string

	JWTSecret string
	JWTTTL    time.Duration

	BcryptCost  int
	HashWorkers int

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	// s3 | local
	DocumentDriver    string
	UploadDir         string
	UploadMaxBytes    int64
	S3Bucket          string
	S3Endpoint        string
	S3Region          string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3PublicBaseURL   string

	CORSOrigins []string

	LoginRateLimit  int
	LoginRateWindow time.Duration

	OTELEndpoint    string
	OTELSampleRatio float64

	AdminEmail    string
	AdminPassword string
	AdminName     string
}

// Load reads the process environment. It fails on a missing signing secret
// instead of falling back to a guessable default.
func Load() (Config, error) {
	var errs []error

	cfg := Config{
		Env:           getEnv("APP_ENV", "dev"),
		DBURL:         buildDBURL(),
		StorageDriver: strings.ToLower(getEnv("STORAGE_DRIVER", "postgres")),

		JWTSecret: os.Getenv("JWT_SECRET"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		DocumentDriver:    strings.ToLower(getEnv("DOCUMENT_DRIVER", "local")),
		UploadDir:         getEnv("UPLOAD_DIR", "uploads"),
		S3Bucket:          os.Getenv("S3_BUCKET"),
		S3Endpoint:        os.Getenv("S3_ENDPOINT"),
		S3Region:          getEnv("S3_REGION", "auto"),
		S3AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
		S3SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
		S3PublicBaseURL:   os.Getenv("S3_PUBLIC_BASE_URL"),

		CORSOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),

		OTELEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),

		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		AdminName:     getEnv("ADMIN_NAME", "Administrator"),
	}

	if cfg.JWTSecret == "" {
		errs = append(errs, ErrMissingJWTSecret)
	}

	var err error

	if cfg.Port, err = getEnvInt("PORT", 8080); err != nil {
		errs = append(errs, err)
	}
	if cfg.JWTTTL, err = getEnvDuration("JWT_TTL", 30*24*time.Hour); err != nil {
		errs = append(errs, err)
	}
	if cfg.BcryptCost, err = getEnvInt("BCRYPT_COST", 10); err != nil {
		errs = append(errs, err)
	}
	if cfg.HashWorkers, err = getEnvInt("HASH_WORKERS", runtime.NumCPU()); err != nil {
		errs = append(errs, err)
	}
	if cfg.RedisDB, err = getEnvInt("REDIS_DB", 0); err != nil {
		errs = append(errs, err)
	}
	if cfg.CacheTTL, err = getEnvDuration("CACHE_TTL", 30*time.Second); err != nil {
		errs = append(errs, err)
	}
	if cfg.LoginRateLimit, err = getEnvInt("LOGIN_RATE_LIMIT", 10); err != nil {
		errs = append(errs, err)
	}
	if cfg.LoginRateWindow, err = getEnvDuration("LOGIN_RATE_WINDOW", time.Minute); err != nil {
		errs = append(errs, err)
	}

	if cfg.OTELSampleRatio, err = getEnvFloat("OTEL_SAMPLE_RATIO", 1); err != nil {
		errs = append(errs, err)
	}

	maxMB, err := getEnvInt("UPLOAD_MAX_MB", 10)
	if err != nil {
		errs = append(errs, err)
	}
	cfg.UploadMaxBytes = int64(maxMB) << 20

	switch cfg.StorageDriver {
	case "postgres", "memory":
	default:
		errs = append(errs, fmt.Errorf("STORAGE_DRIVER: unknown driver %q", cfg.StorageDriver))
	}

	switch cfg.DocumentDriver {
	case "local":
	case "s3":
		if cfg.S3Bucket == "" {
			errs = append(errs, errors.New("S3_BUCKET is required when DOCUMENT_DRIVER=s3"))
		}
	default:
		errs = append(errs, fmt.Errorf("DOCUMENT_DRIVER: unknown driver %q", cfg.DocumentDriver))
	}

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func buildDBURL() string {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		return v
	}

	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "civichub")
	pass := getEnv("DB_PASSWORD", "civichub")
	name := getEnv("DB_NAME", "civichub")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}

	num, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}

	return num, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}

	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}

	return f, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}

	return d, nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}

	return out
}
