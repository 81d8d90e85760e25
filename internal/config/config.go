package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendRedis = "redis"
	BackendS3    = "s3"
	BackendNone  = "none"
)

type Config struct {
	ListenAddr string
	LogLevel   string

	CacheBackend   string
	CacheOpTimeout time.Duration

	RedisAddr     string
	RedisUsername string
	RedisPassword string
	RedisDB       int

	S3Endpoint  string
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string

	UpstreamTimeout time.Duration
	UpstreamRetries int

	UnicamScheduleURL string
	UnicamCatalogURL  string
	UnicamWebexLinks  bool

	HandlerTimeout time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
	PurgeEnabled   bool
	// TrustProxy honors X-Forwarded-For and X-Real-IP. Enable it only behind
	// a proxy that overwrites those headers.
	TrustProxy bool
}

// Load reads the configuration from the environment. Variables from the
// given files (".env" when none is given) are loaded first without
// overriding what is already set; missing files are ignored.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return fromEnv()
}

func fromEnv() (Config, error) {
	cfg := Config{
		ListenAddr: getenv("TIMETABLE_LISTEN_ADDR", ":8080"),
		LogLevel:   getenv("TIMETABLE_LOG_LEVEL", "info"),

		CacheBackend:   strings.ToLower(getenv("TIMETABLE_CACHE_BACKEND", BackendRedis)),
		CacheOpTimeout: getenvDuration("TIMETABLE_CACHE_OP_TIMEOUT", 2*time.Second),

		RedisAddr:     getenv("TIMETABLE_REDIS_ADDR", "127.0.0.1:6379"),
		RedisUsername: os.Getenv("TIMETABLE_REDIS_USERNAME"),
		RedisPassword: os.Getenv("TIMETABLE_REDIS_PASSWORD"),
		RedisDB:       getenvInt("TIMETABLE_REDIS_DB", 0),

		S3Endpoint:  getenv("TIMETABLE_S3_ENDPOINT", ""),
		S3Region:    getenv("TIMETABLE_S3_REGION", "us-east-1"),
		S3Bucket:    getenv("TIMETABLE_S3_BUCKET", ""),
		S3AccessKey: os.Getenv("TIMETABLE_S3_ACCESS_KEY"),
		S3SecretKey: os.Getenv("TIMETABLE_S3_SECRET_KEY"),

		UpstreamTimeout: getenvDuration("TIMETABLE_UPSTREAM_TIMEOUT", 15*time.Second),
		UpstreamRetries: getenvInt("TIMETABLE_UPSTREAM_RETRIES", 2),

		UnicamScheduleURL: getenv("TIMETABLE_UNICAM_SCHEDULE_URL", "https://unifare.unicam.it"),
		UnicamCatalogURL:  getenv("TIMETABLE_UNICAM_CATALOG_URL", "https://orarilezioni.unicam.it"),
		UnicamWebexLinks:  getenvBool("TIMETABLE_UNICAM_WEBEX_LINKS", false),

		HandlerTimeout: getenvDuration("TIMETABLE_HANDLER_TIMEOUT", 30*time.Second),
		RateLimitRPS:   getenvFloat("TIMETABLE_RATE_LIMIT_RPS", 5),
		RateLimitBurst: getenvInt("TIMETABLE_RATE_LIMIT_BURST", 20),
		PurgeEnabled:   getenvBool("TIMETABLE_PURGE_ENABLED", false),
		TrustProxy:     getenvBool("TIMETABLE_TRUST_PROXY", false),
	}

	switch cfg.CacheBackend {
	case BackendRedis:
		if cfg.RedisAddr == "" {
			return cfg, errors.New("TIMETABLE_REDIS_ADDR is required for the redis cache backend")
		}
	case BackendS3:
		if cfg.S3Endpoint == "" || cfg.S3Bucket == "" || cfg.S3AccessKey == "" || cfg.S3SecretKey == "" {
			return cfg, errors.New("S3 endpoint/bucket/access/secret are required for the s3 cache backend")
		}
	case BackendNone:
	default:
		return cfg, fmt.Errorf("unknown TIMETABLE_CACHE_BACKEND %q", cfg.CacheBackend)
	}
	if cfg.RateLimitRPS < 0 {
		return cfg, errors.New("TIMETABLE_RATE_LIMIT_RPS must not be negative")
	}
	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getenvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getenvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
