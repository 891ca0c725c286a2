package shared

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string

	MongoURI        string
	MongoDB         string
	MongoCollection string

	RedisAddr string
	RedisDB   int
	RedisPass string
	CacheTTL  time.Duration

	GeocoderBase      string
	GeocoderUserAgent string
	GeocoderLanguage  string
	GeocoderTimeout   time.Duration
	GeocoderRPS       int

	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
	MinIOUseSSL    bool
	MediaFolder    string
	MediaPublicURL string
	UploadTimeout  time.Duration
	MaxUploadBytes int64

	NATSURL string

	BackfillWorkers int
}

func Load() Config {
	// .env is optional; real deployments use the process environment.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("failed to load .env")
	}

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
			log.Warn().Str("key", k).Str("value", v).Msg("invalid integer, using default")
		}
		return def
	}
	boolean := func(k string, def bool) bool {
		if v := os.Getenv(k); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				return b
			}
			log.Warn().Str("key", k).Str("value", v).Msg("invalid boolean, using default")
		}
		return def
	}
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ""),

		MongoURI:        env("MONGO_URI", "mongodb://127.0.0.1:27017"),
		MongoDB:         env("MONGO_DB", "wanderlust"),
		MongoCollection: env("MONGO_COLLECTION", "listings"),

		RedisAddr: env("REDIS_ADDR", "localhost:6379"),
		RedisPass: env("REDIS_PASSWORD", ""),
		RedisDB:   atoi("REDIS_DB", 0),
		CacheTTL:  time.Duration(atoi("CACHE_TTL_SECONDS", 300)) * time.Second,

		GeocoderBase:      env("GEOCODER_BASE_URL", "https://nominatim.openstreetmap.org"),
		GeocoderUserAgent: env("GEOCODER_USER_AGENT", "wanderlust-listings/1.0"),
		GeocoderLanguage:  env("GEOCODER_LANGUAGE", "en"),
		GeocoderTimeout:   time.Duration(atoi("GEOCODER_TIMEOUT_MS", 5000)) * time.Millisecond,
		GeocoderRPS:       atoi("GEOCODER_RPS", 1),

		MinIOEndpoint:  env("MINIO_ENDPOINT", "localhost:9000"),
		MinIOAccessKey: env("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey: env("MINIO_SECRET_KEY", ""),
		MinIOBucket:    env("MINIO_BUCKET", "wanderlust"),
		MinIOUseSSL:    boolean("MINIO_USE_SSL", false),
		MediaFolder:    env("MEDIA_FOLDER", "wanderlust-listings"),
		MediaPublicURL: env("MEDIA_PUBLIC_BASE_URL", ""),
		UploadTimeout:  time.Duration(atoi("UPLOAD_TIMEOUT_MS", 10000)) * time.Millisecond,
		MaxUploadBytes: int64(atoi("MAX_UPLOAD_MB", 10)) << 20,

		NATSURL: env("NATS_URL", ""),

		BackfillWorkers: atoi("BACKFILL_WORKERS", 2),
	}
	if c.MinIOAccessKey == "" || c.MinIOSecretKey == "" {
		log.Warn().Msg("MINIO_ACCESS_KEY or MINIO_SECRET_KEY is empty")
	}
	if c.GeocoderRPS <= 0 {
		c.GeocoderRPS = 1
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
