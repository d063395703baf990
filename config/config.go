package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config stores the application configuration.
// Everything has a sane single-machine default; a .env file or plain
// environment variables override it.
type Config struct {
	ListenAddr string
	DataDir    string

	// State store. "sqlite" keeps everything in a local file under DataDir;
	// "redis" uses a redis instance instead.
	StoreBackend  string
	SQLitePath    string
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Media payload store. "inline" keeps data URIs inside the state store
	// (the default); "minio" offloads payloads to an S3-compatible bucket.
	MediaStore     string
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioRegion    string
	MinioUseSSL    bool

	FadeMillis      int    // duration of every volume fade, in milliseconds
	GalleryPageSize int    // thumbnails per gallery page
	MediaWatchDir   string // optional drop directory auto-imported into the gallery
	SeedDemo        bool   // seed one demo enemy when the tracker is empty

	LogLevel string
	LogPath  string
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvBool gets an environment variable as bool or returns a default value.
func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() will not override variables already set in the environment.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on existing environment variables and defaults.")
	}

	dataDir := getEnv("DATA_DIR", "data")

	return &Config{
		ListenAddr: getEnv("LISTEN_ADDR", ":8080"),
		DataDir:    dataDir,

		StoreBackend:  getEnv("STORE_BACKEND", "sqlite"),
		SQLitePath:    getEnv("SQLITE_PATH", filepath.Join(dataDir, "dmscreen.db")),
		RedisHost:     getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		MediaStore:     getEnv("MEDIA_STORE", "inline"),
		MinioEndpoint:  getEnv("MINIO_ENDPOINT", ""),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getEnv("MINIO_BUCKET", "dmscreen"),
		MinioRegion:    getEnv("MINIO_REGION", ""),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),

		FadeMillis:      getEnvInt("FADE_MS", 2000),
		GalleryPageSize: getEnvInt("GALLERY_PAGE_SIZE", 80),
		MediaWatchDir:   getEnv("MEDIA_WATCH_DIR", ""),
		SeedDemo:        getEnvBool("SEED_DEMO", false),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogPath:  getEnv("LOG_PATH", filepath.Join(dataDir, "logs", "dmscreen.log")),
	}
}
