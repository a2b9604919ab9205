package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config stores the exporter's configuration, loaded from the environment.
type Config struct {
	SourceAudioDir string // base directory scanned for audio masters / watched by `watch`
	OutputDir      string // USB mount point / output root for PIONEER/... tree

	SkipBPM             bool // write tempo=0 and emit PQTZ header-only.4
	SkipKey             bool // write key_id=0
	MinBPM              int  // passed to the external analyzer only
	MaxBPM              int
	MaxParallelAnalyses int // ANLZ worker cap; 0 = runtime.NumCPU() capped at 8
	CacheTags           bool

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	MinioRegion    string

	ValidateSourceSizes bool // confirm each track's declared file size against its source store before writing the row
	UseMinioSource      bool // back ValidateSourceSizes with MinioStore instead of a LocalStore rooted at SourceAudioDir

	ManifestSigningKey string // HMAC key for export-manifest.jwt
	HistoryPassphrase  string // optional bcrypt-gated access to `history`
	ProgressServerAddr string // addr for the optional --serve progress dashboard
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
	// godotenv.Load() will not override existing env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on existing environment variables and defaults.")
	}

	return &Config{
		SourceAudioDir: getEnv("SOURCE_AUDIO_DIR", "library"),
		OutputDir:      getEnv("OUTPUT_DIR", "usb"),

		SkipBPM:             getEnvBool("SKIP_BPM", false),
		SkipKey:             getEnvBool("SKIP_KEY", false),
		MinBPM:              getEnvInt("MIN_BPM", 60),
		MaxBPM:              getEnvInt("MAX_BPM", 200),
		MaxParallelAnalyses: getEnvInt("MAX_PARALLEL_ANALYSES", 0),
		CacheTags:           getEnvBool("CACHE_TAGS", false),

		DBHost:     getEnv("DB_HOST", "127.0.0.1"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     getEnv("DB_NAME", "rekordboxport"),

		RedisHost:     getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "127.0.0.1:9000"),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getEnv("MINIO_BUCKET", "rekordboxport"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),
		MinioRegion:    getEnv("MINIO_REGION", "us-east-1"),

		ValidateSourceSizes: getEnvBool("VALIDATE_SOURCE_SIZES", false),
		UseMinioSource:      getEnvBool("USE_MINIO_SOURCE", false),

		ManifestSigningKey: getEnv("MANIFEST_SIGNING_KEY", "dev-only-insecure-key"),
		HistoryPassphrase:  os.Getenv("EXPORT_HISTORY_PASSPHRASE"),
		ProgressServerAddr: getEnv("PROGRESS_SERVER_ADDR", "127.0.0.1:8383"),
	}
}
