package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the .env file from the current working directory and sets
// environment variables. If .env does not exist, Load returns an error but
// callers can ignore it and use system env or defaults. Pass one or more paths
// to load from specific files; with no paths, ".env" is used.
func Load(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	return godotenv.Load(paths...)
}

// GetEnv returns the value of the environment variable named by key, or fallback
// if the variable is unset or empty.
func GetEnv(key, fallback string) string {
	if s := strings.TrimSpace(os.Getenv(key)); s != "" {
		return s
	}
	return fallback
}

// GetEnvInt returns the integer value of the environment variable named by key,
// or fallback if the variable is unset, empty, or not a valid integer.
func GetEnvInt(key string, fallback int) int {
	if n, err := strconv.Atoi(GetEnv(key, "")); err == nil {
		return n
	}
	return fallback
}

// GetEnvBool accepts anything strconv.ParseBool does.
func GetEnvBool(key string, fallback bool) bool {
	if b, err := strconv.ParseBool(GetEnv(key, "")); err == nil {
		return b
	}
	return fallback
}

// GetEnvDuration accepts Go duration strings ("90s", "2m").
func GetEnvDuration(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(GetEnv(key, "")); err == nil {
		return d
	}
	return fallback
}

// Config is the service configuration.
type Config struct {
	Port              string
	LogLevel          string
	LogFormat         string
	StoreBackend      string // "json", "sqlite" or "memory"
	StorePath         string
	FFmpegPath        string // empty disables non-GIF decoding
	TempDir           string
	FrameSize         int
	DecodeConcurrency int
	DecodeTimeout     time.Duration
	MaxVideoBytes     int64
}

// FromEnv builds a Config from the environment, applying defaults.
func FromEnv() Config {
	return Config{
		Port:              GetEnv("PORT", "8080"),
		LogLevel:          GetEnv("LOG_LEVEL", "info"),
		LogFormat:         GetEnv("LOG_FORMAT", "json"),
		StoreBackend:      strings.ToLower(GetEnv("STORE_BACKEND", "json")),
		StorePath:         GetEnv("STORE_PATH", "video_hashes.json"),
		FFmpegPath:        GetEnv("FFMPEG_PATH", "ffmpeg"),
		TempDir:           GetEnv("TEMP_DIR", ""),
		FrameSize:         GetEnvInt("FRAME_SIZE", 64),
		DecodeConcurrency: GetEnvInt("DECODE_CONCURRENCY", 4),
		DecodeTimeout:     GetEnvDuration("DECODE_TIMEOUT", 2*time.Minute),
		MaxVideoBytes:     int64(GetEnvInt("MAX_VIDEO_MB", 50)) << 20,
	}
}
