// Package config loads runtime configuration for the mcbrowse server from
// the environment. A .env file in the working directory is read first;
// variables already set in the environment win.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/tanaylab/mcbrowse/pkg/artifact"
	"github.com/tanaylab/mcbrowse/pkg/cache"
	"github.com/tanaylab/mcbrowse/pkg/store"
)

// Defaults.
const (
	DefaultAddr            = ":8080"
	DefaultShutdownTimeout = 10 * time.Second
	DefaultFigureTTL       = store.DefaultTTL
)

// Config is the server configuration.
type Config struct {
	// Addr is the listen address (MCBROWSE_ADDR).
	Addr string

	// DataDir is the file-backed repository served (MCBROWSE_DATA).
	DataDir string

	// CacheDir enables the file cache when Redis is not configured
	// (MCBROWSE_CACHE_DIR). Empty with no Redis means an in-memory cache.
	CacheDir string

	// FigureDir enables the file figure store when MongoDB is not
	// configured (MCBROWSE_FIGURE_DIR).
	FigureDir string

	// ArtifactDir publishes exported files to a local directory when S3
	// is not configured (MCBROWSE_ARTIFACT_DIR).
	ArtifactDir string

	// FigureTTL is how long stored figures live (MCBROWSE_FIGURE_TTL).
	FigureTTL time.Duration

	Redis RedisConfig
	Mongo MongoConfig
	S3    S3Config
}

// RedisConfig enables the Redis cache when Addr is set.
type RedisConfig struct {
	cache.RedisConfig
}

// Enabled reports whether Redis is configured.
func (c RedisConfig) Enabled() bool { return c.Addr != "" }

// MongoConfig enables the MongoDB figure store when URI is set.
type MongoConfig struct {
	store.MongoConfig
}

// Enabled reports whether MongoDB is configured.
func (c MongoConfig) Enabled() bool { return c.URI != "" }

// S3Config enables artifact publishing when Endpoint is set.
type S3Config struct {
	artifact.S3Config
}

// Enabled reports whether S3 is configured.
func (c S3Config) Enabled() bool { return c.Endpoint != "" }

// Load reads .env (if present) and the environment.
func Load() *Config {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a configuration from a variable lookup.
func FromEnv(getenv func(string) string) *Config {
	get := func(key string) string { return strings.TrimSpace(getenv(key)) }

	return &Config{
		Addr:        normalizeAddr(firstNonEmpty(get("MCBROWSE_ADDR"), portAddr(get("PORT")), DefaultAddr)),
		DataDir:     get("MCBROWSE_DATA"),
		CacheDir:    get("MCBROWSE_CACHE_DIR"),
		FigureDir:   get("MCBROWSE_FIGURE_DIR"),
		ArtifactDir: get("MCBROWSE_ARTIFACT_DIR"),
		FigureTTL:   parseDuration(get("MCBROWSE_FIGURE_TTL"), DefaultFigureTTL),
		Redis: RedisConfig{cache.RedisConfig{
			Addr:     get("MCBROWSE_REDIS_ADDR"),
			Password: get("MCBROWSE_REDIS_PASSWORD"),
			DB:       parseInt(get("MCBROWSE_REDIS_DB"), 0),
			Prefix:   firstNonEmpty(get("MCBROWSE_REDIS_PREFIX"), "mcbrowse:"),
		}},
		Mongo: MongoConfig{store.MongoConfig{
			URI:        get("MCBROWSE_MONGO_URI"),
			Database:   firstNonEmpty(get("MCBROWSE_MONGO_DB"), store.DefaultMongoDatabase),
			Collection: firstNonEmpty(get("MCBROWSE_MONGO_COLLECTION"), store.DefaultMongoCollection),
		}},
		S3: S3Config{artifact.S3Config{
			Endpoint:  get("MCBROWSE_S3_ENDPOINT"),
			Region:    firstNonEmpty(get("MCBROWSE_S3_REGION"), "us-east-1"),
			AccessKey: get("MCBROWSE_S3_ACCESS_KEY"),
			SecretKey: get("MCBROWSE_S3_SECRET_KEY"),
			Bucket:    firstNonEmpty(get("MCBROWSE_S3_BUCKET"), "mcbrowse-figures"),
			UseSSL:    parseBool(get("MCBROWSE_S3_USE_SSL"), true),
		}},
	}
}

func portAddr(port string) string {
	if port == "" {
		return ""
	}
	return ":" + strings.TrimPrefix(port, ":")
}

func normalizeAddr(addr string) string {
	if !strings.Contains(addr, ":") {
		return ":" + addr
	}
	return addr
}

func parseBool(raw string, def bool) bool {
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}

func parseInt(raw string, def int) int {
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func parseDuration(raw string, def time.Duration) time.Duration {
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
