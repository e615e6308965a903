package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application's configuration. It is built once at startup
// and passed into each component's constructor; nothing mutates it afterwards.
type Config struct {
	// HTTP API
	ListenAddr string

	// GeoServer provisioning backend
	GeoServerHost     string
	GeoServerPort     string
	GeoServerUsername string
	GeoServerPassword string
	// Directory GeoServer reads coverage files from. Raster payloads are
	// staged here before the coverage store is registered.
	GeoServerDataDir string

	// Deployment store
	PostgresDSN string

	// Message broker
	RedisAddr     string
	JobStream     string
	StatusStream  string
	ConsumerGroup string
	ConsumerName  string

	// Raster payload storage
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3Bucket          string
	S3Region          string

	// Lease lifecycle
	LeaseDuration time.Duration
	SweepInterval time.Duration
	GracePeriod   time.Duration

	// Worker pool sizing: Baseline tasks run immediately, work beyond that
	// queues, and intake blocks once Burst is reached.
	WorkerBaseline int
	WorkerBurst    int
}

// Load reads the configuration from the environment, consulting an optional
// .env file first.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		ListenAddr:        getEnv("LISTEN_ADDR", ":8080"),
		GeoServerHost:     getEnv("GEOSERVER_HOST", "localhost"),
		GeoServerPort:     getEnv("GEOSERVER_PORT", "8081"),
		GeoServerUsername: getEnv("GEOSERVER_USERNAME", "admin"),
		GeoServerPassword: getEnv("GEOSERVER_PASSWORD", "geoserver"),
		GeoServerDataDir:  getEnv("GEOSERVER_DATA_DIR", "/var/lib/geoserver/data"),
		PostgresDSN:       getEnv("POSTGRES_DSN", "host=localhost user=mapstack dbname=mapstack port=5432 sslmode=disable"),
		RedisAddr:         getEnv("REDIS_ADDR", "localhost:6379"),
		JobStream:         getEnv("JOB_STREAM", "access-jobs"),
		StatusStream:      getEnv("STATUS_STREAM", "job-status"),
		ConsumerGroup:     getEnv("CONSUMER_GROUP", "access-workers"),
		ConsumerName:      getEnv("CONSUMER_NAME", "access-worker-1"),
		S3Endpoint:        getEnv("S3_ENDPOINT", ""),
		S3AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
		S3SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
		S3Bucket:          getEnv("S3_BUCKET", "mapstack-data"),
		S3Region:          getEnv("S3_REGION", "us-east-1"),
		LeaseDuration:     getDuration("LEASE_DURATION", 24*time.Hour),
		SweepInterval:     getDuration("SWEEP_INTERVAL", 30*time.Minute),
		GracePeriod:       getDuration("GRACE_PERIOD", time.Hour),
		WorkerBaseline:    getInt("WORKER_BASELINE", 4),
		WorkerBurst:       getInt("WORKER_BURST", 16),
	}
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Invalid duration for %s: %q, using default %s", key, value, defaultValue)
		return defaultValue
	}
	return d
}

func getInt(key string, defaultValue int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Invalid integer for %s: %q, using default %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}
