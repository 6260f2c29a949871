package config

import (
	"log"
	"os"
	"strings"
	"time"
)

// defaultBaseURL is used when no override is supplied. The hosted
// backend is the default; point WORKTRACK_API_BASE_URL at a local
// devserver during development.
const defaultBaseURL = "https://backend-sql-9ck0.onrender.com"

// App holds the runtime configuration loaded from environment variables.
type App struct {
	Env        string
	APIBaseURL string

	// Device sources. The camera reads a JPEG frame from CameraPath,
	// optionally refreshing it first via CameraCommand. The locator
	// either runs LocationCommand (expected to print "lat,lng") or
	// falls back to the fixed Latitude/Longitude pair. Leaving a
	// source unconfigured is equivalent to a denied permission.
	CameraCommand   string
	CameraPath      string
	LocationCommand string
	Latitude        string
	Longitude       string

	// devserver settings
	HTTPPort      string
	JWTIssuer     string
	JWTSigningKey string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	DevEmail      string
	DevPassword   string
}

// Load returns application config populated from environment variables with sensible defaults.
func Load() App {
	return App{
		Env:             getEnv("APP_ENV", "dev"),
		APIBaseURL:      strings.TrimRight(getEnv("WORKTRACK_API_BASE_URL", defaultBaseURL), "/"),
		CameraCommand:   getEnv("WORKTRACK_CAMERA_COMMAND", ""),
		CameraPath:      getEnv("WORKTRACK_CAMERA_PATH", ""),
		LocationCommand: getEnv("WORKTRACK_LOCATION_COMMAND", ""),
		Latitude:        getEnv("WORKTRACK_LAT", ""),
		Longitude:       getEnv("WORKTRACK_LNG", ""),
		HTTPPort:        getEnv("HTTP_PORT", "5000"),
		JWTIssuer:       getEnv("JWT_ISSUER", "worktrack-devserver"),
		JWTSigningKey:   getEnv("JWT_SIGNING_KEY", "dev-signing-secret-change"),
		AccessTTL:       durationEnv("ACCESS_TTL", 15*time.Minute),
		RefreshTTL:      durationEnv("REFRESH_TTL", 24*time.Hour),
		DevEmail:        getEnv("DEV_EMAIL", "field@worktrack.dev"),
		DevPassword:     getEnv("DEV_PASSWORD", "field123"),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			log.Printf("invalid duration for %s: %v, using fallback %s", key, err, fallback)
			return fallback
		}
		return d
	}
	return fallback
}
