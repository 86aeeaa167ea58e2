package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	OpenWeatherAPIKey  string
	OpenWeatherBaseURL string

	// HTTPTimeout bounds a single outbound provider call.
	HTTPTimeout time.Duration

	// AWS-compatible backing services.
	AWSRegion        string
	S3Endpoint       string // optional, for MinIO/LocalStack
	DynamoDBEndpoint string // optional, for DynamoDB Local
	S3Bucket         string
	DynamoDBTable    string

	// CacheTTL is the freshness window for stored readings.
	CacheTTL time.Duration

	// Cache warmer: cities kept warm and how often.
	WarmCities   []string
	WarmInterval time.Duration

	Port string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")
	if cfg.OpenWeatherAPIKey == "" {
		return nil, fmt.Errorf("OPENWEATHER_API_KEY is required")
	}
	cfg.OpenWeatherBaseURL = getenvDefault("OPENWEATHER_BASE_URL", "https://api.openweathermap.org/data/2.5")

	timeoutStr := getenvDefault("HTTP_TIMEOUT", "30s")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTPTimeout = timeout

	cfg.AWSRegion = getenvDefault("AWS_REGION", "us-east-1")
	cfg.S3Endpoint = os.Getenv("AWS_ENDPOINT_URL_S3")
	cfg.DynamoDBEndpoint = os.Getenv("AWS_ENDPOINT_URL_DYNAMODB")
	cfg.S3Bucket = getenvDefault("S3_BUCKET_NAME", "weather-data-bucket")
	cfg.DynamoDBTable = getenvDefault("DYNAMODB_TABLE_NAME", "weather-events")

	// Freshness window: default 5 minutes.
	cfg.CacheTTL = time.Duration(getenvInt("CACHE_EXPIRY_MINUTES", 5)) * time.Minute

	if cities := os.Getenv("WARM_CITIES"); cities != "" {
		for _, c := range strings.Split(cities, ",") {
			if c = strings.TrimSpace(c); c != "" {
				cfg.WarmCities = append(cfg.WarmCities, c)
			}
		}
	}

	warmStr := getenvDefault("WARM_INTERVAL", "15m")
	warm, err := time.ParseDuration(warmStr)
	if err != nil {
		return nil, fmt.Errorf("invalid WARM_INTERVAL: %w", err)
	}
	cfg.WarmInterval = warm

	cfg.Port = getenvDefault("PORT", "8000")

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}
