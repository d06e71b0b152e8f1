// Package config loads configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Env holds the configuration values for the application. Each lambda only
// reads the fields it needs; unrelated fields stay empty.
type Env struct {
	Region       string
	Bucket       string
	UploadPrefix string

	UploadsTable  string
	MetadataTable string
	ArticlesTable string
	RunsTable     string

	ExtractQueueURL  string
	GenerateQueueURL string
	ExtractDLQURL    string
	GenerateDLQURL   string
	MaxReceiveCount  int

	PlaceIndexName string

	GeminiSecretARN string
	GeminiModel     string
	GeminiTimeout   time.Duration
	GeminiRetries   int

	PresignTTL time.Duration
}

// Load reads the environment without requiring any variable to be set.
// Lambdas call Require first for the values they cannot run without.
func Load() Env {
	ttlSec, _ := strconv.Atoi(get("PRESIGN_TTL_SECONDS", "900"))
	timeoutSec, _ := strconv.Atoi(get("GEMINI_REQUEST_TIMEOUT", "600"))
	retries, _ := strconv.Atoi(get("GEMINI_MAX_RETRIES", "2"))
	ceiling, _ := strconv.Atoi(get("MAX_RECEIVE_COUNT", "5"))
	if ceiling < 1 {
		ceiling = 1
	}
	return Env{
		Region:       get("AWS_REGION", "us-east-1"),
		Bucket:       os.Getenv("UPLOADS_BUCKET"),
		UploadPrefix: get("UPLOAD_PREFIX", "uploads"),

		UploadsTable:  os.Getenv("UPLOADS_TABLE"),
		MetadataTable: os.Getenv("METADATA_TABLE"),
		ArticlesTable: os.Getenv("ARTICLES_TABLE"),
		RunsTable:     os.Getenv("GENERATION_RUNS_TABLE"),

		ExtractQueueURL:  os.Getenv("EXIF_QUEUE_URL"),
		GenerateQueueURL: os.Getenv("GENERATION_QUEUE_URL"),
		ExtractDLQURL:    os.Getenv("EXIF_DLQ_URL"),
		GenerateDLQURL:   os.Getenv("GENERATION_DLQ_URL"),
		MaxReceiveCount:  ceiling,

		PlaceIndexName: os.Getenv("PLACE_INDEX_NAME"),

		GeminiSecretARN: os.Getenv("GEMINI_API_KEY_SECRET_ARN"),
		GeminiModel:     get("GEMINI_MODEL", "gemini-3-flash-preview"),
		GeminiTimeout:   time.Duration(timeoutSec) * time.Second,
		GeminiRetries:   retries,

		PresignTTL: time.Duration(ttlSec) * time.Second,
	}
}

// Require panics unless every named environment variable is set. Lambdas
// call this at startup so misconfiguration fails the cold start, not a
// request.
func Require(keys ...string) {
	for _, k := range keys {
		if os.Getenv(k) == "" {
			panic(fmt.Errorf("missing env %s", k))
		}
	}
}

// get returns the value of the environment variable k or def if not set.
func get(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
