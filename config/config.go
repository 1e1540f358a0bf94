package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	// MediaRoot is where uploads, HLS renditions and the database live.
	MediaRoot string
	// FFmpegBin is the transcoder binary, resolved from PATH by default.
	FFmpegBin string
	Workers   int
	// JobTimeout bounds one quality rendition; FinalizeTimeout bounds the
	// master playlist step.
	JobTimeout      time.Duration
	FinalizeTimeout time.Duration
}

func Load() (*Config, error) {
	workers, err := strconv.Atoi(getEnv("WORKERS", "2"))
	if err != nil {
		return nil, fmt.Errorf("invalid WORKERS: %w", err)
	}

	jobTimeoutSec, err := strconv.Atoi(getEnv("JOB_TIMEOUT_SEC", "760"))
	if err != nil {
		return nil, fmt.Errorf("invalid JOB_TIMEOUT_SEC: %w", err)
	}

	finalizeTimeoutSec, err := strconv.Atoi(getEnv("FINALIZE_TIMEOUT_SEC", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid FINALIZE_TIMEOUT_SEC: %w", err)
	}

	return &Config{
		MediaRoot:       getEnv("MEDIA_ROOT", "/data"),
		FFmpegBin:       getEnv("FFMPEG_BIN", "ffmpeg"),
		Workers:         workers,
		JobTimeout:      time.Duration(jobTimeoutSec) * time.Second,
		FinalizeTimeout: time.Duration(finalizeTimeoutSec) * time.Second,
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
