package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	UserIDs        []string
	PollInterval   time.Duration
	FailureBackoff time.Duration
	MaxWorkers     int

	APIBaseURL   string
	AuthTokenURL string

	OffersQueue   string
	AcceptedQueue string

	AcceptedTopic string
	SleepTopic    string
	StopTopic     string

	UsersTable  string
	DatabaseURL string

	KafkaBrokers []string

	ArchiveBucket string
	ArchivePrefix string

	OpsAddr        string
	OpsTokenSecret string

	SigningCredential string
	SigningSecret     string
}

const (
	defaultPollInterval   = 2 * time.Second
	defaultFailureBackoff = 30 * time.Second
	defaultOpsAddr        = ":8071"
)

func Load() (Config, error) {
	cfg := Config{
		UserIDs:           splitList(os.Getenv("CATCHER_USER_IDS")),
		PollInterval:      getDuration("CATCHER_POLL_INTERVAL", defaultPollInterval),
		FailureBackoff:    getDuration("CATCHER_FAILURE_BACKOFF", defaultFailureBackoff),
		MaxWorkers:        getInt("CATCHER_MAX_WORKERS", 0),
		APIBaseURL:        os.Getenv("CATCHER_API_BASE_URL"),
		AuthTokenURL:      os.Getenv("CATCHER_AUTH_TOKEN_URL"),
		OffersQueue:       os.Getenv("CATCHER_OFFERS_QUEUE"),
		AcceptedQueue:     os.Getenv("CATCHER_ACCEPTED_QUEUE"),
		AcceptedTopic:     os.Getenv("CATCHER_ACCEPTED_TOPIC"),
		SleepTopic:        os.Getenv("CATCHER_SLEEP_TOPIC"),
		StopTopic:         os.Getenv("CATCHER_STOP_TOPIC"),
		UsersTable:        getEnv("CATCHER_USERS_TABLE", "Users"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		KafkaBrokers:      splitList(os.Getenv("CATCHER_KAFKA_BROKERS")),
		ArchiveBucket:     os.Getenv("CATCHER_ARCHIVE_BUCKET"),
		ArchivePrefix:     os.Getenv("CATCHER_ARCHIVE_PREFIX"),
		OpsAddr:           getEnv("CATCHER_OPS_ADDR", defaultOpsAddr),
		OpsTokenSecret:    os.Getenv("CATCHER_OPS_TOKEN_SECRET"),
		SigningCredential: os.Getenv("CATCHER_SIGNING_CREDENTIAL"),
		SigningSecret:     os.Getenv("CATCHER_SIGNING_SECRET"),
	}
	if len(cfg.UserIDs) == 0 {
		return Config{}, fmt.Errorf("CATCHER_USER_IDS required")
	}
	if cfg.OffersQueue == "" {
		return Config{}, fmt.Errorf("CATCHER_OFFERS_QUEUE required")
	}
	if cfg.AcceptedTopic == "" || cfg.SleepTopic == "" || cfg.StopTopic == "" {
		return Config{}, fmt.Errorf("CATCHER_ACCEPTED_TOPIC, CATCHER_SLEEP_TOPIC, and CATCHER_STOP_TOPIC required")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
