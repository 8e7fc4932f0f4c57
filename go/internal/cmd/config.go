package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/nats-io/nats.go"
	"gopkg.in/yaml.v3"
)

// Config is draftd's service configuration. The YAML file carries the
// defaults for a deployment; environment variables override the fields that
// differ per instance.
type Config struct {
	Draft struct {
		DefaultTimezone string `yaml:"default_timezone"`
	} `yaml:"draft"`
	Scheduler struct {
		BatchSize       int32 `yaml:"batch_size"`
		Workers         int   `yaml:"workers"`
		IdlePollSeconds int   `yaml:"idle_poll_seconds"`
	} `yaml:"scheduler"`
	NATS struct {
		URL    string `yaml:"url"`
		Stream string `yaml:"stream"`
	} `yaml:"nats"`
	ScheduleService struct {
		BaseURL string `yaml:"base_url"`
		Token   string `yaml:"token"`
	} `yaml:"schedule_service"`
}

func defaultConfig() *Config {
	var config Config
	config.Draft.DefaultTimezone = "UTC"
	config.Scheduler.BatchSize = 50
	config.Scheduler.Workers = 10
	config.Scheduler.IdlePollSeconds = 5
	config.NATS.URL = nats.DefaultURL
	config.NATS.Stream = "DRAFT_EVENTS"
	config.ScheduleService.BaseURL = "http://localhost:8090"
	return &config
}

// loadConfig reads the YAML file when it exists and layers env overrides on
// top. A missing file is not an error; defaults plus env cover dev setups.
func loadConfig(path string) (*Config, error) {
	config := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	config.Draft.DefaultTimezone = getEnv("DRAFT_DEFAULT_TIMEZONE", config.Draft.DefaultTimezone)
	config.Scheduler.BatchSize = int32(getEnvAsInt("SCHEDULER_BATCH_SIZE", int(config.Scheduler.BatchSize)))
	config.Scheduler.Workers = getEnvAsInt("SCHEDULER_WORKERS", config.Scheduler.Workers)
	config.Scheduler.IdlePollSeconds = getEnvAsInt("SCHEDULER_IDLE_POLL_SECONDS", config.Scheduler.IdlePollSeconds)
	config.NATS.URL = getEnv("NATS_URL", config.NATS.URL)
	config.NATS.Stream = getEnv("NATS_STREAM", config.NATS.Stream)
	config.ScheduleService.BaseURL = getEnv("SCHEDULE_SERVICE_URL", config.ScheduleService.BaseURL)
	config.ScheduleService.Token = getEnv("SCHEDULE_SERVICE_TOKEN", config.ScheduleService.Token)

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
