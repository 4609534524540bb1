// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where a config file is searched for, in
// order of priority. The first file found is used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/wardenlog/config.yaml",
	"/etc/wardenlog/config.yml",
}

// ConfigPathEnvVar is the environment variable that overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with every optional setting populated.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		Security: SecurityConfig{
			JWTAlgorithm:       "HS256",
			AccessTokenExpire:  30 * time.Minute,
			LoginFailThreshold: 5,
			LoginLockoutWindow: 15 * time.Minute,
			CORSOrigins:        []string{},
			TrustedProxies:     []string{},
			AdminScopes:        []string{"logs:write", "logs:read", "logs:admin", "rules:write"},
		},
		RateLimit: RateLimitConfig{
			DefaultTimes:   100,
			DefaultSeconds: time.Minute,
			BatchTimes:     20,
			BatchSeconds:   time.Minute,
			EventTimes:     5000,
			EventSeconds:   time.Minute,
			LoginTimes:     5,
			LoginSeconds:   time.Minute,
			BatchMaxEvents: 500,
		},
		Bus: BusConfig{
			URL:               "nats://127.0.0.1:4222",
			EmbeddedServer:    false,
			StoreDir:          "./data/bus",
			ClientIDPrefix:    "wardenlog",
			RawLogsTopic:      "raw_logs",
			EnrichedLogsTopic: "enriched_logs",
			AlertsTopic:       "alerts",
			AckWait:           5 * time.Second,
		},
		Storage: StorageConfig{
			DataDir:       "./data/index",
			IndexPrefix:   "logs",
			HotDays:       7,
			WarmDays:      30,
			ColdDays:      90,
			RetentionDays: 365,
		},
		Redis: RedisConfig{
			URL:            "redis://127.0.0.1:6379/0",
			MaxConnections: 10,
		},
		Detection: DetectionConfig{
			RulesDir:        "./rules",
			ReloadOnSignal:  true,
			DefaultThrottle: 10 * time.Minute,
		},
		Response: ResponseConfig{
			PlaybooksDir:   "./playbooks",
			ReloadOnSignal: true,
			ActionTimeout:  30 * time.Second,
			RunLogPath:     "./data/playbook_runs",
		},
		Dispatcher: DispatcherConfig{
			RetryMaxAttempts: 3,
			SeverityRouting: map[string][]string{
				"low":      {"email"},
				"medium":   {"email", "slack"},
				"high":     {"email", "slack", "webhook"},
				"critical": {"email", "slack", "discord", "telegram", "webhook"},
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file, and
// environment variables (highest priority), then validates the result.
func Load() (*Config, error) {
	k := koanf.New(".")

	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths lists koanf paths that must be parsed as comma-separated
// slices when they arrive from an environment variable.
var sliceConfigPaths = []string{
	"security.cors_origins",
	"security.trusted_proxies",
	"security.admin_scopes",
	"detection.threat_intel_paths",
	"dispatcher.email_to",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}
		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envTransformFunc maps the environment variable names recognized by
// spec.md §6 (and the SPEC_FULL.md §5 bus/storage renames) onto koanf paths.
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		"collector_host": "server.host",
		"collector_port": "server.port",
		"environment":    "server.environment",

		"jwt_secret_key":              "security.jwt_secret_key",
		"jwt_algorithm":               "security.jwt_algorithm",
		"access_token_expire_minutes": "security.access_token_expire",
		"login_fail_threshold":        "security.login_fail_threshold",
		"login_lockout_window":        "security.login_lockout_window",
		"cors_origins":                "security.cors_origins",
		"trusted_proxies":             "security.trusted_proxies",
		"admin_username":              "security.admin_username",
		"admin_password":              "security.admin_password",
		"admin_scopes":                "security.admin_scopes",

		"rate_limit_default_times":    "rate_limit.default_times",
		"rate_limit_default_seconds":  "rate_limit.default_seconds",
		"rate_limit_batch_times":      "rate_limit.batch_times",
		"rate_limit_batch_seconds":    "rate_limit.batch_seconds",
		"rate_limit_event_times":      "rate_limit.event_times",
		"rate_limit_event_seconds":    "rate_limit.event_seconds",
		"rate_limit_login_times":      "rate_limit.login_times",
		"rate_limit_login_seconds":    "rate_limit.login_seconds",
		"rate_limit_batch_max_events": "rate_limit.batch_max_events",

		"nats_url":             "bus.url",
		"nats_user":            "bus.user",
		"nats_password":        "bus.password",
		"nats_tls_cert_file":   "bus.tls_cert_file",
		"nats_tls_key_file":    "bus.tls_key_file",
		"nats_tls_ca_file":     "bus.tls_ca_file",
		"nats_embedded_server": "bus.embedded_server",
		"nats_store_dir":       "bus.store_dir",
		"bus_client_id_prefix": "bus.client_id_prefix",
		"raw_logs_topic":       "bus.raw_logs_topic",
		"enriched_logs_topic":  "bus.enriched_logs_topic",
		"alerts_topic":         "bus.alerts_topic",
		"bus_ack_wait":         "bus.ack_wait",

		"storage_data_dir":       "storage.data_dir",
		"storage_index_prefix":   "storage.index_prefix",
		"storage_hot_days":       "storage.hot_days",
		"storage_warm_days":      "storage.warm_days",
		"storage_cold_days":      "storage.cold_days",
		"storage_retention_days": "storage.retention_days",

		"redis_url":             "redis.url",
		"redis_max_connections": "redis.max_connections",

		"detection_rules_dir":        "detection.rules_dir",
		"detection_reload_on_signal": "detection.reload_on_signal",
		"detection_default_throttle": "detection.default_throttle",
		"threat_intel_paths":         "detection.threat_intel_paths",

		"playbooks_dir":             "response.playbooks_dir",
		"response_reload_on_signal": "response.reload_on_signal",
		"response_action_timeout":   "response.action_timeout",
		"thehive_url":               "response.thehive_url",
		"thehive_api_key":           "response.thehive_api_key",
		"cortex_url":                "response.cortex_url",
		"cortex_api_key":            "response.cortex_api_key",
		"ansible_api_url":           "response.ansible_api_url",
		"python_action_endpoint":    "response.python_action_url",

		"email_smtp_host":     "dispatcher.email_smtp_host",
		"email_smtp_port":     "dispatcher.email_smtp_port",
		"email_from":          "dispatcher.email_from",
		"email_to":            "dispatcher.email_to",
		"slack_webhook_url":   "dispatcher.slack_webhook_url",
		"discord_webhook_url": "dispatcher.discord_webhook_url",
		"telegram_bot_token":  "dispatcher.telegram_bot_token",
		"telegram_chat_id":    "dispatcher.telegram_chat_id",
		"generic_webhook_url": "dispatcher.generic_webhook_url",
		"dispatch_retry_max":  "dispatcher.retry_max_attempts",

		"log_level":  "logging.level",
		"log_format": "logging.format",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}

	// Unknown keys fall through unchanged; koanf ignores paths with no
	// matching struct field.
	return strings.ReplaceAll(key, "_", ".")
}

// GetKoanfInstance loads configuration and returns the underlying koanf
// instance for callers that need raw path access (e.g. admin diagnostics).
func GetKoanfInstance() (*koanf.Koanf, error) {
	k := koanf.New(".")
	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, err
	}
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, err
		}
	}
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, err
	}
	return k, nil
}
