// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration loaded from environment variables
// and an optional config file. Covers the Collector's HTTP surface, auth and
// rate-limit quotas, the message bus, time-partitioned storage, the shared
// Redis cache, the detection and response engines, the alert dispatcher, and
// logging.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: built-in sensible defaults for all optional settings
//  2. Config file: optional YAML file (config.yaml) for persistent settings
//  3. Environment variables: override any setting
//
// Config is immutable after Load() and safe for concurrent read access.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Security   SecurityConfig   `koanf:"security"`
	RateLimit  RateLimitConfig  `koanf:"rate_limit"`
	Bus        BusConfig        `koanf:"bus"`
	Storage    StorageConfig    `koanf:"storage"`
	Redis      RedisConfig      `koanf:"redis"`
	Detection  DetectionConfig  `koanf:"detection"`
	Response   ResponseConfig   `koanf:"response"`
	Dispatcher DispatcherConfig `koanf:"dispatcher"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// ServerConfig holds the Collector's HTTP server settings.
type ServerConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"` // development, staging, production
}

// SecurityConfig holds JWT issuance and CORS settings.
type SecurityConfig struct {
	JWTSecretKey       string        `koanf:"jwt_secret_key"`
	JWTAlgorithm       string        `koanf:"jwt_algorithm"`
	AccessTokenExpire  time.Duration `koanf:"access_token_expire"`
	LoginFailThreshold int           `koanf:"login_fail_threshold"`
	LoginLockoutWindow time.Duration `koanf:"login_lockout_window"`
	CORSOrigins        []string      `koanf:"cors_origins"`
	TrustedProxies     []string      `koanf:"trusted_proxies"`
	AdminUsername      string        `koanf:"admin_username"`
	AdminPassword      string        `koanf:"admin_password"`
	AdminScopes        []string      `koanf:"admin_scopes"`
}

// RateLimitConfig holds the sliding-window quotas for each ingest endpoint
// and for the /token login endpoint.
type RateLimitConfig struct {
	DefaultTimes   int           `koanf:"default_times"`
	DefaultSeconds time.Duration `koanf:"default_seconds"`
	BatchTimes     int           `koanf:"batch_times"`
	BatchSeconds   time.Duration `koanf:"batch_seconds"`
	// EventTimes/EventSeconds bound the third independent quota spec.md
	// §4.1 calls for — total events accepted, counted per event rather
	// than per request, so one large batch can exhaust it on its own.
	EventTimes   int           `koanf:"event_times"`
	EventSeconds time.Duration `koanf:"event_seconds"`
	LoginTimes   int           `koanf:"login_times"`
	LoginSeconds time.Duration `koanf:"login_seconds"`

	// BatchMaxEvents bounds how many events a single ingest_batch request
	// may carry (spec.md §4.2: "accepts up to a configured max per
	// batch"), independent of the BatchTimes/BatchSeconds request quota.
	BatchMaxEvents int `koanf:"batch_max_events"`
}

// BusConfig holds the message bus connection and topic settings. The bus is
// NATS JetStream accessed through watermill, standing in for the reference
// deployment's Kafka cluster (see SPEC_FULL.md §5 for the naming decision).
type BusConfig struct {
	URL               string        `koanf:"url"`
	User              string        `koanf:"user"`
	Password          string        `koanf:"password"`
	TLSCertFile       string        `koanf:"tls_cert_file"`
	TLSKeyFile        string        `koanf:"tls_key_file"`
	TLSCAFile         string        `koanf:"tls_ca_file"`
	EmbeddedServer    bool          `koanf:"embedded_server"`
	StoreDir          string        `koanf:"store_dir"`
	ClientIDPrefix    string        `koanf:"client_id_prefix"`
	RawLogsTopic      string        `koanf:"raw_logs_topic"`
	EnrichedLogsTopic string        `koanf:"enriched_logs_topic"`
	AlertsTopic       string        `koanf:"alerts_topic"`
	AckWait           time.Duration `koanf:"ack_wait"`
}

// StorageConfig holds the time-partitioned index settings. Storage is an
// embedded DuckDB file tree standing in for the reference deployment's
// Elasticsearch cluster.
type StorageConfig struct {
	DataDir       string `koanf:"data_dir"`
	IndexPrefix   string `koanf:"index_prefix"`
	HotDays       int    `koanf:"hot_days"`
	WarmDays      int    `koanf:"warm_days"`
	ColdDays      int    `koanf:"cold_days"`
	RetentionDays int    `koanf:"retention_days"` // delete threshold
}

// RedisConfig holds the shared rate-limit/login-lockout cache connection.
type RedisConfig struct {
	URL            string `koanf:"url"`
	MaxConnections int    `koanf:"max_connections"`
}

// DetectionConfig holds the detection engine's rule-store settings.
type DetectionConfig struct {
	RulesDir         string        `koanf:"rules_dir"`
	ReloadOnSignal   bool          `koanf:"reload_on_signal"`
	DefaultThrottle  time.Duration `koanf:"default_throttle"`
	ThreatIntelPaths []string      `koanf:"threat_intel_paths"`
}

// ResponseConfig holds the playbook runner's settings.
type ResponseConfig struct {
	PlaybooksDir   string        `koanf:"playbooks_dir"`
	ReloadOnSignal bool          `koanf:"reload_on_signal"`
	ActionTimeout  time.Duration `koanf:"action_timeout"`
	// RunLogPath is the directory where the append-only playbook run log's
	// embedded store keeps its files.
	RunLogPath    string `koanf:"run_log_path"`
	// PythonActionURL is the HTTP shim endpoint a "python"-type playbook
	// action is dispatched to; no endpoint means the action is a
	// registered no-op (see response.DefaultDrivers).
	PythonActionURL string `koanf:"python_action_url"`
	TheHiveURL      string `koanf:"thehive_url"`
	TheHiveAPIKey string `koanf:"thehive_api_key"`
	CortexURL     string `koanf:"cortex_url"`
	CortexAPIKey  string `koanf:"cortex_api_key"`
	AnsibleAPIURL string `koanf:"ansible_api_url"`
}

// DispatcherConfig holds per-channel alert delivery settings.
type DispatcherConfig struct {
	EmailSMTPHost     string   `koanf:"email_smtp_host"`
	EmailSMTPPort     int      `koanf:"email_smtp_port"`
	EmailFrom         string   `koanf:"email_from"`
	EmailTo           []string `koanf:"email_to"`
	SlackWebhookURL   string   `koanf:"slack_webhook_url"`
	DiscordWebhookURL string   `koanf:"discord_webhook_url"`
	TelegramBotToken  string   `koanf:"telegram_bot_token"`
	TelegramChatID    string   `koanf:"telegram_chat_id"`
	GenericWebhookURL string   `koanf:"generic_webhook_url"`
	RetryMaxAttempts  int      `koanf:"retry_max_attempts"`
	// SeverityRouting maps an alert severity ("low", "medium", "high",
	// "critical") to the channel names ("email", "slack", "discord",
	// "telegram", "webhook") that severity fans out to. A severity absent
	// from this map is not dispatched anywhere.
	SeverityRouting map[string][]string `koanf:"severity_routing"`
}

// LoggingConfig holds zerolog output settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json, console
}

// Validate checks that required fields are present and well-formed. It is
// called by Load() after all three configuration layers have been merged.
func (c *Config) Validate() error {
	if c.Security.JWTSecretKey == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if len(c.Security.JWTSecretKey) < 32 {
		return fmt.Errorf("JWT_SECRET_KEY must be at least 32 characters")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port out of range: %d", c.Server.Port)
	}
	if c.Bus.URL == "" && !c.Bus.EmbeddedServer {
		return fmt.Errorf("NATS_URL is required unless an embedded bus is configured")
	}
	if err := validateNATSURL(c.Bus.URL); c.Bus.URL != "" && err != nil {
		return fmt.Errorf("invalid NATS_URL: %w", err)
	}
	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}
	if c.RateLimit.DefaultTimes <= 0 || c.RateLimit.DefaultSeconds <= 0 {
		return fmt.Errorf("rate_limit default quota must be positive")
	}
	if c.Response.TheHiveURL != "" {
		if err := validateHTTPURL(c.Response.TheHiveURL, "THEHIVE_URL"); err != nil {
			return err
		}
	}
	if c.Response.CortexURL != "" {
		if err := validateHTTPURL(c.Response.CortexURL, "CORTEX_URL"); err != nil {
			return err
		}
	}
	if c.Dispatcher.SlackWebhookURL != "" {
		if err := validateHTTPURL(c.Dispatcher.SlackWebhookURL, "SLACK_WEBHOOK_URL"); err != nil {
			return err
		}
	}
	return nil
}
