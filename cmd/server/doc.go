// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

/*
Package main is the entry point for the WardenLog server.

WardenLog ingests structured and raw log events over HTTP, normalizes and
enriches them, evaluates them against detection rules, and carries matching
alerts through a playbook runner and a set of notification channels. A
single binary runs every stage of the pipeline under one Suture v4
supervision tree.

# Application Architecture

	RootSupervisor ("wardenlog")
	├── DataSupervisor ("data-layer")
	│   └── WAL retry loop + compactor (Collector durability)
	├── MessagingSupervisor ("messaging-layer")
	│   ├── Processor (dedup, enrich, index)
	│   ├── Detection (rule evaluation, alert emission)
	│   ├── Response (playbook execution)
	│   ├── Dispatcher (email/Slack/Discord/Telegram/webhook)
	│   ├── Alerts WebSocket bridge
	│   └── WebSocket hub (live dashboard push)
	└── APISupervisor ("api-layer")
	    └── HTTP server (Collector: ingest, token, admin, health)

Component initialization order:

 1. Configuration: Koanf v2 with environment variables and an optional config file
 2. Logging: zerolog, JSON or console output
 3. Redis: shared rate-limit and login-lockout counters
 4. Bus: NATS JetStream, stream provisioning, per-topic producers/consumers
 5. Storage: embedded DuckDB time-partitioned index, plus separate audit and
    dead-letter DuckDB files
 6. Pipeline stages: Processor, Detection, Response, Dispatcher, WebSocket bridge
 7. Auth: JWT token manager, in-memory user store seeded from configuration,
    Redis-backed login lockout
 8. Durability: BadgerDB write-ahead log in front of the raw-logs publish path
 9. Collector: HTTP router wiring every stage's control surface together
 10. Supervisor tree: Suture v4 process supervision
 11. HTTP server

# Configuration

Configuration loads via Koanf v2 with layered sources (highest priority wins):

	Priority: Environment variables > Config file (CONFIG_PATH) > Defaults

Core environment variables:

	# Server
	PORT=3857
	LOG_LEVEL=info
	LOG_FORMAT=json

	# Security
	JWT_SECRET_KEY=<32+ chars>
	ADMIN_USERNAME=admin
	ADMIN_PASSWORD=<password>
	CORS_ORIGINS=https://dashboard.example.com

	# Bus
	NATS_URL=nats://localhost:4222

	# Storage
	STORAGE_DATA_DIR=/data/index

	# Cache
	REDIS_URL=redis://localhost:6379/0

See internal/config for the full set and defaults.

# Signal Handling

The server handles graceful shutdown on SIGINT and SIGTERM:

 1. Stops accepting new HTTP connections
 2. Lets the supervisor tree stop every pipeline service within its
    shutdown timeout
 3. Closes bus producers/consumers, the durability log, the playbook and
    rule file watchers, and the storage and audit databases
 4. Reports any services that failed to stop in time

# Usage

	export JWT_SECRET_KEY=$(openssl rand -base64 32)
	export ADMIN_USERNAME=admin ADMIN_PASSWORD=change-me
	export NATS_URL=nats://localhost:4222
	export REDIS_URL=redis://localhost:6379/0
	./wardenlog

# See Also

  - internal/config: Configuration loading and validation
  - internal/collector: HTTP ingestion and control-plane surface
  - internal/supervisor: Process supervision
  - DESIGN.md: Component grounding and design decisions
*/
package main
