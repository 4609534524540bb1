// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

/*
Package services provides suture.Service wrappers for WardenLog's pipeline
components.

This package adapts application components to the suture v4 supervision
model, translating their native lifecycle (a blocking Run/RunWithContext
call, or net/http's ListenAndServe) into suture's context-aware Serve
pattern.

# Overview

Each wrapper implements the suture.Service interface:

	type Service interface {
	    Serve(ctx context.Context) error
	}

# Available Services

HTTP Server (HTTPServerService):
  - Wraps *http.Server (the Collector's router) with graceful shutdown.
  - Converts ListenAndServe to Serve.

Runner (RunnerService):
  - Wraps any component exposing Run(ctx context.Context) error: the
    four bus-consumer services (eventprocessor.Processor, detection.Service,
    response.Service, dispatcher.Service) all share this shape.
  - One wrapper type, parameterized by name, covers all four.

WebSocket Hub (WebSocketHubService):
  - Wraps websocket.Hub's RunWithContext for the live alert stream.

WAL Services (WALRetryLoopService, WALCompactorService):
  - Wrap wal.RetryLoop and wal.Compactor, the Collector's durability layer.

# Error Handling

Return values determine supervisor behavior:

	nil         -> Service stopped cleanly, will not restart
	error       -> Service crashed, supervisor will restart
	ctx.Err()   -> Shutdown requested, normal termination

# See Also

  - internal/supervisor: SupervisorTree that manages these services
  - github.com/thejerf/suture/v4: Underlying supervision library
*/
package services
