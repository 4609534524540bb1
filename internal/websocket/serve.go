// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

package websocket

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/wardenlog/wardenlog/internal/logging"
)

// upgrader upgrades an authenticated HTTP request to a WebSocket
// connection. Origin checking is left to the caller's CORS middleware,
// which already runs ahead of this handler in the Collector's router.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeWS upgrades r to a WebSocket connection, registers a Client on hub,
// and starts its read/write pumps. It returns once the upgrade itself
// either succeeds (the client then runs until disconnect) or fails.
func ServeWS(hub *Hub, w http.ResponseWriter, r *http.Request) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := NewClient(hub, conn)
	hub.Register <- client
	client.Start()
	logging.Info().Uint64("client_id", client.ID()).Msg("websocket client upgraded")
	return nil
}
