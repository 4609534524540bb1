// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

package dispatcher

import (
	"context"

	"github.com/wardenlog/wardenlog/internal/models"
)

// Channel delivers one Alert to an external notification surface. Send
// must itself respect ctx's deadline; the retrying wrapper around each
// Channel also bounds the number of attempts.
type Channel interface {
	Name() string
	Send(ctx context.Context, alert *models.Alert) error
}
