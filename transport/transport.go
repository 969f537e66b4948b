// Package transport defines the outbound patch-publishing contract
//: a sparse SessionPatch plus the CarPatches changed this
// tick, tagged with a batch id for downstream idempotency correlation.
package transport

import (
	"context"

	"github.com/google/uuid"

	"github.com/pitwall/timingpipeline/session"
)

// Publisher sends one tick's patch tuple to subscribers. Implementations
// must not block the session worker beyond the call's context deadline.
type Publisher interface {
	Publish(ctx context.Context, batchID uuid.UUID, sessionID int, sessionPatch *session.SessionPatch, carPatches []session.CarPatch) error
}
