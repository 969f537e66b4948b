// Package store defines the finalized-session notification contract
//: an idempotent sink invoked once a session is sealed.
package store

import (
	"context"

	"github.com/pitwall/timingpipeline/session"
)

// Store persists a finalized session. Implementations must be safe to
// call more than once for the same session.
type Store interface {
	FinalizeSession(ctx context.Context, state *session.SessionState) error
}
