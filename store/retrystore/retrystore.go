// Package retrystore wraps a store.Store with an idempotent retry
// policy: up to 3 attempts, exponential backoff starting at 250ms and
// capped at 5s.
package retrystore

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/pitwall/timingpipeline/internal/errs"
	"github.com/pitwall/timingpipeline/session"
	"github.com/pitwall/timingpipeline/store"
)

// Store retries a wrapped store.Store's writes on transient failure.
type Store struct {
	inner  store.Store
	logger zerolog.Logger
}

// Wrap builds a retrying store around inner.
func Wrap(inner store.Store, logger zerolog.Logger) *Store {
	return &Store{inner: inner, logger: logger}
}

// FinalizeSession retries inner.FinalizeSession up to 3 attempts total
// before giving up.
func (s *Store) FinalizeSession(ctx context.Context, state *session.SessionState) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = 5 * time.Second

	attempt := 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, 2), ctx)
	op := func() error {
		attempt++
		err := s.inner.FinalizeSession(ctx, state)
		if err != nil {
			s.logger.Warn().Int(errs.Code, errs.TransientExternalError).
				Int("attempt", attempt).Int("sessionId", state.SessionID).Err(err).
				Msg("finalize-session store write failed, retrying")
		}
		return err
	}

	if err := backoff.Retry(op, policy); err != nil {
		return fmt.Errorf("retrystore: exhausted retries for session %d: %w", state.SessionID, err)
	}
	return nil
}
