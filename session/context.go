// Package session is the authoritative in-memory model: SessionState,
// its entities, and the SessionContext that owns them. Every other
// package in this module receives a *session.SessionState per tick and
// mutates its exported fields directly or through the exported methods
// here; SessionContext itself
// carries no processing logic itself.
package session

import (
	"github.com/pitwall/timingpipeline/internal/clock"
	"github.com/rs/zerolog"
)

// Context owns one session's authoritative state plus the invariant
// checks that must run after every tick.
type Context struct {
	state  *SessionState
	clock  clock.Source
	logger zerolog.Logger
}

// New creates a fresh, empty session context.
func New(eventID, sessionID int, clk clock.Source, logger zerolog.Logger) *Context {
	now := clk.Now()
	return &Context{
		state: &SessionState{
			EventID:       eventID,
			SessionID:     sessionID,
			CurrentFlag:   FlagUnknown,
			LapsToGo:      9999,
			carByNum:      map[string]*CarPosition{},
			EventEntries:  map[string]*EventEntry{},
			ClassNames:    map[string]string{},
			CompletedLaps: map[string]CompletedLap{},
			Consistency:   true,
			IsLive:        true,
			StartTime:     now,
			FlagDurations: []FlagDuration{{Flag: FlagUnknown, Start: now}},
		},
		clock:  clk,
		logger: logger,
	}
}

// State returns the live, mutable session state. Only the owning worker
// goroutine may call this; external readers must use Snapshot.
func (c *Context) State() *SessionState { return c.state }

// Clock exposes the injected time source to components that need "now".
func (c *Context) Clock() clock.Source { return c.clock }

// Logger returns the context-scoped logger.
func (c *Context) Logger() zerolog.Logger { return c.logger }

// Snapshot returns a deep, read-only copy of the session state.
func (c *Context) Snapshot() *SessionState { return c.state.Clone() }

// Finalize seals the session: isLive=false, endTime=now.
func (c *Context) Finalize() {
	c.state.IsLive = false
	c.state.EndTime = c.clock.Now()
}

// CheckPositionInvariant enforces that overallPosition for cars with
// overallPosition >= 1 forms a gapless 1..N sequence once the race has
// started (i.e. at least one car has completed a lap). Violations are
// logged and recorded via Consistency=false, never hidden by mutation.
func (c *Context) CheckPositionInvariant() {
	raceStarted := false
	for _, car := range c.state.carOrder {
		if car.LastLapCompleted >= 1 {
			raceStarted = true
			break
		}
	}
	if !raceStarted {
		c.state.Consistency = true
		return
	}

	seen := map[int]bool{}
	maxPos := 0
	for _, car := range c.state.carOrder {
		if car.OverallPosition <= 0 {
			continue
		}
		if seen[car.OverallPosition] {
			c.logger.Warn().Int("position", car.OverallPosition).Str("car", car.Number).
				Msg("duplicate overall position")
			c.state.Consistency = false
			return
		}
		seen[car.OverallPosition] = true
		if car.OverallPosition > maxPos {
			maxPos = car.OverallPosition
		}
	}
	for p := 1; p <= maxPos; p++ {
		if !seen[p] {
			c.logger.Warn().Int("missingPosition", p).Msg("gap in overall positions")
			c.state.Consistency = false
			return
		}
	}
	c.state.Consistency = true
}
