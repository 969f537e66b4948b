// Package flagproc maintains a session's flag-duration history: exactly
// one FlagDuration has a nil End, the currently open one, and every
// flag transition closes it and opens the next.
package flagproc

import (
	"github.com/pitwall/timingpipeline/internal/clock"
	"github.com/pitwall/timingpipeline/session"
)

// Process closes the open flag duration and opens a new one if the
// session's CurrentFlag has changed since the last tick. It is a no-op
// when the flag is unchanged, and does nothing the very first time a
// session is created since session.New already seeds one open entry.
func Process(state *session.SessionState, clk clock.Source) {
	if len(state.FlagDurations) == 0 {
		state.FlagDurations = append(state.FlagDurations, session.FlagDuration{
			Flag:  state.CurrentFlag,
			Start: clk.Now(),
		})
		return
	}

	open := &state.FlagDurations[len(state.FlagDurations)-1]
	if open.Flag == state.CurrentFlag {
		return
	}

	now := clk.Now()
	open.End = &now
	state.FlagDurations = append(state.FlagDurations, session.FlagDuration{
		Flag:  state.CurrentFlag,
		Start: now,
	})
}
