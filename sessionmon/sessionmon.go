// Package sessionmon detects session transitions and the quiet-period
// that finalizes an idle session. It carries no state of
// its own beyond activity bookkeeping; the actual finalize/recreate
// action belongs to the pipeline, which calls into this package to
// decide *when* that action is due.
package sessionmon

import (
	"time"

	"github.com/pitwall/timingpipeline/session"
)

// DefaultQuietPeriod is the default value for finalize_session_quiet_period.
const DefaultQuietPeriod = 10 * time.Minute

// SessionChangeNotice mirrors the inbound `session-change` message.
type SessionChangeNotice struct {
	ID                   int
	EventID              int
	Name                 string
	IsLive               bool
	StartTime            time.Time
	LastUpdated          time.Time
	LocalTimeZoneOffset  int
	IsPracticeQualifying bool
}

// Monitor tracks activity for one session worker and decides when its
// quiet period has elapsed.
type Monitor struct {
	quietPeriod  time.Duration
	lastActivity time.Time
}

// NewMonitor builds a monitor with the given quiet period.
func NewMonitor(quietPeriod time.Duration) *Monitor {
	return &Monitor{quietPeriod: quietPeriod}
}

// Touch records inbound message activity at now.
func (m *Monitor) Touch(now time.Time) { m.lastActivity = now }

// QuietPeriodElapsed reports whether now is at least quietPeriod past the
// last recorded activity. A monitor that has never seen activity is
// never considered quiet.
func (m *Monitor) QuietPeriodElapsed(now time.Time) bool {
	if m.lastActivity.IsZero() {
		return false
	}
	return now.Sub(m.lastActivity) >= m.quietPeriod
}

// RMSessionChanged reports whether an RM $B record's session reference
// differs from the session's currently assigned id. A
// state that has not yet been assigned a session id is not considered
// changed by its first $B record.
func RMSessionChanged(state *session.SessionState, newSessionID int) bool {
	return state.SessionID != 0 && newSessionID != 0 && newSessionID != state.SessionID
}

// NoticeChanged reports whether an inbound session-change notice refers
// to a different session than the one currently held.
func NoticeChanged(state *session.SessionState, notice SessionChangeNotice) bool {
	return notice.ID != state.SessionID
}
