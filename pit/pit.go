// Package pit implements the pit processor: it correlates
// transponder loop passings (the X2 feed) against a loop-role map to
// derive each car's pit state. Passing-record idempotence is handled by
// an expiring LRU set, grounded on the same library choice used across
// the wider example corpus for exactly this "recent keys with
// time-based eviction" shape.
package pit

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/pitwall/timingpipeline/session"
)

// LoopRole is the role a trackside timing loop plays.
type LoopRole int

const (
	RoleUnknown LoopRole = iota
	RolePitIn
	RolePitOut
	RolePitStartFinish
	RoleTimingLine
)

// LoopDef is one entry of the x2loop feed's loop-to-role map.
type LoopDef struct {
	LoopID uint
	Role   LoopRole
}

// Passing is one transponder crossing from the x2pass feed.
type Passing struct {
	TransponderID uint
	LoopID        uint
	Timestamp     time.Time
}

// Processor correlates passings into pit-state updates for one session.
type Processor struct {
	loopRoles map[uint]LoopRole
	dedup     *lru.LRU[string, struct{}]
}

// NewProcessor builds a pit processor whose passing-dedup set evicts
// entries after window has elapsed.
func NewProcessor(window time.Duration) *Processor {
	return &Processor{
		loopRoles: map[uint]LoopRole{},
		dedup:     lru.NewLRU[string, struct{}](4096, nil, window),
	}
}

// SetLoopMap replaces the loop-id -> role map (inbound x2loop feed).
func (p *Processor) SetLoopMap(loops []LoopDef) {
	roles := make(map[uint]LoopRole, len(loops))
	for _, l := range loops {
		roles[l.LoopID] = l.Role
	}
	p.loopRoles = roles
}

// Process applies a batch of transponder passings to the session's car
// table. Duplicate (transponder, loop, timestamp) triples
// within the dedup window are suppressed.
func (p *Processor) Process(state *session.SessionState, passings []Passing) {
	for _, pass := range passings {
		key := dedupKey(pass)
		if _, ok := p.dedup.Get(key); ok {
			continue
		}
		p.dedup.Add(key, struct{}{})

		car := findByTransponder(state, pass.TransponderID)
		if car == nil {
			continue
		}
		switch p.loopRoles[pass.LoopID] {
		case RolePitIn:
			car.IsInPit = true
			car.IsEnteredPit = true
			car.LastLapPitted = car.LastLapCompleted
			car.PitStopCount++
		case RolePitOut:
			car.IsInPit = false
			car.IsExitedPit = true
		case RolePitStartFinish:
			car.IsPitStartFinish = true
		case RoleTimingLine, RoleUnknown:
			// no pit-specific effect.
		}
	}
}

// ClearEdges resets the transient edge markers once the consolidator has
// consumed them for this tick.
func (p *Processor) ClearEdges(state *session.SessionState) {
	for _, car := range state.Cars() {
		car.IsEnteredPit = false
		car.IsExitedPit = false
		car.IsPitStartFinish = false
	}
}

func dedupKey(pass Passing) string {
	return fmt.Sprintf("%d|%d|%d", pass.TransponderID, pass.LoopID, pass.Timestamp.UnixNano())
}

func findByTransponder(state *session.SessionState, transponderID uint) *session.CarPosition {
	for _, car := range state.Cars() {
		if car.TransponderID == transponderID {
			return car
		}
	}
	return nil
}
