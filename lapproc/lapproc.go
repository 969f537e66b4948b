// Package lapproc finalizes per-car laps for external logging: it
// detects lap completions, buffers them for a short finalize delay so
// slow passing records can still correct the lap time, fills in
// placeholder records for skipped lap numbers, and holds a bounded
// in-memory backlog for when the external log sink is unavailable.
package lapproc

import (
	"context"
	"time"

	"github.com/pitwall/timingpipeline/internal/clock"
	"github.com/pitwall/timingpipeline/session"
)

// Sink is the external lap log append contract: expected to
// support at-least-once append.
type Sink interface {
	AppendLaps(ctx context.Context, sessionID int, laps []CarLapData) error
}

// CarLapData is one finalized (or interpolated placeholder) lap record.
type CarLapData struct {
	CarNumber     string
	LapNumber     int
	LapTime       time.Duration
	TotalTime     time.Duration
	Position      int
	Class         string
	Flag          session.Flag
	PittedThisLap bool
	// Placeholder marks a lap number that was never reported directly
	// but had to be interpolated because lastLapCompleted jumped by more
	// than 1. Its LapTime/TotalTime are
	// zero, meaning "unknown".
	Placeholder bool
}

type pendingLap struct {
	data      CarLapData
	releaseAt time.Time
}

// Processor detects newly completed laps and finalizes them after a
// delay, per car and per session.
type Processor struct {
	delay      time.Duration
	maxBacklog int

	lastLap map[string]int
	pending []pendingLap
	backlog []CarLapData
}

// NewProcessor builds a lap processor with the given finalize delay
// and a backlog
// capped at N=10,000 entries.
func NewProcessor(delay time.Duration) *Processor {
	return &Processor{
		delay:      delay,
		maxBacklog: 10000,
		lastLap:    map[string]int{},
	}
}

// Detect scans the session's cars for lastLapCompleted advances and
// enqueues the newly completed lap (plus any interpolated skipped laps)
// to be released once the finalize delay elapses.
func (p *Processor) Detect(state *session.SessionState, clk clock.Source) {
	now := clk.Now()
	for _, car := range state.CarPositions() {
		prev := p.lastLap[car.Number]
		if car.LastLapCompleted <= prev {
			continue
		}
		for lap := prev + 1; lap < car.LastLapCompleted; lap++ {
			p.enqueue(CarLapData{
				CarNumber:   car.Number,
				LapNumber:   lap,
				Position:    car.OverallPosition,
				Class:       car.Class,
				Flag:        car.TrackFlag,
				Placeholder: true,
			}, now)
		}
		p.enqueue(CarLapData{
			CarNumber:     car.Number,
			LapNumber:     car.LastLapCompleted,
			LapTime:       car.LastLapTime,
			TotalTime:     car.TotalTime,
			Position:      car.OverallPosition,
			Class:         car.Class,
			Flag:          car.TrackFlag,
			PittedThisLap: car.LastLapPitted == car.LastLapCompleted,
		}, now)
		p.lastLap[car.Number] = car.LastLapCompleted
	}
}

func (p *Processor) enqueue(d CarLapData, now time.Time) {
	p.pending = append(p.pending, pendingLap{data: d, releaseAt: now.Add(p.delay)})
}

// Flush releases every pending lap whose finalize delay has elapsed.
func (p *Processor) Flush(now time.Time) []CarLapData {
	var ready []CarLapData
	remain := p.pending[:0]
	for _, pl := range p.pending {
		if pl.releaseAt.After(now) {
			remain = append(remain, pl)
			continue
		}
		ready = append(ready, pl.data)
	}
	p.pending = remain
	return ready
}

// Backlog appends laps the external sink failed to accept into the
// bounded in-memory backlog, dropping the oldest entries once full.
func (p *Processor) Backlog(laps []CarLapData) {
	p.backlog = append(p.backlog, laps...)
	if over := len(p.backlog) - p.maxBacklog; over > 0 {
		p.backlog = p.backlog[over:]
	}
}

// DrainBacklog removes and returns every backlogged lap, for retry.
func (p *Processor) DrainBacklog() []CarLapData {
	out := p.backlog
	p.backlog = nil
	return out
}

// BacklogLen reports the current backlog size, for alerting.
func (p *Processor) BacklogLen() int { return len(p.backlog) }

// Recompute derives a car's best lap time directly from an emitted lap
// log, independent of the live session state. Placeholder
// and lap-0 records are excluded.
func Recompute(laps []CarLapData, carNumber string) (time.Duration, bool) {
	var best time.Duration
	found := false
	for _, l := range laps {
		if l.CarNumber != carNumber || l.Placeholder || l.LapNumber < 1 {
			continue
		}
		if !found || l.LapTime < best {
			best = l.LapTime
			found = true
		}
	}
	return best, found
}
