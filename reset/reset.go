// Package reset implements the protocol-level and session-change reset
// semantics. Two inbound shapes are recognized in an RM
// batch: a multi-record reset (an $I plus the full $A/$COMP/$G/$H
// rebuild) and a standalone reset ($I alone). Mid-race standalone resets
// are ignored outright; mid-race multi-record resets clear only the
// competitor/race-info/practice-qualifying/passing derived fields and
// restore a handful of per-car values from a pre-clear snapshot once the
// rebuild records have been applied, so one reset does not blank a car's
// last-lap-time for a full lap.
package reset

import (
	"time"

	"github.com/pitwall/timingpipeline/rmonitor"
	"github.com/pitwall/timingpipeline/session"
	"github.com/pitwall/timingpipeline/startpos"
)

// Shape is the detected reset sequence shape within one inbound batch.
type Shape int

const (
	ShapeNone Shape = iota
	ShapeStandalone
	ShapeMultiRecord
)

// Classify inspects a parsed RM batch for the token combinations that
// distinguish reset shapes: presence of $I alone is Standalone; $I plus
// all of $A/$COMP, $G and $H is MultiRecord.
func Classify(records []rmonitor.Record) Shape {
	var hasReset, hasCompetitor, hasRaceInfo, hasPracticeQual bool
	for _, r := range records {
		switch r.Kind {
		case rmonitor.KindReset:
			hasReset = true
		case rmonitor.KindCompetitorA, rmonitor.KindCompetitorComp:
			hasCompetitor = true
		case rmonitor.KindRaceInfo:
			hasRaceInfo = true
		case rmonitor.KindPracticeQualifying:
			hasPracticeQual = true
		}
	}
	if !hasReset {
		return ShapeNone
	}
	if hasCompetitor && hasRaceInfo && hasPracticeQual {
		return ShapeMultiRecord
	}
	return ShapeStandalone
}

type preservedCar struct {
	lastLapTime              time.Duration
	hasLastLapTime           bool
	lastLapFlag              session.Flag
	bestLap                  int
	bestLapTime              time.Duration
	hasBestLapTime           bool
	pitStopCount             int
	lastLapPitted            int
	isInPit                  bool
	overallStartingPosition  int
	classStartingPosition    int
	startingClassAtCapture   string
	completedSections        map[string]session.CompletedSection
	penaltyCount             int
	currentStatus            string
}

// Processor runs the reset sequence for one session.
type Processor struct {
	preserved map[string]preservedCar
}

func NewProcessor() *Processor { return &Processor{} }

// Process clears the appropriate state for the detected shape. It
// returns true if a reset sequence was applied at all (false for
// ShapeNone and for an ignored mid-race standalone reset).
func (p *Processor) Process(state *session.SessionState, shape Shape, sp *startpos.Processor) bool {
	switch shape {
	case ShapeNone:
		return false
	case ShapeStandalone:
		if state.CurrentFlag == session.FlagUnknown {
			p.clearPreRace(state, sp)
			return true
		}
		// Mid-race standalone reset: ignored. A standalone reset with no
		// follow-on rebuild would otherwise flicker the grid empty for
		// upstream's retransmission window.
		return false
	case ShapeMultiRecord:
		if state.CurrentFlag == session.FlagUnknown {
			p.clearPreRace(state, sp)
		} else {
			p.clearMidRace(state)
		}
		return true
	default:
		return false
	}
}

// RestorePreserved re-applies the fields captured by a mid-race
// multi-record reset onto the cars the rebuild recreated. A car omitted
// from the rebuild batch is left absent from the session: its
// last-lap-time, and everything else about it, is simply gone this tick.
func (p *Processor) RestorePreserved(state *session.SessionState) {
	if p.preserved == nil {
		return
	}
	for num, pc := range p.preserved {
		car, ok := state.LookupCar(num)
		if !ok {
			continue
		}
		car.LastLapTime = pc.lastLapTime
		car.HasLastLapTime = pc.hasLastLapTime
		car.LastLapFlag = pc.lastLapFlag
		car.BestLap = pc.bestLap
		car.BestLapTime = pc.bestLapTime
		car.HasBestLapTime = pc.hasBestLapTime
		car.PitStopCount = pc.pitStopCount
		car.LastLapPitted = pc.lastLapPitted
		car.IsInPit = pc.isInPit
		car.OverallStartingPosition = pc.overallStartingPosition
		car.ClassStartingPosition = pc.classStartingPosition
		car.StartingClassAtCapture = pc.startingClassAtCapture
		car.CompletedSections = pc.completedSections
		car.PenaltyCount = pc.penaltyCount
		car.CurrentStatus = pc.currentStatus
	}
	p.preserved = nil
}

func (p *Processor) clearPreRace(state *session.SessionState, sp *startpos.Processor) {
	state.ClearCars()
	state.EventEntries = map[string]*session.EventEntry{}
	state.ClassNames = map[string]string{}
	state.StartingPositionsCaptured = false
	sp.Reset()
	p.preserved = nil
}

func (p *Processor) clearMidRace(state *session.SessionState) {
	preserved := make(map[string]preservedCar, len(state.Cars()))
	for num, car := range state.Cars() {
		sections := make(map[string]session.CompletedSection, len(car.CompletedSections))
		for k, v := range car.CompletedSections {
			sections[k] = v
		}
		preserved[num] = preservedCar{
			lastLapTime:             car.LastLapTime,
			hasLastLapTime:          car.HasLastLapTime,
			lastLapFlag:             car.LastLapFlag,
			bestLap:                 car.BestLap,
			bestLapTime:             car.BestLapTime,
			hasBestLapTime:          car.HasBestLapTime,
			pitStopCount:            car.PitStopCount,
			lastLapPitted:           car.LastLapPitted,
			isInPit:                 car.IsInPit,
			overallStartingPosition: car.OverallStartingPosition,
			classStartingPosition:   car.ClassStartingPosition,
			startingClassAtCapture:  car.StartingClassAtCapture,
			completedSections:       sections,
			penaltyCount:            car.PenaltyCount,
			currentStatus:           car.CurrentStatus,
		}
	}
	state.ClearCars()
	state.EventEntries = map[string]*session.EventEntry{}
	p.preserved = preserved
	// classes, flag history, starting-position latch and lap history
	// (external log, not modeled on SessionState) are left untouched.
}
