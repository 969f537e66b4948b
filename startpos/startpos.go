// Package startpos implements the starting-position processor: it
// captures per-car starting-grid positions from lap-0 race-info
// records until the race has passed start, then derives in-class grid
// rank by grouping captured cars by the class known at capture time.
package startpos

import "github.com/pitwall/timingpipeline/session"

// Processor accumulates starting-grid captures for one session. It is
// reset whenever a pre-race reset clears the session.
type Processor struct {
	captured   map[string]int    // car number -> captured overall position
	classAt    map[string]string // car number -> class known at capture time
	order      []string          // insertion order, for stable class-rank tie-breaks
	raceStarted bool
}

// NewProcessor returns an empty starting-position processor.
func NewProcessor() *Processor {
	return &Processor{captured: map[string]int{}, classAt: map[string]string{}}
}

// Reset clears all captured grid state.
func (p *Processor) Reset() {
	p.captured = map[string]int{}
	p.classAt = map[string]string{}
	p.order = nil
	p.raceStarted = false
}

// Eligible reports whether a $G record with the given lap count should
// feed the starting-position capture rather than update a car's live
// race position: laps==0, flag is Unknown/Yellow/Green,
// and no car has yet reported laps>=1 this session.
func (p *Processor) Eligible(laps int, flag session.Flag) bool {
	if p.raceStarted {
		return false
	}
	if laps != 0 {
		return false
	}
	switch flag {
	case session.FlagUnknown, session.FlagYellow, session.FlagGreen:
		return true
	default:
		return false
	}
}

// Capture records carNumber's starting-grid overall position, and the
// class known for that car at this moment. This class is immutable
// even if the car's class changes later.
func (p *Processor) Capture(state *session.SessionState, carNumber string, position int) {
	if _, ok := p.captured[carNumber]; !ok {
		p.order = append(p.order, carNumber)
	}
	p.captured[carNumber] = position
	if car, ok := state.LookupCar(carNumber); ok {
		p.classAt[carNumber] = car.Class
		// The grid position is live immediately, not just on finalize:
		// position.Process recomputes ClassPosition from this ordering
		// every tick, so class rank falls out of the normal pipeline.
		car.OverallPosition = position
	}
}

// ObserveLap marks the race as started once any car reports laps>=1,
// latching StartingPositionsCaptured and finalizing in-class ranks
//.
func (p *Processor) ObserveLap(state *session.SessionState, laps int) {
	if p.raceStarted || laps < 1 {
		return
	}
	p.raceStarted = true
	p.finalize(state)
}

func (p *Processor) finalize(state *session.SessionState) {
	state.StartingPositionsCaptured = true

	byClass := map[string][]string{}
	for _, num := range p.order {
		cls := p.classAt[num]
		byClass[cls] = append(byClass[cls], num)
	}
	for _, nums := range byClass {
		// stable sort by captured overall position ascending.
		for i := 1; i < len(nums); i++ {
			j := i
			for j > 0 && p.captured[nums[j-1]] > p.captured[nums[j]] {
				nums[j-1], nums[j] = nums[j], nums[j-1]
				j--
			}
		}
		for rank, num := range nums {
			car, ok := state.LookupCar(num)
			if !ok {
				continue
			}
			car.OverallStartingPosition = p.captured[num]
			car.ClassStartingPosition = rank + 1
			car.StartingClassAtCapture = p.classAt[num]
		}
	}
}
