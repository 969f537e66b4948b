// Package position computes the derived per-car fields of the position
// enricher: ordering, gaps/differences, fastest lap flags, positions
// gained, and stale-car detection. In the fixed tick order it runs
// after every parser and the pit/flag/lap blocks have applied their
// changes, and before the session-monitor and consolidator steps.
package position

import (
	"time"

	"github.com/pitwall/timingpipeline/session"
)

// DefaultStaleCheckMinLap is the default value for stale_check_min_lap.
const DefaultStaleCheckMinLap = 3

// Process recomputes every derived field on the session's cars in
// place. staleCheckMinLap is the configured threshold.
func Process(state *session.SessionState, staleCheckMinLap int) {
	state.Reorder()
	cars := state.CarPositions()

	assignClassPositions(cars)
	computeGapDiff(cars, setOverallGap, setOverallDiff)
	for _, group := range groupByClass(cars) {
		computeGapDiff(group, setClassGap, setClassDiff)
	}
	computeBestTime(cars)
	computePositionsGained(cars)
	computeStale(state, cars, staleCheckMinLap)
}

func assignClassPositions(cars []*session.CarPosition) {
	rank := map[string]int{}
	for _, c := range cars {
		if c.OverallPosition <= 0 {
			c.ClassPosition = 0
			continue
		}
		rank[c.Class]++
		c.ClassPosition = rank[c.Class]
	}
}

func groupByClass(cars []*session.CarPosition) map[string][]*session.CarPosition {
	groups := map[string][]*session.CarPosition{}
	for _, c := range cars {
		groups[c.Class] = append(groups[c.Class], c)
	}
	return groups
}

func setOverallGap(c *session.CarPosition, v string) { c.OverallGap = v }
func setOverallDiff(c *session.CarPosition, v string) { c.OverallDifference = v }
func setClassGap(c *session.CarPosition, v string)    { c.InClassGap = v }
func setClassDiff(c *session.CarPosition, v string)   { c.InClassDifference = v }

// computeGapDiff fills in the gap (vs. the car immediately ahead in
// group) and difference (vs. group[0], the leader) fields for every car
// in group, which must already be in position order.
func computeGapDiff(group []*session.CarPosition, setGap, setDiff func(*session.CarPosition, string)) {
	if len(group) == 0 {
		return
	}
	leader := group[0]
	setGap(leader, "")
	setDiff(leader, "")
	for i := 1; i < len(group); i++ {
		car := group[i]
		ahead := group[i-1]
		setGap(car, gapOrLapDiff(car, ahead))
		setDiff(car, gapOrLapDiff(car, leader))
	}
}

func gapOrLapDiff(car, ref *session.CarPosition) string {
	if car.LastLapCompleted == ref.LastLapCompleted {
		return session.FormatGap(car.TotalTime - ref.TotalTime)
	}
	return session.FormatLapDiff(abs(car.LastLapCompleted - ref.LastLapCompleted))
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// computeBestTime marks isBestTime/isBestTimeClass on the car(s) whose
// bestLapTime is minimal overall / within class, breaking ties by
// earliest achievement.
func computeBestTime(cars []*session.CarPosition) {
	var best *session.CarPosition
	classBest := map[string]*session.CarPosition{}
	for _, c := range cars {
		c.IsBestTime = false
		c.IsBestTimeClass = false
		if !c.HasBestLapTime {
			continue
		}
		if isFaster(c, best) {
			best = c
		}
		if isFaster(c, classBest[c.Class]) {
			classBest[c.Class] = c
		}
	}
	if best != nil {
		best.IsBestTime = true
	}
	for _, c := range classBest {
		c.IsBestTimeClass = true
	}
}

func isFaster(c, cur *session.CarPosition) bool {
	if cur == nil {
		return true
	}
	if c.BestLapTime != cur.BestLapTime {
		return c.BestLapTime < cur.BestLapTime
	}
	return c.BestLapSeq() < cur.BestLapSeq()
}

// computePositionsGained fills overall/in-class positions-gained and
// marks the "most positions gained" cars.
func computePositionsGained(cars []*session.CarPosition) {
	maxOverall := 0
	maxClass := map[string]int{}
	for _, c := range cars {
		c.OverallPositionsGained = c.OverallStartingPosition - c.OverallPosition
		c.ClassPositionsGained = c.ClassStartingPosition - c.ClassPosition
		if c.OverallPositionsGained > maxOverall {
			maxOverall = c.OverallPositionsGained
		}
		if g, ok := maxClass[c.Class]; !ok || c.ClassPositionsGained > g {
			maxClass[c.Class] = c.ClassPositionsGained
		}
	}
	for _, c := range cars {
		c.IsOverallMostPositionsGained = maxOverall > 0 && c.OverallPositionsGained == maxOverall
		c.IsClassMostPositionsGained = maxClass[c.Class] > 0 && c.ClassPositionsGained == maxClass[c.Class]
	}
}

// staleMultiplier is the flag-transition lookup table used to scale
// the stale-car time threshold.
func staleMultiplier(from, to session.Flag) float64 {
	switch {
	case from == session.FlagGreen && to == session.FlagGreen,
		from == session.FlagGreen && to == session.FlagWhite,
		from == session.FlagWhite && to == session.FlagWhite,
		from == session.FlagWhite && to == session.FlagGreen:
		return 1.30
	case from == session.FlagGreen && to == session.FlagYellow,
		from == session.FlagYellow && to == session.FlagYellow:
		return 2.10
	case from == session.FlagYellow && to == session.FlagGreen:
		return 1.05
	case from == session.FlagYellow && to == session.FlagWhite,
		from == session.FlagWhite && to == session.FlagYellow:
		return 2.10
	default:
		return 1.30
	}
}

func computeStale(state *session.SessionState, cars []*session.CarPosition, minLap int) {
	if state.CurrentFlag == session.FlagRed || state.CurrentFlag == session.FlagCheckered {
		clearStale(cars)
		return
	}
	for _, c := range cars {
		if c.LastLapCompleted < minLap {
			clearStale(cars)
			return
		}
	}
	for _, c := range cars {
		if c.LastLapCompleted == 0 {
			c.IsStale = true
			continue
		}
		elapsed := state.RunningRaceTime - c.TotalTime
		if elapsed < time.Second {
			c.IsStale = false
			continue
		}
		threshold := time.Duration(float64(c.LastLapTime) * staleMultiplier(c.LastLapFlag, state.CurrentFlag))
		c.IsStale = elapsed > threshold
	}
}

func clearStale(cars []*session.CarPosition) {
	for _, c := range cars {
		c.IsStale = false
	}
}
