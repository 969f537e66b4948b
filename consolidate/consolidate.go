// Package consolidate implements the update consolidator / status
// aggregator: it keeps the last-published copy of a
// session's state and, each tick, diffs the live state against it to
// produce a sparse SessionPatch plus one CarPatch per changed car. A
// car or session with nothing changed contributes nothing to the
// output — the patch tuple's neutral element is "send nothing".
package consolidate

import (
	"github.com/pitwall/timingpipeline/session"
)

// Consolidator holds the last-published snapshot for one session.
type Consolidator struct {
	lastSession *session.SessionState
	lastCars    map[string]*session.CarPosition
}

// New builds an empty consolidator; its first Diff call publishes
// every currently-set field (there is nothing to compare against).
func New() *Consolidator {
	return &Consolidator{}
}

// Diff computes the sparse patch tuple between the last-published
// state and the live state, then commits the live state as the new
// last-published copy.
func (c *Consolidator) Diff(state *session.SessionState) (*session.SessionPatch, []session.CarPatch) {
	sessionPatch := diffSession(c.lastSession, state)

	var carPatches []session.CarPatch
	for _, car := range state.CarPositions() {
		var prev *session.CarPosition
		if c.lastCars != nil {
			prev = c.lastCars[car.Number]
		}
		cp := diffCar(prev, car)
		if !cp.IsEmpty() {
			carPatches = append(carPatches, cp)
		}
	}

	c.commit(state)
	return sessionPatch, carPatches
}

func (c *Consolidator) commit(state *session.SessionState) {
	snapshot := state.Clone()
	c.lastSession = snapshot
	cars := make(map[string]*session.CarPosition, len(snapshot.CarPositions()))
	for _, car := range snapshot.CarPositions() {
		cars[car.Number] = car
	}
	c.lastCars = cars
}

func ptr[T any](v T) *T { return &v }

func diffSession(prev, cur *session.SessionState) *session.SessionPatch {
	p := &session.SessionPatch{}
	if prev == nil || prev.SessionName != cur.SessionName {
		p.SessionName = ptr(cur.SessionName)
	}
	if prev == nil || prev.IsPracticeOrQualifying != cur.IsPracticeOrQualifying {
		p.IsPracticeOrQualifying = ptr(cur.IsPracticeOrQualifying)
	}
	if prev == nil || prev.CurrentFlag != cur.CurrentFlag {
		p.CurrentFlag = ptr(cur.CurrentFlag.String())
	}
	if prev == nil || prev.LapsToGo != cur.LapsToGo {
		p.LapsToGo = ptr(cur.LapsToGo)
	}
	if prev == nil || prev.RunningRaceTime != cur.RunningRaceTime {
		p.RunningRaceTime = ptr(session.FormatClock(cur.RunningRaceTime))
	}
	if prev == nil || prev.TimeToGo != cur.TimeToGo {
		p.TimeToGo = ptr(session.FormatClock(cur.TimeToGo))
	}
	if prev == nil || prev.LocalTimeOfDay != cur.LocalTimeOfDay {
		p.LocalTimeOfDay = ptr(cur.LocalTimeOfDay)
	}
	if prev == nil || prev.StartingPositionsCaptured != cur.StartingPositionsCaptured {
		p.StartingPositionsCaptured = ptr(cur.StartingPositionsCaptured)
	}
	if prev == nil || prev.Consistency != cur.Consistency {
		p.Consistency = ptr(cur.Consistency)
	}
	if prev == nil || prev.TrackName != cur.TrackName {
		p.TrackName = ptr(cur.TrackName)
	}
	if prev == nil || prev.TrackLength != cur.TrackLength {
		p.TrackLength = ptr(cur.TrackLength)
	}
	return p
}

func diffCar(prev, cur *session.CarPosition) session.CarPatch {
	p := session.CarPatch{Number: cur.Number}

	if prev == nil || prev.Class != cur.Class {
		p.Class = ptr(cur.Class)
	}
	if prev == nil || prev.DriverName != cur.DriverName {
		p.DriverName = ptr(cur.DriverName)
	}
	if prev == nil || prev.OverallPosition != cur.OverallPosition {
		p.OverallPosition = ptr(cur.OverallPosition)
	}
	if prev == nil || prev.ClassPosition != cur.ClassPosition {
		p.ClassPosition = ptr(cur.ClassPosition)
	}
	if prev == nil || prev.OverallStartingPosition != cur.OverallStartingPosition {
		p.OverallStartingPosition = ptr(cur.OverallStartingPosition)
	}
	if prev == nil || prev.ClassStartingPosition != cur.ClassStartingPosition {
		p.ClassStartingPosition = ptr(cur.ClassStartingPosition)
	}
	if prev == nil || prev.LastLapCompleted != cur.LastLapCompleted {
		p.LastLapCompleted = ptr(cur.LastLapCompleted)
	}
	if cur.HasBestLapTime && (prev == nil || !prev.HasBestLapTime || prev.BestLap != cur.BestLap) {
		p.BestLap = ptr(cur.BestLap)
	}
	if cur.HasBestLapTime && (prev == nil || !prev.HasBestLapTime || prev.BestLapTime != cur.BestLapTime) {
		p.BestLapTime = ptr(session.FormatClock(cur.BestLapTime))
	}
	if cur.HasLastLapTime && (prev == nil || !prev.HasLastLapTime || prev.LastLapTime != cur.LastLapTime) {
		p.LastLapTime = ptr(session.FormatClock(cur.LastLapTime))
	}
	if prev == nil || prev.TotalTime != cur.TotalTime {
		p.TotalTime = ptr(session.FormatClock(cur.TotalTime))
	}
	if prev == nil || prev.ProjectedLapTimeMs != cur.ProjectedLapTimeMs {
		p.ProjectedLapTimeMs = ptr(cur.ProjectedLapTimeMs)
	}
	if prev == nil || prev.OverallGap != cur.OverallGap {
		p.OverallGap = ptr(cur.OverallGap)
	}
	if prev == nil || prev.OverallDifference != cur.OverallDifference {
		p.OverallDifference = ptr(cur.OverallDifference)
	}
	if prev == nil || prev.InClassGap != cur.InClassGap {
		p.InClassGap = ptr(cur.InClassGap)
	}
	if prev == nil || prev.InClassDifference != cur.InClassDifference {
		p.InClassDifference = ptr(cur.InClassDifference)
	}
	if prev == nil || prev.OverallPositionsGained != cur.OverallPositionsGained {
		p.OverallPositionsGained = ptr(cur.OverallPositionsGained)
	}
	if prev == nil || prev.ClassPositionsGained != cur.ClassPositionsGained {
		p.ClassPositionsGained = ptr(cur.ClassPositionsGained)
	}
	if prev == nil || prev.IsInPit != cur.IsInPit {
		p.IsInPit = ptr(cur.IsInPit)
	}
	if prev == nil || prev.IsPitStartFinish != cur.IsPitStartFinish {
		p.IsPitStartFinish = ptr(cur.IsPitStartFinish)
	}
	if prev == nil || prev.IsEnteredPit != cur.IsEnteredPit {
		p.IsEnteredPit = ptr(cur.IsEnteredPit)
	}
	if prev == nil || prev.IsExitedPit != cur.IsExitedPit {
		p.IsExitedPit = ptr(cur.IsExitedPit)
	}
	if prev == nil || prev.LastLapPitted != cur.LastLapPitted {
		p.LastLapPitted = ptr(cur.LastLapPitted)
	}
	if prev == nil || prev.PitStopCount != cur.PitStopCount {
		p.PitStopCount = ptr(cur.PitStopCount)
	}
	if prev == nil || prev.IsStale != cur.IsStale {
		p.IsStale = ptr(cur.IsStale)
	}
	if prev == nil || prev.TrackFlag != cur.TrackFlag {
		p.TrackFlag = ptr(cur.TrackFlag.String())
	}
	if prev == nil || prev.PenaltyCount != cur.PenaltyCount {
		p.PenaltyCount = ptr(cur.PenaltyCount)
	}
	if prev == nil || prev.CurrentStatus != cur.CurrentStatus {
		p.CurrentStatus = ptr(cur.CurrentStatus)
	}
	if prev == nil || prev.IsBestTime != cur.IsBestTime {
		p.IsBestTime = ptr(cur.IsBestTime)
	}
	if prev == nil || prev.IsBestTimeClass != cur.IsBestTimeClass {
		p.IsBestTimeClass = ptr(cur.IsBestTimeClass)
	}
	if prev == nil || prev.IsOverallMostPositionsGained != cur.IsOverallMostPositionsGained {
		p.OverallMostGained = ptr(cur.IsOverallMostPositionsGained)
	}
	if prev == nil || prev.IsClassMostPositionsGained != cur.IsClassMostPositionsGained {
		p.ClassMostGained = ptr(cur.IsClassMostPositionsGained)
	}
	if prev == nil || prev.TransponderID != cur.TransponderID {
		p.TransponderID = ptr(cur.TransponderID)
	}
	if cur.InCarVideo != nil {
		var prevVideo *session.VideoStatus
		if prev != nil {
			prevVideo = prev.InCarVideo
		}
		if prevVideo == nil || prevVideo.VideoSystemType != cur.InCarVideo.VideoSystemType {
			p.VideoSystemType = ptr(cur.InCarVideo.VideoSystemType)
		}
		if prevVideo == nil || prevVideo.VideoDestination != cur.InCarVideo.VideoDestination {
			p.VideoDestination = ptr(cur.InCarVideo.VideoDestination)
		}
	}

	return p
}
