package multiloop

import (
	"time"

	"github.com/pitwall/timingpipeline/session"
)

// Apply applies a batch of parsed ML records to the live session state,
// in order.
func Apply(state *session.SessionState, records []Record) {
	for _, rec := range records {
		switch rec.Kind {
		case KindHeartbeat:
			state.CurrentFlag = session.ParseFlag(rec.FlagText)
		case KindEntry:
			applyEntry(state, rec)
		case KindCompletedLap:
			applyCompletedLap(state, rec)
		case KindCompletedSection:
			applyCompletedSection(state, rec)
		case KindFlag:
			applyMetrics(state, rec)
		case KindRun:
			state.SessionName = rec.SessionName
		case KindTrack:
			state.TrackName = rec.TrackName
			state.TrackLength = rec.TrackLengthM
		case KindNewLeader:
			if state.MLMetrics.CurrentLeader != rec.NewLeader {
				state.MLMetrics.CurrentLeader = rec.NewLeader
				state.MLMetrics.LeadChanges++
				state.MLMetrics.Dirty = true
			}
		case KindLineCrossing, KindAnnouncement, KindVersion, KindInvalidatedLap:
			// Line-crossings are handled by the pit processor via the
			// x2pass feed, not this record; announcements/version are
			// informational only; invalidated-lap affects downstream
			// scoring rules, which are out of scope.
		}
	}
}

func applyEntry(state *session.SessionState, rec Record) {
	entry, ok := state.EventEntries[rec.CarNumber]
	if !ok {
		entry = &session.EventEntry{Number: rec.CarNumber}
		state.EventEntries[rec.CarNumber] = entry
	}
	entry.Name = rec.DriverName
	entry.Class = rec.Class
	car := state.Car(rec.CarNumber)
	car.DriverName = rec.DriverName
	car.Class = rec.Class
}

func applyCompletedLap(state *session.SessionState, rec Record) {
	state.CompletedLaps[rec.CarNumber] = session.CompletedLap{
		PitStopCount:     rec.PitStopCount,
		LastLapPitted:    rec.LastLapPitted,
		StartPosition:    rec.StartPosition,
		LapsLed:          rec.LapsLed,
		CurrentStatus:    rec.CurrentStatus,
		BestLapTime:      msToDuration(rec.BestLapTimeMs),
		TimeBehindLeader: msToDuration(rec.TimeBehindMs),
		PrecedingCar:     rec.PrecedingCar,
	}
	if car, ok := state.LookupCar(rec.CarNumber); ok {
		// A completed-lap record clears the per-car section map, ready
		// to accumulate the next lap's sections from scratch.
		car.CompletedSections = map[string]session.CompletedSection{}
		car.CurrentStatus = rec.CurrentStatus
	}
}

func applyCompletedSection(state *session.SessionState, rec Record) {
	car := state.Car(rec.CarNumber)
	if car.CompletedSections == nil {
		car.CompletedSections = map[string]session.CompletedSection{}
	}
	car.CompletedSections[rec.SectionID] = session.CompletedSection{
		SectionID:   rec.SectionID,
		ElapsedMs:   rec.ElapsedMs,
		SectionTime: rec.SectionTime,
	}
}

func applyMetrics(state *session.SessionState, rec Record) {
	m := session.MLMetrics{
		GreenMs:       rec.GreenMs,
		YellowMs:      rec.YellowMs,
		RedMs:         rec.RedMs,
		LapCount:      rec.LapCount,
		YellowCount:   rec.YellowCount,
		CurrentLeader: state.MLMetrics.CurrentLeader,
		LeadChanges:   state.MLMetrics.LeadChanges,
		AvgRaceSpeed:  float64(rec.AvgRaceSpeedX1000) / 1000.0,
	}
	if rec.CurrentLeader != "" {
		m.CurrentLeader = rec.CurrentLeader
	}
	if m != withoutDirty(state.MLMetrics) {
		m.Dirty = true
		state.MLMetrics = m
	}
}

func withoutDirty(m session.MLMetrics) session.MLMetrics {
	m.Dirty = false
	return m
}

func msToDuration(ms int64) time.Duration { return time.Duration(ms) * time.Millisecond }
