package rmonitor

import (
	"strconv"

	"github.com/pitwall/timingpipeline/session"
	"github.com/pitwall/timingpipeline/startpos"
)

// Apply applies a batch of already-parsed records to the live session
// state, in order. $I and $COR records are no-ops here: the
// reset sequence they trigger is handled by the reset package before
// Apply runs, and a reset's own rebuild records ($A/$COMP/$G/$H) are
// applied normally by this same call.
func Apply(state *session.SessionState, records []Record, sp *startpos.Processor) {
	for _, rec := range records {
		switch rec.Kind {
		case KindHeartbeat:
			applyHeartbeat(state, rec)
		case KindCompetitorA, KindCompetitorComp:
			applyCompetitor(state, rec)
		case KindRunInfo:
			state.SessionID = rec.SessionRef
			state.SessionName = rec.SessionName
		case KindClass:
			state.ClassNames[rec.ClassNumber] = rec.ClassName
		case KindSetting:
			applySetting(state, rec)
		case KindRaceInfo:
			applyRaceInfo(state, rec, sp)
		case KindPracticeQualifying:
			applyPracticeQualifying(state, rec)
		case KindPassing:
			applyPassing(state, rec)
		case KindReset, KindCorrectedFinish:
			// handled by the reset package / archived upstream, no state change.
		}
	}
}

func applyHeartbeat(state *session.SessionState, rec Record) {
	state.LapsToGo = rec.LapsToGo
	state.TimeToGo = session.ParseClock(rec.TimeToGo)
	state.LocalTimeOfDay = rec.LocalTimeOfDay
	state.RunningRaceTime = session.ParseClock(rec.RaceTime)
	state.CurrentFlag = rec.Flag()
}

func applyCompetitor(state *session.SessionState, rec Record) {
	state.EventEntries[rec.CarNumber] = &session.EventEntry{
		Number: rec.CarNumber,
		Name:   rec.DriverName,
		Team:   rec.Team,
		Class:  rec.Class,
	}
	car := state.Car(rec.CarNumber)
	car.DriverName = rec.DriverName
	car.Class = rec.Class
	car.TransponderID = rec.TransponderID
}

func applySetting(state *session.SessionState, rec Record) {
	switch rec.SettingKey {
	case "TRACKNAME":
		state.TrackName = rec.SettingValue
	case "TRACKLENGTH":
		if n, err := strconv.Atoi(rec.SettingValue); err == nil {
			state.TrackLength = n
		}
	}
}

func applyRaceInfo(state *session.SessionState, rec Record, sp *startpos.Processor) {
	flag := state.CurrentFlag
	if sp.Eligible(rec.Laps, flag) {
		sp.Capture(state, rec.CarNumber, rec.Position)
		return
	}
	car := state.Car(rec.CarNumber)
	car.OverallPosition = rec.Position
	if rec.Laps > car.LastLapCompleted {
		car.LastLapCompleted = rec.Laps
	}
	car.TotalTime = session.ParseClock(rec.RaceTimeStr)
	car.TrackFlag = flag
	sp.ObserveLap(state, rec.Laps)
}

func applyPracticeQualifying(state *session.SessionState, rec Record) {
	car := state.Car(rec.CarNumber)
	car.OverallPosition = rec.Position
	state.RecordBestLap(car, rec.BestLap, session.ParseClock(rec.BestLapTime))
}

func applyPassing(state *session.SessionState, rec Record) {
	car := state.Car(rec.CarNumber)
	car.LastLapTime = session.ParseClock(rec.LapTime)
	car.HasLastLapTime = true
	car.LastLapFlag = state.CurrentFlag
}
