// Package rmonitor parses the Result-Monitor (RM) wire protocol: a
// newline-delimited, comma-separated ASCII protocol whose records are
// prefixed "$X". Parsing dispatches on the record prefix in a single
// switch, reading comma-separated text fields instead of a binary
// encoding/binary reader.
package rmonitor

import "github.com/pitwall/timingpipeline/session"

// Kind identifies an RM record's wire type.
type Kind int

const (
	KindUnknown Kind = iota
	KindHeartbeat
	KindCompetitorA
	KindCompetitorComp
	KindRunInfo
	KindClass
	KindSetting
	KindRaceInfo
	KindPracticeQualifying
	KindPassing
	KindReset
	KindCorrectedFinish
)

// Record is one parsed RM line. Only the fields relevant to Kind are
// populated; the rest are zero values.
type Record struct {
	Kind Kind
	Raw  string

	// $F heartbeat
	LapsToGo       int
	TimeToGo       string
	LocalTimeOfDay string
	RaceTime       string
	FlagText       string

	// $A / $COMP competitor
	CarNumber     string
	TransponderID uint
	DriverName    string
	Class         string
	Team          string

	// $B run info
	SessionRef  int
	SessionName string

	// $C class
	ClassNumber string
	ClassName   string

	// $E setting
	SettingKey   string
	SettingValue string

	// $G race info / $H practice-qualifying
	Position    int
	Laps        int
	RaceTimeStr string
	BestLap     int
	BestLapTime string

	// $J passing
	LapTime string
}

// Flag returns the parsed flag for a heartbeat record.
func (r Record) Flag() session.Flag { return session.ParseFlag(r.FlagText) }
