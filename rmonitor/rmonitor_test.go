package rmonitor

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitwall/timingpipeline/internal/clock"
	"github.com/pitwall/timingpipeline/session"
	"github.com/pitwall/timingpipeline/startpos"
)

func TestParseBatch_HeartbeatAndCompetitor(t *testing.T) {
	data := []byte("$F,10,00:05:00,12:34:00,00:10:00,GREEN\n$A,42,1001,\"Jane Doe\",GT3,Team X\n")
	records := ParseBatch(data, zerolog.Nop())

	require.Len(t, records, 2)
	assert.Equal(t, KindHeartbeat, records[0].Kind)
	assert.Equal(t, 10, records[0].LapsToGo)
	assert.Equal(t, session.FlagGreen, records[0].Flag())

	assert.Equal(t, KindCompetitorA, records[1].Kind)
	assert.Equal(t, "42", records[1].CarNumber)
	assert.Equal(t, uint(1001), records[1].TransponderID)
	assert.Equal(t, "Jane Doe", records[1].DriverName)
}

func TestParseBatch_UnknownPrefixSkippedNotFatal(t *testing.T) {
	data := []byte("$ZZZ,unexpected\n$B,67,Race 1\n")
	records := ParseBatch(data, zerolog.Nop())

	require.Len(t, records, 1)
	assert.Equal(t, KindRunInfo, records[0].Kind)
	assert.Equal(t, 67, records[0].SessionRef)
}

func TestParseBatch_MalformedNumericFieldDefaultsToZero(t *testing.T) {
	data := []byte("$F,notanumber,00:05:00,12:34:00,00:10:00,GREEN\n")
	records := ParseBatch(data, zerolog.Nop())

	require.Len(t, records, 1)
	assert.Equal(t, 0, records[0].LapsToGo)
}

func TestApply_RunInfoSetsSessionID(t *testing.T) {
	state := newTestState()
	Apply(state, []Record{{Kind: KindRunInfo, SessionRef: 67, SessionName: "Race 1"}}, startpos.NewProcessor())

	assert.Equal(t, 67, state.SessionID)
	assert.Equal(t, "Race 1", state.SessionName)
}

func TestApply_PracticeQualifyingRecordsBestLap(t *testing.T) {
	state := newTestState()
	Apply(state, []Record{{Kind: KindPracticeQualifying, CarNumber: "7", Position: 1, BestLap: 3, BestLapTime: "00:01:30.000"}}, startpos.NewProcessor())

	car, ok := state.LookupCar("7")
	require.True(t, ok)
	assert.Equal(t, 1, car.OverallPosition)
	assert.Equal(t, 3, car.BestLap)
	assert.True(t, car.HasBestLapTime)
}

func TestApply_RaceInfoFeedsStartingPositionWhileEligible(t *testing.T) {
	state := newTestState()
	state.Car("7") // pre-registered via a competitor record in real traffic
	sp := startpos.NewProcessor()
	Apply(state, []Record{{Kind: KindRaceInfo, CarNumber: "7", Position: 2, Laps: 0}}, sp)

	car, ok := state.LookupCar("7")
	require.True(t, ok)
	assert.Equal(t, 2, car.OverallPosition, "lap-0 race info feeds the starting grid capture, which is live immediately")
	assert.Equal(t, 0, car.OverallStartingPosition, "the starting-grid rank isn't finalized until a car reports laps>=1")

	// once the first lap completes, the captured grid finalizes.
	Apply(state, []Record{{Kind: KindRaceInfo, CarNumber: "7", Position: 1, Laps: 1, RaceTimeStr: "00:01:30.000"}}, sp)
	car, ok = state.LookupCar("7")
	require.True(t, ok)
	assert.Equal(t, 2, car.OverallStartingPosition)
}

func newTestState() *session.SessionState {
	return session.New(1, 1, clock.Real{}, zerolog.Nop()).State()
}
