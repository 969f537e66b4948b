package reset

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitwall/timingpipeline/internal/clock"
	"github.com/pitwall/timingpipeline/rmonitor"
	"github.com/pitwall/timingpipeline/session"
	"github.com/pitwall/timingpipeline/startpos"
)

func newTestState() *session.SessionState {
	return session.New(1, 1, clock.Real{}, zerolog.Nop()).State()
}

func TestClassify(t *testing.T) {
	assert.Equal(t, ShapeNone, Classify(nil))
	assert.Equal(t, ShapeStandalone, Classify([]rmonitor.Record{{Kind: rmonitor.KindReset}}))
	assert.Equal(t, ShapeMultiRecord, Classify([]rmonitor.Record{
		{Kind: rmonitor.KindReset},
		{Kind: rmonitor.KindCompetitorA},
		{Kind: rmonitor.KindRaceInfo},
		{Kind: rmonitor.KindPracticeQualifying},
	}))
}

func TestProcess_PreRaceStandaloneClearsEverything(t *testing.T) {
	state := newTestState()
	state.Car("1")
	state.EventEntries["1"] = &session.EventEntry{Number: "1"}
	sp := startpos.NewProcessor()

	applied := NewProcessor().Process(state, ShapeStandalone, sp)

	assert.True(t, applied)
	assert.Empty(t, state.CarPositions())
	assert.Empty(t, state.EventEntries)
}

func TestProcess_MidRaceStandaloneIgnored(t *testing.T) {
	state := newTestState()
	state.CurrentFlag = session.FlagGreen
	state.Car("1")
	sp := startpos.NewProcessor()

	applied := NewProcessor().Process(state, ShapeStandalone, sp)

	assert.False(t, applied)
	assert.Len(t, state.CarPositions(), 1)
}

func TestProcess_MidRaceMultiRecordPreservesAndRestores(t *testing.T) {
	state := newTestState()
	state.CurrentFlag = session.FlagGreen
	car := state.Car("1")
	car.LastLapTime = 90_000_000_000 // 90s in ns, avoids importing time just for this
	car.HasLastLapTime = true
	car.PitStopCount = 2

	p := NewProcessor()
	sp := startpos.NewProcessor()
	applied := p.Process(state, ShapeMultiRecord, sp)
	require.True(t, applied)
	assert.Empty(t, state.CarPositions(), "mid-race rebuild clears cars until the rebuild records recreate them")

	// the rebuild batch recreates car "1" (its $A/$COMP record applied by rmonitor.Apply upstream).
	state.Car("1")
	p.RestorePreserved(state)

	restored, ok := state.LookupCar("1")
	require.True(t, ok)
	assert.True(t, restored.HasLastLapTime)
	assert.Equal(t, 2, restored.PitStopCount)
}

func TestRestorePreserved_OmittedCarStaysAbsent(t *testing.T) {
	state := newTestState()
	state.CurrentFlag = session.FlagGreen
	state.Car("1")
	state.Car("2")

	p := NewProcessor()
	sp := startpos.NewProcessor()
	p.Process(state, ShapeMultiRecord, sp)

	// only car "1" reappears in the rebuild batch.
	state.Car("1")
	p.RestorePreserved(state)

	_, ok := state.LookupCar("2")
	assert.False(t, ok, "a car omitted from the rebuild batch is not recreated")
}
