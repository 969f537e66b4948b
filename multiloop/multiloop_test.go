package multiloop

import (
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitwall/timingpipeline/internal/clock"
	"github.com/pitwall/timingpipeline/session"
)

const sep = string(rune(FieldSeparator))

func TestParseBatch_EntryAndCompletedLap(t *testing.T) {
	line1 := "$E" + sep + "42" + sep + "Jane Doe" + sep + "GT3"
	line2 := "$L" + sep + "42" + sep + "2" + sep + "a" + sep + "1" + sep + "0" + sep + "PIT" + sep + "15f90" + sep + "64" + sep + "41"
	data := []byte(line1 + "\n" + line2 + "\n")

	records := ParseBatch(data, zerolog.Nop())
	require.Len(t, records, 2)

	assert.Equal(t, KindEntry, records[0].Kind)
	assert.Equal(t, "42", records[0].CarNumber)
	assert.Equal(t, "Jane Doe", records[0].DriverName)

	assert.Equal(t, KindCompletedLap, records[1].Kind)
	assert.Equal(t, 2, records[1].PitStopCount)
	assert.Equal(t, 10, records[1].LastLapPitted) // hex "a"
	assert.Equal(t, int64(0x15f90), records[1].BestLapTimeMs)
}

func TestParseBatch_UnknownPrefixSkipped(t *testing.T) {
	data := []byte("$ZZ" + sep + "garbage\n")
	records := ParseBatch(data, zerolog.Nop())
	assert.Empty(t, records)
}

func TestParseBatch_MalformedHexDefaultsToZero(t *testing.T) {
	line := "$L" + sep + "42" + sep + "nothex"
	records := ParseBatch([]byte(line+"\n"), zerolog.Nop())
	require.Len(t, records, 1)
	assert.Equal(t, 0, records[0].PitStopCount)
}

func TestApply_EntryUpsertsCarAndEventEntry(t *testing.T) {
	state := newTestState()
	Apply(state, []Record{{Kind: KindEntry, CarNumber: "42", DriverName: "Jane", Class: "GT3"}})

	car, ok := state.LookupCar("42")
	require.True(t, ok)
	assert.Equal(t, "Jane", car.DriverName)
	assert.Equal(t, "GT3", state.EventEntries["42"].Class)
}

func TestApply_CompletedLapClearsCompletedSections(t *testing.T) {
	state := newTestState()
	car := state.Car("42")
	car.CompletedSections["S1"] = session.CompletedSection{SectionID: "S1"}

	Apply(state, []Record{{Kind: KindCompletedLap, CarNumber: "42", CurrentStatus: "RUN"}})

	assert.Empty(t, car.CompletedSections)
	assert.Equal(t, "RUN", car.CurrentStatus)
	require.Contains(t, state.CompletedLaps, "42")
}

func TestApply_NewLeaderIncrementsLeadChangesOnlyOnChange(t *testing.T) {
	state := newTestState()
	Apply(state, []Record{{Kind: KindNewLeader, NewLeader: "42"}})
	assert.Equal(t, 1, state.MLMetrics.LeadChanges)
	assert.True(t, state.MLMetrics.Dirty)

	state.MLMetrics.Dirty = false
	Apply(state, []Record{{Kind: KindNewLeader, NewLeader: "42"}})
	assert.Equal(t, 1, state.MLMetrics.LeadChanges, "same leader again must not bump the count")
	assert.False(t, state.MLMetrics.Dirty)
}

func TestApply_MetricsOnlyDirtyWhenChanged(t *testing.T) {
	state := newTestState()
	Apply(state, []Record{{Kind: KindFlag, GreenMs: 1000, LapCount: 5}})
	require.True(t, state.MLMetrics.Dirty)

	state.MLMetrics.Dirty = false
	Apply(state, []Record{{Kind: KindFlag, GreenMs: 1000, LapCount: 5}})
	assert.False(t, state.MLMetrics.Dirty)
}

func newTestState() *session.SessionState {
	return session.New(1, 1, clock.Real{}, zerolog.Nop()).State()
}

func TestFieldSeparatorIsDEL(t *testing.T) {
	assert.Equal(t, byte(0x7F), byte(FieldSeparator))
	assert.Equal(t, fmt.Sprintf("%c", 0x7F), sep)
}
