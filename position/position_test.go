package position

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitwall/timingpipeline/internal/clock"
	"github.com/pitwall/timingpipeline/session"
)

func TestProcess_GapAndDifference(t *testing.T) {
	state := fakeState()
	leader := state.Car("1")
	leader.Class = "GT3"
	leader.OverallPosition = 1
	leader.LastLapCompleted = 10
	leader.TotalTime = 10 * time.Minute

	second := state.Car("149")
	second.Class = "GT4"
	second.OverallPosition = 2
	second.LastLapCompleted = 10
	second.TotalTime = 10*time.Minute + 30*time.Second

	Process(state, DefaultStaleCheckMinLap)

	assert.Equal(t, "", leader.OverallGap)
	assert.Equal(t, "30.000", second.OverallGap)
	assert.Equal(t, "30.000", second.OverallDifference)
	// 149 is the only GT4 car, so its in-class gap/diff are both empty (it's its own class leader).
	assert.Equal(t, "", second.InClassGap)
	assert.Equal(t, "", second.InClassDifference)
}

func TestProcess_LapDownUsesLapDiffFormat(t *testing.T) {
	state := fakeState()
	leader := state.Car("1")
	leader.OverallPosition = 1
	leader.LastLapCompleted = 10

	down := state.Car("2")
	down.OverallPosition = 2
	down.LastLapCompleted = 9

	Process(state, DefaultStaleCheckMinLap)

	assert.Equal(t, "1 lap", down.OverallGap)
}

func TestComputeBestTime_TieBreaksOnEarliestAchievement(t *testing.T) {
	state := fakeState()
	a := state.Car("1")
	b := state.Car("2")
	a.OverallPosition = 1
	b.OverallPosition = 2

	state.RecordBestLap(b, 3, 90*time.Second)
	state.RecordBestLap(a, 4, 90*time.Second)

	Process(state, DefaultStaleCheckMinLap)

	assert.True(t, b.IsBestTime)
	assert.False(t, a.IsBestTime)
}

func TestComputePositionsGained_MarksAllTies(t *testing.T) {
	state := fakeState()
	a := state.Car("1")
	a.OverallPosition = 1
	a.OverallStartingPosition = 3

	b := state.Car("2")
	b.OverallPosition = 2
	b.OverallStartingPosition = 4

	Process(state, DefaultStaleCheckMinLap)

	assert.True(t, a.IsOverallMostPositionsGained)
	assert.True(t, b.IsOverallMostPositionsGained)
	assert.Equal(t, 2, a.OverallPositionsGained)
	assert.Equal(t, 2, b.OverallPositionsGained)
}

func TestComputePositionsGained_NoMarkWhenNobodyGained(t *testing.T) {
	state := fakeState()
	a := state.Car("1")
	a.OverallPosition = 2
	a.OverallStartingPosition = 1

	Process(state, DefaultStaleCheckMinLap)

	assert.False(t, a.IsOverallMostPositionsGained)
}

func TestComputeStale_SkippedUnderFlag(t *testing.T) {
	state := fakeState()
	state.CurrentFlag = session.FlagCheckered
	car := state.Car("1")
	car.LastLapCompleted = 0

	Process(state, DefaultStaleCheckMinLap)

	assert.False(t, car.IsStale)
}

func TestComputeStale_SkippedWhenAnyCarBelowMinLap(t *testing.T) {
	state := fakeState()
	state.CurrentFlag = session.FlagGreen
	a := state.Car("1")
	a.LastLapCompleted = 5
	b := state.Car("2")
	b.LastLapCompleted = 1

	Process(state, 3)

	assert.False(t, a.IsStale)
	assert.False(t, b.IsStale)
}

func TestComputeStale_CarNeverCompletedLapIsStale(t *testing.T) {
	state := fakeState()
	state.CurrentFlag = session.FlagGreen
	a := state.Car("1")
	a.LastLapCompleted = 5
	b := state.Car("2")
	b.LastLapCompleted = 0

	// with no minimum-lap requirement the check applies even though car 2
	// has completed no lap yet.
	Process(state, 0)

	assert.True(t, b.IsStale)
}

func TestComputeStale_BeyondThresholdIsStale(t *testing.T) {
	state := fakeState()
	state.CurrentFlag = session.FlagGreen
	state.RunningRaceTime = 200 * time.Second

	a := state.Car("1")
	a.LastLapCompleted = 5
	a.LastLapTime = 30 * time.Second
	a.LastLapFlag = session.FlagGreen
	a.TotalTime = 100 * time.Second // elapsed since last lap = 100s >> 30s*1.3

	Process(state, 3)

	assert.True(t, a.IsStale)
}

func TestStaleMultiplier_Table(t *testing.T) {
	cases := []struct {
		from, to session.Flag
		want     float64
	}{
		{session.FlagGreen, session.FlagGreen, 1.30},
		{session.FlagWhite, session.FlagWhite, 1.30},
		{session.FlagGreen, session.FlagYellow, 2.10},
		{session.FlagYellow, session.FlagYellow, 2.10},
		{session.FlagYellow, session.FlagGreen, 1.05},
		{session.FlagYellow, session.FlagWhite, 2.10},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, staleMultiplier(c.from, c.to))
	}
}

func fakeState() *session.SessionState {
	return session.New(1, 1, clock.Real{}, zerolog.Nop()).State()
}

func TestAbs(t *testing.T) {
	require.Equal(t, 3, abs(-3))
	require.Equal(t, 3, abs(3))
}
