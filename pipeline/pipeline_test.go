package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitwall/timingpipeline/config"
	"github.com/pitwall/timingpipeline/internal/clock"
	"github.com/pitwall/timingpipeline/lapproc"
	"github.com/pitwall/timingpipeline/pit"
	"github.com/pitwall/timingpipeline/session"
)

type fakeLapSink struct {
	appended [][]lapproc.CarLapData
}

func (f *fakeLapSink) AppendLaps(ctx context.Context, sessionID int, laps []lapproc.CarLapData) error {
	f.appended = append(f.appended, laps)
	return nil
}

func testDeps() Deps {
	return Deps{
		Clock:  clock.NewFake(time.Unix(0, 0)),
		Logger: zerolog.Nop(),
		Config: config.Config{
			FinalizeSessionQuietPeriod: 10 * time.Minute,
			LapProcessorFinalizeDelay:  0,
			PitPassingDedupWindow:      time.Minute,
			StaleCheckMinLap:           3,
		},
	}
}

func TestHandle_RMonitorHeartbeatAndCompetitorUpdateState(t *testing.T) {
	deps := testDeps()
	w := NewWorker(1, 100, deps)

	data := []byte("$F,10,00:05:00,12:34:00,00:10:00,GREEN\n$A,42,1001,\"Jane Doe\",GT3,Team X\n")
	w.Handle(context.Background(), Message{Type: MessageRMonitor, Data: data, SessionID: 100})

	state := w.State()
	assert.Equal(t, session.FlagGreen, state.CurrentFlag)
	car, ok := state.LookupCar("42")
	require.True(t, ok)
	assert.Equal(t, "Jane Doe", car.DriverName)
}

func TestHandle_RaceInfoThenLapAdvancesFlushesLap(t *testing.T) {
	deps := testDeps()
	sink := &fakeLapSink{}
	deps.LapSink = sink
	w := NewWorker(1, 100, deps)

	setup := []byte("$A,42,1001,\"Jane Doe\",GT3,Team X\n$G,1,42,0,00:00:00.000\n")
	w.Handle(context.Background(), Message{Type: MessageRMonitor, Data: setup})

	advance := []byte("$G,1,42,1,00:01:30.000\n")
	w.Handle(context.Background(), Message{Type: MessageRMonitor, Data: advance})

	require.Len(t, sink.appended, 1)
	require.Len(t, sink.appended[0], 1)
	assert.Equal(t, 1, sink.appended[0][0].LapNumber)
}

func TestHandle_X2LoopAndX2PassSetsPitState(t *testing.T) {
	deps := testDeps()
	w := NewWorker(1, 100, deps)
	w.sessionCtx.State().Car("42").TransponderID = 1001

	w.Handle(context.Background(), Message{Type: MessageX2Loop, Loops: []pit.LoopDef{}})
	w.Handle(context.Background(), Message{Type: MessageX2Pass, Passings: []pit.Passing{
		{TransponderID: 1001, LoopID: 1, Timestamp: time.Unix(1, 0)},
	}})

	// with no loop map entry for loop 1, the passing has no pit-role effect
	// but must not panic or alter unrelated state.
	car, ok := w.State().LookupCar("42")
	require.True(t, ok)
	assert.False(t, car.IsInPit)
}

func TestHandle_VideoMessageAttachesStatus(t *testing.T) {
	deps := testDeps()
	w := NewWorker(1, 100, deps)

	w.Handle(context.Background(), Message{Type: MessageVideo, Video: &VideoUpdate{
		CarNumber: "42", SystemType: "hd", Destination: "rtmp://x",
	}})

	car, ok := w.State().LookupCar("42")
	require.True(t, ok)
	require.NotNil(t, car.InCarVideo)
	assert.Equal(t, "hd", car.InCarVideo.VideoSystemType)
}
