// Package pipeline wires together every stage of the session state
// processing pipeline behind a single per-session worker:
// reset -> parsers -> pit -> flag -> lap -> position -> session-monitor
// -> consolidator. One Worker owns one session's SessionContext and
// drains its own bounded inbound queue in arrival order; callers run a
// Worker per live session for cross-session parallelism.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pitwall/timingpipeline/archive"
	"github.com/pitwall/timingpipeline/config"
	"github.com/pitwall/timingpipeline/consolidate"
	"github.com/pitwall/timingpipeline/flagproc"
	"github.com/pitwall/timingpipeline/internal/clock"
	"github.com/pitwall/timingpipeline/internal/errs"
	"github.com/pitwall/timingpipeline/lapproc"
	"github.com/pitwall/timingpipeline/multiloop"
	"github.com/pitwall/timingpipeline/pit"
	"github.com/pitwall/timingpipeline/position"
	"github.com/pitwall/timingpipeline/reset"
	"github.com/pitwall/timingpipeline/rmonitor"
	"github.com/pitwall/timingpipeline/session"
	"github.com/pitwall/timingpipeline/sessionmon"
	"github.com/pitwall/timingpipeline/startpos"
	"github.com/pitwall/timingpipeline/store"
	"github.com/pitwall/timingpipeline/transport"
)

// MessageType enumerates the inbound feed kinds.
type MessageType string

const (
	MessageRMonitor      MessageType = "rmonitor"
	MessageMultiloop     MessageType = "multiloop"
	MessageX2Pass        MessageType = "x2pass"
	MessageX2Loop        MessageType = "x2loop"
	MessageVideo         MessageType = "video"
	MessageSessionChange MessageType = "session-change"
	MessageResetRequest  MessageType = "reset-request"
)

// Message is one inbound feed payload: a type, a raw data blob and the
// owning session; it carries no timestamp. The typed payloads beyond Data
// are modeled as Go struct fields rather than re-parsed from the payload.
type Message struct {
	Type      MessageType
	Data      []byte
	SessionID int
	Passings  []pit.Passing                   // populated for MessageX2Pass
	Loops     []pit.LoopDef                   // populated for MessageX2Loop
	Video     *VideoUpdate                    // populated for MessageVideo
	Notice    *sessionmon.SessionChangeNotice // populated for MessageSessionChange
}

// VideoUpdate mirrors the inbound `video` message.
type VideoUpdate struct {
	CarNumber   string
	SystemType  string
	Destination string
}

// Deps bundles a worker's injected collaborators.
type Deps struct {
	Clock     clock.Source
	Logger    zerolog.Logger
	Publisher transport.Publisher
	Store     store.Store
	Archive   archive.Writer
	LapSink   lapproc.Sink
	Config    config.Config
}

// Worker owns one session's authoritative state and every per-session
// processor, and applies inbound messages to it in the fixed tick order.
type Worker struct {
	sessionCtx   *session.Context
	startPos     *startpos.Processor
	resetProc    *reset.Processor
	pitProc      *pit.Processor
	lapProc      *lapproc.Processor
	monitor      *sessionmon.Monitor
	consolidator *consolidate.Consolidator
	deps         Deps

	// archiveLog accumulates every lap appended this session so it can
	// be handed to the archive sink whole at finalize, as a gzip-
	// compressed JSON array of historical records.
	archiveLog []lapproc.CarLapData

	finalized bool

	queue chan Message
}

// NewWorker creates a worker owning a fresh session.
func NewWorker(eventID, sessionID int, deps Deps) *Worker {
	return &Worker{
		sessionCtx:   session.New(eventID, sessionID, deps.Clock, deps.Logger),
		startPos:     startpos.NewProcessor(),
		resetProc:    reset.NewProcessor(),
		pitProc:      pit.NewProcessor(deps.Config.PitPassingDedupWindow),
		lapProc:      lapproc.NewProcessor(deps.Config.LapProcessorFinalizeDelay),
		monitor:      sessionmon.NewMonitor(deps.Config.FinalizeSessionQuietPeriod),
		consolidator: consolidate.New(),
		deps:         deps,
		queue:        make(chan Message, 256),
	}
}

// Enqueue submits msg to the worker's bounded queue, blocking for
// backpressure when full and returning early if ctx is cancelled.
func (w *Worker) Enqueue(ctx context.Context, msg Message) error {
	select {
	case w.queue <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drains the worker's queue until ctx is cancelled, completing the
// in-flight batch before returning. A background ticker also finalizes
// the session once its quiet period elapses even when no further
// messages arrive, since the quiet-period check inside Handle only
// ever runs when a message has already shown up.
func (w *Worker) Run(ctx context.Context) {
	interval := w.deps.Config.IdleCheckInterval
	if interval <= 0 {
		interval = sessionmon.DefaultQuietPeriod
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-w.queue:
			if !ok {
				return
			}
			w.Handle(ctx, msg)
		case <-ticker.C:
			w.checkIdle(ctx)
		}
	}
}

// checkIdle finalizes the session if its quiet period has elapsed
// without any inbound message triggering Handle.
func (w *Worker) checkIdle(ctx context.Context) {
	if w.finalized {
		return
	}
	now := w.sessionCtx.Clock().Now()
	if w.monitor.QuietPeriodElapsed(now) {
		w.finalize(ctx)
	}
}

// Handle applies one inbound message through the full fixed tick order
// and publishes the resulting patch: reset -> parsers -> pit
// -> flag -> lap -> position -> session-monitor -> consolidator.
func (w *Worker) Handle(ctx context.Context, msg Message) {
	state := w.sessionCtx.State()
	now := w.sessionCtx.Clock().Now()
	w.monitor.Touch(now)

	// Clear the previous tick's pit-edge markers now that its patch has
	// already been published, not before this tick's own publish.
	w.pitProc.ClearEdges(state)

	switch msg.Type {
	case MessageRMonitor:
		w.handleRMonitor(msg.Data)
	case MessageMultiloop:
		records := multiloop.ParseBatch(msg.Data, w.sessionCtx.Logger())
		multiloop.Apply(state, records)
	case MessageX2Loop:
		w.pitProc.SetLoopMap(msg.Loops)
	case MessageX2Pass:
		w.pitProc.Process(state, msg.Passings)
	case MessageVideo:
		w.handleVideo(msg.Video)
	case MessageSessionChange, MessageResetRequest:
		// Session rotation is the responsibility of whatever owns the
		// worker registry; by the time a message reaches an
		// existing worker for a *different* session, the registry should
		// already have routed it to a fresh Worker instead.
	}

	flagproc.Process(state, w.sessionCtx.Clock())
	w.lapProc.Detect(state, w.sessionCtx.Clock())
	position.Process(state, w.deps.Config.StaleCheckMinLap)
	w.sessionCtx.CheckPositionInvariant()

	w.flushLaps(ctx, now)
	w.publish(ctx)

	w.checkIdle(ctx)
}

func (w *Worker) handleRMonitor(data []byte) {
	state := w.sessionCtx.State()
	records := rmonitor.ParseBatch(data, w.sessionCtx.Logger())
	shape := reset.Classify(records)
	if w.resetProc.Process(state, shape, w.startPos) {
		rmonitor.Apply(state, records, w.startPos)
		w.resetProc.RestorePreserved(state)
		return
	}
	rmonitor.Apply(state, records, w.startPos)
}

func (w *Worker) handleVideo(v *VideoUpdate) {
	if v == nil {
		return
	}
	state := w.sessionCtx.State()
	car, ok := state.LookupCar(v.CarNumber)
	if !ok {
		car = state.Car(v.CarNumber)
	}
	car.InCarVideo = &session.VideoStatus{VideoSystemType: v.SystemType, VideoDestination: v.Destination}
}

// flushLaps releases every finalized lap whose wait interval has
// elapsed and appends it to the external log sink, backlogging on
// failure.
func (w *Worker) flushLaps(ctx context.Context, now time.Time) {
	ready := w.lapProc.Flush(now)
	backlogged := w.lapProc.DrainBacklog()
	ready = append(backlogged, ready...)
	if len(ready) == 0 || w.deps.LapSink == nil {
		return
	}
	sessionID := w.sessionCtx.State().SessionID
	if err := w.deps.LapSink.AppendLaps(ctx, sessionID, ready); err != nil {
		w.sessionCtx.Logger().Warn().Int(errs.Code, errs.TransientExternalError).Err(err).
			Int("laps", len(ready)).Msg("lap log append failed, backlogging")
		w.lapProc.Backlog(ready)
		return
	}
	w.archiveLog = append(w.archiveLog, ready...)
}

func (w *Worker) publish(ctx context.Context) {
	sessionPatch, carPatches := w.consolidator.Diff(w.sessionCtx.State())
	if sessionPatch.IsEmpty() && len(carPatches) == 0 {
		return
	}
	if w.deps.Publisher == nil {
		return
	}
	batchID := uuid.New()
	if err := w.deps.Publisher.Publish(ctx, batchID, w.sessionCtx.State().SessionID, sessionPatch, carPatches); err != nil {
		w.sessionCtx.Logger().Warn().Int(errs.Code, errs.TransientExternalError).Err(err).
			Str("batchId", batchID.String()).Msg("tick dropped: publish failed")
	}
}

func (w *Worker) finalize(ctx context.Context) {
	w.finalized = true
	w.sessionCtx.Finalize()
	snapshot := w.sessionCtx.Snapshot()

	if w.deps.Archive != nil && len(w.archiveLog) > 0 {
		if err := w.deps.Archive.WriteArchive(ctx, snapshot.SessionID, w.archiveLog); err != nil {
			w.sessionCtx.Logger().Warn().Int(errs.Code, errs.TransientExternalError).Err(err).
				Msg("session archive write failed")
		}
	}

	if w.deps.Store == nil {
		return
	}
	if err := w.deps.Store.FinalizeSession(ctx, snapshot); err != nil {
		w.sessionCtx.Logger().Error().Int(errs.Code, errs.PermanentExternalError).Err(err).
			Msg("finalize-session notification failed after retries")
	}
}

// State returns a read-only snapshot of the worker's session, for
// diagnostics or direct inspection by tests.
func (w *Worker) State() *session.SessionState { return w.sessionCtx.Snapshot() }
