package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/pitwall/timingpipeline/config"
	"github.com/pitwall/timingpipeline/internal/clock"
	"github.com/pitwall/timingpipeline/internal/errs"
	"github.com/pitwall/timingpipeline/pipeline"
	"github.com/pitwall/timingpipeline/transport/wspublisher"
)

// registry owns one Worker per live session id and routes inbound
// messages to it, spawning a fresh worker the first time a session id
// is mentioned.
type registry struct {
	mu      sync.Mutex
	workers map[int]*pipeline.Worker
	eventID int
	deps    pipeline.Deps
}

func newRegistry(eventID int, deps pipeline.Deps) *registry {
	return &registry{workers: map[int]*pipeline.Worker{}, eventID: eventID, deps: deps}
}

func (r *registry) workerFor(ctx context.Context, sessionID int) *pipeline.Worker {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.workers[sessionID]
	if ok {
		return w
	}
	w = pipeline.NewWorker(r.eventID, sessionID, r.deps)
	r.workers[sessionID] = w
	go w.Run(ctx)
	return w
}

func (r *registry) ingestHandler(ctx context.Context) http.HandlerFunc {
	return func(rw http.ResponseWriter, req *http.Request) {
		var envelope struct {
			Type      pipeline.MessageType `json:"type"`
			Data      string               `json:"data"`
			SessionID int                  `json:"sessionId"`
		}
		body, err := io.ReadAll(io.LimitReader(req.Body, 8<<20))
		if err != nil {
			http.Error(rw, "read body", http.StatusBadRequest)
			return
		}
		if err := json.Unmarshal(body, &envelope); err != nil {
			log.Warn().Int(errs.Code, errs.ParseError).Err(err).Msg("malformed ingest envelope")
			http.Error(rw, "malformed envelope", http.StatusBadRequest)
			return
		}

		worker := r.workerFor(ctx, envelope.SessionID)
		msg := pipeline.Message{
			Type:      envelope.Type,
			Data:      []byte(envelope.Data),
			SessionID: envelope.SessionID,
		}
		if err := worker.Enqueue(req.Context(), msg); err != nil {
			http.Error(rw, "enqueue failed", http.StatusServiceUnavailable)
			return
		}
		rw.WriteHeader(http.StatusAccepted)
	}
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true, TimeFormat: zerolog.TimeFieldFormat})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Int(errs.Code, errs.Fatal).Err(err).Msg("refusing to start")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := log.Logger.With().Str("pod", cfg.PodName).Int("eventId", cfg.EventID).Logger()

	hub := wspublisher.New(logger, 5*time.Second)

	deps := pipeline.Deps{
		Clock:     clock.Real{},
		Logger:    logger,
		Publisher: hub,
		Config:    cfg,
	}
	reg := newRegistry(cfg.EventID, deps)

	mux := http.NewServeMux()
	mux.HandleFunc("/ingest", reg.ingestHandler(ctx))
	mux.Handle("/subscribe", hub)

	srv := &http.Server{Addr: ":8080", Handler: mux}
	go func() {
		logger.Info().Msg("ingestd listening on :8080")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Int(errs.Code, errs.Fatal).Err(err).Msg("http server stopped")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("graceful shutdown failed")
	}
}
