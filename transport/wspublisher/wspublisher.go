// Package wspublisher is a reference transport.Publisher adapter that
// broadcasts each tick's patch tuple to every connected websocket
// subscriber as a JSON frame.
package wspublisher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/pitwall/timingpipeline/internal/errs"
	"github.com/pitwall/timingpipeline/session"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// frame is the wire shape sent to subscribers.
type frame struct {
	BatchID   string               `json:"batchId"`
	SessionID int                  `json:"sessionId"`
	Session   *session.SessionPatch `json:"session,omitempty"`
	Cars      []session.CarPatch    `json:"cars,omitempty"`
}

// Hub fans out patch tuples to every connected subscriber socket.
type Hub struct {
	mu           sync.Mutex
	conns        map[*websocket.Conn]struct{}
	logger       zerolog.Logger
	writeTimeout time.Duration
}

// New builds an empty hub. writeTimeout bounds each subscriber write.
func New(logger zerolog.Logger, writeTimeout time.Duration) *Hub {
	return &Hub{
		conns:        map[*websocket.Conn]struct{}{},
		logger:       logger,
		writeTimeout: writeTimeout,
	}
}

// ServeHTTP upgrades an inbound request to a websocket and registers it
// as a subscriber.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Int(errs.Code, errs.TransientExternalError).Err(err).Msg("websocket upgrade failed")
		return
	}
	h.mu.Lock()
	h.conns[conn] = struct{}{}
	h.mu.Unlock()
}

// Publish implements transport.Publisher. Subscribers that fail a write
// are dropped; a failing subscriber never blocks the others.
func (h *Hub) Publish(ctx context.Context, batchID uuid.UUID, sessionID int, sessionPatch *session.SessionPatch, carPatches []session.CarPatch) error {
	if sessionPatch.IsEmpty() && len(carPatches) == 0 {
		return nil
	}

	payload, err := json.Marshal(frame{
		BatchID:   batchID.String(),
		SessionID: sessionID,
		Session:   sessionPatch,
		Cars:      carPatches,
	})
	if err != nil {
		return fmt.Errorf("wspublisher: marshal frame: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.logger.Warn().Int(errs.Code, errs.TransientExternalError).Err(err).Msg("dropping subscriber after write failure")
			conn.Close()
			delete(h.conns, conn)
		}
	}
	return nil
}

// SubscriberCount reports the current number of connected subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}
