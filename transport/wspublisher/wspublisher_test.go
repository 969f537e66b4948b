package wspublisher

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitwall/timingpipeline/session"
)

func TestPublish_SkipsEmptyPatch(t *testing.T) {
	hub := New(zerolog.Nop(), time.Second)
	err := hub.Publish(context.Background(), uuid.New(), 1, &session.SessionPatch{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, hub.SubscriberCount())
}

func TestServeHTTPAndPublish_BroadcastsToSubscriber(t *testing.T) {
	hub := New(zerolog.Nop(), time.Second)
	server := httptest.NewServer(hub)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/subscribe"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.SubscriberCount() == 1 }, time.Second, 10*time.Millisecond)

	name := "Race 1"
	batchID := uuid.New()
	err = hub.Publish(context.Background(), batchID, 42, &session.SessionPatch{SessionName: &name}, nil)
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var got frame
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, batchID.String(), got.BatchID)
	assert.Equal(t, 42, got.SessionID)
	require.NotNil(t, got.Session)
	assert.Equal(t, "Race 1", *got.Session.SessionName)
}
