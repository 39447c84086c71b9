package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/tweetrelay/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoCommands struct{}

func (echoCommands) Handle(_ context.Context, text string) (string, bool) {
	if text == "=ping" {
		return "pong", true
	}
	return "", false
}

func testHub(t *testing.T, maxClients int) (*Hub, func() *ws.Conn) {
	t.Helper()

	hub := NewHub(echoCommands{}, maxClients, clockwork.NewRealClock())
	t.Cleanup(hub.Stop)

	upgrader := ws.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_ = hub.Serve(context.Background(), conn)
	}))
	t.Cleanup(server.Close)

	dial := func() *ws.Conn {
		t.Helper()
		url := "ws" + strings.TrimPrefix(server.URL, "http")
		conn, _, err := ws.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		t.Cleanup(func() { _ = conn.Close() })
		return conn
	}
	return hub, dial
}

func waitForClientCount(t *testing.T, hub *Hub, expected int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return hub.ClientCount() == expected
	}, 2*time.Second, time.Millisecond)
}

func readMessage(t *testing.T, conn *ws.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestHub_EmitBroadcastsToAllClients(t *testing.T) {
	hub, dial := testHub(t, 10)
	a, b := dial(), dial()
	waitForClientCount(t, hub, 2)

	sessionID := uuid.New()
	out := domain.RenderedOutput{
		SessionID: sessionID,
		TweetID:   "99",
		Lines: []domain.Line{
			{Kind: domain.LineAuthor, Text: "alice (@alice) posted at 2020-05-17 12:30:00 UTC"},
			{Kind: domain.LineBody, Text: "hello world"},
		},
	}
	require.NoError(t, hub.Emit(context.Background(), out))

	for _, conn := range []*ws.Conn{a, b} {
		msg := readMessage(t, conn)
		assert.Equal(t, TypeEvent, msg.Type)
		assert.Equal(t, sessionID.String(), msg.SessionID)
		assert.Equal(t, "99", msg.TweetID)
		assert.Equal(t, out.Texts(), msg.Lines)
	}
}

func TestHub_CommandReplyGoesToSenderOnly(t *testing.T) {
	hub, dial := testHub(t, 10)
	sender, other := dial(), dial()
	waitForClientCount(t, hub, 2)

	require.NoError(t, sender.WriteMessage(ws.TextMessage, []byte("=ping")))

	reply := readMessage(t, sender)
	assert.Equal(t, Message{Type: TypeReply, Text: "pong"}, reply)

	require.NoError(t, other.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err := other.ReadMessage()
	assert.Error(t, err, "other client must not receive the reply")
}

func TestHub_IgnoresNonCommands(t *testing.T) {
	hub, dial := testHub(t, 10)
	conn := dial()
	waitForClientCount(t, hub, 1)

	require.NoError(t, conn.WriteMessage(ws.TextMessage, []byte("just chatting")))
	require.NoError(t, conn.WriteMessage(ws.TextMessage, []byte("=ping")))

	assert.Equal(t, "pong", readMessage(t, conn).Text)
}

func TestHub_RejectsBeyondMaxClients(t *testing.T) {
	hub, dial := testHub(t, 1)
	dial()
	waitForClientCount(t, hub, 1)

	rejected := dial()
	require.NoError(t, rejected.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := rejected.ReadMessage()

	assert.Error(t, err)
	assert.Equal(t, 1, hub.ClientCount())
}

func TestHub_DisconnectUnregisters(t *testing.T) {
	hub, dial := testHub(t, 10)
	conn := dial()
	waitForClientCount(t, hub, 1)

	require.NoError(t, conn.Close())

	waitForClientCount(t, hub, 0)
}

func TestHub_StopClosesClients(t *testing.T) {
	hub, dial := testHub(t, 10)
	conn := dial()
	waitForClientCount(t, hub, 1)

	hub.Stop()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, ws.IsCloseError(err, ws.CloseNormalClosure), "expected normal close, got %v", err)

	assert.ErrorIs(t, hub.Emit(context.Background(), domain.RenderedOutput{}), ErrHubStopped)
	assert.Equal(t, 0, hub.ClientCount())
}
