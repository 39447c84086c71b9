// Package chat is the websocket chat gateway. Connected clients receive
// every rendered tweet and may send text commands, whose replies go back to
// the sender only.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/tweetrelay/internal/domain"
	"github.com/pscheid92/tweetrelay/internal/metrics"
)

const (
	DefaultMaxClients = 1000
	maxIncomingBytes  = 4096

	TypeEvent = "event"
	TypeReply = "reply"
)

var (
	ErrHubStopped     = errors.New("chat hub stopped")
	ErrTooManyClients = errors.New("chat client limit reached")
)

// Message is the JSON envelope for everything the gateway sends.
type Message struct {
	Type      string   `json:"type"`
	SessionID string   `json:"session_id,omitempty"`
	TweetID   string   `json:"tweet_id,omitempty"`
	Lines     []string `json:"lines,omitempty"`
	Text      string   `json:"text,omitempty"`
}

// CommandHandler answers a chat line. handled is false for lines that are
// not commands; those get no reply.
type CommandHandler interface {
	Handle(ctx context.Context, text string) (reply string, handled bool)
}

type hubCmd interface{ isHubCmd() }

type baseHubCmd struct{}

func (baseHubCmd) isHubCmd() {}

type registerCmd struct {
	baseHubCmd
	conn  *websocket.Conn
	errCh chan error
}

type unregisterCmd struct {
	baseHubCmd
	conn *websocket.Conn
}

type broadcastCmd struct {
	baseHubCmd
	data []byte
}

type sendToCmd struct {
	baseHubCmd
	conn *websocket.Conn
	data []byte
}

type clientCountCmd struct {
	baseHubCmd
	replyCh chan int
}

type stopCmd struct {
	baseHubCmd
}

// Hub owns all chat connections. State lives in the run goroutine and is
// reached only through commands.
type Hub struct {
	cmdCh      chan hubCmd
	stopped    chan struct{}
	clients    map[*websocket.Conn]*clientWriter
	maxClients int
	commands   CommandHandler
	clock      clockwork.Clock
}

var _ domain.OutputSink = (*Hub)(nil)

func NewHub(commands CommandHandler, maxClients int, clock clockwork.Clock) *Hub {
	if maxClients <= 0 {
		maxClients = DefaultMaxClients
	}
	h := &Hub{
		cmdCh:      make(chan hubCmd, 256),
		stopped:    make(chan struct{}),
		clients:    make(map[*websocket.Conn]*clientWriter),
		maxClients: maxClients,
		commands:   commands,
		clock:      clock,
	}
	go h.run()
	return h
}

// Serve registers conn and reads commands from it until the client goes
// away or the hub stops. It blocks for the lifetime of the connection.
func (h *Hub) Serve(ctx context.Context, conn *websocket.Conn) error {
	errCh := make(chan error, 1)
	if !h.send(registerCmd{conn: conn, errCh: errCh}) {
		_ = conn.Close()
		return ErrHubStopped
	}
	if err := <-errCh; err != nil {
		return err
	}
	defer h.send(unregisterCmd{conn: conn})

	conn.SetReadLimit(maxIncomingBytes)
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.DebugContext(ctx, "Chat client read failed", "error", err)
			}
			return nil
		}
		if msgType != websocket.TextMessage || h.commands == nil {
			continue
		}

		reply, handled := h.commands.Handle(ctx, string(data))
		if !handled {
			continue
		}
		payload, err := json.Marshal(Message{Type: TypeReply, Text: reply})
		if err != nil {
			return fmt.Errorf("failed to marshal reply: %w", err)
		}
		h.send(sendToCmd{conn: conn, data: payload})
	}
}

// Emit broadcasts out to every connected client.
func (h *Hub) Emit(ctx context.Context, out domain.RenderedOutput) error {
	payload, err := json.Marshal(Message{
		Type:      TypeEvent,
		SessionID: out.SessionID.String(),
		TweetID:   out.TweetID,
		Lines:     out.Texts(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	select {
	case <-h.stopped:
		return ErrHubStopped
	default:
	}

	select {
	case h.cmdCh <- broadcastCmd{data: payload}:
		return nil
	case <-h.stopped:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) ClientCount() int {
	replyCh := make(chan int, 1)
	if !h.send(clientCountCmd{replyCh: replyCh}) {
		return 0
	}
	select {
	case n := <-replyCh:
		return n
	case <-h.stopped:
		return 0
	}
}

// Stop closes every client with a close frame and ends the hub.
func (h *Hub) Stop() {
	if h.send(stopCmd{}) {
		<-h.stopped
	}
}

func (h *Hub) send(cmd hubCmd) bool {
	select {
	case <-h.stopped:
		return false
	default:
	}

	select {
	case h.cmdCh <- cmd:
		return true
	case <-h.stopped:
		return false
	}
}

func (h *Hub) run() {
	defer close(h.stopped)

	for cmd := range h.cmdCh {
		switch c := cmd.(type) {
		case registerCmd:
			h.handleRegister(c)
		case unregisterCmd:
			h.handleUnregister(c.conn)
		case broadcastCmd:
			h.handleBroadcast(c.data)
		case sendToCmd:
			if cw, ok := h.clients[c.conn]; ok && !cw.trySend(c.data) {
				h.evict(c.conn)
			}
		case clientCountCmd:
			c.replyCh <- len(h.clients)
		case stopCmd:
			h.handleStop()
			return
		default:
			slog.Error("Chat hub: unknown command", "type", fmt.Sprintf("%T", cmd))
		}
	}
}

func (h *Hub) handleRegister(c registerCmd) {
	if len(h.clients) >= h.maxClients {
		slog.Warn("Rejecting chat client: limit reached", "max_clients", h.maxClients)
		_ = c.conn.Close()
		c.errCh <- fmt.Errorf("%w (%d)", ErrTooManyClients, h.maxClients)
		return
	}

	h.clients[c.conn] = newClientWriter(c.conn, h.clock)
	metrics.ChatClientsCurrent.Set(float64(len(h.clients)))
	slog.Debug("Chat client registered", "total", len(h.clients))
	c.errCh <- nil
}

func (h *Hub) handleUnregister(conn *websocket.Conn) {
	cw, ok := h.clients[conn]
	if !ok {
		return
	}
	cw.stop()
	delete(h.clients, conn)
	metrics.ChatClientsCurrent.Set(float64(len(h.clients)))
	slog.Debug("Chat client unregistered", "remaining", len(h.clients))
}

func (h *Hub) handleBroadcast(data []byte) {
	var slow []*websocket.Conn
	for conn, cw := range h.clients {
		if !cw.trySend(data) {
			slow = append(slow, conn)
		}
	}
	for _, conn := range slow {
		h.evict(conn)
	}
}

func (h *Hub) evict(conn *websocket.Conn) {
	slog.Warn("Disconnecting slow chat client")
	metrics.ChatSlowClientsEvicted.Inc()
	h.handleUnregister(conn)
}

func (h *Hub) handleStop() {
	for conn, cw := range h.clients {
		cw.stopGraceful("server shutting down")
		delete(h.clients, conn)
	}
	metrics.ChatClientsCurrent.Set(0)
}
