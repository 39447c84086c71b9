package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/tweetrelay/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

const DefaultChannel = "tweetrelay:events"

// RelayMessage is the JSON payload published per rendered tweet.
type RelayMessage struct {
	SessionID   string      `json:"session_id"`
	TweetID     string      `json:"tweet_id"`
	Lines       []RelayLine `json:"lines"`
	PublishedAt time.Time   `json:"published_at"`
}

type RelayLine struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
}

// Relay publishes every RenderedOutput to one Pub/Sub channel.
type Relay struct {
	rdb     *goredis.Client
	channel string
	clock   clockwork.Clock
}

var _ domain.OutputSink = (*Relay)(nil)

func NewRelay(rdb *goredis.Client, channel string, clock clockwork.Clock) *Relay {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Relay{rdb: rdb, channel: channel, clock: clock}
}

func (r *Relay) Channel() string { return r.channel }

func (r *Relay) Emit(ctx context.Context, out domain.RenderedOutput) error {
	msg := RelayMessage{
		SessionID:   out.SessionID.String(),
		TweetID:     out.TweetID,
		Lines:       make([]RelayLine, len(out.Lines)),
		PublishedAt: r.clock.Now().UTC(),
	}
	for i, l := range out.Lines {
		msg.Lines[i] = RelayLine{Kind: l.Kind.String(), Text: l.Text}
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal relay message: %w", err)
	}
	if err := r.rdb.Publish(ctx, r.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", r.channel, err)
	}
	return nil
}

// Subscription delivers relayed messages until closed.
type Subscription struct {
	sub    *goredis.PubSub
	Ch     <-chan RelayMessage
	cancel context.CancelFunc
}

func (s *Subscription) Close() {
	s.cancel()
	_ = s.sub.Close()
}

// Subscribe listens on the relay channel. Messages are dropped when the
// receiver falls behind.
func (r *Relay) Subscribe(ctx context.Context) (*Subscription, error) {
	sub := r.rdb.Subscribe(ctx, r.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", r.channel, err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	ch := make(chan RelayMessage, 16)

	go func() {
		defer close(ch)
		msgCh := sub.Channel()
		for {
			select {
			case msg, ok := <-msgCh:
				if !ok {
					return
				}
				var relayed RelayMessage
				if err := json.Unmarshal([]byte(msg.Payload), &relayed); err != nil {
					slog.Warn("Failed to unmarshal relay message", "error", err)
					continue
				}
				select {
				case ch <- relayed:
				default:
				}
			case <-subCtx.Done():
				return
			}
		}
	}()

	return &Subscription{sub: sub, Ch: ch, cancel: cancel}, nil
}
