// Package command parses chat lines such as "=stream start 123 456" and
// drives the stream through domain.ControlSurface.
package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/pscheid92/tweetrelay/internal/domain"
	"github.com/pscheid92/tweetrelay/internal/metrics"
)

const DefaultPrefix = "="

type Dispatcher struct {
	prefix  string
	control domain.ControlSurface
}

func NewDispatcher(prefix string, control domain.ControlSurface) *Dispatcher {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Dispatcher{prefix: prefix, control: control}
}

// Handle runs the command in text. Lines without the prefix are not
// commands and return handled=false.
func (d *Dispatcher) Handle(ctx context.Context, text string) (string, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, d.prefix) {
		return "", false
	}

	fields := strings.Fields(strings.TrimPrefix(text, d.prefix))
	if len(fields) == 0 {
		return "", false
	}

	name := strings.ToLower(fields[0])
	args := fields[1:]

	var reply string
	var err error
	switch name {
	case "ping":
		reply = "🏓 pong"
	case "help":
		reply = d.help()
	case "stream":
		name, reply, err = d.stream(ctx, args)
	default:
		metrics.ChatCommandsTotal.WithLabelValues("unknown", "error").Inc()
		return fmt.Sprintf("Unknown command %q. Try %shelp.", fields[0], d.prefix), true
	}

	if err != nil {
		metrics.ChatCommandsTotal.WithLabelValues(name, "error").Inc()
		slog.InfoContext(ctx, "Chat command rejected", "command", name, "error", err)
		return reply, true
	}
	metrics.ChatCommandsTotal.WithLabelValues(name, "success").Inc()
	return reply, true
}

func (d *Dispatcher) stream(ctx context.Context, args []string) (string, string, error) {
	if len(args) == 0 {
		return "stream", d.usage(), errors.New("missing subcommand")
	}

	switch strings.ToLower(args[0]) {
	case "start":
		reply, err := d.start(ctx, args[1:])
		return "stream_start", reply, err
	case "stop":
		reply, err := d.stop()
		return "stream_stop", reply, err
	case "status":
		return "stream_status", FormatStatus(d.control.Status()), nil
	default:
		return "stream", d.usage(), fmt.Errorf("unknown subcommand %q", args[0])
	}
}

func (d *Dispatcher) start(ctx context.Context, args []string) (string, error) {
	follows, err := domain.ParseFollowList(strings.Join(args, " "))
	if err != nil {
		return "Cannot start stream: " + describe(err) + ". Usage: " + d.prefix + "stream start <account id> [more ids]", err
	}

	if err := d.control.StartStreaming(ctx, follows); err != nil {
		if errors.Is(err, domain.ErrAlreadyRunning) {
			return "A stream is already running. Stop it first with " + d.prefix + "stream stop.", err
		}
		return "Cannot start stream: " + describe(err) + ".", err
	}
	return fmt.Sprintf("Streaming tweets from %s.", plural(len(follows), "account")), nil
}

func (d *Dispatcher) stop() (string, error) {
	if err := d.control.StopStreaming(); err != nil {
		if errors.Is(err, domain.ErrNotRunning) {
			return "No stream is running.", err
		}
		return "Cannot stop stream: " + err.Error() + ".", err
	}
	return "Stream stopped.", nil
}

func (d *Dispatcher) usage() string {
	return "Usage: " + d.prefix + "stream start <ids> | " + d.prefix + "stream stop | " + d.prefix + "stream status"
}

func (d *Dispatcher) help() string {
	p := d.prefix
	return strings.Join([]string{
		"Commands:",
		p + "stream start <ids>  follow the given account ids",
		p + "stream stop         stop the running stream",
		p + "stream status       show the stream state",
		p + "ping                check the bot is alive",
		p + "help                show this message",
	}, "\n")
}

// FormatStatus renders a status for humans.
func FormatStatus(s domain.SessionStatus) string {
	ids := make([]string, len(s.Follows))
	for i, id := range s.Follows {
		ids[i] = strconv.FormatInt(id, 10)
	}
	following := strings.Join(ids, ", ")

	switch s.State {
	case domain.StateIdle:
		return "No stream has been started."
	case domain.StatePending:
		if s.Reason != "" {
			return fmt.Sprintf("Stream is reconnecting (attempt %d, following %s). Last error: %s", s.Attempt, following, s.Reason)
		}
		return fmt.Sprintf("Stream is connecting (following %s).", following)
	case domain.StateRunning:
		return fmt.Sprintf("Stream is running (following %s).", following)
	case domain.StateCancelled:
		return "Stream was stopped."
	case domain.StateFailed:
		return "Stream failed: " + s.Reason
	default:
		return "Stream state: " + string(s.State)
	}
}

// describe strips the error kind prefix for chat replies.
func describe(err error) string {
	var configErr *domain.ConfigError
	if errors.As(err, &configErr) {
		return configErr.Err.Error()
	}
	return err.Error()
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
