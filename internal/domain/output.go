package domain

import (
	"context"

	"github.com/google/uuid"
)

// LineKind tags a rendered line so sinks can style it. The text is the same for every sink.
type LineKind int

const (
	LineAuthor LineKind = iota
	LineReply
	LineMarker
	LineBody
	LineSource
	LinePlace
	LineHeader
	LineItem
	LineTruncated
)

func (k LineKind) String() string {
	switch k {
	case LineAuthor:
		return "author"
	case LineReply:
		return "reply"
	case LineMarker:
		return "marker"
	case LineBody:
		return "body"
	case LineSource:
		return "source"
	case LinePlace:
		return "place"
	case LineHeader:
		return "header"
	case LineItem:
		return "item"
	case LineTruncated:
		return "truncated"
	default:
		return "unknown"
	}
}

type Line struct {
	Kind LineKind
	Text string
}

// RenderedOutput holds the lines for exactly one top-level event.
type RenderedOutput struct {
	SessionID uuid.UUID
	TweetID   string
	Lines     []Line
}

// Texts returns the plain text of every line, in order.
func (o RenderedOutput) Texts() []string {
	out := make([]string, len(o.Lines))
	for i, l := range o.Lines {
		out[i] = l.Text
	}
	return out
}

// OutputSink receives one RenderedOutput per call and writes it atomically.
type OutputSink interface {
	Emit(ctx context.Context, out RenderedOutput) error
}

// Renderer turns a tweet into output lines without side effects.
type Renderer interface {
	Render(t *Tweet) []Line
}
