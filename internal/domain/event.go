package domain

import "time"

// StreamEvent is one decoded frame: either a *Tweet or a Control message.
type StreamEvent interface{ isStreamEvent() }

// Tweet is a decoded status. Content carries the nested repost or quote, if any.
type Tweet struct {
	ID         string
	AuthorName string
	Handle     string
	Text       string
	CreatedAt  time.Time
	ReplyTo    string

	Content EventContent

	Hashtags []string
	Symbols  []string
	URLs     []string
	Mentions []string
	Media    []string

	Source *Source
	Place  string
}

func (*Tweet) isStreamEvent() {}

// Source is the client a tweet was posted from.
type Source struct {
	Name string
	URL  string
}

// ContentOf returns t's content, treating nil and empty wrappers as Plain.
func (t *Tweet) ContentOf() EventContent {
	switch c := t.Content.(type) {
	case Repost:
		if c.Original != nil {
			return c
		}
	case Quote:
		if c.Quoted != nil {
			return c
		}
	}
	return Plain{}
}

// Depth is the number of nested tweets below t along the repost/quote chain.
func (t *Tweet) Depth() int {
	depth := 0
	for cur := t; cur != nil; depth++ {
		switch c := cur.ContentOf().(type) {
		case Repost:
			cur = c.Original
		case Quote:
			cur = c.Quoted
		default:
			return depth
		}
	}
	return depth - 1
}

// EventContent models what a tweet carries besides its own metadata.
type EventContent interface{ isEventContent() }

type baseContent struct{}

func (baseContent) isEventContent() {}

// Plain is a tweet with only its own content.
type Plain struct {
	baseContent
}

// Repost substitutes Original for the tweet's own content.
type Repost struct {
	baseContent
	Original *Tweet
}

// Quote renders Quoted alongside the tweet's own content.
type Quote struct {
	baseContent
	Quoted *Tweet
}

// ControlKind names the non-tweet messages a stream carries.
type ControlKind string

const (
	ControlKeepAlive      ControlKind = "keep_alive"
	ControlDelete         ControlKind = "delete"
	ControlLimit          ControlKind = "limit"
	ControlWarning        ControlKind = "warning"
	ControlDisconnect     ControlKind = "disconnect"
	ControlScrubGeo       ControlKind = "scrub_geo"
	ControlStatusWithheld ControlKind = "status_withheld"
	ControlUserWithheld   ControlKind = "user_withheld"
	ControlFriends        ControlKind = "friends"
	ControlEvent          ControlKind = "event"
	ControlUnknown        ControlKind = "unknown"
)

// Control is a stream message that is logged and discarded.
type Control struct {
	Kind   ControlKind
	Detail string
}

func (Control) isStreamEvent() {}
