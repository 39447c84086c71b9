// Package render turns decoded tweets into ordered, human-readable lines.
//
// Rendering is a structural walk over domain.EventContent. A repost substitutes
// the original for the outer tweet's own content; a quote renders the quoted
// tweet in full and then continues with the outer tweet's metadata. Nesting is
// bounded by a maximum depth, past which a truncation line is emitted instead.
package render

import (
	"strings"
	"time"

	"github.com/pscheid92/tweetrelay/internal/domain"
)

const (
	DefaultMaxDepth = 5
	TimeLayout      = "2006-01-02 15:04:05 MST"

	retweetMarker  = "Retweet ➜"
	quoteMarker    = "➜ Quoting the following status:"
	truncatedText  = "➜ [nested status omitted: depth limit reached]"
	hashtagsHeader = "➜ Hashtags contained in the tweet:"
	symbolsHeader  = "➜ Symbols contained in the tweet:"
	urlsHeader     = "➜ URLs contained in the tweet:"
	mentionsHeader = "➜ Users mentioned in the tweet:"
	mediaHeader    = "➜ Media attached to the tweet:"
	itemIndent     = "  "
)

// Renderer is safe for concurrent use; it holds no mutable state.
type Renderer struct {
	location *time.Location
	maxDepth int
}

var _ domain.Renderer = (*Renderer)(nil)

// NewRenderer creates a renderer that shows timestamps in loc (UTC when nil)
// and renders at most maxDepth nested statuses (DefaultMaxDepth when < 1).
func NewRenderer(loc *time.Location, maxDepth int) *Renderer {
	if loc == nil {
		loc = time.UTC
	}
	if maxDepth < 1 {
		maxDepth = DefaultMaxDepth
	}
	return &Renderer{location: loc, maxDepth: maxDepth}
}

func (r *Renderer) MaxDepth() int { return r.maxDepth }

// Render returns the lines for t. A nil tweet renders nothing.
func (r *Renderer) Render(t *domain.Tweet) []domain.Line {
	if t == nil {
		return nil
	}
	var b builder
	r.render(&b, t, 0)
	return b.lines
}

func (r *Renderer) render(b *builder, t *domain.Tweet, depth int) {
	if t.AuthorName != "" || t.Handle != "" {
		b.add(domain.LineAuthor, t.AuthorName+" ("+handle(t.Handle)+") posted at "+t.CreatedAt.In(r.location).Format(TimeLayout))
	}

	if t.ReplyTo != "" {
		b.add(domain.LineReply, "➜ in reply to "+handle(t.ReplyTo))
	}

	content := t.ContentOf()
	if repost, ok := content.(domain.Repost); ok {
		b.add(domain.LineMarker, retweetMarker)
		r.nested(b, repost.Original, depth)
		return
	}

	b.add(domain.LineBody, t.Text)

	if t.Source != nil && t.Source.Name != "" {
		if t.Source.URL != "" {
			b.add(domain.LineSource, "➜ via "+t.Source.Name+" ("+t.Source.URL+")")
		} else {
			b.add(domain.LineSource, "➜ via "+t.Source.Name)
		}
	}

	if t.Place != "" {
		b.add(domain.LinePlace, "➜ from: "+t.Place)
	}

	if quote, ok := content.(domain.Quote); ok {
		b.add(domain.LineMarker, quoteMarker)
		r.nested(b, quote.Quoted, depth)
	}

	b.section(hashtagsHeader, t.Hashtags, nil)
	b.section(symbolsHeader, t.Symbols, nil)
	b.section(urlsHeader, t.URLs, nil)
	b.section(mentionsHeader, t.Mentions, handle)
	b.section(mediaHeader, t.Media, func(kind string) string { return "A " + kind })
}

func (r *Renderer) nested(b *builder, t *domain.Tweet, depth int) {
	if depth+1 > r.maxDepth {
		b.add(domain.LineTruncated, truncatedText)
		return
	}
	r.render(b, t, depth+1)
}

func handle(h string) string {
	return "@" + strings.TrimPrefix(h, "@")
}

type builder struct {
	lines []domain.Line
}

func (b *builder) add(kind domain.LineKind, text string) {
	b.lines = append(b.lines, domain.Line{Kind: kind, Text: text})
}

// section emits header plus one indented line per item; nothing when items is empty.
func (b *builder) section(header string, items []string, format func(string) string) {
	if len(items) == 0 {
		return
	}
	b.add(domain.LineHeader, header)
	for _, item := range items {
		if format != nil {
			item = format(item)
		}
		b.add(domain.LineItem, itemIndent+item)
	}
}
