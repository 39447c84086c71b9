package twitter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"regexp"
	"time"

	"github.com/pscheid92/tweetrelay/internal/domain"
)

const maxControlDetail = 200

// controlKeys maps the top-level key of a control message to its kind.
var controlKeys = []struct {
	key  string
	kind domain.ControlKind
}{
	{"delete", domain.ControlDelete},
	{"limit", domain.ControlLimit},
	{"warning", domain.ControlWarning},
	{"disconnect", domain.ControlDisconnect},
	{"scrub_geo", domain.ControlScrubGeo},
	{"status_withheld", domain.ControlStatusWithheld},
	{"user_withheld", domain.ControlUserWithheld},
	{"friends", domain.ControlFriends},
	{"friends_str", domain.ControlFriends},
	{"event", domain.ControlEvent},
}

var sourceAnchor = regexp.MustCompile(`(?s)<a\s+href="([^"]*)"[^>]*>(.*?)</a>`)

// Decoder turns one stream frame into a domain event.
type Decoder struct{}

// Decode classifies frame. Blank frames are keep-alives; unknown shapes are
// control messages. Only malformed frames return a *domain.DecodeError.
func (Decoder) Decode(frame []byte) (domain.StreamEvent, error) {
	frame = bytes.TrimSpace(frame)
	if len(frame) == 0 {
		return domain.Control{Kind: domain.ControlKeepAlive}, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(frame, &fields); err != nil {
		return nil, decodeError(frame, err)
	}

	for _, ck := range controlKeys {
		if raw, ok := fields[ck.key]; ok {
			return domain.Control{Kind: ck.kind, Detail: truncate(string(raw), maxControlDetail)}, nil
		}
	}

	if !isTweet(fields) {
		return domain.Control{Kind: domain.ControlUnknown, Detail: truncate(string(frame), maxControlDetail)}, nil
	}

	var wt wireTweet
	if err := json.Unmarshal(frame, &wt); err != nil {
		return nil, decodeError(frame, err)
	}

	tweet, err := toDomain(&wt)
	if err != nil {
		return nil, decodeError(frame, err)
	}
	return tweet, nil
}

func isTweet(fields map[string]json.RawMessage) bool {
	_, hasID := fields["id_str"]
	_, hasUser := fields["user"]
	_, hasText := fields["text"]
	_, hasFullText := fields["full_text"]
	return hasID && hasUser && (hasText || hasFullText)
}

func toDomain(wt *wireTweet) (*domain.Tweet, error) {
	createdAt, err := time.Parse(time.RubyDate, wt.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("tweet %s: invalid created_at %q: %w", wt.IDStr, wt.CreatedAt, err)
	}

	text := wt.Text
	if wt.FullText != "" {
		text = wt.FullText
	}
	entities := wt.Entities
	extended := wt.ExtendedEntities
	if wt.ExtendedTweet != nil {
		text = wt.ExtendedTweet.FullText
		entities = wt.ExtendedTweet.Entities
		if wt.ExtendedTweet.ExtendedEntities != nil {
			extended = wt.ExtendedTweet.ExtendedEntities
		}
	}

	t := &domain.Tweet{
		ID:        wt.IDStr,
		Text:      html.UnescapeString(text),
		CreatedAt: createdAt,
		ReplyTo:   wt.InReplyToScreenName,
		Source:    parseSource(wt.Source),
	}
	if wt.User != nil {
		t.AuthorName = wt.User.Name
		t.Handle = wt.User.ScreenName
	}
	if wt.Place != nil {
		t.Place = wt.Place.FullName
	}

	for _, h := range entities.Hashtags {
		t.Hashtags = append(t.Hashtags, h.Text)
	}
	for _, s := range entities.Symbols {
		t.Symbols = append(t.Symbols, s.Text)
	}
	for _, u := range entities.URLs {
		if u.ExpandedURL != nil && *u.ExpandedURL != "" {
			t.URLs = append(t.URLs, *u.ExpandedURL)
		}
	}
	for _, m := range entities.UserMentions {
		t.Mentions = append(t.Mentions, m.ScreenName)
	}
	if extended != nil {
		for _, m := range extended.Media {
			t.Media = append(t.Media, m.Type)
		}
	}

	switch {
	case wt.RetweetedStatus != nil:
		original, err := toDomain(wt.RetweetedStatus)
		if err != nil {
			return nil, fmt.Errorf("retweeted status: %w", err)
		}
		t.Content = domain.Repost{Original: original}
	case wt.QuotedStatus != nil:
		quoted, err := toDomain(wt.QuotedStatus)
		if err != nil {
			return nil, fmt.Errorf("quoted status: %w", err)
		}
		t.Content = domain.Quote{Quoted: quoted}
	}

	return t, nil
}

// parseSource extracts the client name and link from the provider's HTML anchor.
func parseSource(raw string) *domain.Source {
	if raw == "" {
		return nil
	}
	if m := sourceAnchor.FindStringSubmatch(raw); m != nil {
		return &domain.Source{Name: html.UnescapeString(m[2]), URL: html.UnescapeString(m[1])}
	}
	return &domain.Source{Name: html.UnescapeString(raw)}
}

func decodeError(frame []byte, err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		err = fmt.Errorf("malformed JSON at offset %d: %w", syntaxErr.Offset, err)
	}
	return &domain.DecodeError{Frame: truncate(string(frame), maxControlDetail), Err: err}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
