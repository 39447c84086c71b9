package console

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/pscheid92/tweetrelay/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sample = domain.RenderedOutput{
	TweetID: "1",
	Lines: []domain.Line{
		{Kind: domain.LineAuthor, Text: "alice (@alice) posted at 2020-05-17 12:30:00 UTC"},
		{Kind: domain.LineBody, Text: "hello world"},
		{Kind: domain.LineHeader, Text: "➜ Hashtags contained in the tweet:"},
		{Kind: domain.LineItem, Text: "  rust"},
	},
}

func TestSink_PlainOutput(t *testing.T) {
	var buf bytes.Buffer
	s := New(&buf, ColorNever)

	require.NoError(t, s.Emit(context.Background(), sample))

	assert.Equal(t,
		"alice (@alice) posted at 2020-05-17 12:30:00 UTC\n"+
			"hello world\n"+
			"➜ Hashtags contained in the tweet:\n"+
			"  rust\n"+
			separator+"\n",
		buf.String())
}

func TestSink_AutoIsPlainForNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(&buf, ColorAuto).Emit(context.Background(), sample))

	assert.NotContains(t, buf.String(), "\x1b[")
}

func TestSink_ColorKeepsText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(&buf, ColorAlways).Emit(context.Background(), sample))

	out := buf.String()
	assert.Contains(t, out, "\x1b[")
	assert.Contains(t, out, "alice (@alice) posted at 2020-05-17 12:30:00 UTC")
	assert.Contains(t, out, "hello world\n")
	assert.Contains(t, out, "  rust\n")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestSink_WriteError(t *testing.T) {
	err := New(failingWriter{}, ColorNever).Emit(context.Background(), sample)
	assert.ErrorContains(t, err, "broken pipe")
}
