// Package console writes rendered tweets to a terminal or any io.Writer.
package console

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
	"github.com/pscheid92/tweetrelay/internal/domain"
)

type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"

	separator = "────────────────────────────────────────"
)

var (
	colorAccent = lipgloss.Color("39")
	colorMuted  = lipgloss.Color("245")
	colorWarn   = lipgloss.Color("214")
)

// Sink prints one block per rendered tweet followed by a separator line.
type Sink struct {
	mu     sync.Mutex
	w      io.Writer
	styles map[domain.LineKind]lipgloss.Style
}

var _ domain.OutputSink = (*Sink)(nil)

func New(w io.Writer, mode ColorMode) *Sink {
	s := &Sink{w: w}
	if useColor(w, mode) {
		r := lipgloss.NewRenderer(w)
		r.SetColorProfile(termenv.ANSI256)
		s.styles = map[domain.LineKind]lipgloss.Style{
			domain.LineAuthor:    r.NewStyle().Bold(true).Foreground(colorAccent),
			domain.LineReply:     r.NewStyle().Foreground(colorMuted),
			domain.LineMarker:    r.NewStyle().Bold(true).Foreground(colorWarn),
			domain.LineSource:    r.NewStyle().Foreground(colorMuted),
			domain.LinePlace:     r.NewStyle().Foreground(colorMuted),
			domain.LineHeader:    r.NewStyle().Underline(true),
			domain.LineTruncated: r.NewStyle().Italic(true).Foreground(colorWarn),
		}
	}
	return s
}

func useColor(w io.Writer, mode ColorMode) bool {
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Emit writes out in a single Write so concurrent sessions never interleave lines.
func (s *Sink) Emit(_ context.Context, out domain.RenderedOutput) error {
	var b strings.Builder
	for _, line := range out.Lines {
		b.WriteString(s.style(line))
		b.WriteByte('\n')
	}
	b.WriteString(s.style(domain.Line{Kind: domain.LineReply, Text: separator}))
	b.WriteByte('\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := io.WriteString(s.w, b.String()); err != nil {
		return fmt.Errorf("failed to write to console: %w", err)
	}
	return nil
}

func (s *Sink) style(line domain.Line) string {
	st, ok := s.styles[line.Kind]
	if !ok {
		return line.Text
	}
	return st.Render(line.Text)
}
