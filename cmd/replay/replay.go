package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/pscheid92/tweetrelay/internal/adapter/console"
	"github.com/pscheid92/tweetrelay/internal/adapter/twitter"
	"github.com/pscheid92/tweetrelay/internal/domain"
	"github.com/pscheid92/tweetrelay/internal/platform/version"
	"github.com/pscheid92/tweetrelay/internal/render"
	"github.com/pscheid92/tweetrelay/internal/stream"
	"github.com/spf13/cobra"
)

var errDecodeFailures = errors.New("some frames could not be decoded")

type replayOptions struct {
	timezone string
	maxDepth int
	color    string
	strict   bool
}

type replayStats struct {
	tweets   int
	controls int
	failures int
}

func newRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	opts := replayOptions{}

	cmd := &cobra.Command{
		Use:   "replay [file]",
		Short: "Render recorded stream frames",
		Long: `Replay reads newline-delimited stream frames from a file, or stdin when
no file is given, and prints every tweet the way the live relay would.

Control messages are counted and skipped. Frames that fail to decode are
reported on stderr.`,
		Args:          cobra.MaximumNArgs(1),
		Version:       version.Get().String(),
		SilenceUsage:  true,
		SilenceErrors: false,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			in := stdin
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("failed to open %s: %w", args[0], err)
				}
				defer func() { _ = f.Close() }()
				in = f
			}
			return runReplay(cmd.Context(), in, stdout, stderr, opts)
		},
	}

	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	cmd.Flags().StringVar(&opts.timezone, "timezone", "UTC", "IANA zone used for timestamps")
	cmd.Flags().IntVar(&opts.maxDepth, "max-depth", render.DefaultMaxDepth, "maximum nested statuses to render")
	cmd.Flags().StringVar(&opts.color, "color", string(console.ColorAuto), "color output: auto, always or never")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "exit non-zero when any frame fails to decode")

	return cmd
}

func runReplay(ctx context.Context, in io.Reader, stdout, stderr io.Writer, opts replayOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	loc, err := time.LoadLocation(opts.timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", opts.timezone, err)
	}
	mode := console.ColorMode(opts.color)
	switch mode {
	case console.ColorAuto, console.ColorAlways, console.ColorNever:
	default:
		return fmt.Errorf("invalid color mode %q", opts.color)
	}

	renderer := render.NewRenderer(loc, opts.maxDepth)
	out := console.New(stdout, mode)
	decoder := twitter.Decoder{}
	replayID := uuid.New()

	var stats replayStats
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), stream.DefaultMaxFrameBytes)

	for lineNo := 1; scanner.Scan(); lineNo++ {
		frame := bytes.TrimSpace(scanner.Bytes())
		if len(frame) == 0 {
			continue
		}

		event, err := decoder.Decode(frame)
		if err != nil {
			stats.failures++
			_, _ = fmt.Fprintf(stderr, "line %d: %v\n", lineNo, err)
			continue
		}

		switch ev := event.(type) {
		case *domain.Tweet:
			stats.tweets++
			if err := out.Emit(ctx, domain.RenderedOutput{
				SessionID: replayID,
				TweetID:   ev.ID,
				Lines:     renderer.Render(ev),
			}); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
		case domain.Control:
			stats.controls++
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read frames: %w", err)
	}

	_, _ = fmt.Fprintf(stderr, "%d tweets, %d control messages, %d decode errors\n", stats.tweets, stats.controls, stats.failures)

	if opts.strict && stats.failures > 0 {
		return errDecodeFailures
	}
	return nil
}
