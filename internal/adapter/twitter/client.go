package twitter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dghubble/oauth1"
	"github.com/pscheid92/tweetrelay/internal/domain"
	"github.com/pscheid92/tweetrelay/internal/platform/version"
)

const (
	DefaultEndpoint       = "https://stream.twitter.com/1.1/statuses/filter.json"
	DefaultConnectTimeout = 30 * time.Second

	maxErrorBody = 512
)

// StreamClient opens filtered streaming requests signed with OAuth1.
type StreamClient struct {
	endpoint       string
	httpClient     *http.Client
	connectTimeout time.Duration
}

// NewStreamClient creates a client for endpoint. connectTimeout bounds the
// handshake only; an established stream has no read deadline.
func NewStreamClient(endpoint string, creds Credentials, connectTimeout time.Duration) *StreamClient {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if connectTimeout <= 0 {
		connectTimeout = DefaultConnectTimeout
	}

	config := oauth1.NewConfig(creds.consumerKey, creds.consumerSecret)
	token := oauth1.NewToken(creds.accessToken, creds.accessSecret)

	return &StreamClient{
		endpoint:       endpoint,
		httpClient:     config.Client(oauth1.NoContext, token),
		connectTimeout: connectTimeout,
	}
}

// Connect starts a stream filtered to follows. The returned body stays open
// until it is closed or ctx is cancelled.
func (c *StreamClient) Connect(ctx context.Context, follows domain.FollowList) (io.ReadCloser, error) {
	if len(follows) == 0 {
		return nil, &domain.ConfigError{Err: domain.ErrEmptyFollowList}
	}

	reqCtx, cancel := context.WithCancel(ctx)
	timer := time.AfterFunc(c.connectTimeout, cancel)

	form := url.Values{}
	form.Set("follow", follows.Param())
	form.Set("stall_warnings", "true")

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		timer.Stop()
		cancel()
		return nil, &domain.ConnectError{Err: fmt.Errorf("failed to build stream request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.httpClient.Do(req)
	if !timer.Stop() {
		if resp != nil {
			_ = resp.Body.Close()
		}
		cancel()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &domain.StreamError{Err: fmt.Errorf("connect timed out after %v", c.connectTimeout)}
	}
	if err != nil {
		cancel()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &domain.StreamError{Err: fmt.Errorf("failed to connect: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		_ = resp.Body.Close()
		cancel()
		return nil, classifyStatus(resp.StatusCode, strings.TrimSpace(string(body)))
	}

	slog.DebugContext(ctx, "Stream connected", "endpoint", c.endpoint, "follows", len(follows))
	return &streamBody{ReadCloser: resp.Body, cancel: cancel}, nil
}

// classifyStatus maps a rejected handshake to a fatal ConnectError or a
// retryable StreamError.
func classifyStatus(status int, body string) error {
	err := fmt.Errorf("provider returned %d %s", status, http.StatusText(status))
	if body != "" {
		err = fmt.Errorf("%w: %s", err, body)
	}

	switch {
	case status == 420 || status == http.StatusTooManyRequests:
		return &domain.StreamError{RateLimited: true, Err: err}
	case status >= 500:
		return &domain.StreamError{Err: err}
	default:
		return &domain.ConnectError{StatusCode: status, Err: err}
	}
}

// streamBody cancels the request context on Close so the transport tears
// the connection down even when a read is in flight.
type streamBody struct {
	io.ReadCloser
	cancel context.CancelFunc
	once   sync.Once
}

func (b *streamBody) Close() error {
	var err error
	b.once.Do(func() {
		b.cancel()
		err = b.ReadCloser.Close()
		if errors.Is(err, context.Canceled) {
			err = nil
		}
	})
	return err
}
