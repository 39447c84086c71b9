package twitter

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pscheid92/tweetrelay/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCredentials(t *testing.T) Credentials {
	t.Helper()
	creds, err := NewCredentials("ck", "cs", "at", "as")
	require.NoError(t, err)
	return creds
}

func TestNewCredentials_MissingValue(t *testing.T) {
	_, err := NewCredentials("ck", "", "at", "as")

	var configErr *domain.ConfigError
	require.ErrorAs(t, err, &configErr)
	assert.ErrorIs(t, err, domain.ErrMissingCredentials)
	assert.Contains(t, err.Error(), "consumer secret")
}

func TestCredentials_NeverPrintsSecrets(t *testing.T) {
	creds := testCredentials(t)
	assert.NotContains(t, creds.String(), "cs")
	assert.Equal(t, "redacted", creds.LogValue().String())
}

func TestConnect_SignsAndFilters(t *testing.T) {
	var gotAuth, gotFollow, gotMethod, gotAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotAgent = r.Header.Get("User-Agent")
		gotAuth = r.Header.Get("Authorization")
		assert.NoError(t, r.ParseForm())
		gotFollow = r.PostForm.Get("follow")
		_, _ = io.WriteString(w, "{\"limit\":{\"track\":1}}\r\n")
	}))
	t.Cleanup(srv.Close)

	client := NewStreamClient(srv.URL, testCredentials(t), time.Second)
	body, err := client.Connect(context.Background(), domain.FollowList{123, 456})
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.True(t, strings.HasPrefix(gotAuth, "OAuth "), "expected OAuth1 header, got %q", gotAuth)
	assert.Contains(t, gotAuth, `oauth_consumer_key="ck"`)
	assert.Equal(t, "123,456", gotFollow)
	assert.True(t, strings.HasPrefix(gotAgent, "tweetrelay/"), "unexpected user agent %q", gotAgent)
	assert.Equal(t, "{\"limit\":{\"track\":1}}\r\n", string(data))
}

func TestConnect_StatusClassification(t *testing.T) {
	tests := []struct {
		status      int
		connectErr  bool
		rateLimited bool
	}{
		{http.StatusUnauthorized, true, false},
		{http.StatusForbidden, true, false},
		{http.StatusNotAcceptable, true, false},
		{420, false, true},
		{http.StatusTooManyRequests, false, true},
		{http.StatusServiceUnavailable, false, false},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			}))
			t.Cleanup(srv.Close)

			_, err := NewStreamClient(srv.URL, testCredentials(t), time.Second).Connect(context.Background(), domain.FollowList{1})
			require.Error(t, err)

			var connectErr *domain.ConnectError
			var streamErr *domain.StreamError
			if tt.connectErr {
				require.ErrorAs(t, err, &connectErr)
				assert.Equal(t, tt.status, connectErr.StatusCode)
				assert.Contains(t, err.Error(), "nope")
				return
			}
			require.ErrorAs(t, err, &streamErr)
			assert.Equal(t, tt.rateLimited, streamErr.RateLimited)
		})
	}
}

func TestConnect_TimeoutBoundsHandshakeOnly(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	_, err := NewStreamClient(srv.URL, testCredentials(t), 50*time.Millisecond).Connect(context.Background(), domain.FollowList{1})

	var streamErr *domain.StreamError
	require.ErrorAs(t, err, &streamErr)
	assert.Contains(t, err.Error(), "timed out")
}

func TestConnect_StreamOutlivesConnectTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		time.Sleep(150 * time.Millisecond)
		_, _ = io.WriteString(w, "late\r\n")
	}))
	t.Cleanup(srv.Close)

	body, err := NewStreamClient(srv.URL, testCredentials(t), 50*time.Millisecond).Connect(context.Background(), domain.FollowList{1})
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "late\r\n", string(data))
}

func TestConnect_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	t.Cleanup(srv.Close)

	_, err := NewStreamClient(srv.URL, testCredentials(t), time.Second).Connect(ctx, domain.FollowList{1})
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
}

func TestConnect_EmptyFollowList(t *testing.T) {
	_, err := NewStreamClient("http://127.0.0.1:0", testCredentials(t), time.Second).Connect(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrEmptyFollowList)
}

func TestCredentials_Validate(t *testing.T) {
	assert.NoError(t, testCredentials(t).Validate())

	err := Credentials{}.Validate()
	var configErr *domain.ConfigError
	require.ErrorAs(t, err, &configErr)
	assert.ErrorIs(t, err, domain.ErrMissingCredentials)
}
