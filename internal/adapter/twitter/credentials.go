package twitter

import (
	"fmt"
	"log/slog"

	"github.com/pscheid92/tweetrelay/internal/domain"
)

// Credentials is the consumer/access key pair used to sign stream requests.
// It is opaque to the rest of the process and never prints its secrets.
type Credentials struct {
	consumerKey    string
	consumerSecret string
	accessToken    string
	accessSecret   string
}

func NewCredentials(consumerKey, consumerSecret, accessToken, accessSecret string) (Credentials, error) {
	missing := map[string]string{
		"consumer key":    consumerKey,
		"consumer secret": consumerSecret,
		"access token":    accessToken,
		"access secret":   accessSecret,
	}
	for name, value := range missing {
		if value == "" {
			return Credentials{}, &domain.ConfigError{Err: fmt.Errorf("%w: %s", domain.ErrMissingCredentials, name)}
		}
	}

	return Credentials{
		consumerKey:    consumerKey,
		consumerSecret: consumerSecret,
		accessToken:    accessToken,
		accessSecret:   accessSecret,
	}, nil
}

func (c Credentials) String() string { return "twitter.Credentials{redacted}" }

func (c Credentials) LogValue() slog.Value { return slog.StringValue("redacted") }

// Validate reports a ConfigError when any part is missing, e.g. on a zero value.
func (c Credentials) Validate() error {
	_, err := NewCredentials(c.consumerKey, c.consumerSecret, c.accessToken, c.accessSecret)
	return err
}
