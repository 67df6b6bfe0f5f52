package redditstream

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/jamesprial/go-reddit-stream/internal"
	"github.com/jamesprial/go-reddit-stream/pkg/types"
)

const (
	// DefaultBaseURL is the default Reddit API base URL.
	DefaultBaseURL = "https://oauth.reddit.com/"
	// DefaultAuthURL is the default Reddit OAuth base URL.
	DefaultAuthURL = "https://www.reddit.com/"
	// DefaultTimeout is the default HTTP client timeout.
	DefaultTimeout = 30 * time.Second
)

// Config holds optional settings for a Session. The zero value is usable;
// every field has a default.
type Config struct {
	// BaseURL for the Reddit API. Defaults to DefaultBaseURL.
	BaseURL string

	// AuthURL for Reddit OAuth. Defaults to DefaultAuthURL.
	AuthURL string

	// HTTPClient to use for requests. Defaults to a client with
	// DefaultTimeout. Customize to set timeouts or proxies.
	HTTPClient *http.Client

	// Logger for structured diagnostics. Defaults to a logger that
	// discards everything.
	Logger *slog.Logger

	// RequestsPerMinute caps steady-state request throughput.
	// Defaults to 60 if zero.
	RequestsPerMinute float64

	// RateLimitBurst allows short spikes above the steady-state rate.
	// Defaults to 10 if zero.
	RateLimitBurst int
}

// Session is an authenticated handle bound to one Reddit account. It is
// created once by Authenticate, is not mutated afterwards, and is only used
// to derive streams and their cursors.
type Session struct {
	client   *internal.Client
	parser   *internal.Parser
	logger   *slog.Logger
	identity string
}

// Authenticate builds a Session from credentials and verifies it against
// Reddit before returning.
//
// All five credential fields are validated first; a missing field returns a
// *ConfigError without any network activity. Construction alone does not
// prove the credentials work, so the session is verified with a "who am I"
// call; any token, permission, malformed-request, or server error during
// verification returns an *AuthError wrapping the underlying cause.
//
// Authenticate never retries. The caller decides whether an authentication
// failure aborts the process.
func Authenticate(ctx context.Context, creds *Credentials, cfg *Config) (*Session, error) {
	if creds == nil {
		return nil, &ConfigError{Message: "credentials cannot be nil"}
	}
	if err := creds.validate(); err != nil {
		return nil, err
	}

	if cfg == nil {
		cfg = &Config{}
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	authURL := cfg.AuthURL
	if authURL == "" {
		authURL = DefaultAuthURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	auth, err := internal.NewAuthenticator(
		httpClient,
		creds.Username,
		creds.Password,
		creds.ClientID,
		creds.ClientSecret,
		creds.UserAgent,
		authURL,
		"",
		logger,
	)
	if err != nil {
		return nil, &ConfigError{Field: "AuthURL", Message: err.Error()}
	}

	client, err := internal.NewClient(httpClient, auth, baseURL, creds.UserAgent, &internal.RateLimitConfig{
		RequestsPerMinute: cfg.RequestsPerMinute,
		Burst:             cfg.RateLimitBurst,
	})
	if err != nil {
		return nil, &ConfigError{Field: "BaseURL", Message: err.Error()}
	}

	session := &Session{
		client: client,
		parser: internal.NewParser(),
		logger: logger,
	}

	logger.Info("authenticating with Reddit", "username", creds.Username)

	me, err := session.Me(ctx)
	if err != nil {
		return nil, &AuthError{Message: "failed to verify Reddit authentication", Err: err}
	}

	session.identity = me.Username
	logger.Info("authentication successful", "logged_in_as", me.Username)

	return session, nil
}

// Identity returns the username the session authenticated as.
func (s *Session) Identity() string {
	return s.identity
}

// Me returns the account the session is authenticated as. Used by
// Authenticate to verify credentials; also useful for diagnostics.
func (s *Session) Me(ctx context.Context) (*types.AccountData, error) {
	req, err := s.client.NewRequest(ctx, http.MethodGet, "api/v1/me", nil)
	if err != nil {
		return nil, err
	}

	var thing types.Thing
	if err := s.client.Do(req, &thing); err != nil {
		return nil, err
	}

	return s.parser.ParseAccount(&thing)
}

// fetchNewPosts returns the current new-post listing for the combined
// subreddit token, newest first.
func (s *Session) fetchNewPosts(ctx context.Context, combined string, limit int) ([]*types.Post, error) {
	thing, err := s.fetchListing(ctx, "r/"+combined+"/new", limit)
	if err != nil {
		return nil, err
	}
	return s.parser.ExtractPosts(thing)
}

// fetchNewComments returns the current subreddit comment listing for the
// combined subreddit token, newest first.
func (s *Session) fetchNewComments(ctx context.Context, combined string, limit int) ([]*types.Comment, error) {
	thing, err := s.fetchListing(ctx, "r/"+combined+"/comments", limit)
	if err != nil {
		return nil, err
	}
	return s.parser.ExtractComments(thing)
}

func (s *Session) fetchListing(ctx context.Context, path string, limit int) (*types.Thing, error) {
	req, err := s.client.NewRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	if limit > 0 {
		q := req.URL.Query()
		q.Set("limit", fmt.Sprintf("%d", limit))
		req.URL.RawQuery = q.Encode()
	}

	var thing types.Thing
	if err := s.client.Do(req, &thing); err != nil {
		return nil, err
	}
	return &thing, nil
}

// openCursorPair creates and primes a fresh cursor pair scoped to the
// combined subreddit token. Priming marks everything currently listed as
// seen, so only genuinely new activity is surfaced.
func (s *Session) openCursorPair(ctx context.Context, combined string, limit int) (*cursorPair, error) {
	posts := newCursor(func(ctx context.Context) ([]*Item, error) {
		fetched, err := s.fetchNewPosts(ctx, combined, limit)
		if err != nil {
			return nil, err
		}
		items := make([]*Item, len(fetched))
		for i, p := range fetched {
			items[i] = newPostItem(p)
		}
		return items, nil
	})

	comments := newCursor(func(ctx context.Context) ([]*Item, error) {
		fetched, err := s.fetchNewComments(ctx, combined, limit)
		if err != nil {
			return nil, err
		}
		items := make([]*Item, len(fetched))
		for i, c := range fetched {
			items[i] = newCommentItem(c)
		}
		return items, nil
	})

	if err := posts.prime(ctx); err != nil {
		return nil, err
	}
	if err := comments.prime(ctx); err != nil {
		return nil, err
	}

	return &cursorPair{posts: posts, comments: comments}, nil
}
