package redditstream

import (
	"context"
	"time"
)

// Default tuning for the resilience loop. Operator-tunable via StreamOptions.
const (
	// DefaultInitialBackoff is the delay after the first transient failure.
	DefaultInitialBackoff = 5 * time.Second
	// DefaultMaxBackoff caps the reconnect delay.
	DefaultMaxBackoff = 180 * time.Second
	// DefaultIdleWait is how long the stream pauses after an idle drain
	// round before polling again.
	DefaultIdleWait = 500 * time.Millisecond
	// DefaultUnexpectedDelay is the fixed reconnect delay for errors that
	// match no known failure class.
	DefaultUnexpectedDelay = 15 * time.Second
	// DefaultFetchLimit is the number of items requested per listing fetch.
	DefaultFetchLimit = 100
)

// StreamOptions tunes the resilience loop. Zero values use the defaults.
type StreamOptions struct {
	// InitialBackoff is the reconnect delay after the first transient
	// failure, and the value the delay resets to on every successful
	// reconnect.
	InitialBackoff time.Duration

	// MaxBackoff caps the reconnect delay.
	MaxBackoff time.Duration

	// IdleWait is the pause after a drain round that produced nothing,
	// keeping the poll loop from spinning.
	IdleWait time.Duration

	// UnexpectedDelay is the fixed reconnect delay applied to unclassified
	// errors. It deliberately bypasses the exponential backoff so unknown
	// failures do not compound into the capped transient curve.
	UnexpectedDelay time.Duration

	// FetchLimit is the number of items requested per listing fetch,
	// capped at Reddit's maximum of 100.
	FetchLimit int
}

func (o *StreamOptions) withDefaults() StreamOptions {
	opts := StreamOptions{}
	if o != nil {
		opts = *o
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = DefaultInitialBackoff
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = DefaultMaxBackoff
	}
	if opts.IdleWait <= 0 {
		opts.IdleWait = DefaultIdleWait
	}
	if opts.UnexpectedDelay <= 0 {
		opts.UnexpectedDelay = DefaultUnexpectedDelay
	}
	if opts.FetchLimit <= 0 || opts.FetchLimit > 100 {
		opts.FetchLimit = DefaultFetchLimit
	}
	return opts
}

// Stream is a lazy, infinite, non-restartable sequence of new posts and
// comments. Calling Next is the only thing that drives the stream forward:
// there is no background goroutine, so once the consumer stops pulling, no
// network activity continues and nothing needs to be shut down.
//
// A Stream is owned by a single goroutine; it must not be shared.
type Stream struct {
	session  *Session
	combined string
	opts     StreamOptions
	backoff  *backoff

	pair      *cursorPair
	buffer    []*Item
	bufferIdx int
	err       error
}

// Stream creates a stream of new activity across the given subreddits.
// Names are trimmed and combined into a single multi-subreddit subscription,
// so one connection covers all of them. Pass nil opts for the defaults.
func (s *Session) Stream(subreddits []string, opts *StreamOptions) *Stream {
	normalized := opts.withDefaults()
	return &Stream{
		session:  s,
		combined: combineSubreddits(subreddits),
		opts:     normalized,
		backoff:  newBackoff(normalized.InitialBackoff, normalized.MaxBackoff),
	}
}

// Next returns the next new item, blocking through idle polling and backoff
// sleeps until one is available. Both kinds of sleep are cancellable through
// ctx. Transient failures are absorbed and retried internally; Next returns
// an error only for terminal conditions, after which every subsequent call
// returns the same error:
//
//   - *AccessError: a subreddit is forbidden or does not exist
//   - *AuthError: the token or credentials were rejected mid-stream
//   - ctx.Err(): the consumer cancelled
//
// Within a drain round posts precede comments; across rounds no total order
// relative to wall-clock arrival is guaranteed.
func (st *Stream) Next(ctx context.Context) (*Item, error) {
	if st.err != nil {
		return nil, st.err
	}

	for {
		if st.bufferIdx < len(st.buffer) {
			item := st.buffer[st.bufferIdx]
			st.bufferIdx++
			return item, nil
		}

		// Cancellation is checked between rounds and between sleeps,
		// never pre-empting a call in flight.
		if ctxErr := ctx.Err(); ctxErr != nil {
			st.session.logger.Info("stream cancelled, shutting down")
			return nil, st.terminate(ctxErr)
		}

		if st.pair == nil {
			pair, err := st.session.openCursorPair(ctx, st.combined, st.opts.FetchLimit)
			if err != nil {
				if terminal := st.handleFailure(ctx, err); terminal != nil {
					return nil, terminal
				}
				continue
			}
			st.pair = pair
			st.backoff.reset()
			st.session.logger.Info("starting stream", "subreddits", st.combined)
			continue
		}

		items, err := st.pair.drain(ctx)
		if err != nil {
			// Cursors are discarded as a pair; a fresh pair is opened
			// after the failure is handled. Items collected before the
			// failure are already marked seen and must still be
			// delivered, so they are buffered first.
			st.pair = nil
			if len(items) > 0 {
				st.buffer = items
				st.bufferIdx = 0
			}
			if terminal := st.handleFailure(ctx, err); terminal != nil {
				return nil, terminal
			}
			continue
		}

		if len(items) == 0 {
			if err := sleepContext(ctx, st.opts.IdleWait); err != nil {
				st.session.logger.Info("stream cancelled, shutting down")
				return nil, st.terminate(err)
			}
			continue
		}

		st.buffer = items
		st.bufferIdx = 0
	}
}

// handleFailure classifies an error raised while connecting or streaming and
// applies the retry policy. It returns nil when the stream should reconnect,
// or the terminal error to surface to the consumer.
func (st *Stream) handleFailure(ctx context.Context, err error) error {
	logger := st.session.logger

	// A cancelled context shows up as whatever call it interrupted;
	// cancellation wins over classification and is never retried.
	if ctxErr := ctx.Err(); ctxErr != nil {
		logger.Info("stream cancelled, shutting down")
		return st.terminate(ctxErr)
	}

	switch classifyFailure(err) {
	case failureAccess:
		logger.Error("access issue for subreddits, stopping stream",
			"subreddits", st.combined, "error", err)
		return st.terminate(&AccessError{
			Subreddits: st.combined,
			StatusCode: statusCodeOf(err),
			Err:        err,
		})

	case failureAuth:
		logger.Error("authentication error while streaming, stopping stream", "error", err)
		return st.terminate(&AuthError{Message: "rejected while streaming", Err: err})

	case failureTransient:
		delay := st.backoff.next()
		logger.Warn("transient error while streaming", "error", err)
		logger.Info("reconnecting after backoff", "delay", delay)
		if sleepErr := sleepContext(ctx, delay); sleepErr != nil {
			logger.Info("stream cancelled, shutting down")
			return st.terminate(sleepErr)
		}
		return nil

	default:
		logger.Error("unexpected error while streaming", "error", err)
		logger.Info("reconnecting after fixed delay", "delay", st.opts.UnexpectedDelay)
		if sleepErr := sleepContext(ctx, st.opts.UnexpectedDelay); sleepErr != nil {
			logger.Info("stream cancelled, shutting down")
			return st.terminate(sleepErr)
		}
		return nil
	}
}

// terminate records the terminal error and releases the cursors. Every
// subsequent Next call returns the same error.
func (st *Stream) terminate(err error) error {
	st.err = err
	st.pair = nil
	st.buffer = nil
	st.bufferIdx = 0
	return err
}

// sleepContext sleeps for d or until ctx is cancelled, whichever comes first.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
