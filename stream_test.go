package redditstream

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fastOptions keeps retry and idle sleeps short so tests run quickly.
func fastOptions() *StreamOptions {
	return &StreamOptions{
		InitialBackoff:  time.Millisecond,
		MaxBackoff:      10 * time.Millisecond,
		IdleWait:        time.Millisecond,
		UnexpectedDelay: time.Millisecond,
	}
}

func TestStreamYieldsPostsThenComments(t *testing.T) {
	f := newFakeReddit(t)
	// First fetch per cursor primes the seen set; the second is the first
	// drain, newest first on the wire.
	f.script("/r/golang/new",
		fakeResponse{200, emptyListingBody},
		fakeResponse{200, postListing(t, "golang", "t3_p2", "t3_p1")},
	)
	f.script("/r/golang/comments",
		fakeResponse{200, emptyListingBody},
		fakeResponse{200, commentListing(t, "golang", "t1_c1")},
	)

	session := testSession(t, f)
	stream := session.Stream([]string{"golang"}, fastOptions())

	ctx := context.Background()
	want := []struct {
		kind ItemKind
		name string
	}{
		{KindPost, "t3_p1"},
		{KindPost, "t3_p2"},
		{KindComment, "t1_c1"},
	}

	for i, w := range want {
		item, err := stream.Next(ctx)
		if err != nil {
			t.Fatalf("Next #%d failed: %v", i, err)
		}
		if item.Kind != w.kind {
			t.Errorf("item #%d kind = %v, want %v", i, item.Kind, w.kind)
		}
		if got := item.fullname(); got != w.name {
			t.Errorf("item #%d fullname = %q, want %q", i, got, w.name)
		}
	}
}

func TestStreamSkipsPreexistingItems(t *testing.T) {
	f := newFakeReddit(t)
	// t3_p1 already exists when the cursor opens; only t3_p2 is new.
	f.script("/r/golang/new",
		fakeResponse{200, postListing(t, "golang", "t3_p1")},
		fakeResponse{200, postListing(t, "golang", "t3_p2", "t3_p1")},
	)
	f.script("/r/golang/comments",
		fakeResponse{200, emptyListingBody},
		fakeResponse{200, commentListing(t, "golang", "t1_c1")},
	)

	session := testSession(t, f)
	stream := session.Stream([]string{"golang"}, fastOptions())

	item, err := stream.Next(context.Background())
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if got := item.fullname(); got != "t3_p2" {
		t.Errorf("first item = %q, want t3_p2 (pre-existing t3_p1 must be skipped)", got)
	}

	item, err = stream.Next(context.Background())
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if got := item.fullname(); got != "t1_c1" {
		t.Errorf("second item = %q, want t1_c1", got)
	}
}

func TestStreamAccessErrorIsTerminal(t *testing.T) {
	f := newFakeReddit(t)
	f.script("/r/private/new", fakeResponse{403, `{"message":"Forbidden","error":403}`})

	session := testSession(t, f)
	// Large backoff: if the access error were wrongly retried, the test
	// would hang instead of failing fast.
	stream := session.Stream([]string{"private"}, &StreamOptions{
		InitialBackoff: time.Hour,
		MaxBackoff:     time.Hour,
	})

	start := time.Now()
	_, err := stream.Next(context.Background())
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("access error took %v to surface; must not sleep or reconnect", elapsed)
	}

	var accessErr *AccessError
	if !errors.As(err, &accessErr) {
		t.Fatalf("expected *AccessError, got %T: %v", err, err)
	}
	if accessErr.Subreddits != "private" {
		t.Errorf("AccessError.Subreddits = %q, want %q", accessErr.Subreddits, "private")
	}
	if accessErr.StatusCode != 403 {
		t.Errorf("AccessError.StatusCode = %d, want 403", accessErr.StatusCode)
	}

	requests := f.count("/r/private/new")

	// Terminal: subsequent calls return the same error without touching
	// the network.
	_, err2 := stream.Next(context.Background())
	if !errors.Is(err2, err) && err2 != err {
		t.Errorf("second Next returned %v, want the recorded terminal error %v", err2, err)
	}
	if got := f.count("/r/private/new"); got != requests {
		t.Errorf("terminal stream made %d further requests", got-requests)
	}
}

func TestStreamAuthErrorIsTerminal(t *testing.T) {
	f := newFakeReddit(t)
	f.script("/r/golang/new", fakeResponse{401, `{"message":"Unauthorized","error":401}`})

	session := testSession(t, f)
	stream := session.Stream([]string{"golang"}, fastOptions())

	_, err := stream.Next(context.Background())
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected *AuthError, got %T: %v", err, err)
	}
}

func TestStreamRecoversFromTransientError(t *testing.T) {
	f := newFakeReddit(t)
	f.script("/r/golang/new",
		fakeResponse{500, "internal error"},
		fakeResponse{200, emptyListingBody},
		fakeResponse{200, postListing(t, "golang", "t3_p1")},
	)

	session := testSession(t, f)
	opts := fastOptions()
	stream := session.Stream([]string{"golang"}, opts)

	item, err := stream.Next(context.Background())
	if err != nil {
		t.Fatalf("Next failed after transient error: %v", err)
	}
	if got := item.fullname(); got != "t3_p1" {
		t.Errorf("item = %q, want t3_p1", got)
	}

	if got := f.count("/r/golang/new"); got < 3 {
		t.Errorf("expected at least 3 post listing requests (fail, prime, fetch), got %d", got)
	}

	// The successful reconnect must have reset the backoff state.
	if stream.backoff.current != opts.InitialBackoff {
		t.Errorf("backoff.current = %v after successful reconnect, want %v",
			stream.backoff.current, opts.InitialBackoff)
	}
}

func TestStreamDeliversPostsWhenCommentFetchFails(t *testing.T) {
	f := newFakeReddit(t)
	// The post fetch of the round succeeds; the comment fetch fails. The
	// post is already marked seen by its cursor, so dropping it with the
	// round would lose it forever.
	f.script("/r/golang/new",
		fakeResponse{200, emptyListingBody},
		fakeResponse{200, postListing(t, "golang", "t3_p1")},
	)
	f.script("/r/golang/comments",
		fakeResponse{200, emptyListingBody},
		fakeResponse{500, "internal error"},
	)

	session := testSession(t, f)
	stream := session.Stream([]string{"golang"}, fastOptions())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	item, err := stream.Next(ctx)
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if got := item.fullname(); got != "t3_p1" {
		t.Errorf("item = %q, want t3_p1 (posts collected before the comment failure must be delivered)", got)
	}
}

func TestStreamUnexpectedErrorUsesFixedDelay(t *testing.T) {
	f := newFakeReddit(t)
	// A non-listing payload trips the parser, which is an unclassified
	// failure: retried after the fixed delay, backoff state untouched.
	f.script("/r/golang/new",
		fakeResponse{200, `{"kind":"bogus","data":{}}`},
		fakeResponse{200, emptyListingBody},
		fakeResponse{200, postListing(t, "golang", "t3_p1")},
	)

	session := testSession(t, f)
	opts := fastOptions()
	stream := session.Stream([]string{"golang"}, opts)

	item, err := stream.Next(context.Background())
	if err != nil {
		t.Fatalf("Next failed after unexpected error: %v", err)
	}
	if got := item.fullname(); got != "t3_p1" {
		t.Errorf("item = %q, want t3_p1", got)
	}

	if stream.backoff.current != opts.InitialBackoff {
		t.Errorf("unexpected errors must not grow backoff state; current = %v, want %v",
			stream.backoff.current, opts.InitialBackoff)
	}
}

func TestStreamCancelledWhileIdle(t *testing.T) {
	f := newFakeReddit(t)

	session := testSession(t, f)
	stream := session.Stream([]string{"golang"}, &StreamOptions{
		InitialBackoff: time.Millisecond,
		MaxBackoff:     10 * time.Millisecond,
		IdleWait:       time.Hour, // cancellation must interrupt the idle sleep
	})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	start := time.Now()
	_, err := stream.Next(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("cancellation took %v; the idle sleep was not interrupted", elapsed)
	}

	requests := f.totalRequests()

	// Cancellation is terminal and triggers no reconnect attempt.
	_, err = stream.Next(context.Background())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled on subsequent Next, got %v", err)
	}
	if got := f.totalRequests(); got != requests {
		t.Errorf("cancelled stream made %d further requests", got-requests)
	}
}

func TestStreamCombinesSubredditsIntoOneSubscription(t *testing.T) {
	f := newFakeReddit(t)
	f.script("/r/golang+programming/new",
		fakeResponse{200, emptyListingBody},
		fakeResponse{200, postListing(t, "golang", "t3_p1")},
	)

	session := testSession(t, f)
	stream := session.Stream([]string{" golang ", "programming"}, fastOptions())

	item, err := stream.Next(context.Background())
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if got := item.fullname(); got != "t3_p1" {
		t.Errorf("item = %q, want t3_p1", got)
	}
	if f.count("/r/golang+programming/new") == 0 {
		t.Error("expected requests against the combined subreddit path")
	}
	if f.count("/r/golang+programming/comments") == 0 {
		t.Error("expected comment requests against the combined subreddit path")
	}
}
