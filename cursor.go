package redditstream

import (
	"context"
	"strings"
)

// seenSetLimit bounds the per-cursor seen set. When exceeded, the set is
// rebuilt from the most recent listing so infinite streams do not grow memory
// without bound.
const seenSetLimit = 1000

// combineSubreddits joins trimmed subreddit names with "+" into the combined
// multi-subreddit token Reddit accepts, preserving input order.
func combineSubreddits(names []string) string {
	trimmed := make([]string, 0, len(names))
	for _, name := range names {
		trimmed = append(trimmed, strings.TrimSpace(name))
	}
	return strings.Join(trimmed, "+")
}

// fetchFunc returns the current listing of one content kind, newest first.
type fetchFunc func(ctx context.Context) ([]*Item, error)

// cursor is a live pull handle over one content kind. It never waits for new
// data: next either returns an unseen item or reports that nothing is
// available right now. A cursor is created fresh on every (re)connect and
// never reused after an error.
type cursor struct {
	fetch     fetchFunc
	seen      map[string]bool
	buffer    []*Item
	bufferIdx int
}

func newCursor(fetch fetchFunc) *cursor {
	return &cursor{
		fetch: fetch,
		seen:  make(map[string]bool),
	}
}

// prime fetches the current listing and marks everything in it as seen, so
// only activity that happens after the cursor was opened is surfaced.
func (c *cursor) prime(ctx context.Context) error {
	items, err := c.fetch(ctx)
	if err != nil {
		return err
	}
	for _, item := range items {
		c.seen[item.fullname()] = true
	}
	return nil
}

// next returns the next unseen item, or nil when nothing new is available
// right now. At most one listing fetch is made per call; the caller decides
// when to poll again.
func (c *cursor) next(ctx context.Context) (*Item, error) {
	if c.bufferIdx < len(c.buffer) {
		item := c.buffer[c.bufferIdx]
		c.bufferIdx++
		return item, nil
	}

	items, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}

	c.buffer = c.buffer[:0]
	c.bufferIdx = 0

	// Reddit lists newest first; surface oldest first so consumers see
	// activity in the order it happened.
	for i := len(items) - 1; i >= 0; i-- {
		item := items[i]
		id := item.fullname()
		if id == "" || c.seen[id] {
			continue
		}
		c.seen[id] = true
		c.buffer = append(c.buffer, item)
	}

	c.compactSeen(items)

	if len(c.buffer) == 0 {
		return nil, nil
	}

	item := c.buffer[c.bufferIdx]
	c.bufferIdx++
	return item, nil
}

// compactSeen rebuilds the seen set from the current listing once it grows
// past seenSetLimit. Anything old enough to have left the listing cannot come
// back through it, so dropping those entries is safe.
func (c *cursor) compactSeen(listing []*Item) {
	if len(c.seen) <= seenSetLimit {
		return
	}
	c.seen = make(map[string]bool, len(listing))
	for _, item := range listing {
		c.seen[item.fullname()] = true
	}
}

// cursorPair owns the two cursors of one connection: posts and comments.
// The pair is discarded whole on any error and replaced after backoff.
type cursorPair struct {
	posts    *cursor
	comments *cursor
}

// drain performs one round: every currently available post, then every
// currently available comment. An empty result means the round was idle.
//
// On error the items collected before the failure are returned with it.
// Cursors mark items seen at fetch time, so anything already collected would
// be skipped forever if it were dropped here.
func (p *cursorPair) drain(ctx context.Context) ([]*Item, error) {
	var items []*Item

	for {
		item, err := p.posts.next(ctx)
		if err != nil {
			return items, err
		}
		if item == nil {
			break
		}
		items = append(items, item)
	}

	for {
		item, err := p.comments.next(ctx)
		if err != nil {
			return items, err
		}
		if item == nil {
			break
		}
		items = append(items, item)
	}

	return items, nil
}
