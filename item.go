package redditstream

import (
	"strings"

	"github.com/jamesprial/go-reddit-stream/pkg/types"
)

// redditBaseURL prefixes permalinks when building absolute URLs.
const redditBaseURL = "https://www.reddit.com"

// DefaultPreviewLength is the comment body preview length used by Preview
// when no explicit length is given.
const DefaultPreviewLength = 80

// ItemKind tags which variant of the Item union is populated.
type ItemKind int

const (
	// KindPost marks an item carrying a new submission.
	KindPost ItemKind = iota
	// KindComment marks an item carrying a new comment.
	KindComment
)

func (k ItemKind) String() string {
	switch k {
	case KindPost:
		return "post"
	case KindComment:
		return "comment"
	default:
		return "unknown"
	}
}

// Item is one unit of new subreddit activity: either a post or a comment.
// The summary fields are always populated; exactly one of Post and Comment
// carries the full typed payload, matching Kind. Items are produced once and
// never mutated.
type Item struct {
	Kind      ItemKind
	Subreddit string
	// Title is the submission title. Empty for comments.
	Title string
	// Body is the self text of a post or the body of a comment.
	Body      string
	Permalink string

	Post    *types.Post
	Comment *types.Comment
}

func newPostItem(p *types.Post) *Item {
	return &Item{
		Kind:      KindPost,
		Subreddit: p.Subreddit,
		Title:     p.Title,
		Body:      p.SelfText,
		Permalink: p.Permalink,
		Post:      p,
	}
}

func newCommentItem(c *types.Comment) *Item {
	return &Item{
		Kind:      KindComment,
		Subreddit: c.Subreddit,
		Body:      c.Body,
		Permalink: c.Permalink,
		Comment:   c,
	}
}

// fullname returns the Reddit fullname (e.g. "t3_abc123") identifying the
// item, used by cursors to track what has already been surfaced.
func (i *Item) fullname() string {
	switch i.Kind {
	case KindPost:
		return i.Post.Name
	case KindComment:
		return i.Comment.Name
	default:
		return ""
	}
}

// URL returns the absolute reddit.com URL for the item.
func (i *Item) URL() string {
	if strings.HasPrefix(i.Permalink, "http://") || strings.HasPrefix(i.Permalink, "https://") {
		return i.Permalink
	}
	return redditBaseURL + i.Permalink
}

// Preview returns the item body truncated to at most n runes, with an
// ellipsis when truncated. A non-positive n uses DefaultPreviewLength.
func (i *Item) Preview(n int) string {
	if n <= 0 {
		n = DefaultPreviewLength
	}

	runes := []rune(i.Body)
	if len(runes) <= n {
		return i.Body
	}
	return string(runes[:n]) + "..."
}
