// Package types holds the wire models for the subset of the Reddit API the
// streamer consumes: listings of posts and comments plus the authenticated
// account returned by the identity check.
package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ThingData holds the fields common to every Reddit object.
// It is embedded into the concrete types like Post and Comment.
type ThingData struct {
	ID   string `json:"id"`   // ID without the kind prefix
	Name string `json:"name"` // Fullname (e.g. "t3_abc123")
}

// GetID returns the object's ID.
func (td ThingData) GetID() string {
	return td.ID
}

// GetName returns the object's fullname.
func (td ThingData) GetName() string {
	return td.Name
}

// Thing is the envelope Reddit wraps every API object in. Kind identifies the
// payload type ("Listing", "t1", "t2", "t3"); Data is parsed by the caller.
type Thing struct {
	ThingData
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// Votable is an embeddable struct for things that can be voted on.
type Votable struct {
	Ups   int `json:"ups"`
	Downs int `json:"downs"`
	// Likes is the user's vote: true upvote, false downvote, null no vote.
	Likes *bool `json:"likes"`
}

// Created is an embeddable struct for things that have a creation time.
type Created struct {
	Created    float64 `json:"created"`
	CreatedUTC float64 `json:"created_utc"`
}

// Edited represents Reddit's "edited" field, which is a boolean on old items
// and a float timestamp on modern edits.
type Edited struct {
	IsEdited  bool
	Timestamp float64
}

// UnmarshalJSON implements json.Unmarshaler to handle the mixed types.
func (e *Edited) UnmarshalJSON(data []byte) error {
	switch strings.ToLower(string(data)) {
	case "false", "null":
		e.IsEdited = false
		e.Timestamp = 0
		return nil
	case "true":
		e.IsEdited = true
		e.Timestamp = 0
		return nil
	}

	var timestamp float64
	if err := json.Unmarshal(data, &timestamp); err == nil {
		e.IsEdited = true
		e.Timestamp = timestamp
		return nil
	}

	return fmt.Errorf("unrecognized type for 'edited' field: %s", string(data))
}

// ListingData is the paginated container Reddit returns for post and comment
// listings. Children are raw Things parsed by the caller.
type ListingData struct {
	BeforeFullname string   `json:"before"`
	AfterFullname  string   `json:"after"`
	Children       []*Thing `json:"children"`
}

// AccountData is the authenticated user returned by api/v1/me.
type AccountData struct {
	ThingData
	Created
	CommentKarma     int    `json:"comment_karma"`
	HasVerifiedEmail *bool  `json:"has_verified_email"`
	IsGold           bool   `json:"is_gold"`
	IsMod            bool   `json:"is_mod"`
	LinkKarma        int    `json:"link_karma"`
	Over18           bool   `json:"over_18"`
	Username         string `json:"name"` // overrides ThingData.Name for t2 objects
}

// Post is a Reddit submission (kind t3).
type Post struct {
	ThingData
	Votable
	Created
	Author        string  `json:"author"`
	Domain        string  `json:"domain"`
	IsSelf        bool    `json:"is_self"`
	Locked        bool    `json:"locked"`
	NumComments   int     `json:"num_comments"`
	Over18        bool    `json:"over_18"`
	Permalink     string  `json:"permalink"`
	Score         int     `json:"score"`
	SelfText      string  `json:"selftext"`
	Stickied      bool    `json:"stickied"`
	Subreddit     string  `json:"subreddit"`
	SubredditID   string  `json:"subreddit_id"`
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	Edited        Edited  `json:"edited"`
	Distinguished *string `json:"distinguished"`
}

// Comment is a Reddit comment (kind t1).
type Comment struct {
	ThingData
	Votable
	Created
	Author        string  `json:"author"`
	Body          string  `json:"body"`
	BodyHTML      string  `json:"body_html"`
	Edited        Edited  `json:"edited"`
	LinkID        string  `json:"link_id"`
	LinkTitle     string  `json:"link_title,omitempty"`
	ParentID      string  `json:"parent_id"`
	Permalink     string  `json:"permalink"`
	Score         int     `json:"score"`
	ScoreHidden   bool    `json:"score_hidden"`
	Subreddit     string  `json:"subreddit"`
	SubredditID   string  `json:"subreddit_id"`
	Distinguished *string `json:"distinguished"`
}
