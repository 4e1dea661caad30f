// Package models holds the client-side domain types of the feed: posts,
// media, comments, children and the transient types that drive a publish
// action (tagged-child selection, attached files).
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// MediaKind is the coarse media classification used by the feed.
type MediaKind string

const (
	MediaKindImage MediaKind = "image"
	MediaKindVideo MediaKind = "video"
)

// User is a staff member or parent as rendered in the feed.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Media is a stored attachment of a post. It exists only after the server
// acknowledged the storage transfer and created the row (finalize).
type Media struct {
	ID           string    `json:"id"`
	PostID       string    `json:"postId"`
	URL          string    `json:"url"`
	ThumbnailURL string    `json:"thumbnailUrl,omitempty"`
	Kind         MediaKind `json:"kind"`
}

// Post is a feed entry authored by a staff member.
type Post struct {
	ID           string    `json:"id"`
	Author       User      `json:"author"`
	Text         string    `json:"text"`
	Media        []Media   `json:"media"`
	LikeCount    int       `json:"likeCount"`
	Liked        bool      `json:"liked"`
	CommentCount int       `json:"commentCount"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Comment belongs to a post. Its ID is tentative (see TentativeID) until the
// server confirms the comment.
type Comment struct {
	ID        string    `json:"id"`
	PostID    string    `json:"postId"`
	Author    User      `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// Ticket is a support ticket; only the close transition is driven from the
// feed client.
type Ticket struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
	Status  string `json:"status"`
}

const (
	TicketStatusOpen   = "open"
	TicketStatusClosed = "closed"
)

// Child is an entry of the center's roster, as offered in the composer's
// tagging list.
type Child struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TaggedChildSelection is the per-composition assertion about who appears in
// the attached media. Before a submission with attachments may proceed,
// exactly one of the following must hold: the selection is non-empty, NoChild
// is set, or there are no attachments.
type TaggedChildSelection struct {
	ChildIDs []string
	NoChild  bool
}

// Empty reports whether neither children are tagged nor the escape flag set.
func (s TaggedChildSelection) Empty() bool {
	return len(s.ChildIDs) == 0 && !s.NoChild
}

// FileInfo describes one attachment candidate of a submission.
type FileInfo struct {
	Name        string
	Size        int64
	ContentType string
	Data        []byte
}

// tentativePrefix marks client-generated ids of entities that the server has
// not confirmed yet.
const tentativePrefix = "tmp-"

// TentativeID returns a fresh client-only identifier.
func TentativeID() string {
	return tentativePrefix + uuid.NewString()
}

// IsTentative reports whether id was generated by TentativeID.
func IsTentative(id string) bool {
	return strings.HasPrefix(id, tentativePrefix)
}
