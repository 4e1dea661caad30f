// Package models holds the server-side domain types.
package models

import "time"

// User is an account that can author posts and comments. PasswordHash is a
// bcrypt hash, never the raw password.
type User struct {
	ID           string
	UserName     string
	Name         string
	PasswordHash []byte
}

// Child is a roster entry together with the photo-consent decision recorded
// for it.
type Child struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	PhotoConsent bool   `json:"-"`
}

// Post is a feed entry. LikeCount, Liked and CommentCount are derived per
// viewer when the feed is read.
type Post struct {
	ID           string    `json:"id"`
	AuthorID     string    `json:"-"`
	AuthorName   string    `json:"-"`
	Text         string    `json:"text"`
	Media        []Media   `json:"media"`
	LikeCount    int       `json:"likeCount"`
	Liked        bool      `json:"liked"`
	CommentCount int       `json:"commentCount"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Media is a stored attachment. StoragePath addresses the object in the
// bucket; URL is what clients render.
type Media struct {
	ID           string `json:"id"`
	PostID       string `json:"postId"`
	StoragePath  string `json:"-"`
	URL          string `json:"url"`
	Kind         string `json:"kind"`
	OriginalName string `json:"-"`
	Size         int64  `json:"-"`
}

// Comment belongs to a post.
type Comment struct {
	ID         string    `json:"id"`
	PostID     string    `json:"postId"`
	AuthorID   string    `json:"-"`
	AuthorName string    `json:"-"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Ticket is a parent support request; the feed client only closes them.
type Ticket struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
	Status  string `json:"status"`
}

const (
	TicketStatusOpen   = "open"
	TicketStatusClosed = "closed"
)
