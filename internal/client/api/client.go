// Package api talks to the center's REST backend. It owns transport-level
// concerns only: authentication headers, token refresh, rate-limit
// suppression and the mapping of HTTP failures onto the shared error
// sentinels. Domain logic lives in the packages consuming Client.
package api

import (
	"context"

	"github.com/dkravets/kitafeed/internal/client/models"
)

// SignedTarget is a short-lived upload destination issued by the backend.
// Bucket/StoragePath address the object for SDK-style stores; PutURL and
// DeleteURL are set when the backend hands out presigned URLs instead.
type SignedTarget struct {
	StoragePath string `json:"storagePath"`
	Bucket      string `json:"bucket"`
	PutURL      string `json:"putUrl,omitempty"`
	DeleteURL   string `json:"deleteUrl,omitempty"`
}

// FinalizeRequest registers a transferred object as post media.
type FinalizeRequest struct {
	PostID          string   `json:"postId"`
	StoragePath     string   `json:"storagePath"`
	Size            int64    `json:"size"`
	OriginalName    string   `json:"originalName"`
	TaggedChildIDs  []string `json:"taggedChildIds"`
	NoChildSelected bool     `json:"noChildSelected"`
}

// PostSubmission is the proxied publish payload: one multipart request that
// the server turns into a post with media atomically.
type PostSubmission struct {
	Text            string
	Files           []models.FileInfo
	TaggedChildIDs  []string
	NoChildSelected bool
}

// Client is the REST surface consumed by the feed core.
type Client interface {
	Register(ctx context.Context, username, password string) error
	Login(ctx context.Context, username, password string) error

	Children(ctx context.Context) ([]models.Child, error)
	ConsentSummary(ctx context.Context, childIDs []string) (map[string]bool, error)

	SignUpload(ctx context.Context, filename, contentType, prefix string) (SignedTarget, error)
	FinalizeUpload(ctx context.Context, req FinalizeRequest) ([]models.Media, error)
	SubmitPost(ctx context.Context, sub PostSubmission) (*models.Post, error)
	UploadMedia(ctx context.Context, postID string, sub PostSubmission) ([]models.Media, error)

	Feed(ctx context.Context) ([]models.Post, error)
	CreatePost(ctx context.Context, text string) (*models.Post, error)
	UpdatePost(ctx context.Context, id, text string) error
	DeletePost(ctx context.Context, id string) error
	DeleteMedia(ctx context.Context, postID, mediaID string) error

	Comments(ctx context.Context, postID string) ([]models.Comment, error)
	CreateComment(ctx context.Context, postID, text string) (*models.Comment, error)
	UpdateComment(ctx context.Context, id, text string) error
	DeleteComment(ctx context.Context, id string) error

	ToggleLike(ctx context.Context, postID string) (bool, error)
	Likers(ctx context.Context, postID string) ([]models.User, error)

	Tickets(ctx context.Context) ([]models.Ticket, error)
	CloseTicket(ctx context.Context, id string) error
}
