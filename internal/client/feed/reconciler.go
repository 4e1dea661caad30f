package feed

import (
	"context"
	"errors"

	"github.com/dkravets/kitafeed/internal/client/api"
	"github.com/dkravets/kitafeed/internal/client/models"
	"github.com/dkravets/kitafeed/internal/common"
	"github.com/dkravets/kitafeed/internal/logging"
)

// Reconciler applies tentative mutations to the store before the network
// call resolves, then replaces them with server-confirmed state or rolls
// them back. Comments, likes, post edits and ticket closes all instantiate
// the same pattern with a different mutation.
//
// A rate-limited call is a soft no-op: the tentative mutation is undone and
// no error is surfaced.
type Reconciler struct {
	api   api.Client
	store *Store
	log   logging.Logger
}

func NewReconciler(apiClient api.Client, store *Store, log logging.Logger) *Reconciler {
	return &Reconciler{api: apiClient, store: store, log: log}
}

// Refresh reloads the feed from the server.
func (r *Reconciler) Refresh(ctx context.Context) error {
	posts, err := r.api.Feed(ctx)
	if err != nil {
		return err
	}
	r.store.SetPosts(posts)
	return nil
}

// PostComment adds a tentative comment, then confirms or rolls it back.
// On failure the submitted text is returned so the caller can restore the
// input field.
func (r *Reconciler) PostComment(ctx context.Context, postID, text string, author models.User) (restore string, err error) {
	tentative := models.Comment{
		ID:     models.TentativeID(),
		PostID: postID,
		Author: author,
		Text:   text,
	}
	r.store.AddComment(tentative)

	confirmed, err := r.api.CreateComment(ctx, postID, text)
	if err != nil {
		r.store.RemoveComment(tentative.ID)
		if errors.Is(err, common.ErrRateLimited) {
			r.log.Debug(ctx, "comment deferred by rate limit", "post", postID)
			return text, nil
		}
		return text, err
	}

	r.store.ReplaceComment(tentative.ID, *confirmed)
	return "", nil
}

// DeleteComment removes a comment optimistically and restores it at its
// former position on failure.
func (r *Reconciler) DeleteComment(ctx context.Context, id string) error {
	taken, index, ok := r.store.TakeComment(id)
	if !ok {
		return common.ErrNotFound
	}

	if err := r.api.DeleteComment(ctx, id); err != nil {
		r.store.RestoreComment(taken, index)
		if errors.Is(err, common.ErrRateLimited) {
			return nil
		}
		return err
	}
	return nil
}

// ToggleLike flips the like flag optimistically, then settles on the
// server's answer.
func (r *Reconciler) ToggleLike(ctx context.Context, postID string) error {
	prev, ok := r.store.SetLiked(postID, !r.liked(postID))
	if !ok {
		return common.ErrNotFound
	}

	liked, err := r.api.ToggleLike(ctx, postID)
	if err != nil {
		r.store.SetLiked(postID, prev)
		if errors.Is(err, common.ErrRateLimited) {
			r.log.Debug(ctx, "like deferred by rate limit", "post", postID)
			return nil
		}
		return err
	}

	r.store.SetLiked(postID, liked)
	return nil
}

func (r *Reconciler) liked(postID string) bool {
	p, _ := r.store.Post(postID)
	return p.Liked
}

// EditPost swaps the post text optimistically and restores the previous
// text on failure.
func (r *Reconciler) EditPost(ctx context.Context, postID, text string) error {
	prev, ok := r.store.SetPostText(postID, text)
	if !ok {
		return common.ErrNotFound
	}

	if err := r.api.UpdatePost(ctx, postID, text); err != nil {
		r.store.SetPostText(postID, prev)
		if errors.Is(err, common.ErrRateLimited) {
			return nil
		}
		return err
	}
	return nil
}

// CloseTicket marks a ticket closed optimistically and reopens it on
// failure.
func (r *Reconciler) CloseTicket(ctx context.Context, ticketID string) error {
	prev, ok := r.store.SetTicketStatus(ticketID, models.TicketStatusClosed)
	if !ok {
		return common.ErrNotFound
	}

	if err := r.api.CloseTicket(ctx, ticketID); err != nil {
		r.store.SetTicketStatus(ticketID, prev)
		if errors.Is(err, common.ErrRateLimited) {
			return nil
		}
		return err
	}
	return nil
}
