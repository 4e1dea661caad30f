package feed

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dkravets/kitafeed/internal/client/api"
	"github.com/dkravets/kitafeed/internal/client/models"
	"github.com/dkravets/kitafeed/internal/common"
	"github.com/dkravets/kitafeed/internal/logging"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))
}

// scriptedAPI implements the slice of api.Client the reconciler touches.
type scriptedAPI struct {
	api.Client

	feedPosts []models.Post
	feedErr   error

	createCommentErr error
	deleteCommentErr error
	updatePostErr    error
	closeTicketErr   error

	toggleLiked bool
	toggleErr   error

	createCommentCalls int
	toggleCalls        int
}

func (f *scriptedAPI) Feed(ctx context.Context) ([]models.Post, error) {
	return f.feedPosts, f.feedErr
}

func (f *scriptedAPI) CreateComment(ctx context.Context, postID, text string) (*models.Comment, error) {
	f.createCommentCalls++
	if f.createCommentErr != nil {
		return nil, f.createCommentErr
	}
	return &models.Comment{ID: "c-server", PostID: postID, Text: text}, nil
}

func (f *scriptedAPI) DeleteComment(ctx context.Context, id string) error {
	return f.deleteCommentErr
}

func (f *scriptedAPI) UpdatePost(ctx context.Context, id, text string) error {
	return f.updatePostErr
}

func (f *scriptedAPI) ToggleLike(ctx context.Context, postID string) (bool, error) {
	f.toggleCalls++
	return f.toggleLiked, f.toggleErr
}

func (f *scriptedAPI) CloseTicket(ctx context.Context, id string) error {
	return f.closeTicketErr
}

func newReconciler(fapi *scriptedAPI) (*Reconciler, *Store) {
	store := seededStore()
	return NewReconciler(fapi, store, testLogger()), store
}

func TestRefresh_ReplacesFeed(t *testing.T) {
	fapi := &scriptedAPI{feedPosts: []models.Post{{ID: "p7", Text: "fresh"}}}
	r, store := newReconciler(fapi)

	require.NoError(t, r.Refresh(context.Background()))
	posts := store.Posts()
	require.Len(t, posts, 1)
	require.Equal(t, "p7", posts[0].ID)
}

func TestPostComment_ConfirmedReplacesTentative(t *testing.T) {
	fapi := &scriptedAPI{}
	r, store := newReconciler(fapi)

	restore, err := r.PostComment(context.Background(), "p1", "hello", models.User{ID: "u1"})
	require.NoError(t, err)
	require.Empty(t, restore)

	comments := store.Comments("p1")
	require.Len(t, comments, 3)
	require.Equal(t, "c-server", comments[2].ID)
	for _, c := range comments {
		require.False(t, models.IsTentative(c.ID))
	}
	p, _ := store.Post("p1")
	require.Equal(t, 1, p.CommentCount)
}

func TestPostComment_FailureRollsBackAndReturnsText(t *testing.T) {
	fapi := &scriptedAPI{createCommentErr: common.ErrServerUnavailable}
	r, store := newReconciler(fapi)

	restore, err := r.PostComment(context.Background(), "p1", "hello", models.User{})
	require.ErrorIs(t, err, common.ErrServerUnavailable)
	require.Equal(t, "hello", restore)

	require.Len(t, store.Comments("p1"), 2)
	p, _ := store.Post("p1")
	require.Zero(t, p.CommentCount)
}

func TestPostComment_RateLimitedIsSoftNoOp(t *testing.T) {
	fapi := &scriptedAPI{createCommentErr: common.ErrRateLimited}
	r, store := newReconciler(fapi)

	restore, err := r.PostComment(context.Background(), "p1", "hello", models.User{})
	require.NoError(t, err)
	require.Equal(t, "hello", restore)
	require.Len(t, store.Comments("p1"), 2)
}

func TestDeleteComment_FailureRestoresAtPosition(t *testing.T) {
	fapi := &scriptedAPI{deleteCommentErr: errors.New("boom")}
	r, store := newReconciler(fapi)

	err := r.DeleteComment(context.Background(), "c1")
	require.Error(t, err)

	comments := store.Comments("p1")
	require.Len(t, comments, 2)
	require.Equal(t, "c1", comments[0].ID)
}

func TestDeleteComment_Success(t *testing.T) {
	fapi := &scriptedAPI{}
	r, store := newReconciler(fapi)

	require.NoError(t, r.DeleteComment(context.Background(), "c1"))
	comments := store.Comments("p1")
	require.Len(t, comments, 1)
	require.Equal(t, "c2", comments[0].ID)
}

func TestToggleLike_SettlesOnServerAnswer(t *testing.T) {
	fapi := &scriptedAPI{toggleLiked: true}
	r, store := newReconciler(fapi)

	require.NoError(t, r.ToggleLike(context.Background(), "p1"))
	p, _ := store.Post("p1")
	require.True(t, p.Liked)
	require.Equal(t, 3, p.LikeCount)
}

func TestToggleLike_ErrorRevertsOptimisticFlip(t *testing.T) {
	fapi := &scriptedAPI{toggleErr: common.ErrServerUnavailable}
	r, store := newReconciler(fapi)

	err := r.ToggleLike(context.Background(), "p1")
	require.ErrorIs(t, err, common.ErrServerUnavailable)

	p, _ := store.Post("p1")
	require.False(t, p.Liked)
	require.Equal(t, 2, p.LikeCount)
}

func TestToggleLike_RateLimitedRevertsSilently(t *testing.T) {
	fapi := &scriptedAPI{toggleErr: common.ErrRateLimited}
	r, store := newReconciler(fapi)

	require.NoError(t, r.ToggleLike(context.Background(), "p1"))
	p, _ := store.Post("p1")
	require.False(t, p.Liked)
	require.Equal(t, 2, p.LikeCount)
}

func TestEditPost_FailureRestoresPreviousText(t *testing.T) {
	fapi := &scriptedAPI{updatePostErr: errors.New("boom")}
	r, store := newReconciler(fapi)

	err := r.EditPost(context.Background(), "p1", "edited")
	require.Error(t, err)

	p, _ := store.Post("p1")
	require.Equal(t, "first", p.Text)
}

func TestCloseTicket_OptimisticAndRevert(t *testing.T) {
	fapi := &scriptedAPI{}
	r, store := newReconciler(fapi)
	store.SetTickets([]models.Ticket{{ID: "t1", Status: models.TicketStatusOpen}})

	require.NoError(t, r.CloseTicket(context.Background(), "t1"))
	ticket, _ := store.Ticket("t1")
	require.Equal(t, models.TicketStatusClosed, ticket.Status)

	fapi.closeTicketErr = common.ErrServerUnavailable
	store.SetTicketStatus("t1", models.TicketStatusOpen)
	err := r.CloseTicket(context.Background(), "t1")
	require.ErrorIs(t, err, common.ErrServerUnavailable)
	ticket, _ = store.Ticket("t1")
	require.Equal(t, models.TicketStatusOpen, ticket.Status)
}

func TestUnknownIDsReturnNotFound(t *testing.T) {
	r, _ := newReconciler(&scriptedAPI{})

	require.ErrorIs(t, r.DeleteComment(context.Background(), "nope"), common.ErrNotFound)
	require.ErrorIs(t, r.ToggleLike(context.Background(), "nope"), common.ErrNotFound)
	require.ErrorIs(t, r.EditPost(context.Background(), "nope", "x"), common.ErrNotFound)
	require.ErrorIs(t, r.CloseTicket(context.Background(), "nope"), common.ErrNotFound)
}
