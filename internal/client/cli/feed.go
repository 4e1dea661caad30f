package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/dkravets/kitafeed/internal/client/models"
)

func (a *App) showFeed(ctx context.Context) {
	if err := a.reconciler.Refresh(ctx); err != nil {
		fmt.Println("Could not load the feed:", err)
		return
	}

	for _, p := range a.store.Posts() {
		liked := " "
		if p.Liked {
			liked = "*"
		}
		fmt.Printf("[%s] %s %s (%d likes, %d comments, %d media)\n",
			p.ID, liked, p.Text, p.LikeCount, p.CommentCount, len(p.Media))
	}
}

func (a *App) showComments(ctx context.Context, postID string) {
	comments, err := a.api.Comments(ctx, postID)
	if err != nil {
		fmt.Println("Could not load comments:", err)
		return
	}
	a.store.SetComments(postID, comments)

	for _, c := range a.store.Comments(postID) {
		fmt.Printf("[%s] %s: %s\n", c.ID, c.Author.Name, c.Text)
	}
}

func (a *App) addComment(ctx context.Context, postID string) {
	text, err := GetSimpleText(a.reader, "Comment text", os.Stdout)
	if err != nil || text == "" {
		return
	}

	restore, err := a.reconciler.PostComment(ctx, postID, text, models.User{Name: a.userName})
	if err != nil {
		fmt.Println("Comment not posted:", err)
		fmt.Println("Your text:", restore)
		return
	}
	if restore != "" {
		// rate limited; the text comes back so nothing typed is lost
		fmt.Println("Server is busy, try again shortly. Your text:", restore)
	}
}

func (a *App) removeComment(ctx context.Context, commentID string) {
	if err := a.reconciler.DeleteComment(ctx, commentID); err != nil {
		fmt.Println("Comment not deleted:", err)
	}
}

// tapLike drives the gesture machine with an immediate press/release. The
// release lands well inside the hold threshold, so it resolves as a tap.
func (a *App) tapLike(ctx context.Context, postID string) {
	a.gestures.PressStart(ctx, postID)
	a.gestures.PressEnd(postID)
}

func (a *App) toggleLike(ctx context.Context, postID string) {
	if err := a.reconciler.ToggleLike(ctx, postID); err != nil {
		fmt.Println("Could not toggle like:", err)
		return
	}
	if p, ok := a.store.Post(postID); ok {
		fmt.Printf("Post %s now has %d likes\n", p.ID, p.LikeCount)
	}
}

func (a *App) showLikers(ctx context.Context, postID string) {
	users, err := a.api.Likers(ctx, postID)
	if err != nil {
		fmt.Println("Could not load likers:", err)
		return
	}
	for _, u := range users {
		fmt.Println("-", u.Name)
	}
}

func (a *App) editPost(ctx context.Context, postID string) {
	text, err := GetMultiline(a.reader, "New post text", os.Stdout)
	if err != nil || text == "" {
		return
	}
	if err := a.reconciler.EditPost(ctx, postID, text); err != nil {
		fmt.Println("Post not updated:", err)
	}
}

func (a *App) showTickets(ctx context.Context) {
	tickets, err := a.api.Tickets(ctx)
	if err != nil {
		fmt.Println("Could not load tickets:", err)
		return
	}
	a.store.SetTickets(tickets)
	for _, t := range tickets {
		fmt.Printf("[%s] %s (%s)\n", t.ID, t.Subject, t.Status)
	}
}

func (a *App) closeTicket(ctx context.Context, ticketID string) {
	if err := a.reconciler.CloseTicket(ctx, ticketID); err != nil {
		fmt.Println("Ticket not closed:", err)
		return
	}
	fmt.Println("Ticket closed")
}
