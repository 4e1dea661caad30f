package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

func (a *App) getStatus() string {
	if a.userName == "" {
		return ""
	}
	return fmt.Sprintf("(%s)", a.userName)
}

// Root runs the interactive loop. Command handlers report their own errors;
// the loop only dispatches and keeps going.
func (a *App) Root(ctx context.Context) {

	fmt.Println("Welcome to the kitafeed CLI (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)

	a.Login(ctx)

	for {
		fmt.Printf("kf %s> ", a.getStatus())
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				fmt.Println("Available commands: feed, post, attach, comments, comment, uncomment, like, likers, press, release, edit, drafts, draft, publish, tickets, close, logout, exit")
			} else {
				fmt.Println("Available commands: register, login, exit")
			}

		case "register":
			a.Register(ctx)
		case "login":
			a.Login(ctx)
		case "logout":
			a.Logout(ctx)

		case "f", "feed":
			a.showFeed(ctx)
		case "post":
			a.composePost(ctx)
		case "attach":
			if len(args) == 0 {
				fmt.Println("Usage: attach <post-id>")
				continue
			}
			a.attachMedia(ctx, args[0])

		case "comments":
			if len(args) == 0 {
				fmt.Println("Usage: comments <post-id>")
				continue
			}
			a.showComments(ctx, args[0])
		case "comment":
			if len(args) == 0 {
				fmt.Println("Usage: comment <post-id>")
				continue
			}
			a.addComment(ctx, args[0])
		case "uncomment":
			if len(args) == 0 {
				fmt.Println("Usage: uncomment <comment-id>")
				continue
			}
			a.removeComment(ctx, args[0])

		case "like":
			if len(args) == 0 {
				fmt.Println("Usage: like <post-id>")
				continue
			}
			a.tapLike(ctx, args[0])
		case "likers":
			if len(args) == 0 {
				fmt.Println("Usage: likers <post-id>")
				continue
			}
			a.showLikers(ctx, args[0])

		// press/release emulate holding the like button: release within
		// 600 ms toggles the like, a later release shows the likers.
		case "press":
			if len(args) == 0 {
				fmt.Println("Usage: press <post-id>")
				continue
			}
			a.gestures.PressStart(ctx, args[0])
		case "release":
			if len(args) == 0 {
				fmt.Println("Usage: release <post-id>")
				continue
			}
			a.gestures.PressEnd(args[0])

		case "edit":
			if len(args) == 0 {
				fmt.Println("Usage: edit <post-id>")
				continue
			}
			a.editPost(ctx, args[0])

		case "drafts":
			a.listDrafts(ctx)
		case "draft":
			a.saveDraft(ctx)
		case "publish":
			if len(args) == 0 {
				fmt.Println("Usage: publish <draft-id>")
				continue
			}
			a.publishDraft(ctx, args[0])

		case "tickets":
			a.showTickets(ctx)
		case "close":
			if len(args) == 0 {
				fmt.Println("Usage: close <ticket-id>")
				continue
			}
			a.closeTicket(ctx, args[0])

		case "exit", "quit":
			fmt.Println("Bye!")
			return

		default:
			fmt.Println("Unknown command:", cmd)
		}
	}
}
