package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dkravets/kitafeed/internal/client/drafts"
	"github.com/dkravets/kitafeed/internal/client/models"
	"github.com/dkravets/kitafeed/internal/client/upload"
	"github.com/dkravets/kitafeed/internal/common"
)

// readSelection prompts for the tagged-child assertion. Children are offered
// from the roster loaded at login; "none" sets the nobody-recognizable flag.
func (a *App) readSelection() (models.TaggedChildSelection, error) {
	if len(a.roster) > 0 {
		fmt.Println("Children:")
		for _, c := range a.roster {
			fmt.Printf("  %s  %s\n", c.ID, c.Name)
		}
	}

	ids, err := GetList(a.reader, "Tagged child ids (or 'none' if nobody is recognizable)", os.Stdout)
	if err != nil {
		return models.TaggedChildSelection{}, err
	}

	var sel models.TaggedChildSelection
	for _, id := range ids {
		if strings.EqualFold(id, "none") {
			sel.NoChild = true
			continue
		}
		sel.ChildIDs = append(sel.ChildIDs, id)
	}
	return sel, nil
}

// loadAttachments reads the named files from disk. Content type is left for
// the upload pipeline to sniff.
func loadAttachments(paths []string) ([]models.FileInfo, error) {
	var files []models.FileInfo
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read attachment %s: %w", path, err)
		}
		files = append(files, models.FileInfo{
			Name: filepath.Base(path),
			Size: int64(len(data)),
			Data: data,
		})
	}
	return files, nil
}

func (a *App) composePost(ctx context.Context) {
	text, err := GetMultiline(a.reader, "Post text", os.Stdout)
	if err != nil {
		return
	}

	paths, err := GetList(a.reader, "Attachment paths", os.Stdout)
	if err != nil {
		return
	}
	files, err := loadAttachments(paths)
	if err != nil {
		fmt.Println(err)
		return
	}

	var sel models.TaggedChildSelection
	if len(files) > 0 {
		if sel, err = a.readSelection(); err != nil {
			return
		}
	}

	post, _, err := a.publish(ctx, text, files, sel)
	if err != nil {
		return
	}

	a.store.AddPost(*post)
	fmt.Printf("Published post %s with %d attachments\n", post.ID, len(post.Media))
}

// publish runs the publisher and renders its error taxonomy for the user.
func (a *App) publish(ctx context.Context, text string, files []models.FileInfo, sel models.TaggedChildSelection) (*models.Post, *upload.Session, error) {
	post, session, err := a.publisher.Publish(ctx, text, files, sel, a.roster)
	if err != nil {
		a.explainPublishError(os.Stdout, err)
		return nil, nil, err
	}

	if session != nil {
		for _, st := range session.States() {
			if st.Outcome == upload.OutcomeFailed {
				fmt.Printf("Attachment %s failed: %v\n", st.File.Name, st.Err)
			}
		}
	}
	return post, session, nil
}

func (a *App) explainPublishError(w io.Writer, err error) {
	var cm *upload.ConsentMissingError
	switch {
	case errors.Is(err, upload.ErrIdentificationRequired):
		fmt.Fprintln(w, "Please tag the children on the photos, or state that nobody is recognizable.")
	case errors.As(err, &cm):
		fmt.Fprintln(w, "Missing photo consent for:", strings.Join(cm.Names, ", "))
	case errors.Is(err, common.ErrRateLimited):
		// A suppression window defers the call; nothing failed.
		fmt.Fprintln(w, "The server asked for a short pause; your post was deferred. Try again in a moment.")
	default:
		fmt.Fprintln(w, "Post not published:", err)
	}
}

func (a *App) attachMedia(ctx context.Context, postID string) {
	paths, err := GetList(a.reader, "Attachment paths", os.Stdout)
	if err != nil {
		return
	}
	files, err := loadAttachments(paths)
	if err != nil || len(files) == 0 {
		if err != nil {
			fmt.Println(err)
		}
		return
	}

	sel, err := a.readSelection()
	if err != nil {
		return
	}

	medias, _, err := a.publisher.Attach(ctx, postID, files, sel, a.roster)
	if err != nil {
		a.explainPublishError(os.Stdout, err)
		return
	}

	a.store.AppendMedia(postID, medias...)
	fmt.Printf("Attached %d files to post %s\n", len(medias), postID)
}

func (a *App) saveDraft(ctx context.Context) {
	text, err := GetMultiline(a.reader, "Draft text", os.Stdout)
	if err != nil {
		return
	}
	paths, err := GetList(a.reader, "Attachment paths", os.Stdout)
	if err != nil {
		return
	}

	var sel models.TaggedChildSelection
	if len(paths) > 0 {
		if sel, err = a.readSelection(); err != nil {
			return
		}
	}

	d := &drafts.Draft{
		ID:              models.TentativeID(),
		Body:            text,
		TaggedChildIDs:  sel.ChildIDs,
		NoChildSelected: sel.NoChild,
		Attachments:     paths,
	}
	if err := a.drafts.Save(ctx, d); err != nil {
		fmt.Println("Draft not saved:", err)
		return
	}
	fmt.Println("Saved draft", d.ID)
}

func (a *App) listDrafts(ctx context.Context) {
	all, err := a.drafts.GetAll(ctx)
	if err != nil {
		fmt.Println("Could not load drafts:", err)
		return
	}
	for _, d := range all {
		fmt.Printf("[%s] %s (%d attachments, %s)\n",
			d.ID, firstLine(d.Body), len(d.Attachments), d.UpdatedAt.Format("2006-01-02 15:04"))
	}
}

func (a *App) publishDraft(ctx context.Context, id string) {
	d, err := a.drafts.GetByID(ctx, id)
	if err != nil {
		fmt.Println("Draft not found:", err)
		return
	}

	files, err := loadAttachments(d.Attachments)
	if err != nil {
		fmt.Println(err)
		return
	}
	sel := models.TaggedChildSelection{ChildIDs: d.TaggedChildIDs, NoChild: d.NoChildSelected}

	post, _, err := a.publish(ctx, d.Body, files, sel)
	if err != nil {
		return
	}

	if err := a.drafts.DeleteByID(ctx, id); err != nil {
		a.log.Warn(ctx, "published draft could not be removed", "draft", id, "error", err)
	}
	a.store.AddPost(*post)
	fmt.Printf("Published draft as post %s\n", post.ID)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
