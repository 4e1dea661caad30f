package upload

import (
	"context"

	"github.com/dkravets/kitafeed/internal/client/api"
	"github.com/dkravets/kitafeed/internal/client/models"
	"github.com/dkravets/kitafeed/internal/logging"
)

// DirectTransactor moves attachment bytes to object storage without routing
// them through the application server, then registers them as media.
//
// Files are processed strictly sequentially: parallel transfers would
// multiply the in-flight compensations a cancellation has to unwind.
type DirectTransactor struct {
	api   api.Client
	store ObjectStore
	log   logging.Logger
}

func NewDirectTransactor(apiClient api.Client, store ObjectStore, log logging.Logger) *DirectTransactor {
	return &DirectTransactor{api: apiClient, store: store, log: log}
}

// Run executes sign → transfer → finalize for every file of the session.
// Per-file failures are recorded on the session and the batch continues.
//
// When the session's cancellation signal fires, Run aborts, deletes the most
// recent uploaded-but-not-finalized object, issues one compensating media
// delete per finalized id, resets the session and returns ctx.Err(). Media
// created before a cancellation never outlives it; an orphaned storage
// object occasionally can.
func (t *DirectTransactor) Run(s *Session) ([]models.Media, error) {
	ctx := s.Context()
	var created []models.Media

	for i, state := range s.States() {
		if s.Canceled() {
			t.rollback(s)
			return nil, ctx.Err()
		}

		f := state.File

		target, err := t.api.SignUpload(ctx, f.Name, f.ContentType, "feed/"+s.PostID)
		if err != nil {
			if s.Canceled() {
				t.rollback(s)
				return nil, ctx.Err()
			}
			s.fail(i, &SignError{File: f.Name, Err: err})
			t.log.Warn(ctx, "upload sign failed", "file", f.Name, "error", err)
			continue
		}

		if err := t.store.Put(ctx, target, f.Data, f.ContentType); err != nil {
			if s.Canceled() {
				// The transfer may have left a partial object behind.
				t.deleteObject(s, target)
				t.rollback(s)
				return nil, ctx.Err()
			}
			s.fail(i, &TransferError{File: f.Name, Err: err})
			t.log.Warn(ctx, "upload transfer failed", "file", f.Name, "path", target.StoragePath, "error", err)
			continue
		}
		s.markTransferred(i, target)

		if s.Canceled() {
			// rollback covers the pending object recorded above
			t.rollback(s)
			return nil, ctx.Err()
		}

		medias, err := t.api.FinalizeUpload(ctx, api.FinalizeRequest{
			PostID:          s.PostID,
			StoragePath:     target.StoragePath,
			Size:            f.Size,
			OriginalName:    f.Name,
			TaggedChildIDs:  s.Selection.ChildIDs,
			NoChildSelected: s.Selection.NoChild,
		})
		if err != nil {
			if s.Canceled() {
				t.rollback(s)
				return nil, ctx.Err()
			}
			// The object stays in storage but no media row exists.
			s.fail(i, &FinalizeError{File: f.Name, Err: err})
			t.log.Error(ctx, "upload finalize failed, object orphaned", "file", f.Name, "path", target.StoragePath, "error", err)
			continue
		}

		ids := make([]string, len(medias))
		for j, m := range medias {
			ids[j] = m.ID
		}
		s.markFinalized(i, ids)
		created = append(created, medias...)
	}

	if s.Canceled() {
		t.rollback(s)
		return nil, ctx.Err()
	}

	return created, nil
}

// deleteObject best-effort removes an uploaded object after cancellation.
func (t *DirectTransactor) deleteObject(s *Session, target api.SignedTarget) {
	ctx := context.WithoutCancel(s.Context())
	if err := t.store.Delete(ctx, target); err != nil {
		t.log.Warn(ctx, "cleanup of uploaded object failed", "path", target.StoragePath, "error", err)
	}
}

// rollback issues exactly one compensating media delete per finalized id,
// deletes any lingering unfinalized object, and resets the session.
func (t *DirectTransactor) rollback(s *Session) {
	ctx := context.WithoutCancel(s.Context())

	if pending := s.pendingObject(); pending != nil {
		if err := t.store.Delete(ctx, *pending); err != nil {
			t.log.Warn(ctx, "cleanup of uploaded object failed", "path", pending.StoragePath, "error", err)
		}
	}

	for _, mediaID := range s.FinalizedMedia() {
		if err := t.api.DeleteMedia(ctx, s.PostID, mediaID); err != nil {
			t.log.Warn(ctx, "compensating media delete failed", "post", s.PostID, "media", mediaID, "error", err)
		}
	}

	s.reset()
}
