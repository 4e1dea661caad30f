package upload

import (
	"context"

	"github.com/dkravets/kitafeed/internal/client/api"
	"github.com/dkravets/kitafeed/internal/client/consent"
	"github.com/dkravets/kitafeed/internal/client/models"
	"github.com/dkravets/kitafeed/internal/logging"
)

// Publisher drives a publish action end to end: consent validation, route
// selection, then either the proxied single-call submission or the direct
// sign/transfer/finalize protocol.
type Publisher struct {
	api      api.Client
	consents *consent.Registry
	selector *Selector
	store    ObjectStore // nil when no direct backend is configured
	log      logging.Logger
}

// NewPublisher wires the pipeline. Pass a nil store when no direct-upload
// backend is configured; batches then must fit the proxied path.
func NewPublisher(apiClient api.Client, consents *consent.Registry, limits Limits, store ObjectStore, log logging.Logger) *Publisher {
	return &Publisher{
		api:      apiClient,
		consents: consents,
		selector: NewSelector(limits, store != nil),
		store:    store,
		log:      log,
	}
}

// Publish validates and publishes a new post. Validation errors are returned
// before any upload call is made. On the direct route, per-file protocol
// failures do not fail the publish; inspect the returned session's States.
func (p *Publisher) Publish(ctx context.Context, text string, files []models.FileInfo, sel models.TaggedChildSelection, roster []models.Child) (*models.Post, *Session, error) {
	plan, err := p.validate(ctx, files, sel, roster)
	if err != nil {
		return nil, nil, err
	}

	switch plan.Route {
	case RouteNone:
		post, err := p.api.CreatePost(ctx, text)
		return post, nil, err

	case RouteProxied:
		post, err := p.api.SubmitPost(ctx, api.PostSubmission{
			Text:            text,
			Files:           plan.Files,
			TaggedChildIDs:  sel.ChildIDs,
			NoChildSelected: sel.NoChild,
		})
		return post, nil, err

	default:
		post, err := p.api.CreatePost(ctx, text)
		if err != nil {
			return nil, nil, err
		}

		session := NewSession(ctx, post.ID, plan.Files, sel)
		medias, err := p.transactor().Run(session)
		if err != nil {
			return nil, session, err
		}
		post.Media = append(post.Media, medias...)
		return post, session, nil
	}
}

// Attach uploads additional files to an existing post (the edit flow) and
// returns the created media together with the session for cancellation.
func (p *Publisher) Attach(ctx context.Context, postID string, files []models.FileInfo, sel models.TaggedChildSelection, roster []models.Child) ([]models.Media, *Session, error) {
	plan, err := p.validate(ctx, files, sel, roster)
	if err != nil {
		return nil, nil, err
	}

	session := NewSession(ctx, postID, plan.Files, sel)

	if plan.Route == RouteDirect {
		medias, err := p.transactor().Run(session)
		return medias, session, err
	}

	// Small image-only batch: one proxied call against the post.
	medias, err := p.api.UploadMedia(ctx, postID, api.PostSubmission{
		Files:           plan.Files,
		TaggedChildIDs:  sel.ChildIDs,
		NoChildSelected: sel.NoChild,
	})
	if err != nil {
		return nil, session, err
	}
	return medias, session, nil
}

// validate runs the identification gate, the batched consent fetch and the
// selector, in that order. The identification gate fires before any network
// call.
func (p *Publisher) validate(ctx context.Context, files []models.FileInfo, sel models.TaggedChildSelection, roster []models.Child) (Plan, error) {
	if len(files) > 0 && sel.Empty() {
		return Plan{}, ErrIdentificationRequired
	}

	var consents map[string]bool
	if len(files) > 0 && len(sel.ChildIDs) > 0 {
		consents = p.consents.Refresh(ctx, sel.ChildIDs)
	}

	return p.selector.Select(files, sel, consents, roster)
}

func (p *Publisher) transactor() *DirectTransactor {
	return NewDirectTransactor(p.api, p.store, p.log)
}
