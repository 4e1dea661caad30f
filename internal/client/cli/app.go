// Package cli implements the interactive terminal client for the feed.
package cli

import (
	"bufio"
	"context"
	"os"

	"github.com/dkravets/kitafeed/internal/client/api"
	"github.com/dkravets/kitafeed/internal/client/config"
	"github.com/dkravets/kitafeed/internal/client/consent"
	"github.com/dkravets/kitafeed/internal/client/drafts"
	"github.com/dkravets/kitafeed/internal/client/feed"
	"github.com/dkravets/kitafeed/internal/client/gesture"
	"github.com/dkravets/kitafeed/internal/client/models"
	"github.com/dkravets/kitafeed/internal/client/ratelimit"
	"github.com/dkravets/kitafeed/internal/client/upload"
	"github.com/dkravets/kitafeed/internal/logging"

	_ "modernc.org/sqlite"
)

type App struct {
	config *config.Config
	log    logging.Logger

	api        api.Client
	registry   *consent.Registry
	publisher  *upload.Publisher
	store      *feed.Store
	reconciler *feed.Reconciler
	drafts     drafts.Repository
	gestures   *gesture.Machine

	reader   *bufio.Reader
	userName string
	roster   []models.Child
}

func NewApp(c *config.Config, log logging.Logger) (*App, error) {
	ctx := context.Background()

	draftRepo, err := drafts.InitDatabase(ctx, c.DatabaseDSN)
	if err != nil {
		log.Error(ctx, "error initializing database", "error", err)
		return nil, err
	}

	limits := ratelimit.NewStore(ratelimit.NewHub())
	apiClient := api.NewHTTPClient(c.ServerBaseURL, limits, log)

	registry := consent.NewRegistry(apiClient, log)
	publisher := upload.NewPublisher(apiClient, registry, upload.DefaultLimits(), upload.NewPresignedStore(), log)

	store := feed.NewStore()

	a := &App{
		config:     c,
		log:        log,
		api:        apiClient,
		registry:   registry,
		publisher:  publisher,
		store:      store,
		reconciler: feed.NewReconciler(apiClient, store, log),
		drafts:     draftRepo,
		reader:     bufio.NewReader(os.Stdin),
	}
	a.gestures = gesture.NewMachine(likeActions{app: a}, log)
	return a, nil
}

// likeActions routes a resolved press gesture to the optimistic like flow
// or the likers listing.
type likeActions struct {
	app *App
}

func (l likeActions) ToggleLike(ctx context.Context, postID string) {
	l.app.toggleLike(ctx, postID)
}

func (l likeActions) ShowLikers(ctx context.Context, postID string) {
	l.app.showLikers(ctx, postID)
}

func (a *App) isLoggedIn() bool {
	return a.userName != ""
}

func (a *App) Run(ctx context.Context) {
	a.Root(ctx)
}
