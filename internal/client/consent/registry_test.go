package consent

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dkravets/kitafeed/internal/logging"
)

type fakeFetcher struct {
	resp  map[string]bool
	err   error
	calls int
	last  []string
}

func (f *fakeFetcher) ConsentSummary(ctx context.Context, childIDs []string) (map[string]bool, error) {
	f.calls++
	f.last = childIDs
	return f.resp, f.err
}

func newRegistry(f *fakeFetcher) *Registry {
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))
	return NewRegistry(f, log)
}

func TestRefresh_SingleBatchedCall(t *testing.T) {
	f := &fakeFetcher{resp: map[string]bool{"c1": true, "c2": false}}
	r := newRegistry(f)

	got := r.Refresh(context.Background(), []string{"c1", "c2", "c3"})

	require.Equal(t, 1, f.calls)
	require.Equal(t, []string{"c1", "c2", "c3"}, f.last)
	require.True(t, got["c1"])
	require.False(t, got["c2"])
	// c3 was not in the response: deny by default.
	require.False(t, got["c3"])
}

func TestRefresh_FailsClosedOnError(t *testing.T) {
	f := &fakeFetcher{resp: map[string]bool{"c1": true}}
	r := newRegistry(f)
	r.Refresh(context.Background(), []string{"c1"})
	require.True(t, r.Allowed("c1"))

	f.err = errors.New("network down")
	got := r.Refresh(context.Background(), []string{"c1", "c2"})

	require.False(t, got["c1"])
	require.False(t, got["c2"])
	// A failed fetch does not clobber the cache.
	require.True(t, r.Allowed("c1"))
}

func TestRefresh_OverwritesWholeCache(t *testing.T) {
	f := &fakeFetcher{resp: map[string]bool{"c1": true}}
	r := newRegistry(f)
	r.Refresh(context.Background(), []string{"c1"})

	f.resp = map[string]bool{"c2": true}
	r.Refresh(context.Background(), []string{"c2"})

	// c1 fell out of the cache entirely, no partial merge.
	require.False(t, r.Allowed("c1"))
	require.True(t, r.Allowed("c2"))
}

func TestRefresh_EmptySelectionSkipsNetwork(t *testing.T) {
	f := &fakeFetcher{}
	r := newRegistry(f)

	got := r.Refresh(context.Background(), nil)
	require.Empty(t, got)
	require.Zero(t, f.calls)
}

func TestAllowed_DeniesUnknownChild(t *testing.T) {
	r := newRegistry(&fakeFetcher{})
	require.False(t, r.Allowed("stranger"))
}
