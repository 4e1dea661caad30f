// Package consent resolves per-child photo-publication consent for the
// composer. Consent is fetched in one batched request per change to the
// attached files or the tagged-child selection, never per child.
package consent

import (
	"context"
	"sync"

	"github.com/dkravets/kitafeed/internal/logging"
)

// Fetcher is the slice of the API client the registry needs.
// *api.HTTPClient satisfies it.
type Fetcher interface {
	ConsentSummary(ctx context.Context, childIDs []string) (map[string]bool, error)
}

// Registry caches consent flags keyed by child id. Unknown children are
// denied. The cache is replaced wholesale on every successful fetch; there is
// no partial merge, so a stale allow can never survive a refresh.
type Registry struct {
	fetcher Fetcher
	log     logging.Logger

	mu    sync.Mutex
	cache map[string]bool
}

func NewRegistry(fetcher Fetcher, log logging.Logger) *Registry {
	return &Registry{
		fetcher: fetcher,
		log:     log,
		cache:   make(map[string]bool),
	}
}

// Refresh fetches consent for the given children in one batch and returns the
// resulting map. On any error the pipeline fails closed: every requested id
// maps to false and the cache is left untouched.
func (r *Registry) Refresh(ctx context.Context, childIDs []string) map[string]bool {
	if len(childIDs) == 0 {
		return map[string]bool{}
	}

	fetched, err := r.fetcher.ConsentSummary(ctx, childIDs)
	if err != nil {
		r.log.Warn(ctx, "consent fetch failed, denying all", "children", len(childIDs), "error", err)
		denied := make(map[string]bool, len(childIDs))
		for _, id := range childIDs {
			denied[id] = false
		}
		return denied
	}

	out := make(map[string]bool, len(childIDs))
	for _, id := range childIDs {
		out[id] = fetched[id] // unknown ids stay false
	}

	r.mu.Lock()
	r.cache = out
	r.mu.Unlock()

	return out
}

// Allowed reports the cached consent flag for a child, denying by default.
func (r *Registry) Allowed(childID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cache[childID]
}

// Snapshot returns a copy of the current cache.
func (r *Registry) Snapshot() map[string]bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]bool, len(r.cache))
	for id, allowed := range r.cache {
		out[id] = allowed
	}
	return out
}
