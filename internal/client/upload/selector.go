package upload

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/dkravets/kitafeed/internal/client/models"
)

// Route decides which upload protocol a submission uses. The choice is
// all-or-nothing per batch so a single session never mixes the two
// consistency protocols.
type Route int

const (
	// RouteNone: no attachments, plain post creation.
	RouteNone Route = iota
	// RouteProxied: one multipart request through the application server.
	RouteProxied
	// RouteDirect: per-file sign/transfer/finalize against object storage.
	RouteDirect
)

// Limits holds the size gates of the proxied path and the direct-routing
// threshold.
type Limits struct {
	// PerFileMax is the per-file ceiling on the proxied path.
	PerFileMax int64
	// BatchMax is the aggregate ceiling on the proxied path.
	BatchMax int64
	// DirectThreshold routes a file to direct upload when exceeded.
	DirectThreshold int64
}

// DefaultLimits mirrors the application server's multipart limits.
func DefaultLimits() Limits {
	return Limits{
		PerFileMax:      25 << 20,
		BatchMax:        60 << 20,
		DirectThreshold: 8 << 20,
	}
}

var imageFormats = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/gif":  {},
	"image/webp": {},
}

var videoFormats = map[string]struct{}{
	"video/mp4":       {},
	"video/quicktime": {},
	"video/webm":      {},
}

// kindOf classifies a MIME type by its top-level kind.
func kindOf(contentType string) (models.MediaKind, bool) {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return models.MediaKindImage, true
	case strings.HasPrefix(contentType, "video/"):
		return models.MediaKindVideo, true
	default:
		return "", false
	}
}

func formatAllowed(kind models.MediaKind, contentType string) bool {
	if kind == models.MediaKindImage {
		_, ok := imageFormats[contentType]
		return ok
	}
	_, ok := videoFormats[contentType]
	return ok
}

// Plan is the outcome of a successful validation: the route and the file
// list with resolved content types.
type Plan struct {
	Route Route
	Files []models.FileInfo
}

// Selector validates a submission's attachments against the consent map and
// the size/type gates, then routes the batch.
type Selector struct {
	limits          Limits
	directAvailable bool
}

// NewSelector creates a selector. directAvailable reports whether a direct
// upload backend is configured; without one every batch must fit the proxy.
func NewSelector(limits Limits, directAvailable bool) *Selector {
	return &Selector{limits: limits, directAvailable: directAvailable}
}

// resolveContentType trusts the declared type when present and falls back to
// sniffing the content.
func resolveContentType(f models.FileInfo) string {
	if f.ContentType != "" {
		return f.ContentType
	}
	if len(f.Data) > 0 {
		return mimetype.Detect(f.Data).String()
	}
	return ""
}

func (s *Selector) directEligible(size int64, kind models.MediaKind) bool {
	return size > s.limits.DirectThreshold || kind == models.MediaKindVideo
}

// Select runs the validation sequence (first failure wins) and returns the
// routing plan. consents maps child id to the photo-consent flag; roster is
// the available-children list and fixes the order of names in
// ConsentMissingError.
//
// Validation order: identification, consent, per-file kind/format/size,
// aggregate size. The aggregate ceiling is waived when the batch routes
// direct, because the proxy is bypassed.
func (s *Selector) Select(files []models.FileInfo, sel models.TaggedChildSelection, consents map[string]bool, roster []models.Child) (Plan, error) {
	if len(files) == 0 {
		return Plan{Route: RouteNone}, nil
	}

	if sel.Empty() {
		return Plan{}, ErrIdentificationRequired
	}

	if !sel.NoChild {
		if names := deniedNames(sel.ChildIDs, consents, roster); len(names) > 0 {
			return Plan{}, &ConsentMissingError{Names: names}
		}
	}

	resolved := make([]models.FileInfo, len(files))
	var total int64
	anyDirect := false

	for i, f := range files {
		contentType := resolveContentType(f)

		kind, ok := kindOf(contentType)
		if !ok {
			return Plan{}, &UnsupportedKindError{File: f.Name, ContentType: contentType}
		}
		if !formatAllowed(kind, contentType) {
			return Plan{}, &UnsupportedFormatError{File: f.Name, ContentType: contentType}
		}

		direct := s.directEligible(f.Size, kind)
		if direct && s.directAvailable {
			anyDirect = true
		} else if f.Size > s.limits.PerFileMax {
			return Plan{}, &FileTooLargeError{File: f.Name, Size: f.Size}
		}

		f.ContentType = contentType
		resolved[i] = f
		total += f.Size
	}

	route := RouteProxied
	if anyDirect {
		route = RouteDirect
	}

	if route == RouteProxied && total > s.limits.BatchMax {
		return Plan{}, &BatchTooLargeError{Size: total}
	}

	return Plan{Route: route, Files: resolved}, nil
}

// deniedNames returns the display names of tagged children whose consent is
// false, ordered as in the roster. Tagged ids missing from the roster are
// appended by id; they are denied by default.
func deniedNames(tagged []string, consents map[string]bool, roster []models.Child) []string {
	taggedSet := make(map[string]struct{}, len(tagged))
	for _, id := range tagged {
		taggedSet[id] = struct{}{}
	}

	var names []string
	seen := make(map[string]struct{}, len(tagged))
	for _, child := range roster {
		if _, ok := taggedSet[child.ID]; !ok {
			continue
		}
		seen[child.ID] = struct{}{}
		if !consents[child.ID] {
			names = append(names, child.Name)
		}
	}
	for _, id := range tagged {
		if _, ok := seen[id]; !ok && !consents[id] {
			names = append(names, id)
		}
	}
	return names
}
