package upload

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dkravets/kitafeed/internal/client/models"
)

var testRoster = []models.Child{
	{ID: "c-alice", Name: "Alice"},
	{ID: "c-bob", Name: "Bob"},
	{ID: "c-carla", Name: "Carla"},
}

func jpeg(name string, size int64) models.FileInfo {
	return models.FileInfo{Name: name, Size: size, ContentType: "image/jpeg"}
}

func mp4(name string, size int64) models.FileInfo {
	return models.FileInfo{Name: name, Size: size, ContentType: "video/mp4"}
}

func tagged(ids ...string) models.TaggedChildSelection {
	return models.TaggedChildSelection{ChildIDs: ids}
}

var noChild = models.TaggedChildSelection{NoChild: true}

func TestSelect_NoFiles(t *testing.T) {
	s := NewSelector(DefaultLimits(), false)
	plan, err := s.Select(nil, models.TaggedChildSelection{}, nil, testRoster)
	require.NoError(t, err)
	require.Equal(t, RouteNone, plan.Route)
}

func TestSelect_IdentificationRequired(t *testing.T) {
	s := NewSelector(DefaultLimits(), true)
	_, err := s.Select([]models.FileInfo{jpeg("a.jpg", 100)}, models.TaggedChildSelection{}, nil, testRoster)
	require.ErrorIs(t, err, ErrIdentificationRequired)
}

func TestSelect_ConsentMissing_NamesInRosterOrder(t *testing.T) {
	s := NewSelector(DefaultLimits(), true)

	// Tagged out of roster order; denied names must follow the roster.
	_, err := s.Select([]models.FileInfo{jpeg("a.jpg", 100)},
		tagged("c-carla", "c-alice", "c-bob"),
		map[string]bool{"c-bob": true}, testRoster)

	var cm *ConsentMissingError
	require.ErrorAs(t, err, &cm)
	require.Equal(t, []string{"Alice", "Carla"}, cm.Names)
}

func TestSelect_EscapeFlagSkipsConsent(t *testing.T) {
	s := NewSelector(DefaultLimits(), false)
	plan, err := s.Select([]models.FileInfo{jpeg("a.jpg", 100)}, noChild, nil, testRoster)
	require.NoError(t, err)
	require.Equal(t, RouteProxied, plan.Route)
}

func TestSelect_UnsupportedKind(t *testing.T) {
	s := NewSelector(DefaultLimits(), true)
	files := []models.FileInfo{{Name: "notes.pdf", Size: 10, ContentType: "application/pdf"}}

	_, err := s.Select(files, noChild, nil, testRoster)

	var uk *UnsupportedKindError
	require.ErrorAs(t, err, &uk)
	require.Equal(t, "notes.pdf", uk.File)
}

func TestSelect_UnsupportedFormat(t *testing.T) {
	s := NewSelector(DefaultLimits(), true)
	files := []models.FileInfo{{Name: "scan.tiff", Size: 10, ContentType: "image/tiff"}}

	_, err := s.Select(files, noChild, nil, testRoster)

	var uf *UnsupportedFormatError
	require.ErrorAs(t, err, &uf)
	require.Equal(t, "image/tiff", uf.ContentType)
}

func TestSelect_SniffsMissingContentType(t *testing.T) {
	s := NewSelector(DefaultLimits(), false)
	pngSig := []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}
	files := []models.FileInfo{{Name: "pic", Size: int64(len(pngSig)), Data: pngSig}}

	plan, err := s.Select(files, noChild, nil, testRoster)
	require.NoError(t, err)
	require.Equal(t, "image/png", plan.Files[0].ContentType)
}

func TestSelect_FileTooLarge_ProxiedOnly(t *testing.T) {
	limits := DefaultLimits()
	big := jpeg("big.jpg", limits.PerFileMax+1)

	// No direct backend: over the proxy's per-file ceiling.
	_, err := NewSelector(limits, false).Select([]models.FileInfo{big}, noChild, nil, testRoster)
	var fl *FileTooLargeError
	require.ErrorAs(t, err, &fl)

	// Same file passes when a direct backend is configured.
	plan, err := NewSelector(limits, true).Select([]models.FileInfo{big}, noChild, nil, testRoster)
	require.NoError(t, err)
	require.Equal(t, RouteDirect, plan.Route)
}

func TestSelect_BatchTooLarge_WaivedOnDirectRoute(t *testing.T) {
	limits := Limits{PerFileMax: 10 << 20, BatchMax: 15 << 20, DirectThreshold: 8 << 20}
	files := []models.FileInfo{
		jpeg("a.jpg", 9<<20),
		jpeg("b.jpg", 9<<20),
	}

	_, err := NewSelector(limits, false).Select(files, noChild, nil, testRoster)
	var bl *BatchTooLargeError
	require.ErrorAs(t, err, &bl)

	// Oversized files are direct-eligible, so the proxy is bypassed and the
	// aggregate ceiling does not apply.
	plan, err := NewSelector(limits, true).Select(files, noChild, nil, testRoster)
	require.NoError(t, err)
	require.Equal(t, RouteDirect, plan.Route)
}

func TestSelect_VideoRoutesDirect(t *testing.T) {
	s := NewSelector(DefaultLimits(), true)
	plan, err := s.Select([]models.FileInfo{mp4("clip.mp4", 1 << 20)}, noChild, nil, testRoster)
	require.NoError(t, err)
	require.Equal(t, RouteDirect, plan.Route)
}

func TestSelect_SmallImagesRouteProxied(t *testing.T) {
	s := NewSelector(DefaultLimits(), true)
	files := []models.FileInfo{jpeg("a.jpg", 2<<20), jpeg("b.jpg", 3<<20)}
	plan, err := s.Select(files, noChild, nil, testRoster)
	require.NoError(t, err)
	require.Equal(t, RouteProxied, plan.Route)
}

func TestSelect_MixedBatchRoutesWholeBatchDirect(t *testing.T) {
	s := NewSelector(DefaultLimits(), true)
	files := []models.FileInfo{jpeg("a.jpg", 1<<20), mp4("clip.mp4", 20<<20)}
	plan, err := s.Select(files, noChild, nil, testRoster)
	require.NoError(t, err)
	require.Equal(t, RouteDirect, plan.Route)
	require.Len(t, plan.Files, 2)
}
