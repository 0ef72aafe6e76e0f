package viewer_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davexplorer/davexplorer/dav"
	"github.com/davexplorer/davexplorer/filetype"
	"github.com/davexplorer/davexplorer/share"
	"github.com/davexplorer/davexplorer/viewer"
)

// listing the viewer steps through: directories, documents and
// unclassified files must be skipped.
func testEntries() []*dav.Entry {
	return []*dav.Entry{
		{ID: 1, Name: "Sub", Path: "/docs/Sub/", IsDir: true, Type: dav.DirType},
		{ID: 2, Name: "notes.txt", Path: "/docs/notes.txt", Type: "text/plain"},
		{ID: 3, Name: "report.docx", Path: "/docs/report.docx", Type: "application/msword"},
		{ID: 4, Name: "archive.zip", Path: "/docs/archive.zip", Type: "application/zip"},
		{ID: 5, Name: "photo.jpg", Path: "/docs/photo.jpg", Type: "image/jpeg"},
	}
}

func newViewer(t *testing.T, index int) (*viewer.Viewer, *dav.Client, func()) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == "GET":
			_, _ = io.WriteString(w, "text body")
		case r.Method == "POST" && r.URL.Path == "/api/common/Share":
			_, _ = io.WriteString(w, "TOK")
		default:
			http.Error(w, "unexpected", http.StatusBadRequest)
		}
	}))
	c, err := dav.New(&http.Client{}, dav.Options{URL: ts.URL})
	require.NoError(t, err)
	issuer := share.NewIssuer(&http.Client{}, ts.URL, "")
	return viewer.New(c, issuer, testEntries(), index), c, ts.Close
}

func TestLoadText(t *testing.T) {
	v, _, tidy := newViewer(t, 1)
	defer tidy()

	content, err := v.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filetype.KindText, content.Kind)
	assert.Equal(t, "text body", content.Text)
	assert.Empty(t, content.URL)
}

func TestLoadMediaIssuesGrant(t *testing.T) {
	v, c, tidy := newViewer(t, 4)
	defer tidy()

	content, err := v.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filetype.KindImage, content.Kind)
	assert.Empty(t, content.Text)
	assert.Equal(t, c.AbsURL("/docs/photo.jpg")+"?token=TOK", content.URL)
}

func TestLoadNotPreviewable(t *testing.T) {
	v, _, tidy := newViewer(t, 3)
	defer tidy()

	_, err := v.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not previewable")
}

func TestSeekSkipsIneligibleEntries(t *testing.T) {
	v, _, tidy := newViewer(t, 1)
	defer tidy()
	ctx := context.Background()

	// forward from notes.txt: docx and zip are skipped, photo.jpg is next
	content, err := v.Seek(ctx, true)
	require.NoError(t, err)
	require.NotNil(t, content)
	assert.Equal(t, "photo.jpg", content.Entry.Name)

	// backward from photo.jpg lands on notes.txt again
	content, err = v.Seek(ctx, false)
	require.NoError(t, err)
	require.NotNil(t, content)
	assert.Equal(t, "notes.txt", content.Entry.Name)
}

func TestSeekAtEdgeIsNoOp(t *testing.T) {
	v, _, tidy := newViewer(t, 4)
	defer tidy()
	ctx := context.Background()

	content, err := v.Seek(ctx, true)
	require.NoError(t, err)
	assert.Nil(t, content)
	// the view is unchanged
	assert.Equal(t, "photo.jpg", v.Entry().Name)
}

func TestSeekBackwardStopsBeforeDirectory(t *testing.T) {
	v, _, tidy := newViewer(t, 1)
	defer tidy()

	// the only earlier entry is a directory, so this is a no-op
	content, err := v.Seek(context.Background(), false)
	require.NoError(t, err)
	assert.Nil(t, content)
	assert.Equal(t, "notes.txt", v.Entry().Name)
}
