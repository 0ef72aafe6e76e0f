package editor_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davexplorer/davexplorer/dav"
	"github.com/davexplorer/davexplorer/editor"
	"github.com/davexplorer/davexplorer/share"
)

type fakeFile struct {
	mu      sync.Mutex
	content string
	failPut bool
	puts    int
}

func newEditor(t *testing.T) (*editor.Editor, *fakeFile, func()) {
	f := &fakeFile{content: "original"}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		switch {
		case r.Method == "GET":
			_, _ = io.WriteString(w, f.content)
		case r.Method == "PUT":
			f.puts++
			if f.failPut {
				http.Error(w, "storage full", http.StatusInsufficientStorage)
				return
			}
			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			f.content = string(body)
			// saving does not rewrite the timestamp header
			_, sent := r.Header["X-Oc-Mtime"]
			assert.False(t, sent, "X-OC-Mtime should not be sent on save")
			w.WriteHeader(http.StatusCreated)
		case r.Method == "POST" && r.URL.Path == "/api/common/Share":
			_, _ = io.WriteString(w, "TOK")
		default:
			http.Error(w, "unexpected", http.StatusBadRequest)
		}
	}))
	c, err := dav.New(&http.Client{}, dav.Options{URL: ts.URL})
	require.NoError(t, err)
	issuer := share.NewIssuer(&http.Client{}, ts.URL, "")
	entry := &dav.Entry{ID: 1, Name: "notes.txt", Path: "/docs/notes.txt", Type: "text/plain"}
	return editor.New(c, issuer, entry), f, ts.Close
}

func TestLoadAndSave(t *testing.T) {
	ed, f, tidy := newEditor(t)
	defer tidy()
	ctx := context.Background()

	text, err := ed.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "original", text)
	assert.Equal(t, "original", ed.Content())

	require.NoError(t, ed.Save(ctx, "edited"))
	assert.Equal(t, "edited", ed.Content())
	assert.Equal(t, "edited", f.content)
	assert.False(t, ed.Saving())
}

func TestSaveBeforeLoad(t *testing.T) {
	ed, f, tidy := newEditor(t)
	defer tidy()

	require.Error(t, ed.Save(context.Background(), "edited"))
	assert.Zero(t, f.puts)
}

func TestSaveFailureKeepsContent(t *testing.T) {
	ed, f, tidy := newEditor(t)
	defer tidy()
	ctx := context.Background()

	_, err := ed.Load(ctx)
	require.NoError(t, err)
	f.mu.Lock()
	f.failPut = true
	f.mu.Unlock()

	require.Error(t, ed.Save(ctx, "edited"))
	// the last good content stands, the failed text stays the
	// caller's to retry
	assert.Equal(t, "original", ed.Content())
	assert.False(t, ed.Saving())

	f.mu.Lock()
	f.failPut = false
	f.mu.Unlock()
	require.NoError(t, ed.Save(ctx, "edited"))
	assert.Equal(t, "edited", ed.Content())
}

func TestShare(t *testing.T) {
	ed, _, tidy := newEditor(t)
	defer tidy()

	token, err := ed.Share(context.Background(), share.Options{LifespanDays: 1})
	require.NoError(t, err)
	assert.Equal(t, "TOK", token)
}
