package explorer_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davexplorer/davexplorer/dav"
	"github.com/davexplorer/davexplorer/explorer"
	"github.com/davexplorer/davexplorer/share"
)

type fakeEntry struct {
	name  string
	isDir bool
	size  int64
	ctype string
}

// fakeGateway serves canned PROPFIND listings and accepts the
// mutating methods, recording every request it sees.
type fakeGateway struct {
	t        *testing.T
	listings map[string][]fakeEntry

	mu          sync.Mutex
	requests    []string                 // "METHOD path"
	fail        map[string]int           // "METHOD path" -> status
	dests       map[string]string        // "METHOD path" -> Destination header
	delays      map[string]chan struct{} // "METHOD path" -> served once closed
	shareBodies []string                 // JSON bodies of the share POSTs
	putStarted  chan struct{}            // closed on the first PUT, if set
	putOnce     sync.Once
}

func newFakeGateway(t *testing.T) *fakeGateway {
	return &fakeGateway{
		t: t,
		listings: map[string][]fakeEntry{
			"/": {{name: "docs", isDir: true}},
			"/docs/": {
				{name: "Sub", isDir: true},
				{name: "a.txt", size: 3, ctype: "text/plain"},
				{name: "b.txt", size: 5, ctype: "text/plain"},
				{name: "photo.jpg", size: 100, ctype: "image/jpeg"},
				{name: "report.docx", size: 900, ctype: "application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
			},
			"/docs/Sub/": {},
		},
		fail:   map[string]int{},
		dests:  map[string]string{},
		delays: map[string]chan struct{}{},
	}
}

func (g *fakeGateway) key(r *http.Request) string {
	return r.Method + " " + r.URL.RequestURI()
}

func (g *fakeGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := g.key(r)
	g.mu.Lock()
	g.requests = append(g.requests, key)
	failCode := g.fail[key]
	if d := r.Header.Get("Destination"); d != "" {
		g.dests[key] = d
	}
	delay := g.delays[key]
	g.mu.Unlock()

	if delay != nil {
		<-delay
	}

	if r.Method == "POST" && r.URL.Path == "/api/common/Share" {
		body, _ := io.ReadAll(r.Body)
		g.mu.Lock()
		g.shareBodies = append(g.shareBodies, string(body))
		g.mu.Unlock()
		_, _ = fmt.Fprint(w, "TOK")
		return
	}
	if failCode != 0 {
		http.Error(w, "nope", failCode)
		return
	}
	switch r.Method {
	case "PROPFIND":
		listing, ok := g.listings[r.URL.Path]
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusMultiStatus)
		_, _ = fmt.Fprint(w, g.listingXML(r.URL.Path, listing))
	case "MOVE", "COPY", "MKCOL":
		w.WriteHeader(http.StatusCreated)
	case "PUT":
		if g.putStarted != nil {
			g.putOnce.Do(func() { close(g.putStarted) })
		}
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusCreated)
	case "DELETE":
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "unexpected method "+r.Method, http.StatusMethodNotAllowed)
	}
}

func (g *fakeGateway) listingXML(dir string, entries []fakeEntry) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="utf-8"?><D:multistatus xmlns:D="DAV:">`)
	writeNode := func(href, name string, e *fakeEntry) {
		b.WriteString("<D:response><D:href>" + href + "</D:href><D:propstat><D:prop>")
		b.WriteString("<D:displayname>" + name + "</D:displayname>")
		if e == nil || e.isDir {
			b.WriteString("<D:resourcetype><D:collection/></D:resourcetype>")
		} else {
			b.WriteString("<D:resourcetype/>")
			b.WriteString("<D:getcontenttype>" + e.ctype + "</D:getcontenttype>")
			b.WriteString(fmt.Sprintf("<D:getcontentlength>%d</D:getcontentlength>", e.size))
		}
		b.WriteString("<D:getlastmodified>Wed, 27 Sep 2017 14:28:34 GMT</D:getlastmodified>")
		b.WriteString("</D:prop><D:status>HTTP/1.1 200 OK</D:status></D:propstat></D:response>")
	}
	writeNode(dir, strings.Trim(dir, "/"), nil)
	for i := range entries {
		e := &entries[i]
		href := dir + url.PathEscape(e.name)
		if e.isDir {
			href += "/"
		}
		writeNode(href, e.name, e)
	}
	b.WriteString("</D:multistatus>")
	return b.String()
}

// sent reports whether a request matching key was seen.
func (g *fakeGateway) sent(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, r := range g.requests {
		if r == key {
			return true
		}
	}
	return false
}

func (g *fakeGateway) destination(key string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.dests[key]
}

// lastShareBody returns the JSON body of the most recent share POST.
func (g *fakeGateway) lastShareBody() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.shareBodies) == 0 {
		return ""
	}
	return g.shareBodies[len(g.shareBodies)-1]
}

func newExplorer(t *testing.T, readWrite bool) (*explorer.Explorer, *fakeGateway, *dav.Client, func()) {
	g := newFakeGateway(t)
	ts := httptest.NewServer(g)
	c, err := dav.New(&http.Client{}, dav.Options{URL: ts.URL, XSRFToken: "csrf"})
	require.NoError(t, err)
	ex := explorer.New(explorer.Config{
		Dav:        c,
		Issuer:     share.NewIssuer(&http.Client{}, ts.URL, "csrf"),
		GatewayURL: ts.URL,
		User:       "alice",
		ReadWrite:  readWrite,
	})
	return ex, g, c, ts.Close
}

func entryNamed(t *testing.T, ex *explorer.Explorer, name string) *dav.Entry {
	for _, e := range ex.Entries() {
		if e.Name == name {
			return e
		}
	}
	t.Fatalf("no entry named %q in %q", name, ex.Path())
	return nil
}

func TestNavigate(t *testing.T) {
	ex, _, _, tidy := newExplorer(t, true)
	defer tidy()
	ctx := context.Background()

	require.NoError(t, ex.Navigate(ctx, "/docs/"))
	assert.Equal(t, "/docs/", ex.Path())
	entries := ex.Entries()
	require.Len(t, entries, 5)
	// directories first, then case-insensitive name order, 1-based IDs
	assert.Equal(t, "Sub", entries[0].Name)
	assert.True(t, entries[0].IsDir)
	assert.Equal(t, "a.txt", entries[1].Name)
	for i, e := range entries {
		assert.Equal(t, int64(i+1), e.ID)
	}
}

func TestNavigateFailureKeepsListing(t *testing.T) {
	ex, _, _, tidy := newExplorer(t, true)
	defer tidy()
	ctx := context.Background()

	require.NoError(t, ex.Navigate(ctx, "/docs/"))
	before := ex.Entries()

	err := ex.Navigate(ctx, "/missing/")
	require.Error(t, err)
	// the previous listing stays visible, the view is never blanked
	assert.Equal(t, "/docs/", ex.Path())
	assert.Equal(t, before, ex.Entries())
}

func TestNavigateStaleReplyDropped(t *testing.T) {
	ex, g, _, tidy := newExplorer(t, true)
	defer tidy()
	ctx := context.Background()

	release := make(chan struct{})
	g.mu.Lock()
	g.delays["PROPFIND /docs/"] = release
	g.mu.Unlock()

	slowDone := make(chan error, 1)
	go func() {
		slowDone <- ex.Navigate(ctx, "/docs/")
	}()
	// wait until the slow listing request is held by the server
	require.Eventually(t, func() bool {
		return g.sent("PROPFIND /docs/")
	}, 5*time.Second, 10*time.Millisecond)

	// a newer navigation completes first
	require.NoError(t, ex.Navigate(ctx, "/docs/Sub/"))
	require.Equal(t, "/docs/Sub/", ex.Path())

	// now the superseded reply arrives and must be discarded
	close(release)
	require.NoError(t, <-slowDone)
	assert.Equal(t, "/docs/Sub/", ex.Path())
	assert.Empty(t, ex.Entries())
}

func TestUp(t *testing.T) {
	ex, _, _, tidy := newExplorer(t, true)
	defer tidy()
	ctx := context.Background()

	require.NoError(t, ex.Navigate(ctx, "/docs/Sub/"))
	require.NoError(t, ex.Up(ctx))
	assert.Equal(t, "/docs/", ex.Path())
	require.NoError(t, ex.Up(ctx))
	assert.Equal(t, "/", ex.Path())
	// the root is its own parent
	require.NoError(t, ex.Up(ctx))
	assert.Equal(t, "/", ex.Path())
}

func TestRename(t *testing.T) {
	ex, g, c, tidy := newExplorer(t, true)
	defer tidy()
	ctx := context.Background()
	require.NoError(t, ex.Navigate(ctx, "/docs/"))

	entry := entryNamed(t, ex, "a.txt")
	require.NoError(t, ex.Rename(ctx, entry, "renamed two.txt"))
	assert.Equal(t, "renamed two.txt", entry.Name)
	assert.Equal(t, "/docs/renamed%20two.txt", entry.Path)
	assert.Equal(t, c.AbsURL("/docs/renamed%20two.txt"), g.destination("MOVE /docs/a.txt"))
}

func TestRenameFailureLeavesEntry(t *testing.T) {
	ex, g, _, tidy := newExplorer(t, true)
	defer tidy()
	ctx := context.Background()
	require.NoError(t, ex.Navigate(ctx, "/docs/"))
	g.fail["MOVE /docs/a.txt"] = http.StatusConflict

	entry := entryNamed(t, ex, "a.txt")
	err := ex.Rename(ctx, entry, "taken.txt")
	require.Error(t, err)
	assert.Equal(t, "a.txt", entry.Name)
	assert.Equal(t, "/docs/a.txt", entry.Path)
}

func TestRenameReadOnly(t *testing.T) {
	ex, g, _, tidy := newExplorer(t, false)
	defer tidy()
	ctx := context.Background()
	require.NoError(t, ex.Navigate(ctx, "/docs/"))

	err := ex.Rename(ctx, entryNamed(t, ex, "a.txt"), "new.txt")
	assert.ErrorIs(t, err, explorer.ErrReadOnly)
	assert.False(t, g.sent("MOVE /docs/a.txt"))
}

func TestCutPasteAcrossDirectories(t *testing.T) {
	ex, g, c, tidy := newExplorer(t, true)
	defer tidy()
	ctx := context.Background()
	require.NoError(t, ex.Navigate(ctx, "/docs/"))

	require.NoError(t, ex.Cut(entryNamed(t, ex, "a.txt")))
	// the intent survives navigation
	require.NoError(t, ex.Navigate(ctx, "/docs/Sub/"))
	require.NotNil(t, ex.Clipboard())

	require.NoError(t, ex.Paste(ctx))
	assert.Equal(t, c.AbsURL("/docs/Sub/a.txt"), g.destination("MOVE /docs/a.txt"))
	// the view re-lists rather than patching locally
	assert.Equal(t, "/docs/Sub/", ex.Path())
	assert.Nil(t, ex.Clipboard())
}

func TestCopyPaste(t *testing.T) {
	ex, g, c, tidy := newExplorer(t, true)
	defer tidy()
	ctx := context.Background()
	require.NoError(t, ex.Navigate(ctx, "/docs/"))

	require.NoError(t, ex.CopyEntry(entryNamed(t, ex, "photo.jpg")))
	require.NoError(t, ex.Navigate(ctx, "/docs/Sub/"))
	require.NoError(t, ex.Paste(ctx))
	assert.Equal(t, c.AbsURL("/docs/Sub/photo.jpg"), g.destination("COPY /docs/photo.jpg"))
}

func TestClipboardSingleIntent(t *testing.T) {
	ex, _, _, tidy := newExplorer(t, true)
	defer tidy()
	ctx := context.Background()
	require.NoError(t, ex.Navigate(ctx, "/docs/"))

	require.NoError(t, ex.Cut(entryNamed(t, ex, "a.txt")))
	// a second intent is rejected, not queued and not replacing
	assert.ErrorIs(t, ex.Cut(entryNamed(t, ex, "b.txt")), explorer.ErrClipboardBusy)
	assert.ErrorIs(t, ex.CopyEntry(entryNamed(t, ex, "b.txt")), explorer.ErrClipboardBusy)
	assert.Equal(t, "a.txt", ex.Clipboard().Entry.Name)

	ex.CancelClipboard()
	assert.Nil(t, ex.Clipboard())
	require.NoError(t, ex.CopyEntry(entryNamed(t, ex, "b.txt")))
}

func TestPasteNothing(t *testing.T) {
	ex, _, _, tidy := newExplorer(t, true)
	defer tidy()
	ctx := context.Background()
	require.NoError(t, ex.Navigate(ctx, "/docs/"))
	require.Error(t, ex.Paste(ctx))
}

func TestPasteFailureConsumesIntent(t *testing.T) {
	ex, g, _, tidy := newExplorer(t, true)
	defer tidy()
	ctx := context.Background()
	require.NoError(t, ex.Navigate(ctx, "/docs/"))
	g.fail["MOVE /docs/a.txt"] = http.StatusConflict

	require.NoError(t, ex.Cut(entryNamed(t, ex, "a.txt")))
	require.Error(t, ex.Paste(ctx))
	// the intent is spent either way
	assert.Nil(t, ex.Clipboard())
}

func TestNewFolder(t *testing.T) {
	ex, g, _, tidy := newExplorer(t, true)
	defer tidy()
	ctx := context.Background()
	require.NoError(t, ex.Navigate(ctx, "/docs/"))
	n := len(ex.Entries())

	entry, err := ex.NewFolder(ctx)
	require.NoError(t, err)
	assert.True(t, g.sent("MKCOL /docs/New%20Folder/"))
	assert.Equal(t, "New Folder", entry.Name)
	assert.Equal(t, "/docs/New%20Folder/", entry.Path)
	assert.True(t, entry.IsDir)
	// appended locally without a re-list, with the next local ID
	entries := ex.Entries()
	require.Len(t, entries, n+1)
	assert.Equal(t, entry, entries[n])
	assert.Equal(t, int64(n+1), entry.ID)
}

func TestNewFolderServerConflict(t *testing.T) {
	ex, g, _, tidy := newExplorer(t, true)
	defer tidy()
	ctx := context.Background()
	require.NoError(t, ex.Navigate(ctx, "/docs/"))
	g.fail["MKCOL /docs/New%20Folder/"] = http.StatusMethodNotAllowed
	n := len(ex.Entries())

	_, err := ex.NewFolder(ctx)
	require.Error(t, err)
	assert.Len(t, ex.Entries(), n)
}

func TestNewTextFile(t *testing.T) {
	ex, g, _, tidy := newExplorer(t, true)
	defer tidy()
	ctx := context.Background()
	require.NoError(t, ex.Navigate(ctx, "/docs/"))

	entry, err := ex.NewTextFile(ctx, "todo.txt")
	require.NoError(t, err)
	assert.True(t, g.sent("PUT /docs/todo.txt"))
	assert.Equal(t, "todo.txt", entry.Name)
	assert.Equal(t, "/docs/todo.txt", entry.Path)
	assert.False(t, entry.IsDir)
	assert.True(t, strings.HasPrefix(entry.Type, "text/plain"))
	assert.Equal(t, entry, ex.Entries()[len(ex.Entries())-1])
}

func TestNewTextFileCollisionFailsFast(t *testing.T) {
	ex, g, _, tidy := newExplorer(t, true)
	defer tidy()
	ctx := context.Background()
	require.NoError(t, ex.Navigate(ctx, "/docs/"))

	_, err := ex.NewTextFile(ctx, "a.txt")
	assert.ErrorIs(t, err, explorer.ErrExists)
	// rejected locally, nothing was sent
	assert.False(t, g.sent("PUT /docs/a.txt"))
}

func TestDeleteConfirm(t *testing.T) {
	ex, g, _, tidy := newExplorer(t, true)
	defer tidy()
	ctx := context.Background()
	require.NoError(t, ex.Navigate(ctx, "/docs/"))
	entry := entryNamed(t, ex, "b.txt")

	confirm, err := ex.Delete(entry)
	require.NoError(t, err)
	// nothing is sent until the user confirms
	assert.False(t, g.sent("DELETE /docs/b.txt"))

	require.NoError(t, confirm.Confirm(ctx))
	assert.True(t, g.sent("DELETE /docs/b.txt"))
	for _, e := range ex.Entries() {
		assert.NotEqual(t, "b.txt", e.Name)
	}
	// the confirmation is single-shot
	require.Error(t, confirm.Confirm(ctx))
}

func TestDeleteCancel(t *testing.T) {
	ex, g, _, tidy := newExplorer(t, true)
	defer tidy()
	ctx := context.Background()
	require.NoError(t, ex.Navigate(ctx, "/docs/"))

	confirm, err := ex.Delete(entryNamed(t, ex, "b.txt"))
	require.NoError(t, err)
	confirm.Cancel()
	require.Error(t, confirm.Confirm(ctx))
	assert.False(t, g.sent("DELETE /docs/b.txt"))
	assert.NotNil(t, entryNamed(t, ex, "b.txt"))
}

func TestDeleteFailureKeepsEntry(t *testing.T) {
	ex, g, _, tidy := newExplorer(t, true)
	defer tidy()
	ctx := context.Background()
	require.NoError(t, ex.Navigate(ctx, "/docs/"))
	g.fail["DELETE /docs/b.txt"] = http.StatusForbidden

	confirm, err := ex.Delete(entryNamed(t, ex, "b.txt"))
	require.NoError(t, err)
	require.Error(t, confirm.Confirm(ctx))
	assert.NotNil(t, entryNamed(t, ex, "b.txt"))
}

func TestDeleteReadOnly(t *testing.T) {
	ex, _, _, tidy := newExplorer(t, false)
	defer tidy()
	require.NoError(t, ex.Navigate(context.Background(), "/docs/"))
	_, err := ex.Delete(entryNamed(t, ex, "b.txt"))
	assert.ErrorIs(t, err, explorer.ErrReadOnly)
}
