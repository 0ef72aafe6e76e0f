// Package explorer turns a remote WebDAV share into a navigable,
// mutable in-memory view. The listing it owns is the system of
// record: user interfaces render from it and every mutation goes
// through it first.
package explorer

import (
	"context"
	"fmt"
	"mime"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/davexplorer/davexplorer/dav"
	"github.com/davexplorer/davexplorer/dav/davpath"
	"github.com/davexplorer/davexplorer/lib/log"
	"github.com/davexplorer/davexplorer/share"
	"github.com/davexplorer/davexplorer/uploader"
)

// Errors returned by local validation, before any network call.
var (
	ErrReadOnly      = errors.New("share is mounted read-only")
	ErrExists        = errors.New("an entry with this name already exists")
	ErrClipboardBusy = errors.New("another cut or copy is awaiting paste")
)

// newFolderName is the name used for folder creation. Collisions are
// a server-side conflict, deliberately not de-duplicated here.
const newFolderName = "New Folder"

// grantLifespanDays is the lifespan of the grants issued for
// downloads, previews and external editing.
const grantLifespanDays = 1

// Config carries the collaborators an Explorer needs. Nothing is read
// from ambient state: current user, endpoints and capabilities all
// arrive here.
type Config struct {
	Dav        *dav.Client   // the share being explored
	Issuer     *share.Issuer // grants for download/preview/share
	GatewayURL string        // origin of the gateway, for editor redirects
	User       string        // current user name, informational
	ReadWrite  bool          // allow mutating operations

	// ShareLifespanDays is the default lifespan of interactive share
	// links. Zero means share.DefaultLifespanDays.
	ShareLifespanDays int
}

// Explorer owns the navigation state of one share: the current
// directory path and the in-memory listing.
type Explorer struct {
	dav    *dav.Client
	issuer *share.Issuer
	up     *uploader.Uploader
	cfg    Config

	mu        sync.Mutex
	path      string // always trailing-slash-normalized
	entries   []*dav.Entry
	nextID    int64
	gen       uint64 // navigation generation, guards stale replies
	clipboard *ClipboardIntent
}

// New creates an Explorer rooted at "/". Call Navigate to load the
// first listing.
func New(cfg Config) *Explorer {
	return &Explorer{
		dav:    cfg.Dav,
		issuer: cfg.Issuer,
		up:     uploader.New(cfg.Dav),
		cfg:    cfg,
		path:   "/",
		nextID: 1,
	}
}

// String converts this Explorer to a string
func (e *Explorer) String() string {
	return fmt.Sprintf("explorer at %q", e.Path())
}

// Path returns the current directory path.
func (e *Explorer) Path() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.path
}

// Entries returns a snapshot of the current listing in render order.
func (e *Explorer) Entries() []*dav.Entry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*dav.Entry(nil), e.entries...)
}

// ReadWrite reports whether mutating operations are allowed.
func (e *Explorer) ReadWrite() bool {
	return e.cfg.ReadWrite
}

// Navigate lists the directory at path and replaces the current
// listing with the result.
//
// On failure the previous listing stays visible - an error must not
// leave the view blank. If another navigation started while this one
// was in flight the reply is discarded: only results relevant to the
// newest path may be applied, checked when the response arrives.
func (e *Explorer) Navigate(ctx context.Context, dirPath string) error {
	dirPath = dav.AddSlash(dirPath)
	e.mu.Lock()
	e.gen++
	gen := e.gen
	e.mu.Unlock()

	entries, err := e.dav.List(ctx, dirPath)
	if err != nil {
		return errors.Wrapf(err, "files could not be fetched for %q", dirPath)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.gen {
		// a newer navigation superseded this reply
		log.Debugf(e, "dropping stale listing for %q", dirPath)
		return nil
	}
	e.path = dirPath
	e.entries = entries
	e.nextID = int64(len(entries)) + 1
	return nil
}

// Up navigates to the parent of the current directory.
func (e *Explorer) Up(ctx context.Context) error {
	return e.Navigate(ctx, davpath.ParentOf(e.Path()))
}

// append adds an entry to the listing with the next session-local ID.
// Call with e.mu held.
func (e *Explorer) append(entry *dav.Entry) {
	entry.ID = e.nextID
	e.nextID++
	e.entries = append(e.entries, entry)
}

// removeByID drops the entry with the given ID from the listing.
// Call with e.mu held.
func (e *Explorer) removeByID(id int64) {
	for i, entry := range e.entries {
		if entry.ID == id {
			e.entries = append(e.entries[:i], e.entries[i+1:]...)
			return
		}
	}
}

// find returns the entry with the given name, or nil. Call with e.mu
// held.
func (e *Explorer) find(name string) *dav.Entry {
	for _, entry := range e.entries {
		if entry.Name == name {
			return entry
		}
	}
	return nil
}

// mimeTypeOf derives a content type from a file name the way the
// server would, for locally synthesized entries.
func mimeTypeOf(name string) string {
	if t := mime.TypeByExtension(strings.ToLower(path.Ext(name))); t != "" {
		return t
	}
	return "application/octet-stream"
}

// now is stubbed in tests
var now = time.Now
