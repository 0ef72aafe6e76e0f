// Package editor fetches and re-submits the raw bytes of a text
// entry.
package editor

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/davexplorer/davexplorer/dav"
	"github.com/davexplorer/davexplorer/share"
)

// Editor edits one text entry. It moves between Loaded and Saving:
// while a save is in flight further saves and shares are rejected,
// and a failed save keeps the caller's in-progress text intact so no
// user data is lost.
type Editor struct {
	dav    *dav.Client
	issuer *share.Issuer
	entry  *dav.Entry

	mu      sync.Mutex
	content string
	loaded  bool
	saving  bool
}

// New creates an Editor for entry. Call Load before editing.
func New(c *dav.Client, issuer *share.Issuer, entry *dav.Entry) *Editor {
	return &Editor{dav: c, issuer: issuer, entry: entry}
}

// Entry returns the entry being edited
func (e *Editor) Entry() *dav.Entry {
	return e.entry
}

// Load fetches the current text of the entry.
func (e *Editor) Load(ctx context.Context) (string, error) {
	text, err := e.dav.GetString(ctx, e.entry.Path)
	if err != nil {
		return "", errors.Wrapf(err, "text content could not be fetched for %q", e.entry.Name)
	}
	e.mu.Lock()
	e.content = text
	e.loaded = true
	e.mu.Unlock()
	return text, nil
}

// Content returns the last successfully loaded or saved text.
func (e *Editor) Content() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.content
}

// Saving reports whether a save is in flight. Views disable their
// save, share and close controls while it is.
func (e *Editor) Saving() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.saving
}

// Save submits text as the new content of the entry. On failure the
// editor stays loaded with text untouched in the caller's hands; only
// a successful save replaces Content.
func (e *Editor) Save(ctx context.Context, text string) error {
	e.mu.Lock()
	if !e.loaded {
		e.mu.Unlock()
		return errors.New("editor content not loaded")
	}
	if e.saving {
		e.mu.Unlock()
		return errors.New("a save is already in flight")
	}
	e.saving = true
	e.mu.Unlock()

	err := e.dav.Put(ctx, e.entry.Path, strings.NewReader(text), int64(len(text)), time.Time{})

	e.mu.Lock()
	e.saving = false
	if err == nil {
		e.content = text
	}
	e.mu.Unlock()
	if err != nil {
		return errors.Wrapf(err, "text content could not be updated for %q", e.entry.Name)
	}
	return nil
}

// Share issues a grant for the entry being edited without leaving
// edit mode.
func (e *Editor) Share(ctx context.Context, opt share.Options) (string, error) {
	if e.Saving() {
		return "", errors.New("a save is already in flight")
	}
	return e.issuer.Issue(ctx, e.dav.AbsURL(e.entry.Path), opt)
}
