package explorer

import (
	"context"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/davexplorer/davexplorer/dav"
	"github.com/davexplorer/davexplorer/dav/davpath"
)

// Rename moves entry to a new name inside the current directory and
// mutates the entry in place on success. A failed rename leaves the
// entry untouched - there is no optimistic rename.
func (e *Explorer) Rename(ctx context.Context, entry *dav.Entry, newName string) error {
	if !e.cfg.ReadWrite {
		return ErrReadOnly
	}
	dest := davpath.ChildOf(e.Path(), newName)
	if entry.IsDir {
		dest = dav.AddSlash(dest)
	}
	if err := e.dav.Move(ctx, entry.Path, dest); err != nil {
		return errors.Wrapf(err, "file %q could not be renamed", entry.Name)
	}
	e.mu.Lock()
	entry.Name = newName
	entry.Path = dest
	e.mu.Unlock()
	return nil
}

// ClipboardIntent is the single outstanding cut/copy awaiting paste.
type ClipboardIntent struct {
	Entry  *dav.Entry
	IsCopy bool
}

// Cut marks entry for a later move. At most one intent may be
// outstanding; further cut/copy attempts are rejected, not queued.
func (e *Explorer) Cut(entry *dav.Entry) error {
	return e.setClipboard(entry, false)
}

// CopyEntry marks entry for a later copy.
func (e *Explorer) CopyEntry(entry *dav.Entry) error {
	return e.setClipboard(entry, true)
}

func (e *Explorer) setClipboard(entry *dav.Entry, isCopy bool) error {
	if !e.cfg.ReadWrite {
		return ErrReadOnly
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.clipboard != nil {
		return ErrClipboardBusy
	}
	e.clipboard = &ClipboardIntent{Entry: entry, IsCopy: isCopy}
	return nil
}

// Clipboard returns the outstanding intent, or nil.
func (e *Explorer) Clipboard() *ClipboardIntent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clipboard
}

// CancelClipboard discards the outstanding intent without any network
// call.
func (e *Explorer) CancelClipboard() {
	e.mu.Lock()
	e.clipboard = nil
	e.mu.Unlock()
}

// Paste resolves the outstanding intent into the current directory:
// MOVE for cut, COPY for copy. Source and destination directories
// both changed, so the view re-navigates rather than attempting a
// risky local patch. The intent is consumed whatever the outcome.
func (e *Explorer) Paste(ctx context.Context) error {
	e.mu.Lock()
	intent := e.clipboard
	e.clipboard = nil
	dirPath := e.path
	e.mu.Unlock()
	if intent == nil {
		return errors.New("nothing to paste")
	}
	dest := davpath.ChildOf(dirPath, intent.Entry.Name)
	if intent.Entry.IsDir {
		dest = dav.AddSlash(dest)
	}
	var err error
	if intent.IsCopy {
		err = e.dav.CopyTo(ctx, intent.Entry.Path, dest)
	} else {
		err = e.dav.Move(ctx, intent.Entry.Path, dest)
	}
	if err != nil {
		return errors.Wrapf(err, "file %q could not be pasted", intent.Entry.Name)
	}
	return e.Navigate(ctx, dirPath)
}

// NewFolder creates "New Folder" in the current directory and appends
// it locally on success, without a re-list. Name collisions are the
// server's call and surface as its error.
func (e *Explorer) NewFolder(ctx context.Context) (*dav.Entry, error) {
	if !e.cfg.ReadWrite {
		return nil, ErrReadOnly
	}
	dirPath := e.Path()
	folderPath := dav.AddSlash(davpath.ChildOf(dirPath, newFolderName))
	if err := e.dav.Mkcol(ctx, folderPath); err != nil {
		return nil, errors.Wrap(err, "folder could not be created")
	}
	entry := &dav.Entry{
		Name:         newFolderName,
		Path:         folderPath,
		IsDir:        true,
		Type:         dav.DirType,
		LastModified: now(),
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.path == dirPath {
		e.append(entry)
	}
	return entry, nil
}

// NewTextFile creates an empty text file named name in the current
// directory. Unlike NewFolder it fails fast on a local name collision
// before issuing any request.
func (e *Explorer) NewTextFile(ctx context.Context, name string) (*dav.Entry, error) {
	if !e.cfg.ReadWrite {
		return nil, ErrReadOnly
	}
	e.mu.Lock()
	dirPath := e.path
	existing := e.find(name)
	e.mu.Unlock()
	if existing != nil {
		return nil, errors.Wrapf(ErrExists, "%q", name)
	}
	filePath := davpath.ChildOf(dirPath, name)
	if err := e.dav.Put(ctx, filePath, strings.NewReader(""), 0, now()); err != nil {
		return nil, errors.Wrapf(err, "file %q could not be created", name)
	}
	entry := &dav.Entry{
		Name:         name,
		Path:         filePath,
		Type:         mimeTypeOf(name),
		LastModified: now(),
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.path == dirPath {
		e.append(entry)
	}
	return entry, nil
}

// DeleteConfirm is the pending confirmation rendered before a delete
// goes out. Confirm issues the DELETE, Cancel discards it.
type DeleteConfirm struct {
	e     *Explorer
	entry *dav.Entry

	mu       sync.Mutex
	resolved bool
	inFlight bool
}

// Delete prepares the deletion of entry. Nothing is sent until the
// returned confirmation is confirmed.
func (e *Explorer) Delete(entry *dav.Entry) (*DeleteConfirm, error) {
	if !e.cfg.ReadWrite {
		return nil, ErrReadOnly
	}
	return &DeleteConfirm{e: e, entry: entry}, nil
}

// Entry returns the entry awaiting deletion
func (d *DeleteConfirm) Entry() *dav.Entry {
	return d.entry
}

// Confirm issues the DELETE. On success only this entry disappears
// from the view; on failure it remains and the error is surfaced.
// The confirmation is single-shot and rejects re-entry while its own
// request is outstanding.
func (d *DeleteConfirm) Confirm(ctx context.Context) error {
	d.mu.Lock()
	if d.resolved || d.inFlight {
		d.mu.Unlock()
		return errors.New("delete already resolved")
	}
	d.inFlight = true
	d.mu.Unlock()

	err := d.e.dav.Delete(ctx, d.entry.Path)

	d.mu.Lock()
	d.inFlight = false
	d.resolved = true
	d.mu.Unlock()
	if err != nil {
		return errors.Wrapf(err, "file %q could not be deleted", d.entry.Name)
	}
	d.e.mu.Lock()
	d.e.removeByID(d.entry.ID)
	d.e.mu.Unlock()
	return nil
}

// Cancel discards the pending deletion with no network call.
func (d *DeleteConfirm) Cancel() {
	d.mu.Lock()
	d.resolved = true
	d.mu.Unlock()
}
