package explorer

import (
	"context"
	"net/url"
	"strconv"

	"github.com/pkg/errors"

	"github.com/davexplorer/davexplorer/dav"
	"github.com/davexplorer/davexplorer/editor"
	"github.com/davexplorer/davexplorer/filetype"
	"github.com/davexplorer/davexplorer/share"
	"github.com/davexplorer/davexplorer/uploader"
	"github.com/davexplorer/davexplorer/viewer"
)

// RejectedUpload reports a file refused before any network call.
type RejectedUpload struct {
	Name string
	Err  error
}

// Upload starts one independent session per file into the current
// directory. Files whose name already exists in the listing are
// rejected locally and reported in the second return value without
// aborting their siblings. On a read-only share every file is
// rejected with ErrReadOnly.
//
// A completed session appends its entry to the listing only if the
// view still shows the directory captured at upload start; otherwise
// the result is discarded silently - the file exists on the server
// but the view no longer corresponds to that directory.
func (e *Explorer) Upload(ctx context.Context, files []uploader.File, cb uploader.Callbacks) ([]*uploader.Session, []RejectedUpload) {
	var sessions []*uploader.Session
	var rejected []RejectedUpload

	if !e.cfg.ReadWrite {
		for _, f := range files {
			rejected = append(rejected, RejectedUpload{Name: f.Name, Err: ErrReadOnly})
		}
		return nil, rejected
	}

	e.mu.Lock()
	dirPath := e.path
	taken := make(map[string]bool, len(e.entries))
	for _, entry := range e.entries {
		taken[entry.Name] = true
	}
	e.mu.Unlock()

	for _, f := range files {
		if taken[f.Name] {
			rejected = append(rejected, RejectedUpload{
				Name: f.Name,
				Err:  errors.Wrapf(ErrExists, "%q", f.Name),
			})
			continue
		}
		f := f
		userDone := cb.Done
		fileCb := uploader.Callbacks{
			Progress: cb.Progress,
			Done: func(s *uploader.Session, err error) {
				if err == nil {
					e.appendUploaded(s, f)
				}
				if userDone != nil {
					userDone(s, err)
				}
			},
		}
		sessions = append(sessions, e.up.Start(ctx, dirPath, f, fileCb))
	}
	return sessions, rejected
}

// appendUploaded inserts the entry for a completed upload, unless the
// user navigated away from the capture directory in the meantime.
func (e *Explorer) appendUploaded(s *uploader.Session, f uploader.File) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.path != s.Dir() {
		return
	}
	e.append(&dav.Entry{
		Name:         f.Name,
		Path:         s.Path(),
		Type:         mimeTypeOf(f.Name),
		Size:         f.Size,
		LastModified: f.ModTime,
	})
}

// ShareLink is the result of sharing an entry.
type ShareLink struct {
	Token        string
	URL          string // token-bearing link usable outside the session
	LifespanDays int
}

// ShareEntry issues a grant for entry with the given options and
// returns the resulting link.
func (e *Explorer) ShareEntry(ctx context.Context, entry *dav.Entry, opt share.Options) (*ShareLink, error) {
	if opt.LifespanDays <= 0 {
		opt.LifespanDays = e.cfg.ShareLifespanDays
	}
	if opt.LifespanDays <= 0 {
		opt.LifespanDays = share.DefaultLifespanDays
	}
	target := e.dav.AbsURL(entry.Path)
	token, err := e.issuer.Issue(ctx, target, opt)
	if err != nil {
		return nil, err
	}
	return &ShareLink{
		Token:        token,
		URL:          share.TokenURL(target, token),
		LifespanDays: opt.LifespanDays,
	}, nil
}

// DownloadURL returns a direct link for entry backed by a one-day
// read-only grant, so the URL stays usable outside the authenticated
// session.
func (e *Explorer) DownloadURL(ctx context.Context, entry *dav.Entry) (string, error) {
	link, err := e.ShareEntry(ctx, entry, share.Options{
		SharedFor:    "download",
		LifespanDays: grantLifespanDays,
		ReadOnly:     true,
	})
	if err != nil {
		return "", err
	}
	return link.URL, nil
}

// OpenResult is the outcome of opening an entry. Exactly one field is
// meaningful: Navigated for directories, EditorURL for document
// kinds, Viewer for previewable kinds. An unclassified entry is a
// no-op and yields the zero result.
type OpenResult struct {
	Navigated bool
	EditorURL string
	Viewer    *viewer.Viewer
}

// Open dispatches on the entry type: directories navigate, office
// documents go to the external collaborative editor through a one-day
// read-write grant, previewable files open in a Viewer.
func (e *Explorer) Open(ctx context.Context, entry *dav.Entry) (*OpenResult, error) {
	if entry.IsDir {
		if err := e.Navigate(ctx, entry.Path); err != nil {
			return nil, err
		}
		return &OpenResult{Navigated: true}, nil
	}
	kind := filetype.Classify(entry.Name)
	switch {
	case kind == filetype.KindDocument:
		editorURL, err := e.officeURL(ctx, entry)
		if err != nil {
			return nil, err
		}
		return &OpenResult{EditorURL: editorURL}, nil
	case kind.Previewable():
		e.mu.Lock()
		entries := append([]*dav.Entry(nil), e.entries...)
		index := -1
		for i, candidate := range entries {
			if candidate.ID == entry.ID {
				index = i
				break
			}
		}
		e.mu.Unlock()
		if index < 0 {
			return nil, errors.Errorf("entry %q is not in the current listing", entry.Name)
		}
		return &OpenResult{Viewer: viewer.New(e.dav, e.issuer, entries, index)}, nil
	}
	// unclassified: the download link remains the only action
	return &OpenResult{}, nil
}

// officeURL builds the external collaborative editor redirect for a
// document entry, backed by a one-day read-write grant.
func (e *Explorer) officeURL(ctx context.Context, entry *dav.Entry) (string, error) {
	target := e.dav.AbsURL(entry.Path)
	token, err := e.issuer.Issue(ctx, target, share.Options{
		SharedFor:    e.cfg.User,
		LifespanDays: grantLifespanDays,
		ReadOnly:     false,
	})
	if err != nil {
		return "", err
	}
	params := url.Values{}
	params.Set("file", target)
	params.Set("mtime", strconv.FormatInt(entry.LastModified.UnixMilli(), 10))
	params.Set("user", e.cfg.User)
	params.Set("token", token)
	return e.cfg.GatewayURL + "/onlyoffice?" + params.Encode(), nil
}

// Edit opens an editor on entry. Only text-classified files are
// editable.
func (e *Explorer) Edit(entry *dav.Entry) (*editor.Editor, error) {
	if !e.cfg.ReadWrite {
		return nil, ErrReadOnly
	}
	if filetype.Classify(entry.Name) != filetype.KindText {
		return nil, errors.Errorf("%q is not an editable text file", entry.Name)
	}
	return editor.New(e.dav, e.issuer, entry), nil
}
