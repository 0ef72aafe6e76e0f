// Package viewer implements the type-dispatched read-only preview of
// a single entry, with sequential navigation across the listing it
// was opened from.
package viewer

import (
	"context"

	"github.com/pkg/errors"

	"github.com/davexplorer/davexplorer/dav"
	"github.com/davexplorer/davexplorer/filetype"
	"github.com/davexplorer/davexplorer/share"
)

// grantLifespanDays is the lifespan of the read-only grants backing
// media previews.
const grantLifespanDays = 1

// Content is what a view renders for the currently previewed entry:
// raw text for text kinds, a token-bearing URL for media and
// embedded-document kinds.
type Content struct {
	Entry *dav.Entry
	Kind  filetype.Kind
	Text  string // set for KindText
	URL   string // set for image/audio/video/other
}

// Viewer steps through the previewable entries of one listing. Each
// Load or Seek fetches content or a preview token for the current
// target; closing tears the view down with no server-side state to
// release.
type Viewer struct {
	dav     *dav.Client
	issuer  *share.Issuer
	entries []*dav.Entry
	index   int
}

// New creates a Viewer over a snapshot of the listing, positioned on
// entries[index].
func New(c *dav.Client, issuer *share.Issuer, entries []*dav.Entry, index int) *Viewer {
	return &Viewer{
		dav:     c,
		issuer:  issuer,
		entries: append([]*dav.Entry(nil), entries...),
		index:   index,
	}
}

// Entry returns the entry currently in view.
func (v *Viewer) Entry() *dav.Entry {
	return v.entries[v.index]
}

// Load fetches the content of the current entry: an authenticated GET
// for text, a one-day read-only grant URL for everything else.
func (v *Viewer) Load(ctx context.Context) (*Content, error) {
	entry := v.entries[v.index]
	kind := filetype.Classify(entry.Name)
	content := &Content{Entry: entry, Kind: kind}
	switch kind {
	case filetype.KindText:
		text, err := v.dav.GetString(ctx, entry.Path)
		if err != nil {
			return nil, errors.Wrapf(err, "text content could not be fetched for %q", entry.Name)
		}
		content.Text = text
	case filetype.KindImage, filetype.KindAudio, filetype.KindVideo, filetype.KindOther:
		target := v.dav.AbsURL(entry.Path)
		token, err := v.issuer.Issue(ctx, target, share.Options{
			SharedFor:    "preview",
			LifespanDays: grantLifespanDays,
			ReadOnly:     true,
		})
		if err != nil {
			return nil, err
		}
		content.URL = share.TokenURL(target, token)
	default:
		return nil, errors.Errorf("%q is not previewable", entry.Name)
	}
	return content, nil
}

// Seek moves to the next (forward) or previous eligible entry and
// loads it. Directories, document kinds and unclassified entries are
// skipped. When no eligible neighbor exists the seek is a no-op and
// Seek returns nil with no error - the current view is unchanged.
func (v *Viewer) Seek(ctx context.Context, forward bool) (*Content, error) {
	step := -1
	if forward {
		step = 1
	}
	for i := v.index + step; i >= 0 && i < len(v.entries); i += step {
		entry := v.entries[i]
		if entry.IsDir {
			continue
		}
		if !filetype.Classify(entry.Name).Previewable() {
			continue
		}
		v.index = i
		return v.Load(ctx)
	}
	return nil, nil
}

// Close tears down the view. There is no server-side state to
// release.
func (v *Viewer) Close() {
	v.entries = nil
}
