// Package uploader manages in-flight uploads to the WebDAV share:
// one streaming PUT per file with progress accounting, cancellation
// and best-effort cleanup of cancelled transfers.
package uploader

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/davexplorer/davexplorer/dav"
	"github.com/davexplorer/davexplorer/dav/davpath"
	"github.com/davexplorer/davexplorer/lib/log"
)

// State is the lifecycle state of a Session.
type State int

// Session states. Terminal states are Completed, Cancelled and Failed.
const (
	StatePending State = iota
	StateInProgress
	StateCompleted
	StateCancelled
	StateFailed
)

var stateToString = []string{
	StatePending:    "pending",
	StateInProgress: "in progress",
	StateCompleted:  "completed",
	StateCancelled:  "cancelled",
	StateFailed:     "failed",
}

// String turns a State into a string
func (s State) String() string {
	if int(s) >= len(stateToString) {
		return "unknown"
	}
	return stateToString[s]
}

// File describes one local file selected for upload. In is read to
// the end during the transfer; the caller keeps ownership and closes
// it after the session reaches a terminal state.
type File struct {
	Name    string
	Size    int64
	ModTime time.Time
	In      io.Reader
}

// Callbacks notify the caller about session progress and completion.
// They are invoked from the session goroutine.
type Callbacks struct {
	// Progress receives the current transfer fraction in [0,1]. It
	// is advisory only.
	Progress func(s *Session, fraction float64)
	// Done is called exactly once with the terminal outcome. err is
	// nil on completion and context.Canceled after a cancel.
	Done func(s *Session, err error)
}

// Uploader starts upload sessions against one share.
type Uploader struct {
	dav *dav.Client
}

// New creates an Uploader uploading through c.
func New(c *dav.Client) *Uploader {
	return &Uploader{dav: c}
}

// Session is one in-flight upload. Sessions are independent: one
// session's failure or cancellation never affects the others.
type Session struct {
	up     *Uploader
	name   string
	dir    string // directory captured at session start
	path   string // destination resource path
	size   int64
	cancel context.CancelFunc
	done   chan struct{}

	mu    sync.Mutex
	state State
	read  int64
	err   error
}

// Start begins uploading f into the directory dir (percent-encoded,
// trailing slash). The transfer runs in its own goroutine; use
// Cancel, Wait and the callbacks to follow it.
func (u *Uploader) Start(ctx context.Context, dir string, f File, cb Callbacks) *Session {
	ctx, cancel := context.WithCancel(ctx)
	s := &Session{
		up:     u,
		name:   f.Name,
		dir:    dir,
		path:   davpath.ChildOf(dir, f.Name),
		size:   f.Size,
		cancel: cancel,
		done:   make(chan struct{}),
		state:  StatePending,
	}
	go s.run(ctx, f, cb)
	return s
}

// Name returns the file name being uploaded
func (s *Session) Name() string { return s.name }

// Dir returns the target directory captured when the session started
func (s *Session) Dir() string { return s.dir }

// Path returns the destination resource path
func (s *Session) Path() string { return s.path }

// String converts this Session to a string
func (s *Session) String() string { return "upload of " + s.name }

// State returns the current lifecycle state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the terminal error: nil while running or on success,
// context.Canceled after a cancel.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Progress returns the transfer fraction in [0,1].
func (s *Session) Progress() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.size <= 0 {
		if s.state == StateCompleted {
			return 1
		}
		return 0
	}
	fraction := float64(s.read) / float64(s.size)
	if fraction > 1 {
		fraction = 1
	}
	return fraction
}

// Cancel aborts the transfer if it is still in flight. The partially
// written resource is removed best-effort; cleanup failures are
// logged, never surfaced.
func (s *Session) Cancel() {
	s.cancel()
}

// Wait blocks until the session reaches a terminal state.
func (s *Session) Wait() {
	<-s.done
}

func (s *Session) run(ctx context.Context, f File, cb Callbacks) {
	defer close(s.done)
	defer s.cancel()
	s.setState(StateInProgress)
	in := &progressReader{in: f.In, session: s, cb: cb.Progress}
	err := s.up.dav.Put(ctx, s.path, in, f.Size, f.ModTime)
	switch {
	case err == nil:
		s.finish(StateCompleted, nil)
	case ctx.Err() != nil:
		s.finish(StateCancelled, context.Canceled)
		log.Infof(s, "cancelled")
		s.removeRemnant()
	default:
		s.finish(StateFailed, errors.Wrapf(err, "error uploading %s", s.name))
	}
	if cb.Done != nil {
		cb.Done(s, s.Err())
	}
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Session) finish(state State, err error) {
	s.mu.Lock()
	s.state = state
	s.err = err
	s.mu.Unlock()
}

// removeRemnant deletes what the cancelled PUT left behind. Failure
// here is logged, not surfaced.
func (s *Session) removeRemnant() {
	if err := s.up.dav.Delete(context.Background(), s.path); err != nil {
		log.Logf(s, "cancelled upload could not be deleted: %v", err)
	}
}

// progressReader counts the bytes flowing through the PUT body and
// reports the advisory fraction to the caller.
type progressReader struct {
	in      io.Reader
	session *Session
	cb      func(s *Session, fraction float64)
}

// Read implements io.Reader
func (r *progressReader) Read(p []byte) (n int, err error) {
	n, err = r.in.Read(p)
	if n > 0 {
		r.session.mu.Lock()
		r.session.read += int64(n)
		r.session.mu.Unlock()
		if r.cb != nil {
			r.cb(r.session, r.session.Progress())
		}
	}
	return n, err
}
