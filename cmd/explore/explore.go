// Package explore implements the interactive terminal explorer.
package explore

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/gdamore/tcell/v2"
	runewidth "github.com/mattn/go-runewidth"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/davexplorer/davexplorer/cmd"
	"github.com/davexplorer/davexplorer/dav"
	"github.com/davexplorer/davexplorer/dav/davpath"
	"github.com/davexplorer/davexplorer/explorer"
	"github.com/davexplorer/davexplorer/lib/log"
	"github.com/davexplorer/davexplorer/share"
	"github.com/davexplorer/davexplorer/uploader"
	"github.com/davexplorer/davexplorer/viewer"
)

func init() {
	cmd.Root.AddCommand(commandDefinition)
}

var commandDefinition = &cobra.Command{
	Use:   "explore [dir]",
	Short: `Explore the share interactively in a text based user interface.`,
	Long: `
Opens an interactive explorer on the share, starting at the given
directory or at the root.  Navigate with the arrow keys, press ? for
the full list of key bindings.  Mutating operations need the
read-write flag or configuration setting.
`,
	Run: func(command *cobra.Command, args []string) {
		cmd.CheckArgs(0, 1, command, args)
		dir := "/"
		if len(args) > 0 {
			dir = dav.AddSlash(davpath.Encode(args[0]))
		}
		ex := cmd.NewExplorer()
		cmd.Run(command, func() error {
			return NewUI(ex, dir).Run()
		})
	},
}

// helpText is the overlay shown on ?
var helpText = []string{
	"davexplorer explore",
	" ↑,↓ or k,j to Move",
	" →,Enter to open a directory or file",
	" ←,h to go up a directory",
	" o view file, e edit text file in $EDITOR",
	" r rename, d delete (asks to confirm)",
	" x cut, c copy, v paste, Esc clears the clipboard",
	" f new folder, t new text file",
	" u upload a local file, K cancel newest upload",
	" s share link, g download link",
	" R refresh the listing",
	" ? to toggle help on and off",
	" q to quit",
}

// input modes
const (
	modeBrowse = iota
	modePrompt
	modeConfirmDelete
	modeViewer
	modeHelp
)

// prompt kinds
const (
	promptRename = iota
	promptNewFile
	promptUpload
)

// UI holds the state of the terminal explorer.
type UI struct {
	s         tcell.Screen
	ex        *explorer.Explorer
	startDir  string
	mode      int
	selected  int // index into the listing
	offset    int // scroll offset
	flash     string
	flashErr  bool
	prompt    string // prompt label
	promptTyp int
	typed     string // text typed so far
	confirm   *explorer.DeleteConfirm
	view      *viewer.Viewer
	content   *viewer.Content
	overlay   []string // share/download result shown until next key
	transfers []*uploader.Session
}

// NewUI creates the explorer UI rooted at dir.
func NewUI(ex *explorer.Explorer, dir string) *UI {
	return &UI{
		ex:       ex,
		startDir: dir,
	}
}

// Run the explorer until the user quits.
func (u *UI) Run() error {
	s, err := tcell.NewScreen()
	if err != nil {
		return errors.Wrap(err, "explore: couldn't create screen")
	}
	err = s.Init()
	if err != nil {
		return errors.Wrap(err, "explore: couldn't init screen")
	}
	u.s = s
	defer u.s.Fini()
	err = u.ex.Navigate(context.Background(), u.startDir)
	if err != nil {
		return err
	}
	for {
		u.Draw()
		ev := u.s.PollEvent()
		switch ev := ev.(type) {
		case *tcell.EventResize:
			u.s.Sync()
		case *tcell.EventInterrupt:
			// a transfer callback asked for a redraw
		case *tcell.EventKey:
			quit := u.handleKey(ev)
			if quit {
				return nil
			}
		}
	}
}

// Print the string in the given style at (x, y)
func (u *UI) Print(x, y int, style tcell.Style, msg string) {
	for _, r := range msg {
		u.s.SetContent(x, y, r, nil, style)
		x += runewidth.RuneWidth(r)
	}
}

// Printf a string in the given style at (x, y)
func (u *UI) Printf(x, y int, style tcell.Style, format string, args ...interface{}) {
	u.Print(x, y, style, fmt.Sprintf(format, args...))
}

// Line prints a string to given xmax, with spacer
func (u *UI) Line(x, y, xmax int, style tcell.Style, spacer rune, msg string) {
	for _, r := range msg {
		u.s.SetContent(x, y, r, nil, style)
		x += runewidth.RuneWidth(r)
		if x >= xmax {
			return
		}
	}
	for ; x < xmax; x++ {
		u.s.SetContent(x, y, spacer, nil, style)
	}
}

// Draw redraws the whole screen from the model.
func (u *UI) Draw() {
	w, h := u.s.Size()
	u.s.Clear()
	styleDefault := tcell.StyleDefault
	styleReverse := styleDefault.Reverse(true)
	styleErr := styleDefault.Foreground(tcell.ColorRed)

	// header
	mode := "ro"
	if u.ex.ReadWrite() {
		mode = "rw"
	}
	u.Line(0, 0, w, styleReverse, ' ', fmt.Sprintf(" davexplorer %s [%s] - use the arrow keys to navigate, press ? for help", u.ex.Path(), mode))

	// listing
	entries := u.ex.Entries()
	if u.selected >= len(entries) {
		u.selected = len(entries) - 1
	}
	if u.selected < 0 {
		u.selected = 0
	}
	listHeight := h - 3
	if listHeight < 1 {
		listHeight = 1
	}
	if u.selected < u.offset {
		u.offset = u.selected
	}
	if u.selected >= u.offset+listHeight {
		u.offset = u.selected - listHeight + 1
	}
	for i := 0; i < listHeight; i++ {
		n := i + u.offset
		if n >= len(entries) {
			break
		}
		e := entries[n]
		style := styleDefault
		if n == u.selected {
			style = styleReverse
		}
		size := "     -"
		if !e.IsDir {
			size = dav.HumanSize(e.Size)
		}
		name := e.Name
		if e.IsDir {
			name += "/"
		}
		u.Line(0, i+1, w, style, ' ', fmt.Sprintf(" %10s  %s  %s", size, e.LastModified.Format("2006-01-02 15:04"), name))
	}

	// transfers
	if line := u.transferLine(); line != "" {
		u.Line(0, h-2, w, styleDefault, ' ', line)
	}

	// footer: flash message, prompt or confirmation
	switch u.mode {
	case modePrompt:
		u.Line(0, h-1, w, styleDefault, ' ', u.prompt+u.typed)
		u.s.ShowCursor(runewidth.StringWidth(u.prompt+u.typed), h-1)
	case modeConfirmDelete:
		u.s.HideCursor()
		u.Line(0, h-1, w, styleDefault, ' ', fmt.Sprintf("Delete %q? [y/N]", u.confirm.Entry().Name))
	default:
		u.s.HideCursor()
		style := styleDefault
		if u.flashErr {
			style = styleErr
		}
		u.Line(0, h-1, w, style, ' ', u.flash)
	}

	if u.mode == modeViewer {
		u.drawOverlay(u.viewerLines())
	} else if u.mode == modeHelp {
		u.drawOverlay(helpText)
	} else if len(u.overlay) > 0 {
		u.drawOverlay(u.overlay)
	}

	u.s.Show()
}

// drawOverlay draws a centred box of text over the listing.
func (u *UI) drawOverlay(lines []string) {
	w, h := u.s.Size()
	styleBox := tcell.StyleDefault.Reverse(true)
	boxWidth := 8
	for _, line := range lines {
		if lw := runewidth.StringWidth(line) + 4; lw > boxWidth {
			boxWidth = lw
		}
	}
	if boxWidth > w {
		boxWidth = w
	}
	x := (w - boxWidth) / 2
	y := (h - len(lines)) / 2
	if y < 1 {
		y = 1
	}
	for i, line := range lines {
		u.Line(x, y+i, x+boxWidth, styleBox, ' ', "  "+line)
	}
}

// viewerLines renders the loaded viewer content.
func (u *UI) viewerLines() []string {
	if u.content == nil {
		return []string{"loading..."}
	}
	lines := []string{u.content.Entry.Name, ""}
	if u.content.URL != "" {
		lines = append(lines, "preview: "+u.content.URL)
	} else {
		text := strings.Split(u.content.Text, "\n")
		_, h := u.s.Size()
		if max := h - 6; len(text) > max && max > 0 {
			text = text[:max]
		}
		lines = append(lines, text...)
	}
	lines = append(lines, "", "n next, p previous, Esc close")
	return lines
}

// transferLine summarises the most recent upload sessions.
func (u *UI) transferLine() string {
	if len(u.transfers) == 0 {
		return ""
	}
	var parts []string
	first := len(u.transfers) - 3
	if first < 0 {
		first = 0
	}
	for _, s := range u.transfers[first:] {
		switch s.State() {
		case uploader.StatePending, uploader.StateInProgress:
			parts = append(parts, fmt.Sprintf("%s %3.0f%%", s.Name(), s.Progress()*100))
		case uploader.StateCompleted:
			parts = append(parts, s.Name()+" done")
		case uploader.StateCancelled:
			parts = append(parts, s.Name()+" cancelled")
		default:
			parts = append(parts, s.Name()+" failed")
		}
	}
	return " uploads: " + strings.Join(parts, ", ")
}

// setFlash records a message for the footer line.
func (u *UI) setFlash(format string, args ...interface{}) {
	u.flash = fmt.Sprintf(format, args...)
	u.flashErr = false
}

// setError records an error for the footer line, or clears it.
func (u *UI) setError(err error) {
	if err == nil {
		u.flash = ""
		return
	}
	u.flash = err.Error()
	u.flashErr = true
}

// current returns the selected entry, or nil for an empty listing.
func (u *UI) current() *dav.Entry {
	entries := u.ex.Entries()
	if u.selected < 0 || u.selected >= len(entries) {
		return nil
	}
	return entries[u.selected]
}

// handleKey processes one key event, returning true to quit.
func (u *UI) handleKey(ev *tcell.EventKey) bool {
	switch u.mode {
	case modePrompt:
		u.handlePromptKey(ev)
		return false
	case modeConfirmDelete:
		u.handleConfirmKey(ev)
		return false
	case modeViewer:
		u.handleViewerKey(ev)
		return false
	case modeHelp:
		u.mode = modeBrowse
		return false
	}
	if len(u.overlay) > 0 {
		u.overlay = nil
		return false
	}
	u.flash = ""
	ctx := context.Background()
	entry := u.current()
	key := ev.Key()
	if key == tcell.KeyRune {
		switch ev.Rune() {
		case 'q':
			return true
		case '?':
			u.mode = modeHelp
		case 'k':
			u.move(-1)
		case 'j':
			u.move(1)
		case 'h':
			u.goUp(ctx)
		case 'R':
			u.setError(u.ex.Navigate(ctx, u.ex.Path()))
		case 'o':
			u.open(ctx, entry)
		case 'e':
			u.edit(ctx, entry)
		case 'r':
			if entry != nil {
				u.startPrompt(promptRename, fmt.Sprintf("Rename %q to: ", entry.Name), entry.Name)
			}
		case 'x':
			if entry != nil {
				u.setError(u.ex.Cut(entry))
			}
		case 'c':
			if entry != nil {
				u.setError(u.ex.CopyEntry(entry))
			}
		case 'v':
			u.paste(ctx)
		case 'd':
			u.startDelete(entry)
		case 'f':
			u.newFolder(ctx)
		case 't':
			u.startPrompt(promptNewFile, "New text file name: ", "")
		case 'u':
			u.startPrompt(promptUpload, "Upload local file: ", "")
		case 'K':
			u.cancelUpload()
		case 's':
			u.shareLink(ctx, entry)
		case 'g':
			u.downloadLink(ctx, entry)
		}
		return false
	}
	switch key {
	case tcell.KeyEscape:
		if u.ex.Clipboard() != nil {
			u.ex.CancelClipboard()
			u.setFlash("clipboard cleared")
		}
	case tcell.KeyUp:
		u.move(-1)
	case tcell.KeyDown:
		u.move(1)
	case tcell.KeyLeft, tcell.KeyBackspace, tcell.KeyBackspace2:
		u.goUp(ctx)
	case tcell.KeyRight, tcell.KeyEnter:
		u.open(ctx, entry)
	case tcell.KeyCtrlC:
		return true
	}
	return false
}

// move changes the selection by d, clamped to the listing.
func (u *UI) move(d int) {
	u.selected += d
	if u.selected < 0 {
		u.selected = 0
	}
	if n := len(u.ex.Entries()); u.selected >= n {
		u.selected = n - 1
	}
}

func (u *UI) goUp(ctx context.Context) {
	u.setError(u.ex.Up(ctx))
	u.selected = 0
	u.offset = 0
}

// open dispatches on the selected entry: directories navigate, office
// documents yield an external URL, previewable files open the viewer.
func (u *UI) open(ctx context.Context, entry *dav.Entry) {
	if entry == nil {
		return
	}
	res, err := u.ex.Open(ctx, entry)
	if err != nil {
		u.setError(err)
		return
	}
	switch {
	case res.Navigated:
		u.selected = 0
		u.offset = 0
	case res.EditorURL != "":
		u.overlay = []string{entry.Name, "", "open in the collaborative editor:", res.EditorURL}
	case res.Viewer != nil:
		u.view = res.Viewer
		u.mode = modeViewer
		u.content, err = u.view.Load(ctx)
		if err != nil {
			u.closeViewer()
			u.setError(err)
		}
	default:
		u.setFlash("%q has no viewer, press g for a download link", entry.Name)
	}
}

func (u *UI) closeViewer() {
	if u.view != nil {
		u.view.Close()
	}
	u.view = nil
	u.content = nil
	u.mode = modeBrowse
}

func (u *UI) handleViewerKey(ev *tcell.EventKey) {
	if ev.Key() == tcell.KeyEscape || (ev.Key() == tcell.KeyRune && ev.Rune() == 'q') {
		u.closeViewer()
		return
	}
	if ev.Key() != tcell.KeyRune {
		return
	}
	forward := false
	switch ev.Rune() {
	case 'n':
		forward = true
	case 'p':
	default:
		return
	}
	content, err := u.view.Seek(context.Background(), forward)
	if err != nil {
		u.closeViewer()
		u.setError(err)
		return
	}
	if content != nil {
		u.content = content
	}
}

// edit shells out to $EDITOR on a text file and saves the result.
func (u *UI) edit(ctx context.Context, entry *dav.Entry) {
	if entry == nil {
		return
	}
	ed, err := u.ex.Edit(entry)
	if err != nil {
		u.setError(err)
		return
	}
	text, err := ed.Load(ctx)
	if err != nil {
		u.setError(err)
		return
	}
	edited, changed, err := u.editExternal(entry.Name, text)
	if err != nil {
		u.setError(err)
		return
	}
	if !changed {
		u.setFlash("%q unchanged", entry.Name)
		return
	}
	if err := ed.Save(ctx, edited); err != nil {
		u.setError(err)
		return
	}
	u.setFlash("saved %q", entry.Name)
}

// editExternal runs $EDITOR on the text with the screen suspended.
func (u *UI) editExternal(name, text string) (string, bool, error) {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		return "", false, errors.New("$EDITOR is not set")
	}
	tmp, err := os.CreateTemp("", "davexplorer-*-"+name)
	if err != nil {
		return "", false, errors.Wrap(err, "couldn't create temp file")
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()
	_, err = tmp.WriteString(text)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", false, errors.Wrap(err, "couldn't write temp file")
	}
	if err := u.s.Suspend(); err != nil {
		return "", false, errors.Wrap(err, "couldn't suspend screen")
	}
	c := exec.Command(editor, tmp.Name())
	c.Stdin, c.Stdout, c.Stderr = os.Stdin, os.Stdout, os.Stderr
	runErr := c.Run()
	if err := u.s.Resume(); err != nil {
		return "", false, errors.Wrap(err, "couldn't resume screen")
	}
	if runErr != nil {
		return "", false, errors.Wrap(runErr, "editor failed")
	}
	edited, err := os.ReadFile(tmp.Name())
	if err != nil {
		return "", false, errors.Wrap(err, "couldn't read temp file")
	}
	return string(edited), string(edited) != text, nil
}

func (u *UI) paste(ctx context.Context) {
	intent := u.ex.Clipboard()
	if intent == nil {
		u.setFlash("nothing to paste")
		return
	}
	if err := u.ex.Paste(ctx); err != nil {
		u.setError(err)
		return
	}
	u.setFlash("pasted %q", intent.Entry.Name)
}

func (u *UI) startDelete(entry *dav.Entry) {
	if entry == nil {
		return
	}
	confirm, err := u.ex.Delete(entry)
	if err != nil {
		u.setError(err)
		return
	}
	u.confirm = confirm
	u.mode = modeConfirmDelete
}

func (u *UI) handleConfirmKey(ev *tcell.EventKey) {
	if ev.Key() == tcell.KeyRune && (ev.Rune() == 'y' || ev.Rune() == 'Y') {
		name := u.confirm.Entry().Name
		if err := u.confirm.Confirm(context.Background()); err != nil {
			u.setError(err)
		} else {
			u.setFlash("deleted %q", name)
		}
	} else {
		u.confirm.Cancel()
	}
	u.confirm = nil
	u.mode = modeBrowse
}

func (u *UI) newFolder(ctx context.Context) {
	entry, err := u.ex.NewFolder(ctx)
	if err != nil {
		u.setError(err)
		return
	}
	u.setFlash("created %q", entry.Name)
}

// startPrompt switches to line input mode.
func (u *UI) startPrompt(kind int, label, initial string) {
	u.mode = modePrompt
	u.promptTyp = kind
	u.prompt = label
	u.typed = initial
}

func (u *UI) handlePromptKey(ev *tcell.EventKey) {
	switch ev.Key() {
	case tcell.KeyEscape:
		u.mode = modeBrowse
		u.typed = ""
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if len(u.typed) > 0 {
			r := []rune(u.typed)
			u.typed = string(r[:len(r)-1])
		}
	case tcell.KeyEnter:
		typed := strings.TrimSpace(u.typed)
		u.mode = modeBrowse
		u.typed = ""
		if typed == "" {
			return
		}
		u.finishPrompt(typed)
	case tcell.KeyRune:
		u.typed += string(ev.Rune())
	}
}

// finishPrompt dispatches the committed input.
func (u *UI) finishPrompt(typed string) {
	ctx := context.Background()
	switch u.promptTyp {
	case promptRename:
		entry := u.current()
		if entry == nil {
			return
		}
		if err := u.ex.Rename(ctx, entry, typed); err != nil {
			u.setError(err)
			return
		}
		u.setFlash("renamed to %q", typed)
	case promptNewFile:
		entry, err := u.ex.NewTextFile(ctx, typed)
		if err != nil {
			u.setError(err)
			return
		}
		u.setFlash("created %q", entry.Name)
	case promptUpload:
		u.upload(ctx, typed)
	}
}

// upload starts an upload of one local file into the current
// directory.  Progress callbacks poke the event loop so the transfer
// line redraws.
func (u *UI) upload(ctx context.Context, local string) {
	in, err := os.Open(local)
	if err != nil {
		u.setError(errors.Wrap(err, "couldn't open local file"))
		return
	}
	fi, err := in.Stat()
	if err != nil {
		_ = in.Close()
		u.setError(errors.Wrap(err, "couldn't stat local file"))
		return
	}
	redraw := func() {
		_ = u.s.PostEvent(tcell.NewEventInterrupt(nil))
	}
	sessions, rejected := u.ex.Upload(ctx, []uploader.File{{
		Name:    fi.Name(),
		Size:    fi.Size(),
		ModTime: fi.ModTime(),
		In:      in,
	}}, uploader.Callbacks{
		Progress: func(s *uploader.Session, fraction float64) {
			redraw()
		},
		Done: func(s *uploader.Session, err error) {
			_ = in.Close()
			if err != nil {
				log.Errorf(s, "upload failed: %v", err)
			}
			redraw()
		},
	})
	for _, r := range rejected {
		_ = in.Close()
		u.setError(errors.Wrapf(r.Err, "%q rejected", r.Name))
	}
	u.transfers = append(u.transfers, sessions...)
	if len(sessions) > 0 {
		u.setFlash("uploading %q", fi.Name())
	}
}

// cancelUpload cancels the newest still-running upload.
func (u *UI) cancelUpload() {
	for i := len(u.transfers) - 1; i >= 0; i-- {
		s := u.transfers[i]
		if state := s.State(); state == uploader.StatePending || state == uploader.StateInProgress {
			s.Cancel()
			u.setFlash("cancelling %q", s.Name())
			return
		}
	}
	u.setFlash("no active upload")
}

func (u *UI) shareLink(ctx context.Context, entry *dav.Entry) {
	if entry == nil || entry.IsDir {
		return
	}
	link, err := u.ex.ShareEntry(ctx, entry, share.Options{})
	if err != nil {
		u.setError(err)
		return
	}
	u.overlay = []string{entry.Name, "", fmt.Sprintf("valid %d days:", link.LifespanDays), link.URL}
}

func (u *UI) downloadLink(ctx context.Context, entry *dav.Entry) {
	if entry == nil || entry.IsDir {
		return
	}
	url, err := u.ex.DownloadURL(ctx, entry)
	if err != nil {
		u.setError(err)
		return
	}
	u.overlay = []string{entry.Name, "", "download link, valid 1 day:", url}
}
