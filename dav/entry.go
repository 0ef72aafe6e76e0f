package dav

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// DirType is the literal type assigned to directory entries instead
// of a MIME type.
const DirType = "dir"

// Entry represents one WebDAV resource inside a listed directory.
type Entry struct {
	ID           int64     // listing-local ordering anchor, not persisted
	Name         string    // display name, percent-decoded
	Path         string    // percent-encoded, starts with "/", dirs end with "/"
	IsDir        bool      //
	Type         string    // MIME type for files, DirType for directories
	Size         int64     // 0 for directories
	LastModified time.Time //
}

// String converts this Entry to a string
func (e *Entry) String() string {
	if e == nil {
		return "<nil>"
	}
	return e.Path
}

// SortEntries sorts a listing in place: directories before files,
// then ascending case-insensitive name order within each group.
// The sort is stable and idempotent.
func SortEntries(entries []*Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.IsDir != b.IsDir {
			return a.IsDir
		}
		an, bn := strings.ToLower(a.Name), strings.ToLower(b.Name)
		if an != bn {
			return an < bn
		}
		return a.Name < b.Name
	})
}

var sizeUnits = []string{"B", "kB", "MB", "GB", "TB"}

// HumanSize renders a byte count with two decimals and a 1024-based
// unit, eg 1536 -> "1.50 kB".
func HumanSize(size int64) string {
	f := float64(size)
	i := 0
	for f >= 1024 && i < len(sizeUnits)-1 {
		f /= 1024
		i++
	}
	return strconv.FormatFloat(f, 'f', 2, 64) + " " + sizeUnits[i]
}

// renumber reassigns 1-based IDs matching the current order.
func renumber(entries []*Entry) {
	for i, e := range entries {
		e.ID = int64(i + 1)
	}
}
