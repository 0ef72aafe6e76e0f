// Package filetype maps file names to the semantic category driving
// preview and edit dispatch.
package filetype

import "strings"

// Kind is the semantic category of a file name.
type Kind string

// Kinds. KindNone means "not previewable inline".
const (
	KindNone     Kind = ""
	KindText     Kind = "text"
	KindDocument Kind = "document"
	KindImage    Kind = "image"
	KindAudio    Kind = "audio"
	KindVideo    Kind = "video"
	KindOther    Kind = "other"
)

// Extensions is the extension table driving Classify. It is the
// configuration surface for the classification: edit it to teach the
// explorer about new file types.
var Extensions = map[Kind][]string{
	KindText:     {"txt", "md", "csv", "sh", "nfo", "log", "json", "yml", "srt"},
	KindDocument: {"docx", "doc", "odt", "xlsx", "xls", "ods", "pptx", "ppt", "opd"},
	KindImage:    {"jpg", "png", "gif", "svg", "jpeg"},
	KindAudio:    {"mp3", "wav", "ogg"},
	KindVideo:    {"mp4", "avi", "mkv", "m4v"},
	KindOther:    {"pdf"},
}

var byExtension = map[string]Kind{}

func init() {
	for kind, exts := range Extensions {
		for _, ext := range exts {
			byExtension[ext] = kind
		}
	}
}

// Classify returns the Kind for a file name based on its extension,
// case-insensitively. Names without a matching extension classify as
// KindNone.
func Classify(name string) Kind {
	i := strings.LastIndex(name, ".")
	if i < 0 || i == len(name)-1 {
		return KindNone
	}
	return byExtension[strings.ToLower(name[i+1:])]
}

// Previewable reports whether the kind can be rendered inline by the
// content viewer. Documents open in the external editor instead.
func (k Kind) Previewable() bool {
	switch k {
	case KindText, KindImage, KindAudio, KindVideo, KindOther:
		return true
	}
	return false
}
