// Package davpath has pure helpers for composing and decomposing
// percent-encoded WebDAV resource paths.
package davpath

import (
	"net/url"
	"strings"

	"github.com/davexplorer/davexplorer/lib/rest"
)

// ParentOf returns the path one level up from path. The result always
// ends with "/" and the root is its own parent. It is total: no path
// string makes it fail.
func ParentOf(path string) string {
	if path == "" || path == "/" {
		return "/"
	}
	p := strings.TrimSuffix(path, "/")
	i := strings.LastIndex(p, "/")
	if i <= 0 {
		return "/"
	}
	return p[:i+1]
}

// ChildOf composes the path of name inside dirPath, percent-encoding
// name. It does not decide trailing-slash-for-directory: the caller
// appends "/" when composing a directory child.
func ChildOf(dirPath, name string) string {
	return dirPath + url.PathEscape(name)
}

// Encode percent-encodes a human-typed path, leaving the "/"
// separators alone.
func Encode(p string) string {
	return rest.URLPathEscape(p)
}
