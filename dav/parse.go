package dav

import (
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/davexplorer/davexplorer/dav/api"
)

// ParseError describes a malformed multi-status response. It is fatal
// for the listing it occurred in: the caller must keep its previous
// listing rather than render a partial one.
type ParseError struct {
	Href    string // resource the error relates to, if known
	Missing string // name of the absent property
	Err     error  // underlying decode error, if any
}

// Error satisfies the error interface
func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed multi-status response: %v", e.Err)
	}
	if e.Href != "" {
		return fmt.Sprintf("malformed multi-status response: %q has no %s property", e.Href, e.Missing)
	}
	return fmt.Sprintf("malformed multi-status response: missing %s property", e.Missing)
}

// Unwrap returns the underlying error
func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseListing parses the XML body of a Depth: 1 PROPFIND into a
// sorted listing.
//
// The first response node describes the directory being listed and is
// skipped. Every remaining node must carry displayname, href,
// resourcetype and getlastmodified - plus getcontenttype and
// getcontentlength for files - or the whole listing fails with a
// *ParseError. Entries come back sorted directories first then by
// name, with 1-based IDs matching that order.
func ParseListing(body []byte) ([]*Entry, error) {
	var result api.Multistatus
	if err := xml.Unmarshal(body, &result); err != nil {
		return nil, &ParseError{Err: err}
	}
	if len(result.Responses) == 0 {
		return nil, &ParseError{Missing: "response"}
	}
	entries := make([]*Entry, 0, len(result.Responses)-1)
	// the first response is the listed directory itself
	for i := range result.Responses[1:] {
		item := &result.Responses[i+1]
		entry, err := parseResponse(item)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	SortEntries(entries)
	renumber(entries)
	return entries, nil
}

// parseResponse converts one response node, erroring on any absent
// required property rather than silently dropping the entry.
func parseResponse(item *api.Response) (*Entry, error) {
	if item.Href == nil {
		return nil, &ParseError{Missing: "href"}
	}
	href := *item.Href
	props := &item.Props
	if props.Name == nil {
		return nil, &ParseError{Href: href, Missing: "displayname"}
	}
	if props.Type == nil {
		return nil, &ParseError{Href: href, Missing: "resourcetype"}
	}
	if props.Modified == nil {
		return nil, &ParseError{Href: href, Missing: "getlastmodified"}
	}
	entry := &Entry{
		Name:         displayName(*props.Name, href),
		Path:         href,
		IsDir:        props.Type.IsDir(),
		LastModified: time.Time(*props.Modified),
	}
	if !strings.HasPrefix(entry.Path, "/") {
		entry.Path = "/" + entry.Path
	}
	if entry.IsDir {
		entry.Type = DirType
		if !strings.HasSuffix(entry.Path, "/") {
			entry.Path += "/"
		}
		return entry, nil
	}
	if props.ContentType == nil {
		return nil, &ParseError{Href: href, Missing: "getcontenttype"}
	}
	if props.Size == nil {
		return nil, &ParseError{Href: href, Missing: "getcontentlength"}
	}
	entry.Type = *props.ContentType
	entry.Size = *props.Size
	return entry, nil
}

// displayName falls back to the decoded last href segment when the
// server sends an empty displayname.
func displayName(name, href string) string {
	if name != "" {
		return name
	}
	p := strings.TrimSuffix(href, "/")
	if i := strings.LastIndex(p, "/"); i >= 0 {
		p = p[i+1:]
	}
	if decoded, err := url.PathUnescape(p); err == nil {
		return decoded
	}
	return p
}
