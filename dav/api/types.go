// Package api has type definitions for the WebDAV client profile
package api

import (
	"encoding/xml"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/davexplorer/davexplorer/lib/log"
)

const (
	// Wed, 27 Sep 2017 14:28:34 GMT
	timeFormat = time.RFC1123
	// The same as time.RFC1123 with optional leading zeros on the date
	noZerosRFC1123 = "Mon, _2 Jan 2006 15:04:05 MST"
)

// Multistatus contains responses returned from an HTTP 207 return code
type Multistatus struct {
	Responses []Response `xml:"response"`
}

// Response contains an Href the response is about and its properties
type Response struct {
	Href  *string `xml:"href"`
	Props Prop    `xml:"propstat"`
}

// Prop is the properties of a response
//
// This is a lazy way of decoding the multiple <d:propstat> in the
// response: the arrays of <d:propstat> and <d:prop> are elided into
// one struct, and status collects all the status values of which we
// just check the first is OK.
//
// Fields which the listing contract requires are pointers so that an
// absent property can be told apart from a zero value.
type Prop struct {
	Status      []string      `xml:"DAV: status"`
	Name        *string       `xml:"DAV: prop>displayname"`
	Type        *ResourceType `xml:"DAV: prop>resourcetype"`
	ContentType *string       `xml:"DAV: prop>getcontenttype"`
	Size        *int64        `xml:"DAV: prop>getcontentlength"`
	Modified    *Time         `xml:"DAV: prop>getlastmodified"`
}

// ResourceType is the resourcetype element. A <collection> child
// marks the resource as a directory.
//
// When a client sees a resourcetype it doesn't recognize it should
// assume it is a regular non-collection resource. [WebDav book by
// Lisa Dusseault ch 7.5.8 p170]
type ResourceType struct {
	Collection *xml.Name `xml:"DAV: collection"`
}

// IsDir returns true if the resourcetype marks a collection
func (r *ResourceType) IsDir() bool {
	return r != nil && r.Collection != nil
}

// Parse a status of the form "HTTP/1.1 200 OK" or "HTTP/1.1 200"
var parseStatus = regexp.MustCompile(`^HTTP/[0-9.]+\s+(\d+)`)

// StatusOK examines the Status and returns an OK flag
func (p *Prop) StatusOK() bool {
	// Assume OK if no statuses received
	if len(p.Status) == 0 {
		return true
	}
	match := parseStatus.FindStringSubmatch(p.Status[0])
	if len(match) < 2 {
		return false
	}
	code, err := strconv.Atoi(match[1])
	if err != nil {
		return false
	}
	return code >= 200 && code < 300
}

// Error is used to describe webdav errors
//
// <d:error xmlns:d="DAV:" xmlns:s="http://sabredav.org/ns">
//
//	<s:exception>Sabre\DAV\Exception\NotFound</s:exception>
//	<s:message>File with name Photo could not be located</s:message>
//
// </d:error>
type Error struct {
	Exception  string `xml:"exception,omitempty"`
	Message    string `xml:"message,omitempty"`
	Status     string
	StatusCode int
}

// Error returns a string for the error and satisfies the error interface
func (e *Error) Error() string {
	var out []string
	if e.Message != "" {
		out = append(out, e.Message)
	}
	if e.Exception != "" {
		out = append(out, e.Exception)
	}
	if e.Status != "" {
		out = append(out, e.Status)
	}
	if len(out) == 0 {
		return "webdav error"
	}
	return strings.Join(out, ": ")
}

// Time represents date and time information for the webdav API
// marshalling to and from timeFormat
type Time time.Time

// MarshalXML turns a Time into XML
func (t *Time) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	timeString := (*time.Time)(t).Format(timeFormat)
	return e.EncodeElement(timeString, start)
}

// Possible time formats to parse the time with
var timeFormats = []string{
	timeFormat,     // Wed, 27 Sep 2017 14:28:34 GMT (as per RFC)
	time.RFC1123Z,  // Fri, 05 Jan 2018 14:14:38 +0000
	time.UnixDate,  // Wed May 17 15:31:58 UTC 2017
	noZerosRFC1123, // Fri, 7 Sep 2018 08:49:58 GMT
	time.RFC3339,   // 2018-10-31T13:57:11+01:00
}

// UnmarshalXML turns XML into a Time
func (t *Time) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var v string
	err := d.DecodeElement(&v, &start)
	if err != nil {
		return err
	}

	// If time is missing then return the epoch
	if v == "" {
		*t = Time(time.Unix(0, 0))
		return nil
	}

	// Parse the time format in multiple possible ways
	var newT time.Time
	for _, timeFormat := range timeFormats {
		newT, err = time.Parse(timeFormat, v)
		if err == nil {
			*t = Time(newT)
			break
		}
	}
	if err != nil {
		log.Errorf(nil, "Failed to parse time %q - using the epoch", v)
		// Return the epoch instead
		*t = Time(time.Unix(0, 0))
		err = nil
	}
	return err
}
