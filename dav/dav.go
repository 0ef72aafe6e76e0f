// Package dav implements the client profile of WebDAV used by the
// gateway: a fixed subset of methods, headers and response parsing.
// It is not a general WebDAV implementation.
package dav

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/davexplorer/davexplorer/dav/api"
	"github.com/davexplorer/davexplorer/lib/rest"
)

// Options configures a Client.
type Options struct {
	URL       string // URL of the WebDAV host to connect to
	User      string // username for basic auth
	Pass      string // password for basic auth
	XSRFToken string // anti-forgery token sent with every request
}

// Client is a connection to one WebDAV-backed share.
type Client struct {
	endpoint    *url.URL     // URL of the host
	endpointURL string       // endpoint as a string, no trailing slash
	srv         *rest.Client // the connection to the server
}

// New creates a Client from the options passed in.
func New(httpClient *http.Client, opt Options) (*Client, error) {
	endpoint := strings.TrimSuffix(opt.URL, "/")
	if endpoint == "" {
		return nil, errors.New("webdav url required")
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't parse webdav url")
	}
	c := &Client{
		endpoint:    u,
		endpointURL: endpoint,
		srv:         rest.NewClient(httpClient).SetRoot(endpoint),
	}
	if opt.User != "" || opt.Pass != "" {
		c.srv.SetUserPass(opt.User, opt.Pass)
	}
	if opt.XSRFToken != "" {
		c.srv.SetHeader("XSRF-Token", opt.XSRFToken)
	}
	c.srv.SetErrorHandler(errorHandler)
	return c, nil
}

// String converts this Client to a string
func (c *Client) String() string {
	return fmt.Sprintf("webdav root '%s'", c.endpointURL)
}

// errorHandler parses a non 2xx error response into an error
func errorHandler(resp *http.Response) error {
	body, err := rest.ReadBody(resp)
	if err != nil {
		return errors.Wrap(err, "error when trying to read error from body")
	}
	// Decode error response
	errResponse := new(api.Error)
	err = xml.Unmarshal(body, &errResponse)
	if err != nil {
		// set the Message to be the body if can't parse the XML
		errResponse.Message = strings.TrimSpace(string(body))
	}
	errResponse.Status = resp.Status
	errResponse.StatusCode = resp.StatusCode
	return errResponse
}

// AddSlash makes sure s is terminated with a / if non empty
func AddSlash(s string) string {
	if s != "" && !strings.HasSuffix(s, "/") {
		s += "/"
	}
	return s
}

// AbsURL returns the absolute URL for the percent-encoded path p.
// It is what goes into Destination headers and share targets.
func (c *Client) AbsURL(p string) string {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return c.endpointURL + p
}

// List fetches the listing of the directory at path with a Depth: 1
// PROPFIND. path is percent-encoded; a trailing slash is added if
// missing. Anything other than a 207 reply is an error.
func (c *Client) List(ctx context.Context, path string) ([]*Entry, error) {
	opts := rest.Opts{
		Method: "PROPFIND",
		Path:   AddSlash(path),
		ExtraHeaders: map[string]string{
			"Depth": "1",
		},
	}
	resp, err := c.srv.Call(ctx, &opts)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't list files")
	}
	if resp.StatusCode != http.StatusMultiStatus {
		_ = resp.Body.Close()
		return nil, errors.Errorf("couldn't list files: unexpected status %d", resp.StatusCode)
	}
	body, err := rest.ReadBody(resp)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't read listing")
	}
	return ParseListing(body)
}

// copyOrMove issues a MOVE or COPY of src to dest, both
// percent-encoded paths. The server replies 201 on success.
func (c *Client) copyOrMove(ctx context.Context, src, dest, method string) error {
	opts := rest.Opts{
		Method:     method,
		Path:       src,
		NoResponse: true,
		ExtraHeaders: map[string]string{
			"Destination": c.AbsURL(dest),
		},
	}
	_, err := c.srv.Call(ctx, &opts)
	return err
}

// Move moves src to dest server side.
func (c *Client) Move(ctx context.Context, src, dest string) error {
	return c.copyOrMove(ctx, src, dest, "MOVE")
}

// CopyTo copies src to dest server side.
func (c *Client) CopyTo(ctx context.Context, src, dest string) error {
	return c.copyOrMove(ctx, src, dest, "COPY")
}

// Mkcol creates the directory at path. Collections must end with /.
func (c *Client) Mkcol(ctx context.Context, path string) error {
	opts := rest.Opts{
		Method:     "MKCOL",
		Path:       AddSlash(path),
		NoResponse: true,
	}
	_, err := c.srv.Call(ctx, &opts)
	return err
}

// Put uploads the contents of in to path. size must be the exact
// byte count. A non-zero modTime is relayed as X-OC-Mtime so the
// server can preserve the local timestamp.
func (c *Client) Put(ctx context.Context, path string, in io.Reader, size int64, modTime time.Time) error {
	opts := rest.Opts{
		Method:        "PUT",
		Path:          path,
		Body:          in,
		NoResponse:    true,
		ContentLength: &size,
	}
	if !modTime.IsZero() {
		opts.ExtraHeaders = map[string]string{
			"X-OC-Mtime": fmt.Sprintf("%f", float64(modTime.UnixNano())/1e9),
		}
	}
	_, err := c.srv.Call(ctx, &opts)
	return err
}

// Delete removes the resource at path.
func (c *Client) Delete(ctx context.Context, path string) error {
	opts := rest.Opts{
		Method:     "DELETE",
		Path:       path,
		NoResponse: true,
	}
	_, err := c.srv.Call(ctx, &opts)
	return err
}

// Get opens the resource at path for reading. The caller must close
// the returned body.
func (c *Client) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	opts := rest.Opts{
		Method: "GET",
		Path:   path,
	}
	resp, err := c.srv.Call(ctx, &opts)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// GetString fetches the resource at path as text.
func (c *Client) GetString(ctx context.Context, path string) (string, error) {
	in, err := c.Get(ctx, path)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = in.Close()
	}()
	b, err := io.ReadAll(in)
	if err != nil {
		return "", errors.Wrap(err, "couldn't read content")
	}
	return string(b), nil
}
