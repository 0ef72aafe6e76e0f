// Package share requests scoped, time-limited capability tokens from
// the gateway for single resources.
package share

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"github.com/davexplorer/davexplorer/lib/rest"
)

// DefaultLifespanDays is the lifespan offered by default when sharing
// interactively.
const DefaultLifespanDays = 7

// sharePath is the gateway endpoint issuing tokens.
const sharePath = "/api/common/Share"

// Options are the caller-chosen share parameters.
type Options struct {
	SharedFor    string // recipient label, informational only
	LifespanDays int    // days the token stays valid
	ReadOnly     bool   // false allows writes through the grant
}

// shareRequest is the JSON body of the issuing call.
type shareRequest struct {
	SharedFor string `json:"sharedfor"`
	Lifespan  int    `json:"lifespan"`
	URL       string `json:"url"`
	ReadOnly  bool   `json:"readonly"`
}

// Issuer requests tokens from the gateway. The returned tokens are
// opaque: they are relayed as a query parameter and never parsed,
// validated or reused for another resource.
type Issuer struct {
	srv *rest.Client
}

// NewIssuer creates an Issuer talking to the gateway at apiURL.
// xsrfToken is sent with every issuing call.
func NewIssuer(httpClient *http.Client, apiURL, xsrfToken string) *Issuer {
	srv := rest.NewClient(httpClient).SetRoot(strings.TrimSuffix(apiURL, "/"))
	if xsrfToken != "" {
		srv.SetHeader("XSRF-Token", xsrfToken)
	}
	return &Issuer{srv: srv}
}

// Issue requests a token scoped to targetURL. Failure aborts the
// share flow; there is no retry.
func (i *Issuer) Issue(ctx context.Context, targetURL string, opt Options) (string, error) {
	if opt.LifespanDays <= 0 {
		opt.LifespanDays = DefaultLifespanDays
	}
	opts := rest.Opts{
		Method: "POST",
		Path:   sharePath,
	}
	req := shareRequest{
		SharedFor: opt.SharedFor,
		Lifespan:  opt.LifespanDays,
		URL:       targetURL,
		ReadOnly:  opt.ReadOnly,
	}
	resp, err := i.srv.CallJSON(ctx, &opts, &req, nil)
	if err != nil {
		return "", errors.Wrap(err, "share token could not be made")
	}
	body, err := rest.ReadBody(resp)
	if err != nil {
		return "", errors.Wrap(err, "couldn't read share token")
	}
	token := strings.TrimSpace(string(body))
	if token == "" {
		return "", errors.New("share endpoint returned an empty token")
	}
	return token, nil
}

// TokenURL appends token as the token query parameter of target.
func TokenURL(target, token string) string {
	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}
	return target + sep + "token=" + url.QueryEscape(token)
}
