package rest

import (
	"net/url"
)

// URLPathEscape escapes the path in the in string using URL escaping rules
//
// This mimics url.PathEscape but leaves "/" alone
func URLPathEscape(in string) string {
	var u url.URL
	u.Path = in
	return u.String()
}
