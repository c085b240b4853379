package acdata

import (
	"net/http"
	"strings"
)

// SessionCookieName is the cookie that carries the authenticated session.
const SessionCookieName = "_acdata_session"

// Session is the opaque session token issued at sign-in.
type Session string

// Valid reports whether the session holds a token.
func (s Session) Valid() bool {
	return strings.TrimSpace(string(s)) != ""
}

// CookieHeader renders the Cookie header value, or "" for an empty session.
func (s Session) CookieHeader() string {
	if !s.Valid() {
		return ""
	}
	return SessionCookieName + "=" + string(s)
}

// ExtractSession scans the Set-Cookie headers for the session cookie. When
// several match, the last one wins.
func ExtractSession(header http.Header) (Session, bool) {
	resp := http.Response{Header: header}
	var (
		session Session
		found   bool
	)
	for _, cookie := range resp.Cookies() {
		if cookie.Name != SessionCookieName {
			continue
		}
		session = Session(cookie.Value)
		found = true
	}
	return session, found
}
