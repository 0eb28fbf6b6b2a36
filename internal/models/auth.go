package models

import (
	"net/http"
	"time"
)

// SessionFormatVersion identifies the cookie transport encoding (a JSON array of Cookie records)
const SessionFormatVersion = 1

// Cookie is one captured browser cookie in transport form.
// Name and Value are required; every other field is optional and omitted when empty.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain,omitempty"`
	Path     string  `json:"path,omitempty"`
	Expires  float64 `json:"expires,omitempty"` // Unix seconds, informational only
	Secure   bool    `json:"secure,omitempty"`
	HTTPOnly bool    `json:"httpOnly,omitempty"`
	SameSite string  `json:"sameSite,omitempty"`
}

// ToHTTPCookie converts the record to a request cookie.
// Expiry is not carried over: the upstream decides whether the session is still valid.
func (c Cookie) ToHTTPCookie() *http.Cookie {
	cookie := &http.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Domain:   c.Domain,
		Path:     c.Path,
		Secure:   c.Secure,
		HttpOnly: c.HTTPOnly,
	}

	switch c.SameSite {
	case "Strict", "strict":
		cookie.SameSite = http.SameSiteStrictMode
	case "Lax", "lax":
		cookie.SameSite = http.SameSiteLaxMode
	case "None", "none":
		cookie.SameSite = http.SameSiteNoneMode
	default:
		cookie.SameSite = http.SameSiteDefaultMode
	}

	return cookie
}

// Session is the authentication state for the single upstream account
type Session struct {
	Cookies    []Cookie  `json:"cookies"`
	CapturedAt time.Time `json:"captured_at"`
	Version    int       `json:"version"`
}

// CookieNames returns the cookie names in stored order
func (s *Session) CookieNames() []string {
	names := make([]string, 0, len(s.Cookies))
	for _, c := range s.Cookies {
		names = append(names, c.Name)
	}
	return names
}

// SessionState is the derived state of the stored session.
// Only presence is persisted; validity comes from the most recent liveness check.
type SessionState string

const (
	SessionAbsent      SessionState = "absent"
	SessionUntested    SessionState = "untested"
	SessionValid       SessionState = "valid"
	SessionInvalid     SessionState = "invalid"
	SessionUnreachable SessionState = "unreachable"
)
