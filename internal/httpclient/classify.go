package httpclient

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ternarybob/larder/internal/common"
	"github.com/ternarybob/larder/internal/models"
)

const defaultUserAgent = common.DefaultUserAgent

// signInSelectors match the upstream login form. A 2xx carrying it means the session is dead.
const signInSelectors = `form[name="signIn"], form#ap_login_form, input#ap_email, input#ap_password`

// applyBrowserHeaders sets the header set the upstream expects from the mobile app
func applyBrowserHeaders(req *http.Request, userAgent string) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Language", "*")
	req.Header.Set("DNT", "1")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
}

// Classify maps an upstream reply to an error class, nil for success.
// The detail string is suitable for logs and status surfaces.
func Classify(statusCode int, finalURL *url.URL, contentType string, body []byte) (string, error) {
	switch {
	case statusCode >= 200 && statusCode < 300:
		if finalURL != nil && isSignInPath(finalURL.Path) {
			return "redirected to sign-in", models.ErrAuthInvalid
		}
		if looksLikeHTML(contentType, body) && IsSignInPage(body) {
			return "sign-in page returned", models.ErrAuthInvalid
		}
		return "", nil
	case statusCode == http.StatusUnauthorized, statusCode == http.StatusForbidden:
		return http.StatusText(statusCode), models.ErrAuthInvalid
	case statusCode >= 500:
		return http.StatusText(statusCode), models.ErrTransient
	default:
		return fmt.Sprintf("unexpected status %d %s", statusCode, http.StatusText(statusCode)), models.ErrRequestRejected
	}
}

// IsSignInPage reports whether an HTML document contains the upstream login form
func IsSignInPage(body []byte) bool {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return false
	}
	return doc.Find(signInSelectors).Length() > 0
}

func isSignInPath(path string) bool {
	path = strings.ToLower(path)
	return strings.HasPrefix(path, "/ap/signin") || strings.HasPrefix(path, "/ap/login")
}

func looksLikeHTML(contentType string, body []byte) bool {
	if strings.Contains(strings.ToLower(contentType), "html") {
		return true
	}
	trimmed := bytes.TrimSpace(body)
	return len(trimmed) > 0 && trimmed[0] == '<'
}
