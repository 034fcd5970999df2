package utils

import (
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/papermux/papermux/utils/dotenv"
)

// trackingParams are query parameters that carry no identity and are dropped
// during URL normalization.
var trackingParams = []string{
	"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content",
	"fbclid", "gclid", "ref",
}

// ContainsString returns true iff the provided string slice hay contains string
// needle.
func ContainsString(hay []string, needle string) bool {
	for _, str := range hay {
		if str == needle {
			return true
		}
	}
	return false
}

// TextToMd5Hash returns the hex encoded md5 hash of the provided text.
func TextToMd5Hash(text string) string {
	h := md5.Sum([]byte(text))
	return hex.EncodeToString(h[:])
}

// NewFeedToken returns a 32 character lowercase hex token suitable for use as
// an unguessable public feed identifier.
func NewFeedToken() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return strings.ReplaceAll(uuid.New().String(), "-", "")
	}
	return hex.EncodeToString(b)
}

// ParseHTTPURL parses raw and requires an absolute http or https URL with a
// non-empty host.
func ParseHTTPURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("url %q has no host", raw)
	}
	return u, nil
}

// NormalizeURL canonicalizes a URL for identity comparison: lowercase scheme
// and host, fragment removed, trailing slash trimmed and tracking query
// parameters dropped. Unparseable input is returned trimmed as-is.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.TrimSuffix(raw, "/")
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.Path = strings.TrimSuffix(u.Path, "/")

	q := u.Query()
	for _, p := range trackingParams {
		q.Del(p)
	}
	u.RawQuery = q.Encode()

	return u.String()
}

// IsProdEnv returns true iff the current runtime environment is production.
func IsProdEnv() bool {
	return os.Getenv("PAPERMUX_ENV") == dotenv.ProdEnv
}
