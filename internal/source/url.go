// internal/source/url.go
package source

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"path"
	"sort"
	"strings"
)

// Normalize converts a submitted URL into its canonical form so that
// semantically equal URLs compare and hash identically. The canonical form
// keeps scheme, host, path and query; fragments and default ports are
// dropped, the query is sorted, and dot segments are resolved.
func Normalize(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("empty URL")
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("malformed URL: %w", err)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("URL has no host")
	}

	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if port != "" && !isDefaultPort(scheme, port) {
		host = host + ":" + port
	}

	p := u.EscapedPath()
	if p == "" {
		p = "/"
	}
	p = path.Clean(p)
	// path.Clean collapses "/" correctly but strips a trailing slash that
	// the original had; treat /results and /results/ as the same resource.
	if p != "/" {
		p = strings.TrimSuffix(p, "/")
	}

	canonical := scheme + "://" + host + p
	if q := canonicalQuery(u.Query()); q != "" {
		canonical += "?" + q
	}
	return canonical, nil
}

// Hash returns the stable content-addressed identifier for a normalized URL.
func Hash(normalized string) string {
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// NormalizeAndHash is the common submission path: canonical form plus hash.
func NormalizeAndHash(raw string) (normalized, hash string, err error) {
	normalized, err = Normalize(raw)
	if err != nil {
		return "", "", err
	}
	return normalized, Hash(normalized), nil
}

func isDefaultPort(scheme, port string) bool {
	return (scheme == "http" && port == "80") || (scheme == "https" && port == "443")
}

// canonicalQuery re-encodes the query with keys sorted and values kept in
// their original relative order per key.
func canonicalQuery(values url.Values) string {
	if len(values) == 0 {
		return ""
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		for _, v := range values[k] {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
		}
	}
	return b.String()
}
