package models

import (
	"fmt"
	"net/url"
	"strings"
)

// CanonicalURL normalises a feed URL for identity comparisons: the scheme
// must be http/https, the host is lower-cased, and any fragment is
// stripped. It does not touch the path, query, or case of the path —
// only the parts that vary without changing what is actually fetched.
func CanonicalURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty URL")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse URL: %w", err)
	}
	if !u.IsAbs() {
		return "", fmt.Errorf("URL is not absolute: %q", raw)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return "", fmt.Errorf("unsupported URL scheme %q", u.Scheme)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	return u.String(), nil
}

// SameURL reports whether two URLs are the same under case-insensitive
// host comparison and exact path/query comparison — the identity rule used
// for Feed dedup and Episode (FeedId, AudioUrl) identity.
func SameURL(a, b string) bool {
	ca, errA := CanonicalURL(a)
	cb, errB := CanonicalURL(b)
	if errA != nil || errB != nil {
		return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
	}
	return ca == cb
}
