package config

import (
	"fmt"
	"net/url"
	"strings"
)

// NormalizeURL strips a "+driver" suffix from the scheme, turning
// "postgresql+asyncpg://..." into "postgresql://...".
func NormalizeURL(raw string) (string, error) {
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok || scheme == "" {
		return "", fmt.Errorf("%w: missing scheme in %s", ErrInvalidURL, Redact(raw))
	}
	if base, _, found := strings.Cut(scheme, "+"); found {
		scheme = base
	}
	return strings.ToLower(scheme) + "://" + rest, nil
}

// Redact hides the password of a connection URL so it can be logged.
func Redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<unparseable url>"
	}
	if _, has := u.User.Password(); has {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}
